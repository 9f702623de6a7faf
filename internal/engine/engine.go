// Package engine drives training sessions end to end. The historical engine
// replays the candle store through synchronized multi-symbol cycles; the
// live engine applies the same bookkeeping to closed candles arriving over
// the websocket stream. Both hand their finished sessions to the same sinks.
package engine

import (
	"github.com/rs/zerolog"

	"github.com/buurguees/bot-trading-v10-sub003/internal/models"
	"github.com/buurguees/bot-trading-v10-sub003/internal/notify"
	"github.com/buurguees/bot-trading-v10-sub003/internal/session"
	"github.com/buurguees/bot-trading-v10-sub003/internal/storage"
	"github.com/buurguees/bot-trading-v10-sub003/internal/strategy"
)

// Strategies never need more history than this; capping the window keeps
// long replays from accumulating the whole series per symbol.
const maxWindow = 512

// Sinks are the optional destinations a finished session is pushed to.
// Any nil field is skipped.
type Sinks struct {
	DB     *storage.DB
	Equity *storage.EquitySink
	Notify *notify.Notifier
}

// persist pushes a finished summary to every configured sink. Sink failures
// are logged, not returned: the report file on disk is the primary output
// and has already been written by the time this runs.
func (s Sinks) persist(summary *models.SessionSummary, curves map[string][]float64, times map[string][]int64, logger zerolog.Logger) {
	if s.DB != nil {
		if err := s.DB.SaveSummary(summary); err != nil {
			logger.Warn().Err(err).Msg("failed to store session in postgres")
		} else {
			logger.Info().Str("run_id", summary.RunID).Msg("session stored in postgres")
		}
	}
	if s.Equity != nil {
		if err := s.Equity.WriteResult(summary); err != nil {
			logger.Warn().Err(err).Msg("failed to write result to influx")
		}
		for symbol, curve := range curves {
			if err := s.Equity.WriteEquity(summary.RunID, summary.ID, symbol, curve, times[symbol]); err != nil {
				logger.Warn().Err(err).Str("symbol", symbol).Msg("failed to write equity curve to influx")
			}
		}
	}
	if s.Notify != nil {
		if err := s.Notify.SessionComplete(summary); err != nil {
			logger.Warn().Err(err).Msg("failed to send session notification")
		}
	}
}

// applySignal turns a strategy verdict into agent actions at the bar close.
// An entry signal against an open opposite position closes it first. Trades
// closed along the way are returned for the caller's logging and metrics.
func applySignal(st *session.State, symbol string, sig strategy.Signal, c models.Candle, sizePct float64, logger zerolog.Logger) []models.TradeRecord {
	agent := st.Agent(symbol)
	if agent == nil || c.Close <= 0 {
		return nil
	}
	t := c.Time()
	var closed []models.TradeRecord

	closePos := func(reason string) {
		tr, err := agent.Close(c.Close, t, reason)
		if err != nil {
			logger.Warn().Err(err).Str("symbol", symbol).Msg("close failed")
			return
		}
		closed = append(closed, tr)
	}
	openPos := func(side models.Side) {
		qty := agent.Balance() * sizePct / 100 / c.Close
		if err := agent.Open(side, qty, c.Close, t); err != nil {
			logger.Debug().Err(err).Str("symbol", symbol).Msg("entry rejected")
		}
	}

	side, has := agent.PositionSide()
	switch sig {
	case strategy.Exit:
		if has {
			closePos("signal_exit")
		}
	case strategy.EnterLong:
		if has && side == models.Long {
			return nil
		}
		if has {
			closePos("reverse")
		}
		openPos(models.Long)
	case strategy.EnterShort:
		if has && side == models.Short {
			return nil
		}
		if has {
			closePos("reverse")
		}
		openPos(models.Short)
	}
	return closed
}
