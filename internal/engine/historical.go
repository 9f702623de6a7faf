package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/buurguees/bot-trading-v10-sub003/internal/config"
	"github.com/buurguees/bot-trading-v10-sub003/internal/marketdata"
	"github.com/buurguees/bot-trading-v10-sub003/internal/models"
	"github.com/buurguees/bot-trading-v10-sub003/internal/report"
	"github.com/buurguees/bot-trading-v10-sub003/internal/session"
	"github.com/buurguees/bot-trading-v10-sub003/internal/stats"
	"github.com/buurguees/bot-trading-v10-sub003/internal/strategy"
)

// Historical replays the candle store through N synchronized training
// cycles and writes the executive summary at the end.
type Historical struct {
	plan     *config.Plan
	strat    strategy.Strategy
	store    *marketdata.Store
	sinks    Sinks
	interval time.Duration
	logger   zerolog.Logger
}

// NewHistorical wires a historical engine from a validated training plan.
func NewHistorical(plan *config.Plan, strat strategy.Strategy, store *marketdata.Store, sinks Sinks) (*Historical, error) {
	interval, err := models.ParseInterval(plan.Session.Interval)
	if err != nil {
		return nil, err
	}
	return &Historical{
		plan:     plan,
		strat:    strat,
		store:    store,
		sinks:    sinks,
		interval: interval,
		logger:   log.With().Str("component", "historical_engine").Logger(),
	}, nil
}

// Run executes the full session and returns its summary. The report file is
// written before any optional sink runs, so a sink outage never loses the
// session.
func (h *Historical) Run(ctx context.Context) (*models.SessionSummary, error) {
	plan := h.plan.Session
	series, err := h.store.LoadAll(plan.Symbols, h.plan.Session.Interval)
	if err != nil {
		return nil, fmt.Errorf("failed to load candles: %w", err)
	}
	for _, symbol := range plan.Symbols {
		if len(series[symbol]) == 0 {
			h.logger.Warn().Str("symbol", symbol).Msg("no candles in store, symbol will sit out")
		}
	}

	aligned := session.Align(series)
	for symbol, gaps := range aligned.Gaps {
		if gaps > 0 {
			h.logger.Warn().Str("symbol", symbol).Int("gaps", gaps).Msg("symbol missing bars on the shared timeline")
		}
	}
	if len(aligned.Steps) == 0 {
		h.logger.Warn().Msg("no aligned bars, session will report empty stats")
	}

	st := session.NewState(models.ModeHistorical, plan.Symbols, plan.Interval, plan.InitialBalance)
	h.logger.Info().
		Str("session", st.ID()).
		Str("run_id", st.RunID()).
		Strs("symbols", plan.Symbols).
		Int("bars", len(aligned.Steps)).
		Int("cycles", plan.Cycles).
		Msg("historical session starting")

	endT := time.Now().UTC()
	if n := len(aligned.Steps); n > 0 {
		endT = time.UnixMilli(aligned.Steps[n-1].Timestamp).Add(h.interval).UTC()
	}

	finalCurves := make(map[string][]float64, len(plan.Symbols))
	finalTimes := make(map[string][]int64, len(plan.Symbols))
	for cycle := 1; cycle <= plan.Cycles; cycle++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		windows := make(map[string][]models.Candle, len(plan.Symbols))
		symTimes := make(map[string][]int64, len(plan.Symbols))

		for i, step := range aligned.Steps {
			if i%1024 == 0 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}
			for _, symbol := range plan.Symbols {
				c, ok := step.Candles[symbol]
				if !ok {
					continue
				}
				w := append(windows[symbol], c)
				if len(w) > maxWindow {
					w = w[1:]
				}
				windows[symbol] = w
				symTimes[symbol] = append(symTimes[symbol], c.Timestamp)

				sig := h.strat.OnBar(w)
				applySignal(st, symbol, sig, c, h.plan.Strategy.SizePct, h.logger)
			}
			st.Observe(step)
		}

		if cycle == plan.Cycles {
			// Keep the last pass's curves for the equity sink and the
			// Sharpe log; EndCycle resets them.
			for _, symbol := range plan.Symbols {
				finalCurves[symbol] = append([]float64(nil), st.Agent(symbol).EquityCurve()...)
				finalTimes[symbol] = symTimes[symbol]
			}
		}
		st.EndCycle(endT)
	}

	summary := st.Summary(time.Now().UTC())
	path, err := report.WriteFile(h.plan.Reports.Dir, summary)
	if err != nil {
		return nil, err
	}
	h.logger.Info().
		Str("report", path).
		Float64("mean_pnl", summary.Aggregate.MeanPnL).
		Float64("win_rate", summary.Aggregate.WinRate).
		Int("trades", summary.Aggregate.TotalTrades).
		Msg("historical session complete")

	periodsPerYear := float64(365*24*time.Hour) / float64(h.interval)
	for _, symbol := range plan.Symbols {
		trades := st.Agent(symbol).Trades()
		h.logger.Info().
			Str("symbol", symbol).
			Float64("sharpe", stats.SharpeRatio(finalCurves[symbol], periodsPerYear)).
			Float64("profit_factor", stats.ProfitFactor(trades)).
			Dur("mean_trade_duration", stats.MeanTradeDuration(trades)).
			Msg("symbol performance")
	}

	h.sinks.persist(summary, finalCurves, finalTimes, h.logger)
	return summary, nil
}
