package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/buurguees/bot-trading-v10-sub003/internal/config"
	"github.com/buurguees/bot-trading-v10-sub003/internal/marketdata"
	"github.com/buurguees/bot-trading-v10-sub003/internal/metrics"
	"github.com/buurguees/bot-trading-v10-sub003/internal/models"
	"github.com/buurguees/bot-trading-v10-sub003/internal/report"
	"github.com/buurguees/bot-trading-v10-sub003/internal/session"
	"github.com/buurguees/bot-trading-v10-sub003/internal/strategy"
)

// Live runs a paper session over the websocket stream until its context is
// canceled, serving Prometheus metrics and writing periodic snapshot
// reports along the way.
type Live struct {
	plan          *config.Plan
	strat         strategy.Strategy
	stream        *marketdata.Stream
	sinks         Sinks
	snapshotEvery time.Duration
	logger        zerolog.Logger
}

// NewLive wires a live engine from a validated training plan.
func NewLive(plan *config.Plan, strat strategy.Strategy, stream *marketdata.Stream, sinks Sinks) (*Live, error) {
	if _, err := models.ParseInterval(plan.Session.Interval); err != nil {
		return nil, err
	}
	snapshotEvery, err := time.ParseDuration(plan.Live.SnapshotEvery)
	if err != nil {
		return nil, fmt.Errorf("invalid snapshot_every %q: %w", plan.Live.SnapshotEvery, err)
	}
	return &Live{
		plan:          plan,
		strat:         strat,
		stream:        stream,
		sinks:         sinks,
		snapshotEvery: snapshotEvery,
		logger:        log.With().Str("component", "live_engine").Logger(),
	}, nil
}

// Run consumes closed candles until shutdown, then settles every agent and
// writes the final summary.
func (l *Live) Run(ctx context.Context) (*models.SessionSummary, error) {
	plan := l.plan.Session
	st := session.NewState(models.ModeLive, plan.Symbols, plan.Interval, plan.InitialBalance)
	l.logger.Info().
		Str("session", st.ID()).
		Str("run_id", st.RunID()).
		Strs("symbols", plan.Symbols).
		Str("metrics_addr", l.plan.Live.MetricsAddr).
		Msg("live session starting")

	srv := metrics.Serve(l.plan.Live.MetricsAddr)
	defer srv.Close()

	events := make(chan marketdata.CandleEvent, 64)
	streamDone := make(chan error, 1)
	go func() { streamDone <- l.stream.Run(ctx, events) }()

	ticker := time.NewTicker(l.snapshotEvery)
	defer ticker.Stop()

	windows := make(map[string][]models.Candle, len(plan.Symbols))
	times := make(map[string][]int64, len(plan.Symbols))

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case err := <-streamDone:
			if ctx.Err() == nil {
				l.logger.Error().Err(err).Msg("stream terminated, ending session")
			}
			break loop
		case ev := <-events:
			l.onCandle(st, windows, times, ev)
		case <-ticker.C:
			snap := st.Summary(time.Now().UTC())
			if _, err := report.WriteFile(l.plan.Reports.Dir, snap); err != nil {
				l.logger.Warn().Err(err).Msg("failed to write snapshot report")
			}
			l.logger.Info().
				Float64("mean_pnl", snap.Aggregate.MeanPnL).
				Float64("win_rate", snap.Aggregate.WinRate).
				Int("trades", snap.Aggregate.TotalTrades).
				Msg("session snapshot")
		}
	}

	now := time.Now().UTC()
	st.CloseAll(now, "shutdown")
	summary := st.Summary(now)
	path, err := report.WriteFile(l.plan.Reports.Dir, summary)
	if err != nil {
		return nil, err
	}
	l.logger.Info().
		Str("report", path).
		Float64("mean_pnl", summary.Aggregate.MeanPnL).
		Int("trades", summary.Aggregate.TotalTrades).
		Msg("live session complete")

	curves := make(map[string][]float64, len(plan.Symbols))
	for _, symbol := range plan.Symbols {
		curves[symbol] = append([]float64(nil), st.Agent(symbol).EquityCurve()...)
	}
	l.sinks.persist(summary, curves, times, l.logger)
	return summary, nil
}

func (l *Live) onCandle(st *session.State, windows map[string][]models.Candle, times map[string][]int64, ev marketdata.CandleEvent) {
	symbol := ev.Symbol
	agent := st.Agent(symbol)
	if agent == nil {
		return
	}

	w := append(windows[symbol], ev.Candle)
	if len(w) > maxWindow {
		w = w[1:]
	}
	windows[symbol] = w
	times[symbol] = append(times[symbol], ev.Candle.Timestamp)

	sig := l.strat.OnBar(w)
	closed := applySignal(st, symbol, sig, ev.Candle, l.plan.Strategy.SizePct, l.logger)
	for _, tr := range closed {
		result := "loss"
		if tr.Won() {
			result = "win"
		}
		metrics.TradesTotal.WithLabelValues(symbol, string(tr.Side)).Inc()
		metrics.TradeResults.WithLabelValues(symbol, result).Inc()
		l.logger.Info().
			Str("symbol", symbol).
			Str("side", string(tr.Side)).
			Float64("pnl", tr.PnL).
			Str("reason", tr.Reason).
			Msg("trade closed")
	}

	st.ObserveCandle(symbol, ev.Candle)
	metrics.AgentEquity.WithLabelValues(symbol).Set(agent.Equity(ev.Candle.Close))
}
