package engine

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/buurguees/bot-trading-v10-sub003/internal/config"
	"github.com/buurguees/bot-trading-v10-sub003/internal/marketdata"
	"github.com/buurguees/bot-trading-v10-sub003/internal/models"
	"github.com/buurguees/bot-trading-v10-sub003/internal/report"
	"github.com/buurguees/bot-trading-v10-sub003/internal/strategy"
)

// 2023-11-14 22:00:00 UTC, hour-aligned.
const baseTS int64 = 1_699_999_200_000

const hourMs int64 = 3_600_000

func hourlyCandles(start int64, closes ...float64) []models.Candle {
	out := make([]models.Candle, len(closes))
	for i, c := range closes {
		out[i] = models.Candle{
			Timestamp: start + int64(i)*hourMs,
			Open:      c, High: c, Low: c, Close: c, Volume: 10,
		}
	}
	return out
}

func testPlan(dataDir, reportsDir string, symbols []string, cycles int) *config.Plan {
	return &config.Plan{
		Session: config.SessionPlan{
			Symbols:        symbols,
			Interval:       "1h",
			InitialBalance: 1000,
			Cycles:         cycles,
		},
		Data:     config.DataPlan{Dir: dataDir},
		Reports:  config.ReportsPlan{Dir: reportsDir},
		Strategy: config.StrategyPlan{Name: "scripted", SizePct: 10},
	}
}

// longRoundTrip enters long on the first bar of each pass and exits on the
// third, so every cycle produces exactly one closed trade per symbol.
type longRoundTrip struct{}

func (longRoundTrip) Name() string { return "long_round_trip" }

func (longRoundTrip) OnBar(window []models.Candle) strategy.Signal {
	switch len(window) {
	case 1:
		return strategy.EnterLong
	case 3:
		return strategy.Exit
	default:
		return strategy.Hold
	}
}

// shortAndHold enters short on the second bar and never exits, leaving the
// position for the cycle-end forced close.
type shortAndHold struct{}

func (shortAndHold) Name() string { return "short_and_hold" }

func (shortAndHold) OnBar(window []models.Candle) strategy.Signal {
	if len(window) == 2 {
		return strategy.EnterShort
	}
	return strategy.Hold
}

func TestHistoricalRunTwoSymbolsTwoCycles(t *testing.T) {
	dataDir, reportsDir := t.TempDir(), t.TempDir()
	store := marketdata.NewStore(dataDir)

	// BTC rallies 100 -> 130, ETH slides 2000 -> 1700. The scripted strategy
	// buys bar 1 and sells bar 3, so per cycle BTC books +20 (1 unit) and
	// ETH books -10 (0.05 units).
	assert.NoError(t, store.Save("BTCUSDT", "1h", hourlyCandles(baseTS, 100, 110, 120, 130)))
	assert.NoError(t, store.Save("ETHUSDT", "1h", hourlyCandles(baseTS, 2000, 1900, 1800, 1700)))

	plan := testPlan(dataDir, reportsDir, []string{"BTCUSDT", "ETHUSDT"}, 2)
	eng, err := NewHistorical(plan, longRoundTrip{}, store, Sinks{})
	assert.NoError(t, err)

	summary, err := eng.Run(context.Background())
	assert.NoError(t, err)

	assert.Equal(t, models.ModeHistorical, summary.Mode)
	assert.Equal(t, 2, summary.Cycles, "both cycles should complete")
	assert.Equal(t, float64(10), summary.Aggregate.MeanPnL, "mean of +40 and -20 across two agents")
	assert.Equal(t, float64(1), summary.Aggregate.MeanPnLPct)
	assert.Equal(t, 4, summary.Aggregate.TotalTrades, "one trade per symbol per cycle")
	assert.Equal(t, 2, summary.Aggregate.WinningTrades)
	assert.Equal(t, 2, summary.Aggregate.LosingTrades)
	assert.Equal(t, float64(50), summary.Aggregate.WinRate)
	assert.Equal(t, float64(1), summary.Aggregate.MaxDrawdownPct, "worst agent is ETH at 1%")

	assert.Equal(t, []models.SymbolStats{
		{Symbol: "BTCUSDT", PnL: 40, PnLPct: 4, Trades: 2, WinRate: 100, MaxDrawdownPct: 0, LongTrades: 2},
		{Symbol: "ETHUSDT", PnL: -20, PnLPct: -2, Trades: 2, WinRate: 0, MaxDrawdownPct: 1, LongTrades: 2},
	}, summary.PerSymbol)

	if assert.NotNil(t, summary.CycleAgg, "multi-cycle sessions aggregate cycles") {
		assert.Equal(t, 2, summary.CycleAgg.Completed)
		assert.Equal(t, float64(5), summary.CycleAgg.MeanPnL, "each cycle nets (20-10)/2 per agent")
		assert.Equal(t, float64(50), summary.CycleAgg.MeanWinRate)
		assert.Equal(t, float64(1), summary.CycleAgg.MeanDrawdownPct)
		assert.Equal(t, float64(2), summary.CycleAgg.MeanTrades)
		assert.Equal(t, 4, summary.CycleAgg.LongTrades)
		assert.Equal(t, 0, summary.CycleAgg.ShortTrades)
		assert.Equal(t, time.Hour, summary.CycleAgg.MeanBarDuration)
	}

	assert.False(t, summary.Corrupted(), "fresh summaries never carry nan/inf")

	parsed, err := report.ParseFile(filepath.Join(reportsDir, report.Filename(summary.ID)))
	assert.NoError(t, err, "report file should exist and parse")
	assert.Equal(t, summary.Aggregate, parsed.Aggregate)
	assert.Equal(t, summary.PerSymbol, parsed.PerSymbol)
	assert.Equal(t, 2, parsed.Cycles)
}

func TestHistoricalRunForcedCloseAtCycleEnd(t *testing.T) {
	dataDir, reportsDir := t.TempDir(), t.TempDir()
	store := marketdata.NewStore(dataDir)

	// Short 1 unit at 100 on bar 2, never exit. The cycle end force-closes
	// at the last close of 120 for a 20 loss.
	assert.NoError(t, store.Save("BTCUSDT", "1h", hourlyCandles(baseTS, 90, 100, 110, 120)))

	plan := testPlan(dataDir, reportsDir, []string{"BTCUSDT"}, 1)
	eng, err := NewHistorical(plan, shortAndHold{}, store, Sinks{})
	assert.NoError(t, err)

	summary, err := eng.Run(context.Background())
	assert.NoError(t, err)

	assert.Equal(t, 1, summary.Cycles)
	assert.Nil(t, summary.CycleAgg, "single-pass sessions skip the cycle block")
	assert.Equal(t, float64(-20), summary.Aggregate.MeanPnL)
	assert.Equal(t, 1, summary.Aggregate.TotalTrades)
	assert.Equal(t, float64(0), summary.Aggregate.WinRate)
	assert.Equal(t, float64(2), summary.Aggregate.MaxDrawdownPct)

	row := summary.PerSymbol[0]
	assert.Equal(t, 0, row.LongTrades)
	assert.Equal(t, 1, row.ShortTrades)
}

func TestHistoricalRunEmptyStore(t *testing.T) {
	dataDir, reportsDir := t.TempDir(), t.TempDir()
	store := marketdata.NewStore(dataDir)

	plan := testPlan(dataDir, reportsDir, []string{"GHOST"}, 1)
	eng, err := NewHistorical(plan, longRoundTrip{}, store, Sinks{})
	assert.NoError(t, err)

	summary, err := eng.Run(context.Background())
	assert.NoError(t, err, "a dataless session still reports, it does not error")

	assert.Equal(t, 0, summary.Aggregate.TotalTrades)
	assert.Equal(t, float64(0), summary.Aggregate.MeanPnL)
	assert.Equal(t, []models.SymbolStats{{Symbol: "GHOST"}}, summary.PerSymbol)
	assert.False(t, summary.Corrupted(), "zero-trade sessions must not divide by zero")
}

func TestHistoricalRunCanceledContext(t *testing.T) {
	dataDir, reportsDir := t.TempDir(), t.TempDir()
	store := marketdata.NewStore(dataDir)
	assert.NoError(t, store.Save("BTCUSDT", "1h", hourlyCandles(baseTS, 100, 110)))

	plan := testPlan(dataDir, reportsDir, []string{"BTCUSDT"}, 1)
	eng, err := NewHistorical(plan, longRoundTrip{}, store, Sinks{})
	assert.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = eng.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewHistoricalRejectsBadInterval(t *testing.T) {
	plan := testPlan(t.TempDir(), t.TempDir(), []string{"BTCUSDT"}, 1)
	plan.Session.Interval = "7m"
	_, err := NewHistorical(plan, longRoundTrip{}, marketdata.NewStore(plan.Data.Dir), Sinks{})
	assert.Error(t, err)
}
