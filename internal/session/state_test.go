package session

import (
	"testing"
	"time"

	"github.com/buurguees/bot-trading-v10-sub003/internal/models"
)

func TestStateCycleSnapshot(t *testing.T) {
	st := NewState(models.ModeHistorical, []string{"BTCUSDT", "ETHUSDT"}, "1h", 1000)
	now := time.Now()

	// BTC wins 100, ETH loses 40; both flat before the cycle ends.
	btc := st.Agent("BTCUSDT")
	if err := btc.Open(models.Long, 1, 100, now); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, err := btc.Close(200, now, "signal_exit"); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	eth := st.Agent("ETHUSDT")
	if err := eth.Open(models.Long, 2, 20, now); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, err := eth.Close(0.01, now, "signal_exit"); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	st.EndCycle(now)

	if st.CyclesCompleted() != 1 {
		t.Fatalf("CyclesCompleted() = %d, want 1", st.CyclesCompleted())
	}
	if btc.Balance() != 1000 || eth.Balance() != 1000 {
		t.Errorf("balances after cycle = %v/%v, want 1000/1000", btc.Balance(), eth.Balance())
	}

	st.EndCycle(now)
	summary := st.Summary(now)

	if summary.Cycles != 2 {
		t.Errorf("Cycles = %d, want 2", summary.Cycles)
	}
	if summary.CycleAgg == nil {
		t.Fatal("CycleAgg = nil for a two-cycle session")
	}
	// First cycle: (100 - 39.98) / 2 agents; second cycle traded nothing.
	wantCycleMean := (100 - 39.98) / 2 / 2
	if diff := summary.CycleAgg.MeanPnL - wantCycleMean; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("CycleAgg.MeanPnL = %v, want %v", summary.CycleAgg.MeanPnL, wantCycleMean)
	}
	if summary.Aggregate.TotalTrades != 2 {
		t.Errorf("TotalTrades = %d, want 2", summary.Aggregate.TotalTrades)
	}
	if summary.Aggregate.WinningTrades != 1 || summary.Aggregate.LosingTrades != 1 {
		t.Errorf("winning/losing = %d/%d, want 1/1",
			summary.Aggregate.WinningTrades, summary.Aggregate.LosingTrades)
	}
	if summary.Aggregate.WinRate != 50 {
		t.Errorf("WinRate = %v, want 50", summary.Aggregate.WinRate)
	}
}

func TestStateCloseAllWithoutPrices(t *testing.T) {
	st := NewState(models.ModeHistorical, []string{"BTCUSDT"}, "1h", 1000)
	now := time.Now()

	agent := st.Agent("BTCUSDT")
	if err := agent.Open(models.Long, 1, 100, now); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	// No bar was ever observed, so the force close settles at entry.
	st.CloseAll(now, "shutdown")

	if agent.HasPosition() {
		t.Error("HasPosition() = true after CloseAll")
	}
	trades := agent.Trades()
	if len(trades) != 1 {
		t.Fatalf("Trades() length = %d, want 1", len(trades))
	}
	if trades[0].PnL != 0 {
		t.Errorf("forced close PnL = %v, want 0", trades[0].PnL)
	}
}

func TestStateObserveMovesPrices(t *testing.T) {
	st := NewState(models.ModeHistorical, []string{"BTCUSDT", "ETHUSDT"}, "1h", 1000)

	step := AlignedStep{
		Timestamp: 1000,
		Candles: map[string]models.Candle{
			"BTCUSDT": candleAt(1000, 42000),
		},
	}
	st.Observe(step)

	if got := st.LastPrice("BTCUSDT"); got != 42000 {
		t.Errorf("LastPrice(BTCUSDT) = %v, want 42000", got)
	}
	if got := st.LastPrice("ETHUSDT"); got != 0 {
		t.Errorf("LastPrice(ETHUSDT) = %v, want 0 (gap)", got)
	}
	if curve := st.Agent("BTCUSDT").EquityCurve(); len(curve) != 2 {
		t.Errorf("BTCUSDT curve length = %d, want 2", len(curve))
	}
	if curve := st.Agent("ETHUSDT").EquityCurve(); len(curve) != 1 {
		t.Errorf("ETHUSDT curve length = %d, want 1 (no bar, no mark)", len(curve))
	}
}

func TestEmptySessionSummary(t *testing.T) {
	st := NewState(models.ModeHistorical, []string{"BTCUSDT"}, "1h", 1000)
	now := time.Now()

	st.EndCycle(now)
	summary := st.Summary(now)

	if summary.Cycles != 1 {
		t.Errorf("Cycles = %d, want 1", summary.Cycles)
	}
	if summary.CycleAgg != nil {
		t.Errorf("CycleAgg = %+v, want nil for a single cycle", summary.CycleAgg)
	}
	if len(summary.PerSymbol) != 1 {
		t.Fatalf("PerSymbol length = %d, want 1", len(summary.PerSymbol))
	}
	row := summary.PerSymbol[0]
	if row.PnL != 0 || row.WinRate != 0 || row.MaxDrawdownPct != 0 || row.Trades != 0 {
		t.Errorf("empty session row = %+v, want zeros", row)
	}
	if summary.Corrupted() {
		t.Error("Corrupted() = true for an empty session")
	}
}
