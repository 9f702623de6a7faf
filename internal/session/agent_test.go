package session

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/buurguees/bot-trading-v10-sub003/internal/models"
)

func TestAgentLongRoundTrip(t *testing.T) {
	agent := NewAgent("BTCUSDT", 1000)
	now := time.Now()

	if err := agent.Open(models.Long, 2, 100, now); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if !agent.HasPosition() {
		t.Fatal("HasPosition() = false after open")
	}

	trade, err := agent.Close(110, now.Add(time.Hour), "signal_exit")
	if err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if trade.PnL != 20 {
		t.Errorf("PnL = %v, want 20", trade.PnL)
	}
	if agent.Balance() != 1020 {
		t.Errorf("Balance() = %v, want 1020", agent.Balance())
	}
	if !trade.Won() {
		t.Error("Won() = false for profitable trade")
	}
	if trade.Duration() != time.Hour {
		t.Errorf("Duration() = %v, want 1h", trade.Duration())
	}
}

func TestAgentShortPnL(t *testing.T) {
	agent := NewAgent("ETHUSDT", 1000)
	now := time.Now()

	if err := agent.Open(models.Short, 5, 100, now); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	trade, err := agent.Close(90, now, "signal_exit")
	if err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if trade.PnL != 50 {
		t.Errorf("short PnL = %v, want 50", trade.PnL)
	}
	if agent.Balance() != 1050 {
		t.Errorf("Balance() = %v, want 1050", agent.Balance())
	}
}

func TestAgentOpenValidation(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name  string
		qty   float64
		price float64
	}{
		{name: "zero qty", qty: 0, price: 100},
		{name: "negative qty", qty: -1, price: 100},
		{name: "zero price", qty: 1, price: 0},
		{name: "notional over balance", qty: 20, price: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agent := NewAgent("BTCUSDT", 1000)
			if err := agent.Open(models.Long, tt.qty, tt.price, now); err == nil {
				t.Errorf("Open(%v, %v) accepted, want error", tt.qty, tt.price)
			}
		})
	}
}

func TestAgentDoubleEntry(t *testing.T) {
	agent := NewAgent("BTCUSDT", 1000)
	now := time.Now()

	if err := agent.Open(models.Long, 1, 100, now); err != nil {
		t.Fatalf("first Open() error = %v", err)
	}
	err := agent.Open(models.Long, 1, 100, now)
	if !errors.Is(err, ErrPositionOpen) {
		t.Errorf("second Open() error = %v, want ErrPositionOpen", err)
	}
}

func TestAgentCloseWithoutPosition(t *testing.T) {
	agent := NewAgent("BTCUSDT", 1000)
	_, err := agent.Close(100, time.Now(), "signal_exit")
	if !errors.Is(err, ErrNoPosition) {
		t.Errorf("Close() error = %v, want ErrNoPosition", err)
	}
}

func TestAgentEquityMarking(t *testing.T) {
	agent := NewAgent("BTCUSDT", 1000)
	now := time.Now()

	agent.MarkBar(100)
	if err := agent.Open(models.Long, 5, 100, now); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	agent.MarkBar(110) // +50 unrealized
	agent.MarkBar(90)  // -50 unrealized

	curve := agent.EquityCurve()
	want := []float64{1000, 1000, 1050, 950}
	if len(curve) != len(want) {
		t.Fatalf("curve length = %d, want %d", len(curve), len(want))
	}
	for i := range want {
		if math.Abs(curve[i]-want[i]) > 1e-9 {
			t.Errorf("curve[%d] = %v, want %v", i, curve[i], want[i])
		}
	}

	// A bar with no valid price keeps the mark at realized balance.
	agent.MarkBar(0)
	curve = agent.EquityCurve()
	if curve[len(curve)-1] != 1000 {
		t.Errorf("mark at zero price = %v, want 1000", curve[len(curve)-1])
	}
}

func TestAgentResetCycle(t *testing.T) {
	agent := NewAgent("BTCUSDT", 1000)
	now := time.Now()

	if err := agent.Open(models.Long, 5, 100, now); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	agent.MarkBar(80) // 10% drawdown
	if _, err := agent.Close(80, now, "cycle_end"); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	agent.ResetCycle()

	if agent.Balance() != 1000 {
		t.Errorf("Balance() after reset = %v, want 1000", agent.Balance())
	}
	if agent.HasPosition() {
		t.Error("HasPosition() = true after reset")
	}
	if len(agent.Trades()) != 1 {
		t.Errorf("Trades() length = %d, want 1 (history survives resets)", len(agent.Trades()))
	}
	if len(agent.CycleTrades()) != 0 {
		t.Errorf("CycleTrades() length = %d, want 0 after reset", len(agent.CycleTrades()))
	}

	// Second cycle: win one trade, then check the session view.
	if err := agent.Open(models.Long, 1, 100, now); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, err := agent.Close(150, now, "signal_exit"); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	s := agent.SessionStats()
	if s.Trades != 2 {
		t.Errorf("SessionStats().Trades = %d, want 2", s.Trades)
	}
	if math.Abs(s.MaxDrawdownPct-10) > 1e-9 {
		t.Errorf("SessionStats().MaxDrawdownPct = %v, want 10 (worst cycle)", s.MaxDrawdownPct)
	}
	if s.PnL != -100+50 {
		t.Errorf("SessionStats().PnL = %v, want -50", s.PnL)
	}
}
