// Package session implements the training state manager: per-symbol agents,
// cycle lifecycle, and multi-symbol bar synchronization.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/buurguees/bot-trading-v10-sub003/internal/models"
	"github.com/buurguees/bot-trading-v10-sub003/internal/stats"
)

const epsilon = 1e-9

var (
	// ErrPositionOpen is returned when an entry arrives while the agent
	// already holds a position.
	ErrPositionOpen = errors.New("agent already holds a position")
	// ErrNoPosition is returned when an exit arrives with nothing to close.
	ErrNoPosition = errors.New("agent holds no position")
)

type position struct {
	side       models.Side
	qty        float64
	entryPrice float64
	entryTime  time.Time
}

// Agent is the per-symbol simulated trading entity. It tracks a single open
// position, the realized balance for the current cycle, and the cumulative
// trade history for the whole session. Not safe for concurrent use; the
// engine owns it and drives it from one goroutine.
type Agent struct {
	symbol         string
	initialBalance float64

	balance float64
	pos     *position

	trades     []models.TradeRecord // cumulative across cycles
	cycleStart int                  // index into trades where the current cycle began

	equity      []float64 // current-cycle equity curve, marked per bar
	maxDrawdown float64   // worst drawdown over completed cycles
}

// NewAgent creates an agent with its starting bankroll.
func NewAgent(symbol string, initialBalance float64) *Agent {
	return &Agent{
		symbol:         symbol,
		initialBalance: initialBalance,
		balance:        initialBalance,
		equity:         []float64{initialBalance},
	}
}

// Symbol returns the market this agent trades.
func (a *Agent) Symbol() string { return a.symbol }

// Balance returns the current-cycle realized balance.
func (a *Agent) Balance() float64 { return a.balance }

// HasPosition reports whether a position is open.
func (a *Agent) HasPosition() bool { return a.pos != nil }

// EntryPrice returns the open position's entry price, if any.
func (a *Agent) EntryPrice() (float64, bool) {
	if a.pos == nil {
		return 0, false
	}
	return a.pos.entryPrice, true
}

// PositionSide returns the open position's direction, if any.
func (a *Agent) PositionSide() (models.Side, bool) {
	if a.pos == nil {
		return "", false
	}
	return a.pos.side, true
}

// Open enters a position. Longs must be affordable out of the current
// balance; shorts are capped at 1x the balance in notional.
func (a *Agent) Open(side models.Side, qty, price float64, t time.Time) error {
	if a.pos != nil {
		return ErrPositionOpen
	}
	if qty <= 0 {
		return fmt.Errorf("quantity must be positive, got %f", qty)
	}
	if price <= 0 {
		return fmt.Errorf("price must be positive, got %f", price)
	}
	notional := qty * price
	if notional > a.balance+epsilon {
		return fmt.Errorf("notional %.2f exceeds balance %.2f", notional, a.balance)
	}
	a.pos = &position{side: side, qty: qty, entryPrice: price, entryTime: t}
	return nil
}

// Close exits the open position at the given price, realizes the PnL into
// the balance, and records the round trip.
func (a *Agent) Close(price float64, t time.Time, reason string) (models.TradeRecord, error) {
	if a.pos == nil {
		return models.TradeRecord{}, ErrNoPosition
	}
	if price <= 0 {
		return models.TradeRecord{}, fmt.Errorf("price must be positive, got %f", price)
	}
	pnl := (price - a.pos.entryPrice) * a.pos.qty
	if a.pos.side == models.Short {
		pnl = -pnl
	}
	trade := models.TradeRecord{
		Symbol:     a.symbol,
		Side:       a.pos.side,
		Qty:        a.pos.qty,
		EntryPrice: a.pos.entryPrice,
		ExitPrice:  price,
		EntryTime:  a.pos.entryTime,
		ExitTime:   t,
		PnL:        pnl,
		Reason:     reason,
	}
	a.balance += pnl
	a.trades = append(a.trades, trade)
	a.pos = nil
	return trade, nil
}

// MarkBar appends the marked-to-close equity for a processed bar. Zero or
// negative prices never move the mark.
func (a *Agent) MarkBar(closePrice float64) {
	a.equity = append(a.equity, a.equityAt(closePrice))
}

func (a *Agent) equityAt(price float64) float64 {
	eq := a.balance
	if a.pos != nil && price > 0 {
		unrealized := (price - a.pos.entryPrice) * a.pos.qty
		if a.pos.side == models.Short {
			unrealized = -unrealized
		}
		eq += unrealized
	}
	return eq
}

// Equity returns the current marked equity at the given price.
func (a *Agent) Equity(price float64) float64 { return a.equityAt(price) }

// Trades returns the cumulative closed trades for the session.
func (a *Agent) Trades() []models.TradeRecord { return a.trades }

// CycleTrades returns the trades closed during the current cycle.
func (a *Agent) CycleTrades() []models.TradeRecord { return a.trades[a.cycleStart:] }

// EquityCurve returns the current-cycle equity curve.
func (a *Agent) EquityCurve() []float64 { return a.equity }

// ResetCycle folds the finished cycle's drawdown into the session maximum
// and restores the starting bankroll for the next pass. Trade history is
// kept; the cycle marker advances.
func (a *Agent) ResetCycle() {
	if dd := stats.MaxDrawdownPct(a.equity); dd > a.maxDrawdown {
		a.maxDrawdown = dd
	}
	a.balance = a.initialBalance
	a.pos = nil
	a.equity = []float64{a.initialBalance}
	a.cycleStart = len(a.trades)
}

// SessionStats builds this agent's per-symbol breakdown row over the whole
// session: all cycles' trades, worst cycle drawdown.
func (a *Agent) SessionStats() models.SymbolStats {
	maxDD := a.maxDrawdown
	if dd := stats.MaxDrawdownPct(a.equity); dd > maxDD {
		maxDD = dd
	}
	s := stats.ComputeSymbol(a.symbol, a.initialBalance, a.trades, a.equity)
	s.MaxDrawdownPct = maxDD
	return s
}
