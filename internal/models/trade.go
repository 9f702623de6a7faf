package models

import "time"

// Side marks the direction of a closed trade.
type Side string

const (
	Long  Side = "LONG"
	Short Side = "SHORT"
)

// TradeRecord is one closed round trip of a per-symbol agent.
type TradeRecord struct {
	Symbol     string    `json:"symbol"`
	Side       Side      `json:"side"`
	Qty        float64   `json:"qty"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	EntryTime  time.Time `json:"entry_time"`
	ExitTime   time.Time `json:"exit_time"`
	PnL        float64   `json:"pnl"`
	Reason     string    `json:"reason,omitempty"`
}

// Duration returns how long the position was held.
func (t TradeRecord) Duration() time.Duration {
	return t.ExitTime.Sub(t.EntryTime)
}

// Won reports whether the trade closed profitably.
func (t TradeRecord) Won() bool {
	return t.PnL > 0
}
