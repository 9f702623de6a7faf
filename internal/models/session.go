package models

import (
	"math"
	"time"
)

// SessionMode distinguishes historical replay sessions from live paper ones.
type SessionMode string

const (
	ModeHistorical SessionMode = "historical"
	ModeLive       SessionMode = "live"
)

// SessionSummary is the executive-summary record of one training session.
// It is what gets rendered to the reports directory and what the reader
// reconstructs from existing report files.
type SessionSummary struct {
	ID             string        `json:"id"`     // timestamp-based, e.g. 20240812_153012
	RunID          string        `json:"run_id"` // uuid, unique across re-runs within a second
	Mode           SessionMode   `json:"mode"`
	StartedAt      time.Time     `json:"started_at"`
	Duration       time.Duration `json:"duration"`
	Symbols        []string      `json:"symbols"`
	Interval       string        `json:"interval"`
	InitialBalance float64       `json:"initial_balance"` // per agent
	Cycles         int           `json:"cycles"`

	Aggregate AggregateStats `json:"aggregate"`
	PerSymbol []SymbolStats  `json:"per_symbol"`
	CycleAgg  *CycleStats    `json:"cycle_agg,omitempty"`
}

// AggregateStats holds the session-wide numbers shown in the
// "Aggregate Results" block.
type AggregateStats struct {
	MeanPnL        float64 `json:"mean_pnl"`     // mean $ PnL across agents
	MeanPnLPct     float64 `json:"mean_pnl_pct"` // vs initial balance
	WinRate        float64 `json:"win_rate"`     // global, percent
	TotalTrades    int     `json:"total_trades"`
	WinningTrades  int     `json:"winning_trades"`
	LosingTrades   int     `json:"losing_trades"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"` // worst agent drawdown
}

// SymbolStats is one row of the per-symbol breakdown table.
type SymbolStats struct {
	Symbol         string  `json:"symbol"`
	PnL            float64 `json:"pnl"`
	PnLPct         float64 `json:"pnl_pct"`
	Trades         int     `json:"trades"`
	WinRate        float64 `json:"win_rate"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	LongTrades     int     `json:"long_trades"`
	ShortTrades    int     `json:"short_trades"`
}

// CycleStats aggregates the per-cycle snapshots of a multi-cycle session.
// Sessions with a single pass omit the block entirely.
type CycleStats struct {
	Completed       int           `json:"completed"`
	MeanPnL         float64       `json:"mean_pnl"`
	MeanWinRate     float64       `json:"mean_win_rate"`
	MeanDrawdownPct float64       `json:"mean_drawdown_pct"`
	MeanTrades      float64       `json:"mean_trades"`
	LongTrades      int           `json:"long_trades"`
	ShortTrades     int           `json:"short_trades"`
	MeanBarDuration time.Duration `json:"mean_bar_duration"`
}

// Corrupted reports whether any numeric field carries NaN or Inf. Freshly
// computed summaries never do; the flag exists for report files produced by
// older runs with the division-by-zero defect.
func (s *SessionSummary) Corrupted() bool {
	vals := []float64{
		s.InitialBalance,
		s.Aggregate.MeanPnL, s.Aggregate.MeanPnLPct,
		s.Aggregate.WinRate, s.Aggregate.MaxDrawdownPct,
	}
	for _, sym := range s.PerSymbol {
		vals = append(vals, sym.PnL, sym.PnLPct, sym.WinRate, sym.MaxDrawdownPct)
	}
	if s.CycleAgg != nil {
		vals = append(vals,
			s.CycleAgg.MeanPnL, s.CycleAgg.MeanWinRate,
			s.CycleAgg.MeanDrawdownPct, s.CycleAgg.MeanTrades)
	}
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}
