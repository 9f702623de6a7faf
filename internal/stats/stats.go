// Package stats computes session performance metrics. Every ratio in here
// goes through guarded division: the legacy reports were full of
// `$+nan` / `inf%` rows produced by dividing on zero-trade or zero-balance
// sessions, and none of that may survive into new output.
package stats

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/buurguees/bot-trading-v10-sub003/internal/models"
)

// SafeDiv returns num/den, or 0 when the denominator is zero or either
// operand is not finite.
func SafeDiv(num, den float64) float64 {
	if den == 0 || math.IsNaN(den) || math.IsInf(den, 0) || math.IsNaN(num) || math.IsInf(num, 0) {
		return 0
	}
	return num / den
}

// SafePct returns 100*part/whole with the same guarantees as SafeDiv.
func SafePct(part, whole float64) float64 {
	return SafeDiv(part, whole) * 100
}

// MaxDrawdownPct walks an equity curve and returns the largest
// peak-to-trough decline as a positive percentage of the peak.
func MaxDrawdownPct(equity []float64) float64 {
	if len(equity) == 0 {
		return 0
	}
	peak := equity[0]
	maxDD := 0.0
	for _, v := range equity {
		if v > peak {
			peak = v
		}
		dd := SafePct(peak-v, peak)
		if dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// ProfitFactor is gross profit over gross loss across closed trades. A run
// with no losing trades returns the gross profit itself, keeping the value
// finite.
func ProfitFactor(trades []models.TradeRecord) float64 {
	var profit, loss float64
	for _, t := range trades {
		if t.PnL > 0 {
			profit += t.PnL
		} else {
			loss -= t.PnL
		}
	}
	if loss == 0 {
		return profit
	}
	return profit / loss
}

// SharpeRatio computes an annualized Sharpe over the per-step returns of an
// equity curve. periodsPerYear depends on the bar interval (e.g. 365*24 for
// hourly bars). Returns 0 when the curve is too short or flat.
func SharpeRatio(equity []float64, periodsPerYear float64) float64 {
	if len(equity) < 3 {
		return 0
	}
	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		returns = append(returns, SafeDiv(equity[i]-equity[i-1], equity[i-1]))
	}
	mean, std := stat.MeanStdDev(returns, nil)
	if std == 0 || math.IsNaN(std) {
		return 0
	}
	sharpe := mean / std * math.Sqrt(periodsPerYear)
	if math.IsNaN(sharpe) || math.IsInf(sharpe, 0) {
		return 0
	}
	return sharpe
}

// ComputeSymbol builds the per-symbol breakdown row from an agent's closed
// trades and equity curve.
func ComputeSymbol(symbol string, initialBalance float64, trades []models.TradeRecord, equity []float64) models.SymbolStats {
	s := models.SymbolStats{
		Symbol: symbol,
		Trades: len(trades),
	}
	wins := 0
	for _, t := range trades {
		s.PnL += t.PnL
		if t.Won() {
			wins++
		}
		switch t.Side {
		case models.Long:
			s.LongTrades++
		case models.Short:
			s.ShortTrades++
		}
	}
	s.PnLPct = SafePct(s.PnL, initialBalance)
	s.WinRate = SafePct(float64(wins), float64(len(trades)))
	s.MaxDrawdownPct = MaxDrawdownPct(equity)
	return s
}

// Aggregate folds per-symbol rows into the session-wide block. Mean PnL is
// the mean across agents; the win rate is global over all trades; the
// drawdown is the worst agent's. winning is the exact global count of
// profitable trades (per-symbol rows only carry the rounded rate).
func Aggregate(initialBalance float64, perSymbol []models.SymbolStats, winning int) models.AggregateStats {
	var agg models.AggregateStats
	var pnlSum float64
	for _, s := range perSymbol {
		pnlSum += s.PnL
		agg.TotalTrades += s.Trades
		if s.MaxDrawdownPct > agg.MaxDrawdownPct {
			agg.MaxDrawdownPct = s.MaxDrawdownPct
		}
	}
	agg.WinningTrades = winning
	agg.LosingTrades = agg.TotalTrades - winning
	agg.MeanPnL = SafeDiv(pnlSum, float64(len(perSymbol)))
	agg.MeanPnLPct = SafePct(agg.MeanPnL, initialBalance)
	agg.WinRate = SafePct(float64(winning), float64(agg.TotalTrades))
	return agg
}

// CycleSnapshot captures one cycle's outcome, taken while the numbers are
// still exact (before agents reset for the next pass).
type CycleSnapshot struct {
	PnL         float64 // mean $ PnL across agents for the cycle
	WinRate     float64 // percent
	DrawdownPct float64 // worst agent drawdown in the cycle
	Trades      int
	LongTrades  int
	ShortTrades int
}

// AggregateCycles averages cycle snapshots into the optional report block.
// Returns nil for sessions that ran a single pass.
func AggregateCycles(snaps []CycleSnapshot, meanBarDuration time.Duration) *models.CycleStats {
	if len(snaps) < 2 {
		return nil
	}
	agg := &models.CycleStats{
		Completed:       len(snaps),
		MeanBarDuration: meanBarDuration,
	}
	n := float64(len(snaps))
	var pnl, wr, dd, trades float64
	for _, c := range snaps {
		pnl += c.PnL
		wr += c.WinRate
		dd += c.DrawdownPct
		trades += float64(c.Trades)
		agg.LongTrades += c.LongTrades
		agg.ShortTrades += c.ShortTrades
	}
	agg.MeanPnL = SafeDiv(pnl, n)
	agg.MeanWinRate = SafeDiv(wr, n)
	agg.MeanDrawdownPct = SafeDiv(dd, n)
	agg.MeanTrades = SafeDiv(trades, n)
	return agg
}

// MeanBarDuration averages the gaps between consecutive bar timestamps
// (unix ms). Gaps are whatever the data dictates; missing bars simply make
// the mean longer, which is the honest number.
func MeanBarDuration(timestamps []int64) time.Duration {
	if len(timestamps) < 2 {
		return 0
	}
	var total int64
	var count int64
	for i := 1; i < len(timestamps); i++ {
		delta := timestamps[i] - timestamps[i-1]
		if delta > 0 {
			total += delta
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return time.Duration(total/count) * time.Millisecond
}

// MeanTradeDuration averages holding time across closed trades.
func MeanTradeDuration(trades []models.TradeRecord) time.Duration {
	if len(trades) == 0 {
		return 0
	}
	var total time.Duration
	for _, t := range trades {
		total += t.Duration()
	}
	return total / time.Duration(len(trades))
}
