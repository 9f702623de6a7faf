package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/buurguees/bot-trading-v10-sub003/internal/stats"
)

// SessionRef points at one report file with its headline number.
type SessionRef struct {
	ID      string
	Path    string
	MeanPnL float64
}

// FleetSymbol aggregates one symbol across every clean session that traded it.
type FleetSymbol struct {
	Symbol      string
	Sessions    int
	MeanPnL     float64
	MeanWinRate float64
	TotalTrades int
}

// Overview is the cross-run view over a reports directory.
type Overview struct {
	Sessions    int      // clean sessions aggregated
	Corrupted   []string // files with nan/inf values, excluded from averages
	Invalid     []string // files that did not parse as summaries
	MeanPnL     float64
	MeanWinRate float64
	TotalTrades int
	Best        *SessionRef
	Worst       *SessionRef
	PerSymbol   []FleetSymbol
}

// ScanDir parses every executive summary under dir and folds the clean ones
// into a fleet overview. Corrupted files (legacy nan/inf output) are listed
// but never averaged; unparseable files are listed separately.
func ScanDir(dir string) (*Overview, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read reports dir: %w", err)
	}

	logger := log.With().Str("component", "fleet").Logger()
	ov := &Overview{}
	var pnlSum, wrSum float64
	type symAcc struct {
		sessions    int
		pnlSum      float64
		wrSum       float64
		totalTrades int
	}
	symbols := make(map[string]*symAcc)

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileExt) {
			continue
		}
		path := filepath.Join(dir, name)
		s, err := ParseFile(path)
		if err != nil {
			logger.Warn().Err(err).Str("file", name).Msg("skipping unparseable report")
			ov.Invalid = append(ov.Invalid, name)
			continue
		}
		if s.Corrupted() {
			logger.Warn().Str("file", name).Msg("quarantining corrupted report")
			ov.Corrupted = append(ov.Corrupted, name)
			continue
		}

		ov.Sessions++
		pnlSum += s.Aggregate.MeanPnL
		wrSum += s.Aggregate.WinRate
		ov.TotalTrades += s.Aggregate.TotalTrades

		ref := &SessionRef{ID: s.ID, Path: path, MeanPnL: s.Aggregate.MeanPnL}
		if ov.Best == nil || ref.MeanPnL > ov.Best.MeanPnL {
			ov.Best = ref
		}
		if ov.Worst == nil || ref.MeanPnL < ov.Worst.MeanPnL {
			ov.Worst = ref
		}

		for _, row := range s.PerSymbol {
			acc := symbols[row.Symbol]
			if acc == nil {
				acc = &symAcc{}
				symbols[row.Symbol] = acc
			}
			acc.sessions++
			acc.pnlSum += row.PnL
			acc.wrSum += row.WinRate
			acc.totalTrades += row.Trades
		}
	}

	ov.MeanPnL = stats.SafeDiv(pnlSum, float64(ov.Sessions))
	ov.MeanWinRate = stats.SafeDiv(wrSum, float64(ov.Sessions))

	for symbol, acc := range symbols {
		ov.PerSymbol = append(ov.PerSymbol, FleetSymbol{
			Symbol:      symbol,
			Sessions:    acc.sessions,
			MeanPnL:     stats.SafeDiv(acc.pnlSum, float64(acc.sessions)),
			MeanWinRate: stats.SafeDiv(acc.wrSum, float64(acc.sessions)),
			TotalTrades: acc.totalTrades,
		})
	}
	sort.Slice(ov.PerSymbol, func(i, j int) bool {
		return ov.PerSymbol[i].Symbol < ov.PerSymbol[j].Symbol
	})
	sort.Strings(ov.Corrupted)
	sort.Strings(ov.Invalid)
	return ov, nil
}

// Render formats the overview for terminal output.
func (ov *Overview) Render() string {
	var b strings.Builder
	b.WriteString("Fleet Overview\n")
	b.WriteString(fmt.Sprintf("  Sessions:      %d clean", ov.Sessions))
	if n := len(ov.Corrupted); n > 0 {
		b.WriteString(fmt.Sprintf(", %d corrupted", n))
	}
	if n := len(ov.Invalid); n > 0 {
		b.WriteString(fmt.Sprintf(", %d invalid", n))
	}
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  Mean PnL:      $%+.2f\n", ov.MeanPnL))
	b.WriteString(fmt.Sprintf("  Mean Win Rate: %.2f%%\n", ov.MeanWinRate))
	b.WriteString(fmt.Sprintf("  Total Trades:  %d\n", ov.TotalTrades))
	if ov.Best != nil {
		b.WriteString(fmt.Sprintf("  Best Session:  %s ($%+.2f)\n", ov.Best.ID, ov.Best.MeanPnL))
	}
	if ov.Worst != nil {
		b.WriteString(fmt.Sprintf("  Worst Session: %s ($%+.2f)\n", ov.Worst.ID, ov.Worst.MeanPnL))
	}

	if len(ov.PerSymbol) > 0 {
		b.WriteString("\n  Symbol        Sessions  Mean PnL    Mean WR   Trades\n")
		for _, row := range ov.PerSymbol {
			b.WriteString(fmt.Sprintf("  %-12s  %8d  %+9.2f  %7.2f%%  %6d\n",
				row.Symbol, row.Sessions, row.MeanPnL, row.MeanWinRate, row.TotalTrades))
		}
	}

	for _, name := range ov.Corrupted {
		b.WriteString(fmt.Sprintf("\n  corrupted: %s", name))
	}
	for _, name := range ov.Invalid {
		b.WriteString(fmt.Sprintf("\n  invalid:   %s", name))
	}
	if len(ov.Corrupted)+len(ov.Invalid) > 0 {
		b.WriteString("\n")
	}
	return b.String()
}
