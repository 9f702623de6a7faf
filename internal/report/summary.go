// Package report renders training-session executive summaries as markdown
// and parses existing summary files back into their structured form.
//
// The on-disk format is the external interface of the training pipeline:
// downstream tooling (and humans) consume the reports directory, so the
// writer keeps a fixed layout and the reader accepts every file the writer
// has ever produced, including files from runs that predate the guarded
// division in the stats package and therefore carry nan/inf tokens.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/buurguees/bot-trading-v10-sub003/internal/models"
)

const (
	filePrefix = "executive_summary_"
	fileExt    = ".md"

	timeLayout = "2006-01-02 15:04:05 MST"
)

// Filename returns the report filename for a session id.
func Filename(sessionID string) string {
	return filePrefix + sessionID + fileExt
}

// Render produces the full markdown document for a session summary.
func Render(s *models.SessionSummary) string {
	var b strings.Builder

	b.WriteString("# Training Session Executive Summary\n\n")
	b.WriteString(fmt.Sprintf("- **Session ID**: %s\n", s.ID))
	b.WriteString(fmt.Sprintf("- **Run ID**: %s\n", s.RunID))
	b.WriteString(fmt.Sprintf("- **Mode**: %s\n", s.Mode))
	b.WriteString(fmt.Sprintf("- **Started**: %s\n", s.StartedAt.UTC().Format(timeLayout)))
	b.WriteString(fmt.Sprintf("- **Duration**: %s\n", s.Duration))
	b.WriteString(fmt.Sprintf("- **Symbols**: %s\n", strings.Join(s.Symbols, ", ")))
	b.WriteString(fmt.Sprintf("- **Interval**: %s\n", s.Interval))
	b.WriteString(fmt.Sprintf("- **Initial Balance**: $%.2f per agent\n", s.InitialBalance))
	b.WriteString(fmt.Sprintf("- **Cycles**: %d\n", s.Cycles))

	b.WriteString("\n## Aggregate Results\n\n")
	agg := s.Aggregate
	b.WriteString(fmt.Sprintf("- **Mean PnL**: $%+.2f (%+.2f%%)\n", agg.MeanPnL, agg.MeanPnLPct))
	b.WriteString(fmt.Sprintf("- **Win Rate**: %.2f%% (%d/%d profitable)\n",
		agg.WinRate, agg.WinningTrades, agg.TotalTrades))
	b.WriteString(fmt.Sprintf("- **Total Trades**: %d (%d winning / %d losing)\n",
		agg.TotalTrades, agg.WinningTrades, agg.LosingTrades))
	b.WriteString(fmt.Sprintf("- **Max Drawdown**: %.2f%%\n", agg.MaxDrawdownPct))

	b.WriteString("\n## Per-Symbol Breakdown\n\n")
	b.WriteString("| Symbol | PnL ($) | PnL (%) | Trades | Win Rate | Max DD | Long/Short |\n")
	b.WriteString("|--------|---------|---------|--------|----------|--------|------------|\n")
	for _, sym := range s.PerSymbol {
		b.WriteString(fmt.Sprintf("| %s | %+.2f | %+.2f%% | %d | %.2f%% | %.2f%% | %d/%d |\n",
			sym.Symbol, sym.PnL, sym.PnLPct, sym.Trades,
			sym.WinRate, sym.MaxDrawdownPct, sym.LongTrades, sym.ShortTrades))
	}

	if s.CycleAgg != nil {
		c := s.CycleAgg
		b.WriteString("\n## Cycle Aggregates\n\n")
		b.WriteString(fmt.Sprintf("- **Cycles Completed**: %d\n", c.Completed))
		b.WriteString(fmt.Sprintf("- **Mean PnL per Cycle**: $%+.2f\n", c.MeanPnL))
		b.WriteString(fmt.Sprintf("- **Mean Win Rate per Cycle**: %.2f%%\n", c.MeanWinRate))
		b.WriteString(fmt.Sprintf("- **Mean Drawdown per Cycle**: %.2f%%\n", c.MeanDrawdownPct))
		b.WriteString(fmt.Sprintf("- **Mean Trades per Cycle**: %.1f\n", c.MeanTrades))
		b.WriteString(fmt.Sprintf("- **Long/Short Totals**: %d/%d\n", c.LongTrades, c.ShortTrades))
		b.WriteString(fmt.Sprintf("- **Mean Bar Duration**: %s\n", c.MeanBarDuration))
	}

	b.WriteString("\n## Next Steps\n\n")
	b.WriteString("- Review per-symbol results and adjust strategy parameters for the weakest symbols.\n")
	b.WriteString("- Extend the historical window or cycle count for more robust aggregates.\n")
	b.WriteString("- Promote the configuration to a live paper session once results hold up across runs.\n")

	return b.String()
}

// WriteFile renders the summary into dir and returns the written path.
// The filename is deterministic per session id so repeated writes of the
// same session overwrite rather than accumulate.
func WriteFile(dir string, s *models.SessionSummary) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create reports dir: %w", err)
	}
	path := filepath.Join(dir, Filename(s.ID))
	if err := os.WriteFile(path, []byte(Render(s)), 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}
