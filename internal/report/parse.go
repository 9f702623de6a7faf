package report

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/buurguees/bot-trading-v10-sub003/internal/models"
)

// ParseFile reads a summary markdown file back into its structured form.
func ParseFile(path string) (*models.SessionSummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open report: %w", err)
	}
	defer f.Close()
	s, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes one executive-summary document. Files written by older runs
// may carry nan/inf values; those parse successfully and are left for the
// caller to detect via Corrupted.
func Parse(r io.Reader) (*models.SessionSummary, error) {
	s := &models.SessionSummary{}
	section := ""
	sawHeader := false

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "## "):
			section = strings.TrimPrefix(line, "## ")
			continue
		case strings.HasPrefix(line, "# "):
			sawHeader = true
			continue
		}

		switch section {
		case "":
			if key, value, ok := splitKV(line); ok {
				if err := applyHeaderField(s, key, value); err != nil {
					return nil, err
				}
			}
		case "Aggregate Results":
			if key, value, ok := splitKV(line); ok {
				if err := applyAggregateField(&s.Aggregate, key, value); err != nil {
					return nil, err
				}
			}
		case "Per-Symbol Breakdown":
			if strings.HasPrefix(line, "|") {
				row, ok, err := parseSymbolRow(line)
				if err != nil {
					return nil, err
				}
				if ok {
					s.PerSymbol = append(s.PerSymbol, row)
				}
			}
		case "Cycle Aggregates":
			if key, value, ok := splitKV(line); ok {
				if s.CycleAgg == nil {
					s.CycleAgg = &models.CycleStats{}
				}
				if err := applyCycleField(s.CycleAgg, key, value); err != nil {
					return nil, err
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	if !sawHeader || s.ID == "" {
		return nil, fmt.Errorf("not a session summary document")
	}
	return s, nil
}

// splitKV takes a "- **Key**: value" line apart.
func splitKV(line string) (key, value string, ok bool) {
	if !strings.HasPrefix(line, "- **") {
		return "", "", false
	}
	rest := strings.TrimPrefix(line, "- **")
	idx := strings.Index(rest, "**:")
	if idx < 0 {
		return "", "", false
	}
	return rest[:idx], strings.TrimSpace(rest[idx+len("**:"):]), true
}

func applyHeaderField(s *models.SessionSummary, key, value string) error {
	var err error
	switch key {
	case "Session ID":
		s.ID = value
	case "Run ID":
		s.RunID = value
	case "Mode":
		s.Mode = models.SessionMode(value)
	case "Started":
		s.StartedAt, err = time.Parse(timeLayout, value)
	case "Duration":
		s.Duration, err = time.ParseDuration(value)
	case "Symbols":
		if value != "" {
			s.Symbols = strings.Split(value, ", ")
		}
	case "Interval":
		s.Interval = value
	case "Initial Balance":
		s.InitialBalance, err = parseNumber(strings.TrimSuffix(value, " per agent"))
	case "Cycles":
		s.Cycles, err = strconv.Atoi(value)
	}
	if err != nil {
		return fmt.Errorf("bad %q value %q: %w", key, value, err)
	}
	return nil
}

func applyAggregateField(agg *models.AggregateStats, key, value string) error {
	switch key {
	case "Mean PnL":
		money, pct, err := parseMoneyWithPct(value)
		if err != nil {
			return fmt.Errorf("bad %q value %q: %w", key, value, err)
		}
		agg.MeanPnL, agg.MeanPnLPct = money, pct
	case "Win Rate":
		first, _, _ := strings.Cut(value, " ")
		pct, err := parseNumber(first)
		if err != nil {
			return fmt.Errorf("bad %q value %q: %w", key, value, err)
		}
		agg.WinRate = pct
	case "Total Trades":
		if _, err := fmt.Sscanf(value, "%d (%d winning / %d losing)",
			&agg.TotalTrades, &agg.WinningTrades, &agg.LosingTrades); err != nil {
			return fmt.Errorf("bad %q value %q: %w", key, value, err)
		}
	case "Max Drawdown":
		pct, err := parseNumber(value)
		if err != nil {
			return fmt.Errorf("bad %q value %q: %w", key, value, err)
		}
		agg.MaxDrawdownPct = pct
	}
	return nil
}

func applyCycleField(c *models.CycleStats, key, value string) error {
	var err error
	switch key {
	case "Cycles Completed":
		c.Completed, err = strconv.Atoi(value)
	case "Mean PnL per Cycle":
		c.MeanPnL, err = parseNumber(value)
	case "Mean Win Rate per Cycle":
		c.MeanWinRate, err = parseNumber(value)
	case "Mean Drawdown per Cycle":
		c.MeanDrawdownPct, err = parseNumber(value)
	case "Mean Trades per Cycle":
		c.MeanTrades, err = parseNumber(value)
	case "Long/Short Totals":
		_, err = fmt.Sscanf(value, "%d/%d", &c.LongTrades, &c.ShortTrades)
	case "Mean Bar Duration":
		c.MeanBarDuration, err = time.ParseDuration(value)
	}
	if err != nil {
		return fmt.Errorf("bad %q value %q: %w", key, value, err)
	}
	return nil
}

// parseSymbolRow decodes one table row. Header and separator rows return
// ok=false.
func parseSymbolRow(line string) (models.SymbolStats, bool, error) {
	fields := strings.Split(strings.Trim(line, "|"), "|")
	if len(fields) != 7 {
		return models.SymbolStats{}, false, nil
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	if fields[0] == "Symbol" || strings.HasPrefix(fields[0], "---") {
		return models.SymbolStats{}, false, nil
	}

	row := models.SymbolStats{Symbol: fields[0]}
	var err error
	if row.PnL, err = parseNumber(fields[1]); err != nil {
		return row, false, fmt.Errorf("bad PnL %q: %w", fields[1], err)
	}
	if row.PnLPct, err = parseNumber(fields[2]); err != nil {
		return row, false, fmt.Errorf("bad PnL%% %q: %w", fields[2], err)
	}
	if row.Trades, err = strconv.Atoi(fields[3]); err != nil {
		return row, false, fmt.Errorf("bad trade count %q: %w", fields[3], err)
	}
	if row.WinRate, err = parseNumber(fields[4]); err != nil {
		return row, false, fmt.Errorf("bad win rate %q: %w", fields[4], err)
	}
	if row.MaxDrawdownPct, err = parseNumber(fields[5]); err != nil {
		return row, false, fmt.Errorf("bad drawdown %q: %w", fields[5], err)
	}
	if _, err = fmt.Sscanf(fields[6], "%d/%d", &row.LongTrades, &row.ShortTrades); err != nil {
		return row, false, fmt.Errorf("bad long/short split %q: %w", fields[6], err)
	}
	return row, true, nil
}

// parseMoneyWithPct handles "$+12.34 (+1.23%)" shaped values.
func parseMoneyWithPct(value string) (money, pct float64, err error) {
	moneyPart, pctPart, found := strings.Cut(value, " (")
	if !found {
		return 0, 0, fmt.Errorf("missing percent part")
	}
	if money, err = parseNumber(moneyPart); err != nil {
		return 0, 0, err
	}
	pctPart = strings.TrimSuffix(pctPart, ")")
	if pct, err = parseNumber(pctPart); err != nil {
		return 0, 0, err
	}
	return money, pct, nil
}

// parseNumber reads a float after stripping currency/percent decoration.
// Legacy reports render NaN with an explicit sign ("$+nan"), which
// strconv.ParseFloat rejects, so that spelling gets special-cased.
func parseNumber(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, ",", "")
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, nil
	}
	if trimmed := strings.TrimLeft(s, "+-"); strings.EqualFold(trimmed, "nan") {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	return v, err
}
