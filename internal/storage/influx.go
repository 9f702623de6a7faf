package storage

import (
	"fmt"
	"time"

	client "github.com/influxdata/influxdb1-client/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/buurguees/bot-trading-v10-sub003/internal/models"
)

// EquitySink pushes session results and per-agent equity curves to InfluxDB.
type EquitySink struct {
	client   client.Client
	database string
	logger   zerolog.Logger
}

// NewEquitySink connects to an InfluxDB 1.x endpoint.
func NewEquitySink(addr, username, password, database string) (*EquitySink, error) {
	c, err := client.NewHTTPClient(client.HTTPConfig{
		Addr:     addr,
		Username: username,
		Password: password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create influx client: %w", err)
	}
	return &EquitySink{
		client:   c,
		database: database,
		logger:   log.With().Str("component", "influx").Logger(),
	}, nil
}

// WriteResult records one summary point for the session.
func (s *EquitySink) WriteResult(summary *models.SessionSummary) error {
	bp, err := client.NewBatchPoints(client.BatchPointsConfig{
		Database:  s.database,
		Precision: "ms",
	})
	if err != nil {
		return fmt.Errorf("failed to create batch points: %w", err)
	}

	tags := map[string]string{
		"run_id":     summary.RunID,
		"session_id": summary.ID,
		"mode":       string(summary.Mode),
	}
	fields := map[string]interface{}{
		"mean_pnl":         summary.Aggregate.MeanPnL,
		"mean_pnl_pct":     summary.Aggregate.MeanPnLPct,
		"win_rate":         summary.Aggregate.WinRate,
		"total_trades":     summary.Aggregate.TotalTrades,
		"max_drawdown_pct": summary.Aggregate.MaxDrawdownPct,
		"cycles":           summary.Cycles,
	}
	pt, err := client.NewPoint("training_result", tags, fields, summary.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to create result point: %w", err)
	}
	bp.AddPoint(pt)

	if err := s.client.Write(bp); err != nil {
		return fmt.Errorf("failed to write result point: %w", err)
	}
	s.logger.Debug().Str("run_id", summary.RunID).Msg("wrote session result")
	return nil
}

// WriteEquity records one agent's equity curve. The tail of equity is
// aligned with timestamps; extra leading values (the pre-bar initial
// balance) are skipped.
func (s *EquitySink) WriteEquity(runID, sessionID, symbol string, equity []float64, timestamps []int64) error {
	if len(equity) == 0 || len(timestamps) == 0 {
		return nil
	}

	bp, err := client.NewBatchPoints(client.BatchPointsConfig{
		Database:  s.database,
		Precision: "ms",
	})
	if err != nil {
		return fmt.Errorf("failed to create batch points: %w", err)
	}

	tags := map[string]string{
		"run_id":     runID,
		"session_id": sessionID,
		"symbol":     symbol,
	}

	// Align the tail of the curve with the timestamps we have.
	offset := len(equity) - len(timestamps)
	if offset < 0 {
		timestamps = timestamps[-offset:]
		offset = 0
	}
	for i := offset; i < len(equity); i++ {
		pt, err := client.NewPoint(
			"agent_equity",
			tags,
			map[string]interface{}{"equity": equity[i]},
			time.UnixMilli(timestamps[i-offset]),
		)
		if err != nil {
			return fmt.Errorf("failed to create equity point: %w", err)
		}
		bp.AddPoint(pt)
	}

	if err := s.client.Write(bp); err != nil {
		return fmt.Errorf("failed to write equity points: %w", err)
	}
	s.logger.Debug().Str("symbol", symbol).Int("points", len(equity)-offset).Msg("wrote equity curve")
	return nil
}

// Close releases the underlying HTTP client.
func (s *EquitySink) Close() error {
	return s.client.Close()
}
