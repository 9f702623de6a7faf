// Package storage persists finished training sessions. Postgres holds the
// structured summaries; Influx receives the raw equity curves.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/buurguees/bot-trading-v10-sub003/internal/models"
)

// DB wraps the session database connection.
type DB struct {
	*sql.DB
}

// ConnectionParams holds PostgreSQL connection parameters.
type ConnectionParams struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// New opens the database and creates the session tables if needed.
func New(params ConnectionParams) (*DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		params.Host, params.Port, params.User, params.Password, params.DBName, params.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	if err := createTables(db); err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS training_sessions (
			run_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			mode TEXT NOT NULL,
			started_at TIMESTAMP NOT NULL,
			duration_ms BIGINT NOT NULL,
			symbols TEXT NOT NULL,
			interval TEXT NOT NULL,
			initial_balance DOUBLE PRECISION NOT NULL,
			cycles INT NOT NULL,
			mean_pnl DOUBLE PRECISION NOT NULL,
			mean_pnl_pct DOUBLE PRECISION NOT NULL,
			win_rate DOUBLE PRECISION NOT NULL,
			total_trades INT NOT NULL,
			winning_trades INT NOT NULL,
			losing_trades INT NOT NULL,
			max_drawdown_pct DOUBLE PRECISION NOT NULL,
			cycle_mean_pnl DOUBLE PRECISION,
			cycle_mean_win_rate DOUBLE PRECISION,
			cycle_mean_drawdown_pct DOUBLE PRECISION,
			cycle_mean_trades DOUBLE PRECISION,
			cycle_long_trades INT,
			cycle_short_trades INT,
			cycle_mean_bar_ms BIGINT,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS session_symbols (
			run_id TEXT NOT NULL REFERENCES training_sessions(run_id) ON DELETE CASCADE,
			symbol TEXT NOT NULL,
			pnl DOUBLE PRECISION NOT NULL,
			pnl_pct DOUBLE PRECISION NOT NULL,
			trades INT NOT NULL,
			win_rate DOUBLE PRECISION NOT NULL,
			max_drawdown_pct DOUBLE PRECISION NOT NULL,
			long_trades INT NOT NULL,
			short_trades INT NOT NULL,
			PRIMARY KEY (run_id, symbol)
		)
	`)
	return err
}

// SaveSummary upserts a finished session and its per-symbol rows.
func (db *DB) SaveSummary(s *models.SessionSummary) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var (
		cMeanPnL, cMeanWR, cMeanDD, cMeanTrades sql.NullFloat64
		cLong, cShort, cBarMs                   sql.NullInt64
	)
	if c := s.CycleAgg; c != nil {
		cMeanPnL = sql.NullFloat64{Float64: c.MeanPnL, Valid: true}
		cMeanWR = sql.NullFloat64{Float64: c.MeanWinRate, Valid: true}
		cMeanDD = sql.NullFloat64{Float64: c.MeanDrawdownPct, Valid: true}
		cMeanTrades = sql.NullFloat64{Float64: c.MeanTrades, Valid: true}
		cLong = sql.NullInt64{Int64: int64(c.LongTrades), Valid: true}
		cShort = sql.NullInt64{Int64: int64(c.ShortTrades), Valid: true}
		cBarMs = sql.NullInt64{Int64: c.MeanBarDuration.Milliseconds(), Valid: true}
	}

	_, err = tx.Exec(`
		INSERT INTO training_sessions (
			run_id, session_id, mode, started_at, duration_ms, symbols, interval,
			initial_balance, cycles, mean_pnl, mean_pnl_pct, win_rate,
			total_trades, winning_trades, losing_trades, max_drawdown_pct,
			cycle_mean_pnl, cycle_mean_win_rate, cycle_mean_drawdown_pct,
			cycle_mean_trades, cycle_long_trades, cycle_short_trades, cycle_mean_bar_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23)
		ON CONFLICT (run_id)
		DO UPDATE SET
			session_id = EXCLUDED.session_id,
			mode = EXCLUDED.mode,
			started_at = EXCLUDED.started_at,
			duration_ms = EXCLUDED.duration_ms,
			symbols = EXCLUDED.symbols,
			interval = EXCLUDED.interval,
			initial_balance = EXCLUDED.initial_balance,
			cycles = EXCLUDED.cycles,
			mean_pnl = EXCLUDED.mean_pnl,
			mean_pnl_pct = EXCLUDED.mean_pnl_pct,
			win_rate = EXCLUDED.win_rate,
			total_trades = EXCLUDED.total_trades,
			winning_trades = EXCLUDED.winning_trades,
			losing_trades = EXCLUDED.losing_trades,
			max_drawdown_pct = EXCLUDED.max_drawdown_pct,
			cycle_mean_pnl = EXCLUDED.cycle_mean_pnl,
			cycle_mean_win_rate = EXCLUDED.cycle_mean_win_rate,
			cycle_mean_drawdown_pct = EXCLUDED.cycle_mean_drawdown_pct,
			cycle_mean_trades = EXCLUDED.cycle_mean_trades,
			cycle_long_trades = EXCLUDED.cycle_long_trades,
			cycle_short_trades = EXCLUDED.cycle_short_trades,
			cycle_mean_bar_ms = EXCLUDED.cycle_mean_bar_ms
	`,
		s.RunID, s.ID, string(s.Mode), s.StartedAt.UTC(), s.Duration.Milliseconds(),
		strings.Join(s.Symbols, ","), s.Interval, s.InitialBalance, s.Cycles,
		s.Aggregate.MeanPnL, s.Aggregate.MeanPnLPct, s.Aggregate.WinRate,
		s.Aggregate.TotalTrades, s.Aggregate.WinningTrades, s.Aggregate.LosingTrades,
		s.Aggregate.MaxDrawdownPct,
		cMeanPnL, cMeanWR, cMeanDD, cMeanTrades, cLong, cShort, cBarMs)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM session_symbols WHERE run_id = $1`, s.RunID); err != nil {
		return err
	}
	for _, sym := range s.PerSymbol {
		_, err := tx.Exec(`
			INSERT INTO session_symbols (
				run_id, symbol, pnl, pnl_pct, trades, win_rate,
				max_drawdown_pct, long_trades, short_trades
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			s.RunID, sym.Symbol, sym.PnL, sym.PnLPct, sym.Trades, sym.WinRate,
			sym.MaxDrawdownPct, sym.LongTrades, sym.ShortTrades)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetSummary loads one session by run id, per-symbol rows included.
// Returns nil when the run is unknown.
func (db *DB) GetSummary(runID string) (*models.SessionSummary, error) {
	var (
		s          models.SessionSummary
		mode       string
		symbols    string
		durationMs int64

		cMeanPnL, cMeanWR, cMeanDD, cMeanTrades sql.NullFloat64
		cLong, cShort, cBarMs                   sql.NullInt64
	)
	err := db.QueryRow(`
		SELECT
			run_id, session_id, mode, started_at, duration_ms, symbols, interval,
			initial_balance, cycles, mean_pnl, mean_pnl_pct, win_rate,
			total_trades, winning_trades, losing_trades, max_drawdown_pct,
			cycle_mean_pnl, cycle_mean_win_rate, cycle_mean_drawdown_pct,
			cycle_mean_trades, cycle_long_trades, cycle_short_trades, cycle_mean_bar_ms
		FROM training_sessions
		WHERE run_id = $1
	`, runID).Scan(
		&s.RunID, &s.ID, &mode, &s.StartedAt, &durationMs, &symbols, &s.Interval,
		&s.InitialBalance, &s.Cycles, &s.Aggregate.MeanPnL, &s.Aggregate.MeanPnLPct,
		&s.Aggregate.WinRate, &s.Aggregate.TotalTrades, &s.Aggregate.WinningTrades,
		&s.Aggregate.LosingTrades, &s.Aggregate.MaxDrawdownPct,
		&cMeanPnL, &cMeanWR, &cMeanDD, &cMeanTrades, &cLong, &cShort, &cBarMs,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	s.Mode = models.SessionMode(mode)
	s.Duration = time.Duration(durationMs) * time.Millisecond
	if symbols != "" {
		s.Symbols = strings.Split(symbols, ",")
	}
	if cMeanPnL.Valid {
		s.CycleAgg = &models.CycleStats{
			Completed:       s.Cycles,
			MeanPnL:         cMeanPnL.Float64,
			MeanWinRate:     cMeanWR.Float64,
			MeanDrawdownPct: cMeanDD.Float64,
			MeanTrades:      cMeanTrades.Float64,
			LongTrades:      int(cLong.Int64),
			ShortTrades:     int(cShort.Int64),
			MeanBarDuration: time.Duration(cBarMs.Int64) * time.Millisecond,
		}
	}

	rows, err := db.Query(`
		SELECT symbol, pnl, pnl_pct, trades, win_rate, max_drawdown_pct, long_trades, short_trades
		FROM session_symbols
		WHERE run_id = $1
		ORDER BY symbol
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var row models.SymbolStats
		if err := rows.Scan(&row.Symbol, &row.PnL, &row.PnLPct, &row.Trades,
			&row.WinRate, &row.MaxDrawdownPct, &row.LongTrades, &row.ShortTrades); err != nil {
			return nil, err
		}
		s.PerSymbol = append(s.PerSymbol, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &s, nil
}

// ListSessions returns the most recent sessions, newest first, without the
// per-symbol rows.
func (db *DB) ListSessions(limit int) ([]models.SessionSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`
		SELECT
			run_id, session_id, mode, started_at, duration_ms, symbols, interval,
			initial_balance, cycles, mean_pnl, mean_pnl_pct, win_rate,
			total_trades, winning_trades, losing_trades, max_drawdown_pct
		FROM training_sessions
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SessionSummary
	for rows.Next() {
		var (
			s          models.SessionSummary
			mode       string
			symbols    string
			durationMs int64
		)
		if err := rows.Scan(
			&s.RunID, &s.ID, &mode, &s.StartedAt, &durationMs, &symbols, &s.Interval,
			&s.InitialBalance, &s.Cycles, &s.Aggregate.MeanPnL, &s.Aggregate.MeanPnLPct,
			&s.Aggregate.WinRate, &s.Aggregate.TotalTrades, &s.Aggregate.WinningTrades,
			&s.Aggregate.LosingTrades, &s.Aggregate.MaxDrawdownPct,
		); err != nil {
			return nil, err
		}
		s.Mode = models.SessionMode(mode)
		s.Duration = time.Duration(durationMs) * time.Millisecond
		if symbols != "" {
			s.Symbols = strings.Split(symbols, ",")
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
