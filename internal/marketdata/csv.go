package marketdata

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/gocarina/gocsv"

	"github.com/buurguees/bot-trading-v10-sub003/internal/models"
)

// Store is the on-disk candle store: one CSV per symbol and interval,
// written by the fetch CLI and replayed by the historical engine.
type Store struct {
	dir string
}

// NewStore points the store at a directory.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the CSV file for a symbol/interval pair.
func (s *Store) Path(symbol, interval string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s.csv", symbol, interval))
}

// Load reads and time-sorts the candles for a symbol. A symbol with no
// file yet loads as an empty series, not an error.
func (s *Store) Load(symbol, interval string) ([]models.Candle, error) {
	path := s.Path(symbol, interval)
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open candle file: %w", err)
	}
	defer file.Close()

	var candles []models.Candle
	if err := gocsv.UnmarshalFile(file, &candles); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Timestamp < candles[j].Timestamp
	})
	return candles, nil
}

// Save writes candles for a symbol, replacing any existing file.
func (s *Store) Save(symbol, interval string, candles []models.Candle) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	path := s.Path(symbol, interval)
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create candle file: %w", err)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&candles, file); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return nil
}

// Update merges fresh candles into a symbol's file, last write winning on
// duplicate timestamps, and returns the stored total.
func (s *Store) Update(symbol, interval string, fresh []models.Candle) (int, error) {
	existing, err := s.Load(symbol, interval)
	if err != nil {
		return 0, err
	}
	byTime := make(map[int64]models.Candle, len(existing)+len(fresh))
	for _, c := range existing {
		byTime[c.Timestamp] = c
	}
	for _, c := range fresh {
		byTime[c.Timestamp] = c
	}
	merged := make([]models.Candle, 0, len(byTime))
	for _, c := range byTime {
		merged = append(merged, c)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	if err := s.Save(symbol, interval, merged); err != nil {
		return 0, err
	}
	return len(merged), nil
}

// LoadAll loads every configured symbol, keyed by symbol name.
func (s *Store) LoadAll(symbols []string, interval string) (map[string][]models.Candle, error) {
	series := make(map[string][]models.Candle, len(symbols))
	for _, symbol := range symbols {
		candles, err := s.Load(symbol, interval)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", symbol, err)
		}
		series[symbol] = candles
	}
	return series, nil
}
