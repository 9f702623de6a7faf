// Package marketdata provides the three candle sources a training session
// can draw from: the exchange REST API, the on-disk CSV store, and the live
// websocket stream.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/buurguees/bot-trading-v10-sub003/internal/models"
	httpClient "github.com/buurguees/bot-trading-v10-sub003/internal/platform/http"
)

const maxKlinesPerRequest = 1000

// Client is the exchange REST client for historical klines.
type Client struct {
	baseURL    string
	httpClient *httpClient.Client
	logger     zerolog.Logger
}

// ClientOptions holds options for creating a new klines client.
type ClientOptions struct {
	BaseURL         string
	RequestTimeout  time.Duration
	RequestsPerSec  int
	MaxRetryTimeout time.Duration
}

// NewClient creates a new klines client.
func NewClient(options ClientOptions) *Client {
	httpOpts := httpClient.ClientOptions{
		Timeout:         options.RequestTimeout,
		RequestsPerSec:  options.RequestsPerSec,
		MaxRetryTimeout: options.MaxRetryTimeout,
	}

	baseURL := options.BaseURL
	if baseURL == "" {
		baseURL = "https://api.binance.com"
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient.NewClient(httpOpts),
		logger:     log.With().Str("component", "klines_client").Logger(),
	}
}

// GetKlines fetches up to maxKlinesPerRequest candles for a symbol starting
// at startTime.
func (c *Client) GetKlines(ctx context.Context, symbol, interval string, startTime time.Time, limit int) ([]models.Candle, error) {
	if limit <= 0 || limit > maxKlinesPerRequest {
		limit = maxKlinesPerRequest
	}
	url := fmt.Sprintf(
		"%s/api/v3/klines?symbol=%s&interval=%s&startTime=%d&limit=%d",
		c.baseURL,
		symbol,
		interval,
		startTime.UnixMilli(),
		limit,
	)

	c.logger.Debug().Str("url", url).Msg("Fetching klines")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.DoRequest(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	candles, err := ParseKlines(body)
	if err != nil {
		c.logger.Error().Err(err).Str("symbol", symbol).Msg("Error parsing klines payload")
		return nil, err
	}

	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Timestamp < candles[j].Timestamp
	})

	c.logger.Debug().Int("count", len(candles)).Str("symbol", symbol).Msg("Fetched klines")
	return candles, nil
}

// GetHistoricalCandles pages through the klines endpoint from start to end.
func (c *Client) GetHistoricalCandles(ctx context.Context, symbol, interval string, start, end time.Time) ([]models.Candle, error) {
	step, err := models.ParseInterval(interval)
	if err != nil {
		return nil, err
	}
	if end.IsZero() {
		end = time.Now().UTC()
	}

	var all []models.Candle
	cursor := start
	for cursor.Before(end) {
		batch, err := c.GetKlines(ctx, symbol, interval, cursor, maxKlinesPerRequest)
		if err != nil {
			return nil, fmt.Errorf("fetching %s %s from %s: %w", symbol, interval, cursor.Format(time.RFC3339), err)
		}
		if len(batch) == 0 {
			break
		}
		for _, candle := range batch {
			if candle.Time().After(end) {
				continue
			}
			all = append(all, candle)
		}
		next := batch[len(batch)-1].Time().Add(step)
		if !next.After(cursor) {
			break
		}
		cursor = next
	}

	if len(all) == 0 {
		return nil, fmt.Errorf("no candles returned for %s %s", symbol, interval)
	}
	return all, nil
}

// ParseKlines decodes the exchange kline payload: an array of arrays where
// prices arrive as strings.
func ParseKlines(body []byte) ([]models.Candle, error) {
	var rows [][]json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("parsing klines JSON: %w", err)
	}

	candles := make([]models.Candle, 0, len(rows))
	for i, row := range rows {
		if len(row) < 6 {
			return nil, fmt.Errorf("kline row %d has %d fields, want at least 6", i, len(row))
		}
		var openTime int64
		if err := json.Unmarshal(row[0], &openTime); err != nil {
			return nil, fmt.Errorf("kline row %d open time: %w", i, err)
		}
		candle := models.Candle{Timestamp: openTime}
		fields := []*float64{&candle.Open, &candle.High, &candle.Low, &candle.Close, &candle.Volume}
		for j, dst := range fields {
			var s string
			if err := json.Unmarshal(row[j+1], &s); err != nil {
				return nil, fmt.Errorf("kline row %d field %d: %w", i, j+1, err)
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("kline row %d field %d: %w", i, j+1, err)
			}
			*dst = v
		}
		candles = append(candles, candle)
	}
	return candles, nil
}
