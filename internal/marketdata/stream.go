package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/buurguees/bot-trading-v10-sub003/internal/metrics"
	"github.com/buurguees/bot-trading-v10-sub003/internal/models"
)

// CandleEvent is one closed candle delivered by the live stream.
type CandleEvent struct {
	Symbol string
	Candle models.Candle
}

// Stream consumes the exchange's combined kline websocket and emits closed
// candles. It reconnects with exponential backoff until the context ends.
type Stream struct {
	baseURL  string
	symbols  []string
	interval string
	logger   zerolog.Logger
}

// NewStream prepares a stream for the given symbols and interval.
func NewStream(baseURL string, symbols []string, interval string) *Stream {
	if baseURL == "" {
		baseURL = "wss://stream.binance.com:9443"
	}
	return &Stream{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		symbols:  symbols,
		interval: interval,
		logger:   log.With().Str("component", "kline_stream").Logger(),
	}
}

type klineEnvelope struct {
	Stream string    `json:"stream"`
	Data   klineData `json:"data"`
}

type klineData struct {
	Symbol string       `json:"s"`
	Kline  klinePayload `json:"k"`
}

type klinePayload struct {
	OpenTime int64  `json:"t"`
	Symbol   string `json:"s"`
	Open     string `json:"o"`
	High     string `json:"h"`
	Low      string `json:"l"`
	Close    string `json:"c"`
	Volume   string `json:"v"`
	Closed   bool   `json:"x"`
}

// Run pushes closed candles onto out until the context is canceled.
func (s *Stream) Run(ctx context.Context, out chan<- CandleEvent) error {
	if len(s.symbols) == 0 {
		return fmt.Errorf("kline stream requires at least one symbol")
	}

	streams := make([]string, len(s.symbols))
	for i, symbol := range s.symbols {
		streams[i] = strings.ToLower(symbol) + "@kline_" + s.interval
	}
	url := fmt.Sprintf("%s/stream?streams=%s", s.baseURL, strings.Join(streams, "/"))

	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 0 // retry until canceled

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		connectedAt := time.Now()
		err := s.consume(ctx, url, out)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// A connection that lived for a while earns a fresh backoff.
		if time.Since(connectedAt) > time.Minute {
			bo.Reset()
		}
		wait := bo.NextBackOff()
		metrics.StreamReconnects.Inc()
		s.logger.Warn().Err(err).Dur("retry_in", wait).Msg("kline stream disconnected, retrying")
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Stream) consume(ctx context.Context, url string, out chan<- CandleEvent) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	s.logger.Info().Strs("symbols", s.symbols).Str("interval", s.interval).Msg("connected kline stream")

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		return nil
	})

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					s.logger.Warn().Err(err).Msg("kline stream ping failed")
					return
				}
			case <-pingCtx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		event, ok, err := parseKlineMessage(message)
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to decode kline message")
			continue
		}
		if !ok {
			continue // candle still forming
		}
		metrics.CandlesTotal.WithLabelValues(event.Symbol).Inc()

		select {
		case out <- event:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// parseKlineMessage decodes one websocket frame. ok is false for frames
// that are valid but not yet closed candles.
func parseKlineMessage(message []byte) (CandleEvent, bool, error) {
	var env klineEnvelope
	if err := json.Unmarshal(message, &env); err != nil {
		return CandleEvent{}, false, err
	}
	k := env.Data.Kline
	if !k.Closed {
		return CandleEvent{}, false, nil
	}

	candle := models.Candle{Timestamp: k.OpenTime}
	for _, f := range []struct {
		raw string
		dst *float64
	}{
		{k.Open, &candle.Open},
		{k.High, &candle.High},
		{k.Low, &candle.Low},
		{k.Close, &candle.Close},
		{k.Volume, &candle.Volume},
	} {
		v, err := strconv.ParseFloat(f.raw, 64)
		if err != nil {
			return CandleEvent{}, false, fmt.Errorf("invalid kline field %q: %w", f.raw, err)
		}
		*f.dst = v
	}

	symbol := env.Data.Symbol
	if symbol == "" {
		symbol = k.Symbol
	}
	return CandleEvent{Symbol: strings.ToUpper(symbol), Candle: candle}, true, nil
}
