package models

import (
	"fmt"
	"time"
)

// Candle represents a single OHLCV bar. Timestamp is the candle open time
// in unix milliseconds, matching both the Binance kline payload and the
// CSV store on disk.
type Candle struct {
	Timestamp int64   `csv:"timestamp" json:"timestamp"`
	Open      float64 `csv:"open" json:"open"`
	High      float64 `csv:"high" json:"high"`
	Low       float64 `csv:"low" json:"low"`
	Close     float64 `csv:"close" json:"close"`
	Volume    float64 `csv:"volume" json:"volume"`
}

// Time returns the candle open time.
func (c Candle) Time() time.Time {
	return time.UnixMilli(c.Timestamp).UTC()
}

// ParseInterval converts a kline interval string ("1m", "5m", "1h", "4h",
// "1d") into a duration.
func ParseInterval(interval string) (time.Duration, error) {
	switch interval {
	case "1m":
		return time.Minute, nil
	case "3m":
		return 3 * time.Minute, nil
	case "5m":
		return 5 * time.Minute, nil
	case "15m":
		return 15 * time.Minute, nil
	case "30m":
		return 30 * time.Minute, nil
	case "1h":
		return time.Hour, nil
	case "2h":
		return 2 * time.Hour, nil
	case "4h":
		return 4 * time.Hour, nil
	case "1d":
		return 24 * time.Hour, nil
	}
	return 0, fmt.Errorf("unsupported interval %q", interval)
}
