package strategy

import (
	"fmt"

	talib "github.com/markcheno/go-talib"

	"github.com/buurguees/bot-trading-v10-sub003/internal/models"
)

// RSIRevert fades oversold/overbought readings: long below the low band,
// short above the high band, flat once RSI crosses back through the middle.
type RSIRevert struct {
	period int
	low    float64
	high   float64
}

func NewRSIRevert(period int, low, high float64) *RSIRevert {
	return &RSIRevert{period: period, low: low, high: high}
}

func (s *RSIRevert) Name() string {
	return fmt.Sprintf("rsi_revert(%d,%.0f,%.0f)", s.period, s.low, s.high)
}

func (s *RSIRevert) OnBar(window []models.Candle) Signal {
	if len(window) < s.period+2 {
		return Hold
	}
	rsi := talib.Rsi(closes(window), s.period)
	last := len(rsi) - 1
	curr, prev := rsi[last], rsi[last-1]

	switch {
	case curr < s.low:
		return EnterLong
	case curr > s.high:
		return EnterShort
	case prev < 50 && curr >= 50, prev > 50 && curr <= 50:
		return Exit
	}
	return Hold
}
