package strategy

import (
	"fmt"

	talib "github.com/markcheno/go-talib"

	"github.com/buurguees/bot-trading-v10-sub003/internal/models"
)

// SMACross goes long on a fast/slow moving-average golden cross and short
// on the death cross.
type SMACross struct {
	fast int
	slow int
}

// NewSMACross builds the crossover baseline. Swapped periods are corrected
// rather than rejected.
func NewSMACross(fast, slow int) *SMACross {
	if fast > slow {
		fast, slow = slow, fast
	}
	return &SMACross{fast: fast, slow: slow}
}

func (s *SMACross) Name() string {
	return fmt.Sprintf("sma_cross(%d,%d)", s.fast, s.slow)
}

func (s *SMACross) OnBar(window []models.Candle) Signal {
	// Need one bar beyond the slow period to detect a cross.
	if len(window) < s.slow+1 {
		return Hold
	}
	prices := closes(window)
	fastMA := talib.Sma(prices, s.fast)
	slowMA := talib.Sma(prices, s.slow)

	last := len(prices) - 1
	prevDiff := fastMA[last-1] - slowMA[last-1]
	currDiff := fastMA[last] - slowMA[last]

	if prevDiff <= 0 && currDiff > 0 {
		return EnterLong
	}
	if prevDiff >= 0 && currDiff < 0 {
		return EnterShort
	}
	return Hold
}
