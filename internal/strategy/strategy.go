// Package strategy provides the pluggable decision slot for the training
// engines plus simple baseline implementations. The engines only ever see
// the Strategy interface; which trading logic runs inside a session is a
// training-plan choice.
package strategy

import (
	"fmt"

	"github.com/buurguees/bot-trading-v10-sub003/internal/config"
	"github.com/buurguees/bot-trading-v10-sub003/internal/models"
)

// Signal is a strategy's verdict for the current bar.
type Signal int

const (
	Hold Signal = iota
	EnterLong
	EnterShort
	Exit
)

// Strategy evaluates a candle window. The window always ends at the current
// bar; implementations must not assume a minimum length and should return
// Hold until they have enough data.
type Strategy interface {
	Name() string
	OnBar(window []models.Candle) Signal
}

// New builds the strategy named in the training plan.
func New(plan config.StrategyPlan) (Strategy, error) {
	switch plan.Name {
	case "sma_cross":
		return NewSMACross(plan.FastSMA, plan.SlowSMA), nil
	case "rsi_revert":
		return NewRSIRevert(plan.RSIPeriod, plan.RSILow, plan.RSIHigh), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", plan.Name)
	}
}

func closes(window []models.Candle) []float64 {
	out := make([]float64, len(window))
	for i, c := range window {
		out[i] = c.Close
	}
	return out
}
