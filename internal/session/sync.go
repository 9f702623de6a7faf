package session

import (
	"sort"

	"github.com/buurguees/bot-trading-v10-sub003/internal/models"
)

// AlignedStep is one synchronized tick of the multi-symbol clock: a single
// timestamp plus whichever symbols have a bar there.
type AlignedStep struct {
	Timestamp int64
	Candles   map[string]models.Candle
}

// Alignment is the result of merging per-symbol candle series onto one
// timeline. Symbols trained together advance in lockstep through Steps;
// Gaps counts, per symbol, the steps where that symbol had no bar.
type Alignment struct {
	Steps []AlignedStep
	Gaps  map[string]int
}

// Align merges the given per-symbol series. Each distinct timestamp is
// emitted exactly once, in ascending order. Duplicate timestamps within a
// series collapse to the last bar seen.
func Align(series map[string][]models.Candle) Alignment {
	byTime := make(map[int64]map[string]models.Candle)
	for symbol, candles := range series {
		for _, c := range candles {
			step, ok := byTime[c.Timestamp]
			if !ok {
				step = make(map[string]models.Candle, len(series))
				byTime[c.Timestamp] = step
			}
			step[symbol] = c
		}
	}

	timestamps := make([]int64, 0, len(byTime))
	for ts := range byTime {
		timestamps = append(timestamps, ts)
	}
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i] < timestamps[j] })

	aligned := Alignment{
		Steps: make([]AlignedStep, 0, len(timestamps)),
		Gaps:  make(map[string]int, len(series)),
	}
	for _, ts := range timestamps {
		step := AlignedStep{Timestamp: ts, Candles: byTime[ts]}
		aligned.Steps = append(aligned.Steps, step)
		for symbol := range series {
			if _, ok := step.Candles[symbol]; !ok {
				aligned.Gaps[symbol]++
			}
		}
	}
	return aligned
}

// Timestamps returns the aligned timeline, useful for bar-duration stats.
func (a Alignment) Timestamps() []int64 {
	out := make([]int64, len(a.Steps))
	for i, s := range a.Steps {
		out[i] = s.Timestamp
	}
	return out
}
