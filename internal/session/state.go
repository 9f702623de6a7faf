package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/buurguees/bot-trading-v10-sub003/internal/models"
	"github.com/buurguees/bot-trading-v10-sub003/internal/stats"
)

// State owns everything a training session accumulates: one agent per
// symbol, the cycle snapshots, and the timeline observed so far. The
// engines drive it; it never touches I/O.
type State struct {
	id             string
	runID          string
	mode           models.SessionMode
	startedAt      time.Time
	interval       string
	initialBalance float64
	symbols        []string

	agents     map[string]*Agent
	lastPrices map[string]float64
	cycleSnaps []stats.CycleSnapshot
	barTimes   []int64

	logger zerolog.Logger
}

// NewState creates session state for the given symbols. The session ID is
// timestamp-based (it names the report file); the run UUID disambiguates
// re-runs that land on the same second.
func NewState(mode models.SessionMode, symbols []string, interval string, initialBalance float64) *State {
	now := time.Now().UTC()
	s := &State{
		id:             now.Format("20060102_150405"),
		runID:          uuid.New().String(),
		mode:           mode,
		startedAt:      now,
		interval:       interval,
		initialBalance: initialBalance,
		symbols:        append([]string(nil), symbols...),
		agents:         make(map[string]*Agent, len(symbols)),
		lastPrices:     make(map[string]float64, len(symbols)),
		logger:         log.With().Str("component", "session").Logger(),
	}
	for _, symbol := range symbols {
		s.agents[symbol] = NewAgent(symbol, initialBalance)
	}
	return s
}

// ID returns the timestamp-based session identifier.
func (s *State) ID() string { return s.id }

// RunID returns the session's run UUID.
func (s *State) RunID() string { return s.runID }

// Symbols returns the configured symbol list in order.
func (s *State) Symbols() []string { return s.symbols }

// Agent returns the agent for a symbol, or nil for unknown symbols.
func (s *State) Agent(symbol string) *Agent { return s.agents[symbol] }

// Observe folds one synchronized step into the session: last prices move,
// agents with a bar mark their equity, and the timeline advances.
func (s *State) Observe(step AlignedStep) {
	s.barTimes = append(s.barTimes, step.Timestamp)
	for symbol, candle := range step.Candles {
		agent, ok := s.agents[symbol]
		if !ok {
			continue
		}
		s.lastPrices[symbol] = candle.Close
		agent.MarkBar(candle.Close)
	}
}

// ObserveCandle is the live-mode entry point: a single closed candle for a
// single symbol.
func (s *State) ObserveCandle(symbol string, candle models.Candle) {
	agent, ok := s.agents[symbol]
	if !ok {
		return
	}
	s.barTimes = append(s.barTimes, candle.Timestamp)
	s.lastPrices[symbol] = candle.Close
	agent.MarkBar(candle.Close)
}

// LastPrice returns the most recent close seen for a symbol.
func (s *State) LastPrice(symbol string) float64 { return s.lastPrices[symbol] }

// CloseAll force-closes every open position at the last observed price.
// Agents that never saw a price close flat at their entry, so a degenerate
// all-gap run still settles to zero PnL instead of erroring out.
func (s *State) CloseAll(t time.Time, reason string) {
	for symbol, agent := range s.agents {
		if !agent.HasPosition() {
			continue
		}
		price := s.lastPrices[symbol]
		if price <= 0 {
			price, _ = agent.EntryPrice()
		}
		if _, err := agent.Close(price, t, reason); err != nil {
			s.logger.Warn().Err(err).Str("symbol", symbol).Msg("force close failed")
		}
	}
}

// EndCycle closes dangling positions, snapshots the finished cycle, and
// resets every agent's bankroll for the next pass.
func (s *State) EndCycle(t time.Time) {
	s.CloseAll(t, "cycle_end")

	snap := stats.CycleSnapshot{}
	var pnlSum float64
	var wins, total int
	for _, agent := range s.agents {
		cycleTrades := agent.CycleTrades()
		for _, tr := range cycleTrades {
			pnlSum += tr.PnL
			if tr.Won() {
				wins++
			}
			switch tr.Side {
			case models.Long:
				snap.LongTrades++
			case models.Short:
				snap.ShortTrades++
			}
		}
		total += len(cycleTrades)
		if dd := stats.MaxDrawdownPct(agent.EquityCurve()); dd > snap.DrawdownPct {
			snap.DrawdownPct = dd
		}
	}
	snap.Trades = total
	snap.PnL = stats.SafeDiv(pnlSum, float64(len(s.agents)))
	snap.WinRate = stats.SafePct(float64(wins), float64(total))
	s.cycleSnaps = append(s.cycleSnaps, snap)

	for _, agent := range s.agents {
		agent.ResetCycle()
	}

	s.logger.Debug().
		Int("cycle", len(s.cycleSnaps)).
		Float64("mean_pnl", snap.PnL).
		Float64("win_rate", snap.WinRate).
		Int("trades", snap.Trades).
		Msg("cycle complete")
}

// CyclesCompleted returns how many cycle snapshots were taken.
func (s *State) CyclesCompleted() int { return len(s.cycleSnaps) }

// Summary assembles the executive summary for the session as it stands.
func (s *State) Summary(endedAt time.Time) *models.SessionSummary {
	perSymbol := make([]models.SymbolStats, 0, len(s.symbols))
	winning := 0
	for _, symbol := range s.symbols {
		agent := s.agents[symbol]
		perSymbol = append(perSymbol, agent.SessionStats())
		for _, tr := range agent.Trades() {
			if tr.Won() {
				winning++
			}
		}
	}

	cycles := len(s.cycleSnaps)
	if cycles == 0 {
		cycles = 1
	}

	return &models.SessionSummary{
		ID:             s.id,
		RunID:          s.runID,
		Mode:           s.mode,
		StartedAt:      s.startedAt,
		Duration:       endedAt.Sub(s.startedAt),
		Symbols:        append([]string(nil), s.symbols...),
		Interval:       s.interval,
		InitialBalance: s.initialBalance,
		Cycles:         cycles,
		Aggregate:      stats.Aggregate(s.initialBalance, perSymbol, winning),
		PerSymbol:      perSymbol,
		CycleAgg:       stats.AggregateCycles(s.cycleSnaps, stats.MeanBarDuration(s.barTimes)),
	}
}
