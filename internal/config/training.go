package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Plan is the YAML training plan: everything that describes one training
// run, as opposed to the environment the process runs in.
type Plan struct {
	Session  SessionPlan  `yaml:"session"`
	Data     DataPlan     `yaml:"data"`
	Reports  ReportsPlan  `yaml:"reports"`
	Strategy StrategyPlan `yaml:"strategy"`
	Live     LivePlan     `yaml:"live"`
}

// SessionPlan describes the session shape: which symbols train together,
// on what interval, with which bankroll, over how many cycles.
type SessionPlan struct {
	Symbols        []string `yaml:"symbols"`
	Interval       string   `yaml:"interval"`
	InitialBalance float64  `yaml:"initial_balance"`
	Cycles         int      `yaml:"cycles"`
}

// DataPlan locates the historical candle store.
type DataPlan struct {
	Dir   string `yaml:"dir"`
	Start string `yaml:"start"` // YYYY-MM-DD, used by the fetch CLI
	End   string `yaml:"end"`   // empty means "now"
}

// ReportsPlan locates the executive summary output directory.
type ReportsPlan struct {
	Dir string `yaml:"dir"`
}

// StrategyPlan selects the harness strategy and its knobs.
type StrategyPlan struct {
	Name      string  `yaml:"name"`
	FastSMA   int     `yaml:"fast_sma"`
	SlowSMA   int     `yaml:"slow_sma"`
	RSIPeriod int     `yaml:"rsi_period"`
	RSILow    float64 `yaml:"rsi_low"`
	RSIHigh   float64 `yaml:"rsi_high"`
	SizePct   float64 `yaml:"size_pct"` // percent of agent balance per entry
}

// LivePlan tunes live paper sessions.
type LivePlan struct {
	MetricsAddr   string `yaml:"metrics_addr"`
	SnapshotEvery string `yaml:"snapshot_every"` // duration, e.g. "1h"
}

// LoadPlan reads a YAML training plan from disk and applies defaults.
func LoadPlan(path string) (*Plan, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open training plan: %w", err)
	}
	defer file.Close()

	var plan Plan
	if err := yaml.NewDecoder(file).Decode(&plan); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	plan.applyDefaults()
	if err := plan.validate(); err != nil {
		return nil, err
	}
	return &plan, nil
}

// SavePlan persists a training plan to disk as YAML.
func SavePlan(path string, plan *Plan) error {
	if plan == nil {
		return fmt.Errorf("nil training plan")
	}
	data, err := yaml.Marshal(plan)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write training plan: %w", err)
	}
	return nil
}

func (p *Plan) applyDefaults() {
	if p.Session.Interval == "" {
		p.Session.Interval = "1h"
	}
	if p.Session.InitialBalance == 0 {
		p.Session.InitialBalance = 1000
	}
	if p.Session.Cycles <= 0 {
		p.Session.Cycles = 1
	}
	if p.Data.Dir == "" {
		p.Data.Dir = "data/candles"
	}
	if p.Reports.Dir == "" {
		p.Reports.Dir = "reports"
	}
	if p.Strategy.Name == "" {
		p.Strategy.Name = "sma_cross"
	}
	if p.Strategy.FastSMA <= 0 {
		p.Strategy.FastSMA = 12
	}
	if p.Strategy.SlowSMA <= 0 {
		p.Strategy.SlowSMA = 26
	}
	if p.Strategy.RSIPeriod <= 0 {
		p.Strategy.RSIPeriod = 14
	}
	if p.Strategy.RSILow <= 0 {
		p.Strategy.RSILow = 30
	}
	if p.Strategy.RSIHigh <= 0 {
		p.Strategy.RSIHigh = 70
	}
	if p.Strategy.SizePct <= 0 || p.Strategy.SizePct > 100 {
		p.Strategy.SizePct = 25
	}
	if p.Live.MetricsAddr == "" {
		p.Live.MetricsAddr = ":9109"
	}
	if p.Live.SnapshotEvery == "" {
		p.Live.SnapshotEvery = "1h"
	}
}

func (p *Plan) validate() error {
	if len(p.Session.Symbols) == 0 {
		return fmt.Errorf("training plan has no symbols")
	}
	if p.Session.InitialBalance <= 0 {
		return fmt.Errorf("initial balance must be positive, got %.2f", p.Session.InitialBalance)
	}
	return nil
}
