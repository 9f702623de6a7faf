package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadPlan(t *testing.T) {
	plan, err := LoadPlan(filepath.Join("testdata", "training.yaml"))
	if err != nil {
		t.Fatalf("LoadPlan returned error: %v", err)
	}

	if len(plan.Session.Symbols) != 2 || plan.Session.Symbols[0] != "BTCUSDT" || plan.Session.Symbols[1] != "ETHUSDT" {
		t.Fatalf("unexpected symbols: %+v", plan.Session.Symbols)
	}
	if plan.Session.Interval != "15m" {
		t.Fatalf("unexpected interval: %s", plan.Session.Interval)
	}
	if plan.Session.InitialBalance != 2500 {
		t.Fatalf("unexpected initial balance: %.2f", plan.Session.InitialBalance)
	}
	if plan.Session.Cycles != 4 {
		t.Fatalf("unexpected cycles: %d", plan.Session.Cycles)
	}
	if plan.Data.Dir != "testdata/candles" {
		t.Fatalf("unexpected data dir: %s", plan.Data.Dir)
	}
	if plan.Data.Start != "2024-01-01" || plan.Data.End != "2024-03-01" {
		t.Fatalf("unexpected data range: %s..%s", plan.Data.Start, plan.Data.End)
	}
	if plan.Reports.Dir != "out/reports" {
		t.Fatalf("unexpected reports dir: %s", plan.Reports.Dir)
	}
	if plan.Strategy.Name != "rsi_revert" {
		t.Fatalf("unexpected strategy name: %s", plan.Strategy.Name)
	}
	if plan.Strategy.FastSMA != 9 || plan.Strategy.SlowSMA != 21 {
		t.Fatalf("unexpected sma periods: %d/%d", plan.Strategy.FastSMA, plan.Strategy.SlowSMA)
	}
	if plan.Strategy.RSIPeriod != 7 || plan.Strategy.RSILow != 25 || plan.Strategy.RSIHigh != 75 {
		t.Fatalf("unexpected rsi params: %d/%.0f/%.0f",
			plan.Strategy.RSIPeriod, plan.Strategy.RSILow, plan.Strategy.RSIHigh)
	}
	if plan.Strategy.SizePct != 10 {
		t.Fatalf("unexpected size pct: %.2f", plan.Strategy.SizePct)
	}
	if plan.Live.MetricsAddr != ":9200" {
		t.Fatalf("unexpected metrics addr: %s", plan.Live.MetricsAddr)
	}
	if plan.Live.SnapshotEvery != "30m" {
		t.Fatalf("unexpected snapshot interval: %s", plan.Live.SnapshotEvery)
	}
}

func TestLoadPlanDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	minimal := "session:\n  symbols:\n    - BTCUSDT\n"
	if err := os.WriteFile(path, []byte(minimal), 0o644); err != nil {
		t.Fatal(err)
	}

	plan, err := LoadPlan(path)
	if err != nil {
		t.Fatalf("LoadPlan returned error: %v", err)
	}

	if plan.Session.Interval != "1h" {
		t.Fatalf("default interval = %s, want 1h", plan.Session.Interval)
	}
	if plan.Session.InitialBalance != 1000 {
		t.Fatalf("default initial balance = %.2f, want 1000", plan.Session.InitialBalance)
	}
	if plan.Session.Cycles != 1 {
		t.Fatalf("default cycles = %d, want 1", plan.Session.Cycles)
	}
	if plan.Data.Dir != "data/candles" {
		t.Fatalf("default data dir = %s", plan.Data.Dir)
	}
	if plan.Reports.Dir != "reports" {
		t.Fatalf("default reports dir = %s", plan.Reports.Dir)
	}
	if plan.Strategy.Name != "sma_cross" {
		t.Fatalf("default strategy = %s", plan.Strategy.Name)
	}
	if plan.Strategy.FastSMA != 12 || plan.Strategy.SlowSMA != 26 {
		t.Fatalf("default sma periods = %d/%d", plan.Strategy.FastSMA, plan.Strategy.SlowSMA)
	}
	if plan.Strategy.RSIPeriod != 14 || plan.Strategy.RSILow != 30 || plan.Strategy.RSIHigh != 70 {
		t.Fatalf("default rsi params = %d/%.0f/%.0f",
			plan.Strategy.RSIPeriod, plan.Strategy.RSILow, plan.Strategy.RSIHigh)
	}
	if plan.Strategy.SizePct != 25 {
		t.Fatalf("default size pct = %.2f", plan.Strategy.SizePct)
	}
	if plan.Live.MetricsAddr != ":9109" {
		t.Fatalf("default metrics addr = %s", plan.Live.MetricsAddr)
	}
	if plan.Live.SnapshotEvery != "1h" {
		t.Fatalf("default snapshot interval = %s", plan.Live.SnapshotEvery)
	}
}

func TestLoadPlanRejectsNoSymbols(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	if err := os.WriteFile(path, []byte("session:\n  interval: 1h\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPlan(path); err == nil {
		t.Fatalf("expected error for plan without symbols")
	}
}

func TestLoadPlanOversizedPositionClamped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	body := "session:\n  symbols:\n    - BTCUSDT\nstrategy:\n  size_pct: 250\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	plan, err := LoadPlan(path)
	if err != nil {
		t.Fatalf("LoadPlan returned error: %v", err)
	}
	if plan.Strategy.SizePct != 25 {
		t.Fatalf("size pct = %.2f, want fallback 25", plan.Strategy.SizePct)
	}
}

func TestLoadPlanMissingFile(t *testing.T) {
	_, err := LoadPlan(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestSavePlanRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	in := &Plan{
		Session: SessionPlan{
			Symbols:        []string{"SOLUSDT"},
			Interval:       "4h",
			InitialBalance: 500,
			Cycles:         2,
		},
	}
	if err := SavePlan(path, in); err != nil {
		t.Fatalf("SavePlan returned error: %v", err)
	}

	out, err := LoadPlan(path)
	if err != nil {
		t.Fatalf("LoadPlan returned error: %v", err)
	}
	if len(out.Session.Symbols) != 1 || out.Session.Symbols[0] != "SOLUSDT" {
		t.Fatalf("unexpected symbols after round trip: %+v", out.Session.Symbols)
	}
	if out.Session.Interval != "4h" || out.Session.InitialBalance != 500 || out.Session.Cycles != 2 {
		t.Fatalf("unexpected session after round trip: %+v", out.Session)
	}
}

func TestSavePlanNil(t *testing.T) {
	if err := SavePlan(filepath.Join(t.TempDir(), "plan.yaml"), nil); err == nil {
		t.Fatalf("expected error for nil plan")
	}
}

func TestLoadEnvDefaults(t *testing.T) {
	for _, key := range []string{
		"LOG_LEVEL", "BINANCE_BASE_URL", "BINANCE_WS_URL",
		"REQUEST_TIMEOUT", "REQUESTS_PER_SEC", "DB_HOST", "INFLUX_URL",
		"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("default log level = %s, want info", cfg.LogLevel)
	}
	if cfg.BinanceBaseURL != "https://api.binance.com" {
		t.Fatalf("default base url = %s", cfg.BinanceBaseURL)
	}
	if cfg.BinanceWSURL != "wss://stream.binance.com:9443" {
		t.Fatalf("default ws url = %s", cfg.BinanceWSURL)
	}
	if cfg.RequestTimeout != 30 || cfg.RequestsPerSec != 5 {
		t.Fatalf("default http discipline = %d/%d", cfg.RequestTimeout, cfg.RequestsPerSec)
	}
	if cfg.DBHost != "" || cfg.InfluxURL != "" || cfg.TelegramBotToken != "" {
		t.Fatalf("optional sinks should default to disabled: %+v", cfg)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("REQUEST_TIMEOUT", "10")
	t.Setenv("REQUESTS_PER_SEC", "nonsense")
	t.Setenv("TELEGRAM_CHAT_ID", "-100123456")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log level = %s, want debug", cfg.LogLevel)
	}
	if cfg.RequestTimeout != 10 {
		t.Fatalf("request timeout = %d, want 10", cfg.RequestTimeout)
	}
	if cfg.RequestsPerSec != 5 {
		t.Fatalf("unparseable rate should fall back to 5, got %d", cfg.RequestsPerSec)
	}
	if cfg.TelegramChatID != -100123456 {
		t.Fatalf("chat id = %d, want -100123456", cfg.TelegramChatID)
	}
}
