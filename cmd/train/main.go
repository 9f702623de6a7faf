package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/buurguees/bot-trading-v10-sub003/internal/config"
	"github.com/buurguees/bot-trading-v10-sub003/internal/engine"
	"github.com/buurguees/bot-trading-v10-sub003/internal/marketdata"
	"github.com/buurguees/bot-trading-v10-sub003/internal/models"
	"github.com/buurguees/bot-trading-v10-sub003/internal/notify"
	"github.com/buurguees/bot-trading-v10-sub003/internal/storage"
	"github.com/buurguees/bot-trading-v10-sub003/internal/strategy"
)

func main() {
	mode := flag.String("mode", "historical", "training mode: historical or live")
	planPath := flag.String("config", "training.yaml", "path to the training plan")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	lvl, _ := zerolog.ParseLevel(cfg.LogLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).Level(lvl)

	plan, err := config.LoadPlan(*planPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load training plan")
	}

	strat, err := strategy.New(plan.Strategy)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build strategy")
	}
	log.Info().Str("strategy", strat.Name()).Strs("symbols", plan.Session.Symbols).Msg("training plan loaded")

	sinks := buildSinks(cfg)
	if sinks.DB != nil {
		defer sinks.DB.Close()
	}
	if sinks.Equity != nil {
		defer sinks.Equity.Close()
	}

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var summary *models.SessionSummary
	switch *mode {
	case "historical":
		store := marketdata.NewStore(plan.Data.Dir)
		eng, err := engine.NewHistorical(plan, strat, store, sinks)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to build historical engine")
		}
		summary, err = eng.Run(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("historical session failed")
		}
	case "live":
		stream := marketdata.NewStream(cfg.BinanceWSURL, plan.Session.Symbols, plan.Session.Interval)
		eng, err := engine.NewLive(plan, strat, stream, sinks)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to build live engine")
		}
		summary, err = eng.Run(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("live session failed")
		}
	default:
		log.Fatal().Str("mode", *mode).Msg("unknown mode, expected historical or live")
	}

	fmt.Printf("Session %s: mean PnL $%+.2f (%+.2f%%), win rate %.2f%% over %d trades\n",
		summary.ID, summary.Aggregate.MeanPnL, summary.Aggregate.MeanPnLPct,
		summary.Aggregate.WinRate, summary.Aggregate.TotalTrades)
}

// buildSinks connects whatever optional outputs the environment configures.
// An unreachable sink downgrades to a warning; the session still runs and
// its report still lands on disk.
func buildSinks(cfg *config.Config) engine.Sinks {
	var sinks engine.Sinks

	if cfg.DBHost != "" {
		db, err := storage.New(storage.ConnectionParams{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			DBName:   cfg.DBName,
			SSLMode:  cfg.DBSSLMode,
		})
		if err != nil {
			log.Warn().Err(err).Msg("postgres unavailable, continuing without it")
		} else {
			sinks.DB = db
		}
	}

	if cfg.InfluxURL != "" {
		sink, err := storage.NewEquitySink(cfg.InfluxURL, cfg.InfluxUser, cfg.InfluxPassword, cfg.InfluxDatabase)
		if err != nil {
			log.Warn().Err(err).Msg("influx unavailable, continuing without it")
		} else {
			sinks.Equity = sink
		}
	}

	notifier, err := notify.New(cfg.TelegramBotToken, cfg.TelegramChatID)
	if err != nil {
		log.Warn().Err(err).Msg("telegram unavailable, continuing without it")
	} else {
		sinks.Notify = notifier
	}

	return sinks
}
