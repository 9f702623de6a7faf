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
	"github.com/buurguees/bot-trading-v10-sub003/internal/marketdata"
)

const dateLayout = "2006-01-02"

func main() {
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
	if plan.Data.Start == "" {
		log.Fatal().Msg("training plan has no data.start date")
	}

	start, err := time.Parse(dateLayout, plan.Data.Start)
	if err != nil {
		log.Fatal().Err(err).Str("start", plan.Data.Start).Msg("invalid data.start date")
	}
	end := time.Now().UTC()
	if plan.Data.End != "" {
		end, err = time.Parse(dateLayout, plan.Data.End)
		if err != nil {
			log.Fatal().Err(err).Str("end", plan.Data.End).Msg("invalid data.end date")
		}
	}

	client := marketdata.NewClient(marketdata.ClientOptions{
		BaseURL:         cfg.BinanceBaseURL,
		RequestTimeout:  time.Duration(cfg.RequestTimeout) * time.Second,
		RequestsPerSec:  cfg.RequestsPerSec,
		MaxRetryTimeout: 2 * time.Minute,
	})
	store := marketdata.NewStore(plan.Data.Dir)

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	interval := plan.Session.Interval
	for _, symbol := range plan.Session.Symbols {
		log.Info().
			Str("symbol", symbol).
			Str("interval", interval).
			Time("start", start).
			Time("end", end).
			Msg("fetching candles")

		candles, err := client.GetHistoricalCandles(ctx, symbol, interval, start, end)
		if err != nil {
			log.Fatal().Err(err).Str("symbol", symbol).Msg("fetch failed")
		}
		total, err := store.Update(symbol, interval, candles)
		if err != nil {
			log.Fatal().Err(err).Str("symbol", symbol).Msg("failed to update candle store")
		}
		fmt.Printf("%s: %d fetched, %d stored in %s\n", symbol, len(candles), total, store.Path(symbol, interval))
	}
}
