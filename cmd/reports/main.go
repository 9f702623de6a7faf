package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/buurguees/bot-trading-v10-sub003/internal/report"
)

func main() {
	dir := flag.String("dir", "reports", "reports directory to scan")
	strict := flag.Bool("strict", false, "exit non-zero when corrupted or invalid reports exist")
	level := flag.String("log-level", "warn", "log level")
	flag.Parse()

	lvl, _ := zerolog.ParseLevel(*level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).Level(lvl)

	ov, err := report.ScanDir(*dir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to scan reports")
	}

	fmt.Print(ov.Render())

	if *strict && len(ov.Corrupted)+len(ov.Invalid) > 0 {
		os.Exit(1)
	}
}
