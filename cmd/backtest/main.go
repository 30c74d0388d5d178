// Command backtest replays a symbol's already-ingested history through the
// CMS pipeline standalone, without booting the API server or any bus
// consumer — the CLI counterpart to POST /backtest for operators who want a
// result on stdout instead of a JSON response (§4.I).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/kosheduteam/signalengine/config"
	"github.com/kosheduteam/signalengine/internal/backtest"
	"github.com/kosheduteam/signalengine/internal/domain"
	"github.com/kosheduteam/signalengine/internal/store/postgres"
)

func main() {
	symbol := flag.String("symbol", "", "symbol to replay, e.g. BTCUSDT (required)")
	start := flag.String("start", "", "window start, RFC3339 (required)")
	end := flag.String("end", "", "window end, RFC3339 (required)")
	initialCapital := flag.Float64("capital", 10000, "starting capital")
	positionSizeFraction := flag.Float64("position-fraction", 1.0, "fraction of sized capital committed per trade")
	thresholdBuy := flag.Float64("threshold-buy", 0, "CMS score above which a signal is treated as BUY (0 = use engine default)")
	thresholdSell := flag.Float64("threshold-sell", 0, "CMS score below which a signal is treated as SELL (0 = use engine default)")
	flag.Parse()

	if *symbol == "" || *start == "" || *end == "" {
		fmt.Fprintln(os.Stderr, "usage: backtest -symbol BTCUSDT -start 2026-01-01T00:00:00Z -end 2026-02-01T00:00:00Z")
		flag.PrintDefaults()
		os.Exit(2)
	}

	startTime, err := time.Parse(time.RFC3339, *start)
	if err != nil {
		log.Fatalf("invalid -start: %v", err)
	}
	endTime, err := time.Parse(time.RFC3339, *end)
	if err != nil {
		log.Fatalf("invalid -end: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to the store: %v", err)
	}
	defer db.Close()

	bars, err := db.BarsRange(ctx, *symbol, startTime, endTime)
	if err != nil {
		log.Fatalf("failed to load bars: %v", err)
	}
	if len(bars) == 0 {
		log.Fatalf("no bars stored for %s in [%s, %s]", *symbol, startTime, endTime)
	}
	sentiments, err := db.SentimentsRange(ctx, *symbol, startTime, endTime)
	if err != nil {
		log.Fatalf("failed to load sentiment history: %v", err)
	}
	events, err := db.EventsRange(ctx, *symbol, startTime, endTime)
	if err != nil {
		log.Fatalf("failed to load event history: %v", err)
	}

	buyThreshold := *thresholdBuy
	if buyThreshold == 0 {
		buyThreshold = cfg.CMS.ThresholdBuy
	}
	sellThreshold := *thresholdSell
	if sellThreshold == 0 {
		sellThreshold = cfg.CMS.ThresholdSell
	}
	replayCfg := domain.BacktestConfig{
		Symbol:               *symbol,
		Start:                startTime,
		End:                  endTime,
		InitialCapital:       *initialCapital,
		PositionSizeFraction: *positionSizeFraction,
		ThresholdBuy:         buyThreshold,
		ThresholdSell:        sellThreshold,
	}

	runner := backtest.New(cfg.CMS.Weights, cfg.CMS.RegimeWindowBars)
	result := runner.Run(ctx, replayCfg, bars, sentiments, events, db)

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("failed to encode result: %v", err)
	}
	fmt.Println(string(out))
}
