// Package backtest implements the chronological replay engine (§4.I): Module
// E's CMS classification driving a simulated long-only single-position
// executor over historical OHLC/sentiment/event data, with no look-ahead.
//
// Grounded on the teacher's internal/backtest/backtest.go replay loop and
// metric calculations, restructured around the CMS-driven signal classes
// instead of the teacher's fixed 3%/-2% take-profit/stop-loss thresholds,
// and extended with a Sharpe ratio and a full equity-curve drawdown
// (rather than the teacher's trade-boundary-only peak tracking). The
// runner never touches a live bus or network I/O — replay is a pure,
// synchronous function of the bars/sentiments/events passed in.
package backtest

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kosheduteam/signalengine/config"
	"github.com/kosheduteam/signalengine/internal/cms"
	"github.com/kosheduteam/signalengine/internal/domain"
	"github.com/kosheduteam/signalengine/internal/logging"
	"github.com/kosheduteam/signalengine/internal/nlpagg"
	"github.com/kosheduteam/signalengine/internal/regime"
)

// tradingDaysPerYear annualizes the daily Sharpe ratio (§4.I).
const tradingDaysPerYear = 252

// minRegimeBars mirrors the regime classifier's own floor (§4.A/§4.C):
// below this many bars no regime can be computed, so the symbol stays flat.
const minRegimeBars = 50

// Store persists a completed or failed backtest result. Failures are
// logged; the run's own return value is never blocked on persistence
// succeeding (§4.I: "best-effort persistence", matching every other
// module's Store convention).
type Store interface {
	SaveBacktestResult(ctx context.Context, result domain.BacktestResult) error
}

// Runner replays historical data through the CMS engine and a simulated
// long-only executor (§4.I). Stateless between runs; all per-run state
// lives in a local replay loop.
type Runner struct {
	cmsCfg     config.CMSWeights
	windowBars int
	log        *logging.Logger
}

// New creates a Runner. weights and windowBars come from the live CMS
// configuration so a backtest reproduces the same fusion the live pipeline
// would use; a backtest-specific buy/sell threshold pair is supplied
// per-run on BacktestConfig instead (§4.I: "per-run buy/sell thresholds").
func New(weights config.CMSWeights, regimeWindowBars int) *Runner {
	return &Runner{
		cmsCfg:     weights.Normalize(),
		windowBars: regimeWindowBars,
		log:        logging.WithComponent("backtest"),
	}
}

// openPosition tracks the simulated executor's single long position.
type openPosition struct {
	quantity   float64
	entryPrice float64
	entryAt    time.Time
}

// Run replays bars, sentiments, and events strictly in timestamp order
// (§4.I step 1: "loads all relevant OHLC, sentiments, and events from the
// store, sorts strictly by timestamp") and produces a BacktestResult. bars
// must all share cfg.Symbol; sentiments/events are matched to bars only by
// timestamp (no symbol filtering — callers are expected to have already
// scoped the article/event set to the target symbol upstream, mirroring
// how the live sentiment/event pipeline is already per-symbol by the time
// it reaches the aggregator).
func (r *Runner) Run(ctx context.Context, cfg domain.BacktestConfig, bars []domain.OHLCBar, sentiments []domain.Sentiment, events []domain.Event, store Store) domain.BacktestResult {
	result := domain.BacktestResult{
		ID:        uuid.NewString(),
		Config:    cfg,
		CreatedAt: time.Now(),
	}

	sortedBars := append([]domain.OHLCBar(nil), bars...)
	sort.Slice(sortedBars, func(i, j int) bool { return sortedBars[i].Timestamp.Before(sortedBars[j].Timestamp) })
	sortedSentiments := append([]domain.Sentiment(nil), sentiments...)
	sort.Slice(sortedSentiments, func(i, j int) bool { return sortedSentiments[i].Timestamp.Before(sortedSentiments[j].Timestamp) })
	sortedEvents := append([]domain.Event(nil), events...)
	sort.Slice(sortedEvents, func(i, j int) bool { return sortedEvents[i].Timestamp.Before(sortedEvents[j].Timestamp) })

	engine := cms.NewEngine(config.CMSConfig{Weights: r.cmsCfg, ThresholdBuy: cfg.ThresholdBuy, ThresholdSell: cfg.ThresholdSell})
	classifier := regime.NewClassifier(r.windowBars)
	nlp := nlpagg.NewAggregator(0, 0)

	equity := cfg.InitialCapital
	var position *openPosition
	var trades []domain.Trade
	var curve []domain.EquityPoint

	sentimentIdx, eventIdx := 0, 0
	var window []domain.OHLCBar

	for _, bar := range sortedBars {
		if bar.Timestamp.Before(cfg.Start) || bar.Timestamp.After(cfg.End) {
			continue
		}

		// Feed in every sentiment/event observation timestamped at or
		// before this bar, and none after — the no-look-ahead invariant
		// (§4.I step 2, §8.9a).
		for sentimentIdx < len(sortedSentiments) && !sortedSentiments[sentimentIdx].Timestamp.After(bar.Timestamp) {
			s := sortedSentiments[sentimentIdx]
			nlp.IngestSentiment(cfg.Symbol, s.Score, s.Confidence, s.Timestamp)
			sentimentIdx++
		}
		var freshEvents []domain.Event
		for eventIdx < len(sortedEvents) && !sortedEvents[eventIdx].Timestamp.After(bar.Timestamp) {
			freshEvents = append(freshEvents, sortedEvents[eventIdx])
			eventIdx++
		}
		if len(freshEvents) > 0 {
			nlp.IngestEvents(cfg.Symbol, freshEvents)
		}

		window = append(window, bar)
		if len(window) > r.windowBars {
			window = window[len(window)-r.windowBars:]
		}

		markToMarket := equity
		if position != nil {
			markToMarket += position.quantity * (bar.Close - position.entryPrice)
		}
		curve = append(curve, domain.EquityPoint{Timestamp: bar.Timestamp, Equity: markToMarket})

		if len(window) < minRegimeBars {
			// Not enough history yet to classify a regime (§4.A/§4.C); stay
			// flat rather than trade on an incomplete feature set.
			continue
		}

		sentimentAgg := nlp.Snapshot(cfg.Symbol, bar.Timestamp)
		snap, err := classifier.Classify(cfg.Symbol, window, sentimentAgg.SmoothedIndex)
		if err != nil {
			continue
		}
		cmsResult := engine.Compute(cfg.Symbol, cms.Inputs{
			SentimentIndex:   sentimentAgg.SmoothedIndex,
			VolatilityIndex:  snap.Inputs.VolatilityIndex,
			TrendStrength:    snap.Inputs.TrendStrength,
			EventShockFactor: sentimentAgg.EventShockFactor,
		}, bar.Timestamp)

		switch cmsResult.SignalClass {
		case domain.ClassBuy:
			if position == nil {
				fraction := cfg.PositionSizeFraction
				if fraction <= 0 {
					fraction = 1.0
				}
				quantity := (equity * fraction) / bar.Close
				position = &openPosition{quantity: quantity, entryPrice: bar.Close, entryAt: bar.Timestamp}
			}
		case domain.ClassSell:
			if position != nil {
				pnl := position.quantity * (bar.Close - position.entryPrice)
				trades = append(trades, domain.Trade{
					ID:         uuid.NewString(),
					Symbol:     cfg.Symbol,
					Side:       domain.SideBuy,
					EntryPrice: position.entryPrice,
					ExitPrice:  bar.Close,
					Quantity:   position.quantity,
					EntryAt:    position.entryAt,
					ExitAt:     bar.Timestamp,
					PnL:        pnl,
				})
				equity += pnl
				position = nil
			}
		}
	}

	result.Trades = trades
	result.Equity = curve
	result.Metrics = computeMetrics(cfg.InitialCapital, equity, curve, trades)
	result.Status = domain.BacktestCompleted

	if store != nil {
		if err := store.SaveBacktestResult(ctx, result); err != nil {
			r.log.Warn("failed to persist backtest result", "id", result.ID, "error", err.Error())
		}
	}

	return result
}

// computeMetrics derives the summary statistics from the realized equity
// curve and closed trades (§4.I step 3).
func computeMetrics(initialCapital, finalEquity float64, curve []domain.EquityPoint, trades []domain.Trade) domain.BacktestMetrics {
	metrics := domain.BacktestMetrics{TotalTrades: len(trades)}

	if initialCapital > 0 {
		metrics.TotalReturn = (finalEquity - initialCapital) / initialCapital
	}

	dailyReturns := make([]float64, 0, len(curve))
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev == 0 {
			continue
		}
		dailyReturns = append(dailyReturns, (curve[i].Equity-prev)/prev)
	}
	metrics.Sharpe = sharpeRatio(dailyReturns)
	metrics.MaxDrawdown = maxDrawdown(curve)

	if len(trades) > 0 {
		wins := 0
		var totalDuration time.Duration
		for _, t := range trades {
			if t.PnL > 0 {
				wins++
			}
			totalDuration += t.ExitAt.Sub(t.EntryAt)
		}
		metrics.WinRate = float64(wins) / float64(len(trades))
		metrics.AvgDuration = totalDuration.Hours() / float64(len(trades))
	}

	return metrics
}

// sharpeRatio computes mean(daily_returns)/stddev(daily_returns)*sqrt(252),
// or 0 if stddev is 0 or there are fewer than 2 return samples (§4.I).
func sharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	mean := 0.0
	for _, v := range returns {
		mean += v
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, v := range returns {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(returns))
	stddev := math.Sqrt(variance)
	if stddev == 0 {
		return 0
	}
	return (mean / stddev) * math.Sqrt(float64(tradingDaysPerYear))
}

// maxDrawdown is max over t of (peak_t - equity_t)/peak_t across the full
// equity curve (§4.I), not just at trade boundaries.
func maxDrawdown(curve []domain.EquityPoint) float64 {
	if len(curve) == 0 {
		return 0
	}
	peak := curve[0].Equity
	worst := 0.0
	for _, point := range curve {
		if point.Equity > peak {
			peak = point.Equity
		}
		if peak <= 0 {
			continue
		}
		dd := (peak - point.Equity) / peak
		if dd > worst {
			worst = dd
		}
	}
	return worst
}
