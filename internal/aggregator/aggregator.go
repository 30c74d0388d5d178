// Package aggregator implements the per-symbol signal aggregator (§4.F):
// the fan-in point where sentiment, event-shock, and regime updates are
// combined through the CMS engine into emitted trading signals. It is the
// most stateful component in the pipeline — grounded on the teacher's
// internal/autopilot.SignalAggregator mutex-guarded per-symbol state, split
// along the lines of yoghaf-market-indikator's engine/bus separation (the
// aggregator only ever talks to collaborators through the bus.Bus and
// Store interfaces, never directly).
package aggregator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kosheduteam/signalengine/config"
	"github.com/kosheduteam/signalengine/internal/bus"
	"github.com/kosheduteam/signalengine/internal/cms"
	"github.com/kosheduteam/signalengine/internal/domain"
	"github.com/kosheduteam/signalengine/internal/logging"
)

// recentEventsCapacity bounds the per-symbol recent-events deque (§4.F).
const recentEventsCapacity = 10

// Store is the minimal persistence surface the aggregator needs; failures
// are logged and never block bus publication (§4.F: "best-effort
// persistence").
type Store interface {
	SaveSignal(ctx context.Context, signal domain.TradingSignal) error
}

// symbolState holds one symbol's fan-in state. Guarded by its own mutex so
// symbols never contend with each other.
type symbolState struct {
	mu sync.Mutex

	sentiment   *domain.SentimentAggregate
	sentimentAt time.Time

	regime   *domain.RegimeSnapshot
	regimeAt time.Time

	lastPrice float64

	recentEvents []domain.Event

	state domain.AggregatorState

	hasEmitted       bool
	lastEmittedCMS   float64
	lastEmittedClass domain.SignalClass
	lastEmissionTime time.Time
}

// Aggregator fans sentiment/regime/event updates in per symbol and emits
// trading signals through the bus when the emission gate opens.
type Aggregator struct {
	weights       config.CMSWeights
	thresholdBuy  float64
	thresholdSell float64
	staleness     time.Duration
	epsilon       float64

	b     bus.Bus
	store Store
	log   *logging.Logger

	mu      sync.Mutex
	symbols map[string]*symbolState
}

// New creates an Aggregator. store may be nil (persistence is skipped, not
// an error).
func New(cfg config.CMSConfig, b bus.Bus, store Store) *Aggregator {
	staleness := time.Duration(cfg.SlotStalenessSeconds) * time.Second
	if staleness <= 0 {
		staleness = 300 * time.Second
	}
	epsilon := cfg.SignalEmissionEpsilon
	if epsilon <= 0 {
		epsilon = 5
	}

	return &Aggregator{
		weights:       cfg.Weights.Normalize(),
		thresholdBuy:  cfg.ThresholdBuy,
		thresholdSell: cfg.ThresholdSell,
		staleness:     staleness,
		epsilon:       epsilon,
		b:             b,
		store:         store,
		log:           logging.WithComponent("aggregator"),
		symbols:       make(map[string]*symbolState),
	}
}

func (a *Aggregator) stateFor(symbol string) *symbolState {
	a.mu.Lock()
	defer a.mu.Unlock()
	st, ok := a.symbols[symbol]
	if !ok {
		st = &symbolState{state: domain.StateBootstrapping}
		a.symbols[symbol] = st
	}
	return st
}

// OnSentiment records a fresh NLP aggregation result (carries both the
// smoothed sentiment index and the event-shock factor, per §4.D) and
// re-evaluates the symbol.
func (a *Aggregator) OnSentiment(ctx context.Context, symbol string, agg domain.SentimentAggregate, now time.Time) {
	st := a.stateFor(symbol)
	st.mu.Lock()
	st.sentiment = &agg
	st.sentimentAt = now
	st.mu.Unlock()

	a.evaluate(ctx, symbol, st, now)
}

// OnRegime records a fresh regime snapshot (carries volatility_index and
// trend_strength via its Inputs, per §4.C) and re-evaluates the symbol.
func (a *Aggregator) OnRegime(ctx context.Context, symbol string, snap domain.RegimeSnapshot, now time.Time) {
	st := a.stateFor(symbol)
	st.mu.Lock()
	st.regime = &snap
	st.regimeAt = now
	st.mu.Unlock()

	a.evaluate(ctx, symbol, st, now)
}

// OnPrice records the latest traded price for symbol, carried on emitted
// signals (§6: signals channel requires a `price` field) without gating
// emission or availability — price is advisory context, not a fan-in
// component.
func (a *Aggregator) OnPrice(symbol string, price float64) {
	st := a.stateFor(symbol)
	st.mu.Lock()
	st.lastPrice = price
	st.mu.Unlock()
}

// OnEvents appends newly extracted events to the bounded recent-events
// deque (§4.F). It does not itself trigger re-evaluation; the event shock
// factor riding in OnSentiment drives that.
func (a *Aggregator) OnEvents(symbol string, events []domain.Event) {
	if len(events) == 0 {
		return
	}
	st := a.stateFor(symbol)
	st.mu.Lock()
	st.recentEvents = append(st.recentEvents, events...)
	if len(st.recentEvents) > recentEventsCapacity {
		st.recentEvents = st.recentEvents[len(st.recentEvents)-recentEventsCapacity:]
	}
	st.mu.Unlock()
}

// availability reports which of the two component slots (sentiment+event,
// regime) are fresh enough to use, given the configured staleness window
// (§4.F: "staleness disqualification").
func (st *symbolState) availability(now time.Time, staleness time.Duration) (sentimentFresh, regimeFresh bool) {
	sentimentFresh = st.sentiment != nil && now.Sub(st.sentimentAt) <= staleness
	regimeFresh = st.regime != nil && now.Sub(st.regimeAt) <= staleness
	return
}

// evaluate runs the fan-in logic for symbol: compute availability, build
// CMS inputs with re-normalized weights if a component slot is stale or
// missing, apply the emission gate, and publish + persist on a fresh
// emission.
func (a *Aggregator) evaluate(ctx context.Context, symbol string, st *symbolState, now time.Time) {
	st.mu.Lock()
	sentimentFresh, regimeFresh := st.availability(now, a.staleness)

	// sentiment contributes 2 logical components (SI, ESF); regime
	// contributes 2 (VI, TS). Count how many of the 4 named CMS components
	// are currently usable.
	available := 0
	if sentimentFresh {
		available += 2 // SI + ESF
	}
	if regimeFresh {
		available += 2 // VI + TS
	}

	if available < 2 {
		st.state = domain.StateSuppressed
		st.mu.Unlock()
		a.log.Warn("suppressing symbol: fewer than 2 components available", "symbol", symbol, "available", available)
		return
	}

	weights := a.weights
	if !sentimentFresh {
		weights.Sentiment, weights.Event = 0, 0
	}
	if !regimeFresh {
		weights.Volatility, weights.Trend = 0, 0
	}
	weights = weights.Normalize()

	var in cms.Inputs
	if sentimentFresh {
		in.SentimentIndex = st.sentiment.SmoothedIndex
		in.EventShockFactor = st.sentiment.EventShockFactor
	}
	if regimeFresh {
		in.VolatilityIndex = st.regime.Inputs.VolatilityIndex
		in.TrendStrength = st.regime.Inputs.TrendStrength
	}

	degraded := !sentimentFresh || !regimeFresh
	recentEvents := append([]domain.Event(nil), st.recentEvents...)
	hasEmitted := st.hasEmitted
	lastCMS := st.lastEmittedCMS
	lastClass := st.lastEmittedClass
	price := st.lastPrice
	st.mu.Unlock()

	engine := cms.NewEngine(config.CMSConfig{Weights: weights, ThresholdBuy: a.thresholdBuy, ThresholdSell: a.thresholdSell})
	result := engine.Compute(symbol, in, now)

	emit := !hasEmitted || result.SignalClass != lastClass || abs(result.CMSScore-lastCMS) >= a.epsilon
	if !emit {
		a.setState(st, degraded)
		return
	}

	signal := domain.TradingSignal{
		ID:          uuid.NewString(),
		Symbol:      symbol,
		SignalClass: result.SignalClass,
		Price:       price,
		CMSScore:    result.CMSScore,
		Confidence:  result.Confidence,
		Reasons:     reasonsFromEvents(recentEvents),
		Explanation: result.Explanation,
		Timestamp:   now,
	}

	st.mu.Lock()
	st.hasEmitted = true
	st.lastEmittedCMS = result.CMSScore
	st.lastEmittedClass = result.SignalClass
	st.lastEmissionTime = now
	st.mu.Unlock()
	a.setState(st, degraded)

	a.publish(ctx, symbol, result, signal)
}

func (a *Aggregator) setState(st *symbolState, degraded bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if degraded {
		st.state = domain.StateDegraded
	} else {
		st.state = domain.StateReady
	}
}

// publish emits the signal on the bus and best-effort persists it; a store
// failure is logged but never blocks or rolls back the bus publication
// (§4.F: "best-effort persistence (store failure never blocks bus
// publication)").
func (a *Aggregator) publish(ctx context.Context, symbol string, result domain.CMSResult, signal domain.TradingSignal) {
	payload, err := bus.MarshalSignal(bus.SignalMessage{
		ID:          signal.ID,
		Symbol:      symbol,
		SignalClass: string(signal.SignalClass),
		Price:       signal.Price,
		CMSScore:    result.CMSScore,
		Confidence:  signal.Confidence,
		Reasons:     signal.Reasons,
		Explanation: signal.Explanation,
		Timestamp:   signal.Timestamp,
	})
	if err != nil {
		a.log.Error("failed to marshal signal", "symbol", symbol, "error", err.Error())
		return
	}

	if a.b != nil {
		if err := a.b.Publish(ctx, bus.ChannelSignals, payload); err != nil {
			a.log.Error("failed to publish signal", "symbol", symbol, "error", err.Error())
		}
	}

	if a.store != nil {
		if err := a.store.SaveSignal(ctx, signal); err != nil {
			a.log.Warn("failed to persist signal, publication already succeeded", "symbol", symbol, "error", err.Error())
		}
	}
}

// State returns symbol's current fan-in state (§4.F), primarily for
// diagnostics and tests.
func (a *Aggregator) State(symbol string) domain.AggregatorState {
	st := a.stateFor(symbol)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.state
}

func reasonsFromEvents(events []domain.Event) []string {
	var reasons []string
	for _, ev := range events {
		if ev.HighPriority {
			reasons = append(reasons, string(ev.EventType))
		}
	}
	return reasons
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
