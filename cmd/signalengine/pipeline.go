package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/kosheduteam/signalengine/config"
	"github.com/kosheduteam/signalengine/internal/aggregator"
	"github.com/kosheduteam/signalengine/internal/bus"
	"github.com/kosheduteam/signalengine/internal/domain"
	"github.com/kosheduteam/signalengine/internal/executor"
	"github.com/kosheduteam/signalengine/internal/indicator"
	"github.com/kosheduteam/signalengine/internal/logging"
	"github.com/kosheduteam/signalengine/internal/nlpagg"
	"github.com/kosheduteam/signalengine/internal/regime"
	"github.com/kosheduteam/signalengine/internal/resilience"
)

// barWindowCapacity bounds each symbol's retained history passed to the
// indicator engine and regime classifier; the classifier itself uses at most
// cfg.CMS.RegimeWindowBars of it (§4.A/§4.C).
const barWindowCapacity = 200

// store is the persistence surface the pipeline's own writes need,
// structurally satisfied by postgres.DB exactly like every other
// component's narrow Store interface.
type store interface {
	SaveBar(ctx context.Context, bar domain.OHLCBar) error
	SaveIndicatorSnapshot(ctx context.Context, snapshot domain.IndicatorSnapshot) error
	SaveRegimeSnapshot(ctx context.Context, snapshot domain.RegimeSnapshot) error
}

// pipeline is the connective tissue the component table never assigns to a
// single lettered module: something has to own each symbol's rolling bar
// history and sentiment window, invoke the pure indicator/regime functions
// (A/C) on every price tick, and feed the aggregator (F) and executor (G)
// their per-symbol updates. Everything here is intentionally thin — pure
// computation lives in internal/indicator, internal/regime, internal/nlpagg;
// this file only routes bus messages into those calls.
type pipeline struct {
	cfg *config.Config
	log *logging.Logger

	aggregator  *aggregator.Aggregator
	executor    *executor.Executor
	degradation *resilience.DegradationRegistry

	mu      sync.Mutex
	bars    map[string][]domain.OHLCBar
	nlp     map[string]*nlpagg.Aggregator
	classes map[string]*regime.Classifier

	prices sync.Map // symbol -> float64, read by the simulated broker's PriceOracle
}

func newPipeline(cfg *config.Config, log *logging.Logger, degradation *resilience.DegradationRegistry) *pipeline {
	return &pipeline{
		cfg:         cfg,
		log:         log.WithComponent("pipeline"),
		degradation: degradation,
		bars:        make(map[string][]domain.OHLCBar),
		nlp:         make(map[string]*nlpagg.Aggregator),
		classes:     make(map[string]*regime.Classifier),
	}
}

// latestPrice is the simulated broker's PriceOracle (§6: simbroker fills
// market orders at the last price this pipeline observed).
func (p *pipeline) latestPrice(symbol string) (float64, error) {
	v, ok := p.prices.Load(symbol)
	if !ok {
		return 0, fmt.Errorf("no observed price for %s", symbol)
	}
	return v.(float64), nil
}

func (p *pipeline) nlpFor(symbol string) *nlpagg.Aggregator {
	p.mu.Lock()
	defer p.mu.Unlock()
	agg, ok := p.nlp[symbol]
	if !ok {
		agg = nlpagg.NewAggregator(20, 24)
		p.nlp[symbol] = agg
	}
	return agg
}

func (p *pipeline) classifierFor(symbol string) *regime.Classifier {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.classes[symbol]
	if !ok {
		c = regime.NewClassifier(p.cfg.CMS.RegimeWindowBars)
		p.classes[symbol] = c
	}
	return c
}

func (p *pipeline) appendBar(bar domain.OHLCBar) []domain.OHLCBar {
	p.mu.Lock()
	defer p.mu.Unlock()
	window := append(p.bars[bar.Symbol], bar)
	if len(window) > barWindowCapacity {
		window = window[len(window)-barWindowCapacity:]
	}
	p.bars[bar.Symbol] = window
	return window
}

// start launches one goroutine per bus channel this pipeline consumes. All
// of them exit when ctx is cancelled.
func (p *pipeline) start(ctx context.Context, b bus.Bus, st store) {
	go p.consumePrices(ctx, b, st)
	go p.consumeSentiment(ctx, b)
	go p.consumeEvents(ctx, b)
	go p.consumeSignals(ctx, b)
	go p.consumeIndicatorsForExecutor(ctx, b)
}

func (p *pipeline) consumePrices(ctx context.Context, b bus.Bus, st store) {
	msgs, unsubscribe, err := b.Subscribe(ctx, bus.ChannelPrices)
	if err != nil {
		p.log.Error("failed to subscribe to prices", "error", err.Error())
		return
	}
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var pm bus.PriceMessage
			if err := json.Unmarshal(msg.Payload, &pm); err != nil {
				p.log.Warn("malformed price message", "error", err.Error())
				continue
			}
			p.handlePrice(ctx, b, st, pm)
		}
	}
}

func (p *pipeline) handlePrice(ctx context.Context, b bus.Bus, st store, pm bus.PriceMessage) {
	bar := domain.OHLCBar{
		Symbol: pm.Symbol, Timestamp: pm.Timestamp,
		Open: pm.Open, High: pm.High, Low: pm.Low, Close: pm.Close, Volume: pm.Volume,
	}
	if !bar.Valid() {
		p.log.Warn("invalid bar on prices channel", "symbol", pm.Symbol)
		return
	}

	p.prices.Store(pm.Symbol, pm.Close)
	if p.degradation != nil {
		p.degradation.RecordGood("bus", true)
	}
	if err := st.SaveBar(ctx, bar); err != nil {
		p.log.Warn("failed to persist bar", "symbol", pm.Symbol, "error", err.Error())
	}

	window := p.appendBar(bar)

	if p.executor != nil {
		p.executor.OnPrice(pm.Symbol, pm.Close)
	}
	if p.aggregator != nil {
		p.aggregator.OnPrice(pm.Symbol, pm.Close)
	}

	snap, err := indicator.Snapshot(pm.Symbol, window)
	if err != nil {
		// Not enough bars yet for a full indicator set (§4.A); nothing to
		// publish or classify against until the window fills.
		return
	}
	if err := st.SaveIndicatorSnapshot(ctx, snap); err != nil {
		p.log.Warn("failed to persist indicator snapshot", "symbol", pm.Symbol, "error", err.Error())
	}
	if payload, err := bus.MarshalIndicator(bus.IndicatorMessage{
		Symbol: pm.Symbol, RSI: snap.RSI,
		MACDLine: snap.MACD.Line, MACDSignal: snap.MACD.Signal, MACDHistogram: snap.MACD.Histogram,
		BollingerUpper: snap.Bollinger.Upper, BollingerMiddle: snap.Bollinger.Middle, BollingerLower: snap.Bollinger.Lower,
		ATR: snap.ATR, Timestamp: pm.Timestamp,
	}); err == nil {
		b.Publish(ctx, bus.ChannelIndicators, payload)
	}

	if p.executor != nil {
		p.executor.OnIndicator(pm.Symbol, snap.ATR)
	}

	sentimentAgg := p.nlpFor(pm.Symbol).Snapshot(pm.Symbol, pm.Timestamp)
	regimeSnap, err := p.classifierFor(pm.Symbol).Classify(pm.Symbol, window, sentimentAgg.SmoothedIndex)
	if err != nil {
		// Fewer than the classifier's minimum bars (§4.C); stay quiet.
		return
	}
	if err := st.SaveRegimeSnapshot(ctx, regimeSnap); err != nil {
		p.log.Warn("failed to persist regime snapshot", "symbol", pm.Symbol, "error", err.Error())
	}
	if payload, err := bus.MarshalRegime(bus.RegimeMessage{
		Symbol: pm.Symbol, Regime: string(regimeSnap.Regime), Confidence: regimeSnap.Confidence, Timestamp: pm.Timestamp,
	}); err == nil {
		b.Publish(ctx, bus.ChannelRegime, payload)
	}

	if p.aggregator != nil {
		p.aggregator.OnRegime(ctx, pm.Symbol, regimeSnap, pm.Timestamp)
	}
}

func (p *pipeline) consumeSentiment(ctx context.Context, b bus.Bus) {
	msgs, unsubscribe, err := b.Subscribe(ctx, bus.ChannelSentiment)
	if err != nil {
		p.log.Error("failed to subscribe to sentiment", "error", err.Error())
		return
	}
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var sm bus.SentimentMessage
			if err := json.Unmarshal(msg.Payload, &sm); err != nil {
				p.log.Warn("malformed sentiment message", "error", err.Error())
				continue
			}
			agg := p.nlpFor(sm.Symbol)
			agg.IngestSentiment(sm.Symbol, sm.Score, sm.Confidence, sm.Timestamp)
			if p.aggregator != nil {
				snap := agg.Snapshot(sm.Symbol, sm.Timestamp)
				p.aggregator.OnSentiment(ctx, sm.Symbol, snap, sm.Timestamp)
			}
		}
	}
}

func (p *pipeline) consumeEvents(ctx context.Context, b bus.Bus) {
	msgs, unsubscribe, err := b.Subscribe(ctx, bus.ChannelEvents)
	if err != nil {
		p.log.Error("failed to subscribe to events", "error", err.Error())
		return
	}
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var em bus.EventMessage
			if err := json.Unmarshal(msg.Payload, &em); err != nil {
				p.log.Warn("malformed event message", "error", err.Error())
				continue
			}
			event := domain.Event{
				ID: em.ID, ArticleID: em.ArticleID, EventType: domain.EventType(em.EventType),
				Severity: em.Severity, HighPriority: em.HighPriority, Timestamp: em.Timestamp,
			}
			agg := p.nlpFor(em.Symbol)
			agg.IngestEvents(em.Symbol, []domain.Event{event})
			if p.aggregator != nil {
				p.aggregator.OnEvents(em.Symbol, []domain.Event{event})
				snap := agg.Snapshot(em.Symbol, em.Timestamp)
				p.aggregator.OnSentiment(ctx, em.Symbol, snap, em.Timestamp)
			}
		}
	}
}

func (p *pipeline) consumeSignals(ctx context.Context, b bus.Bus) {
	msgs, unsubscribe, err := b.Subscribe(ctx, bus.ChannelSignals)
	if err != nil {
		p.log.Error("failed to subscribe to signals", "error", err.Error())
		return
	}
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var sm bus.SignalMessage
			if err := json.Unmarshal(msg.Payload, &sm); err != nil {
				p.log.Warn("malformed signal message", "error", err.Error())
				continue
			}
			if p.executor == nil {
				continue
			}
			signal := domain.TradingSignal{
				ID: sm.ID, Symbol: sm.Symbol, SignalClass: domain.SignalClass(sm.SignalClass),
				Price: sm.Price, CMSScore: sm.CMSScore, Confidence: sm.Confidence,
				Reasons: sm.Reasons, Explanation: sm.Explanation, Timestamp: sm.Timestamp,
			}
			if reason := p.executor.OnSignal(ctx, signal, sm.Timestamp); reason != "" {
				p.log.Info("signal not admitted", "symbol", sm.Symbol, "reason", reason)
			}
		}
	}
}

// consumeIndicatorsForExecutor is intentionally a no-op subscriber: the
// executor's ATR feed already comes directly from handlePrice in-process
// (OnIndicator is called inline, not round-tripped through the bus), but a
// standalone executor process in a multi-binary deployment would subscribe
// here instead. Kept as a documented extension point rather than removed,
// since §6 lists indicators as an external interface independent of this
// particular process layout.
func (p *pipeline) consumeIndicatorsForExecutor(ctx context.Context, b bus.Bus) {
	<-ctx.Done()
}
