package aggregator

import (
	"context"
	"testing"
	"time"

	"github.com/kosheduteam/signalengine/config"
	"github.com/kosheduteam/signalengine/internal/bus"
	"github.com/kosheduteam/signalengine/internal/bus/memorybus"
	"github.com/kosheduteam/signalengine/internal/domain"
)

func testConfig() config.CMSConfig {
	return config.CMSConfig{
		Weights:                config.CMSWeights{Sentiment: 0.4, Volatility: 0.3, Trend: 0.2, Event: 0.1},
		ThresholdBuy:           50,
		ThresholdSell:          50,
		SignalEmissionEpsilon:  5,
		SlotStalenessSeconds:   300,
	}
}

func TestEvaluate_SuppressedWithNoFreshComponents(t *testing.T) {
	a := New(testConfig(), memorybus.New(), nil)
	now := time.Now()
	st := a.stateFor("AAPL")

	// Directly evaluate with neither sentiment nor regime ever having
	// arrived: no component slot is fresh, so the symbol must be suppressed.
	a.evaluate(context.Background(), "AAPL", st, now)

	if got := a.State("AAPL"); got != domain.StateSuppressed {
		t.Errorf("expected SUPPRESSED with zero fresh component slots, got %s", got)
	}
}

func TestEvaluate_DegradedWithOnlyOneSlotFresh(t *testing.T) {
	a := New(testConfig(), memorybus.New(), nil)
	now := time.Now()

	a.OnSentiment(context.Background(), "AAPL", domain.SentimentAggregate{SmoothedIndex: 0.9, EventShockFactor: 0.1}, now)

	if got := a.State("AAPL"); got != domain.StateDegraded {
		t.Errorf("expected DEGRADED with only the sentiment slot fresh, got %s", got)
	}
}

func TestEvaluate_ReadyAndEmitsOnBothFreshComponents(t *testing.T) {
	b := memorybus.New()
	ch, unsubscribe, _ := b.Subscribe(context.Background(), bus.ChannelSignals)
	defer unsubscribe()

	a := New(testConfig(), b, nil)
	now := time.Now()

	a.OnSentiment(context.Background(), "AAPL", domain.SentimentAggregate{SmoothedIndex: 0.9, EventShockFactor: 0.1}, now)
	a.OnRegime(context.Background(), "AAPL", domain.RegimeSnapshot{
		Regime:     domain.RegimeBull,
		Confidence: 0.8,
		Inputs:     domain.RegimeInputs{VolatilityIndex: 0.1, TrendStrength: 0.8},
	}, now)

	if got := a.State("AAPL"); got != domain.StateReady {
		t.Errorf("expected READY with both components fresh, got %s", got)
	}

	select {
	case msg := <-ch:
		if len(msg.Payload) == 0 {
			t.Error("expected a non-empty signal payload")
		}
	case <-time.After(time.Second):
		t.Fatal("expected a signal to be published on first emission")
	}
}

func TestEvaluate_NoReEmissionBelowEpsilonAndSameClass(t *testing.T) {
	b := memorybus.New()
	ch, unsubscribe, _ := b.Subscribe(context.Background(), bus.ChannelSignals)
	defer unsubscribe()

	a := New(testConfig(), b, nil)
	now := time.Now()

	a.OnRegime(context.Background(), "AAPL", domain.RegimeSnapshot{
		Inputs: domain.RegimeInputs{VolatilityIndex: 0.1, TrendStrength: 0.8},
	}, now)
	a.OnSentiment(context.Background(), "AAPL", domain.SentimentAggregate{SmoothedIndex: 0.9, EventShockFactor: 0.1}, now)

	// drain both prior emissions: the regime-only update emits on its own,
	// and the sentiment update that follows emits again on the class change
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected first emission")
	}
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected second emission")
	}

	// a near-identical re-evaluation with the same class and a negligible
	// CMS delta must not re-emit.
	a.OnSentiment(context.Background(), "AAPL", domain.SentimentAggregate{SmoothedIndex: 0.901, EventShockFactor: 0.1}, now)

	select {
	case msg := <-ch:
		t.Fatalf("unexpected re-emission below the epsilon gate: %+v", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestEvaluate_DegradedWhenOneComponentStale(t *testing.T) {
	a := New(testConfig(), memorybus.New(), nil)
	old := time.Now().Add(-time.Hour)
	now := time.Now()

	a.OnSentiment(context.Background(), "AAPL", domain.SentimentAggregate{SmoothedIndex: 0.9, EventShockFactor: 0.1}, old)
	a.OnRegime(context.Background(), "AAPL", domain.RegimeSnapshot{
		Inputs: domain.RegimeInputs{VolatilityIndex: 0.1, TrendStrength: 0.8},
	}, now)

	if got := a.State("AAPL"); got != domain.StateDegraded {
		t.Errorf("expected DEGRADED with a stale sentiment slot, got %s", got)
	}
}
