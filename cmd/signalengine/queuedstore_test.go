package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kosheduteam/signalengine/internal/domain"
	"github.com/kosheduteam/signalengine/internal/logging"
	"github.com/kosheduteam/signalengine/internal/resilience"
)

type fakeWriteStore struct {
	mu   sync.Mutex
	bars []domain.OHLCBar
}

func (f *fakeWriteStore) SaveBar(ctx context.Context, bar domain.OHLCBar) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bars = append(f.bars, bar)
	return nil
}

func (f *fakeWriteStore) SaveIndicatorSnapshot(ctx context.Context, snapshot domain.IndicatorSnapshot) error {
	return nil
}

func (f *fakeWriteStore) SaveRegimeSnapshot(ctx context.Context, snapshot domain.RegimeSnapshot) error {
	return nil
}

func (f *fakeWriteStore) savedBars() []domain.OHLCBar {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.OHLCBar(nil), f.bars...)
}

func TestQueuedStore_DrainsEnqueuedWritesAndRecordsAvailability(t *testing.T) {
	inner := &fakeWriteStore{}
	degradation := resilience.NewDegradationRegistry(time.Minute)
	qs := newQueuedStore(inner, 10, logging.New(&logging.Config{Output: "stdout"}), degradation)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go qs.drain(ctx)

	if err := qs.SaveBar(context.Background(), domain.OHLCBar{Symbol: "AAPL"}); err != nil {
		t.Fatalf("SaveBar returned an error: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for len(inner.savedBars()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if got := inner.savedBars(); len(got) != 1 || got[0].Symbol != "AAPL" {
		t.Fatalf("expected the queued bar to reach the inner store, got %v", got)
	}
	if av := degradation.Get("store"); av.Kind != resilience.Available {
		t.Errorf("expected store availability to be %q after a successful drain, got %q", resilience.Available, av.Kind)
	}
}

func TestQueuedStore_DropsOldestWhenFull(t *testing.T) {
	inner := &fakeWriteStore{}
	qs := newQueuedStore(inner, 1, logging.New(&logging.Config{Output: "stdout"}), nil)

	qs.queue.Push(func(context.Context) error { return nil })
	dropped := qs.queue.Push(func(context.Context) error { return nil })
	if !dropped {
		t.Error("expected pushing past capacity to report a dropped entry")
	}
	if got := qs.queue.Len(); got != 1 {
		t.Errorf("expected queue length to stay at capacity 1, got %d", got)
	}
}
