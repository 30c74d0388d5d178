package main

import (
	"context"
	"time"

	"github.com/kosheduteam/signalengine/internal/domain"
	"github.com/kosheduteam/signalengine/internal/logging"
	"github.com/kosheduteam/signalengine/internal/resilience"
)

// queuedStore sits in front of the pipeline's high-frequency per-tick writes
// (bars, indicator snapshots, regime snapshots) with a capacity-bounded,
// drop-oldest queue (store_write_queue_capacity) instead of writing
// synchronously on the hot path, matching apperr.Resource's documented
// "queue full... drop-oldest policy applied" behavior. A single background
// goroutine drains the queue against the real store.
type queuedStore struct {
	inner       store
	queue       *resilience.BoundedQueue[func(context.Context) error]
	log         *logging.Logger
	degradation *resilience.DegradationRegistry
}

func newQueuedStore(inner store, capacity int, log *logging.Logger, degradation *resilience.DegradationRegistry) *queuedStore {
	return &queuedStore{
		inner:       inner,
		queue:       resilience.NewBoundedQueue[func(context.Context) error](capacity, 0),
		log:         log.WithComponent("queuedstore"),
		degradation: degradation,
	}
}

func (q *queuedStore) SaveBar(ctx context.Context, bar domain.OHLCBar) error {
	return q.enqueue(func(ctx context.Context) error { return q.inner.SaveBar(ctx, bar) })
}

func (q *queuedStore) SaveIndicatorSnapshot(ctx context.Context, snapshot domain.IndicatorSnapshot) error {
	return q.enqueue(func(ctx context.Context) error { return q.inner.SaveIndicatorSnapshot(ctx, snapshot) })
}

func (q *queuedStore) SaveRegimeSnapshot(ctx context.Context, snapshot domain.RegimeSnapshot) error {
	return q.enqueue(func(ctx context.Context) error { return q.inner.SaveRegimeSnapshot(ctx, snapshot) })
}

func (q *queuedStore) enqueue(job func(context.Context) error) error {
	if dropped := q.queue.Push(job); dropped {
		q.log.Warn("store write queue full, dropped oldest pending write")
	}
	return nil
}

// drain pulls queued writes and executes them against the real store until
// ctx is cancelled. Each successful write is recorded in the degradation
// registry under the "store" collaborator; a failed write is logged and
// dropped, not retried and not recorded, so /health sees the write path go
// stale once successes stop.
func (q *queuedStore) drain(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for {
				job, ok := q.queue.Pop()
				if !ok {
					break
				}
				if err := job(ctx); err != nil {
					q.log.Warn("queued store write failed", "error", err.Error())
					continue
				}
				if q.degradation != nil {
					q.degradation.RecordGood("store", true)
				}
			}
		}
	}
}
