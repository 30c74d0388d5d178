package nlpagg

import (
	"math"
	"testing"
	"time"

	"github.com/kosheduteam/signalengine/internal/domain"
)

func TestSnapshot_EmptyWindowIsZeroValue(t *testing.T) {
	a := NewAggregator(20, 24)
	snap := a.Snapshot("AAPL", time.Now())
	if snap.RawIndex != 0 || snap.WeightedIndex != 0 || snap.SmoothedIndex != 0 || snap.EventShockFactor != 0 {
		t.Errorf("expected all-zero aggregate for an unseen symbol, got %+v", snap)
	}
}

func TestIngestSentiment_RawIsArithmeticMean(t *testing.T) {
	a := NewAggregator(20, 24)
	now := time.Now()
	scores := []float64{0.5, -0.5, 1.0}
	for _, s := range scores {
		a.IngestSentiment("AAPL", s, 1.0, now)
	}
	snap := a.Snapshot("AAPL", now)
	want := (0.5 - 0.5 + 1.0) / 3.0
	if math.Abs(snap.RawIndex-want) > 1e-9 {
		t.Errorf("raw index = %v, want %v", snap.RawIndex, want)
	}
}

func TestIngestSentiment_WeightedFavorsHighConfidence(t *testing.T) {
	a := NewAggregator(20, 24)
	now := time.Now()
	a.IngestSentiment("AAPL", 1.0, 0.9, now)
	a.IngestSentiment("AAPL", -1.0, 0.1, now)
	snap := a.Snapshot("AAPL", now)
	if snap.WeightedIndex <= 0 {
		t.Errorf("expected weighted index to favor the high-confidence positive sample, got %v", snap.WeightedIndex)
	}
}

func TestIngestSentiment_WindowEvictsOldest(t *testing.T) {
	a := NewAggregator(2, 24)
	now := time.Now()
	a.IngestSentiment("AAPL", -1.0, 1.0, now)
	a.IngestSentiment("AAPL", 1.0, 1.0, now)
	a.IngestSentiment("AAPL", 1.0, 1.0, now)
	snap := a.Snapshot("AAPL", now)
	if snap.SampleCount != 2 {
		t.Fatalf("expected window capped at 2 samples, got %d", snap.SampleCount)
	}
	if snap.RawIndex != 1.0 {
		t.Errorf("expected the oldest (-1.0) sample evicted, raw index = %v", snap.RawIndex)
	}
}

func TestIngestSentiment_SmoothedIsEWMA(t *testing.T) {
	a := NewAggregator(20, 24)
	now := time.Now()
	a.IngestSentiment("AAPL", 0.0, 1.0, now)
	snap := a.Snapshot("AAPL", now)
	if snap.SmoothedIndex != 0.0 {
		t.Fatalf("expected smoothed index seeded from the first sample, got %v", snap.SmoothedIndex)
	}

	a.IngestSentiment("AAPL", 1.0, 1.0, now)
	snap = a.Snapshot("AAPL", now)
	want := smoothingAlpha*1.0 + (1-smoothingAlpha)*0.0
	if math.Abs(snap.SmoothedIndex-want) > 1e-9 {
		t.Errorf("smoothed index = %v, want %v", snap.SmoothedIndex, want)
	}
}

func TestIngestEvents_RecentHighSeverityProducesHighShock(t *testing.T) {
	a := NewAggregator(20, 24)
	now := time.Now()
	a.IngestEvents("AAPL", []domain.Event{
		{EventType: domain.EventBankruptcy, Severity: 0.9, Timestamp: now},
	})
	snap := a.Snapshot("AAPL", now)
	if snap.EventShockFactor <= 0.5 {
		t.Errorf("expected a high shock factor for a fresh severe event, got %v", snap.EventShockFactor)
	}
}

func TestIngestEvents_OldEventsDecayTowardZero(t *testing.T) {
	a := NewAggregator(20, 24)
	eventTime := time.Now().Add(-30 * 24 * time.Hour)
	now := time.Now()
	a.IngestEvents("AAPL", []domain.Event{
		{EventType: domain.EventBankruptcy, Severity: 0.9, Timestamp: eventTime},
	})
	snap := a.Snapshot("AAPL", now)
	if snap.EventShockFactor > 0.05 {
		t.Errorf("expected a stale event's shock to have decayed near zero, got %v", snap.EventShockFactor)
	}
}

func TestIngestEvents_NoDominantTypeBelowThreshold(t *testing.T) {
	a := NewAggregator(20, 24)
	now := time.Now()
	a.IngestEvents("AAPL", []domain.Event{
		{EventType: domain.EventEarnings, Severity: 0.3, Timestamp: now},
		{EventType: domain.EventMerger, Severity: 0.3, Timestamp: now},
		{EventType: domain.EventAcquisition, Severity: 0.3, Timestamp: now},
	})
	snap := a.Snapshot("AAPL", now)
	if snap.DominantEventType != "" {
		t.Errorf("expected no dominant type with 3 evenly-split types (freq 1/3 each, below 0.4), got %s at freq %v", snap.DominantEventType, snap.DominantEventFrequency)
	}
}

func TestIngestEvents_DominantTypeReportedAboveThreshold(t *testing.T) {
	a := NewAggregator(20, 24)
	now := time.Now()
	events := []domain.Event{
		{EventType: domain.EventEarnings, Severity: 0.3, Timestamp: now},
		{EventType: domain.EventEarnings, Severity: 0.3, Timestamp: now},
		{EventType: domain.EventEarnings, Severity: 0.3, Timestamp: now},
		{EventType: domain.EventMerger, Severity: 0.3, Timestamp: now},
	}
	a.IngestEvents("AAPL", events)
	snap := a.Snapshot("AAPL", now)
	if snap.DominantEventType != domain.EventEarnings {
		t.Errorf("expected EARNINGS as the dominant type at frequency 0.75, got %s", snap.DominantEventType)
	}
}

func TestShockFactor_BoundedZeroToOne(t *testing.T) {
	a := NewAggregator(20, 24)
	now := time.Now()
	var events []domain.Event
	for i := 0; i < 20; i++ {
		events = append(events, domain.Event{EventType: domain.EventBankruptcy, Severity: 1.0, Timestamp: now})
	}
	a.IngestEvents("AAPL", events)
	snap := a.Snapshot("AAPL", now)
	if snap.EventShockFactor < 0 || snap.EventShockFactor > 1 {
		t.Errorf("shock factor out of bounds: %v", snap.EventShockFactor)
	}
}
