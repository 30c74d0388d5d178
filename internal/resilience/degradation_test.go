package resilience

import (
	"testing"
	"time"
)

func TestDegradationRegistry_UnavailableWithNoObservations(t *testing.T) {
	r := NewDegradationRegistry(time.Minute)
	av := r.Get("broker")
	if av.Kind != Unavailable {
		t.Errorf("expected Unavailable with no observations, got %s", av.Kind)
	}
}

func TestDegradationRegistry_AvailableWhileFresh(t *testing.T) {
	r := NewDegradationRegistry(time.Minute)
	r.RecordGood("broker", 42)
	av := r.Get("broker")
	if av.Kind != Available || av.Value != 42 {
		t.Errorf("expected Available(42), got %+v", av)
	}
}

func TestDegradationRegistry_StaleAfterWindow(t *testing.T) {
	r := NewDegradationRegistry(20 * time.Millisecond)
	r.RecordGood("broker", "last-good")
	time.Sleep(30 * time.Millisecond)

	av := r.Get("broker")
	if av.Kind != Stale {
		t.Errorf("expected Stale after the window elapsed, got %s", av.Kind)
	}
	if av.Value != "last-good" {
		t.Errorf("expected the stale value to carry the last-good payload, got %v", av.Value)
	}
}

func TestDegradationRegistry_FallbackUsedWithNoObservation(t *testing.T) {
	r := NewDegradationRegistry(time.Minute)
	r.SetFallback("store", "default-config")
	av := r.Get("store")
	if av.Kind != Stale || av.Value != "default-config" {
		t.Errorf("expected the registered fallback to be reported as Stale, got %+v", av)
	}
}
