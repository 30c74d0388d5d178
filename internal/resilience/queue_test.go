package resilience

import (
	"testing"
	"time"
)

func TestBoundedQueue_DropsOldestAtCapacity(t *testing.T) {
	q := NewBoundedQueue[int](2, 0)
	q.Push(1)
	q.Push(2)
	dropped := q.Push(3)

	if !dropped {
		t.Error("expected Push to report a drop at capacity")
	}
	if q.Len() != 2 {
		t.Fatalf("expected length capped at 2, got %d", q.Len())
	}

	v, ok := q.Pop()
	if !ok || v != 2 {
		t.Errorf("expected oldest surviving item 2, got %v (ok=%v)", v, ok)
	}
}

func TestBoundedQueue_EvictsStaleItems(t *testing.T) {
	q := NewBoundedQueue[string](10, 20*time.Millisecond)
	q.Push("old")
	time.Sleep(30 * time.Millisecond)
	q.Push("new")

	if q.Len() != 1 {
		t.Fatalf("expected stale item evicted, length = %d", q.Len())
	}
	v, ok := q.Pop()
	if !ok || v != "new" {
		t.Errorf("expected the fresh item to survive, got %v (ok=%v)", v, ok)
	}
}

func TestBoundedQueue_PopEmptyReturnsFalse(t *testing.T) {
	q := NewBoundedQueue[int](5, 0)
	_, ok := q.Pop()
	if ok {
		t.Error("expected Pop on an empty queue to report ok=false")
	}
}
