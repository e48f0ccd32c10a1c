package quota

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/phambaophuc/alt-text-relay/internal/models"
	"go.uber.org/zap"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// countingStore records how often the tracker reaches the store.
type countingStore struct {
	Store
	calls atomic.Int32
}

func (s *countingStore) IncrementWithReset(ctx context.Context, identity, day string, n, limit int) (models.QuotaRecord, bool, error) {
	s.calls.Add(1)
	return s.Store.IncrementWithReset(ctx, identity, day, n, limit)
}

func newTestTracker(limit int) (*Tracker, *MemoryStore, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 3, 14, 22, 0, 0, 0, time.UTC)}
	store := NewMemoryStore()
	return NewTracker(store, limit, zap.NewNop(), WithClock(clock.Now)), store, clock
}

func TestCheckAndConsume(t *testing.T) {
	ctx := context.Background()

	t.Run("fills quota exactly then rejects", func(t *testing.T) {
		tracker, store, _ := newTestTracker(10)

		d, err := tracker.CheckAndConsume(ctx, "1.2.3.4", 10, false)
		if err != nil {
			t.Fatalf("Unexpected error %s", err)
		}
		if !d.Allowed {
			t.Fatal("Expected a batch of exactly the limit to be allowed")
		}
		if expected, actual := 0, d.Remaining; expected != actual {
			t.Errorf("Expected %d remaining, got %d", expected, actual)
		}

		d, err = tracker.CheckAndConsume(ctx, "1.2.3.4", 1, false)
		if err != nil {
			t.Fatalf("Unexpected error %s", err)
		}
		if d.Allowed {
			t.Error("Expected request over the limit to be rejected")
		}

		rec, ok, _ := store.Get(ctx, "1.2.3.4")
		if !ok {
			t.Fatal("Expected record to exist")
		}
		if expected, actual := 10, rec.Count; expected != actual {
			t.Errorf("Expected stored count %d, got %d", expected, actual)
		}
	})

	t.Run("rejected batch is all or nothing", func(t *testing.T) {
		tracker, store, _ := newTestTracker(10)

		if _, err := tracker.CheckAndConsume(ctx, "a", 7, false); err != nil {
			t.Fatalf("Unexpected error %s", err)
		}
		d, _ := tracker.CheckAndConsume(ctx, "a", 4, false)
		if d.Allowed {
			t.Fatal("Expected batch of 4 to be rejected with 3 remaining")
		}
		if expected, actual := 3, d.Remaining; expected != actual {
			t.Errorf("Expected %d remaining, got %d", expected, actual)
		}
		rec, _, _ := store.Get(ctx, "a")
		if expected, actual := 7, rec.Count; expected != actual {
			t.Errorf("Expected stored count %d, got %d", expected, actual)
		}
	})

	t.Run("privileged caller skips the store", func(t *testing.T) {
		clock := &fakeClock{now: time.Now()}
		store := &countingStore{Store: NewMemoryStore()}
		tracker := NewTracker(store, 1, zap.NewNop(), WithClock(clock.Now))

		for n := 0; n < 5; n++ {
			d, err := tracker.CheckAndConsume(ctx, "admin", 100, true)
			if err != nil {
				t.Fatalf("Unexpected error %s", err)
			}
			if !d.Allowed {
				t.Fatal("Expected privileged caller to be allowed")
			}
			if expected, actual := Unlimited, d.Remaining; expected != actual {
				t.Errorf("Expected remaining %d, got %d", expected, actual)
			}
		}
		if calls := store.calls.Load(); calls != 0 {
			t.Errorf("Expected no store calls, got %d", calls)
		}
	})

	t.Run("day rollover resets count", func(t *testing.T) {
		tracker, store, clock := newTestTracker(10)

		if _, err := tracker.CheckAndConsume(ctx, "b", 10, false); err != nil {
			t.Fatalf("Unexpected error %s", err)
		}
		clock.Advance(3 * time.Hour) // 01:00 UTC next day

		d, err := tracker.CheckAndConsume(ctx, "b", 2, false)
		if err != nil {
			t.Fatalf("Unexpected error %s", err)
		}
		if !d.Allowed {
			t.Fatal("Expected request on a new day to be allowed")
		}
		rec, _, _ := store.Get(ctx, "b")
		if expected, actual := 2, rec.Count; expected != actual {
			t.Errorf("Expected count %d after rollover, got %d", expected, actual)
		}
		if expected, actual := "2026-03-15", rec.Day; expected != actual {
			t.Errorf("Expected day %q, got %q", expected, actual)
		}
	})

	t.Run("identities are independent", func(t *testing.T) {
		tracker, _, _ := newTestTracker(2)

		if d, _ := tracker.CheckAndConsume(ctx, "x", 2, false); !d.Allowed {
			t.Fatal("Expected x to be allowed")
		}
		if d, _ := tracker.CheckAndConsume(ctx, "y", 2, false); !d.Allowed {
			t.Error("Expected y to be allowed regardless of x")
		}
	})
}

func TestCheckAndConsumeConcurrent(t *testing.T) {
	tracker, store, _ := newTestTracker(30)
	ctx := context.Background()

	var wg sync.WaitGroup
	var allowed atomic.Int32
	for n := 0; n < 100; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := tracker.CheckAndConsume(ctx, "same-ip", 1, false)
			if err != nil {
				t.Errorf("Unexpected error %s", err)
				return
			}
			if d.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	if expected, actual := int32(30), allowed.Load(); expected != actual {
		t.Errorf("Expected %d allowed requests, got %d", expected, actual)
	}
	rec, _, _ := store.Get(ctx, "same-ip")
	if expected, actual := 30, rec.Count; expected != actual {
		t.Errorf("Expected stored count %d, got %d", expected, actual)
	}
}

func TestUsage(t *testing.T) {
	tracker, _, clock := newTestTracker(10)
	ctx := context.Background()

	rec, err := tracker.Usage(ctx, "new")
	if err != nil {
		t.Fatalf("Unexpected error %s", err)
	}
	if rec.Count != 0 || rec.Day != "2026-03-14" {
		t.Errorf("Unexpected usage for unknown identity: %+v", rec)
	}

	tracker.CheckAndConsume(ctx, "new", 4, false)
	rec, _ = tracker.Usage(ctx, "new")
	if expected, actual := 4, rec.Count; expected != actual {
		t.Errorf("Expected usage %d, got %d", expected, actual)
	}

	clock.Advance(24 * time.Hour)
	rec, _ = tracker.Usage(ctx, "new")
	if expected, actual := 0, rec.Count; expected != actual {
		t.Errorf("Expected usage %d on the next day, got %d", expected, actual)
	}
}
