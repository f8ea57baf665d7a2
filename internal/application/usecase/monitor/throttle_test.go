package monitor

import (
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu  sync.Mutex
	got []int
}

func (r *recorder) publish(v int) {
	r.mu.Lock()
	r.got = append(r.got, v)
	r.mu.Unlock()
}

func (r *recorder) values() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, len(r.got))
	copy(out, r.got)
	return out
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

func TestThrottleFirstOfferPublishesImmediately(t *testing.T) {
	rec := &recorder{}
	th := NewThrottle(time.Hour, rec.publish)
	defer th.Stop()

	th.Offer(1)
	if got := rec.values(); len(got) != 1 || got[0] != 1 {
		t.Fatalf("expected immediate publication of 1, got %v", got)
	}
}

func TestThrottleLatestWins(t *testing.T) {
	rec := &recorder{}
	th := NewThrottle(80*time.Millisecond, rec.publish)
	defer th.Stop()

	for i := 1; i <= 5; i++ {
		th.Offer(i)
	}
	if got := rec.values(); len(got) != 1 {
		t.Fatalf("expected only the leading publication, got %v", got)
	}

	waitFor(t, "trailing publication", func() bool { return len(rec.values()) == 2 })
	got := rec.values()
	if got[0] != 1 || got[1] != 5 {
		t.Fatalf("expected [1 5], got %v", got)
	}

	time.Sleep(200 * time.Millisecond)
	if got := rec.values(); len(got) != 2 {
		t.Errorf("expected no further publications, got %v", got)
	}
}

func TestThrottleIntervalResetsOnPublication(t *testing.T) {
	rec := &recorder{}
	th := NewThrottle(100*time.Millisecond, rec.publish)
	defer th.Stop()

	th.Offer(1)
	th.Offer(2)
	waitFor(t, "trailing publication", func() bool { return len(rec.values()) == 2 })

	// 刚刚发布过，新值需要等待一个完整间隔
	th.Offer(3)
	if got := rec.values(); len(got) != 2 {
		t.Fatalf("expected 3 to be deferred, got %v", got)
	}
	waitFor(t, "deferred publication", func() bool { return len(rec.values()) == 3 })
	if got := rec.values(); got[2] != 3 {
		t.Errorf("expected 3 last, got %v", got)
	}
}

func TestThrottleQuietPeriodPublishesImmediately(t *testing.T) {
	rec := &recorder{}
	th := NewThrottle(30*time.Millisecond, rec.publish)
	defer th.Stop()

	th.Offer(1)
	time.Sleep(80 * time.Millisecond)
	th.Offer(2)
	if got := rec.values(); len(got) != 2 || got[1] != 2 {
		t.Fatalf("expected immediate publication after quiet period, got %v", got)
	}
}

func TestThrottleStopCancelsPending(t *testing.T) {
	rec := &recorder{}
	th := NewThrottle(50*time.Millisecond, rec.publish)

	th.Offer(1)
	th.Offer(2)
	th.Stop()
	th.Offer(3)

	time.Sleep(150 * time.Millisecond)
	if got := rec.values(); len(got) != 1 || got[0] != 1 {
		t.Fatalf("expected only [1] after Stop, got %v", got)
	}
}
