package monitor

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultThrottleInterval 两次发布之间的最小间隔
const DefaultThrottleInterval = 500 * time.Millisecond

// Throttle 最新值优先的发布限流器
//
// Offer 立即记录最新值；距离上次发布已超过间隔时立即发布，
// 否则在间隔到达时发布一次当时的最新值。间隔只在发布时重置。
type Throttle[T any] struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	publish func(T)
	now     func() time.Time

	latest  T
	timer   *time.Timer
	pending bool
	stopped bool
}

func NewThrottle[T any](interval time.Duration, publish func(T)) *Throttle[T] {
	if interval <= 0 {
		interval = DefaultThrottleInterval
	}
	return &Throttle[T]{
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		publish: publish,
		now:     time.Now,
	}
}

// Offer 提交一个新值，不阻塞
func (t *Throttle[T]) Offer(v T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.latest = v
	if t.pending {
		// 已有一次尾部发布在排队，届时发布最新值
		return
	}

	now := t.now()
	delay := t.limiter.ReserveN(now, 1).DelayFrom(now)
	if delay <= 0 {
		t.publish(v)
		return
	}
	t.pending = true
	t.timer = time.AfterFunc(delay, t.flush)
}

func (t *Throttle[T]) flush() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || !t.pending {
		return
	}
	t.pending = false
	t.timer = nil
	t.publish(t.latest)
}

// Stop 取消尚未执行的发布，之后的 Offer 被忽略
func (t *Throttle[T]) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	t.pending = false
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
