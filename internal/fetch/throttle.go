package fetch

import (
	"math/rand"
	"sync"
	"time"
)

// IntervalThrottle enforces a randomized minimum delay between outbound
// requests so a single upstream host is never hammered, even when several
// categories share one client.
type IntervalThrottle struct {
	mu          sync.Mutex
	minInterval time.Duration
	maxInterval time.Duration
	lastCall    time.Time

	sleep func(time.Duration)
}

func NewIntervalThrottle(minInterval, maxInterval time.Duration) *IntervalThrottle {
	if maxInterval < minInterval {
		maxInterval = minInterval
	}
	return &IntervalThrottle{
		minInterval: minInterval,
		maxInterval: maxInterval,
		sleep:       time.Sleep,
	}
}

// WaitTurn blocks until the interval since the previous call has been
// respected. When a wait is needed, the sleep is drawn uniformly from
// [minInterval, maxInterval] minus the time already elapsed; the last-call
// timestamp is taken after the sleep completes.
func (t *IntervalThrottle) WaitTurn() {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := time.Since(t.lastCall)
	if elapsed < t.minInterval {
		span := t.maxInterval - t.minInterval
		target := t.minInterval
		if span > 0 {
			target += time.Duration(rand.Int63n(int64(span)))
		}
		if d := target - elapsed; d > 0 {
			t.sleep(d)
		}
	}
	t.lastCall = time.Now()
}
