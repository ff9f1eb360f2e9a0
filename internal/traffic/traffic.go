// Package traffic keeps sliding windows of chat request outcomes for health reporting.
package traffic

import (
	"sync"
	"time"
)

// maxAge bounds how long outcomes are retained regardless of the queried window.
const maxAge = 15 * time.Minute

// Tracker maintains sliding windows of outcome timestamps. The zero value is ready to use.
// Success and error count toward the error rate; fallback replies are tracked
// separately because the request still succeeds.
type Tracker struct {
	mu            sync.Mutex
	now           func() time.Time
	successTimes  []time.Time
	errorTimes    []time.Time
	fallbackTimes []time.Time
}

// NewTracker returns a Tracker using the given clock; nil means time.Now.
func NewTracker(now func() time.Time) *Tracker {
	return &Tracker{now: now}
}

// RecordSuccess records a chat request answered with a generated reply.
func (t *Tracker) RecordSuccess() {
	t.recordOutcome(&t.successTimes)
}

// RecordError records a chat request that failed upstream (location, forecast, internal).
func (t *Tracker) RecordError() {
	t.recordOutcome(&t.errorTimes)
}

// RecordFallback records a chat request answered with the fallback reply. It
// also counts as a success for the error rate.
func (t *Tracker) RecordFallback() {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clock()
	t.fallbackTimes = append(t.fallbackTimes, now)
	t.successTimes = append(t.successTimes, now)
	t.pruneLocked(now)
}

func (t *Tracker) recordOutcome(slice *[]time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clock()
	*slice = append(*slice, now)
	t.pruneLocked(now)
}

// ErrorRate returns (errorCount, totalCount) within the window. totalCount = successes + errors.
func (t *Tracker) ErrorRate(window time.Duration) (errors, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.clock().Add(-window)
	errCount := countInWindow(t.errorTimes, cutoff)
	successCount := countInWindow(t.successTimes, cutoff)
	return errCount, errCount + successCount
}

// FallbackCount returns the number of fallback replies within the window.
func (t *Tracker) FallbackCount(window time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return countInWindow(t.fallbackTimes, t.clock().Add(-window))
}

func (t *Tracker) clock() time.Time {
	if t.now != nil {
		return t.now()
	}
	return time.Now()
}

// countInWindow counts timestamps that are not before the cutoff time.
func countInWindow(times []time.Time, cutoff time.Time) int {
	n := 0
	for _, ts := range times {
		if !ts.Before(cutoff) {
			n++
		}
	}
	return n
}

// pruneLocked drops timestamps older than maxAge. Must be called with mutex held.
func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-maxAge)
	prune := func(slice *[]time.Time) {
		times := *slice
		i := 0
		for ; i < len(times) && times[i].Before(cutoff); i++ {
		}
		if i > 0 {
			*slice = append(times[:0], times[i:]...)
		}
	}
	prune(&t.successTimes)
	prune(&t.errorTimes)
	prune(&t.fallbackTimes)
}
