// Package backoff provides the exponential-backoff timer used when the
// signalling gateway reconnects after an unexpected socket close
// (§4.5, §7).
package backoff

import (
	"math"
	"math/rand"
	"time"

	"go.uber.org/atomic"

	"github.com/fenwickvoice/voiceengine/internal/lazytime"
)

const (
	factor = 2
	jitter = true
)

// Timer produces successively longer delays, bounded by max, each call
// to Next growing further from min until Reset is called (for example
// once a reconnect attempt finally succeeds).
type Timer struct {
	backoff Backoff
	timer   lazytime.Timer
}

// NewTimer returns a new uninitialized timer bounded to [min, max].
func NewTimer(min, max time.Duration) Timer {
	return Timer{backoff: NewBackoff(min, max)}
}

// Next initializes the timer if needed and returns a channel that fires
// when the next backoff delay elapses.
func (t *Timer) Next() <-chan time.Time {
	t.timer.Reset(t.backoff.Next())
	return t.timer.C
}

// Reset zeroes the attempt counter, so the next call to Next returns to
// the minimum delay.
func (t *Timer) Reset() {
	t.backoff.attempt.Store(0)
}

// Stop stops the internal timer and frees its resources. It does
// nothing if the timer is uninitialized.
func (t *Timer) Stop() {
	t.timer.Stop()
}

// Backoff is a time.Duration counter, starting at min. Each call to
// Next doubles the prior delay (with jitter), never exceeding max.
type Backoff struct {
	min, max float64 // seconds
	attempt  atomic.Int32
}

// NewBackoff creates a new backoff counter bounded to [min, max].
func NewBackoff(min, max time.Duration) Backoff {
	return Backoff{
		min: min.Seconds(),
		max: max.Seconds(),
	}
}

// Next returns the next backoff duration.
func (b *Backoff) Next() time.Duration {
	return b.forAttempt(b.attempt.Add(1) - 1)
}

// forAttempt returns the duration for a specific attempt, so many
// independent Backoffs can share this computation without storing
// per-instance state beyond the attempt counter. The first attempt is 0.
func (b *Backoff) forAttempt(attempt int32) time.Duration {
	if b.min >= b.max {
		return duration(b.max)
	}

	if attempt < 0 {
		attempt = math.MaxInt32
	}

	dur := b.min * math.Pow(factor, float64(attempt))
	if jitter {
		dur = rand.Float64()*(dur-b.min) + b.min
	}

	if dur < b.min {
		return duration(b.min)
	}
	if dur > b.max {
		return duration(b.max)
	}
	return duration(dur)
}

// duration converts a seconds float64 to a time.Duration without losing
// sub-second accuracy.
func duration(secs float64) time.Duration {
	ip, frac := math.Modf(secs)
	return time.Duration(ip)*time.Second + time.Duration(frac*float64(time.Second))
}
