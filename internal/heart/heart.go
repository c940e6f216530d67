// Package heart implements the heartbeat pacemaker driving the
// signalling state machine's heartbeat loop (§4.5): a fixed-rate ticker
// that calls back to send a beat and tracks round-trip time against the
// ack, declaring the peer dead if an ack is overdue.
package heart

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"github.com/fenwickvoice/voiceengine/internal/lazytime"
)

// ErrDead is returned from Run when the peer failed to ack within two
// heartbeat intervals.
var ErrDead = errors.New("heart: peer did not ack within two intervals")

// Pacemaker sends a heartbeat on a fixed interval and measures RTT
// against Echo calls.
type Pacemaker struct {
	// Rate is the interval between heartbeats (from the Ready payload's
	// heartbeat_interval, §4.5).
	Rate time.Duration

	// Pace is called once per tick; a non-nil error stops Run.
	Pace func(context.Context) error

	sentBeat atomic.Int64 // UnixNano
	echoBeat atomic.Int64 // UnixNano
}

// NewPacemaker constructs a Pacemaker with the given rate and pace
// callback.
func NewPacemaker(rate time.Duration, pace func(context.Context) error) *Pacemaker {
	return &Pacemaker{Rate: rate, Pace: pace}
}

// Echo records that a heartbeat ack was just received and returns the
// round-trip time since the most recently sent beat (§4.5 op 3/6, §8
// scenario 6).
func (p *Pacemaker) Echo() time.Duration {
	now := time.Now()
	p.echoBeat.Store(now.UnixNano())

	sent := p.sentBeat.Load()
	if sent == 0 {
		return 0
	}
	return now.Sub(time.Unix(0, sent))
}

// Dead reports whether the last sent beat has gone unacked for more
// than two heartbeat intervals.
func (p *Pacemaker) Dead() bool {
	sent := p.sentBeat.Load()
	echo := p.echoBeat.Load()
	if sent == 0 || echo == 0 {
		return false
	}
	return sent-echo > int64(p.Rate)*2
}

// Run blocks, calling Pace every Rate until ctx is cancelled or Pace
// returns an error. It returns ErrDead if an ack goes missing for two
// consecutive intervals, and nil on clean cancellation (§4.5, §7:
// cancellation during heartbeat exits cleanly without surfacing an
// error to the caller beyond this point).
func (p *Pacemaker) Run(ctx context.Context) error {
	var tick lazytime.Ticker
	tick.Reset(p.Rate)
	defer tick.Stop()

	for {
		if err := p.beat(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if p.Dead() {
			return ErrDead
		}

		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
		}
	}
}

func (p *Pacemaker) beat(ctx context.Context) error {
	beatCtx, cancel := context.WithTimeout(ctx, p.Rate)
	defer cancel()

	if err := p.Pace(beatCtx); err != nil {
		return errors.Wrap(err, "heart: pace failed")
	}
	p.sentBeat.Store(time.Now().UnixNano())
	return nil
}
