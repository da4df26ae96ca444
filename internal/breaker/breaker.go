// Package breaker implements a per-upstream circuit breaker: timeout /
// error-rate / volume thresholds with half-open recovery, grounded on the
// teacher's internal/upstream/types.StateManager mutex-guarded state-machine
// idiom (generalized from connection-state tracking to breaker semantics).
package breaker

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/mcp-gateway/toolkit/internal/gwerrors"
)

// State is one of the three breaker states of spec §4.4.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// Options parameterize one Breaker, matching spec §4.4's fields.
type Options struct {
	Timeout                  time.Duration
	ErrorThresholdPercentage float64
	ResetTimeout             time.Duration
	VolumeThreshold          int
}

// DefaultOptions matches spec §6's documented resilience defaults.
func DefaultOptions() Options {
	return Options{
		Timeout:                  30 * time.Second,
		ErrorThresholdPercentage: 50,
		ResetTimeout:             30 * time.Second,
		VolumeThreshold:          5,
	}
}

// Subscriber observes state transitions (telemetry hook of spec §4.4).
type Subscriber func(sessionName string, from, to State)

// Breaker wraps one Session's calls with timeout/error-rate tripping and
// half-open recovery probing.
type Breaker struct {
	sessionName string
	opts        Options

	mu            sync.Mutex
	state         State
	errorCount    int
	totalCount    int
	openedAt      time.Time
	currentReset  time.Duration
	resetBackoff  *backoff.ExponentialBackOff
	probeInFlight bool

	subscribers []Subscriber
}

// New constructs a closed Breaker for sessionName. Consecutive trips (an
// open breaker whose half-open probe fails again) grow the reset timeout
// exponentially off opts.ResetTimeout, capped at 8x; a probe that succeeds
// and returns the breaker to Closed resets the growth.
func New(sessionName string, opts Options) *Breaker {
	rb := backoff.NewExponentialBackOff()
	rb.InitialInterval = opts.ResetTimeout
	rb.MaxInterval = opts.ResetTimeout * 8
	rb.Multiplier = 2
	rb.RandomizationFactor = 0
	rb.Reset()
	return &Breaker{
		sessionName:  sessionName,
		opts:         opts,
		state:        Closed,
		currentReset: opts.ResetTimeout,
		resetBackoff: rb,
	}
}

// Subscribe registers a callback invoked on every state transition.
func (b *Breaker) Subscribe(fn Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, fn)
}

// State returns the breaker's current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Stats exposes the rolling window counters for diagnostics.
type Stats struct {
	State      State
	ErrorCount int
	TotalCount int
	OpenedAt   time.Time
}

func (b *Breaker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{State: b.state, ErrorCount: b.errorCount, TotalCount: b.totalCount, OpenedAt: b.openedAt}
}

// admit decides whether a call may proceed, and whether it is the single
// half-open probe. It performs the open -> half_open transition lazily on
// the next call after resetTimeout has elapsed (spec §4.4).
func (b *Breaker) admit() (proceed bool, isProbe bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		return true, false
	case Open:
		if time.Since(b.openedAt) < b.currentReset {
			return false, false
		}
		b.transitionLocked(HalfOpen)
		b.probeInFlight = true
		return true, true
	case HalfOpen:
		if b.probeInFlight {
			return false, false
		}
		b.probeInFlight = true
		return true, true
	default:
		return false, false
	}
}

func (b *Breaker) transitionLocked(to State) {
	from := b.state
	b.state = to
	if to == Open {
		b.openedAt = time.Now()
		if from == HalfOpen {
			// a failed probe: grow the reset timeout for the next attempt.
			b.currentReset = b.resetBackoff.NextBackOff()
		} else {
			b.currentReset = b.opts.ResetTimeout
		}
	}
	if to == Closed {
		b.errorCount = 0
		b.totalCount = 0
		b.resetBackoff.Reset()
		b.currentReset = b.opts.ResetTimeout
	}
	subs := append([]Subscriber(nil), b.subscribers...)
	name := b.sessionName
	go func() {
		for _, s := range subs {
			s(name, from, to)
		}
	}()
}

// record folds one call outcome into the rolling window and evaluates the
// closed -> open trip condition, or the half-open probe's outcome.
func (b *Breaker) record(isTimeout, failed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case HalfOpen:
		b.probeInFlight = false
		if failed || isTimeout {
			b.transitionLocked(Open)
		} else {
			b.transitionLocked(Closed)
		}
		return
	case Closed:
		b.totalCount++
		if failed || isTimeout {
			b.errorCount++
		}
		if b.totalCount >= b.opts.VolumeThreshold {
			rate := float64(b.errorCount) / float64(b.totalCount) * 100
			if rate >= b.opts.ErrorThresholdPercentage {
				b.transitionLocked(Open)
			}
		}
	}
}

// errCircuitOpen builds the CIRCUIT_OPEN error carrying sessionName.
func (b *Breaker) errCircuitOpen() error {
	return gwerrors.New(gwerrors.KindCircuitOpen, "breaker", "Call",
		"circuit is open for session", map[string]any{"sessionName": b.sessionName})
}

// Call races fn against b.opts.Timeout and folds the outcome into the
// breaker's state, per spec §4.4's timeout-counts-as-error rule. When the
// breaker is open and not yet eligible for a half-open probe, fn is never
// invoked and CIRCUIT_OPEN is returned immediately.
func (b *Breaker) Call(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	proceed, _ := b.admit()
	if !proceed {
		return nil, b.errCircuitOpen()
	}

	callCtx, cancel := context.WithTimeout(ctx, b.opts.Timeout)
	defer cancel()

	type outcome struct {
		res any
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		res, err := fn(callCtx)
		ch <- outcome{res, err}
	}()

	select {
	case o := <-ch:
		if o.err != nil {
			b.record(false, true)
			return nil, o.err
		}
		b.record(false, false)
		return o.res, nil
	case <-callCtx.Done():
		b.record(true, true)
		return nil, gwerrors.New(gwerrors.KindUpstreamTimeout, "breaker", "Call",
			"upstream call timed out", map[string]any{"sessionName": b.sessionName, "timeout": b.opts.Timeout.String()})
	}
}
