package stream

import (
	"sync"
	"time"
)

// ReconnectConfig controls how a session reacts to unexpected closure.
// The delay between attempts is fixed, not exponential: the backend is
// local-first and either comes back within a beat or not at all.
type ReconnectConfig struct {
	AutoReconnect bool
	Interval      time.Duration
	MaxAttempts   int
}

// DefaultReconnectConfig returns the policy used by the CLI.
func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		AutoReconnect: true,
		Interval:      2 * time.Second,
		MaxAttempts:   5,
	}
}

type reconnectState int

const (
	reconnectIdle reconnectState = iota
	reconnectWaiting
	reconnectAttempting
	reconnectExhausted
)

// Reconnector decides whether and when a closed connection is replaced.
// A pending scheduled attempt is cancellable: after Reset, the stale timer
// can still fire but its body observes the state change and does nothing.
type Reconnector struct {
	cfg ReconnectConfig

	mu       sync.Mutex
	state    reconnectState
	attempts int
	timer    *time.Timer
}

// NewReconnector creates a policy instance for one logical search.
func NewReconnector(cfg ReconnectConfig) *Reconnector {
	return &Reconnector{cfg: cfg}
}

// Schedule arranges one reconnect attempt after the configured interval
// and reports whether an attempt was scheduled. It returns false when
// auto-reconnect is disabled or the attempt budget is spent, in which
// case the policy is exhausted.
func (r *Reconnector) Schedule(fn func(attempt int)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.cfg.AutoReconnect {
		r.state = reconnectExhausted
		return false
	}
	if r.state == reconnectExhausted || r.attempts >= r.cfg.MaxAttempts {
		r.state = reconnectExhausted
		return false
	}

	r.attempts++
	attempt := r.attempts
	r.state = reconnectWaiting
	r.timer = time.AfterFunc(r.cfg.Interval, func() {
		r.mu.Lock()
		if r.state != reconnectWaiting {
			r.mu.Unlock()
			return
		}
		r.state = reconnectAttempting
		r.mu.Unlock()
		fn(attempt)
	})
	return true
}

// Opened records a successful open: the attempt counter resets so a later
// disconnect gets the full budget again.
func (r *Reconnector) Opened() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = 0
	r.state = reconnectIdle
}

// Reset cancels any pending attempt and forces the policy to idle. Used
// on cancellation and when a session is superseded, so a stale timer can
// never fire into a dead session.
func (r *Reconnector) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.attempts = 0
	r.state = reconnectIdle
}

// Exhausted reports whether the attempt budget is spent.
func (r *Reconnector) Exhausted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state == reconnectExhausted
}

// Attempts returns the attempts used since the last successful open.
func (r *Reconnector) Attempts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts
}
