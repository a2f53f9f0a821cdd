// Package stream implements the resilient real-time search-session layer:
// one logical search spanning any number of physical WebSocket connections,
// folded into a single coherent session state.
package stream

import (
	"crypto/sha1"
	"encoding/hex"
	"time"

	"github.com/browseease/browseease/internal/domain"
)

// Phase is the lifecycle phase of a logical search session.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseConnecting
	PhaseStreaming
	PhaseCompleted
	PhaseCancelled
	PhaseFailed
)

var phaseNames = map[Phase]string{
	PhaseIdle:       "idle",
	PhaseConnecting: "connecting",
	PhaseStreaming:  "streaming",
	PhaseCompleted:  "completed",
	PhaseCancelled:  "cancelled",
	PhaseFailed:     "failed",
}

func (p Phase) String() string {
	if s, ok := phaseNames[p]; ok {
		return s
	}
	return "unknown"
}

// Terminal reports whether the phase permits no further mutation.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseCancelled || p == PhaseFailed
}

// LogEntry is one deduplicated log line. Key is derived from the message
// text so replayed frames after a reconnect collapse onto one entry.
type LogEntry struct {
	Key      string
	Severity Severity
	Message  string
	At       time.Time
}

// LogKey returns the content-based identity for a log message.
func LogKey(message string) string {
	sum := sha1.Sum([]byte(message))
	return hex.EncodeToString(sum[:])
}

// SessionState is the consumer-visible state of one logical search.
// It is mutated only by the reducer, one event at a time, and is frozen
// once a terminal phase is reached.
type SessionState struct {
	Phase    Phase
	Logs     []LogEntry
	Progress int
	Status   string
	Partial  []domain.Product
	Results  []domain.Product
	Err      error

	haveResults bool
}

// Clone returns a deep copy safe to hand to subscribers.
func (s *SessionState) Clone() *SessionState {
	c := *s
	if len(s.Logs) > 0 {
		c.Logs = make([]LogEntry, len(s.Logs))
		copy(c.Logs, s.Logs)
	}
	if len(s.Partial) > 0 {
		c.Partial = make([]domain.Product, len(s.Partial))
		copy(c.Partial, s.Partial)
	}
	if len(s.Results) > 0 {
		c.Results = make([]domain.Product, len(s.Results))
		copy(c.Results, s.Results)
	}
	return &c
}

// Terminal reports whether the session has reached a terminal phase.
func (s *SessionState) Terminal() bool {
	return s.Phase.Terminal()
}

func (s *SessionState) hasLog(key string) bool {
	for _, e := range s.Logs {
		if e.Key == key {
			return true
		}
	}
	return false
}

// appendLog adds an entry unless one with the same content key exists.
// Reconnects can replay backend-side history verbatim; dedup keeps the
// log sequence stable across replays.
func (s *SessionState) appendLog(sev Severity, message string, now time.Time) {
	key := LogKey(message)
	if s.hasLog(key) {
		return
	}
	s.Logs = append(s.Logs, LogEntry{Key: key, Severity: sev, Message: message, At: now})
}

// reduce folds one normalized event into the session state and returns a
// fresh snapshot. Events arriving after a terminal phase are no-ops, which
// is what makes cancellation immediate at the session boundary: frames
// already in flight simply fall through here.
func reduce(s *SessionState, ev Event, now time.Time) *SessionState {
	if s.Terminal() {
		return s
	}

	next := s.Clone()
	switch e := ev.(type) {
	case LogEvent:
		next.appendLog(e.Severity, e.Message, now)

	case ProgressEvent:
		// Progress never regresses, even when a stale frame arrives late.
		p := e.Percent
		if p > 100 {
			p = 100
		}
		if p > next.Progress {
			next.Progress = p
		}
		if e.Status != "" {
			next.Status = e.Status
		}
		if e.Message != "" {
			sev := SeverityProgress
			switch e.Status {
			case "completed":
				sev = SeveritySuccess
			case "cancelled":
				sev = SeverityWarning
			}
			next.appendLog(sev, e.Message, now)
		}

	case PartialResultEvent:
		if !next.haveResults {
			next.Partial = e.Products
		}

	case FinalResultEvent:
		if !next.haveResults {
			next.Results = e.Products
			next.haveResults = true
			next.Phase = PhaseCompleted
		}

	case ErrorEvent:
		next.Err = &BackendError{Message: e.Message, Fatal: e.Fatal}
		next.appendLog(SeverityError, e.Message, now)
		if e.Fatal {
			next.Phase = PhaseFailed
		}

	case StreamClosed:
		// No direct state change; the reconnect policy reacts to closure.

	case openedEvent:
		next.Phase = PhaseStreaming

	case cancelEvent:
		next.Phase = PhaseCancelled
		next.Err = ErrCancelled
		next.appendLog(SeverityWarning, "Search cancelled", now)

	case exhaustedEvent:
		next.Phase = PhaseFailed
		next.Err = e.err

	default:
		return s
	}
	return next
}
