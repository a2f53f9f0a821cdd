package stream

import (
	"encoding/json"
	"strings"

	"github.com/browseease/browseease/internal/domain"
)

// Frame type tags understood on the search stream. The backend may add
// new tags at any time; unknown frames are dropped rather than failing
// the session.
const (
	FrameStart    = "start"
	FrameCancel   = "cancel"
	FrameLog      = "log"
	FrameProgress = "progress"
	FramePartial  = "partial_results"
	FrameFinal    = "final_results"
	FrameError    = "error"
)

// Frame is the raw wire shape exchanged on a search stream. Server and
// client share this type; which fields are meaningful depends on Type.
type Frame struct {
	Type       string           `json:"type"`
	Query      string           `json:"query,omitempty"`
	MaxResults int              `json:"max_results,omitempty"`
	Message    string           `json:"message,omitempty"`
	Severity   string           `json:"severity,omitempty"`
	Percent    int              `json:"percent,omitempty"`
	Status     string           `json:"status,omitempty"`
	Products   []domain.Product `json:"products,omitempty"`
	Fatal      bool             `json:"fatal,omitempty"`
}

// Severity tags a log entry.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeveritySuccess  Severity = "success"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityProgress Severity = "progress"
)

// Event is the normalized domain-event union folded into session state.
// Exactly one concrete type is produced per recognized inbound frame.
type Event interface {
	isEvent()
}

// LogEvent carries one log line from the backend.
type LogEvent struct {
	Message  string
	Severity Severity
}

// ProgressEvent reports overall search progress in percent.
type ProgressEvent struct {
	Percent int
	Status  string
	Message string
}

// PartialResultEvent carries an incomplete, replaceable result snapshot.
type PartialResultEvent struct {
	Products []domain.Product
}

// FinalResultEvent carries the concluding result set of the search.
type FinalResultEvent struct {
	Products []domain.Product
}

// ErrorEvent is an explicit error frame from the backend.
type ErrorEvent struct {
	Message string
	Fatal   bool
}

// StreamClosed signals that the physical channel closed. It carries no
// state change of its own; the reconnect policy decides what happens next.
type StreamClosed struct {
	Err error
}

func (LogEvent) isEvent()           {}
func (ProgressEvent) isEvent()      {}
func (PartialResultEvent) isEvent() {}
func (FinalResultEvent) isEvent()   {}
func (ErrorEvent) isEvent()         {}
func (StreamClosed) isEvent()       {}

// Internal transitions folded through the same reducer as wire events.
type openedEvent struct{}

type cancelEvent struct{}

type exhaustedEvent struct {
	err error
}

func (openedEvent) isEvent()    {}
func (cancelEvent) isEvent()    {}
func (exhaustedEvent) isEvent() {}

// Normalize maps a raw inbound frame to exactly one Event. It returns
// false for malformed or unrecognized frames, which are dropped: the
// backend is external and may emit shapes this client does not know.
func Normalize(data []byte) (Event, bool) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, false
	}

	switch f.Type {
	case FrameLog:
		if f.Message == "" {
			return nil, false
		}
		sev := Severity(f.Severity)
		if !validSeverity(sev) {
			sev = ClassifySeverity(f.Message)
		}
		return LogEvent{Message: f.Message, Severity: sev}, true
	case FrameProgress:
		return ProgressEvent{Percent: f.Percent, Status: f.Status, Message: f.Message}, true
	case FramePartial:
		return PartialResultEvent{Products: f.Products}, true
	case FrameFinal:
		return FinalResultEvent{Products: f.Products}, true
	case FrameError:
		return ErrorEvent{Message: f.Message, Fatal: f.Fatal}, true
	default:
		return nil, false
	}
}

func validSeverity(s Severity) bool {
	switch s {
	case SeverityInfo, SeveritySuccess, SeverityWarning, SeverityError, SeverityProgress:
		return true
	}
	return false
}

// ClassifySeverity derives a severity tag from message text. The backend's
// structured severity field is authoritative when present; this text
// heuristic is only the fallback for bare log lines.
func ClassifySeverity(message string) Severity {
	m := strings.ToLower(message)
	switch {
	case strings.Contains(m, "error"), strings.Contains(m, "fail"), strings.Contains(m, "unable"):
		return SeverityError
	case strings.Contains(m, "complete"), strings.Contains(m, "found"), strings.Contains(m, "done"):
		return SeveritySuccess
	case strings.Contains(m, "searching"), strings.Contains(m, "scanning"), strings.Contains(m, "fetching"), strings.Contains(m, "..."):
		return SeverityProgress
	}
	return SeverityInfo
}
