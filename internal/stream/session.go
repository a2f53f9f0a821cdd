package stream

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/browseease/browseease/internal/domain"
)

const dialTimeout = 10 * time.Second

// Session runs one logical search at a time against a streaming search
// endpoint. A logical search may span several physical connections; the
// session hides reconnects behind a single monotonically-evolving state.
//
// All inbound frames are folded one at a time, in arrival order. The
// reducer is never invoked concurrently with itself for the same session.
type Session struct {
	addr   string
	dialer Dialer
	rcfg   ReconnectConfig
	logger *slog.Logger

	mu      sync.Mutex
	gen     int // logical search generation; stale callbacks check it and bail
	state   *SessionState
	conn    Transport
	recon   *Reconnector
	payload []byte
	ctx     context.Context
	cancel  context.CancelFunc
	subs    []chan *SessionState
}

// Option configures a Session.
type Option func(*Session)

// WithDialer substitutes the transport dialer. Used by tests.
func WithDialer(d Dialer) Option {
	return func(s *Session) { s.dialer = d }
}

// WithReconnect sets the reconnect policy for searches started later.
func WithReconnect(cfg ReconnectConfig) Option {
	return func(s *Session) { s.rcfg = cfg }
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// New creates a session that talks to the given WebSocket address.
func New(addr string, opts ...Option) *Session {
	s := &Session{
		addr:   addr,
		dialer: WSDialer{},
		rcfg:   DefaultReconnectConfig(),
		logger: slog.Default(),
		state:  &SessionState{Phase: PhaseIdle},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start begins a logical search. Any search already in flight is
// superseded: its connection is closed and its reconnect policy reset
// before the new one begins. The context bounds the initial dial only;
// the search itself runs until completion, cancellation, or reconnect
// exhaustion.
func (s *Session) Start(ctx context.Context, req domain.SearchRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(Frame{Type: FrameStart, Query: req.Query, MaxResults: req.MaxResults})
	if err != nil {
		return err
	}

	s.mu.Lock()
	old := s.conn
	s.conn = nil
	if s.recon != nil {
		s.recon.Reset()
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	s.recon = NewReconnector(s.rcfg)
	s.payload = payload
	s.state = &SessionState{Phase: PhaseConnecting}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.mu.Unlock()

	if old != nil {
		old.Close() // its OnClose sees a stale generation and does nothing
	}
	s.publish()

	if err := s.open(ctx, gen); err != nil {
		s.connClosed(gen, err)
		if !s.rcfg.AutoReconnect {
			return err
		}
	}
	return nil
}

// Cancel abandons the search in flight. It is a no-op unless the session
// is connecting or streaming. After Cancel returns, no further events
// mutate the state and no reconnect will ever be scheduled: the terminal
// phase makes any frame still in flight a no-op.
func (s *Session) Cancel() {
	s.mu.Lock()
	if s.state.Phase != PhaseConnecting && s.state.Phase != PhaseStreaming {
		s.mu.Unlock()
		return
	}
	s.foldLocked(cancelEvent{})
	s.recon.Reset()
	if s.cancel != nil {
		s.cancel()
	}
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	s.publish()
}

// State returns a snapshot of the current session state. Readers never
// observe a partially-applied event.
func (s *Session) State() *SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Subscribe returns a channel receiving a state snapshot after every
// fold. Slow subscribers lose intermediate snapshots, never the latest:
// each published state carries every guarantee accumulated so far.
func (s *Session) Subscribe() <-chan *SessionState {
	ch := make(chan *SessionState, 16)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch
}

// open dials one physical connection for generation gen and sends the
// start payload. It blocks until the channel is established or fails.
func (s *Session) open(ctx context.Context, gen int) error {
	s.mu.Lock()
	payload := s.payload
	s.mu.Unlock()

	dctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	t, err := s.dialer.Dial(dctx, s.addr, Callbacks{
		OnEvent: func(data []byte) { s.handleFrame(gen, data) },
		OnClose: func(err error) { s.connClosed(gen, err) },
		OnError: func(err error) { s.logger.Debug("search stream transport error", "error", err) },
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	if gen != s.gen || s.state.Terminal() {
		s.mu.Unlock()
		t.Close()
		return nil
	}
	s.conn = t
	s.recon.Opened()
	s.foldLocked(openedEvent{})
	s.mu.Unlock()
	s.publish()

	if err := t.Send(ctx, payload); err != nil {
		// The close callback routes this into the reconnect policy.
		t.Close()
	}
	return nil
}

// handleFrame folds one inbound frame into session state. Frames from a
// superseded generation or arriving after a terminal phase are discarded.
func (s *Session) handleFrame(gen int, data []byte) {
	ev, ok := Normalize(data)
	if !ok {
		return
	}

	s.mu.Lock()
	if gen != s.gen || s.state.Terminal() {
		s.mu.Unlock()
		return
	}
	s.foldLocked(ev)

	var conn Transport
	if s.state.Terminal() {
		conn = s.conn
		s.conn = nil
		s.recon.Reset()
	}
	s.mu.Unlock()

	s.publish()
	if conn != nil {
		conn.Close()
	}
}

// connClosed reacts to the loss of the physical connection for gen. While
// the logical search is still active it consults the reconnect policy;
// exhaustion surfaces as a terminal failure.
func (s *Session) connClosed(gen int, cause error) {
	s.mu.Lock()
	if gen != s.gen || s.state.Terminal() {
		s.mu.Unlock()
		return
	}
	s.conn = nil

	if s.recon.Schedule(func(attempt int) { s.redial(gen, attempt) }) {
		s.foldLocked(LogEvent{Message: "Connection lost, retrying...", Severity: SeverityWarning})
		s.mu.Unlock()
		s.publish()
		return
	}

	var ferr error
	switch {
	case s.rcfg.AutoReconnect:
		ferr = &ExhaustedReconnectError{Attempts: s.recon.Attempts(), Last: cause}
	case cause != nil:
		ferr = cause
	default:
		ferr = &TransportError{Err: errors.New("connection closed")}
	}
	s.foldLocked(exhaustedEvent{err: ferr})
	s.mu.Unlock()
	s.publish()
}

func (s *Session) redial(gen, attempt int) {
	s.mu.Lock()
	if gen != s.gen || s.state.Terminal() {
		s.mu.Unlock()
		return
	}
	ctx := s.ctx
	s.mu.Unlock()

	s.logger.Debug("reconnecting search stream", "attempt", attempt, "addr", s.addr)
	if err := s.open(ctx, gen); err != nil {
		s.connClosed(gen, err)
	}
}

// foldLocked applies one event through the reducer. Callers hold s.mu.
func (s *Session) foldLocked(ev Event) {
	s.state = reduce(s.state, ev, time.Now())
}

// publish hands the latest snapshot to every subscriber. Full subscriber
// buffers drop their oldest snapshot so the newest always lands.
func (s *Session) publish() {
	s.mu.Lock()
	snap := s.state.Clone()
	subs := make([]chan *SessionState, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}
