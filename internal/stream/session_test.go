package stream

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/browseease/browseease/internal/domain"
)

// fakeTransport is a scriptable Transport. Tests push frames through the
// registered callbacks to drive the session without a real socket.
type fakeTransport struct {
	cb Callbacks

	mu     sync.Mutex
	closed bool
	sent   [][]byte
}

func (t *fakeTransport) Send(_ context.Context, payload []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, payload)
	return nil
}

func (t *fakeTransport) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.mu.Unlock()
	t.cb.OnClose(nil)
}

// drop simulates an unexpected connection loss.
func (t *fakeTransport) drop(err error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.mu.Unlock()
	t.cb.OnClose(err)
}

// waitStarted blocks until the session has registered this connection
// and sent the start payload on it.
func (t *fakeTransport) waitStarted(tb testing.TB) {
	tb.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		t.mu.Lock()
		n := len(t.sent)
		t.mu.Unlock()
		if n > 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	tb.Fatal("Start payload never sent")
}

func (t *fakeTransport) emit(tb testing.TB, f Frame) {
	tb.Helper()
	data, err := json.Marshal(f)
	if err != nil {
		tb.Fatalf("Failed to marshal frame: %v", err)
	}
	t.cb.OnEvent(data)
}

// fakeDialer hands out fakeTransports, optionally failing the first few
// dials. Every successful dial is announced on the opened channel.
type fakeDialer struct {
	mu       sync.Mutex
	failures int
	dials    int
	opened   chan *fakeTransport
}

func newFakeDialer(failures int) *fakeDialer {
	return &fakeDialer{failures: failures, opened: make(chan *fakeTransport, 8)}
}

func (d *fakeDialer) Dial(_ context.Context, _ string, cb Callbacks) (Transport, error) {
	d.mu.Lock()
	d.dials++
	fail := d.dials <= d.failures
	d.mu.Unlock()

	if fail {
		return nil, &ConnectError{Addr: "test", Err: errors.New("dial refused")}
	}
	t := &fakeTransport{cb: cb}
	d.opened <- t
	return t, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func waitTransport(t *testing.T, d *fakeDialer) *fakeTransport {
	t.Helper()
	select {
	case tr := <-d.opened:
		return tr
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for a connection")
		return nil
	}
}

func waitPhase(t *testing.T, s *Session, want Phase) *SessionState {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if st := s.State(); st.Phase == want {
			return st
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for phase %s, last was %s", want, s.State().Phase)
	return nil
}

func testReconnect(attempts int) ReconnectConfig {
	return ReconnectConfig{AutoReconnect: true, Interval: time.Millisecond, MaxAttempts: attempts}
}

func TestSessionHappyPath(t *testing.T) {
	d := newFakeDialer(0)
	sess := New("ws://test", WithDialer(d), WithReconnect(testReconnect(3)))

	if err := sess.Start(context.Background(), domain.SearchRequest{Query: "laptops under 60k"}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	tr := waitTransport(t, d)

	if got := sess.State().Phase; got != PhaseStreaming {
		t.Fatalf("Expected streaming after open, got %s", got)
	}
	if len(tr.sent) != 1 {
		t.Fatalf("Expected start payload sent once, got %d", len(tr.sent))
	}
	var start Frame
	if err := json.Unmarshal(tr.sent[0], &start); err != nil {
		t.Fatalf("Failed to decode start payload: %v", err)
	}
	if start.Type != FrameStart || start.Query != "laptops under 60k" {
		t.Errorf("Expected start frame with query, got %+v", start)
	}

	tr.emit(t, Frame{Type: FrameLog, Message: "Starting search for: laptops under 60k", Severity: "info"})
	tr.emit(t, Frame{Type: FrameProgress, Percent: 35, Status: "running", Message: "Searching sources"})
	tr.emit(t, Frame{Type: FramePartial, Products: []domain.Product{{ID: "p1"}}})
	tr.emit(t, Frame{Type: FrameProgress, Percent: 90, Status: "running", Message: "Ranking results"})
	tr.emit(t, Frame{Type: FrameFinal, Products: []domain.Product{{ID: "p1"}, {ID: "p2"}}})

	st := sess.State()
	if st.Phase != PhaseCompleted {
		t.Fatalf("Expected completed, got %s", st.Phase)
	}
	if st.Progress != 90 {
		t.Errorf("Expected progress 90, got %d", st.Progress)
	}
	if len(st.Results) != 2 {
		t.Errorf("Expected 2 results, got %d", len(st.Results))
	}
	if st.Err != nil {
		t.Errorf("Expected no error, got %v", st.Err)
	}
}

func TestSessionRejectsEmptyQuery(t *testing.T) {
	sess := New("ws://test", WithDialer(newFakeDialer(0)))
	if err := sess.Start(context.Background(), domain.SearchRequest{Query: "   "}); err == nil {
		t.Error("Expected validation error for blank query")
	}
}

func TestSessionCancelFreezesState(t *testing.T) {
	d := newFakeDialer(0)
	sess := New("ws://test", WithDialer(d), WithReconnect(testReconnect(3)))

	if err := sess.Start(context.Background(), domain.SearchRequest{Query: "ev scooters"}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	tr := waitTransport(t, d)

	sess.Cancel()

	st := sess.State()
	if st.Phase != PhaseCancelled {
		t.Fatalf("Expected cancelled, got %s", st.Phase)
	}
	if !errors.Is(st.Err, ErrCancelled) {
		t.Errorf("Expected ErrCancelled, got %v", st.Err)
	}

	// Frames still in flight after cancellation change nothing.
	tr.emit(t, Frame{Type: FrameFinal, Products: []domain.Product{{ID: "p1"}}})
	tr.emit(t, Frame{Type: FrameProgress, Percent: 100, Status: "completed"})

	st = sess.State()
	if st.Phase != PhaseCancelled || st.Results != nil || st.Progress != 0 {
		t.Errorf("Expected frozen cancelled state, got %+v", st)
	}

	// A second cancel is a no-op.
	sess.Cancel()
	if got := len(sess.State().Logs); got != 1 {
		t.Errorf("Expected single cancellation log, got %d", got)
	}
}

func TestSessionReconnectReplayDedup(t *testing.T) {
	d := newFakeDialer(0)
	sess := New("ws://test", WithDialer(d), WithReconnect(testReconnect(3)))

	if err := sess.Start(context.Background(), domain.SearchRequest{Query: "phones"}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	tr := waitTransport(t, d)

	tr.emit(t, Frame{Type: FrameLog, Message: "Searching Amazon...", Severity: "progress"})
	tr.emit(t, Frame{Type: FrameProgress, Percent: 40, Status: "running"})
	tr.drop(errors.New("connection reset"))

	tr2 := waitTransport(t, d)
	if got := sess.State().Phase; got != PhaseStreaming {
		t.Fatalf("Expected streaming after reconnect, got %s", got)
	}

	// The backend replays its history on the fresh channel.
	tr2.emit(t, Frame{Type: FrameLog, Message: "Searching Amazon...", Severity: "progress"})
	tr2.emit(t, Frame{Type: FrameProgress, Percent: 10, Status: "running"})
	tr2.emit(t, Frame{Type: FrameFinal, Products: []domain.Product{{ID: "p1"}}})

	st := sess.State()
	if st.Phase != PhaseCompleted {
		t.Fatalf("Expected completed, got %s", st.Phase)
	}
	if st.Progress != 40 {
		t.Errorf("Expected replayed progress to not regress, got %d", st.Progress)
	}

	var searching, retrying int
	for _, e := range st.Logs {
		switch e.Message {
		case "Searching Amazon...":
			searching++
		case "Connection lost, retrying...":
			retrying++
		}
	}
	if searching != 1 {
		t.Errorf("Expected replayed log deduplicated to 1 entry, got %d", searching)
	}
	if retrying != 1 {
		t.Errorf("Expected one retry notice, got %d", retrying)
	}
}

func TestSessionReconnectAttemptsResetOnOpen(t *testing.T) {
	d := newFakeDialer(0)
	sess := New("ws://test", WithDialer(d), WithReconnect(testReconnect(2)))

	if err := sess.Start(context.Background(), domain.SearchRequest{Query: "phones"}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Each successful open restores the full budget, so the session
	// survives more drops than MaxAttempts in total.
	tr := waitTransport(t, d)
	for i := 0; i < 4; i++ {
		tr.waitStarted(t)
		tr.drop(errors.New("connection reset"))
		tr = waitTransport(t, d)
	}
	tr.waitStarted(t)

	tr.emit(t, Frame{Type: FrameFinal, Products: []domain.Product{{ID: "p1"}}})
	if got := sess.State().Phase; got != PhaseCompleted {
		t.Errorf("Expected completed after repeated reconnects, got %s", got)
	}
}

func TestSessionExhaustionAfterExactBudget(t *testing.T) {
	d := newFakeDialer(100) // every dial fails
	sess := New("ws://test", WithDialer(d), WithReconnect(testReconnect(3)))

	if err := sess.Start(context.Background(), domain.SearchRequest{Query: "phones"}); err != nil {
		t.Fatalf("Start with auto-reconnect should not surface the dial error, got %v", err)
	}

	st := waitPhase(t, sess, PhaseFailed)

	var exhausted *ExhaustedReconnectError
	if !errors.As(st.Err, &exhausted) {
		t.Fatalf("Expected ExhaustedReconnectError, got %v", st.Err)
	}
	if exhausted.Attempts != 3 {
		t.Errorf("Expected exactly 3 attempts, got %d", exhausted.Attempts)
	}
	// One initial dial plus one per reconnect attempt.
	if got := d.dialCount(); got != 4 {
		t.Errorf("Expected 4 dials, got %d", got)
	}
}

func TestSessionNoReconnectSurfacesDialError(t *testing.T) {
	d := newFakeDialer(1)
	sess := New("ws://test", WithDialer(d), WithReconnect(ReconnectConfig{AutoReconnect: false}))

	err := sess.Start(context.Background(), domain.SearchRequest{Query: "phones"})
	var cerr *ConnectError
	if !errors.As(err, &cerr) {
		t.Fatalf("Expected ConnectError, got %v", err)
	}
	if got := sess.State().Phase; got != PhaseFailed {
		t.Errorf("Expected failed, got %s", got)
	}
}

func TestSessionStartSupersedes(t *testing.T) {
	d := newFakeDialer(0)
	sess := New("ws://test", WithDialer(d), WithReconnect(testReconnect(3)))

	if err := sess.Start(context.Background(), domain.SearchRequest{Query: "phones"}); err != nil {
		t.Fatalf("First start failed: %v", err)
	}
	tr1 := waitTransport(t, d)
	tr1.emit(t, Frame{Type: FrameProgress, Percent: 70, Status: "running"})

	if err := sess.Start(context.Background(), domain.SearchRequest{Query: "laptops"}); err != nil {
		t.Fatalf("Second start failed: %v", err)
	}
	tr2 := waitTransport(t, d)

	// The superseded channel keeps talking; nothing lands.
	tr1.emit(t, Frame{Type: FrameFinal, Products: []domain.Product{{ID: "old"}}})

	st := sess.State()
	if st.Phase != PhaseStreaming {
		t.Fatalf("Expected new search streaming, got %s", st.Phase)
	}
	if st.Progress != 0 {
		t.Errorf("Expected fresh progress for the new search, got %d", st.Progress)
	}
	if st.Results != nil {
		t.Errorf("Expected no results from the stale channel, got %+v", st.Results)
	}

	tr2.emit(t, Frame{Type: FrameFinal, Products: []domain.Product{{ID: "new"}}})
	st = sess.State()
	if len(st.Results) != 1 || st.Results[0].ID != "new" {
		t.Errorf("Expected results from the active search only, got %+v", st.Results)
	}
}

func TestSessionSubscribe(t *testing.T) {
	d := newFakeDialer(0)
	sess := New("ws://test", WithDialer(d), WithReconnect(testReconnect(3)))
	updates := sess.Subscribe()

	if err := sess.Start(context.Background(), domain.SearchRequest{Query: "phones"}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	tr := waitTransport(t, d)
	tr.emit(t, Frame{Type: FrameFinal, Products: []domain.Product{{ID: "p1"}}})

	deadline := time.After(2 * time.Second)
	for {
		select {
		case st := <-updates:
			if st.Terminal() {
				if st.Phase != PhaseCompleted {
					t.Errorf("Expected completed terminal snapshot, got %s", st.Phase)
				}
				return
			}
		case <-deadline:
			t.Fatal("Never received a terminal snapshot")
		}
	}
}
