package stream

import (
	"context"
	"sync"

	"github.com/coder/websocket"
)

type connPhase int

const (
	connConnecting connPhase = iota
	connOpen
	connClosing
	connClosed
)

// Callbacks receive connection activity. OnEvent fires for every inbound
// frame in arrival order, OnClose exactly once per connection, OnError
// zero or more times for transport faults observed before closure.
type Callbacks struct {
	OnEvent func(data []byte)
	OnClose func(err error)
	OnError func(err error)
}

// Transport is one physical streaming channel. A Transport is owned by
// exactly one session and is replaced, never reopened, on reconnect.
type Transport interface {
	Send(ctx context.Context, payload []byte) error
	Close()
}

// Dialer opens physical channels. Tests substitute an in-memory
// implementation; production uses the WebSocket dialer.
type Dialer interface {
	Dial(ctx context.Context, addr string, cb Callbacks) (Transport, error)
}

// Conn is a WebSocket-backed Transport.
type Conn struct {
	addr string
	ws   *websocket.Conn
	cb   Callbacks

	mu         sync.Mutex
	phase      connPhase
	closeOnce  sync.Once
	cancelRead context.CancelFunc
}

// WSDialer dials real WebSocket connections.
type WSDialer struct{}

// Dial establishes one channel to addr. It blocks until the channel is
// established or fails, returning a *ConnectError on failure.
func (WSDialer) Dial(ctx context.Context, addr string, cb Callbacks) (Transport, error) {
	ws, _, err := websocket.Dial(ctx, addr, nil)
	if err != nil {
		return nil, &ConnectError{Addr: addr, Err: err}
	}

	readCtx, cancel := context.WithCancel(context.Background())
	c := &Conn{
		addr:       addr,
		ws:         ws,
		cb:         cb,
		phase:      connOpen,
		cancelRead: cancel,
	}
	go c.readLoop(readCtx)
	return c, nil
}

func (c *Conn) readLoop(ctx context.Context) {
	for {
		_, data, err := c.ws.Read(ctx)
		if err != nil {
			var closeErr error
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				// Dropped without a close handshake.
				closeErr = &TransportError{Err: err}
				if c.cb.OnError != nil {
					c.cb.OnError(closeErr)
				}
			}
			c.close(closeErr)
			return
		}
		if c.cb.OnEvent != nil {
			c.cb.OnEvent(data)
		}
	}
}

// Send writes one payload. Valid only while the connection is open; there
// is no implicit queuing.
func (c *Conn) Send(ctx context.Context, payload []byte) error {
	c.mu.Lock()
	open := c.phase == connOpen
	c.mu.Unlock()
	if !open {
		return ErrNotOpen
	}
	if err := c.ws.Write(ctx, websocket.MessageText, payload); err != nil {
		return &TransportError{Err: err}
	}
	return nil
}

// Close is idempotent and always fires OnClose exactly once.
func (c *Conn) Close() {
	c.close(nil)
}

func (c *Conn) close(cause error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.phase = connClosing
		c.mu.Unlock()

		c.cancelRead()
		_ = c.ws.Close(websocket.StatusNormalClosure, "session closed")

		c.mu.Lock()
		c.phase = connClosed
		c.mu.Unlock()

		if c.cb.OnClose != nil {
			c.cb.OnClose(cause)
		}
	})
}
