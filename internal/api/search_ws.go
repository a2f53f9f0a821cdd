package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/browseease/browseease/internal/domain"
	"github.com/browseease/browseease/internal/identity"
	"github.com/browseease/browseease/internal/search"
	"github.com/browseease/browseease/internal/store"
	"github.com/browseease/browseease/internal/stream"
	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// SearchWSHandler serves the streaming search endpoint. Each connection
// runs at most one search at a time; a new start frame supersedes the
// run in flight. A client that reconnects simply re-sends its start
// frame, so the same logical search restarts on the fresh channel.
type SearchWSHandler struct {
	engine        *search.Engine
	repo          store.Repository
	maxResults    int
	allowedOrigin string
	isDev         bool
}

// NewSearchWSHandler creates the WebSocket search handler.
func NewSearchWSHandler(engine *search.Engine, repo store.Repository, maxResults int, allowedOrigin string, isDev bool) *SearchWSHandler {
	return &SearchWSHandler{
		engine:        engine,
		repo:          repo,
		maxResults:    maxResults,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *SearchWSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	shopperID := identity.ShopperIDFromContext(r.Context())

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "shopper_id", shopperID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "search ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "shopper_id", shopperID)
		}
	}()

	slog.Info("Search stream opened", "shopper_id", shopperID, "ip", r.RemoteAddr)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn := &searchConn{ws: ws}
	var runCancel context.CancelFunc
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("Search stream closed by client", "shopper_id", shopperID)
			} else if ctx.Err() == nil {
				slog.Warn("Search stream read error", "error", err, "shopper_id", shopperID)
			}
			if runCancel != nil {
				runCancel()
			}
			return
		}

		var frame stream.Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}

		switch frame.Type {
		case stream.FrameStart:
			if runCancel != nil {
				runCancel()
			}
			req := domain.SearchRequest{Query: frame.Query, MaxResults: frame.MaxResults}
			if err := req.Validate(); err != nil {
				_ = conn.writeFrame(ctx, stream.Frame{Type: stream.FrameError, Message: err.Error(), Fatal: true})
				continue
			}
			if req.MaxResults > h.maxResults {
				req.MaxResults = h.maxResults
			}

			var runCtx context.Context
			runCtx, runCancel = context.WithCancel(ctx)
			wg.Add(1)
			go func() {
				defer wg.Done()
				h.runSearch(runCtx, conn, shopperID, req)
			}()

		case stream.FrameCancel:
			if runCancel != nil {
				runCancel()
				runCancel = nil
			}
		}
	}
}

func (h *SearchWSHandler) runSearch(ctx context.Context, conn *searchConn, shopperID string, req domain.SearchRequest) {
	plan, count, err := h.engine.Run(ctx, req, conn.writeFrame)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Debug("Search run cancelled", "shopper_id", shopperID, "query", req.Query)
			return
		}
		slog.Warn("Search run failed", "error", err, "shopper_id", shopperID, "query", req.Query)
		_ = conn.writeFrame(ctx, stream.Frame{Type: stream.FrameError, Message: "search failed", Fatal: true})
		return
	}

	h.saveHistory(shopperID, req.Query, plan, count)
}

func (h *SearchWSHandler) saveHistory(shopperID, query string, plan *domain.TaskPlan, resultCount int) {
	if shopperID == "" || h.repo == nil || plan == nil {
		return
	}

	planJSON, err := json.Marshal(plan)
	if err != nil {
		planJSON = nil
	}
	rec := &domain.SearchRecord{
		ID:          uuid.NewString(),
		ShopperID:   shopperID,
		Query:       query,
		Category:    plan.Category,
		PlanJSON:    string(planJSON),
		ResultCount: resultCount,
		CreatedAt:   time.Now(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.repo.SaveSearch(ctx, rec); err != nil {
		slog.Warn("Failed to record streamed search", "error", err, "shopper_id", shopperID)
	}
}

func (h *SearchWSHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

// searchConn serializes frame writes: the engine goroutine and the read
// loop both write to the same socket.
type searchConn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *searchConn) writeFrame(ctx context.Context, f stream.Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.Write(ctx, websocket.MessageText, data)
}
