package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/browseease/browseease/internal/domain"
	"github.com/browseease/browseease/internal/stream"
)

// Emitter receives one outbound frame. Implementations write to the
// client's streaming channel; an emit error aborts the run.
type Emitter func(ctx context.Context, f stream.Frame) error

// Engine executes one logical search and streams its lifecycle: log
// lines, monotone progress, a partial batch once early results exist,
// then the final batch.
type Engine struct {
	planner *Planner
	catalog *Catalog
	pace    time.Duration
}

// NewEngine creates an engine. pace is the delay between emissions so
// clients observe a progressive stream; zero is valid (tests).
func NewEngine(planner *Planner, catalog *Catalog, pace time.Duration) *Engine {
	return &Engine{planner: planner, catalog: catalog, pace: pace}
}

// Run performs the search for req, emitting frames until the final
// result batch. It returns early when the context is cancelled or an
// emit fails (client gone).
func (e *Engine) Run(ctx context.Context, req domain.SearchRequest, emit Emitter) (*domain.TaskPlan, int, error) {
	if err := req.Validate(); err != nil {
		return nil, 0, err
	}

	steps := []stream.Frame{
		{Type: stream.FrameLog, Message: "Starting search for: " + req.Query, Severity: string(stream.SeverityInfo)},
	}
	if err := e.emitAll(ctx, emit, steps); err != nil {
		return nil, 0, err
	}

	plan := e.planner.Plan(req.Query)
	slog.Debug("Task plan ready", "query", req.Query, "category", plan.Category)

	if err := e.emitAll(ctx, emit, []stream.Frame{
		{Type: stream.FrameLog, Message: fmt.Sprintf("Query classified as %s", plan.Category), Severity: string(stream.SeverityInfo)},
		{Type: stream.FrameProgress, Percent: 10, Status: "running", Message: "Generating task plan"},
		{Type: stream.FrameProgress, Percent: 35, Status: "running", Message: "Searching " + strings.Join(plan.Sources, ", ")},
	}); err != nil {
		return plan, 0, err
	}

	products := e.catalog.Results(plan, req.MaxResults)
	if len(products) == 0 {
		plan = e.planner.Refine(req.Query, products)
		products = e.catalog.Results(plan, req.MaxResults)
		if err := e.emitAll(ctx, emit, []stream.Frame{
			{Type: stream.FrameLog, Message: "Broadened filters due to insufficient results", Severity: string(stream.SeverityWarning)},
		}); err != nil {
			return plan, 0, err
		}
	}

	// Stream an early snapshot before ranking finishes.
	partial := products
	if len(partial) > 1 {
		partial = partial[:len(partial)/2+len(partial)%2]
	}
	if err := e.emitAll(ctx, emit, []stream.Frame{
		{Type: stream.FrameProgress, Percent: 55, Status: "running", Message: "Collecting offers"},
		{Type: stream.FramePartial, Products: partial},
		{Type: stream.FrameProgress, Percent: 90, Status: "running", Message: "Ranking results"},
	}); err != nil {
		return plan, 0, err
	}

	summary := Summarize(plan, products)
	if err := e.emitAll(ctx, emit, []stream.Frame{
		{Type: stream.FrameLog, Message: summary, Severity: string(stream.SeveritySuccess)},
		{Type: stream.FrameProgress, Percent: 100, Status: "completed", Message: "Search complete"},
		{Type: stream.FrameFinal, Products: products},
	}); err != nil {
		return plan, len(products), err
	}

	return plan, len(products), nil
}

func (e *Engine) emitAll(ctx context.Context, emit Emitter, frames []stream.Frame) error {
	for _, f := range frames {
		if err := e.wait(ctx); err != nil {
			return err
		}
		if err := emit(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) wait(ctx context.Context) error {
	if e.pace <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(e.pace)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
