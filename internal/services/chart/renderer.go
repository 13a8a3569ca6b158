package chart

import (
	"context"
	"fmt"
	"sync"

	"FxCast/internal/domain/models"
	"FxCast/internal/domain/repository"
	"FxCast/pkg/logger"
)

// Renderer owns the chart state and pushes a fresh frame to the view on every change.
type Renderer struct {
	mu     sync.Mutex
	view   repository.ChartView
	log    *logger.Logger
	result *models.ForecastResult
	mode   models.View
	window Window
	frame  *models.ChartFrame
	// gen is the newest data generation drawn; seq numbers every built frame.
	gen uint64
	seq uint64

	pushMu sync.Mutex
	pushed uint64
}

func NewRenderer(view repository.ChartView, log *logger.Logger) *Renderer {
	if log == nil {
		log = logger.Nop()
	}
	return &Renderer{
		view:  view,
		log:   log,
		mode:  models.ViewBoth,
		frame: &models.ChartFrame{View: models.ViewBoth},
	}
}

// Render draws a new result of generation gen. The zoom is reset; the
// visibility mode is kept. A result older than the last drawn one is dropped.
func (r *Renderer) Render(ctx context.Context, gen uint64, res *models.ForecastResult) error {
	r.mu.Lock()
	if gen < r.gen {
		r.mu.Unlock()
		return nil
	}
	r.gen = gen
	r.result = res
	r.window = Window{}
	frame, seq := r.rebuild()
	r.mu.Unlock()
	return r.push(ctx, seq, frame)
}

// SetView toggles which series are shown.
func (r *Renderer) SetView(ctx context.Context, v models.View) error {
	if _, ok := models.ParseView(string(v)); !ok {
		return fmt.Errorf("unknown view %q", v)
	}
	r.mu.Lock()
	r.mode = v
	frame, seq := r.rebuild()
	r.mu.Unlock()
	return r.push(ctx, seq, frame)
}

// Zoom rescales the visible range. Without data it is a no-op.
func (r *Renderer) Zoom(ctx context.Context, factor float64) error {
	r.mu.Lock()
	if r.result == nil {
		r.mu.Unlock()
		return nil
	}
	w, err := r.window.Zoom(factor, len(r.frame.Labels))
	if err != nil {
		r.mu.Unlock()
		return err
	}
	r.window = w
	frame, seq := r.rebuild()
	r.mu.Unlock()
	return r.push(ctx, seq, frame)
}

func (r *Renderer) ResetZoom(ctx context.Context) error {
	r.mu.Lock()
	r.window = Window{}
	frame, seq := r.rebuild()
	r.mu.Unlock()
	return r.push(ctx, seq, frame)
}

// Clear drops the data and restores the default view. Like Render, it is
// ignored when a newer generation has already been drawn.
func (r *Renderer) Clear(ctx context.Context, gen uint64) error {
	r.mu.Lock()
	if gen < r.gen {
		r.mu.Unlock()
		return nil
	}
	r.gen = gen
	r.result = nil
	r.window = Window{}
	r.mode = models.ViewBoth
	frame, seq := r.rebuild()
	r.mu.Unlock()
	return r.push(ctx, seq, frame)
}

// Frame returns the last built frame.
func (r *Renderer) Frame() *models.ChartFrame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frame
}

func (r *Renderer) View() models.View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode
}

// rebuild must be called with mu held.
func (r *Renderer) rebuild() (*models.ChartFrame, uint64) {
	r.frame = BuildFrame(r.result, r.mode, r.window)
	r.seq++
	return r.frame, r.seq
}

// push hands frames to the view one at a time. A frame built before one that
// was already pushed is skipped, so the view always ends on the latest state.
func (r *Renderer) push(ctx context.Context, seq uint64, frame *models.ChartFrame) error {
	if r.view == nil {
		return nil
	}
	r.pushMu.Lock()
	defer r.pushMu.Unlock()
	if seq <= r.pushed {
		return nil
	}
	r.pushed = seq
	if err := r.view.Render(ctx, frame); err != nil {
		r.log.Warn("chart render failed", logger.Error(err))
		return err
	}
	return nil
}
