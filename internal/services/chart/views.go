package chart

import (
	"context"
	"errors"
	"sync"

	"FxCast/internal/domain/models"
	"FxCast/internal/domain/repository"
)

// MemoryView keeps the last frame it was asked to draw.
type MemoryView struct {
	mu    sync.RWMutex
	frame *models.ChartFrame
	count int
}

func NewMemoryView() *MemoryView { return &MemoryView{} }

func (v *MemoryView) Render(_ context.Context, f *models.ChartFrame) error {
	v.mu.Lock()
	v.frame = f
	v.count++
	v.mu.Unlock()
	return nil
}

func (v *MemoryView) Last() *models.ChartFrame {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.frame
}

// Renders is how many frames were drawn.
func (v *MemoryView) Renders() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.count
}

// MultiView fans a frame out to several views. Every view is tried.
type MultiView []repository.ChartView

func (m MultiView) Render(ctx context.Context, f *models.ChartFrame) error {
	var all []error
	for _, v := range m {
		if v == nil {
			continue
		}
		if err := v.Render(ctx, f); err != nil {
			all = append(all, err)
		}
	}
	return errors.Join(all...)
}

var (
	_ repository.ChartView = (*MemoryView)(nil)
	_ repository.ChartView = MultiView(nil)
)
