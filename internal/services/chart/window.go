package chart

import "fmt"

// Zoom factors for the zoom-in and zoom-out controls.
const (
	ZoomIn  = 1.2
	ZoomOut = 0.8
)

// Window is the visible x-range as fractional label positions.
type Window struct {
	Min    float64
	Max    float64
	Zoomed bool
}

// Full is the unzoomed window over n labels.
func Full(n int) Window {
	if n <= 0 {
		return Window{}
	}
	return Window{Min: 0, Max: float64(n - 1)}
}

// Zoom rescales the window by factor. A zoomed window shrinks or grows around
// its centre; an unzoomed one anchors at the right edge of the data.
func (w Window) Zoom(factor float64, n int) (Window, error) {
	if factor <= 0 {
		return w, fmt.Errorf("zoom factor must be positive, got %v", factor)
	}
	if n <= 0 {
		return w, nil
	}
	last := float64(n - 1)

	if w.Zoomed {
		center := (w.Min + w.Max) / 2
		half := (w.Max - w.Min) / factor / 2
		return Window{
			Min:    clampf(center-half, 0, last),
			Max:    clampf(center+half, 0, last),
			Zoomed: true,
		}, nil
	}

	visible := int(float64(n) / factor)
	start := n - visible
	return Window{
		Min:    clampf(float64(start), 0, last),
		Max:    last,
		Zoomed: true,
	}, nil
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
