// Package demo fabricates history and forecast series with a multiplicative
// random walk so the pipeline works without a backend.
package demo

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"FxCast/internal/domain/models"
	"FxCast/pkg/util"

	"github.com/shopspring/decimal"
)

const (
	seedBase   = 70.0
	seedSpread = 10.0

	historyNoise = 0.02
	historyTrend = 0.0001
	historyMin   = 50.0
	historyMax   = 150.0

	forecastNoise     = 0.015
	trendDamping      = 0.7
	trendWindow       = 30
	forecastBand      = 0.2
	confidenceStart   = 0.85
	confidenceFalloff = 0.01
)

// Generator is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewGenerator seeds the walk. A zero seed uses the current time.
func NewGenerator(seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// uniform draws from [lo, hi).
func (g *Generator) uniform(lo, hi float64) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return lo + g.rnd.Float64()*(hi-lo)
}

// History walks one point per calendar day in [from, to] inclusive.
func (g *Generator) History(from, to time.Time) []models.SeriesPoint {
	days := util.DateRange(from, to)
	out := make([]models.SeriesPoint, 0, len(days))
	value := g.uniform(seedBase, seedBase+seedSpread)
	for _, d := range days {
		value *= 1 + g.uniform(-historyNoise, historyNoise)
		value *= 1 + historyTrend
		value = clamp(value, historyMin, historyMax)
		out = append(out, models.SeriesPoint{Date: d, Value: clamp(round4(value), historyMin, historyMax)})
	}
	return out
}

// Forecast continues history for horizon days. Empty history yields no points.
func (g *Generator) Forecast(history []models.SeriesPoint, horizon int) []models.SeriesPoint {
	if len(history) == 0 || horizon <= 0 {
		return []models.SeriesPoint{}
	}
	last := history[len(history)-1]
	lo, hi := last.Value*(1-forecastBand), last.Value*(1+forecastBand)
	// Published values are rounded, so their band is rounded inward.
	lo4, hi4 := ceil4(lo), floor4(hi)
	avg := MeanReturn(history, trendWindow)

	out := make([]models.SeriesPoint, 0, horizon)
	value := last.Value
	for i := 1; i <= horizon; i++ {
		value *= 1 + trendDamping*avg + g.uniform(-forecastNoise, forecastNoise)
		value = clamp(value, lo, hi)
		conf := math.Max(0, round4(confidenceStart-confidenceFalloff*float64(i-1)))
		out = append(out, models.SeriesPoint{
			Date:       util.AddDays(last.Date, i),
			Value:      clamp(round4(value), lo4, hi4),
			Confidence: &conf,
		})
	}
	return out
}

// MeanReturn averages day-over-day returns over the trailing window points.
// Fewer than two points yield zero.
func MeanReturn(points []models.SeriesPoint, window int) float64 {
	if len(points) > window {
		points = points[len(points)-window:]
	}
	if len(points) < 2 {
		return 0
	}
	var sum float64
	for i := 1; i < len(points); i++ {
		prev := points[i-1].Value
		if prev == 0 {
			continue
		}
		sum += (points[i].Value - prev) / prev
	}
	return sum / float64(len(points)-1)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round4(v float64) float64 {
	return decimal.NewFromFloat(v).Round(4).InexactFloat64()
}

func floor4(v float64) float64 {
	return decimal.NewFromFloat(v).RoundFloor(4).InexactFloat64()
}

func ceil4(v float64) float64 {
	return decimal.NewFromFloat(v).RoundCeil(4).InexactFloat64()
}
