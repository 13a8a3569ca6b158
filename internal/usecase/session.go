package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"FxCast/internal/domain/errs"
	"FxCast/internal/domain/models"
	"FxCast/internal/services/chart"
	"FxCast/internal/services/export"
	"FxCast/internal/services/stats"
	"FxCast/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// SessionDefaults are restored by Reset.
type SessionDefaults struct {
	Ticker  string
	Horizon int
}

// Snapshot is a read-only copy of the session state.
type Snapshot struct {
	Ticker        string                  `json:"ticker"`
	Horizon       int                     `json:"horizon"`
	View          models.View             `json:"view"`
	Loading       bool                    `json:"loading"`
	Source        string                  `json:"source"`
	History       []models.SeriesPoint    `json:"history"`
	Forecast      []models.SeriesPoint    `json:"forecast"`
	Summary       *models.Summary         `json:"summary,omitempty"`
	Details       *models.ForecastDetails `json:"details,omitempty"`
	Health        models.HealthStatus     `json:"health"`
	Notifications []models.Notification   `json:"notifications"`
}

// Session owns the state one user sees. Every mutation goes through a method
// here; results of superseded requests are never applied.
type Session struct {
	catalog    *CatalogLoader
	controller *ForecastController
	renderer   *chart.Renderer
	notifier   *Notifier
	health     *HealthMonitor
	defaults   SessionDefaults
	log        *logger.Logger
	now        func() time.Time

	mu      sync.RWMutex
	seq     uint64
	applied uint64
	ticker  string
	horizon int
	result  *models.ForecastResult
	summary *models.Summary
	details *models.ForecastDetails
}

func NewSession(
	catalog *CatalogLoader,
	controller *ForecastController,
	renderer *chart.Renderer,
	notifier *Notifier,
	health *HealthMonitor,
	defaults SessionDefaults,
	log *logger.Logger,
) *Session {
	if log == nil {
		log = logger.Nop()
	}
	return &Session{
		catalog:    catalog,
		controller: controller,
		renderer:   renderer,
		notifier:   notifier,
		health:     health,
		defaults:   defaults,
		log:        log,
		now:        time.Now,
		ticker:     defaults.Ticker,
		horizon:    defaults.Horizon,
	}
}

// Bootstrap loads the catalog and probes the backend concurrently.
// Only a catalog failure is returned.
func (s *Session) Bootstrap(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.catalog.Load(gctx)
		return err
	})
	g.Go(func() error {
		if s.health != nil {
			s.health.Check(gctx)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.notifier.Error("Не удалось загрузить список тикеров: " + errs.Message(err))
		return err
	}
	return nil
}

// Forecast requests a forecast and, on success, replaces the displayed data.
func (s *Session) Forecast(ctx context.Context, ticker string, horizon int) (*models.ForecastResult, error) {
	s.mu.Lock()
	s.seq++
	gen := s.seq
	var history []models.SeriesPoint
	if s.result != nil && s.result.Ticker == ticker && len(s.result.Forecast) == 0 {
		history = s.result.History
	}
	s.mu.Unlock()

	res, err := s.controller.Forecast(ctx, ForecastInput{Ticker: ticker, Horizon: horizon, History: history})
	if err != nil {
		s.report(err)
		return nil, err
	}
	if !s.apply(gen, ticker, horizon, res) {
		return nil, errs.Canceled("forecast", errors.New("superseded by a newer request"))
	}
	if err := s.renderer.Render(ctx, gen, res); err != nil {
		s.log.Warn("chart update failed", logger.Error(err))
	}
	s.notifier.Success(fmt.Sprintf("Прогноз для %s на %d дн. построен", res.Ticker, len(res.Forecast)))
	return res, nil
}

// History loads observed data for the range and shows it without a forecast.
func (s *Session) History(ctx context.Context, ticker string, from, to time.Time) ([]models.SeriesPoint, error) {
	s.mu.Lock()
	s.seq++
	gen := s.seq
	horizon := s.horizon
	s.mu.Unlock()

	points, err := s.controller.FetchHistory(ctx, ticker, from, to)
	if err != nil {
		s.report(err)
		return nil, err
	}
	res := &models.ForecastResult{
		Ticker:    ticker,
		History:   points,
		Source:    s.controller.Source(),
		CreatedAt: s.now(),
	}
	if !s.apply(gen, ticker, horizon, res) {
		return nil, errs.Canceled("history", errors.New("superseded by a newer request"))
	}
	if err := s.renderer.Render(ctx, gen, res); err != nil {
		s.log.Warn("chart update failed", logger.Error(err))
	}
	s.notifier.Success(fmt.Sprintf("Загружено %d исторических точек для %s", len(points), ticker))
	return points, nil
}

// Reset clears all data and restores the defaults. It is refused while a
// request is in flight.
func (s *Session) Reset(ctx context.Context) error {
	if s.controller.State().IsLoading {
		err := errs.Busy("reset")
		s.report(err)
		return err
	}
	s.mu.Lock()
	s.seq++
	gen := s.seq
	s.applied = gen
	s.ticker = s.defaults.Ticker
	s.horizon = s.defaults.Horizon
	s.result = nil
	s.summary = nil
	s.details = nil
	s.mu.Unlock()
	return s.renderer.Clear(ctx, gen)
}

// SetView changes which series the chart shows.
func (s *Session) SetView(ctx context.Context, v models.View) error {
	if _, ok := models.ParseView(string(v)); !ok {
		return errs.Validation("view", "неизвестный режим отображения %q", v)
	}
	return s.renderer.SetView(ctx, v)
}

// Zoom scales the chart; a non-positive factor resets it.
func (s *Session) Zoom(ctx context.Context, factor float64) error {
	if factor <= 0 {
		return s.renderer.ResetZoom(ctx)
	}
	return s.renderer.Zoom(ctx, factor)
}

func (s *Session) ResetZoom(ctx context.Context) error {
	return s.renderer.ResetZoom(ctx)
}

// Export writes the displayed data as CSV and returns the download name.
func (s *Session) Export(w io.Writer) (string, error) {
	s.mu.RLock()
	res := s.result
	s.mu.RUnlock()
	if res == nil || (len(res.History) == 0 && len(res.Forecast) == 0) {
		return "", errs.Validation("export", "нет данных для экспорта")
	}
	if err := export.WriteCSV(w, res); err != nil {
		return "", err
	}
	return export.Filename(res.Ticker, s.now()), nil
}

// Symbols returns the catalog filtered by term.
func (s *Session) Symbols(term string) []models.Symbol {
	return s.catalog.Filter(term)
}

// ReloadSymbols drops the cached catalog and fetches it again.
func (s *Session) ReloadSymbols(ctx context.Context) ([]models.Symbol, error) {
	s.catalog.Invalidate(ctx)
	syms, err := s.catalog.Load(ctx)
	if err != nil {
		s.report(err)
	}
	return syms, err
}

func (s *Session) Health() models.HealthStatus {
	if s.health == nil {
		return models.HealthStatus{Connection: models.ConnChecking}
	}
	return s.health.Status()
}

func (s *Session) CheckHealth(ctx context.Context) models.HealthStatus {
	if s.health == nil {
		return s.Health()
	}
	return s.health.Check(ctx)
}

func (s *Session) Chart() *models.ChartFrame { return s.renderer.Frame() }

func (s *Session) Notifications() []models.Notification { return s.notifier.Active() }

func (s *Session) DismissNotification(id string) bool { return s.notifier.Dismiss(id) }

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	snap := Snapshot{
		Ticker:  s.ticker,
		Horizon: s.horizon,
		Summary: s.summary,
		Details: s.details,
	}
	if s.result != nil {
		snap.Source = s.result.Source
		snap.History = append([]models.SeriesPoint{}, s.result.History...)
		snap.Forecast = append([]models.SeriesPoint{}, s.result.Forecast...)
	}
	s.mu.RUnlock()

	snap.View = s.renderer.View()
	snap.Loading = s.controller.State().IsLoading
	snap.Health = s.Health()
	snap.Notifications = s.notifier.Active()
	return snap
}

// apply stores res unless a newer request already landed.
func (s *Session) apply(gen uint64, ticker string, horizon int, res *models.ForecastResult) bool {
	var summary *models.Summary
	var details *models.ForecastDetails
	if len(res.Forecast) > 0 {
		sum := stats.Summarize(res.HistoryPrices(), res.ForecastPrices())
		det := stats.Details(res)
		summary, details = &sum, &det
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen <= s.applied {
		return false
	}
	s.applied = gen
	s.ticker = ticker
	if horizon > 0 {
		s.horizon = horizon
	}
	s.result = res
	s.summary = summary
	s.details = details
	return true
}

// report turns a failure into a notification. Cancellations stay silent.
func (s *Session) report(err error) {
	if errs.KindOf(err) == errs.KindCanceled {
		return
	}
	s.notifier.Error(errs.Message(err))
}
