package usecase

import (
	"context"
	"sync"
	"time"

	"FxCast/internal/domain/errs"
	"FxCast/internal/domain/models"
	drepo "FxCast/internal/domain/repository"
	"FxCast/pkg/logger"

	"github.com/robfig/cron/v3"
)

const (
	SinkStatusOK          = "ok"
	SinkStatusUnavailable = "unavailable"
)

// HealthMonitor probes the forecast backend and tracks the connection state.
type HealthMonitor struct {
	checker drepo.HealthChecker
	demo    bool
	timeout time.Duration
	log     *logger.Logger
	now     func() time.Time

	mu       sync.RWMutex
	status   models.HealthStatus
	onChange func(models.HealthStatus)
	sink     func(context.Context) error

	cron *cron.Cron
}

func NewHealthMonitor(checker drepo.HealthChecker, demo bool, timeout time.Duration, log *logger.Logger) *HealthMonitor {
	if log == nil {
		log = logger.Nop()
	}
	return &HealthMonitor{
		checker: checker,
		demo:    demo,
		timeout: timeout,
		log:     log,
		now:     time.Now,
		status:  models.HealthStatus{Connection: models.ConnChecking, Demo: demo},
	}
}

// Check probes once. The state is "checking" for the duration of the probe.
func (h *HealthMonitor) Check(ctx context.Context) models.HealthStatus {
	h.mu.Lock()
	prev := h.status
	h.status.Connection = models.ConnChecking
	sink := h.sink
	h.mu.Unlock()

	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	st, err := h.checker.Health(ctx)
	next := models.HealthStatus{Demo: h.demo, CheckedAt: h.now()}
	if err != nil {
		next.Connection = models.ConnDisconnected
		next.Error = errs.Message(err)
		h.log.Warn("backend health check failed", logger.Error(err))
	} else {
		next.Connection = models.ConnConnected
		next.ModelStatus = st.ModelStatus
	}
	if sink != nil {
		next.Sink = SinkStatusOK
		if err := sink(ctx); err != nil {
			next.Sink = SinkStatusUnavailable
			h.log.Warn("result sink health check failed", logger.Error(err))
		}
	}

	h.mu.Lock()
	changed := prev.Connection != next.Connection || prev.ModelStatus != next.ModelStatus || prev.Sink != next.Sink
	h.status = next
	hook := h.onChange
	h.mu.Unlock()
	if changed && hook != nil {
		hook(next)
	}
	return next
}

// WatchSink adds a result sink probe to every check.
func (h *HealthMonitor) WatchSink(probe func(context.Context) error) {
	h.mu.Lock()
	h.sink = probe
	h.mu.Unlock()
}

// OnChange registers a hook called when a probe changes the connection state.
func (h *HealthMonitor) OnChange(fn func(models.HealthStatus)) {
	h.mu.Lock()
	h.onChange = fn
	h.mu.Unlock()
}

// Start re-probes on the cron schedule until Stop.
func (h *HealthMonitor) Start(ctx context.Context, schedule string) error {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { h.Check(ctx) }); err != nil {
		return err
	}
	h.mu.Lock()
	h.cron = c
	h.mu.Unlock()
	c.Start()
	h.log.Info("health monitor started", logger.String("schedule", schedule))
	return nil
}

func (h *HealthMonitor) Stop() {
	h.mu.Lock()
	c := h.cron
	h.cron = nil
	h.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

func (h *HealthMonitor) Status() models.HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}
