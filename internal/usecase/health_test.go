package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"FxCast/internal/domain/errs"
	"FxCast/internal/domain/models"
)

type stubChecker struct {
	status string
	err    error
}

func (c stubChecker) Health(context.Context) (*models.HealthStatus, error) {
	if c.err != nil {
		return nil, c.err
	}
	return &models.HealthStatus{ModelStatus: c.status}, nil
}

func TestHealthCheck(t *testing.T) {
	h := NewHealthMonitor(stubChecker{status: "loaded"}, false, time.Second, nil)
	if h.Status().Connection != models.ConnChecking {
		t.Fatalf("initial state should be checking")
	}
	st := h.Check(context.Background())
	if st.Connection != models.ConnConnected || st.ModelStatus != "loaded" {
		t.Fatalf("unexpected status %+v", st)
	}
	if h.Status().CheckedAt.IsZero() {
		t.Fatalf("checked_at not set")
	}
}

func TestHealthCheckFailure(t *testing.T) {
	h := NewHealthMonitor(stubChecker{err: errs.Network("health", errors.New("refused"))}, false, time.Second, nil)
	st := h.Check(context.Background())
	if st.Connection != models.ConnDisconnected {
		t.Fatalf("expected disconnected, got %s", st.Connection)
	}
	if st.Error == "" {
		t.Fatalf("expected error message")
	}
}

func TestHealthStartRejectsBadSchedule(t *testing.T) {
	h := NewHealthMonitor(stubChecker{status: "ok"}, true, time.Second, nil)
	if err := h.Start(context.Background(), "not a schedule"); err == nil {
		t.Fatalf("expected schedule error")
	}
	if err := h.Start(context.Background(), "@every 1h"); err != nil {
		t.Fatalf("start: %v", err)
	}
	h.Stop()
	h.Stop()
}

func TestHealthOnChangeFiresOnTransitions(t *testing.T) {
	checker := &toggleChecker{}
	h := NewHealthMonitor(checker, false, time.Second, nil)
	var seen []models.Connection
	h.OnChange(func(st models.HealthStatus) { seen = append(seen, st.Connection) })

	h.Check(context.Background())
	h.Check(context.Background())
	checker.down = true
	h.Check(context.Background())

	if len(seen) != 2 || seen[0] != models.ConnConnected || seen[1] != models.ConnDisconnected {
		t.Fatalf("unexpected transitions %v", seen)
	}
}

type toggleChecker struct{ down bool }

func (c *toggleChecker) Health(context.Context) (*models.HealthStatus, error) {
	if c.down {
		return nil, errs.Timeout("health", context.DeadlineExceeded)
	}
	return &models.HealthStatus{ModelStatus: "ok"}, nil
}

func TestHealthCheckProbesSink(t *testing.T) {
	h := NewHealthMonitor(stubChecker{status: "ok"}, false, time.Second, nil)
	var down bool
	h.WatchSink(func(context.Context) error {
		if down {
			return errors.New("clickhouse unreachable")
		}
		return nil
	})
	var changes int
	h.OnChange(func(models.HealthStatus) { changes++ })

	if st := h.Check(context.Background()); st.Sink != SinkStatusOK {
		t.Fatalf("expected sink ok, got %q", st.Sink)
	}
	down = true
	st := h.Check(context.Background())
	if st.Sink != SinkStatusUnavailable || st.Connection != models.ConnConnected {
		t.Fatalf("unexpected status %+v", st)
	}
	if changes != 2 {
		t.Fatalf("expected 2 changes, got %d", changes)
	}
}
