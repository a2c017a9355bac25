package health

import (
	"context"
	"errors"
	"testing"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubChecker struct{ err error }

func (s stubChecker) HealthCheck(context.Context) error { return s.err }

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(stubPinger{}, stubPinger{}, stubChecker{})

	report := svc.Check(context.Background())
	if report.Status != Healthy {
		t.Errorf("expected ok, got %s", report.Status)
	}
	for name, res := range report.Checks {
		if res != CheckOK {
			t.Errorf("check %s = %s", name, res)
		}
	}
	if len(report.Checks) != 3 {
		t.Errorf("expected 3 checks, got %d", len(report.Checks))
	}
}

func TestCheck_StoreFailureDegrades(t *testing.T) {
	svc := New(stubPinger{err: errors.New("down")}, stubPinger{}, stubChecker{})

	report := svc.Check(context.Background())
	if report.Status != Degraded {
		t.Errorf("expected degraded, got %s", report.Status)
	}
	if report.Checks["event_store"] != CheckError {
		t.Errorf("event_store = %s", report.Checks["event_store"])
	}
	if report.Checks["vector_index"] != CheckOK {
		t.Errorf("vector_index = %s", report.Checks["vector_index"])
	}
}

func TestCheck_OptionalComponentsSkipped(t *testing.T) {
	svc := New(stubPinger{}, nil, nil)

	report := svc.Check(context.Background())
	if report.Status != Healthy {
		t.Errorf("expected ok, got %s", report.Status)
	}
	if len(report.Checks) != 1 {
		t.Errorf("expected only the store check, got %v", report.Checks)
	}
}
