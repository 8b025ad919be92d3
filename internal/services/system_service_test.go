package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/domain"
)

type stubHealthRepository struct {
	report domain.SystemHealthReport
	err    error
}

func (s stubHealthRepository) Collect(context.Context) (domain.SystemHealthReport, error) {
	return s.report, s.err
}

func TestSystemServiceHealthReportFillsBuildInfo(t *testing.T) {
	started := fixedNow.Add(-time.Hour)
	svc, err := NewSystemService(SystemServiceDeps{
		HealthRepository: stubHealthRepository{report: domain.SystemHealthReport{
			StoreMode: domain.StoreModePersistent,
			Checks:    map[string]domain.SystemHealthCheck{"firestore": {Status: domain.HealthStatusOK}},
		}},
		Clock: fixedClock,
		Build: BuildInfo{Version: "1.2.3", CommitSHA: "abc", Environment: "test", StartedAt: started},
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	report, err := svc.HealthReport(context.Background())
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.Status != domain.HealthStatusOK || report.Version != "1.2.3" || report.Environment != "test" {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.Uptime != time.Hour || !report.GeneratedAt.Equal(fixedNow) {
		t.Fatalf("unexpected timing uptime=%s generated=%s", report.Uptime, report.GeneratedAt)
	}
}

func TestDeriveStatus(t *testing.T) {
	cases := []struct {
		name   string
		checks map[string]domain.SystemHealthCheck
		mode   domain.StoreMode
		want   string
	}{
		{name: "all ok", checks: map[string]domain.SystemHealthCheck{"store": {Status: "ok"}}, mode: domain.StoreModePersistent, want: domain.HealthStatusOK},
		{name: "memory is degraded", checks: map[string]domain.SystemHealthCheck{"store": {Status: "ok"}}, mode: domain.StoreModeMemory, want: domain.HealthStatusDegraded},
		{name: "degraded check", checks: map[string]domain.SystemHealthCheck{"events": {Status: "degraded"}}, mode: domain.StoreModePersistent, want: domain.HealthStatusDegraded},
		{name: "error wins", checks: map[string]domain.SystemHealthCheck{"events": {Status: "degraded"}, "store": {Status: "error"}}, mode: domain.StoreModeMemory, want: domain.HealthStatusError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := deriveStatus(tc.checks, tc.mode); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestSystemServicePropagatesCollectError(t *testing.T) {
	svc, err := NewSystemService(SystemServiceDeps{HealthRepository: stubHealthRepository{err: errors.New("boom")}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := svc.HealthReport(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := NewSystemService(SystemServiceDeps{}); err == nil {
		t.Fatalf("expected error without repository")
	}
}
