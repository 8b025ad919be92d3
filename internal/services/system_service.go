package services

import (
	"context"
	"errors"
	"time"

	domain "github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/domain"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/repositories"
)

// BuildInfo is the release metadata reported by /healthz and /readyz.
type BuildInfo struct {
	Version     string
	CommitSHA   string
	Environment string
	StartedAt   time.Time
}

type SystemServiceDeps struct {
	HealthRepository repositories.HealthRepository
	Clock            func() time.Time
	Build            BuildInfo
}

type systemService struct {
	health repositories.HealthRepository
	now    func() time.Time
	build  BuildInfo
}

func NewSystemService(deps SystemServiceDeps) (SystemService, error) {
	if deps.HealthRepository == nil {
		return nil, errors.New("system service: health repository is required")
	}
	svc := &systemService{health: deps.HealthRepository, now: deps.Clock, build: deps.Build}
	if svc.now == nil {
		svc.now = time.Now
	}
	if svc.build.StartedAt.IsZero() {
		svc.build.StartedAt = svc.now()
	}
	return svc, nil
}

// HealthReport probes dependencies and stamps the result with build metadata and uptime.
func (s *systemService) HealthReport(ctx context.Context) (domain.SystemHealthReport, error) {
	report, err := s.health.Collect(ctx)
	if err != nil {
		return domain.SystemHealthReport{}, err
	}
	now := s.now().UTC()
	if report.GeneratedAt.IsZero() {
		report.GeneratedAt = now
	}
	report.Version = s.build.Version
	report.CommitSHA = s.build.CommitSHA
	report.Environment = s.build.Environment
	report.Uptime = now.Sub(s.build.StartedAt)
	if report.Checks == nil {
		report.Checks = map[string]domain.SystemHealthCheck{}
	}
	if report.Status == "" {
		report.Status = deriveStatus(report.Checks, report.StoreMode)
	}
	return report, nil
}

// deriveStatus folds check results: any error wins, otherwise a failing check or the
// memory store degrades the report.
func deriveStatus(checks map[string]domain.SystemHealthCheck, mode domain.StoreMode) string {
	status := domain.HealthStatusOK
	if mode == domain.StoreModeMemory {
		status = domain.HealthStatusDegraded
	}
	for _, check := range checks {
		switch check.Status {
		case domain.HealthStatusError:
			return domain.HealthStatusError
		case domain.HealthStatusOK, "":
		default:
			status = domain.HealthStatusDegraded
		}
	}
	return status
}
