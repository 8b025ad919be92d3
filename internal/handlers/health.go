package handlers

import (
	"fmt"
	"net/http"
	"sort"
	"time"

	"go.uber.org/zap"

	domain "github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/domain"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/requestctx"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/services"
)

// HealthHandlers serves liveness and readiness probes.
type HealthHandlers struct {
	build  services.BuildInfo
	system services.SystemService
	clock  func() time.Time
}

// HealthOption customises HealthHandlers.
type HealthOption func(*HealthHandlers)

// NewHealthHandlers constructs health handlers. Without a system service readiness always
// reports ok.
func NewHealthHandlers(opts ...HealthOption) *HealthHandlers {
	h := &HealthHandlers{
		clock: time.Now,
		build: services.BuildInfo{StartedAt: time.Now().UTC()},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// WithHealthBuildInfo sets the version metadata reported by /healthz.
func WithHealthBuildInfo(info services.BuildInfo) HealthOption {
	return func(h *HealthHandlers) {
		h.build = info
	}
}

// WithHealthSystemService wires dependency probing for /readyz.
func WithHealthSystemService(svc services.SystemService) HealthOption {
	return func(h *HealthHandlers) {
		h.system = svc
	}
}

// WithHealthClock overrides the time source.
func WithHealthClock(clock func() time.Time) HealthOption {
	return func(h *HealthHandlers) {
		if clock != nil {
			h.clock = clock
		}
	}
}

type healthzResponse struct {
	Status      string `json:"status"`
	StoreMode   string `json:"storeMode,omitempty"`
	Version     string `json:"version,omitempty"`
	CommitSHA   string `json:"commitSha,omitempty"`
	Environment string `json:"environment,omitempty"`
	Uptime      string `json:"uptime"`
	Timestamp   string `json:"timestamp"`
}

// Healthz reports liveness. It never touches dependencies.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	now := h.clock().UTC()
	uptime := time.Duration(0)
	if !h.build.StartedAt.IsZero() {
		uptime = now.Sub(h.build.StartedAt)
	}
	writeJSONResponse(w, http.StatusOK, healthzResponse{
		Status:      domain.HealthStatusOK,
		StoreMode:   storeModeFrom(r.Context()),
		Version:     h.build.Version,
		CommitSHA:   h.build.CommitSHA,
		Environment: h.build.Environment,
		Uptime:      uptime.Round(time.Second).String(),
		Timestamp:   now.Format(time.RFC3339),
	})
}

type readyzCheck struct {
	Status    string `json:"status"`
	Detail    string `json:"detail,omitempty"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latencyMs"`
	CheckedAt string `json:"checkedAt,omitempty"`
}

type readyzResponse struct {
	Status      string                 `json:"status"`
	StoreMode   string                 `json:"storeMode,omitempty"`
	Checks      map[string]readyzCheck `json:"checks"`
	Details     []string               `json:"details,omitempty"`
	Version     string                 `json:"version,omitempty"`
	Environment string                 `json:"environment,omitempty"`
	Uptime      string                 `json:"uptime,omitempty"`
	Timestamp   string                 `json:"timestamp"`
}

// Readyz probes dependencies. A memory-backed store alone reports degraded with 200 so
// the instance keeps receiving traffic; any failing check returns 503.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := h.clock().UTC()
	if h.system == nil {
		writeJSONResponse(w, http.StatusOK, readyzResponse{
			Status:    domain.HealthStatusOK,
			StoreMode: storeModeFrom(ctx),
			Checks:    map[string]readyzCheck{},
			Timestamp: now.Format(time.RFC3339),
		})
		return
	}

	report, err := h.system.HealthReport(ctx)
	if err != nil {
		requestctx.Logger(ctx).Warn("readiness probe failed", zap.Error(err))
		writeJSONResponse(w, http.StatusServiceUnavailable, readyzResponse{
			Status:    domain.HealthStatusError,
			StoreMode: storeModeFrom(ctx),
			Checks:    map[string]readyzCheck{},
			Details:   []string{"health: unavailable"},
			Timestamp: now.Format(time.RFC3339),
		})
		return
	}

	names := make([]string, 0, len(report.Checks))
	for name := range report.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	checks := make(map[string]readyzCheck, len(names))
	var details []string
	for _, name := range names {
		check := report.Checks[name]
		checks[name] = readyzCheck{
			Status:    check.Status,
			Detail:    check.Detail,
			Error:     check.Error,
			LatencyMS: check.Latency.Milliseconds(),
			CheckedAt: formatTime(check.CheckedAt),
		}
		if check.Status != domain.HealthStatusOK {
			msg := check.Error
			if msg == "" {
				msg = check.Status
			}
			details = append(details, fmt.Sprintf("%s: %s", name, msg))
		}
	}

	status := http.StatusOK
	if report.Status == domain.HealthStatusError || len(details) > 0 {
		status = http.StatusServiceUnavailable
	}

	storeMode := string(report.StoreMode)
	if storeMode == "" {
		storeMode = storeModeFrom(ctx)
	}
	generated := report.GeneratedAt
	if generated.IsZero() {
		generated = now
	}
	writeJSONResponse(w, status, readyzResponse{
		Status:      report.Status,
		StoreMode:   storeMode,
		Checks:      checks,
		Details:     details,
		Version:     report.Version,
		Environment: report.Environment,
		Uptime:      report.Uptime.Round(time.Second).String(),
		Timestamp:   generated.UTC().Format(time.RFC3339),
	})
}
