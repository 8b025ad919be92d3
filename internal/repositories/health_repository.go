package repositories

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	domain "github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/domain"
)

// DependencyCheck is one readiness probe. A failing Critical check turns the report
// to error; any other failure degrades it.
type DependencyCheck struct {
	Name     string
	Timeout  time.Duration
	Critical bool
	Check    func(context.Context) error
}

type DependencyHealthOption func(*dependencyHealth)

func WithDependencyClock(now func() time.Time) DependencyHealthOption {
	return func(h *dependencyHealth) { h.now = now }
}

// WithStoreMode records the active backend. The memory store always degrades readiness.
func WithStoreMode(mode domain.StoreMode) DependencyHealthOption {
	return func(h *dependencyHealth) { h.mode = mode }
}

type dependencyHealth struct {
	checks []DependencyCheck
	mode   domain.StoreMode
	now    func() time.Time
}

func NewDependencyHealthRepository(checks []DependencyCheck, opts ...DependencyHealthOption) (HealthRepository, error) {
	if len(checks) == 0 {
		return nil, errors.New("health repository: at least one dependency check is required")
	}
	for _, c := range checks {
		if c.Name == "" || c.Check == nil {
			return nil, fmt.Errorf("health repository: check %q needs a name and a function", c.Name)
		}
	}
	h := &dependencyHealth{checks: checks, now: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Collect runs every probe in parallel, each bounded by its own timeout.
func (h *dependencyHealth) Collect(ctx context.Context) (domain.SystemHealthReport, error) {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]domain.SystemHealthCheck, len(h.checks))
		down    bool
		flaky   bool
	)
	for _, c := range h.checks {
		wg.Go(func() {
			res := h.probe(ctx, c)
			mu.Lock()
			defer mu.Unlock()
			results[c.Name] = res
			if res.Status != domain.HealthStatusOK {
				down = down || c.Critical
				flaky = flaky || !c.Critical
			}
		})
	}
	wg.Wait()

	status := domain.HealthStatusOK
	switch {
	case down:
		status = domain.HealthStatusError
	case flaky || h.mode == domain.StoreModeMemory:
		status = domain.HealthStatusDegraded
	}
	return domain.SystemHealthReport{
		Status:      status,
		StoreMode:   h.mode,
		Checks:      results,
		GeneratedAt: h.now(),
	}, nil
}

func (h *dependencyHealth) probe(ctx context.Context, c DependencyCheck) domain.SystemHealthCheck {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 1500 * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := h.now()
	err := c.Check(ctx)
	if err == nil {
		err = ctx.Err()
	}
	finished := h.now()

	res := domain.SystemHealthCheck{
		Status:    domain.HealthStatusOK,
		Detail:    "ok",
		Latency:   finished.Sub(started),
		CheckedAt: finished,
	}
	if err != nil {
		res.Status = domain.HealthStatusError
		res.Error = err.Error()
		res.Detail = "unreachable"
		if errors.Is(err, context.DeadlineExceeded) {
			res.Detail = "timeout"
		}
	}
	return res
}
