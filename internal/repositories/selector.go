package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Store selection modes.
const (
	SelectAuto       = "auto"
	SelectPersistent = "persistent"
	SelectMemory     = "memory"
)

const defaultProbeTimeout = 3 * time.Second

// ErrNoStore is returned when no backend could be selected.
var ErrNoStore = errors.New("repositories: no store available")

// StoreSelection configures SelectStore.
type StoreSelection struct {
	Mode         string
	ProbeTimeout time.Duration
	Persistent   func(ctx context.Context) (Store, error)
	Fallback     func() Store
	Logger       func(ctx context.Context, event string, fields map[string]any)
}

// SelectStore picks the backend once at startup. In auto mode the persistent store is probed and the
// fallback is used when it cannot be built or does not answer within the probe timeout.
func SelectStore(ctx context.Context, sel StoreSelection) (Store, error) {
	mode := strings.ToLower(strings.TrimSpace(sel.Mode))
	if mode == "" {
		mode = SelectAuto
	}
	logf := sel.Logger
	if logf == nil {
		logf = func(context.Context, string, map[string]any) {}
	}

	switch mode {
	case SelectMemory:
		if sel.Fallback == nil {
			return nil, fmt.Errorf("%w: memory mode without fallback", ErrNoStore)
		}
		logf(ctx, "store.selected", map[string]any{"mode": SelectMemory, "reason": "configured"})
		return sel.Fallback(), nil
	case SelectPersistent, SelectAuto:
	default:
		return nil, fmt.Errorf("repositories: unknown store mode %q", sel.Mode)
	}

	store, err := probePersistent(ctx, sel)
	if err == nil {
		logf(ctx, "store.selected", map[string]any{"mode": SelectPersistent})
		return store, nil
	}
	if mode == SelectPersistent || sel.Fallback == nil {
		return nil, fmt.Errorf("%w: %v", ErrNoStore, err)
	}
	logf(ctx, "store.fallback", map[string]any{"mode": SelectMemory, "error": err.Error()})
	return sel.Fallback(), nil
}

func probePersistent(ctx context.Context, sel StoreSelection) (Store, error) {
	if sel.Persistent == nil {
		return nil, errors.New("persistent store not configured")
	}
	timeout := sel.ProbeTimeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	store, err := sel.Persistent(probeCtx)
	if err != nil {
		return nil, err
	}
	if err := store.Ping(probeCtx); err != nil {
		closeCtx, closeCancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer closeCancel()
		_ = store.Close(closeCtx)
		return nil, fmt.Errorf("probe persistent store: %w", err)
	}
	return store, nil
}
