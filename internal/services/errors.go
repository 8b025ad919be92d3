package services

import (
	"errors"
	"fmt"

	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/payments"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/repositories"
)

var (
	// ErrValidation signals bad or missing caller input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates the cart, order, product, or cart line does not exist.
	ErrNotFound = errors.New("not found")
	// ErrSignatureInvalid indicates a payment signature did not verify.
	ErrSignatureInvalid = errors.New("payment signature invalid")
	// ErrAlreadyPaid rejects a second confirmation of the same order.
	ErrAlreadyPaid = errors.New("order already paid")
	// ErrGateway wraps failures of the external payment provider.
	ErrGateway = errors.New("payment gateway error")
	// ErrStoreUnavailable indicates the backing store cannot serve requests.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrInvalidTransition indicates the order state machine refused a transition.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrConflict indicates a uniqueness or concurrency conflict that retries did not resolve.
	ErrConflict = errors.New("conflict")
)

// GatewayError is returned for provider failures. Rejected distinguishes a refused request
// (surfaced as 400) from an outage or timeout (surfaced as 502).
type GatewayError struct {
	Provider string
	Op       string
	Rejected bool
	Err      error
}

func (e *GatewayError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s %s: %v", ErrGateway.Error(), e.Provider, e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *GatewayError) Is(target error) bool {
	return target == ErrGateway
}

func mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	return err
}

func mapGatewayError(provider, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, payments.ErrSignatureMismatch) {
		return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	if errors.Is(err, payments.ErrUnsupportedProvider) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	gwErr := &GatewayError{Provider: provider, Op: op, Err: err}
	var pspErr *payments.GatewayError
	if errors.As(err, &pspErr) {
		gwErr.Rejected = pspErr.Rejected
		if pspErr.Provider != "" {
			gwErr.Provider = pspErr.Provider
		}
	}
	return gwErr
}

func isConflict(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsConflict()
}
