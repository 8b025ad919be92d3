package pagination

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultLimit is used when the client omits limit.
	DefaultLimit = 10
	// MaxLimit caps limit to prevent unbounded queries.
	MaxLimit = 100
)

var (
	ErrInvalidPage  = errors.New("pagination: invalid page")
	ErrInvalidLimit = errors.New("pagination: invalid limit")
)

// Params is a 1-based page number and a page size.
type Params struct {
	Page  int
	Limit int
}

// Offset returns the number of items to skip.
func (p Params) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// FromRequest parses page and limit from the request query string.
func FromRequest(r *http.Request) (Params, error) {
	if r == nil {
		return Params{}, errors.New("pagination: nil request")
	}
	return Parse(r.URL.Query())
}

// Parse reads page (default 1) and limit (default 10, capped at 100). Non-numeric or
// non-positive values are rejected.
func Parse(values url.Values) (Params, error) {
	page, err := parsePositive(values.Get("page"), 1)
	if err != nil {
		return Params{}, fmt.Errorf("%w: %v", ErrInvalidPage, err)
	}
	limit, err := parsePositive(values.Get("limit"), DefaultLimit)
	if err != nil {
		return Params{}, fmt.Errorf("%w: %v", ErrInvalidLimit, err)
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Params{Page: page, Limit: limit}, nil
}

func parsePositive(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", raw)
	}
	if value < 1 {
		return 0, fmt.Errorf("must be at least 1, got %d", value)
	}
	return value, nil
}
