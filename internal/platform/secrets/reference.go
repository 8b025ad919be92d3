package secrets

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// reference is a parsed secret://name?version=N&project=P value. sm:// is accepted as an alias.
type reference struct {
	name    string
	version string
	project string
}

func parseReference(raw string) (reference, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return reference{}, errors.New("secrets: empty reference")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return reference{}, fmt.Errorf("secrets: parse %q: %w", raw, err)
	}
	switch u.Scheme {
	case "secret", "sm":
	default:
		return reference{}, fmt.Errorf("secrets: scheme %q not supported", u.Scheme)
	}
	ref := reference{
		name:    strings.Trim(u.Host+u.Path, "/"),
		version: strings.TrimSpace(u.Query().Get("version")),
		project: strings.TrimSpace(u.Query().Get("project")),
	}
	if ref.name == "" {
		return reference{}, fmt.Errorf("secrets: %q names no secret", raw)
	}
	if ref.version == "" {
		ref.version = "latest"
	}
	return ref, nil
}

// String is the canonical form without query parameters.
func (r reference) String() string { return "secret://" + r.name }

func (r reference) key() string { return r.String() + "#" + r.version }

func (r reference) resource(project string) string {
	return fmt.Sprintf("projects/%s/secrets/%s/versions/%s", project, r.name, r.version)
}
