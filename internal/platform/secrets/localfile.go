package secrets

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

// localFile serves secrets from a developer file of "secret://name=value" lines. Lines starting
// with "#" are comments. The file is read once, on first use.
type localFile struct {
	path   string
	once   sync.Once
	values map[string]string
	err    error
}

func (l *localFile) lookup(ref reference) (string, bool, error) {
	l.once.Do(l.load)
	if l.err != nil {
		return "", false, l.err
	}
	if v, ok := l.values[ref.key()]; ok {
		return v, true, nil
	}
	v, ok := l.values[ref.String()]
	return v, ok, nil
}

func (l *localFile) load() {
	l.values = map[string]string{}
	if l.path == "" {
		return
	}
	file, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	if err != nil {
		l.err = fmt.Errorf("secrets: open %s: %w", l.path, err)
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		name, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		ref, err := parseReference(name)
		if err != nil {
			continue
		}
		value = strings.TrimSpace(value)
		l.values[ref.String()] = value
		l.values[ref.key()] = value
	}
	if err := scanner.Err(); err != nil {
		l.err = fmt.Errorf("secrets: read %s: %w", l.path, err)
	}
}
