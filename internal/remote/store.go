// Package remote talks to the hosted JSON document store. Paths follow the
// {user}/{collection}[/{id}...] convention; every call is a single
// best-effort request and concurrent writers race with last-write-wins.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Mode selects the write semantics.
type Mode int

const (
	// ModePut replaces the document at path.
	ModePut Mode = iota
	// ModePatch merges the given children into the document at path.
	ModePatch
	// ModeDelete removes the document at path.
	ModeDelete
)

func (m Mode) String() string {
	switch m {
	case ModePut:
		return "put"
	case ModePatch:
		return "patch"
	case ModeDelete:
		return "delete"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Store is the contract every backend satisfies. Read returns the JSON
// literal null for a missing path.
type Store interface {
	Read(ctx context.Context, path string) (json.RawMessage, error)
	Write(ctx context.Context, path string, value any, mode Mode) error
}

// ErrInvalidPath is returned for empty or malformed paths.
var ErrInvalidPath = errors.New("invalid store path")

// StatusError is a non-2xx reply from the store.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// Path joins segments with '/', dropping empty ones.
func Path(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s = strings.Trim(s, "/"); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "/")
}

// Segments splits a path and rejects characters the store forbids in keys.
func Segments(path string) ([]string, error) {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil, nil
	}
	segs := strings.Split(path, "/")
	for _, s := range segs {
		if s == "" || strings.ContainsAny(s, ".#$[]") {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}
	return segs, nil
}

// Decode unmarshals a Read result; JSON null leaves out untouched.
func Decode(raw json.RawMessage, out any) error {
	if IsNull(raw) {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func IsNull(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null"
}
