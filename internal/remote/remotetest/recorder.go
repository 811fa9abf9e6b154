// Package remotetest provides a recording remote.Store for tests.
package remotetest

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/Tomlord1122/join/internal/remote"
)

// Call is one recorded Write.
type Call struct {
	Path  string
	Mode  remote.Mode
	Value any
}

// Recorder wraps a Memory store, records writes and can be told to fail.
type Recorder struct {
	*remote.Memory

	mu       sync.Mutex
	writes   []Call
	reads    []string
	ReadErr  error
	WriteErr error
}

func New() *Recorder {
	return &Recorder{Memory: remote.NewMemory()}
}

func (r *Recorder) Read(ctx context.Context, path string) (json.RawMessage, error) {
	r.mu.Lock()
	r.reads = append(r.reads, path)
	err := r.ReadErr
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return r.Memory.Read(ctx, path)
}

func (r *Recorder) Write(ctx context.Context, path string, value any, mode remote.Mode) error {
	r.mu.Lock()
	r.writes = append(r.writes, Call{Path: path, Mode: mode, Value: value})
	err := r.WriteErr
	r.mu.Unlock()
	if err != nil {
		return err
	}
	return r.Memory.Write(ctx, path, value, mode)
}

// Writes returns the recorded writes, optionally filtered by mode.
func (r *Recorder) Writes(modes ...remote.Mode) []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Call
	for _, c := range r.writes {
		if len(modes) == 0 {
			out = append(out, c)
			continue
		}
		for _, m := range modes {
			if c.Mode == m {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// Reads returns every path read so far.
func (r *Recorder) Reads() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.reads...)
}

// Reset forgets recorded calls but keeps the stored data.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes = nil
	r.reads = nil
}
