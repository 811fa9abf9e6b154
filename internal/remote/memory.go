package remote

import (
	"context"
	"encoding/json"
	"sync"
)

// Memory is an in-process Store with the same read/write semantics as the
// hosted database.
type Memory struct {
	mu   sync.RWMutex
	root any
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Read(ctx context.Context, path string) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	segs, err := Segments(path)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Marshal(Lookup(m.root, segs))
}

func (m *Memory) Write(ctx context.Context, path string, value any, mode Mode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	segs, err := Segments(path)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	root, err := Apply(m.root, segs, value, mode)
	if err != nil {
		return err
	}
	m.root = root
	return nil
}
