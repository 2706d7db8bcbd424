// Package cache memoizes extracted EARS contexts.
//
// Three backends share the Cache interface: an in-process map, a SQLite
// table and a bbolt bucket. Entries never expire; Clear drops everything.
package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ShayCichocki/delegator/pkg/models"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
)

// Cache stores extracted contexts by key. Get and Put are idempotent.
type Cache interface {
	// Get returns the context stored under key and whether it was present.
	Get(ctx context.Context, key string) (models.EARSContext, bool, error)
	// Put stores the context under key, replacing any previous value.
	Put(ctx context.Context, key string, value models.EARSContext) error
	// Clear removes all entries.
	Clear(ctx context.Context) error
	// Len returns the number of entries.
	Len(ctx context.Context) (int, error)
	// Close releases backend resources.
	Close() error
}

// Open creates a cache for the named backend. path is ignored for memory.
func Open(backend, path string) (Cache, error) {
	switch backend {
	case "", BackendMemory:
		return NewMemory(), nil
	case BackendSQLite:
		return OpenSQLite(path)
	case BackendBolt:
		return OpenBolt(path)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}

// DefaultPath returns the project-local cache file for a backend.
func DefaultPath(projectRoot, backend string) string {
	name := "cache.db"
	if backend == BackendBolt {
		name = "cache.bolt"
	}
	return filepath.Join(projectRoot, ".delegator", name)
}

func ensureDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	return nil
}

// Memory is an in-process cache.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]models.EARSContext
}

// NewMemory creates an empty in-process cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]models.EARSContext)}
}

func (m *Memory) Get(_ context.Context, key string) (models.EARSContext, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[key]
	if !ok {
		return models.EARSContext{}, false, nil
	}
	return v.Clone(), true, nil
}

func (m *Memory) Put(_ context.Context, key string, value models.EARSContext) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value.Clone()
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]models.EARSContext)
	return nil
}

func (m *Memory) Len(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}

func (m *Memory) Close() error { return nil }
