package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Manager shares stores between loggers. Loggers configured with the same URI and
// database write through one connection.
type Manager struct {
	stores map[string]Store
	mu     sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		stores: make(map[string]Store),
	}
}

func managerKey(cfg Config) string {
	return cfg.URI + "#" + cfg.Database
}

// GetStore returns the store for cfg, opening it on first use. memory:// stores
// are shared like any other, so two loggers pointed at memory:// see each other's
// documents.
func (m *Manager) GetStore(ctx context.Context, cfg Config) (Store, error) {
	key := managerKey(cfg)

	m.mu.RLock()
	store, exists := m.stores[key]
	m.mu.RUnlock()

	if exists {
		return store, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if store, exists := m.stores[key]; exists {
		return store, nil
	}

	store, err := Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening store %s: %w", Scheme(cfg.URI), err)
	}

	m.stores[key] = store
	return store, nil
}

// Len returns the number of open stores.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.stores)
}

// Close closes every store opened by the manager. The manager can be reused
// afterwards.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for key, store := range m.stores {
		if err := store.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("closing store %s: %w", Scheme(key), err))
		}
	}

	m.stores = make(map[string]Store)
	return errors.Join(errs...)
}
