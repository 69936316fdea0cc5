package artifact

import (
	"fmt"
	"slices"
	"sync"
)

// InMemoryStore is an in‑process ArtifactStore keeping every version of
// every artifact in a nested map guarded by an RWMutex. Data is copied on
// save / retrieval so callers cannot mutate stored buffers.
//
// Layout: sessionID -> name -> versions (index 0 is version 1)
type InMemoryStore struct {
	mu        sync.RWMutex
	artifacts map[string]map[string][][]byte
}

// NewInMemoryStore returns an empty in‑memory artifact store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{artifacts: make(map[string]map[string][][]byte)}
}

// Save appends a new version of the artifact and returns its number.
func (a *InMemoryStore) Save(sessionID, name string, data []byte) (int, error) {
	if name == "" {
		return 0, ErrInvalidName
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.artifacts[sessionID]; !exists {
		a.artifacts[sessionID] = make(map[string][][]byte)
	}

	a.artifacts[sessionID][name] = append(a.artifacts[sessionID][name], slices.Clone(data))

	return len(a.artifacts[sessionID][name]), nil
}

// Get returns a copy of the latest version or ErrNotFound.
func (a *InMemoryStore) Get(sessionID, name string) ([]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	versions := a.artifacts[sessionID][name]
	if len(versions) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	return slices.Clone(versions[len(versions)-1]), nil
}

// GetVersion returns a copy of a specific version (1-based).
func (a *InMemoryStore) GetVersion(sessionID, name string, version int) ([]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	versions := a.artifacts[sessionID][name]
	if version < 1 || version > len(versions) {
		return nil, fmt.Errorf("%w: %s@%d", ErrNotFound, name, version)
	}

	return slices.Clone(versions[version-1]), nil
}

// Versions lists the version numbers stored for an artifact in ascending order.
func (a *InMemoryStore) Versions(sessionID, name string) ([]int, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	versions := a.artifacts[sessionID][name]
	if len(versions) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	out := make([]int, len(versions))
	for i := range versions {
		out[i] = i + 1
	}

	return out, nil
}

// List returns the sorted artifact names stored for the session.
func (a *InMemoryStore) List(sessionID string) ([]string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, 0, len(a.artifacts[sessionID]))
	for name := range a.artifacts[sessionID] {
		names = append(names, name)
	}

	slices.Sort(names)

	return names, nil
}

// Delete removes every version of the artifact or returns ErrNotFound.
func (a *InMemoryStore) Delete(sessionID, name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	m, ok := a.artifacts[sessionID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	if _, ok := m[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	delete(m, name)

	return nil
}
