package geocluster

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory cluster store for demo/development mode.
type MemoryStore struct {
	clusters map[string]*Cluster // by ID
	byUser   map[string][]string // userID → IDs
	mu       sync.RWMutex
}

// NewMemoryStore creates a new in-memory cluster store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		clusters: make(map[string]*Cluster),
		byUser:   make(map[string][]string),
	}
}

func (m *MemoryStore) Create(ctx context.Context, c *Cluster) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *c
	m.clusters[c.ID] = &cp
	m.byUser[c.UserID] = append(m.byUser[c.UserID], c.ID)
	return nil
}

func (m *MemoryStore) Update(ctx context.Context, c *Cluster) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.clusters[c.ID]; !ok {
		return ErrClusterNotFound
	}
	cp := *c
	m.clusters[c.ID] = &cp
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Cluster, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.clusters[id]
	if !ok {
		return nil, ErrClusterNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MemoryStore) ListByUser(ctx context.Context, userID string) ([]*Cluster, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.byUser[userID]
	result := make([]*Cluster, 0, len(ids))
	for _, id := range ids {
		if c, ok := m.clusters[id]; ok {
			cp := *c
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.clusters[id]
	if !ok {
		return ErrClusterNotFound
	}
	delete(m.clusters, id)

	ids := m.byUser[c.UserID]
	for i, cid := range ids {
		if cid == id {
			m.byUser[c.UserID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}
