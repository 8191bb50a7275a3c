package baseline

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory baseline store for demo/development mode.
type MemoryStore struct {
	attrs  map[string]*Attributes // by userID|deviceID
	scores map[string]*ScoreRecord
	mu     sync.RWMutex
}

// NewMemoryStore creates a new in-memory baseline store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		attrs:  make(map[string]*Attributes),
		scores: make(map[string]*ScoreRecord),
	}
}

func key(userID, deviceID string) string { return userID + "|" + deviceID }

func (m *MemoryStore) GetAttributes(ctx context.Context, userID, deviceID string) (*Attributes, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	attrs, ok := m.attrs[key(userID, deviceID)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *attrs
	cp.KnownIPRanges = append([]string(nil), attrs.KnownIPRanges...)
	return &cp, nil
}

func (m *MemoryStore) PutAttributes(ctx context.Context, attrs *Attributes) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *attrs
	cp.KnownIPRanges = append([]string(nil), attrs.KnownIPRanges...)
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = time.Now()
	}
	m.attrs[key(attrs.UserID, attrs.DeviceID)] = &cp
	return nil
}

func (m *MemoryStore) GetScore(ctx context.Context, userID, deviceID string) (*ScoreRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.scores[key(userID, deviceID)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *MemoryStore) PutScore(ctx context.Context, rec *ScoreRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *rec
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = time.Now()
	}
	m.scores[key(rec.UserID, rec.DeviceID)] = &cp
	return nil
}

func (m *MemoryStore) DeleteByDevice(ctx context.Context, userID, deviceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key(userID, deviceID)
	delete(m.attrs, k)
	delete(m.scores, k)
	return nil
}
