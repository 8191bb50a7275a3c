package trust

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory evaluation store for demo/development mode.
type MemoryStore struct {
	reports map[string]*Report // by ID
	byUser  map[string][]string
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory evaluation store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reports: make(map[string]*Report),
		byUser:  make(map[string][]string),
	}
}

func (m *MemoryStore) Record(ctx context.Context, report *Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := copyReport(report)
	m.reports[report.ID] = cp
	// Newest first.
	m.byUser[report.UserID] = append([]string{report.ID}, m.byUser[report.UserID]...)
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	report, ok := m.reports[id]
	if !ok {
		return nil, ErrEvaluationNotFound
	}
	return copyReport(report), nil
}

func (m *MemoryStore) ListByUser(ctx context.Context, userID string, limit int) ([]*Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Report
	for _, id := range m.byUser[userID] {
		if r, ok := m.reports[id]; ok {
			result = append(result, copyReport(r))
			if len(result) >= limit {
				break
			}
		}
	}
	return result, nil
}

func (m *MemoryStore) ListByDevice(ctx context.Context, userID, deviceID string, limit int) ([]*Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Report
	for _, id := range m.byUser[userID] {
		r, ok := m.reports[id]
		if !ok || r.DeviceID != deviceID {
			continue
		}
		result = append(result, copyReport(r))
		if len(result) >= limit {
			break
		}
	}
	return result, nil
}

func copyReport(r *Report) *Report {
	cp := *r
	cp.Factors = append([]FactorReport(nil), r.Factors...)
	cp.Flags = append([]Flag(nil), r.Flags...)
	if r.Decay != nil {
		d := *r.Decay
		if r.Decay.PerFactor != nil {
			d.PerFactor = make(map[string]int, len(r.Decay.PerFactor))
			for k, v := range r.Decay.PerFactor {
				d.PerFactor[k] = v
			}
		}
		cp.Decay = &d
	}
	return &cp
}
