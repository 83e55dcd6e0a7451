package history

import (
	"sort"
	"sync"

	"github.com/petrijr/deepdive/pkg/api"
)

// InMemoryStore is a simple, goroutine-safe Store backed by a map.
type InMemoryStore struct {
	mu   sync.RWMutex
	runs map[string]api.RunRecord
}

// NewInMemoryStore creates a new InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		runs: make(map[string]api.RunRecord),
	}
}

// Ensure InMemoryStore implements Store.
var _ Store = (*InMemoryStore)(nil)

func (s *InMemoryStore) SaveRun(rec api.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[rec.ID] = rec
	return nil
}

func (s *InMemoryStore) GetRun(id string) (api.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.runs[id]
	if !ok {
		return api.RunRecord{}, ErrRunNotFound
	}
	return rec, nil
}

func (s *InMemoryStore) ListRuns(filter api.RunFilter) ([]api.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []api.RunRecord
	for _, rec := range s.runs {
		if filter.Status != "" && rec.Status != filter.Status {
			continue
		}
		if filter.Intent != "" && rec.Intent != filter.Intent {
			continue
		}
		result = append(result, rec)
	}

	// Map iteration order is random; list oldest first.
	sort.Slice(result, func(i, j int) bool {
		if result[i].StartedAt.Equal(result[j].StartedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].StartedAt.Before(result[j].StartedAt)
	})
	return result, nil
}
