package escalation

import (
	"context"
	"sort"

	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps escalations in process memory.
type MemoryStore struct {
	items *cache.Cache
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: cache.New(cache.NoExpiration, 0)}
}

func (m *MemoryStore) Create(_ context.Context, rec *Record) error {
	m.items.Set(rec.ID, *rec, cache.NoExpiration)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Record, error) {
	v, ok := m.items.Get(id)
	if !ok {
		return nil, nil
	}
	rec := v.(Record)
	return &rec, nil
}

func (m *MemoryStore) Update(_ context.Context, rec *Record) error {
	m.items.Set(rec.ID, *rec, cache.NoExpiration)
	return nil
}

func (m *MemoryStore) ListForThread(_ context.Context, threadID string) ([]Record, error) {
	var recs []Record
	for _, item := range m.items.Items() {
		rec := item.Object.(Record)
		if rec.ThreadID == threadID {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].CreatedAt.After(recs[j].CreatedAt) })
	return recs, nil
}
