package flow

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/patrickmn/go-cache"
)

// MemoryStore is an in-process implementation of every flow store. It backs the
// offline CLI and tests.
type MemoryStore struct {
	flows     *cache.Cache
	sessions  *cache.Cache
	mu        sync.Mutex
	responses []Response
	counters  map[string]int
}

// NewMemoryStore creates a MemoryStore holding the given definitions.
func NewMemoryStore(defs ...Definition) *MemoryStore {
	m := &MemoryStore{
		flows:    cache.New(cache.NoExpiration, 0),
		sessions: cache.New(cache.NoExpiration, 0),
		counters: make(map[string]int),
	}
	for _, def := range defs {
		m.AddFlow(def)
	}
	return m
}

// AddFlow stores or replaces a definition.
func (m *MemoryStore) AddFlow(def Definition) {
	m.flows.Set(def.ID, def, cache.NoExpiration)
}

func (m *MemoryStore) GetFlow(_ context.Context, id string) (*Definition, error) {
	v, ok := m.flows.Get(id)
	if !ok {
		return nil, nil
	}
	def := v.(Definition)
	return &def, nil
}

func (m *MemoryStore) ActiveFlowsByCategory(_ context.Context, category string) ([]Definition, error) {
	var defs []Definition
	for _, item := range m.flows.Items() {
		def := item.Object.(Definition)
		if def.IsActive && def.Category == category {
			defs = append(defs, def)
		}
	}
	sort.Slice(defs, func(i, j int) bool {
		if defs[i].Version != defs[j].Version {
			return defs[i].Version > defs[j].Version
		}
		return defs[i].ID < defs[j].ID
	})
	return defs, nil
}

func (m *MemoryStore) CreateSession(_ context.Context, s *Session) error {
	m.sessions.Set(s.ID, cloneSession(s), cache.NoExpiration)
	return nil
}

func (m *MemoryStore) GetSession(_ context.Context, id string) (*Session, error) {
	v, ok := m.sessions.Get(id)
	if !ok {
		return nil, nil
	}
	s := cloneSession(v.(*Session))
	return s, nil
}

func (m *MemoryStore) UpdateSession(_ context.Context, s *Session) error {
	if _, ok := m.sessions.Get(s.ID); !ok {
		return fmt.Errorf("update session %s: %w", s.ID, ErrSessionNotFound)
	}
	m.sessions.Set(s.ID, cloneSession(s), cache.NoExpiration)
	return nil
}

func (m *MemoryStore) ActiveSessionForThread(_ context.Context, threadID string) (*Session, error) {
	var latest *Session
	for _, item := range m.sessions.Items() {
		s := item.Object.(*Session)
		if s.ThreadID != threadID || !s.IsActive {
			continue
		}
		if latest == nil || s.StartedAt.After(latest.StartedAt) {
			latest = s
		}
	}
	if latest == nil {
		return nil, nil
	}
	return cloneSession(latest), nil
}

func (m *MemoryStore) AppendResponse(_ context.Context, r *Response) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, *r)
	return nil
}

// Responses returns the audit log of a session in insertion order.
func (m *MemoryStore) Responses(sessionID string) []Response {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Response
	for _, r := range m.responses {
		if r.SessionID == sessionID {
			out = append(out, r)
		}
	}
	return out
}

func (m *MemoryStore) Record(_ context.Context, flowID, nodeID string, metric Metric, elapsedSeconds *int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[counterKey(flowID, nodeID, metric)]++
	if elapsedSeconds != nil {
		m.counters[counterKey(flowID, nodeID, "elapsed_seconds")] += *elapsedSeconds
	}
	return nil
}

// Count returns a recorded analytics counter.
func (m *MemoryStore) Count(flowID, nodeID string, metric Metric) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[counterKey(flowID, nodeID, metric)]
}

func counterKey(flowID, nodeID string, metric Metric) string {
	return flowID + "/" + nodeID + "/" + string(metric)
}

func cloneSession(s *Session) *Session {
	c := *s
	c.State = make(State, len(s.State))
	for k, v := range s.State {
		c.State[k] = v
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
