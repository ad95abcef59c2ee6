package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"hiring-pipeline/internal/models"
)

// MemoryStore keeps candidates in process. Records are cloned on the way in
// and out so callers never share state with the store.
type MemoryStore struct {
	mu      sync.RWMutex
	tenants map[string]map[string]*models.Candidate
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tenants: make(map[string]map[string]*models.Candidate),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) FindOne(ctx context.Context, tenantID, id string) (*models.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.tenants[tenantID][id]
	if !ok {
		return nil, ErrNotFound
	}
	return c.Clone(), nil
}

func (s *MemoryStore) Find(ctx context.Context, tenantID string, filter models.CandidateFilter) ([]*models.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Candidate, 0, len(s.tenants[tenantID]))
	for _, c := range s.tenants[tenantID] {
		if filter.Matches(c) {
			out = append(out, c.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) Insert(ctx context.Context, tenantID string, c *models.Candidate) (*models.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	byID, ok := s.tenants[tenantID]
	if !ok {
		byID = make(map[string]*models.Candidate)
		s.tenants[tenantID] = byID
	}
	if _, exists := byID[c.ID]; exists {
		return nil, ErrConflict
	}

	stored := c.Clone()
	stored.OrgID = tenantID
	byID[c.ID] = stored
	return stored.Clone(), nil
}

func (s *MemoryStore) Update(ctx context.Context, tenantID, id string, m Mutation) (*models.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.tenants[tenantID][id]
	if !ok {
		return nil, ErrNotFound
	}
	if err := m.CheckVersion(c.Version); err != nil {
		return nil, err
	}

	next := c.Clone()
	m.Apply(next, s.now())
	s.tenants[tenantID][id] = next
	return next.Clone(), nil
}

func (s *MemoryStore) DeleteOne(ctx context.Context, tenantID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tenants[tenantID][id]; !ok {
		return ErrNotFound
	}
	delete(s.tenants[tenantID], id)
	return nil
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}
