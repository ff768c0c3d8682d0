// Package memory is an in-process vector store with the same existence and
// upsert semantics as the remote stores.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"ragingest/internal/domain"
)

type collection struct {
	desc   domain.CollectionDescriptor
	points map[uint64]domain.Point
}

// Storage keeps collections in memory.
type Storage struct {
	mu          sync.RWMutex
	collections map[string]*collection
	mutations   int
}

var _ domain.VectorStore = (*Storage)(nil)

// NewStorage creates an empty store.
func NewStorage() *Storage {
	return &Storage{collections: make(map[string]*collection)}
}

// ListCollections returns collection names in lexical order.
func (s *Storage) ListCollections(ctx context.Context) (domain.ListResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.ListResult{}, err
	}
	start := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	out := domain.ListResult{Collections: make([]domain.CollectionInfo, len(names))}
	for i, n := range names {
		out.Collections[i] = domain.CollectionInfo{Name: n}
	}
	out.Duration = time.Since(start)
	return out, nil
}

// CollectionExists reports whether name exists.
func (s *Storage) CollectionExists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collections[name]
	return ok, nil
}

// CreateCollection creates the collection unless it exists already.
func (s *Storage) CreateCollection(ctx context.Context, desc domain.CollectionDescriptor) (domain.CreateResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.CreateResult{}, err
	}
	if desc.Dimension == 0 {
		return domain.CreateResult{}, fmt.Errorf("collection %q: invalid dimension 0", desc.Name)
	}
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[desc.Name]; ok {
		return domain.CreateResult{Created: false, Duration: time.Since(start)}, nil
	}
	s.collections[desc.Name] = &collection{desc: desc, points: make(map[uint64]domain.Point)}
	s.mutations++
	return domain.CreateResult{Created: true, Duration: time.Since(start)}, nil
}

// Upsert inserts or overwrites points by ID. The batch is applied entirely or not at all.
func (s *Storage) Upsert(ctx context.Context, name string, points []domain.Point, _ bool) (domain.UpsertResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.UpsertResult{}, err
	}
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		return domain.UpsertResult{}, fmt.Errorf("collection %q not found", name)
	}
	for _, p := range points {
		if uint64(len(p.Vector)) != c.desc.Dimension {
			return domain.UpsertResult{}, fmt.Errorf("point %d: vector dimension %d, collection expects %d", p.ID, len(p.Vector), c.desc.Dimension)
		}
	}
	for _, p := range points {
		c.points[p.ID] = domain.Point{
			ID:      p.ID,
			Vector:  append(domain.Embedding(nil), p.Vector...),
			Payload: maps.Clone(p.Payload),
		}
	}
	s.mutations++
	return domain.UpsertResult{Status: domain.StatusCompleted, Duration: time.Since(start)}, nil
}

// Count returns the number of points in name.
func (s *Storage) Count(ctx context.Context, name string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[name]
	if !ok {
		return 0, fmt.Errorf("collection %q not found", name)
	}
	return uint64(len(c.points)), nil
}

// Descriptor returns the geometry name was created with.
func (s *Storage) Descriptor(name string) (domain.CollectionDescriptor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[name]
	if !ok {
		return domain.CollectionDescriptor{}, false
	}
	return c.desc, true
}

// Point returns a copy of the stored point.
func (s *Storage) Point(name string, id uint64) (domain.Point, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[name]
	if !ok {
		return domain.Point{}, false
	}
	p, ok := c.points[id]
	return p, ok
}

// Mutations counts successful create and upsert calls.
func (s *Storage) Mutations() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mutations
}

// Close is a no-op.
func (s *Storage) Close() error { return nil }
