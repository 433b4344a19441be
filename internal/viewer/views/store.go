package views

import (
	"context"
	"sort"
	"sync"

	"building-viewer/internal/viewer/models"
)

// ============================================================
// Saved View Store
// ============================================================

// Store хранит позы камеры панорам по пути картинки.
type Store interface {
	Get(ctx context.Context, imagePath string) (models.SavedView, bool, error)
	Put(ctx context.Context, view models.SavedView) error
	List(ctx context.Context) ([]models.SavedView, error)
}

// MemoryStore живёт столько же, сколько сессия.
type MemoryStore struct {
	mu    sync.Mutex
	views map[string]models.SavedView
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{views: make(map[string]models.SavedView)}
}

func (s *MemoryStore) Get(_ context.Context, imagePath string) (models.SavedView, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.views[imagePath]
	return v, ok, nil
}

func (s *MemoryStore) Put(_ context.Context, view models.SavedView) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.views[view.ImagePath] = view
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]models.SavedView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.SavedView, 0, len(s.views))
	for _, v := range s.views {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ImagePath < out[j].ImagePath })
	return out, nil
}
