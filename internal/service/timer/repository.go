package timer

import (
	"context"
	"errors"
	"sync"

	model "github.com/rknm-cell/mise/backend/internal/model/timer"
)

// ErrNotFound is returned for an unknown timer id.
var ErrNotFound = errors.New("timer not found")

// Repository stores live timers. Implementations must preserve insertion
// order in List.
type Repository interface {
	Create(ctx context.Context, t model.Timer) error
	Get(ctx context.Context, id string) (model.Timer, error)
	List(ctx context.Context) ([]model.Timer, error)
	Update(ctx context.Context, t model.Timer) error
	Delete(ctx context.Context, id string) error
}

// Compile-time interface check.
var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository keeps timers in process memory. State is not shared
// between service instances.
type MemoryRepository struct {
	mu     sync.RWMutex
	timers map[string]model.Timer
	order  []string
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{timers: make(map[string]model.Timer)}
}

func (r *MemoryRepository) Create(_ context.Context, t model.Timer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.timers[t.ID]; !ok {
		r.order = append(r.order, t.ID)
	}
	r.timers[t.ID] = t
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (model.Timer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.timers[id]
	if !ok {
		return model.Timer{}, ErrNotFound
	}
	return t, nil
}

func (r *MemoryRepository) List(_ context.Context) ([]model.Timer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Timer, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.timers[id])
	}
	return out, nil
}

func (r *MemoryRepository) Update(_ context.Context, t model.Timer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.timers[t.ID]; !ok {
		return ErrNotFound
	}
	r.timers[t.ID] = t
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.timers[id]; !ok {
		return ErrNotFound
	}
	delete(r.timers, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}
