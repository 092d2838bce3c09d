package memory

import (
	"sync"

	"arena-service/internal/app"
)

// ArenaFactory builds a fresh arena (with its own progression store) for a user.
type ArenaFactory func(userID string) *app.Arena

// ArenaRegistry keeps one arena per user so reconnects resume the same run.
type ArenaRegistry struct {
	factory ArenaFactory

	mu     sync.RWMutex
	arenas map[string]*app.Arena
}

func NewArenaRegistry(factory ArenaFactory) *ArenaRegistry {
	return &ArenaRegistry{
		factory: factory,
		arenas:  make(map[string]*app.Arena),
	}
}

func (r *ArenaRegistry) GetOrCreate(userID string) *app.Arena {
	r.mu.Lock()
	defer r.mu.Unlock()
	if arena, ok := r.arenas[userID]; ok {
		return arena
	}
	arena := r.factory(userID)
	r.arenas[userID] = arena
	return arena
}

func (r *ArenaRegistry) Get(userID string) (*app.Arena, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	arena, ok := r.arenas[userID]
	return arena, ok
}

func (r *ArenaRegistry) Remove(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.arenas, userID)
}
