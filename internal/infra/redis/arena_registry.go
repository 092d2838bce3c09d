package redis

import (
	"context"
	"sync"
	"time"

	"arena-service/internal/app"
	"arena-service/internal/infra/memory"
	"github.com/redis/go-redis/v9"
)

// ArenaRegistry is a Redis-aware per-user arena registry.
// Notes:
//   - Arenas themselves stay in-process; run state is not shared across
//     instances.
//   - Redis marks which users have a live arena (and could be extended to
//     route reconnects to the owning instance).
type ArenaRegistry struct {
	client  *redis.Client
	ttl     time.Duration
	factory memory.ArenaFactory

	mu     sync.RWMutex
	arenas map[string]*app.Arena
}

func NewArenaRegistry(client *redis.Client, ttl time.Duration, factory memory.ArenaFactory) *ArenaRegistry {
	return &ArenaRegistry{
		client:  client,
		ttl:     ttl,
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
	// best-effort liveness marker
	_ = r.client.Set(context.Background(), r.key(userID), "1", r.ttl).Err()
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
	if _, ok := r.arenas[userID]; !ok {
		return
	}
	delete(r.arenas, userID)
	_ = r.client.Del(context.Background(), r.key(userID)).Err()
}

func (r *ArenaRegistry) key(userID string) string {
	return "arena:session:" + userID
}
