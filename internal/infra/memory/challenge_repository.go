package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"arena-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// ChallengeLoader fetches challenge batches from a backing store (e.g., Postgres).
type ChallengeLoader interface {
	LoadChallenges(ctx context.Context, difficulty domain.Difficulty) ([]domain.Challenge, error)
}

// ChallengeRepository caches batches per difficulty with TTL to avoid
// repeated DB hits when many users start runs at once.
type ChallengeRepository struct {
	loader ChallengeLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[domain.Difficulty]cachedBatch
}

type cachedBatch struct {
	challenges []domain.Challenge
	expiresAt  time.Time
}

func NewChallengeRepository(loader ChallengeLoader, ttl time.Duration) *ChallengeRepository {
	return &ChallengeRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[domain.Difficulty]cachedBatch),
	}
}

func (r *ChallengeRepository) FetchChallenges(ctx context.Context, difficulty domain.Difficulty) ([]domain.Challenge, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[difficulty]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.challenges, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(string(difficulty), func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[difficulty]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.challenges, nil
		}
		r.mu.RUnlock()

		challenges, err := r.loader.LoadChallenges(ctx, difficulty)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.cache[difficulty] = cachedBatch{
			challenges: challenges,
			expiresAt:  now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return challenges, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Challenge), nil
}

func (r *ChallengeRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticChallengeLoader is a simple loader backed by an in-memory map
// (useful for tests/demos).
type StaticChallengeLoader struct {
	batches map[domain.Difficulty][]domain.Challenge
}

func NewStaticChallengeLoader(batches map[domain.Difficulty][]domain.Challenge) *StaticChallengeLoader {
	return &StaticChallengeLoader{batches: batches}
}

func (l *StaticChallengeLoader) LoadChallenges(_ context.Context, difficulty domain.Difficulty) ([]domain.Challenge, error) {
	if batch, ok := l.batches[difficulty]; ok {
		return batch, nil
	}
	return nil, domain.ErrChallengesNotFound
}
