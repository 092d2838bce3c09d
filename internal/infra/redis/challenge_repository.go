package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"arena-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// ChallengeLoader fetches challenge batches from a backing store (e.g., Postgres).
type ChallengeLoader interface {
	LoadChallenges(ctx context.Context, difficulty domain.Difficulty) ([]domain.Challenge, error)
}

// ChallengeRepository caches the JSON batch per difficulty in Redis and
// falls back to the loader on cache miss:
// SET arena:challenges:{difficulty} {json} EX ttl
type ChallengeRepository struct {
	client *redis.Client
	loader ChallengeLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewChallengeRepository(client *redis.Client, loader ChallengeLoader, ttl time.Duration) *ChallengeRepository {
	return &ChallengeRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *ChallengeRepository) FetchChallenges(ctx context.Context, difficulty domain.Difficulty) ([]domain.Challenge, error) {
	key := r.key(difficulty)

	if batch, ok := r.fromCache(ctx, key); ok {
		return batch, nil
	}

	result, err, _ := r.sf.Do(string(difficulty), func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if batch, ok := r.fromCache(ctx, key); ok {
			return batch, nil
		}

		challenges, err := r.loader.LoadChallenges(ctx, difficulty)
		if err != nil {
			return nil, err
		}

		if data, err := json.Marshal(challenges); err == nil {
			_ = r.client.Set(ctx, key, data, r.ttlWithJitter()).Err()
		}
		return challenges, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Challenge), nil
}

func (r *ChallengeRepository) fromCache(ctx context.Context, key string) ([]domain.Challenge, bool) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var batch []domain.Challenge
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, false
	}
	return batch, true
}

func (r *ChallengeRepository) key(difficulty domain.Difficulty) string {
	return "arena:challenges:" + string(difficulty)
}

func (r *ChallengeRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
