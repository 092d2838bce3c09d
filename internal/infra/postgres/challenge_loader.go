package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"arena-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ChallengeLoader loads challenge JSONB rows from Postgres.
type ChallengeLoader struct {
	pool *pgxpool.Pool
}

func NewChallengeLoader(pool *pgxpool.Pool) *ChallengeLoader {
	return &ChallengeLoader{pool: pool}
}

func (l *ChallengeLoader) LoadChallenges(ctx context.Context, difficulty domain.Difficulty) ([]domain.Challenge, error) {
	rows, err := l.pool.Query(ctx, `SELECT data FROM challenges WHERE difficulty=$1 ORDER BY id`, string(difficulty))
	if err != nil {
		return nil, fmt.Errorf("load challenges: %w", err)
	}
	defer rows.Close()

	var batch []domain.Challenge
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan challenge: %w", err)
		}
		var challenge domain.Challenge
		if err := json.Unmarshal(raw, &challenge); err != nil {
			return nil, fmt.Errorf("unmarshal challenge: %w", err)
		}
		batch = append(batch, challenge)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load challenges: %w", err)
	}
	if len(batch) == 0 {
		return nil, domain.ErrChallengesNotFound
	}
	return batch, nil
}
