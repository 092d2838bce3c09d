package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"arena-service/internal/achievements"
	"arena-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ProgressionStore is the authoritative progression backend. It persists
// finished sessions (deduplicated by session id), accumulates XP and
// aggregate counters, evaluates achievement unlocks server-side and serves
// the status snapshot that clients reconcile against.
type ProgressionStore struct {
	pool    *pgxpool.Pool
	catalog []achievements.Definition
	clock   func() time.Time
}

func NewProgressionStore(pool *pgxpool.Pool, catalog []achievements.Definition) *ProgressionStore {
	return &ProgressionStore{pool: pool, catalog: catalog, clock: time.Now}
}

// SubmitResult records a session inside one transaction. Replaying a session
// id returns the originally stored unlock list without crediting again.
func (s *ProgressionStore) SubmitResult(ctx context.Context, summary domain.SessionSummary) (domain.SessionResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.SessionResult{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO arena_sessions (id, user_id, difficulty, score, xp_earned, total_questions, best_streak, fastest_answer, unlocked)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, '[]'::jsonb)
		ON CONFLICT (id) DO NOTHING`,
		summary.SessionID, summary.UserID, string(summary.Difficulty), summary.Score,
		summary.XPEarned, summary.TotalQuestions, summary.BestStreak, summary.FastestAnswerSeconds)
	if err != nil {
		return domain.SessionResult{}, fmt.Errorf("insert session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// duplicate submission, hand back the stored outcome
		var raw []byte
		if err := tx.QueryRow(ctx, `SELECT unlocked FROM arena_sessions WHERE id=$1`, summary.SessionID).Scan(&raw); err != nil {
			return domain.SessionResult{}, fmt.Errorf("load prior session: %w", err)
		}
		var unlocked []string
		if err := json.Unmarshal(raw, &unlocked); err != nil {
			return domain.SessionResult{}, fmt.Errorf("unmarshal prior unlocks: %w", err)
		}
		return domain.SessionResult{UnlockedAchievementIDs: unlocked}, tx.Commit(ctx)
	}

	var (
		xp, questions, daysStreak int
		lastPlayed                *time.Time
	)
	err = tx.QueryRow(ctx, `SELECT xp, questions_answered, days_streak, last_played FROM user_progress WHERE user_id=$1 FOR UPDATE`,
		summary.UserID).Scan(&xp, &questions, &daysStreak, &lastPlayed)
	if errors.Is(err, pgx.ErrNoRows) {
		err = nil
	} else if err != nil {
		return domain.SessionResult{}, fmt.Errorf("load progress: %w", err)
	}

	xp += summary.XPEarned
	questions += summary.TotalQuestions
	today := s.clock().Truncate(24 * time.Hour)
	switch {
	case lastPlayed != nil && lastPlayed.Truncate(24*time.Hour).Equal(today):
		// already counted today
	case lastPlayed != nil && lastPlayed.Truncate(24*time.Hour).Equal(today.AddDate(0, 0, -1)):
		daysStreak++
	default:
		daysStreak = 1
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO user_progress (user_id, xp, questions_answered, days_streak, last_played)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET xp=$2, questions_answered=$3, days_streak=$4, last_played=$5`,
		summary.UserID, xp, questions, daysStreak, today)
	if err != nil {
		return domain.SessionResult{}, fmt.Errorf("update progress: %w", err)
	}

	owned, err := loadOwned(ctx, tx, summary.UserID)
	if err != nil {
		return domain.SessionResult{}, err
	}

	facts := achievements.Facts{
		ProjectedXP:      xp,
		BestStreak:       summary.BestStreak,
		Correct:          summary.Score > 0,
		TimeTakenSeconds: summary.FastestAnswerSeconds,
		PerfectGame:      summary.TotalQuestions > 0 && summary.Score == summary.TotalQuestions,
		TotalQuestions:   questions,
		DaysStreak:       daysStreak,
	}

	unlocked := []string{}
	for _, def := range achievements.Evaluate(s.catalog, owned, facts) {
		if _, err := tx.Exec(ctx, `
			INSERT INTO user_achievements (user_id, achievement_id, unlocked_at)
			VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
			summary.UserID, def.ID, s.clock()); err != nil {
			return domain.SessionResult{}, fmt.Errorf("insert achievement: %w", err)
		}
		unlocked = append(unlocked, def.ID)
	}

	data, err := json.Marshal(unlocked)
	if err != nil {
		return domain.SessionResult{}, fmt.Errorf("marshal unlocks: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE arena_sessions SET unlocked=$2::jsonb WHERE id=$1`, summary.SessionID, string(data)); err != nil {
		return domain.SessionResult{}, fmt.Errorf("store unlocks: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.SessionResult{}, fmt.Errorf("commit: %w", err)
	}
	return domain.SessionResult{UnlockedAchievementIDs: unlocked}, nil
}

func loadOwned(ctx context.Context, tx pgx.Tx, userID string) (map[string]bool, error) {
	rows, err := tx.Query(ctx, `SELECT achievement_id FROM user_achievements WHERE user_id=$1`, userID)
	if err != nil {
		return nil, fmt.Errorf("load achievements: %w", err)
	}
	defer rows.Close()

	owned := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan achievement: %w", err)
		}
		owned[id] = true
	}
	return owned, rows.Err()
}

// FetchUserStatus serves the authoritative snapshot. Users without a record
// yet get a zeroed status so first-time players work.
func (s *ProgressionStore) FetchUserStatus(ctx context.Context, userID string) (domain.UserStatus, error) {
	status := domain.UserStatus{UserID: userID}

	err := s.pool.QueryRow(ctx, `SELECT COALESCE(display_name, ''), xp FROM user_progress WHERE user_id=$1`, userID).
		Scan(&status.DisplayName, &status.TotalXP)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return domain.UserStatus{}, fmt.Errorf("load status: %w", err)
	}

	rows, err := s.pool.Query(ctx, `SELECT achievement_id FROM user_achievements WHERE user_id=$1 ORDER BY unlocked_at`, userID)
	if err != nil {
		return domain.UserStatus{}, fmt.Errorf("load achievements: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return domain.UserStatus{}, fmt.Errorf("scan achievement: %w", err)
		}
		status.Achievements = append(status.Achievements, id)
	}
	return status, rows.Err()
}
