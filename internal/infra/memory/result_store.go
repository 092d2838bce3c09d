package memory

import (
	"context"
	"sync"
	"time"

	"arena-service/internal/achievements"
	"arena-service/internal/domain"
)

// ResultStore is an in-memory progression backend. It mirrors the Postgres
// store's semantics: submissions are deduplicated by session id, XP and
// aggregate counters accumulate per user, and achievement unlocks are
// evaluated server-side against the same catalogue.
type ResultStore struct {
	catalog []achievements.Definition
	clock   func() time.Time

	mu       sync.Mutex
	users    map[string]*userRecord
	sessions map[string]domain.SessionResult
}

type userRecord struct {
	displayName       string
	totalXP           int
	questionsAnswered int
	daysStreak        int
	lastPlayedDay     string
	achievements      []string
	owned             map[string]bool
}

func NewResultStore(catalog []achievements.Definition) *ResultStore {
	return &ResultStore{
		catalog:  catalog,
		clock:    time.Now,
		users:    make(map[string]*userRecord),
		sessions: make(map[string]domain.SessionResult),
	}
}

// NewResultStoreWithClock is test-only for deterministic day-streak tracking.
func NewResultStoreWithClock(catalog []achievements.Definition, clock func() time.Time) *ResultStore {
	s := NewResultStore(catalog)
	s.clock = clock
	return s
}

// SeedUser installs a starting progression record, e.g. for demos.
func (s *ResultStore) SeedUser(status domain.UserStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.userLocked(status.UserID)
	rec.displayName = status.DisplayName
	rec.totalXP = status.TotalXP
	rec.achievements = append([]string(nil), status.Achievements...)
	rec.owned = make(map[string]bool, len(status.Achievements))
	for _, id := range status.Achievements {
		rec.owned[id] = true
	}
}

func (s *ResultStore) userLocked(userID string) *userRecord {
	rec, ok := s.users[userID]
	if !ok {
		rec = &userRecord{owned: make(map[string]bool)}
		s.users[userID] = rec
	}
	return rec
}

// SubmitResult records a finished session. A session id seen before returns
// the original result unchanged, so retries cannot double-credit.
func (s *ResultStore) SubmitResult(_ context.Context, summary domain.SessionSummary) (domain.SessionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prior, ok := s.sessions[summary.SessionID]; ok {
		return prior, nil
	}

	rec := s.userLocked(summary.UserID)
	rec.totalXP += summary.XPEarned
	rec.questionsAnswered += summary.TotalQuestions

	today := s.clock().Format("2006-01-02")
	yesterday := s.clock().AddDate(0, 0, -1).Format("2006-01-02")
	switch rec.lastPlayedDay {
	case today:
		// already counted
	case yesterday:
		rec.daysStreak++
	default:
		rec.daysStreak = 1
	}
	rec.lastPlayedDay = today

	facts := achievements.Facts{
		ProjectedXP:      rec.totalXP,
		BestStreak:       summary.BestStreak,
		Correct:          summary.Score > 0,
		TimeTakenSeconds: summary.FastestAnswerSeconds,
		PerfectGame:      summary.TotalQuestions > 0 && summary.Score == summary.TotalQuestions,
		TotalQuestions:   rec.questionsAnswered,
		DaysStreak:       rec.daysStreak,
	}

	var unlocked []string
	for _, def := range achievements.Evaluate(s.catalog, rec.owned, facts) {
		rec.owned[def.ID] = true
		rec.achievements = append(rec.achievements, def.ID)
		unlocked = append(unlocked, def.ID)
	}

	result := domain.SessionResult{UnlockedAchievementIDs: unlocked}
	s.sessions[summary.SessionID] = result
	return result, nil
}

// FetchUserStatus serves the authoritative snapshot. Unknown users start
// from an empty record rather than an error so first-time players work.
func (s *ResultStore) FetchUserStatus(_ context.Context, userID string) (domain.UserStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.userLocked(userID)
	return domain.UserStatus{
		UserID:       userID,
		DisplayName:  rec.displayName,
		TotalXP:      rec.totalXP,
		Achievements: append([]string(nil), rec.achievements...),
	}, nil
}
