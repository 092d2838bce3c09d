package app

import (
	"context"
	"sync"
	"time"

	"arena-service/internal/domain"
	"arena-service/internal/progression"
)

// StatusProvider fetches the authoritative progression snapshot for a user.
type StatusProvider interface {
	FetchUserStatus(ctx context.Context, userID string) (domain.UserStatus, error)
}

// Snapshot is a read-only view of a user's progression as this process
// currently believes it, pending optimistic credits included.
type Snapshot struct {
	TotalXP      int        `json:"totalXp"`
	Level        int        `json:"level"`
	Rank         string     `json:"rank"`
	Achievements []string   `json:"achievements"`
	LastLevelUp  *time.Time `json:"lastLevelUp,omitempty"`
}

// ProgressionStore keeps one user's progression in two phases: the confirmed
// state last fetched from the server and the pending optimistic credits
// applied since. A successful fetch replaces both; confirmed always wins.
type ProgressionStore struct {
	userID   string
	provider StatusProvider
	calc     progression.Config
	ranks    progression.RankTable
	now      func() time.Time

	mu             sync.RWMutex
	confirmed      domain.UserStatus
	pendingXP      int
	pendingUnlocks []string
	owned          map[string]bool
	lastLevelUp    *time.Time
}

func NewProgressionStore(userID string, provider StatusProvider, calc progression.Config, ranks progression.RankTable) *ProgressionStore {
	return &ProgressionStore{
		userID:   userID,
		provider: provider,
		calc:     calc,
		ranks:    ranks,
		now:      time.Now,
		owned:    make(map[string]bool),
	}
}

// NewProgressionStoreWithClock is test-only for deterministic level-up timestamps.
func NewProgressionStoreWithClock(userID string, provider StatusProvider, calc progression.Config, ranks progression.RankTable, now func() time.Time) *ProgressionStore {
	s := NewProgressionStore(userID, provider, calc, ranks)
	s.now = now
	return s
}

// FetchStatus pulls the server snapshot and replaces local state wholesale,
// dropping any pending optimistic credits. On failure the prior state is
// left untouched and the error is returned for the caller to surface.
func (s *ProgressionStore) FetchStatus(ctx context.Context) error {
	status, err := s.provider.FetchUserStatus(ctx, s.userID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmed = status
	s.pendingXP = 0
	s.pendingUnlocks = nil
	s.owned = make(map[string]bool, len(status.Achievements))
	for _, id := range status.Achievements {
		s.owned[id] = true
	}
	return nil
}

// AddXP credits XP optimistically and reports whether the credit crossed a
// level boundary, so callers can trigger celebratory side effects.
func (s *ProgressionStore) AddXP(amount int) (leveledUp bool, newLevel int, err error) {
	if amount < 0 {
		return false, 0, domain.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	before := s.calc.LevelFromXP(s.confirmed.TotalXP + s.pendingXP)
	s.pendingXP += amount
	after := s.calc.LevelFromXP(s.confirmed.TotalXP + s.pendingXP)
	if after > before {
		t := s.now()
		s.lastLevelUp = &t
		return true, after, nil
	}
	return false, after, nil
}

// UnlockAchievement records an unlock optimistically. It is idempotent:
// already-owned ids report false and change nothing.
func (s *ProgressionStore) UnlockAchievement(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owned[id] {
		return false
	}
	s.owned[id] = true
	s.pendingUnlocks = append(s.pendingUnlocks, id)
	return true
}

// OwnedAchievements returns a copy of the owned-id set for evaluation.
func (s *ProgressionStore) OwnedAchievements() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owned := make(map[string]bool, len(s.owned))
	for id := range s.owned {
		owned[id] = true
	}
	return owned
}

// Snapshot merges confirmed and pending state into a client-facing view.
func (s *ProgressionStore) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totalXP := s.confirmed.TotalXP + s.pendingXP
	level := s.calc.LevelFromXP(totalXP)

	achievements := make([]string, 0, len(s.confirmed.Achievements)+len(s.pendingUnlocks))
	achievements = append(achievements, s.confirmed.Achievements...)
	achievements = append(achievements, s.pendingUnlocks...)

	return Snapshot{
		TotalXP:      totalXP,
		Level:        level,
		Rank:         s.ranks.ForLevel(level),
		Achievements: achievements,
		LastLevelUp:  s.lastLevelUp,
	}
}
