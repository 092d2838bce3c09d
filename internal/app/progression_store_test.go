package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"arena-service/internal/domain"
	"arena-service/internal/progression"
)

type fakeStatusProvider struct {
	status domain.UserStatus
	err    error
	calls  int
}

func (p *fakeStatusProvider) FetchUserStatus(_ context.Context, _ string) (domain.UserStatus, error) {
	p.calls++
	if p.err != nil {
		return domain.UserStatus{}, p.err
	}
	return p.status, nil
}

func newTestStore(provider StatusProvider) *ProgressionStore {
	return NewProgressionStoreWithClock("u1", provider, progression.DefaultConfig(), progression.DefaultRankTable(),
		func() time.Time { return time.Unix(1700000000, 0) })
}

func TestAddXPReportsLevelUp(t *testing.T) {
	store := newTestStore(&fakeStatusProvider{})

	leveled, level, err := store.AddXP(500)
	if err != nil {
		t.Fatalf("add xp: %v", err)
	}
	if leveled || level != 1 {
		t.Fatalf("500 XP should stay level 1, got leveled=%v level=%d", leveled, level)
	}

	leveled, level, err = store.AddXP(600)
	if err != nil {
		t.Fatalf("add xp: %v", err)
	}
	if !leveled || level != 2 {
		t.Fatalf("1100 XP should reach level 2, got leveled=%v level=%d", leveled, level)
	}

	snap := store.Snapshot()
	if snap.TotalXP != 1100 || snap.Level != 2 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if snap.LastLevelUp == nil {
		t.Fatalf("expected level-up timestamp")
	}
}

func TestAddXPRejectsNegativeAmount(t *testing.T) {
	store := newTestStore(&fakeStatusProvider{})
	if _, _, err := store.AddXP(-1); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("expected invalid amount error, got %v", err)
	}
	if snap := store.Snapshot(); snap.TotalXP != 0 {
		t.Fatalf("failed credit must not change XP, got %d", snap.TotalXP)
	}
}

func TestUnlockAchievementIdempotent(t *testing.T) {
	store := newTestStore(&fakeStatusProvider{})

	if !store.UnlockAchievement("first_win") {
		t.Fatalf("first unlock should report true")
	}
	if store.UnlockAchievement("first_win") {
		t.Fatalf("repeat unlock should report false")
	}
	snap := store.Snapshot()
	if len(snap.Achievements) != 1 || snap.Achievements[0] != "first_win" {
		t.Fatalf("expected single achievement, got %v", snap.Achievements)
	}
}

func TestFetchStatusReplacesOptimisticState(t *testing.T) {
	provider := &fakeStatusProvider{status: domain.UserStatus{
		UserID:       "u1",
		TotalXP:      2000,
		Achievements: []string{"first_win", "easy_master"},
	}}
	store := newTestStore(provider)

	// Pending credits that the server does not know about yet.
	_, _, _ = store.AddXP(300)
	store.UnlockAchievement("streak_5")

	if err := store.FetchStatus(context.Background()); err != nil {
		t.Fatalf("fetch status: %v", err)
	}

	snap := store.Snapshot()
	if snap.TotalXP != 2000 {
		t.Fatalf("confirmed state must replace pending, got %d XP", snap.TotalXP)
	}
	if len(snap.Achievements) != 2 {
		t.Fatalf("pending unlock should be dropped in favor of server list, got %v", snap.Achievements)
	}
	if snap.Rank != "Novato" {
		t.Fatalf("2000 XP is level 2, expected Novato, got %s", snap.Rank)
	}
}

func TestFetchStatusFailureLeavesSnapshot(t *testing.T) {
	provider := &fakeStatusProvider{err: errors.New("network down")}
	store := newTestStore(provider)
	_, _, _ = store.AddXP(150)

	if err := store.FetchStatus(context.Background()); err == nil {
		t.Fatalf("expected fetch failure to surface")
	}
	if snap := store.Snapshot(); snap.TotalXP != 150 {
		t.Fatalf("failed fetch must leave snapshot untouched, got %d", snap.TotalXP)
	}
}
