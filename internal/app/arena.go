package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"arena-service/internal/achievements"
	"arena-service/internal/domain"
	"arena-service/internal/progression"
	"github.com/google/uuid"
)

// Status is the arena state machine phase.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusPlaying  Status = "playing"
	StatusResult   Status = "result"
	StatusFinished Status = "finished"
)

// ChallengeSource fetches a challenge batch for a difficulty.
type ChallengeSource interface {
	FetchChallenges(ctx context.Context, difficulty domain.Difficulty) ([]domain.Challenge, error)
}

// ResultSink persists a finished session. Implementations deduplicate by
// SessionID so a retried submission cannot double-credit XP.
type ResultSink interface {
	SubmitResult(ctx context.Context, summary domain.SessionSummary) (domain.SessionResult, error)
}

// ArenaState is a copyable snapshot of one quiz run.
type ArenaState struct {
	Status                      Status                `json:"status"`
	SessionID                   string                `json:"sessionId"`
	Difficulty                  domain.Difficulty     `json:"difficulty"`
	Challenges                  []domain.Challenge    `json:"challenges"`
	CurrentIndex                int                   `json:"currentIndex"`
	Streak                      int                   `json:"streak"`
	BestStreak                  int                   `json:"bestStreak"`
	AccumulatedXP               int                   `json:"accumulatedXp"`
	AccumulatedScore            int                   `json:"accumulatedScore"`
	CorrectChallengeIDs         []string              `json:"correctChallengeIds"`
	FastestAnswerSeconds        float64               `json:"fastestAnswerSeconds"`
	LastResult                  *domain.AnswerOutcome `json:"lastResult,omitempty"`
	SessionAchievementsUnlocked []string              `json:"sessionAchievementsUnlocked"`
	Loading                     bool                  `json:"isLoading"`

	lastAnswerStartedAt time.Time
}

// Arena drives one user's quiz runs: it walks a challenge batch, scores
// answers, credits XP optimistically, evaluates achievement unlocks and
// reconciles against the server when the run completes.
type Arena struct {
	userID  string
	source  ChallengeSource
	sink    ResultSink
	store   *ProgressionStore
	calc    progression.Config
	catalog []achievements.Definition

	now      func() time.Time
	timeout  time.Duration
	newID    func() string
	creditXP func(amount int) (bool, int, error)
	notify   func(def achievements.Definition)

	mu    sync.Mutex
	state ArenaState
}

// ArenaOption customizes an Arena; defaults cover production use.
type ArenaOption func(*Arena)

// WithClock injects a deterministic clock for tests.
func WithClock(now func() time.Time) ArenaOption {
	return func(a *Arena) { a.now = now }
}

// WithTimeout bounds every collaborator call. A request that would otherwise
// hang forever fails like any other transient network error.
func WithTimeout(d time.Duration) ArenaOption {
	return func(a *Arena) { a.timeout = d }
}

// WithCalculator overrides the reward tuning.
func WithCalculator(calc progression.Config) ArenaOption {
	return func(a *Arena) { a.calc = calc }
}

// WithCatalog overrides the achievement rule table.
func WithCatalog(catalog []achievements.Definition) ArenaOption {
	return func(a *Arena) { a.catalog = catalog }
}

// WithNotifier receives each achievement unlocked mid-run, for pushing
// notifications without coupling the machine to a transport.
func WithNotifier(notify func(def achievements.Definition)) ArenaOption {
	return func(a *Arena) { a.notify = notify }
}

// WithXPCredit replaces the default credit path (the progression store's
// AddXP) so callers can route rewards elsewhere.
func WithXPCredit(credit func(amount int) (bool, int, error)) ArenaOption {
	return func(a *Arena) { a.creditXP = credit }
}

// WithIDGenerator injects deterministic session ids for tests.
func WithIDGenerator(gen func() string) ArenaOption {
	return func(a *Arena) { a.newID = gen }
}

func NewArena(userID string, source ChallengeSource, sink ResultSink, store *ProgressionStore, opts ...ArenaOption) *Arena {
	a := &Arena{
		userID:  userID,
		source:  source,
		sink:    sink,
		store:   store,
		calc:    progression.DefaultConfig(),
		catalog: achievements.DefaultCatalog(),
		now:     time.Now,
		timeout: 10 * time.Second,
		newID:   uuid.NewString,
		notify:  func(achievements.Definition) {},
		state:   ArenaState{Status: StatusIdle},
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.creditXP == nil {
		a.creditXP = store.AddXP
	}
	return a
}

// Progression exposes the store backing this arena.
func (a *Arena) Progression() *ProgressionStore { return a.store }

// SetNotifier rebinds the unlock notifier, e.g. when a client reconnects.
// A nil notifier silences notifications.
func (a *Arena) SetNotifier(notify func(def achievements.Definition)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if notify == nil {
		notify = func(achievements.Definition) {}
	}
	a.notify = notify
}

// State returns a defensive copy of the current run state.
func (a *Arena) State() ArenaState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.copyStateLocked()
}

func (a *Arena) copyStateLocked() ArenaState {
	st := a.state
	st.Challenges = append([]domain.Challenge(nil), a.state.Challenges...)
	st.CorrectChallengeIDs = append([]string(nil), a.state.CorrectChallengeIDs...)
	st.SessionAchievementsUnlocked = append([]string(nil), a.state.SessionAchievementsUnlocked...)
	if a.state.LastResult != nil {
		r := *a.state.LastResult
		st.LastResult = &r
	}
	return st
}

// Start resets the run and fetches a fresh batch. Starting while another run
// is active is last-writer-wins: the old run is discarded. An empty batch
// still enters playing; the first Next call finishes it without submitting.
func (a *Arena) Start(ctx context.Context, difficulty domain.Difficulty) error {
	if _, err := a.calc.GainedXP(difficulty, 0); err != nil {
		return err
	}

	a.mu.Lock()
	a.state = ArenaState{Status: StatusIdle, Loading: true}
	a.mu.Unlock()

	fetchCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	batch, err := a.source.FetchChallenges(fetchCtx, difficulty)

	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		a.state = ArenaState{Status: StatusIdle}
		return fmt.Errorf("fetch challenges: %w", err)
	}
	a.state = ArenaState{
		Status:              StatusPlaying,
		SessionID:           a.newID(),
		Difficulty:          difficulty,
		Challenges:          batch,
		lastAnswerStartedAt: a.now(),
	}
	return nil
}

// SubmitAnswer scores the current challenge. An answer id matching no option
// counts as incorrect; answering with no challenge in play fails safely.
func (a *Arena) SubmitAnswer(answerID string) (domain.AnswerOutcome, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state.Status != StatusPlaying {
		return domain.AnswerOutcome{}, domain.ErrInvalidTransition
	}
	if a.state.CurrentIndex >= len(a.state.Challenges) {
		return domain.AnswerOutcome{}, domain.ErrNoActiveChallenge
	}

	challenge := a.state.Challenges[a.state.CurrentIndex]
	timeTaken := a.now().Sub(a.state.lastAnswerStartedAt).Seconds()
	correct := answerID == challenge.CorrectAnswerID

	gained := 0
	if correct {
		streakBefore := a.state.Streak
		xp, err := a.calc.GainedXP(a.state.Difficulty, streakBefore)
		if err != nil {
			return domain.AnswerOutcome{}, err
		}
		gained = xp

		a.state.Streak++
		if a.state.Streak > a.state.BestStreak {
			a.state.BestStreak = a.state.Streak
		}
		if _, _, err := a.creditXP(gained); err != nil {
			return domain.AnswerOutcome{}, err
		}
		a.state.AccumulatedXP += gained
		a.state.AccumulatedScore++
		a.state.CorrectChallengeIDs = append(a.state.CorrectChallengeIDs, challenge.ID)
		if a.state.FastestAnswerSeconds == 0 || timeTaken < a.state.FastestAnswerSeconds {
			a.state.FastestAnswerSeconds = timeTaken
		}
	} else {
		a.state.Streak = 0
	}

	a.evaluateUnlocksLocked(achievements.Facts{
		ProjectedXP:      a.store.Snapshot().TotalXP,
		BestStreak:       a.state.BestStreak,
		Correct:          correct,
		TimeTakenSeconds: timeTaken,
	})

	outcome := domain.AnswerOutcome{
		Correct:          correct,
		GainedXP:         gained,
		CorrectAnswerID:  challenge.CorrectAnswerID,
		TimeTakenSeconds: timeTaken,
	}
	a.state.LastResult = &outcome
	a.state.Status = StatusResult
	return outcome, nil
}

func (a *Arena) evaluateUnlocksLocked(facts achievements.Facts) {
	for _, def := range achievements.Evaluate(a.catalog, a.store.OwnedAchievements(), facts) {
		if a.store.UnlockAchievement(def.ID) {
			a.notify(def)
		}
	}
}

// Next advances to the following challenge, or, when the batch is exhausted,
// submits the session and reconciles against the server. The run always
// reaches finished; a failed submission is reported as ErrResultNotSaved so
// the caller can warn that progress may not be saved.
func (a *Arena) Next(ctx context.Context) (finished bool, err error) {
	a.mu.Lock()

	// An empty batch never produced a result; close the run without a submission.
	if a.state.Status == StatusPlaying && len(a.state.Challenges) == 0 {
		a.state.Status = StatusFinished
		a.mu.Unlock()
		return true, nil
	}
	if a.state.Status != StatusResult {
		a.mu.Unlock()
		return false, domain.ErrInvalidTransition
	}

	if a.state.CurrentIndex+1 < len(a.state.Challenges) {
		a.state.CurrentIndex++
		a.state.LastResult = nil
		a.state.lastAnswerStartedAt = a.now()
		a.state.Status = StatusPlaying
		a.mu.Unlock()
		return false, nil
	}

	a.evaluateUnlocksLocked(achievements.Facts{
		ProjectedXP: a.store.Snapshot().TotalXP,
		BestStreak:  a.state.BestStreak,
		PerfectGame: len(a.state.Challenges) > 0 && a.state.AccumulatedScore == len(a.state.Challenges),
	})

	summary := domain.SessionSummary{
		SessionID:            a.state.SessionID,
		UserID:               a.userID,
		Difficulty:           a.state.Difficulty,
		Score:                a.state.AccumulatedScore,
		XPEarned:             a.state.AccumulatedXP,
		CorrectChallengeIDs:  append([]string(nil), a.state.CorrectChallengeIDs...),
		TotalQuestions:       len(a.state.Challenges),
		BestStreak:           a.state.BestStreak,
		FastestAnswerSeconds: a.state.FastestAnswerSeconds,
	}
	a.state.Loading = true
	a.mu.Unlock()

	submitCtx, cancel := context.WithTimeout(ctx, a.timeout)
	result, submitErr := a.sink.SubmitResult(submitCtx, summary)
	cancel()

	a.mu.Lock()
	a.state.Loading = false
	a.state.Status = StatusFinished
	if submitErr == nil {
		a.state.SessionAchievementsUnlocked = append([]string(nil), result.UnlockedAchievementIDs...)
	}
	a.mu.Unlock()

	if submitErr != nil {
		return true, fmt.Errorf("%w: %v", domain.ErrResultNotSaved, submitErr)
	}

	// Server totals replace the optimistic ones. A failed refresh keeps the
	// optimistic view; the next fetch reconciles.
	refreshCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	_ = a.store.FetchStatus(refreshCtx)
	return true, nil
}

// Reset abandons the run from any state and returns to idle.
func (a *Arena) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = ArenaState{Status: StatusIdle}
}
