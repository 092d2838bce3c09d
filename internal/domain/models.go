package domain

import "strings"

// Difficulty is the fixed set of arena difficulties. Values match the
// uppercase keys used by the challenge content pipeline.
type Difficulty string

const (
	DifficultyFacil   Difficulty = "FACIL"
	DifficultyMedio   Difficulty = "MEDIO"
	DifficultyDificil Difficulty = "DIFICIL"
)

// Difficulties lists every valid difficulty, in ascending order of reward.
var Difficulties = []Difficulty{DifficultyFacil, DifficultyMedio, DifficultyDificil}

// ParseDifficulty normalizes a client-supplied difficulty string.
func ParseDifficulty(raw string) (Difficulty, error) {
	d := Difficulty(strings.ToUpper(strings.TrimSpace(raw)))
	switch d {
	case DifficultyFacil, DifficultyMedio, DifficultyDificil:
		return d, nil
	}
	return "", ErrUnknownDifficulty
}

// ChallengeOption is a selectable answer for a challenge.
type ChallengeOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Challenge is a single arena question with exactly one correct option.
type Challenge struct {
	ID              string            `json:"id"`
	Question        string            `json:"question"`
	Options         []ChallengeOption `json:"options"`
	CorrectAnswerID string            `json:"correctAnswerId"`
	Difficulty      Difficulty        `json:"difficulty"`
}

// AnswerOutcome summarizes one submitted answer for the client.
type AnswerOutcome struct {
	Correct          bool    `json:"correct"`
	GainedXP         int     `json:"gainedXp"`
	CorrectAnswerID  string  `json:"correctAnswerId"`
	TimeTakenSeconds float64 `json:"timeTakenSeconds"`
}

// SessionSummary is the aggregate result of one arena run, submitted to the
// server when the batch is exhausted. SessionID is assigned when the run
// starts so the server can deduplicate retried submissions.
type SessionSummary struct {
	SessionID            string     `json:"sessionId"`
	UserID               string     `json:"userId"`
	Difficulty           Difficulty `json:"difficulty"`
	Score                int        `json:"score"`
	XPEarned             int        `json:"xpEarned"`
	CorrectChallengeIDs  []string   `json:"correctChallengeIds"`
	TotalQuestions       int        `json:"totalQuestions"`
	BestStreak           int        `json:"bestStreak"`
	FastestAnswerSeconds float64    `json:"fastestAnswerSeconds"`
}

// SessionResult is the server's acknowledgement of a submitted session.
type SessionResult struct {
	UnlockedAchievementIDs []string `json:"unlockedAchievementIds"`
}

// UserStatus is the authoritative progression snapshot as served by the
// backend. The client store replaces its local state with it wholesale.
type UserStatus struct {
	UserID       string   `json:"userId"`
	DisplayName  string   `json:"displayName"`
	TotalXP      int      `json:"xp"`
	Achievements []string `json:"achievements"`
}
