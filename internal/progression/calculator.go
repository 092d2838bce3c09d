package progression

import (
	"fmt"
	"math"

	"arena-service/internal/domain"
)

// Config holds the level-curve and reward tuning. Values are fixed at
// construction; the calculator itself is stateless.
type Config struct {
	BaseXPPerLevel    int
	GrowthFactor      float64
	BaseXP            map[domain.Difficulty]int
	StreakMultiplier  float64
	MaxStreakForBonus int
}

// DefaultConfig returns the production tuning.
func DefaultConfig() Config {
	return Config{
		BaseXPPerLevel: 1000,
		GrowthFactor:   1.2,
		BaseXP: map[domain.Difficulty]int{
			domain.DifficultyFacil:   10,
			domain.DifficultyMedio:   20,
			domain.DifficultyDificil: 30,
		},
		StreakMultiplier:  0.1,
		MaxStreakForBonus: 10,
	}
}

// Validate rejects tunings that would break the level curve.
func (c Config) Validate() error {
	if c.BaseXPPerLevel <= 0 {
		return fmt.Errorf("baseXPPerLevel must be positive, got %d", c.BaseXPPerLevel)
	}
	if c.GrowthFactor <= 1 {
		return fmt.Errorf("growthFactor must exceed 1 for a strictly increasing curve, got %v", c.GrowthFactor)
	}
	for _, d := range domain.Difficulties {
		if c.BaseXP[d] <= 0 {
			return fmt.Errorf("baseXP for %s must be positive", d)
		}
	}
	return nil
}

// XPForLevel returns the total XP threshold at which a level begins.
// Level 1 starts at 0; each later level grows geometrically.
func (c Config) XPForLevel(level int) int {
	if level <= 1 {
		return 0
	}
	return int(math.Floor(float64(c.BaseXPPerLevel) * math.Pow(c.GrowthFactor, float64(level-2))))
}

// LevelFromXP returns the smallest level whose successor threshold exceeds
// totalXP. Zero XP maps to level 1.
func (c Config) LevelFromXP(totalXP int) int {
	level := 1
	for c.XPForLevel(level+1) <= totalXP {
		level++
	}
	return level
}

// LevelProgressPercent reports how far into the given level totalXP sits,
// clamped to [0,100]. A degenerate curve segment yields 0 rather than a
// division by zero.
func (c Config) LevelProgressPercent(totalXP, level int) float64 {
	start := c.XPForLevel(level)
	end := c.XPForLevel(level + 1)
	if end <= start {
		return 0
	}
	pct := float64(totalXP-start) / float64(end-start) * 100
	return math.Min(100, math.Max(0, pct))
}

// GainedXP computes the reward for a correct answer. streakBefore is the
// streak value before this answer is counted, so the first correct answer
// of a run earns no bonus.
func (c Config) GainedXP(difficulty domain.Difficulty, streakBefore int) (int, error) {
	base, ok := c.BaseXP[difficulty]
	if !ok {
		return 0, domain.ErrUnknownDifficulty
	}
	streak := streakBefore
	if streak > c.MaxStreakForBonus {
		streak = c.MaxStreakForBonus
	}
	if streak < 0 {
		streak = 0
	}
	bonus := float64(streak) * c.StreakMultiplier
	return int(math.Floor(float64(base) * (1 + bonus))), nil
}
