package achievements

// Facts is the runtime evidence one evaluation runs against. ProjectedXP is
// the user's total XP including the reward about to be credited, so an
// answer that crosses an XP threshold unlocks in the same evaluation.
type Facts struct {
	ProjectedXP      int
	BestStreak       int
	Correct          bool
	TimeTakenSeconds float64
	PerfectGame      bool
	TotalQuestions   int
	DaysStreak       int
}

// Evaluate returns the catalogue entries, in table order, that the facts
// newly qualify for. Entries already in owned are never returned again, so
// repeated calls with the same inputs are idempotent. The caller persists
// the unlocks; Evaluate itself mutates nothing.
func Evaluate(catalog []Definition, owned map[string]bool, facts Facts) []Definition {
	var unlocked []Definition
	for _, def := range catalog {
		if owned[def.ID] {
			continue
		}
		if qualifies(def, facts) {
			unlocked = append(unlocked, def)
		}
	}
	return unlocked
}

func qualifies(def Definition, facts Facts) bool {
	switch def.Trigger {
	case TriggerXP:
		return float64(facts.ProjectedXP) >= def.Threshold
	case TriggerStreak:
		return float64(facts.BestStreak) >= def.Threshold
	case TriggerSpeed:
		return facts.Correct && facts.TimeTakenSeconds <= def.Threshold
	case TriggerPerfectGame:
		return facts.PerfectGame
	case TriggerTotalQuestions:
		return float64(facts.TotalQuestions) >= def.Threshold
	case TriggerDaysStreak:
		return float64(facts.DaysStreak) >= def.Threshold
	case TriggerMisc:
		return false
	}
	return false
}
