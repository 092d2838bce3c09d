package achievements

import "testing"

func TestEvaluateXPThresholdUsesProjectedTotal(t *testing.T) {
	// 1150 XP owned, 60 about to be credited: easy_master (1200) must unlock.
	facts := Facts{ProjectedXP: 1210, Correct: true, TimeTakenSeconds: 20}
	unlocked := Evaluate(DefaultCatalog(), map[string]bool{"first_win": true}, facts)

	if !containsID(unlocked, "easy_master") {
		t.Fatalf("expected easy_master in unlocked set, got %v", ids(unlocked))
	}
	if containsID(unlocked, "xp_5000") {
		t.Fatalf("xp_5000 should not unlock at 1210 XP")
	}
}

func TestEvaluateNeverReturnsOwned(t *testing.T) {
	facts := Facts{ProjectedXP: 999999, BestStreak: 99, Correct: true, TimeTakenSeconds: 0.1}
	owned := map[string]bool{}

	first := Evaluate(DefaultCatalog(), owned, facts)
	if len(first) == 0 {
		t.Fatalf("expected unlocks for maxed facts")
	}
	for _, def := range first {
		owned[def.ID] = true
	}

	second := Evaluate(DefaultCatalog(), owned, facts)
	if len(second) != 0 {
		t.Fatalf("owned achievements re-returned: %v", ids(second))
	}
}

func TestEvaluateIsIdempotent(t *testing.T) {
	facts := Facts{ProjectedXP: 1500, BestStreak: 5}
	owned := map[string]bool{"first_win": true}

	first := Evaluate(DefaultCatalog(), owned, facts)
	second := Evaluate(DefaultCatalog(), owned, facts)
	if len(first) != len(second) {
		t.Fatalf("evaluation not idempotent: %v vs %v", ids(first), ids(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("evaluation order changed: %v vs %v", ids(first), ids(second))
		}
	}
}

func TestEvaluatePreservesCatalogOrder(t *testing.T) {
	facts := Facts{ProjectedXP: 10000, BestStreak: 12, Correct: true, TimeTakenSeconds: 1}
	unlocked := Evaluate(DefaultCatalog(), nil, facts)

	position := make(map[string]int)
	for i, def := range DefaultCatalog() {
		position[def.ID] = i
	}
	for i := 1; i < len(unlocked); i++ {
		if position[unlocked[i-1].ID] > position[unlocked[i].ID] {
			t.Fatalf("unlocks out of catalogue order: %v", ids(unlocked))
		}
	}
}

func TestSpeedRequiresCorrectAnswer(t *testing.T) {
	fast := Facts{Correct: false, TimeTakenSeconds: 0.5}
	if unlocked := Evaluate(DefaultCatalog(), nil, fast); containsID(unlocked, "lightning") {
		t.Fatalf("speed achievement must not unlock on a wrong answer")
	}

	fast.Correct = true
	if unlocked := Evaluate(DefaultCatalog(), nil, fast); !containsID(unlocked, "lightning") {
		t.Fatalf("expected lightning for a fast correct answer")
	}
}

func TestAggregateTriggers(t *testing.T) {
	facts := Facts{PerfectGame: true, TotalQuestions: 150, DaysStreak: 8}
	unlocked := Evaluate(DefaultCatalog(), nil, facts)

	for _, want := range []string{"perfect_game", "questions_100", "week_streak"} {
		if !containsID(unlocked, want) {
			t.Fatalf("expected %s in unlocked set, got %v", want, ids(unlocked))
		}
	}
}

func TestMiscNeverAutoUnlocks(t *testing.T) {
	facts := Facts{ProjectedXP: 1 << 30, BestStreak: 1000, Correct: true, PerfectGame: true, TotalQuestions: 1 << 20, DaysStreak: 1000}
	if unlocked := Evaluate(DefaultCatalog(), nil, facts); containsID(unlocked, "founder") {
		t.Fatalf("misc achievements must only be granted out of band")
	}
}

func containsID(defs []Definition, id string) bool {
	for _, def := range defs {
		if def.ID == id {
			return true
		}
	}
	return false
}

func ids(defs []Definition) []string {
	out := make([]string, 0, len(defs))
	for _, def := range defs {
		out = append(out, def.ID)
	}
	return out
}
