package progression

import "fmt"

// RankTier binds a rank label to the minimum level that earns it.
type RankTier struct {
	MinLevel int
	Label    string
}

// RankTable is a sorted-ascending list of tiers.
type RankTable []RankTier

// DefaultRankTable returns the production tiers.
func DefaultRankTable() RankTable {
	return RankTable{
		{MinLevel: 1, Label: "Novato"},
		{MinLevel: 5, Label: "Aprendiz"},
		{MinLevel: 10, Label: "Estratega"},
		{MinLevel: 20, Label: "Maestro"},
		{MinLevel: 30, Label: "Leyenda"},
	}
}

// NewRankTable validates tier ordering so a malformed table fails at
// construction instead of during lookup.
func NewRankTable(tiers []RankTier) (RankTable, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("rank table must not be empty")
	}
	if tiers[0].MinLevel > 1 {
		return nil, fmt.Errorf("lowest rank tier must start at level 1, got %d", tiers[0].MinLevel)
	}
	for i := 1; i < len(tiers); i++ {
		if tiers[i].MinLevel <= tiers[i-1].MinLevel {
			return nil, fmt.Errorf("rank tiers must be strictly ascending at index %d", i)
		}
	}
	return RankTable(tiers), nil
}

// ForLevel returns the highest tier whose MinLevel does not exceed level.
// Levels below every tier fall back to the lowest one.
func (t RankTable) ForLevel(level int) string {
	label := t[0].Label
	for _, tier := range t {
		if tier.MinLevel > level {
			break
		}
		label = tier.Label
	}
	return label
}
