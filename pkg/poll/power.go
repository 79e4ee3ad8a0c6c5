package poll

import "math/big"

// Tier maps an XP-level lower bound to an integer voting-power multiplier.
type Tier struct {
	MinXP *big.Float
	Power int64
}

// powerTiers is the fixed voting-power table, highest threshold first.
// XP levels in the wild reach magnitudes like 1e168, far beyond what int64
// or even float64 integer precision can carry, hence big.Float.
var powerTiers = []Tier{
	{MinXP: xp("1e168"), Power: 100},
	{MinXP: xp("1e120"), Power: 50},
	{MinXP: xp("1e48"), Power: 25},
	{MinXP: xp("1e24"), Power: 10},
	{MinXP: xp("1e12"), Power: 5},
	{MinXP: xp("1e6"), Power: 2},
}

// TopContributorPower is the minimum voting power that qualifies a voter for
// the top-contributor reward bonus.
const TopContributorPower = 25

func xp(s string) *big.Float {
	f, _, err := big.ParseFloat(s, 10, 256, big.ToNearestEven)
	if err != nil {
		panic("poll: bad tier threshold " + s)
	}
	return f
}

// PowerForXP converts an XP level into a voting-power multiplier by scanning
// the tier table from the highest threshold down; the first matching tier
// wins. Anything below the lowest threshold (including nil) has power 1.
func PowerForXP(level *big.Float) int64 {
	if level == nil {
		return 1
	}
	for _, t := range powerTiers {
		if level.Cmp(t.MinXP) >= 0 {
			return t.Power
		}
	}
	return 1
}
