package poll

// Reward amounts in XP. The only reachable totals are 1M, 6M, 11M and 16M.
const (
	BaseReward          int64 = 1_000_000
	WinnerBonus         int64 = 5_000_000
	TopContributorBonus int64 = 10_000_000
)

// RewardRecord is the per-voter XP award breakdown computed once per poll
// resolution.
type RewardRecord struct {
	Voter            Voter `json:"voter"`
	XPAwarded        int64 `json:"xp_awarded"`
	IsWinner         bool  `json:"is_winner"`
	IsTopContributor bool  `json:"is_top_contributor"`
}

// Reward computes the deterministic XP award for a single voter given the
// poll's winning choice. Total function: base plus winner bonus plus
// top-contributor bonus.
func Reward(v Voter, winner Choice) RewardRecord {
	rec := RewardRecord{Voter: v, XPAwarded: BaseReward}
	if v.Choice == winner {
		rec.IsWinner = true
		rec.XPAwarded += WinnerBonus
	}
	if v.VotingPower >= TopContributorPower {
		rec.IsTopContributor = true
		rec.XPAwarded += TopContributorBonus
	}
	return rec
}

// Rewards computes the award for every Voter record in the tally. A user who
// voted for two choices holds two records and earns each independently.
func Rewards(t *Tally, winner Choice) []RewardRecord {
	voters := t.AllVoters()
	out := make([]RewardRecord, 0, len(voters))
	for _, v := range voters {
		out = append(out, Reward(v, winner))
	}
	return out
}
