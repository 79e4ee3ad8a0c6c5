package poll

// Allocation is the fund share computed for one choice.
type Allocation struct {
	Choice     Choice  `json:"choice"`
	Percentage float64 `json:"percentage"`
	Amount     float64 `json:"amount"`
}

// AllocateFund splits the fund across choices proportionally to their
// weighted totals. With no votes at all every choice gets an even third.
// Percentages and amounts stay unrounded; presentation code rounds to one
// decimal place.
func AllocateFund(t *Tally, fund float64) map[Choice]Allocation {
	out := make(map[Choice]Allocation, len(Choices))

	sum := t.WeightedSum()
	if sum == 0 {
		for _, c := range Choices {
			out[c] = Allocation{Choice: c, Percentage: 100.0 / 3, Amount: fund / 3}
		}
		return out
	}

	for _, c := range Choices {
		share := float64(t.Choices[c].Weighted) / float64(sum)
		out[c] = Allocation{
			Choice:     c,
			Percentage: share * 100,
			Amount:     fund * share,
		}
	}
	return out
}
