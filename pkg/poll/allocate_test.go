package poll

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tallyWithWeights(peace, voting, disaster int64) *Tally {
	return &Tally{
		Choices: map[Choice]*ChoiceTally{
			ChoicePeace:    {Choice: ChoicePeace, Weighted: peace},
			ChoiceVoting:   {Choice: ChoiceVoting, Weighted: voting},
			ChoiceDisaster: {Choice: ChoiceDisaster, Weighted: disaster},
		},
	}
}

func TestAllocateFundProportional(t *testing.T) {
	// 1 vs 10 vs 0: the classic two-voter outcome.
	alloc := AllocateFund(tallyWithWeights(1, 10, 0), 1_000_000)

	assert.InDelta(t, 9.1, alloc[ChoicePeace].Percentage, 0.05)
	assert.InDelta(t, 90.9, alloc[ChoiceVoting].Percentage, 0.05)
	assert.Zero(t, alloc[ChoiceDisaster].Percentage)

	assert.InDelta(t, 90_909.09, alloc[ChoicePeace].Amount, 0.01)
	assert.InDelta(t, 909_090.91, alloc[ChoiceVoting].Amount, 0.01)
	assert.Zero(t, alloc[ChoiceDisaster].Amount)

	total := alloc[ChoicePeace].Amount + alloc[ChoiceVoting].Amount + alloc[ChoiceDisaster].Amount
	assert.InDelta(t, 1_000_000, total, 0.001)
}

func TestAllocateFundNoVotes(t *testing.T) {
	alloc := AllocateFund(tallyWithWeights(0, 0, 0), 1_000_000)

	require.Len(t, alloc, 3)
	for _, c := range Choices {
		assert.InDelta(t, 100.0/3, alloc[c].Percentage, 1e-9)
		assert.InDelta(t, 1_000_000.0/3, alloc[c].Amount, 1e-6)
	}
}

func TestWinnerTieBreak(t *testing.T) {
	cases := []struct {
		name                    string
		peace, voting, disaster int64
		want                    Choice
	}{
		{"clear winner", 1, 10, 0, ChoiceVoting},
		{"peace wins exact tie", 10, 10, 5, ChoicePeace},
		{"voting beats disaster tie", 3, 7, 7, ChoiceVoting},
		{"all zero", 0, 0, 0, ChoicePeace},
		{"three-way tie", 4, 4, 4, ChoicePeace},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tally := tallyWithWeights(tc.peace, tc.voting, tc.disaster)
			assert.Equal(t, tc.want, tally.Winner())
		})
	}
}
