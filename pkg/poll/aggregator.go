package poll

import (
	"context"
	"math/big"
	"time"

	"go.uber.org/zap"
)

// Voter is the per-poll, per-choice record derived during one aggregation
// pass. A user reacting with two symbols produces two Voter records.
type Voter struct {
	ID          string     `json:"voter_id"`
	Username    string     `json:"username"`
	DisplayName string     `json:"display_name"`
	Choice      Choice     `json:"choice"`
	XPLevel     *big.Float `json:"-"`
	VotingPower int64      `json:"voting_power"`
	Verified    bool       `json:"verified"`
	Fallback    bool       `json:"fallback"`
	Email       string     `json:"email,omitempty"`
}

// ChoiceTally is the aggregate for a single choice.
type ChoiceTally struct {
	Choice   Choice  `json:"choice"`
	Count    int     `json:"count"`
	Weighted int64   `json:"weighted"`
	Voters   []Voter `json:"voters"`
}

// Tally is one full aggregation pass over a poll's current reaction state.
type Tally struct {
	PollID      string                 `json:"poll_id"`
	Choices     map[Choice]*ChoiceTally `json:"choices"`
	TotalVoters int                    `json:"total_voters"`
	TakenAt     time.Time              `json:"taken_at"`
}

// WeightedSum returns the sum of weighted totals across all choices.
func (t *Tally) WeightedSum() int64 {
	var sum int64
	for _, ct := range t.Choices {
		sum += ct.Weighted
	}
	return sum
}

// Winner returns the choice with the strictly greatest weighted total.
// Exact ties resolve to the earliest choice in the fixed priority order
// (peace, voting, disaster).
func (t *Tally) Winner() Choice {
	winner := Choices[0]
	best := t.Choices[winner].Weighted
	for _, c := range Choices[1:] {
		if ct := t.Choices[c]; ct.Weighted > best {
			winner = c
			best = ct.Weighted
		}
	}
	return winner
}

// AllVoters returns every Voter record across all choices, in choice
// priority order then reaction-fetch order.
func (t *Tally) AllVoters() []Voter {
	var out []Voter
	for _, c := range Choices {
		out = append(out, t.Choices[c].Voters...)
	}
	return out
}

// Aggregator combines reaction collection and voting-power resolution into
// per-choice counts and weighted totals. It is a pure function of the poll's
// current reaction state: every call starts from a fresh tally, so repeated
// calls with no intervening reaction changes yield identical results.
type Aggregator struct {
	Source   ReactionSource
	Resolver *Resolver
	Logger   *zap.Logger
}

func NewAggregator(src ReactionSource, res *Resolver, logger *zap.Logger) *Aggregator {
	return &Aggregator{Source: src, Resolver: res, Logger: logger}
}

// Aggregate tallies the poll. A user reacting to multiple choices counts
// fully and independently under each choice but only once toward
// TotalVoters. Per-voter resolution failures downgrade to the fallback
// policy inside the Resolver and never abort the pass.
func (a *Aggregator) Aggregate(ctx context.Context, channelID, pollID string) (*Tally, error) {
	tally := &Tally{
		PollID:  pollID,
		Choices: make(map[Choice]*ChoiceTally, len(Choices)),
		TakenAt: time.Now().UTC(),
	}

	distinct := make(map[string]struct{})

	for _, choice := range Choices {
		ct := &ChoiceTally{Choice: choice}
		tally.Choices[choice] = ct

		users, err := a.Source.Reactors(ctx, channelID, pollID, choice)
		if err != nil {
			return nil, err
		}

		for _, u := range users {
			res := a.Resolver.Resolve(ctx, pollID, u)

			ct.Count++
			ct.Weighted += res.Power
			ct.Voters = append(ct.Voters, Voter{
				ID:          u.ID,
				Username:    u.Username,
				DisplayName: u.DisplayName,
				Choice:      choice,
				XPLevel:     res.XP,
				VotingPower: res.Power,
				Verified:    res.Verified,
				Fallback:    res.Fallback,
				Email:       res.Email,
			})
			distinct[u.ID] = struct{}{}
		}

		a.Logger.Debug("Choice tallied",
			zap.String("poll_id", pollID),
			zap.String("choice", string(choice)),
			zap.Int("count", ct.Count),
			zap.Int64("weighted", ct.Weighted))
	}

	tally.TotalVoters = len(distinct)
	return tally, nil
}
