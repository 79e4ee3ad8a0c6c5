// Package poll implements the weighted community poll engine: reaction
// collection, voting-power resolution, aggregation, fund allocation, reward
// computation and the create/resolve workflows around them.
package poll

import "time"

// Choice is one of the three fixed poll options.
type Choice string

const (
	ChoicePeace    Choice = "peace"
	ChoiceVoting   Choice = "voting"
	ChoiceDisaster Choice = "disaster"
)

// Choices lists every recognized choice. The order doubles as the tie-break
// priority when two choices end with the same weighted total: the earlier
// entry wins.
var Choices = []Choice{ChoicePeace, ChoiceVoting, ChoiceDisaster}

var choiceEmojis = map[Choice]string{
	ChoicePeace:    "☮️",
	ChoiceVoting:   "🗳️",
	ChoiceDisaster: "💥",
}

// Emoji returns the reaction symbol used for the choice on the poll message.
func (c Choice) Emoji() string {
	return choiceEmojis[c]
}

// ChoiceFromEmoji maps a reaction symbol back to its choice.
func ChoiceFromEmoji(emoji string) (Choice, bool) {
	for c, e := range choiceEmojis {
		if e == emoji {
			return c, true
		}
	}
	return "", false
}

// State is the lifecycle state of a poll.
type State string

const (
	StateCreated   State = "created"
	StateOpen      State = "open"
	StateResolving State = "resolving"
	StateResolved  State = "resolved"
)

const (
	// DefaultDuration is how long a poll accepts votes before resolution.
	DefaultDuration = 7 * 24 * time.Hour

	// DefaultFund is the simulated budget split across choices at resolution.
	DefaultFund = 1_000_000.0
)

// Poll is a single voting round. The message identifier assigned by the chat
// platform when the announcement is posted is its primary key everywhere.
type Poll struct {
	ID        string        `json:"poll_id"`
	ChannelID string        `json:"channel_id"`
	CreatedAt time.Time     `json:"created_at"`
	Duration  time.Duration `json:"duration"`
	State     State         `json:"state"`
}

// DueAt returns the instant the poll becomes eligible for resolution.
func (p *Poll) DueAt() time.Time {
	return p.CreatedAt.Add(p.Duration)
}
