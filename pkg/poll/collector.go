package poll

import "context"

// ReactingUser is one non-bot user currently reacting to the poll message
// with a choice symbol.
type ReactingUser struct {
	ID          string
	Username    string
	DisplayName string
}

// ReactionSource reads the live reaction membership of a poll message.
//
// The platform only exposes current membership, not a historical vote log: a
// user who reacts and then un-reacts before resolution is invisible.
// Implementations return ErrPollNotFound when the channel or message cannot
// be located and a TransientError for platform failures the caller may retry.
type ReactionSource interface {
	Reactors(ctx context.Context, channelID, pollID string, choice Choice) ([]ReactingUser, error)
}
