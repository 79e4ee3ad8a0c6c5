package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/smallstreet/megabot/pkg/poll"
)

const reactionPageSize = 100

// Collector reads live reaction membership from Discord. It implements
// poll.ReactionSource.
type Collector struct {
	c *Client
}

func NewCollector(c *Client) *Collector {
	return &Collector{c: c}
}

// Reactors returns every non-bot user currently reacting to the poll message
// with the choice's symbol, paging through the reaction list in fetch order.
func (col *Collector) Reactors(ctx context.Context, channelID, pollID string, choice poll.Choice) ([]poll.ReactingUser, error) {
	// Confirm the poll message still exists so a deleted announcement maps
	// to a clean not-found instead of three per-emoji errors.
	if _, err := col.c.s.ChannelMessage(channelID, pollID, discordgo.WithContext(ctx)); err != nil {
		if IsNotFound(err) {
			return nil, poll.ErrPollNotFound
		}
		return nil, poll.Transient("fetch poll message", err)
	}

	var out []poll.ReactingUser
	after := ""
	for {
		users, err := col.c.s.MessageReactions(channelID, pollID, choice.Emoji(), reactionPageSize, "", after, discordgo.WithContext(ctx))
		if err != nil {
			if IsNotFound(err) {
				return nil, poll.ErrPollNotFound
			}
			return nil, poll.Transient("fetch reactions", err)
		}

		for _, u := range users {
			if u.Bot {
				continue
			}
			out = append(out, poll.ReactingUser{
				ID:          u.ID,
				Username:    u.Username,
				DisplayName: displayName(u),
			})
		}

		if len(users) < reactionPageSize {
			return out, nil
		}
		after = users[len(users)-1].ID
	}
}

func displayName(u *discordgo.User) string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}
