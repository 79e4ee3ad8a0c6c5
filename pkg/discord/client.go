// Package discord wraps the Discord session behind the small surfaces the
// rest of the bot needs: poll posting, reaction reads, role management and
// direct messages.
package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/smallstreet/megabot/pkg/poll"
	"go.uber.org/zap"
)

// Client wraps a Discord gateway session.
type Client struct {
	s      *discordgo.Session
	logger *zap.Logger
}

// New builds a client for the given bot token. The session is not opened
// yet; call Open once handlers are registered.
func New(token string, logger *zap.Logger) (*Client, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}

	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentMessageContent

	return &Client{s: s, logger: logger}, nil
}

// Session exposes the raw session for handler registration.
func (c *Client) Session() *discordgo.Session {
	return c.s
}

// Open connects to the gateway.
func (c *Client) Open() error {
	return c.s.Open()
}

// Close disconnects from the gateway.
func (c *Client) Close() error {
	return c.s.Close()
}

// Ready reports whether the gateway session has identified.
func (c *Client) Ready() bool {
	return c.s.State != nil && c.s.State.User != nil
}

// BotUserID returns the bot's own user ID, or "" before the session is
// ready.
func (c *Client) BotUserID() string {
	if c.s.State == nil || c.s.State.User == nil {
		return ""
	}
	return c.s.State.User.ID
}

// PostPoll implements poll.Platform: posts the announcement and seeds one
// reaction per option so voters can click instead of hunting for emoji.
func (c *Client) PostPoll(ctx context.Context, channelID, content string, options []poll.Choice) (string, error) {
	msg, err := c.s.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	if err != nil {
		return "", wrapErr("post poll message", err)
	}

	for _, opt := range options {
		if err := c.s.MessageReactionAdd(channelID, msg.ID, opt.Emoji(), discordgo.WithContext(ctx)); err != nil {
			// The poll still works without the seed reaction; keep going.
			c.logger.Warn("Failed to seed poll reaction",
				zap.String("message_id", msg.ID),
				zap.String("choice", string(opt)),
				zap.Error(err))
		}
	}

	return msg.ID, nil
}

// Announce implements poll.Platform.
func (c *Client) Announce(ctx context.Context, channelID, content string) error {
	_, err := c.s.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	return wrapErr("announce", err)
}

// Notify implements poll.Platform: best-effort DM. Fails when the user has
// DMs disabled; callers treat that as non-fatal.
func (c *Client) Notify(ctx context.Context, userID, content string) error {
	ch, err := c.s.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return wrapErr("open dm channel", err)
	}
	_, err = c.s.ChannelMessageSend(ch.ID, content, discordgo.WithContext(ctx))
	return wrapErr("send dm", err)
}

// SendMessage posts to an arbitrary channel.
func (c *Client) SendMessage(ctx context.Context, channelID, content string) (string, error) {
	msg, err := c.s.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	if err != nil {
		return "", wrapErr("send message", err)
	}
	return msg.ID, nil
}

// EditMessage replaces the content of a previously sent message. Used for
// the in-place progress updates during QR verification.
func (c *Client) EditMessage(ctx context.Context, channelID, messageID, content string) error {
	_, err := c.s.ChannelMessageEdit(channelID, messageID, content, discordgo.WithContext(ctx))
	return wrapErr("edit message", err)
}

// IsNotFound reports whether err is a Discord 404 (unknown channel, message
// or member).
func IsNotFound(err error) bool {
	var rerr *discordgo.RESTError
	return errors.As(err, &rerr) && rerr.Response != nil && rerr.Response.StatusCode == http.StatusNotFound
}

func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}
