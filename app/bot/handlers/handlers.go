// Package handlers attaches the bot's Discord gateway handlers: QR
// verification uploads, member joins and the admin command surface.
package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/smallstreet/megabot/app/bot/types"
	"go.uber.org/zap"
)

type Handler struct {
	app *types.App

	// ctx is the process lifetime context; per-event work derives bounded
	// contexts from it so in-flight handlers stop on shutdown.
	ctx context.Context
}

// Register attaches all gateway handlers. Must run before the session opens.
func Register(ctx context.Context, app *types.App) {
	h := &Handler{app: app, ctx: ctx}

	s := app.Discord.Session()
	s.AddHandler(h.onReady)
	s.AddHandler(h.onMessageCreate)
	s.AddHandler(h.onGuildMemberAdd)
}

func (h *Handler) onReady(s *discordgo.Session, r *discordgo.Ready) {
	h.app.Logger.Info("Discord gateway ready",
		zap.String("bot_user", r.User.Username),
		zap.Int("guilds", len(r.Guilds)))

	if err := s.UpdateGameStatus(0, "Make Everyone Great Again"); err != nil {
		h.app.Logger.Warn("Failed to set presence", zap.Error(err))
	}

	if h.app.Config.VerifyChannelID != "" {
		ctx, cancel := context.WithTimeout(h.ctx, 15*time.Second)
		defer cancel()
		notice := "🤖 MEGAbot is online. Post your qr1.be QR code here to verify your membership."
		if _, err := h.app.Discord.SendMessage(ctx, h.app.Config.VerifyChannelID, notice); err != nil {
			h.app.Logger.Warn("Failed to post online notice", zap.Error(err))
		}
	}
}

func (h *Handler) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}

	if strings.HasPrefix(m.Content, "!") {
		h.handleCommand(s, m)
		return
	}

	if m.ChannelID == h.app.Config.VerifyChannelID && firstImageURL(m.Message) != "" {
		h.handleVerification(m)
	}
}

// firstImageURL returns the URL of the first image attachment, or "".
func firstImageURL(m *discordgo.Message) string {
	for _, a := range m.Attachments {
		if strings.HasPrefix(a.ContentType, "image/") {
			return a.URL
		}
	}
	return ""
}

func displayName(m *discordgo.MessageCreate) string {
	if m.Member != nil && m.Member.Nick != "" {
		return m.Member.Nick
	}
	if m.Author.GlobalName != "" {
		return m.Author.GlobalName
	}
	return m.Author.Username
}
