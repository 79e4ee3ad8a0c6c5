package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// onGuildMemberAdd greets a new member and points them at the QR
// verification channel. Both messages are best-effort.
func (h *Handler) onGuildMemberAdd(_ *discordgo.Session, m *discordgo.GuildMemberAdd) {
	if m.User == nil || m.User.Bot {
		return
	}

	ctx, cancel := context.WithTimeout(h.ctx, 30*time.Second)
	defer cancel()

	welcome := fmt.Sprintf(
		"👋 Welcome to SmallStreet, <@%s>!\n\n"+
			"To unlock voting, post a photo of your qr1.be membership QR code in <#%s>. "+
			"Not a member yet? Join at %s\n\nMake Everyone Great Again",
		m.User.ID, h.app.Config.VerifyChannelID, h.app.Config.InviteURL)

	if err := h.app.Discord.Notify(ctx, m.User.ID, welcome); err != nil {
		// DMs disabled; the channel greeting still lands.
		h.app.Logger.Debug("Welcome DM failed",
			zap.String("user_id", m.User.ID), zap.Error(err))
	}

	if h.app.Config.WelcomeChannelID != "" {
		greeting := fmt.Sprintf("🎉 <@%s> just joined! Say hi.", m.User.ID)
		if _, err := h.app.Discord.SendMessage(ctx, h.app.Config.WelcomeChannelID, greeting); err != nil {
			h.app.Logger.Warn("Channel greeting failed", zap.Error(err))
		}
	}
}
