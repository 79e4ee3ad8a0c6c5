package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/smallstreet/megabot/pkg/verify"
	"go.uber.org/zap"
)

// verifyTimeout bounds one verification attempt end to end, fetches and
// retries included.
const verifyTimeout = 2 * time.Minute

// handleVerification runs the QR verification flow for an image posted in the
// verify channel. The reply message is edited in place as the flow advances.
func (h *Handler) handleVerification(m *discordgo.MessageCreate) {
	ctx, cancel := context.WithTimeout(h.ctx, verifyTimeout)

	msgID, err := h.app.Discord.SendMessage(ctx, m.ChannelID,
		fmt.Sprintf("🔍 <@%s> Reading your QR code...", m.Author.ID))
	if err != nil {
		h.app.Logger.Error("Failed to post verification reply", zap.Error(err))
		cancel()
		return
	}

	req := verify.Request{
		GuildID:     m.GuildID,
		UserID:      m.Author.ID,
		Username:    m.Author.Username,
		DisplayName: displayName(m),
		ImageURL:    firstImageURL(m.Message),
		JoinedAt:    time.Now().UTC(),
		InviteURL:   h.app.Config.InviteURL,
		Progress: func(text string) {
			if err := h.app.Discord.EditMessage(ctx, m.ChannelID, msgID, fmt.Sprintf("🔍 <@%s> %s", m.Author.ID, text)); err != nil {
				h.app.Logger.Debug("Failed to edit progress message", zap.Error(err))
			}
		},
	}
	if m.Member != nil && !m.Member.JoinedAt.IsZero() {
		req.JoinedAt = m.Member.JoinedAt
	}

	// The flow does network round-trips with retries; don't block the
	// gateway event loop on it.
	go func() {
		defer cancel()

		out, err := h.app.Verifier.Verify(ctx, req)
		final := h.verifyReply(m.Author.ID, out, err)
		if editErr := h.app.Discord.EditMessage(ctx, m.ChannelID, msgID, final); editErr != nil {
			h.app.Logger.Warn("Failed to post verification result", zap.Error(editErr))
		}
	}()
}

// verifyReply maps a verification outcome onto the user-facing reply.
func (h *Handler) verifyReply(userID string, out *verify.Outcome, err error) string {
	mention := fmt.Sprintf("<@%s>", userID)

	switch {
	case err == nil && out.AlreadyVerified:
		return fmt.Sprintf("✅ %s You're already verified as **%s**. Make Everyone Great Again!", mention, out.RoleName)
	case err == nil:
		return fmt.Sprintf("🎉 %s Welcome, verified **%s** member! You've been awarded **5,000,000 XP**. Make Everyone Great Again!",
			mention, out.RoleName)
	case errors.Is(err, verify.ErrBusy):
		return fmt.Sprintf("⏳ %s Hold on, your previous QR code is still being verified.", mention)
	case errors.Is(err, verify.ErrUnreadableQR):
		return fmt.Sprintf("❌ %s I couldn't read a QR code in that image. Please upload a clearer photo.", mention)
	case errors.Is(err, verify.ErrNotQR1Be):
		return fmt.Sprintf("❌ %s That QR code isn't a qr1.be contact card. Please scan the card from your SmallStreet profile.", mention)
	case errors.Is(err, verify.ErrNoContact):
		return fmt.Sprintf("❌ %s Your contact card has no email address, so I can't match your membership.", mention)
	case errors.Is(err, verify.ErrNotMember):
		return fmt.Sprintf("❌ %s That email isn't registered at smallstreet.app. Sign up first, then try again.", mention)
	default:
		h.app.Logger.Error("Verification failed", zap.String("user_id", userID), zap.Error(err))
		return fmt.Sprintf("⚠️ %s Something went wrong while verifying. Please try again in a few minutes.", mention)
	}
}
