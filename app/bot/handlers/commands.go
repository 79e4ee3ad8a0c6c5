package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/smallstreet/megabot/pkg/poll"
	"go.uber.org/zap"
)

const commandTimeout = 5 * time.Minute

// handleCommand dispatches the "!" admin commands. Non-admins are ignored
// silently so the prefix stays usable in normal chat.
func (h *Handler) handleCommand(s *discordgo.Session, m *discordgo.MessageCreate) {
	fields := strings.Fields(m.Content)
	cmd := strings.ToLower(fields[0])

	switch cmd {
	case "!createpoll", "!resolvepoll", "!pollstatus", "!testapi", "!debugmode":
	default:
		return
	}

	if !h.isAdmin(s, m) {
		return
	}

	ctx, cancel := context.WithTimeout(h.ctx, commandTimeout)
	defer cancel()

	var reply string
	switch cmd {
	case "!createpoll":
		reply = h.cmdCreatePoll(ctx)
	case "!resolvepoll":
		reply = h.cmdResolvePoll(ctx, fields)
	case "!pollstatus":
		reply = h.cmdPollStatus(ctx, fields)
	case "!testapi":
		reply = h.cmdTestAPI(ctx)
	case "!debugmode":
		reply = h.cmdDebugMode(fields)
	}

	if reply != "" {
		if _, err := h.app.Discord.SendMessage(ctx, m.ChannelID, reply); err != nil {
			h.app.Logger.Error("Failed to send command reply",
				zap.String("command", cmd), zap.Error(err))
		}
	}
}

func (h *Handler) isAdmin(s *discordgo.Session, m *discordgo.MessageCreate) bool {
	perms, err := s.UserChannelPermissions(m.Author.ID, m.ChannelID)
	if err != nil {
		h.app.Logger.Warn("Failed to check permissions",
			zap.String("user_id", m.Author.ID), zap.Error(err))
		return false
	}
	return perms&discordgo.PermissionAdministrator != 0
}

func (h *Handler) cmdCreatePoll(ctx context.Context) string {
	p, err := h.app.Orchestrator.CreatePoll(ctx)
	if err != nil {
		if errors.Is(err, poll.ErrResolveInProgress) {
			return "⏳ A poll is already being created."
		}
		return fmt.Sprintf("❌ Poll creation failed: %v", err)
	}
	return fmt.Sprintf("✅ Poll **%s** created, closes <t:%d:R>.", p.ID, p.DueAt().Unix())
}

func (h *Handler) cmdResolvePoll(ctx context.Context, fields []string) string {
	if len(fields) < 2 {
		return "Usage: `!resolvepoll <poll-id>`"
	}
	id := fields[1]

	res, err := h.app.Orchestrator.Resolve(ctx, id)
	switch {
	case errors.Is(err, poll.ErrPollNotFound):
		return fmt.Sprintf("❌ Poll %s not found.", id)
	case errors.Is(err, poll.ErrAlreadyResolved):
		return fmt.Sprintf("❌ Poll %s is already resolved.", id)
	case errors.Is(err, poll.ErrResolveInProgress):
		return fmt.Sprintf("⏳ Poll %s is being resolved right now.", id)
	case err != nil:
		return fmt.Sprintf("❌ Resolution failed: %v", err)
	}

	reply := fmt.Sprintf("✅ Poll %s resolved. Winner: **%s**, %d voters.",
		id, res.Winner, res.Tally.TotalVoters)
	if h.app.DebugMode.Load() {
		reply += fmt.Sprintf("\nbatch=%s persist_failures=%d notify_failures=%d weighted_sum=%d",
			res.BatchID, res.PersistFailures, res.NotifyFailures, res.Tally.WeightedSum())
	}
	return reply
}

func (h *Handler) cmdPollStatus(ctx context.Context, fields []string) string {
	if len(fields) < 2 {
		return "Usage: `!pollstatus <poll-id>`"
	}
	id := fields[1]

	row, err := h.app.DB.GetPollRow(ctx, id)
	if err != nil {
		if errors.Is(err, poll.ErrPollNotFound) {
			return fmt.Sprintf("❌ Poll %s not found.", id)
		}
		return fmt.Sprintf("❌ Lookup failed: %v", err)
	}

	reply := fmt.Sprintf("📊 Poll **%s**: state=%s", row.PollID, row.State)
	if row.State == string(poll.StateResolved) {
		reply += fmt.Sprintf(", winner=%s, voters=%d", row.Winner, row.TotalVoters)
	} else {
		due := row.CreatedAt.Add(time.Duration(row.DurationHours) * time.Hour)
		reply += fmt.Sprintf(", closes <t:%d:R>", due.Unix())
	}
	return reply
}

func (h *Handler) cmdTestAPI(ctx context.Context) string {
	start := time.Now()
	if err := h.app.Membership.Ping(ctx); err != nil {
		return fmt.Sprintf("❌ SmallStreet API unreachable: %v", err)
	}
	return fmt.Sprintf("✅ SmallStreet API is up (%dms).", time.Since(start).Milliseconds())
}

func (h *Handler) cmdDebugMode(fields []string) string {
	if len(fields) < 2 {
		if h.app.DebugMode.Load() {
			return "Debug mode is **on**."
		}
		return "Debug mode is **off**."
	}

	switch strings.ToLower(fields[1]) {
	case "on":
		h.app.DebugMode.Store(true)
		return "🐛 Debug mode enabled."
	case "off":
		h.app.DebugMode.Store(false)
		return "Debug mode disabled."
	default:
		return "Usage: `!debugmode [on|off]`"
	}
}
