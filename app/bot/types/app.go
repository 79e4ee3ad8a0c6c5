package types

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/smallstreet/megabot/pkg/db"
	"github.com/smallstreet/megabot/pkg/discord"
	"github.com/smallstreet/megabot/pkg/membership"
	"github.com/smallstreet/megabot/pkg/poll"
	"github.com/smallstreet/megabot/pkg/redis"
	"github.com/smallstreet/megabot/pkg/verify"
	"go.uber.org/zap"
)

// Config is the static bot configuration read from the environment.
type Config struct {
	GuildID          string
	PollChannelID    string
	VerifyChannelID  string
	WelcomeChannelID string
	InviteURL        string
	Roles            discord.Roles

	// PollCron is the poll-creation schedule (6-field cron spec).
	PollCron string
}

type App struct {
	// Discord gateway client
	Discord *discord.Client

	// Clickhouse archive
	DB *db.DB

	// Redis client (poll locks + XP cache)
	RedisClient *redis.Client

	// SmallStreet membership API client
	Membership *membership.Client

	// Poll engine
	Orchestrator *poll.Orchestrator

	// QR verification flow
	Verifier *verify.Verifier

	// Cron is the scheduler that creates and resolves polls, according to Config.PollCron.
	Cron *cron.Cron

	// Static configuration
	Config Config

	// DebugMode gates the verbose admin command output.
	DebugMode atomic.Bool

	// Zap Logger
	Logger *zap.Logger

	// HTTP Server
	Server *http.Server
}

// Start starts the application and blocks until the context is canceled.
func (a *App) Start(ctx context.Context) {
	if a.Cron != nil {
		a.Cron.Start()
		a.Logger.Info("Cron started", zap.String("pollCron", a.Config.PollCron))
	}

	go func() { _ = a.Server.ListenAndServe() }()
	<-ctx.Done()

	if a.Cron != nil {
		a.Logger.Info("Stopping cron")
		<-a.Cron.Stop().Done()
	}

	if a.Discord != nil {
		if a.Config.VerifyChannelID != "" {
			noticeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if _, err := a.Discord.SendMessage(noticeCtx, a.Config.VerifyChannelID, "🤖 MEGAbot is going offline. Back soon."); err != nil {
				a.Logger.Warn("Failed to post shutdown notice", zap.Error(err))
			}
			cancel()
		}
		a.Logger.Info("Closing Discord session")
		if err := a.Discord.Close(); err != nil {
			a.Logger.Error("Failed to close Discord session", zap.Error(err))
		}
	}

	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Logger.Error("Failed to close Redis connection", zap.Error(err))
		}
	}

	if a.DB != nil {
		a.Logger.Info("Closing archive database connection")
		if err := a.DB.Close(); err != nil {
			a.Logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	a.Logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = a.Server.Shutdown(shutdownCtx)

	time.Sleep(200 * time.Millisecond)
	a.Logger.Info("さようなら!")
}
