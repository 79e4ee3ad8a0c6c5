package bot

import (
	"context"
	"time"

	"github.com/smallstreet/megabot/app/bot/handlers"
	"github.com/smallstreet/megabot/app/bot/types"
	"github.com/smallstreet/megabot/pkg/db"
	"github.com/smallstreet/megabot/pkg/discord"
	"github.com/smallstreet/megabot/pkg/logging"
	"github.com/smallstreet/megabot/pkg/membership"
	"github.com/smallstreet/megabot/pkg/poll"
	"github.com/smallstreet/megabot/pkg/redis"
	"github.com/smallstreet/megabot/pkg/utils"
	"github.com/smallstreet/megabot/pkg/verify"
	"go.uber.org/zap"
)

func Initialize(ctx context.Context) *types.App {
	logger, err := logging.New()
	if err != nil {
		// nothing else to do here, we'll just log to stderr'
		panic(err)
	}

	token := utils.Env("DISCORD_TOKEN", "")
	if token == "" {
		logger.Fatal("DISCORD_TOKEN is required")
	}

	cfg := types.Config{
		GuildID:          utils.Env("GUILD_ID", ""),
		PollChannelID:    utils.Env("POLL_CHANNEL_ID", ""),
		VerifyChannelID:  utils.Env("VERIFY_CHANNEL_ID", ""),
		WelcomeChannelID: utils.Env("WELCOME_CHANNEL_ID", ""),
		InviteURL:        utils.Env("INVITE_URL", ""),
		Roles: discord.Roles{
			MegavoterRoleID: utils.Env("MEGAVOTER_ROLE_ID", ""),
			PatronRoleID:    utils.Env("PATRON_ROLE_ID", ""),
		},
		// Noon UTC on the 1st of every month.
		PollCron: utils.Env("POLL_CRON", "0 0 12 1 * *"),
	}

	archive, err := db.New(ctx, logger)
	if err != nil {
		logger.Fatal("Unable to initialize archive database", zap.Error(err))
	}

	// Redis is required: the poll engine refuses to run without explicit
	// cross-process locks.
	redisClient, err := redis.NewClient(ctx, logger)
	if err != nil {
		logger.Fatal("Unable to establish redis connection", zap.Error(err))
	}

	members := membership.NewClient(logger)

	dc, err := discord.New(token, logger)
	if err != nil {
		logger.Fatal("Unable to create Discord session", zap.Error(err))
	}

	resolver := poll.NewResolver(members, redis.NewXPCache(redisClient), logger)
	aggregator := poll.NewAggregator(discord.NewCollector(dc), resolver, logger)

	orchestrator := poll.NewOrchestrator(dc, aggregator, redis.NewPollLocks(redisClient), archive, members, cfg.PollChannelID, logger)
	orchestrator.Duration = time.Duration(utils.EnvInt("POLL_DURATION_HOURS", 168)) * time.Hour
	orchestrator.Fund = utils.EnvFloat("POLL_FUND", poll.DefaultFund)
	orchestrator.NotifyWorkers = utils.EnvInt("NOTIFY_WORKERS", 4)

	verifier := verify.NewVerifier(
		verify.NewQRDecoder(logger),
		verify.NewQR1BeFetcher(logger),
		members,
		&roleAssigner{client: dc, roles: cfg.Roles, guildID: cfg.GuildID},
		archive,
		logger,
	)

	app := &types.App{
		Discord:      dc,
		DB:           archive,
		RedisClient:  redisClient,
		Membership:   members,
		Orchestrator: orchestrator,
		Verifier:     verifier,
		Config:       cfg,
		Logger:       logger,
	}

	// Handlers must be attached before the gateway opens, otherwise early
	// events are dropped.
	handlers.Register(ctx, app)

	if err := dc.Open(); err != nil {
		logger.Fatal("Unable to open Discord gateway", zap.Error(err))
	}

	if err := app.SetupScheduler(ctx); err != nil {
		logger.Fatal("Unable to set up scheduler", zap.Error(err))
	}

	return app
}

// roleAssigner adapts the Discord client's role management to the verifier.
type roleAssigner struct {
	client  *discord.Client
	roles   discord.Roles
	guildID string
}

func (r *roleAssigner) Assign(ctx context.Context, userID, membershipName string) (verify.RoleAssignment, error) {
	res, err := r.client.AssignMembershipRole(ctx, r.roles, r.guildID, userID, membershipName)
	if err != nil {
		return verify.RoleAssignment{}, err
	}
	return verify.RoleAssignment{RoleName: res.RoleName, AlreadyHas: res.AlreadyHas}, nil
}
