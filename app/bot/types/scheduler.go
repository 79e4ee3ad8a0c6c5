package types

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/smallstreet/megabot/pkg/poll"
	"go.uber.org/zap"
)

// SetupScheduler wires the two recurring jobs: poll creation on the monthly
// slot and an hourly sweep that resolves every poll past its deadline. The
// sweep makes resolution survive restarts; a missed tick is picked up on the
// next one.
func (a *App) SetupScheduler(ctx context.Context) error {
	a.Cron = cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(cron.DefaultLogger)))

	_, err := a.Cron.AddFunc(a.Config.PollCron, func() {
		rctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()

		if _, err := a.Orchestrator.CreatePoll(rctx); err != nil {
			if errors.Is(err, poll.ErrResolveInProgress) {
				// Another replica took the slot.
				return
			}
			a.Logger.Error("Scheduled poll creation failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}

	// Resolution sweep at five past every hour.
	_, err = a.Cron.AddFunc("0 5 * * * *", func() {
		rctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
		defer cancel()

		if err := a.Orchestrator.ResolveDue(rctx, time.Now().UTC()); err != nil {
			a.Logger.Error("Resolution sweep failed", zap.Error(err))
		}
	})
	return err
}
