package poll

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Platform is the chat-platform surface the orchestrator needs: posting the
// poll announcement with its reaction options, announcing results, and
// direct-messaging voters.
type Platform interface {
	PostPoll(ctx context.Context, channelID, content string, options []Choice) (messageID string, err error)
	Announce(ctx context.Context, channelID, content string) error
	Notify(ctx context.Context, userID, content string) error
}

// Locker provides per-poll mutual exclusion. Acquire returns false when the
// lock is already held. Implementations bound the hold time (30s in the
// reference deployment) so a crashed pass cannot deadlock the poll forever.
type Locker interface {
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// Archive is the local append-only record store behind the operational
// endpoints. It also carries the poll's lifecycle state.
type Archive interface {
	SavePoll(ctx context.Context, p *Poll) error
	GetPoll(ctx context.Context, pollID string) (*Poll, error)
	UpdateState(ctx context.Context, pollID string, st State) error
	MarkResolved(ctx context.Context, pollID string, winner Choice, totalVoters int) error
	SaveReward(ctx context.Context, pollID, batchID string, rec RewardRecord) error
	DueOpenPolls(ctx context.Context, now time.Time) ([]Poll, error)
}

// Recorder submits vote and award records to the external membership store.
// Append-only from the engine's point of view: every resolution writes fresh
// records.
type Recorder interface {
	SubmitVote(ctx context.Context, pollID, batchID string, v Voter) error
	SubmitAward(ctx context.Context, pollID, batchID string, rec RewardRecord) error
}

// Result is the outcome of one poll resolution.
type Result struct {
	Poll            *Poll
	Tally           *Tally
	Winner          Choice
	Allocations     map[Choice]Allocation
	Rewards         []RewardRecord
	BatchID         string
	PersistFailures int
	NotifyFailures  int
}

// createSlotKey serializes concurrent create requests for the same
// scheduling slot.
const createSlotKey = "create"

// Orchestrator sequences poll creation and resolution: aggregation, fund
// allocation, reward computation, persistence and notifications.
type Orchestrator struct {
	Platform   Platform
	Aggregator *Aggregator
	Locker     Locker
	Archive    Archive
	Recorder   Recorder
	Logger     *zap.Logger

	ChannelID string
	Duration  time.Duration
	Fund      float64

	// NotifyWorkers bounds the DM fan-out pool at resolution.
	NotifyWorkers int
}

func NewOrchestrator(platform Platform, agg *Aggregator, locker Locker, archive Archive, recorder Recorder, channelID string, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		Platform:      platform,
		Aggregator:    agg,
		Locker:        locker,
		Archive:       archive,
		Recorder:      recorder,
		Logger:        logger,
		ChannelID:     channelID,
		Duration:      DefaultDuration,
		Fund:          DefaultFund,
		NotifyWorkers: 4,
	}
}

// CreatePoll posts the monthly poll announcement, seeds the three reaction
// options and records the new poll as open. Concurrent create requests for
// the same slot are rejected via the create lock.
func (o *Orchestrator) CreatePoll(ctx context.Context) (*Poll, error) {
	locked, err := o.Locker.Acquire(ctx, createSlotKey)
	if err != nil {
		return nil, fmt.Errorf("acquire create lock: %w", err)
	}
	if !locked {
		return nil, ErrResolveInProgress
	}
	defer func() {
		if err := o.Locker.Release(ctx, createSlotKey); err != nil {
			o.Logger.Warn("Failed to release create lock", zap.Error(err))
		}
	}()

	msgID, err := o.Platform.PostPoll(ctx, o.ChannelID, o.announcementText(), Choices)
	if err != nil {
		return nil, fmt.Errorf("post poll announcement: %w", err)
	}

	p := &Poll{
		ID:        msgID,
		ChannelID: o.ChannelID,
		CreatedAt: time.Now().UTC(),
		Duration:  o.Duration,
		State:     StateOpen,
	}

	if err := o.Archive.SavePoll(ctx, p); err != nil {
		// The announcement is already out; the poll is live even if the
		// archive write failed. Report but keep the poll.
		o.Logger.Error("Failed to archive new poll",
			zap.String("poll_id", p.ID), zap.Error(err))
		return p, fmt.Errorf("archive poll %s: %w", p.ID, err)
	}

	o.Logger.Info("Poll created",
		zap.String("poll_id", p.ID),
		zap.String("channel_id", p.ChannelID),
		zap.Time("due_at", p.DueAt()))

	return p, nil
}

// Resolve runs the one-time resolution workflow for a poll: aggregate,
// allocate, compute rewards, persist, notify, announce. Re-resolving an
// already resolved poll is rejected with ErrAlreadyResolved; a concurrent
// pass for the same poll is rejected with ErrResolveInProgress.
func (o *Orchestrator) Resolve(ctx context.Context, pollID string) (*Result, error) {
	locked, err := o.Locker.Acquire(ctx, pollID)
	if err != nil {
		return nil, fmt.Errorf("acquire poll lock: %w", err)
	}
	if !locked {
		return nil, ErrResolveInProgress
	}
	defer func() {
		if err := o.Locker.Release(ctx, pollID); err != nil {
			o.Logger.Warn("Failed to release poll lock",
				zap.String("poll_id", pollID), zap.Error(err))
		}
	}()

	p, err := o.Archive.GetPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if p.State == StateResolved {
		return nil, ErrAlreadyResolved
	}

	if err := o.Archive.UpdateState(ctx, pollID, StateResolving); err != nil {
		return nil, fmt.Errorf("mark poll resolving: %w", err)
	}

	tally, err := o.Aggregator.Aggregate(ctx, p.ChannelID, pollID)
	if err != nil {
		// Reopen so a later pass can pick the poll up again.
		if stErr := o.Archive.UpdateState(ctx, pollID, StateOpen); stErr != nil {
			o.Logger.Error("Failed to reopen poll after aggregation error",
				zap.String("poll_id", pollID), zap.Error(stErr))
		}
		return nil, err
	}

	res := &Result{
		Poll:        p,
		Tally:       tally,
		Winner:      tally.Winner(),
		Allocations: AllocateFund(tally, o.Fund),
		BatchID:     uuid.NewString(),
	}

	if tally.TotalVoters > 0 {
		res.Rewards = Rewards(tally, res.Winner)
		res.PersistFailures = o.persistRewards(ctx, pollID, res.BatchID, res.Rewards)
	}

	if err := o.Archive.MarkResolved(ctx, pollID, res.Winner, tally.TotalVoters); err != nil {
		return res, fmt.Errorf("mark poll resolved: %w", err)
	}
	p.State = StateResolved

	res.NotifyFailures = o.notifyVoters(ctx, res)

	if err := o.Platform.Announce(ctx, p.ChannelID, o.resultText(res)); err != nil {
		o.Logger.Warn("Failed to announce poll result",
			zap.String("poll_id", pollID), zap.Error(err))
	}

	o.Logger.Info("Poll resolved",
		zap.String("poll_id", pollID),
		zap.String("winner", string(res.Winner)),
		zap.Int("total_voters", tally.TotalVoters),
		zap.Int("persist_failures", res.PersistFailures),
		zap.Int("notify_failures", res.NotifyFailures))

	return res, nil
}

// ResolveDue resolves every open poll whose duration has elapsed. Called by
// the scheduler; per-poll failures are isolated.
func (o *Orchestrator) ResolveDue(ctx context.Context, now time.Time) error {
	due, err := o.Archive.DueOpenPolls(ctx, now)
	if err != nil {
		return fmt.Errorf("list due polls: %w", err)
	}

	var firstErr error
	for i := range due {
		id := due[i].ID
		if _, err := o.Resolve(ctx, id); err != nil {
			if errors.Is(err, ErrAlreadyResolved) || errors.Is(err, ErrResolveInProgress) {
				continue
			}
			o.Logger.Error("Scheduled resolution failed",
				zap.String("poll_id", id), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// persistRewards writes each voter's vote and award records to the external
// store and the local archive. One voter's failure never blocks the rest;
// the failure tally lands in the batch summary.
func (o *Orchestrator) persistRewards(ctx context.Context, pollID, batchID string, rewards []RewardRecord) int {
	failures := 0
	for _, rec := range rewards {
		ok := true

		if err := o.Recorder.SubmitVote(ctx, pollID, batchID, rec.Voter); err != nil {
			o.Logger.Warn("Vote record submission failed",
				zap.String("poll_id", pollID),
				zap.String("voter_id", rec.Voter.ID),
				zap.Error(err))
			ok = false
		}
		if err := o.Recorder.SubmitAward(ctx, pollID, batchID, rec); err != nil {
			o.Logger.Warn("Award record submission failed",
				zap.String("poll_id", pollID),
				zap.String("voter_id", rec.Voter.ID),
				zap.Error(err))
			ok = false
		}
		if err := o.Archive.SaveReward(ctx, pollID, batchID, rec); err != nil {
			o.Logger.Warn("Reward archive write failed",
				zap.String("poll_id", pollID),
				zap.String("voter_id", rec.Voter.ID),
				zap.Error(err))
			ok = false
		}

		if !ok {
			failures++
		}
	}
	return failures
}

// notifyVoters DMs each reward to its voter through a bounded worker pool.
// Notification failures (DMs disabled, etc.) are logged and counted, never
// fatal.
func (o *Orchestrator) notifyVoters(ctx context.Context, res *Result) int {
	if len(res.Rewards) == 0 {
		return 0
	}

	var failed int32
	pool := pond.NewPool(o.NotifyWorkers)
	for _, rec := range res.Rewards {
		pool.Submit(func() {
			if err := o.Platform.Notify(ctx, rec.Voter.ID, o.rewardText(rec, res.Winner)); err != nil {
				atomic.AddInt32(&failed, 1)
				o.Logger.Debug("Voter notification failed",
					zap.String("voter_id", rec.Voter.ID),
					zap.Error(err))
			}
		})
	}
	pool.StopAndWait()
	return int(atomic.LoadInt32(&failed))
}

func (o *Orchestrator) announcementText() string {
	var b strings.Builder
	b.WriteString("📊 **Monthly Community Poll — Make Everyone Great Again**\n\n")
	b.WriteString("Vote by reacting to this message:\n")
	b.WriteString(fmt.Sprintf("%s  Peace\n", ChoicePeace.Emoji()))
	b.WriteString(fmt.Sprintf("%s  Voting\n", ChoiceVoting.Emoji()))
	b.WriteString(fmt.Sprintf("%s  Disaster\n\n", ChoiceDisaster.Emoji()))
	b.WriteString(fmt.Sprintf("Votes are weighted by your SmallStreet XP level. The poll closes in %d days.", int(o.Duration.Hours()/24)))
	return b.String()
}

func (o *Orchestrator) resultText(res *Result) string {
	var b strings.Builder
	b.WriteString("🏁 **Poll Results**\n\n")
	for _, c := range Choices {
		ct := res.Tally.Choices[c]
		alloc := res.Allocations[c]
		b.WriteString(fmt.Sprintf("%s %s — %d votes, weight %d → %.1f%% ($%.2f)\n",
			c.Emoji(), c, ct.Count, ct.Weighted, alloc.Percentage, alloc.Amount))
	}
	if res.Tally.TotalVoters == 0 {
		b.WriteString("\nNo votes were cast; the fund splits evenly.\n")
	} else {
		b.WriteString(fmt.Sprintf("\n🏆 Winner: **%s** (%d voters)\n", res.Winner, res.Tally.TotalVoters))
	}
	if res.PersistFailures > 0 {
		b.WriteString(fmt.Sprintf("⚠️ %d reward record(s) could not be saved; see logs.\n", res.PersistFailures))
	}
	b.WriteString("Make Everyone Great Again")
	return b.String()
}

func (o *Orchestrator) rewardText(rec RewardRecord, winner Choice) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("🎁 **Poll Reward:** you earned **%s XP** for voting %s.", formatXP(rec.XPAwarded), rec.Voter.Choice.Emoji()))
	if rec.IsWinner {
		parts = append(parts, fmt.Sprintf("🏆 Your choice **%s** won the poll (+%s XP bonus).", winner, formatXP(WinnerBonus)))
	}
	if rec.IsTopContributor {
		parts = append(parts, fmt.Sprintf("⭐ Top-contributor bonus (+%s XP).", formatXP(TopContributorBonus)))
	}
	parts = append(parts, "Make Everyone Great Again")
	return strings.Join(parts, "\n")
}

func formatXP(n int64) string {
	s := fmt.Sprintf("%d", n)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}
