package poll

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePlatform struct {
	mu            sync.Mutex
	pollChannel   string
	pollContent   string
	pollOptions   []Choice
	announcements []string
	dms           map[string][]string
	notifyErr     error
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{dms: map[string][]string{}}
}

func (f *fakePlatform) PostPoll(_ context.Context, channelID, content string, options []Choice) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pollChannel, f.pollContent, f.pollOptions = channelID, content, options
	return "msg-1", nil
}

func (f *fakePlatform) Announce(_ context.Context, _, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.announcements = append(f.announcements, content)
	return nil
}

func (f *fakePlatform) Notify(_ context.Context, userID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.notifyErr != nil {
		return f.notifyErr
	}
	f.dms[userID] = append(f.dms[userID], content)
	return nil
}

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: map[string]bool{}}
}

func (f *fakeLocker) Acquire(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held[key] {
		return false, nil
	}
	f.held[key] = true
	return true, nil
}

func (f *fakeLocker) Release(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.held, key)
	return nil
}

type fakeArchive struct {
	polls         map[string]*Poll
	rewards       []RewardRecord
	saveRewardErr error
	resolvedWith  Choice
	resolvedCount int
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{polls: map[string]*Poll{}}
}

func (f *fakeArchive) SavePoll(_ context.Context, p *Poll) error {
	cp := *p
	f.polls[p.ID] = &cp
	return nil
}

func (f *fakeArchive) GetPoll(_ context.Context, pollID string) (*Poll, error) {
	p, ok := f.polls[pollID]
	if !ok {
		return nil, ErrPollNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeArchive) UpdateState(_ context.Context, pollID string, st State) error {
	f.polls[pollID].State = st
	return nil
}

func (f *fakeArchive) MarkResolved(_ context.Context, pollID string, winner Choice, totalVoters int) error {
	f.polls[pollID].State = StateResolved
	f.resolvedWith = winner
	f.resolvedCount = totalVoters
	return nil
}

func (f *fakeArchive) SaveReward(_ context.Context, _, _ string, rec RewardRecord) error {
	if f.saveRewardErr != nil {
		return f.saveRewardErr
	}
	f.rewards = append(f.rewards, rec)
	return nil
}

func (f *fakeArchive) DueOpenPolls(_ context.Context, now time.Time) ([]Poll, error) {
	var due []Poll
	for _, p := range f.polls {
		if p.State == StateOpen && !p.DueAt().After(now) {
			due = append(due, *p)
		}
	}
	return due, nil
}

type fakeRecorder struct {
	mu      sync.Mutex
	votes   []Voter
	awards  []RewardRecord
	voteErr error
}

func (f *fakeRecorder) SubmitVote(_ context.Context, _, _ string, v Voter) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.voteErr != nil {
		return f.voteErr
	}
	f.votes = append(f.votes, v)
	return nil
}

func (f *fakeRecorder) SubmitAward(_ context.Context, _, _ string, rec RewardRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.awards = append(f.awards, rec)
	return nil
}

type orchFixture struct {
	orch     *Orchestrator
	platform *fakePlatform
	locker   *fakeLocker
	archive  *fakeArchive
	recorder *fakeRecorder
	source   *fakeSource
}

func newOrchFixture(t *testing.T, reactors map[Choice][]ReactingUser, dir map[string]*DirectoryEntry) *orchFixture {
	t.Helper()
	f := &orchFixture{
		platform: newFakePlatform(),
		locker:   newFakeLocker(),
		archive:  newFakeArchive(),
		recorder: &fakeRecorder{},
		source:   &fakeSource{reactors: reactors},
	}
	agg := newTestAggregator(f.source, &fakeDirectory{entries: dir})
	f.orch = NewOrchestrator(f.platform, agg, f.locker, f.archive, f.recorder, "chan-1", zap.NewNop())
	return f
}

func (f *orchFixture) openPoll(t *testing.T) *Poll {
	t.Helper()
	p, err := f.orch.CreatePoll(context.Background())
	require.NoError(t, err)
	return p
}

func TestCreatePoll(t *testing.T) {
	f := newOrchFixture(t, nil, nil)

	p := f.openPoll(t)

	assert.Equal(t, "msg-1", p.ID)
	assert.Equal(t, StateOpen, p.State)
	assert.Equal(t, "chan-1", f.platform.pollChannel)
	assert.Equal(t, Choices, f.platform.pollOptions)
	assert.Contains(t, f.platform.pollContent, "☮️")
	require.Contains(t, f.archive.polls, "msg-1")

	// Create lock released afterwards.
	assert.Empty(t, f.locker.held)
}

func TestResolveEndToEnd(t *testing.T) {
	reactors := map[Choice][]ReactingUser{
		ChoicePeace:  {{ID: "a", Username: "alice"}},
		ChoiceVoting: {{ID: "b", Username: "bob"}},
	}
	dir := map[string]*DirectoryEntry{
		"alice": {Email: "alice@x.com", XP: xpLevel(t, "12")},   // power 1
		"bob":   {Email: "bob@x.com", XP: xpLevel(t, "1e24")},   // power 10
	}
	f := newOrchFixture(t, reactors, dir)
	p := f.openPoll(t)

	res, err := f.orch.Resolve(context.Background(), p.ID)
	require.NoError(t, err)

	assert.Equal(t, ChoiceVoting, res.Winner)
	assert.Equal(t, 2, res.Tally.TotalVoters)
	assert.InDelta(t, 9.1, res.Allocations[ChoicePeace].Percentage, 0.05)
	assert.InDelta(t, 90.9, res.Allocations[ChoiceVoting].Percentage, 0.05)
	assert.Zero(t, res.Allocations[ChoiceDisaster].Percentage)
	assert.NotEmpty(t, res.BatchID)
	assert.Zero(t, res.PersistFailures)
	assert.Zero(t, res.NotifyFailures)

	// Alice lost with power 1: base only. Bob won with power 10: base + winner.
	require.Len(t, res.Rewards, 2)
	byVoter := map[string]RewardRecord{}
	for _, r := range res.Rewards {
		byVoter[r.Voter.ID] = r
	}
	assert.Equal(t, int64(1_000_000), byVoter["a"].XPAwarded)
	assert.Equal(t, int64(6_000_000), byVoter["b"].XPAwarded)

	// Every voter got vote + award records and an archive row.
	assert.Len(t, f.recorder.votes, 2)
	assert.Len(t, f.recorder.awards, 2)
	assert.Len(t, f.archive.rewards, 2)

	// Each voter got exactly one DM; the result was announced.
	assert.Len(t, f.platform.dms["a"], 1)
	assert.Len(t, f.platform.dms["b"], 1)
	require.Len(t, f.platform.announcements, 1)
	assert.Contains(t, f.platform.announcements[0], "voting")

	assert.Equal(t, ChoiceVoting, f.archive.resolvedWith)
	assert.Equal(t, 2, f.archive.resolvedCount)
}

func TestResolveTwiceRejected(t *testing.T) {
	f := newOrchFixture(t, nil, nil)
	p := f.openPoll(t)

	_, err := f.orch.Resolve(context.Background(), p.ID)
	require.NoError(t, err)

	_, err = f.orch.Resolve(context.Background(), p.ID)
	assert.ErrorIs(t, err, ErrAlreadyResolved)
}

func TestResolveWhileLocked(t *testing.T) {
	f := newOrchFixture(t, nil, nil)
	p := f.openPoll(t)

	locked, err := f.locker.Acquire(context.Background(), p.ID)
	require.NoError(t, err)
	require.True(t, locked)

	_, err = f.orch.Resolve(context.Background(), p.ID)
	assert.ErrorIs(t, err, ErrResolveInProgress)
}

func TestResolveUnknownPoll(t *testing.T) {
	f := newOrchFixture(t, nil, nil)

	_, err := f.orch.Resolve(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrPollNotFound)
}

func TestResolveNoVotes(t *testing.T) {
	f := newOrchFixture(t, nil, nil)
	p := f.openPoll(t)

	res, err := f.orch.Resolve(context.Background(), p.ID)
	require.NoError(t, err)

	assert.Equal(t, ChoicePeace, res.Winner)
	assert.Empty(t, res.Rewards)
	assert.Empty(t, f.recorder.votes)
	for _, c := range Choices {
		assert.InDelta(t, 100.0/3, res.Allocations[c].Percentage, 1e-9)
	}
	assert.Equal(t, 0, f.archive.resolvedCount)
}

// One voter's persistence failure is counted but never blocks the batch.
func TestResolvePersistFailuresCounted(t *testing.T) {
	reactors := map[Choice][]ReactingUser{
		ChoicePeace: {{ID: "a", Username: "alice"}, {ID: "b", Username: "bob"}},
	}
	f := newOrchFixture(t, reactors, nil)
	f.recorder.voteErr = errors.New("api down")
	p := f.openPoll(t)

	res, err := f.orch.Resolve(context.Background(), p.ID)
	require.NoError(t, err)

	assert.Equal(t, 2, res.PersistFailures)
	// Awards and archive writes still went through.
	assert.Len(t, f.recorder.awards, 2)
	assert.Len(t, f.archive.rewards, 2)
	assert.Equal(t, StateResolved, f.archive.polls[p.ID].State)
}

func TestResolveDueSweep(t *testing.T) {
	f := newOrchFixture(t, nil, nil)
	p := f.openPoll(t)

	// Not due yet: nothing happens.
	require.NoError(t, f.orch.ResolveDue(context.Background(), time.Now()))
	assert.Equal(t, StateOpen, f.archive.polls[p.ID].State)

	// Past the deadline: resolved.
	require.NoError(t, f.orch.ResolveDue(context.Background(), time.Now().Add(8*24*time.Hour)))
	assert.Equal(t, StateResolved, f.archive.polls[p.ID].State)

	// A second sweep is a no-op, not an error.
	require.NoError(t, f.orch.ResolveDue(context.Background(), time.Now().Add(9*24*time.Hour)))
}
