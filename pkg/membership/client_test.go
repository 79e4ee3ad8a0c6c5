package membership

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/smallstreet/megabot/pkg/poll"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const membersJSON = `[
	{"user_email": "Jane@X.com", "membership_id": 3, "membership_name": "pioneer",
	 "discord_username": "jane", "display_name": "Jane M", "xp_level": 1e168},
	{"user_email": "bob@x.com", "membership_id": 5, "membership_name": "patron",
	 "discord_username": "BobTheBuilder", "display_name": "Bob", "xp_level": 2500000},
	{"user_email": "ghost@x.com", "membership_id": 0, "membership_name": "",
	 "discord_username": "ghost", "display_name": ""}
]`

type recordSink struct {
	mu     sync.Mutex
	bodies []map[string]any
	auth   []string
	status int
}

func newMembershipServer(t *testing.T, sink *recordSink) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case membersPath:
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(membersJSON))
		case recordsPath:
			body, _ := io.ReadAll(r.Body)
			var m map[string]any
			require.NoError(t, json.Unmarshal(body, &m))

			sink.mu.Lock()
			sink.bodies = append(sink.bodies, m)
			sink.auth = append(sink.auth, r.Header.Get("Authorization"))
			status := sink.status
			sink.mu.Unlock()

			if status == 0 {
				status = http.StatusCreated
			}
			w.WriteHeader(status)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c := NewClientWithBase(srv.URL, "secret", zap.NewNop())
	// Single attempt keeps failure tests fast.
	c.retryCfg.MaxAttempts = 1
	return c
}

func TestFindByEmailCaseInsensitive(t *testing.T) {
	srv := newMembershipServer(t, &recordSink{})
	defer srv.Close()
	c := newTestClient(t, srv)

	m, err := c.FindByEmail(context.Background(), "jane@x.com")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "pioneer", m.MembershipName)
	assert.True(t, m.HasMembership())

	none, err := c.FindByEmail(context.Background(), "missing@x.com")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestFindByUsername(t *testing.T) {
	srv := newMembershipServer(t, &recordSink{})
	defer srv.Close()
	c := newTestClient(t, srv)

	m, err := c.FindByUsername(context.Background(), "bobthebuilder")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "bob@x.com", m.Email)
}

// The API reports XP levels far past float64 integer precision; the parsed
// value must land in the right power tier anyway.
func TestLookupVoterHugeXP(t *testing.T) {
	srv := newMembershipServer(t, &recordSink{})
	defer srv.Close()
	c := newTestClient(t, srv)

	entry, err := c.LookupVoter(context.Background(), "jane")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "Jane@X.com", entry.Email)
	assert.Equal(t, int64(100), poll.PowerForXP(entry.XP))
}

func TestLookupVoterUnknown(t *testing.T) {
	srv := newMembershipServer(t, &recordSink{})
	defer srv.Close()
	c := newTestClient(t, srv)

	entry, err := c.LookupVoter(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

// A member record without a parseable XP level is treated as unknown and
// falls back downstream.
func TestLookupVoterEmptyXP(t *testing.T) {
	srv := newMembershipServer(t, &recordSink{})
	defer srv.Close()
	c := newTestClient(t, srv)

	entry, err := c.LookupVoter(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestSubmitVoteRecord(t *testing.T) {
	sink := &recordSink{}
	srv := newMembershipServer(t, sink)
	defer srv.Close()
	c := newTestClient(t, srv)

	err := c.SubmitVote(context.Background(), "poll-1", "batch-1", poll.Voter{
		ID:          "u1",
		Username:    "jane",
		Choice:      poll.ChoicePeace,
		VotingPower: 100,
		Verified:    true,
		Email:       "jane@x.com",
	})
	require.NoError(t, err)

	require.Len(t, sink.bodies, 1)
	body := sink.bodies[0]
	assert.Equal(t, string(RecordTypePollVote), body["record_type"])
	assert.Equal(t, "poll-1", body["poll_id"])
	assert.Equal(t, "peace", body["choice"])
	assert.Equal(t, float64(100), body["voting_power"])
	assert.Equal(t, "Bearer secret", sink.auth[0])
}

func TestSubmitAwardRecord(t *testing.T) {
	sink := &recordSink{}
	srv := newMembershipServer(t, sink)
	defer srv.Close()
	c := newTestClient(t, srv)

	err := c.SubmitAward(context.Background(), "poll-1", "batch-1", poll.RewardRecord{
		Voter:            poll.Voter{ID: "u1", Username: "jane", Choice: poll.ChoicePeace},
		XPAwarded:        16_000_000,
		IsWinner:         true,
		IsTopContributor: true,
	})
	require.NoError(t, err)

	require.Len(t, sink.bodies, 1)
	body := sink.bodies[0]
	assert.Equal(t, string(RecordTypeFinalAward), body["record_type"])
	assert.Equal(t, float64(16_000_000), body["xp_awarded"])
	assert.Equal(t, true, body["is_winner"])
	assert.Equal(t, true, body["is_top_contributor"])
}

func TestSubmitRecordServerError(t *testing.T) {
	sink := &recordSink{status: http.StatusInternalServerError}
	srv := newMembershipServer(t, sink)
	defer srv.Close()
	c := newTestClient(t, srv)

	err := c.SubmitVerification(context.Background(), VerificationRecord{
		RecordType: RecordTypeVerification,
		DiscordID:  "u1",
	})
	assert.Error(t, err)
}
