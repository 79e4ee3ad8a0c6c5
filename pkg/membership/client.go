// Package membership talks to the SmallStreet WordPress API: member lookup
// by email or Discord username, XP levels, and append-only record
// submission. The API is treated as eventually-consistent and best-effort.
package membership

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/smallstreet/megabot/pkg/poll"
	"github.com/smallstreet/megabot/pkg/retry"
	"github.com/smallstreet/megabot/pkg/utils"
	"go.uber.org/zap"
)

const (
	membersPath = "/wp-json/myapi/v1/api"
	recordsPath = "/wp-json/myapi/v1/discord-user"
)

// Client is the SmallStreet API client. All calls are wrapped with the
// standard backoff policy.
type Client struct {
	baseURL  string
	apiKey   string
	http     *http.Client
	retryCfg retry.Config
	logger   *zap.Logger
}

// NewClient builds a client from the environment.
// Environment variables:
//   - SMALLSTREET_API_URL: API base URL (default: "https://www.smallstreet.app")
//   - SMALLSTREET_API_KEY: bearer token
func NewClient(logger *zap.Logger) *Client {
	return &Client{
		baseURL:  strings.TrimRight(utils.Env("SMALLSTREET_API_URL", "https://www.smallstreet.app"), "/"),
		apiKey:   utils.Env("SMALLSTREET_API_KEY", ""),
		http:     &http.Client{Timeout: 15 * time.Second},
		retryCfg: retry.DefaultConfig(),
		logger:   logger,
	}
}

// NewClientWithBase is NewClient with an explicit base URL, used by tests.
func NewClientWithBase(baseURL, apiKey string, logger *zap.Logger) *Client {
	c := NewClient(logger)
	c.baseURL = strings.TrimRight(baseURL, "/")
	c.apiKey = apiKey
	return c
}

// Members fetches the full membership list.
func (c *Client) Members(ctx context.Context) ([]Member, error) {
	var members []Member
	err := retry.WithBackoff(ctx, c.retryCfg, c.logger, "membership_list", func() error {
		return c.getJSON(ctx, membersPath, &members)
	})
	if err != nil {
		return nil, err
	}
	return members, nil
}

// FindByEmail returns the member with the given email, or nil when none
// matches. Matching is case-insensitive, like the WordPress side.
func (c *Client) FindByEmail(ctx context.Context, email string) (*Member, error) {
	members, err := c.Members(ctx)
	if err != nil {
		return nil, err
	}
	for i := range members {
		if strings.EqualFold(members[i].Email, email) {
			return &members[i], nil
		}
	}
	return nil, nil
}

// FindByUsername returns the member linked to the given Discord username, or
// nil when none matches.
func (c *Client) FindByUsername(ctx context.Context, username string) (*Member, error) {
	members, err := c.Members(ctx)
	if err != nil {
		return nil, err
	}
	for i := range members {
		if strings.EqualFold(members[i].DiscordUsername, username) {
			return &members[i], nil
		}
	}
	return nil, nil
}

// LookupVoter implements poll.MemberDirectory: the voting-power resolver's
// view of this store.
func (c *Client) LookupVoter(ctx context.Context, username string) (*poll.DirectoryEntry, error) {
	m, err := c.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, nil
	}
	x, ok := m.XP()
	if !ok {
		return nil, nil
	}
	return &poll.DirectoryEntry{Email: m.Email, XP: x}, nil
}

// SubmitRecord posts one tagged record to the store. Append-only: the store
// never sees updates, only fresh records.
func (c *Client) SubmitRecord(ctx context.Context, rec Record) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal %s record: %w", rec.Kind(), err)
	}

	return retry.WithBackoff(ctx, c.retryCfg, c.logger, "submit_"+string(rec.Kind()), func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+recordsPath, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		c.authorize(req)

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = utils.DrainAndClose(resp.Body) }()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return fmt.Errorf("submit record: status %d: %s", resp.StatusCode, msg)
		}
		return nil
	})
}

// SubmitVerification records one successful QR membership verification.
func (c *Client) SubmitVerification(ctx context.Context, rec VerificationRecord) error {
	return c.SubmitRecord(ctx, rec)
}

// SubmitVote implements poll.Recorder for per-voter vote line-items.
func (c *Client) SubmitVote(ctx context.Context, pollID, batchID string, v poll.Voter) error {
	return c.SubmitRecord(ctx, PollVoteRecord{
		RecordType:  RecordTypePollVote,
		PollID:      pollID,
		BatchID:     batchID,
		DiscordID:   v.ID,
		Username:    v.Username,
		Choice:      string(v.Choice),
		VotingPower: v.VotingPower,
		Verified:    v.Verified,
		Email:       v.Email,
		SubmittedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

// SubmitAward implements poll.Recorder for per-voter reward records.
func (c *Client) SubmitAward(ctx context.Context, pollID, batchID string, rec poll.RewardRecord) error {
	return c.SubmitRecord(ctx, FinalAwardRecord{
		RecordType:       RecordTypeFinalAward,
		PollID:           pollID,
		BatchID:          batchID,
		DiscordID:        rec.Voter.ID,
		Username:         rec.Voter.Username,
		Choice:           string(rec.Voter.Choice),
		VotingPower:      rec.Voter.VotingPower,
		Verified:         rec.Voter.Verified,
		XPAwarded:        rec.XPAwarded,
		IsWinner:         rec.IsWinner,
		IsTopContributor: rec.IsTopContributor,
		SubmittedAt:      time.Now().UTC().Format(time.RFC3339),
	})
}

// Ping checks that the API answers at all. Used by the startup self-test and
// the !testapi command.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+membersPath, nil)
	if err != nil {
		return err
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = utils.DrainAndClose(resp.Body) }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("membership api: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = utils.DrainAndClose(resp.Body) }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, msg)
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	return dec.Decode(out)
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
