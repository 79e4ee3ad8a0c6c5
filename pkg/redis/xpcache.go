package redis

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/smallstreet/megabot/pkg/poll"
)

// XPCache pins each voter's resolved XP level to the poll it was first
// resolved for, so repeated resolution passes over an unchanged reaction set
// stay deterministic even when the random fallback path was taken.
type XPCache struct {
	c   *Client
	ttl time.Duration
}

// NewXPCache returns a cache whose entries outlive the 7-day poll window by
// a wide margin.
func NewXPCache(c *Client) *XPCache {
	return &XPCache{c: c, ttl: 30 * 24 * time.Hour}
}

func xpKey(pollID, voterID string) string {
	return fmt.Sprintf("megabot:xp:%s:%s", pollID, voterID)
}

// Entries are stored as "<verified>|<fallback>|<email>|<xp>"; XP is the
// big.Float decimal text so no precision is lost on magnitudes like 1e168.
func encodeEntry(e *poll.CachedXP) string {
	v, f := "0", "0"
	if e.Verified {
		v = "1"
	}
	if e.Fallback {
		f = "1"
	}
	return strings.Join([]string{v, f, e.Email, e.XP.Text('g', -1)}, "|")
}

func decodeEntry(s string) (*poll.CachedXP, error) {
	parts := strings.SplitN(s, "|", 4)
	if len(parts) != 4 {
		return nil, fmt.Errorf("malformed xp cache entry %q", s)
	}
	x, _, err := big.ParseFloat(parts[3], 10, 256, big.ToNearestEven)
	if err != nil {
		return nil, fmt.Errorf("malformed xp level %q: %w", parts[3], err)
	}
	return &poll.CachedXP{
		Verified: parts[0] == "1",
		Fallback: parts[1] == "1",
		Email:    parts[2],
		XP:       x,
	}, nil
}

// Lookup returns the cached resolution for (pollID, voterID), or nil when
// none exists.
func (x *XPCache) Lookup(ctx context.Context, pollID, voterID string) (*poll.CachedXP, error) {
	raw, err := x.c.client.Get(ctx, xpKey(pollID, voterID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeEntry(raw)
}

// Store records the resolution for (pollID, voterID).
func (x *XPCache) Store(ctx context.Context, pollID, voterID string, entry *poll.CachedXP) error {
	return x.c.client.Set(ctx, xpKey(pollID, voterID), encodeEntry(entry), x.ttl).Err()
}
