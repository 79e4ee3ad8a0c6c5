package redis

import (
	"context"
	"time"
)

// DefaultLockTTL bounds how long a create-or-resolve pass may hold a poll
// lock. The key expires after this even if the holder crashed, so a stuck
// handler cannot deadlock the poll permanently.
const DefaultLockTTL = 30 * time.Second

// PollLocks implements per-poll mutual exclusion on top of Redis SET NX with
// an expiry.
type PollLocks struct {
	c   *Client
	ttl time.Duration
}

// NewPollLocks returns a lock set with the default 30s forced-release bound.
func NewPollLocks(c *Client) *PollLocks {
	return &PollLocks{c: c, ttl: DefaultLockTTL}
}

// Acquire attempts to take the lock for key. Returns false when another
// holder has it.
func (l *PollLocks) Acquire(ctx context.Context, key string) (bool, error) {
	return l.c.client.SetNX(ctx, "megabot:lock:"+key, 1, l.ttl).Result()
}

// Release drops the lock for key.
func (l *PollLocks) Release(ctx context.Context, key string) error {
	return l.c.client.Del(ctx, "megabot:lock:"+key).Err()
}
