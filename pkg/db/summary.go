package db

import (
	"context"
	"fmt"
	"time"

	"github.com/smallstreet/megabot/pkg/db/models"
)

// XPSummary is the computed XP standing of one user across archived records.
type XPSummary struct {
	Username       string    `json:"username"`
	PollRewards    uint64    `json:"poll_rewards"`
	PollXP         int64     `json:"poll_xp"`
	WinningVotes   uint64    `json:"winning_votes"`
	Verifications  uint64    `json:"verifications"`
	VerificationXP int64     `json:"verification_xp"`
	TotalXP        int64     `json:"total_xp"`
	LastActivity   time.Time `json:"last_activity"`
}

// SummarizeXP aggregates the archived poll rewards and verification awards
// for a username.
func (db *DB) SummarizeXP(ctx context.Context, username string) (*XPSummary, error) {
	s := &XPSummary{Username: username}

	rewardsQuery := fmt.Sprintf(`
		SELECT count(), sum(xp_awarded), countIf(is_winner = 1), max(submitted_at)
		FROM %s
		WHERE username = ?
	`, db.table(models.RewardsTableName))

	var lastReward time.Time
	if err := db.Db.QueryRow(ctx, rewardsQuery, username).Scan(
		&s.PollRewards, &s.PollXP, &s.WinningVotes, &lastReward,
	); err != nil {
		return nil, err
	}

	verifyQuery := fmt.Sprintf(`
		SELECT count(), sum(xp_awarded), max(verified_at)
		FROM %s
		WHERE username = ?
	`, db.table(models.VerificationsTableName))

	var lastVerify time.Time
	if err := db.Db.QueryRow(ctx, verifyQuery, username).Scan(
		&s.Verifications, &s.VerificationXP, &lastVerify,
	); err != nil {
		return nil, err
	}

	s.TotalXP = s.PollXP + s.VerificationXP
	s.LastActivity = lastReward
	if lastVerify.After(lastReward) {
		s.LastActivity = lastVerify
	}
	return s, nil
}
