package db

import (
	"context"
	"fmt"
	"time"

	"github.com/smallstreet/megabot/pkg/db/models"
	"github.com/smallstreet/megabot/pkg/poll"
	"github.com/smallstreet/megabot/pkg/utils"
)

// SaveReward archives one voter's award record. Implements part of
// poll.Archive.
func (db *DB) SaveReward(ctx context.Context, pollID, batchID string, rec poll.RewardRecord) error {
	xpLevel := ""
	if rec.Voter.XPLevel != nil {
		xpLevel = rec.Voter.XPLevel.Text('g', -1)
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		db.table(models.RewardsTableName),
		models.ColumnNames(models.RewardColumns),
		models.Placeholders(models.RewardColumns),
	)

	return db.Db.Exec(ctx, query,
		pollID,
		batchID,
		rec.Voter.ID,
		rec.Voter.Username,
		rec.Voter.DisplayName,
		string(rec.Voter.Choice),
		rec.Voter.VotingPower,
		xpLevel,
		utils.BoolToUInt8(rec.Voter.Verified),
		utils.BoolToUInt8(rec.Voter.Fallback),
		rec.XPAwarded,
		utils.BoolToUInt8(rec.IsWinner),
		utils.BoolToUInt8(rec.IsTopContributor),
		time.Now().UTC(),
	)
}

// PollRewards returns every archived reward row for a poll.
func (db *DB) PollRewards(ctx context.Context, pollID string) ([]models.RewardRow, error) {
	query := fmt.Sprintf(`
		SELECT poll_id, batch_id, voter_id, username, display_name, choice,
		       voting_power, xp_level, verified, fallback, xp_awarded,
		       is_winner, is_top_contributor, submitted_at
		FROM %s
		WHERE poll_id = ?
		ORDER BY submitted_at
	`, db.table(models.RewardsTableName))

	rows, err := db.Db.Query(ctx, query, pollID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.RewardRow
	for rows.Next() {
		var r models.RewardRow
		if err := rows.Scan(
			&r.PollID, &r.BatchID, &r.VoterID, &r.Username, &r.DisplayName,
			&r.Choice, &r.VotingPower, &r.XPLevel, &r.Verified, &r.Fallback,
			&r.XPAwarded, &r.IsWinner, &r.IsTopContributor, &r.SubmittedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
