package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/smallstreet/megabot/pkg/db/models"
	"github.com/smallstreet/megabot/pkg/poll"
)

// SavePoll records a new poll. Implements part of poll.Archive.
func (db *DB) SavePoll(ctx context.Context, p *poll.Poll) error {
	return db.insertPollRow(ctx, &models.PollRow{
		PollID:        p.ID,
		ChannelID:     p.ChannelID,
		CreatedAt:     p.CreatedAt,
		DurationHours: uint32(p.Duration / time.Hour),
		State:         string(p.State),
	})
}

// GetPoll returns the latest lifecycle row for a poll, or
// poll.ErrPollNotFound.
func (db *DB) GetPoll(ctx context.Context, pollID string) (*poll.Poll, error) {
	row, err := db.getPollRow(ctx, pollID)
	if err != nil {
		return nil, err
	}
	return &poll.Poll{
		ID:        row.PollID,
		ChannelID: row.ChannelID,
		CreatedAt: row.CreatedAt,
		Duration:  time.Duration(row.DurationHours) * time.Hour,
		State:     poll.State(row.State),
	}, nil
}

// GetPollRow returns the raw archive row, winner and voter count included.
func (db *DB) GetPollRow(ctx context.Context, pollID string) (*models.PollRow, error) {
	return db.getPollRow(ctx, pollID)
}

// UpdateState writes a new lifecycle version for the poll.
// ReplacingMergeTree keeps the latest version by updated_at.
func (db *DB) UpdateState(ctx context.Context, pollID string, st poll.State) error {
	row, err := db.getPollRow(ctx, pollID)
	if err != nil {
		return err
	}
	row.State = string(st)
	return db.insertPollRow(ctx, row)
}

// MarkResolved transitions the poll to its terminal state and records the
// outcome.
func (db *DB) MarkResolved(ctx context.Context, pollID string, winner poll.Choice, totalVoters int) error {
	row, err := db.getPollRow(ctx, pollID)
	if err != nil {
		return err
	}
	row.State = string(poll.StateResolved)
	row.Winner = string(winner)
	row.TotalVoters = uint32(totalVoters)
	row.ResolvedAt = time.Now().UTC()
	return db.insertPollRow(ctx, row)
}

// DueOpenPolls lists open polls whose voting window has elapsed as of now.
func (db *DB) DueOpenPolls(ctx context.Context, now time.Time) ([]poll.Poll, error) {
	query := fmt.Sprintf(`
		SELECT poll_id, channel_id, created_at, duration_hours, state
		FROM %s FINAL
		WHERE state = ? AND addHours(created_at, duration_hours) <= ?
		ORDER BY created_at
	`, db.table(models.PollsTableName))

	rows, err := db.Db.Query(ctx, query, string(poll.StateOpen), now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []poll.Poll
	for rows.Next() {
		var (
			id, channelID, state string
			createdAt            time.Time
			durationHours        uint32
		)
		if err := rows.Scan(&id, &channelID, &createdAt, &durationHours, &state); err != nil {
			return nil, err
		}
		out = append(out, poll.Poll{
			ID:        id,
			ChannelID: channelID,
			CreatedAt: createdAt,
			Duration:  time.Duration(durationHours) * time.Hour,
			State:     poll.State(state),
		})
	}
	return out, rows.Err()
}

func (db *DB) getPollRow(ctx context.Context, pollID string) (*models.PollRow, error) {
	query := fmt.Sprintf(`
		SELECT poll_id, channel_id, created_at, duration_hours, state,
		       winner, total_voters, resolved_at, updated_at
		FROM %s FINAL
		WHERE poll_id = ?
		LIMIT 1
	`, db.table(models.PollsTableName))

	var row models.PollRow
	err := db.Db.QueryRow(ctx, query, pollID).Scan(
		&row.PollID,
		&row.ChannelID,
		&row.CreatedAt,
		&row.DurationHours,
		&row.State,
		&row.Winner,
		&row.TotalVoters,
		&row.ResolvedAt,
		&row.UpdatedAt,
	)
	if err != nil {
		// clickhouse-go surfaces an empty result as sql.ErrNoRows.
		if errors.Is(err, sql.ErrNoRows) {
			return nil, poll.ErrPollNotFound
		}
		return nil, err
	}
	return &row, nil
}

func (db *DB) insertPollRow(ctx context.Context, row *models.PollRow) error {
	row.UpdatedAt = time.Now().UTC()

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		db.table(models.PollsTableName),
		models.ColumnNames(models.PollColumns),
		models.Placeholders(models.PollColumns),
	)

	return db.Db.Exec(ctx, query,
		row.PollID,
		row.ChannelID,
		row.CreatedAt,
		row.DurationHours,
		row.State,
		row.Winner,
		row.TotalVoters,
		row.ResolvedAt,
		row.UpdatedAt,
	)
}
