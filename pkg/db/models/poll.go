package models

import "time"

const PollsTableName = "polls"

// PollColumns defines the schema for the polls table.
// Table: ReplacingMergeTree(updated_at) ORDER BY (poll_id)
var PollColumns = []ColumnDef{
	{Name: "poll_id", Type: "String"},
	{Name: "channel_id", Type: "String"},
	{Name: "created_at", Type: "DateTime"},
	{Name: "duration_hours", Type: "UInt32"},
	{Name: "state", Type: "String"},
	{Name: "winner", Type: "String"},
	{Name: "total_voters", Type: "UInt32"},
	{Name: "resolved_at", Type: "DateTime"},
	{Name: "updated_at", Type: "DateTime"},
}

// PollRow is one version of a poll's lifecycle record. ReplacingMergeTree
// keeps the latest version per poll_id by updated_at.
type PollRow struct {
	PollID        string    `ch:"poll_id" json:"poll_id"`
	ChannelID     string    `ch:"channel_id" json:"channel_id"`
	CreatedAt     time.Time `ch:"created_at" json:"created_at"`
	DurationHours uint32    `ch:"duration_hours" json:"duration_hours"`
	State         string    `ch:"state" json:"state"`
	Winner        string    `ch:"winner" json:"winner,omitempty"`
	TotalVoters   uint32    `ch:"total_voters" json:"total_voters"`
	ResolvedAt    time.Time `ch:"resolved_at" json:"resolved_at,omitempty"`
	UpdatedAt     time.Time `ch:"updated_at" json:"updated_at"`
}
