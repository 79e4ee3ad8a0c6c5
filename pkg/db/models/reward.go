package models

import "time"

const RewardsTableName = "poll_rewards"

// RewardColumns defines the schema for the poll_rewards table.
// Table: MergeTree ORDER BY (poll_id, voter_id, choice). Append-only;
// every resolution writes fresh rows under a new batch_id.
var RewardColumns = []ColumnDef{
	{Name: "poll_id", Type: "String"},
	{Name: "batch_id", Type: "String"},
	{Name: "voter_id", Type: "String"},
	{Name: "username", Type: "String"},
	{Name: "display_name", Type: "String"},
	{Name: "choice", Type: "String"},
	{Name: "voting_power", Type: "Int64"},
	{Name: "xp_level", Type: "String"}, // decimal text, magnitudes exceed any native integer
	{Name: "verified", Type: "UInt8"},
	{Name: "fallback", Type: "UInt8"},
	{Name: "xp_awarded", Type: "Int64"},
	{Name: "is_winner", Type: "UInt8"},
	{Name: "is_top_contributor", Type: "UInt8"},
	{Name: "submitted_at", Type: "DateTime"},
}

// RewardRow is one voter's persisted award for a resolved poll.
type RewardRow struct {
	PollID           string    `ch:"poll_id" json:"poll_id"`
	BatchID          string    `ch:"batch_id" json:"batch_id"`
	VoterID          string    `ch:"voter_id" json:"voter_id"`
	Username         string    `ch:"username" json:"username"`
	DisplayName      string    `ch:"display_name" json:"display_name"`
	Choice           string    `ch:"choice" json:"choice"`
	VotingPower      int64     `ch:"voting_power" json:"voting_power"`
	XPLevel          string    `ch:"xp_level" json:"xp_level"`
	Verified         uint8     `ch:"verified" json:"verified"`
	Fallback         uint8     `ch:"fallback" json:"fallback"`
	XPAwarded        int64     `ch:"xp_awarded" json:"xp_awarded"`
	IsWinner         uint8     `ch:"is_winner" json:"is_winner"`
	IsTopContributor uint8     `ch:"is_top_contributor" json:"is_top_contributor"`
	SubmittedAt      time.Time `ch:"submitted_at" json:"submitted_at"`
}
