package models

import "time"

const VerificationsTableName = "verifications"

// VerificationColumns defines the schema for the verifications table.
// Table: MergeTree ORDER BY (username, verified_at)
var VerificationColumns = []ColumnDef{
	{Name: "discord_id", Type: "String"},
	{Name: "username", Type: "String"},
	{Name: "display_name", Type: "String"},
	{Name: "email", Type: "String"},
	{Name: "membership", Type: "String"},
	{Name: "role_assigned", Type: "String"},
	{Name: "xp_awarded", Type: "Int64"},
	{Name: "verified_at", Type: "DateTime"},
}

// VerificationRow is one successful QR membership verification.
type VerificationRow struct {
	DiscordID    string    `ch:"discord_id" json:"discord_id"`
	Username     string    `ch:"username" json:"username"`
	DisplayName  string    `ch:"display_name" json:"display_name"`
	Email        string    `ch:"email" json:"email"`
	Membership   string    `ch:"membership" json:"membership"`
	RoleAssigned string    `ch:"role_assigned" json:"role_assigned"`
	XPAwarded    int64     `ch:"xp_awarded" json:"xp_awarded"`
	VerifiedAt   time.Time `ch:"verified_at" json:"verified_at"`
}
