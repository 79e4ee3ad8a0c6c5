package db

import (
	"context"
	"fmt"

	"github.com/smallstreet/megabot/pkg/db/models"
)

// InsertVerification archives one successful QR membership verification.
func (db *DB) InsertVerification(ctx context.Context, row *models.VerificationRow) error {
	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		db.table(models.VerificationsTableName),
		models.ColumnNames(models.VerificationColumns),
		models.Placeholders(models.VerificationColumns),
	)

	return db.Db.Exec(ctx, query,
		row.DiscordID,
		row.Username,
		row.DisplayName,
		row.Email,
		row.Membership,
		row.RoleAssigned,
		row.XPAwarded,
		row.VerifiedAt,
	)
}
