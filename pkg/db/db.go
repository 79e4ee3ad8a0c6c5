package db

import (
	"context"
	"fmt"

	"github.com/smallstreet/megabot/pkg/db/models"
	"github.com/smallstreet/megabot/pkg/utils"
	"go.uber.org/zap"
)

// DB is the bot archive: polls, rewards and verifications.
type DB struct {
	Client
	Name string
}

// New connects and ensures the database and tables exist.
// Environment variables:
//   - CLICKHOUSE_DB: database name (default: "megabot")
func New(ctx context.Context, logger *zap.Logger) (*DB, error) {
	name := utils.Env("CLICKHOUSE_DB", "megabot")

	client, err := connect(ctx, logger.With(zap.String("component", "archive")), name)
	if err != nil {
		return nil, err
	}

	db := &DB{Client: client, Name: name}
	if err := db.InitializeDB(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// Close terminates the underlying ClickHouse connection.
func (db *DB) Close() error {
	return db.Db.Close()
}

// Health checks the ClickHouse connection.
func (db *DB) Health(ctx context.Context) error {
	return db.Db.Ping(ctx)
}

// table returns the fully qualified table name; the connection stays on the
// default database.
func (db *DB) table(name string) string {
	return db.Name + "." + name
}

// InitializeDB ensures the archive database and its tables exist.
func (db *DB) InitializeDB(ctx context.Context) error {
	db.Logger.Info("Initializing archive database", zap.String("database", db.Name))

	if err := db.CreateDbIfNotExists(ctx, db.Name); err != nil {
		return fmt.Errorf("create database %s: %w", db.Name, err)
	}

	if err := db.initPolls(ctx); err != nil {
		return err
	}
	if err := db.initRewards(ctx); err != nil {
		return err
	}
	if err := db.initVerifications(ctx); err != nil {
		return err
	}

	return nil
}

// initPolls creates the poll lifecycle table.
// Table: ReplacingMergeTree(updated_at) ORDER BY (poll_id)
func (db *DB) initPolls(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			%s
		) ENGINE = ReplacingMergeTree(updated_at)
		ORDER BY (poll_id)
	`, db.table(models.PollsTableName), models.ColumnsToSchemaSQL(models.PollColumns))
	return db.Db.Exec(ctx, query)
}

// initRewards creates the append-only reward record table.
func (db *DB) initRewards(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			%s
		) ENGINE = MergeTree
		ORDER BY (poll_id, voter_id, choice)
	`, db.table(models.RewardsTableName), models.ColumnsToSchemaSQL(models.RewardColumns))
	return db.Db.Exec(ctx, query)
}

// initVerifications creates the verification event table.
func (db *DB) initVerifications(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			%s
		) ENGINE = MergeTree
		ORDER BY (username, verified_at)
	`, db.table(models.VerificationsTableName), models.ColumnsToSchemaSQL(models.VerificationColumns))
	return db.Db.Exec(ctx, query)
}
