// Package db is the bot's append-only ClickHouse archive: poll lifecycle
// rows, per-voter reward records and verification events. It backs the
// operational read endpoints; the external membership store stays the system
// of record.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/smallstreet/megabot/pkg/retry"
	"github.com/smallstreet/megabot/pkg/utils"
	"go.uber.org/zap"
)

// Client holds the ClickHouse connection.
type Client struct {
	Logger *zap.Logger
	Db     driver.Conn
}

// connect opens the ClickHouse connection described by the environment.
// Environment variables:
//   - CLICKHOUSE_HOST: host:port (default: "localhost:9000")
//   - CLICKHOUSE_USER / CLICKHOUSE_PASSWORD: credentials
func connect(ctx context.Context, logger *zap.Logger, dbName string) (Client, error) {
	client := Client{Logger: logger}

	options := &clickhouse.Options{
		Addr: []string{utils.Env("CLICKHOUSE_HOST", "localhost:9000")},
		Auth: clickhouse.Auth{
			// Connect to default first; InitializeDB creates the target.
			Database: "default",
			Username: utils.Env("CLICKHOUSE_USER", "default"),
			Password: utils.Env("CLICKHOUSE_PASSWORD", ""),
		},
		DialTimeout:  10 * time.Second,
		MaxOpenConns: utils.EnvInt("CLICKHOUSE_MAX_OPEN_CONNS", 10),
		MaxIdleConns: utils.EnvInt("CLICKHOUSE_MAX_IDLE_CONNS", 5),
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	}

	err := retry.WithBackoff(ctx, retry.DefaultConfig(), logger, "clickhouse_connection", func() error {
		conn, err := clickhouse.Open(options)
		if err != nil {
			return fmt.Errorf("open clickhouse connection: %w", err)
		}
		client.Db = conn
		if err := client.Db.Ping(ctx); err != nil {
			return fmt.Errorf("ping clickhouse: %w", err)
		}
		return nil
	})
	if err != nil {
		return client, err
	}

	logger.Info("ClickHouse connection ready", zap.String("database", dbName))
	return client, nil
}

// CreateDbIfNotExists creates the target database.
func (c *Client) CreateDbIfNotExists(ctx context.Context, name string) error {
	return c.Db.Exec(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", name))
}
