// Package postgres persists the conversation document in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/smartchat/smartchat-go/pkg/storage"
)

const createTable = `
	CREATE TABLE IF NOT EXISTS %s (
		user_id VARCHAR(64) PRIMARY KEY,
		profile TEXT NOT NULL,
		updated_at VARCHAR(64) NOT NULL
	)
`

// Client implements storage.Backend using PostgreSQL.
type Client struct {
	*storage.SnapshotTable
}

// Config contains PostgreSQL configuration.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	Table    string
	SSLMode  string
}

// NewClient creates a new PostgreSQL backend.
func NewClient(ctx context.Context, cfg *Config) (*Client, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
	}

	table, err := storage.NewSnapshotTable(ctx, db, cfg.Table, storage.Dialect{
		Name:        "postgres",
		CreateTable: createTable,
		Placeholder: storage.DollarPlaceholder,
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Client{SnapshotTable: table}, nil
}
