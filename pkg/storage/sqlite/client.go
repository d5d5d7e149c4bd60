// Package sqlite persists the conversation document in a SQLite database.
//
// Each user profile is one row holding its JSON encoding. SQLite suits a
// single-machine deployment that wants transactional saves without running a
// database server.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/smartchat/smartchat-go/pkg/storage"
)

const createTable = `
	CREATE TABLE IF NOT EXISTS %s (
		user_id TEXT PRIMARY KEY,
		profile TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)
`

// Client implements storage.Backend using SQLite.
type Client struct {
	*storage.SnapshotTable
}

// Config contains configuration for creating a SQLite backend.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// Table is the name of the table storing profiles.
	Table string
}

// NewClient opens the database and creates the table if needed.
func NewClient(ctx context.Context, cfg *Config) (*Client, error) {
	dbDir := filepath.Dir(cfg.DBPath)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("NewSQLiteClient: failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_foreign_keys=1&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}
	// A single connection keeps the whole-table rewrite from contending with itself.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}

	table, err := storage.NewSnapshotTable(ctx, db, cfg.Table, storage.Dialect{
		Name:        "sqlite",
		CreateTable: createTable,
		Placeholder: storage.QuestionPlaceholder,
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Client{SnapshotTable: table}, nil
}
