// Package oceanbase persists the conversation document in OceanBase through
// its MySQL-compatible protocol. Any MySQL server works as well.
package oceanbase

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/smartchat/smartchat-go/pkg/storage"
)

const createTable = `
	CREATE TABLE IF NOT EXISTS %s (
		user_id VARCHAR(64) PRIMARY KEY,
		profile LONGTEXT NOT NULL,
		updated_at VARCHAR(64) NOT NULL
	) DEFAULT CHARSET=utf8mb4
`

// Client implements storage.Backend using OceanBase.
type Client struct {
	*storage.SnapshotTable
}

// Config contains OceanBase configuration.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	Table    string
}

// NewClient creates a new OceanBase backend.
func NewClient(ctx context.Context, cfg *Config) (*Client, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("NewOceanBaseClient: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("NewOceanBaseClient: %w", err)
	}

	table, err := storage.NewSnapshotTable(ctx, db, cfg.Table, storage.Dialect{
		Name:        "oceanbase",
		CreateTable: createTable,
		Placeholder: storage.QuestionPlaceholder,
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Client{SnapshotTable: table}, nil
}
