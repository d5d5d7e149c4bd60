package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"time"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// Dialect holds the SQL differences between the database backends.
type Dialect struct {
	// Name is used in error messages.
	Name string

	// CreateTable is a format string taking the table name.
	CreateTable string

	// Placeholder returns the bind parameter for the n-th argument (1-based).
	Placeholder func(n int) string
}

// QuestionPlaceholder is the "?" style used by SQLite and MySQL.
func QuestionPlaceholder(int) string { return "?" }

// DollarPlaceholder is the "$n" style used by PostgreSQL.
func DollarPlaceholder(n int) string { return fmt.Sprintf("$%d", n) }

// SnapshotTable stores a Document as one row per user:
//
//	user_id    primary key
//	profile    UserProfile encoded as JSON
//	updated_at RFC3339 text of the save that wrote the row
//
// Save rewrites the whole table inside a single transaction.
type SnapshotTable struct {
	db      *sql.DB
	table   string
	dialect Dialect
}

// NewSnapshotTable creates the table if needed.
func NewSnapshotTable(ctx context.Context, db *sql.DB, table string, dialect Dialect) (*SnapshotTable, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("%s: invalid table name %q", dialect.Name, table)
	}
	t := &SnapshotTable{db: db, table: table, dialect: dialect}
	if _, err := db.ExecContext(ctx, fmt.Sprintf(dialect.CreateTable, table)); err != nil {
		return nil, fmt.Errorf("%s: create table: %w", dialect.Name, err)
	}
	return t, nil
}

// Load implements Backend.
func (t *SnapshotTable) Load(ctx context.Context) (*Document, error) {
	query := fmt.Sprintf("SELECT user_id, profile, updated_at FROM %s", t.table)
	rows, err := t.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: query snapshot: %w", t.dialect.Name, err)
	}
	defer func() { _ = rows.Close() }()

	doc := NewDocument()
	var newest time.Time
	for rows.Next() {
		var (
			userID, profileJSON, updatedAt string
		)
		if err := rows.Scan(&userID, &profileJSON, &updatedAt); err != nil {
			return nil, fmt.Errorf("%s: scan snapshot row: %w", t.dialect.Name, err)
		}
		var profile UserProfile
		if err := json.Unmarshal([]byte(profileJSON), &profile); err != nil {
			return nil, fmt.Errorf("%s: decode profile %s: %w", t.dialect.Name, userID, err)
		}
		doc.Conversations[userID] = &profile
		if ts := ParseTimestamp(updatedAt); ts.Valid() && ts.Time.After(newest) {
			newest = ts.Time
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate snapshot: %w", t.dialect.Name, err)
	}

	doc.TotalUsers = len(doc.Conversations)
	doc.LastUpdated = NewTimestamp(newest)
	return doc, nil
}

// Save implements Backend.
func (t *SnapshotTable) Save(ctx context.Context, doc *Document) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", t.dialect.Name, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", t.table)); err != nil {
		return fmt.Errorf("%s: clear snapshot: %w", t.dialect.Name, err)
	}

	insert := fmt.Sprintf("INSERT INTO %s (user_id, profile, updated_at) VALUES (%s, %s, %s)",
		t.table, t.dialect.Placeholder(1), t.dialect.Placeholder(2), t.dialect.Placeholder(3))
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("%s: prepare insert: %w", t.dialect.Name, err)
	}
	defer func() { _ = stmt.Close() }()

	userIDs := make([]string, 0, len(doc.Conversations))
	for id := range doc.Conversations {
		userIDs = append(userIDs, id)
	}
	sort.Strings(userIDs)

	updatedAt := doc.LastUpdated.String()
	for _, id := range userIDs {
		data, err := json.Marshal(doc.Conversations[id])
		if err != nil {
			return fmt.Errorf("%s: encode profile %s: %w", t.dialect.Name, id, err)
		}
		if _, err := stmt.ExecContext(ctx, id, string(data), updatedAt); err != nil {
			return fmt.Errorf("%s: insert profile %s: %w", t.dialect.Name, id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", t.dialect.Name, err)
	}
	return nil
}

// Close closes the database connection.
func (t *SnapshotTable) Close() error {
	if t.db != nil {
		return t.db.Close()
	}
	return nil
}
