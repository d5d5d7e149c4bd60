package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartchat/smartchat-go/pkg/storage"
	sqliteStore "github.com/smartchat/smartchat-go/pkg/storage/sqlite"
	"github.com/smartchat/smartchat-go/pkg/storage/storagetest"
)

func setupSQLiteTest(t *testing.T) *sqliteStore.Client {
	config := &sqliteStore.Config{
		DBPath: filepath.Join(t.TempDir(), "smartchat.db"),
		Table:  "conversations",
	}

	client, err := sqliteStore.NewClient(context.Background(), config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestSQLiteClient_LoadEmpty(t *testing.T) {
	client := setupSQLiteTest(t)

	doc, err := client.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, doc.Conversations)
	assert.False(t, doc.LastUpdated.Valid())
}

func TestSQLiteClient_RoundTrip(t *testing.T) {
	storagetest.RunRoundTrip(t, setupSQLiteTest(t))
}

func TestSQLiteClient_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "smartchat.db")

	first, err := sqliteStore.NewClient(ctx, &sqliteStore.Config{DBPath: path, Table: "conversations"})
	require.NoError(t, err)
	require.NoError(t, first.Save(ctx, storagetest.SampleDocument()))
	require.NoError(t, first.Close())

	second, err := sqliteStore.NewClient(ctx, &sqliteStore.Config{DBPath: path, Table: "conversations"})
	require.NoError(t, err)
	defer func() { _ = second.Close() }()

	doc, err := second.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, doc.TotalUsers)
}

func TestSQLiteClient_RejectsBadTableName(t *testing.T) {
	_, err := sqliteStore.NewClient(context.Background(), &sqliteStore.Config{
		DBPath: filepath.Join(t.TempDir(), "smartchat.db"),
		Table:  "conversations; DROP TABLE x",
	})
	assert.Error(t, err)
}

var _ storage.Backend = (*sqliteStore.Client)(nil)
