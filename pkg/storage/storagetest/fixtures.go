// Package storagetest holds fixtures shared by the backend tests.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartchat/smartchat-go/pkg/storage"
)

// SampleDocument returns a document with two users, one of them with history.
func SampleDocument() *storage.Document {
	created := time.Date(2026, 10, 1, 9, 30, 0, 0, time.UTC)
	active := time.Date(2026, 10, 18, 18, 5, 12, 345000000, time.UTC)

	doc := storage.NewDocument()
	doc.Conversations["3f1c2a9b0d"] = &storage.UserProfile{
		UserID:              "3f1c2a9b0d",
		CreatedAt:           storage.NewTimestamp(created),
		LastActiveAt:        storage.NewTimestamp(active),
		IsFirstConversation: false,
		BasicInfo: storage.BasicInfo{
			"nom":        "Marie",
			"age":        25,
			"ville":      "Lyon",
			"profession": "informatique",
		},
		LearningPhase: false,
		TotalMessages: 4,
		SessionCount:  1,
		Messages: []storage.Exchange{
			{
				ExchangeID:  1,
				Timestamp:   storage.NewTimestamp(created),
				UserMessage: storage.MessageRecord{Content: "je m'appelle marie", Timestamp: storage.NewTimestamp(created)},
				AIResponse:  storage.MessageRecord{Content: "Enchantée Marie !", Timestamp: storage.NewTimestamp(created)},
				SessionID:   "1846290345",
			},
			{
				ExchangeID:  2,
				Timestamp:   storage.NewTimestamp(active),
				UserMessage: storage.MessageRecord{Content: "j'habite à lyon", Timestamp: storage.NewTimestamp(active)},
				AIResponse:  storage.MessageRecord{Content: "Lyon est une belle ville <3 & plus", Timestamp: storage.NewTimestamp(active)},
			},
		},
		Preferences:       map[string]interface{}{},
		PersonalityTraits: []string{},
	}
	doc.Conversations["a1b2c3d4e5"] = &storage.UserProfile{
		UserID:              "a1b2c3d4e5",
		CreatedAt:           storage.NewTimestamp(created),
		LastActiveAt:        storage.NewTimestamp(created),
		IsFirstConversation: true,
		BasicInfo:           storage.BasicInfo{},
		LearningPhase:       true,
		Messages:            []storage.Exchange{},
		Preferences:         map[string]interface{}{},
		PersonalityTraits:   []string{},
	}
	doc.Stamp(active)
	return doc
}

// RunRoundTrip checks that a backend reproduces a saved document, and that a
// second save replaces the first one entirely.
func RunRoundTrip(t *testing.T, backend storage.Backend) {
	t.Helper()
	ctx := context.Background()

	want := SampleDocument()
	require.NoError(t, backend.Save(ctx, want))

	got, err := backend.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want.TotalUsers, got.TotalUsers)
	assert.True(t, want.LastUpdated.Time.Equal(got.LastUpdated.Time))
	assert.Equal(t, want.Conversations, got.Conversations)

	delete(want.Conversations, "a1b2c3d4e5")
	want.Stamp(want.LastUpdated.Time.Add(time.Minute))
	require.NoError(t, backend.Save(ctx, want))

	got, err = backend.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TotalUsers)
	assert.Equal(t, want.Conversations, got.Conversations)
}
