// Package storage defines the persisted conversation document and the
// Backend interface implemented by the JSON file and SQL backends.
//
// The document types live here, not in the usermemory package, so that
// backends can encode them without an import cycle.
package storage

import (
	"context"
	"time"
)

// Document is the whole persisted state: every user profile keyed by user id.
//
// JSON layout:
//
//	{
//	  "last_updated": "2026-10-19T10:00:00Z",
//	  "total_users": 1,
//	  "conversations": { "<user id>": { ...UserProfile... } }
//	}
type Document struct {
	// LastUpdated is when the document was last written.
	LastUpdated Timestamp `json:"last_updated"`

	// TotalUsers is the number of profiles, recomputed on every save.
	TotalUsers int `json:"total_users"`

	// Conversations maps user id to profile.
	Conversations map[string]*UserProfile `json:"conversations"`
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{Conversations: make(map[string]*UserProfile)}
}

// UserProfile is the persisted record of one recognized user.
type UserProfile struct {
	// UserID is the derived user id.
	UserID string `json:"user_id"`

	// CreatedAt is when the profile was created.
	CreatedAt Timestamp `json:"created_at"`

	// LastActiveAt is touched by every info update and exchange.
	LastActiveAt Timestamp `json:"last_active"`

	// IsFirstConversation is true until the first exchange is recorded.
	IsFirstConversation bool `json:"is_first_conversation"`

	// BasicInfo holds extracted attributes (nom, profession, age, ville, hobbies).
	BasicInfo BasicInfo `json:"basic_info"`

	// LearningPhase is true until BasicInfo holds at least three keys.
	LearningPhase bool `json:"learning_phase"`

	// TotalMessages counts user and assistant messages.
	TotalMessages int `json:"total_messages"`

	// SessionCount is set to 1 on the first exchange.
	SessionCount int `json:"conversation_sessions"`

	// Messages is the append-only exchange history.
	Messages []Exchange `json:"messages"`

	// Preferences and PersonalityTraits are kept for compatibility with
	// existing documents; nothing in this module writes them.
	Preferences       map[string]interface{} `json:"preferences"`
	PersonalityTraits []string               `json:"personality_traits"`
}

// Exchange is one user message and the assistant reply to it.
type Exchange struct {
	// ExchangeID is 1-based and strictly increasing per user.
	ExchangeID int `json:"exchange_id"`

	// Timestamp is when the exchange was recorded.
	Timestamp Timestamp `json:"timestamp"`

	// UserMessage is what the user wrote.
	UserMessage MessageRecord `json:"user_message"`

	// AIResponse is what the assistant answered.
	AIResponse MessageRecord `json:"ai_response"`

	// SessionID identifies the agent session that recorded the exchange.
	SessionID string `json:"session_id,omitempty"`
}

// MessageRecord is a message text with its timestamp.
type MessageRecord struct {
	Content   string    `json:"content"`
	Timestamp Timestamp `json:"timestamp"`
}

// Backend persists and restores the whole document.
//
// Save always receives the complete state; implementations rewrite everything
// they hold. Load returns an empty document (not an error) when nothing has
// been saved yet.
type Backend interface {
	// Load reads the persisted document.
	Load(ctx context.Context) (*Document, error)

	// Save replaces the persisted document.
	Save(ctx context.Context, doc *Document) error

	// Close releases backend resources.
	Close() error
}

// Clone returns a deep copy of the profile.
func (p *UserProfile) Clone() *UserProfile {
	if p == nil {
		return nil
	}
	cp := *p
	cp.BasicInfo = p.BasicInfo.Clone()
	if p.Messages != nil {
		cp.Messages = make([]Exchange, len(p.Messages))
		copy(cp.Messages, p.Messages)
	}
	if p.Preferences != nil {
		cp.Preferences = make(map[string]interface{}, len(p.Preferences))
		for k, v := range p.Preferences {
			cp.Preferences[k] = v
		}
	}
	if p.PersonalityTraits != nil {
		cp.PersonalityTraits = make([]string, len(p.PersonalityTraits))
		copy(cp.PersonalityTraits, p.PersonalityTraits)
	}
	return &cp
}

// Stamp sets LastUpdated and TotalUsers before a save.
func (d *Document) Stamp(now time.Time) {
	d.LastUpdated = NewTimestamp(now)
	d.TotalUsers = len(d.Conversations)
}
