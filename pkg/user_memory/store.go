// Package usermemory keeps one profile per recognized user and mirrors the
// whole set to a storage.Backend after every change.
//
// The Store is loaded fully at construction and rewritten fully on every
// mutation; a call that changes state returns only after the backend has been
// asked to persist it. The in-memory copy is authoritative for the process
// lifetime, so a failed save loses durability but never data already seen by
// callers.
//
// Limitation: the Store serializes callers within one process only. Two
// processes sharing a backend race, and the last writer wins.
package usermemory

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"

	"github.com/smartchat/smartchat-go/pkg/core"
	"github.com/smartchat/smartchat-go/pkg/llm"
	"github.com/smartchat/smartchat-go/pkg/storage"
)

// LearningThreshold is the number of basic-info keys that ends the learning phase.
const LearningThreshold = 3

// LoadStatus describes how the initial load went.
type LoadStatus int

const (
	// LoadEmpty means the backend held nothing yet.
	LoadEmpty LoadStatus = iota

	// LoadRestored means profiles were read from the backend.
	LoadRestored

	// LoadRecovered means the backend could not be read and the store
	// started empty instead.
	LoadRecovered
)

// String returns a short label for logs.
func (s LoadStatus) String() string {
	switch s {
	case LoadEmpty:
		return "empty"
	case LoadRestored:
		return "restored"
	case LoadRecovered:
		return "recovered"
	default:
		return fmt.Sprintf("LoadStatus(%d)", int(s))
	}
}

// Store is the conversation store. It is safe for concurrent use.
type Store struct {
	backend storage.Backend
	logger  *log.Logger
	clock   Clock

	mu         sync.Mutex
	profiles   map[string]*storage.UserProfile
	loadStatus LoadStatus
	loadErr    error
}

// NewStore loads the backend and returns a ready store.
//
// A backend that cannot be read is not an error: the store logs a warning,
// starts empty, and reports LoadRecovered from LoadStatus.
func NewStore(ctx context.Context, backend storage.Backend, opts ...StoreOption) (*Store, error) {
	if backend == nil {
		return nil, core.NewAgentError("NewStore", fmt.Errorf("%w: nil backend", core.ErrInvalidInput))
	}

	options := &StoreOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if options.Logger == nil {
		options.Logger = core.NopLogger()
	}
	if options.Clock == nil {
		options.Clock = realClock{}
	}

	s := &Store{
		backend:  backend,
		logger:   options.Logger,
		clock:    options.Clock,
		profiles: make(map[string]*storage.UserProfile),
	}
	s.load(ctx)
	return s, nil
}

func (s *Store) load(ctx context.Context) {
	doc, err := s.backend.Load(ctx)
	if err != nil {
		s.loadStatus = LoadRecovered
		s.loadErr = err
		s.logger.Warn("could not load conversations, starting empty", "err", err)
		return
	}

	for id, profile := range doc.Conversations {
		if profile == nil {
			continue
		}
		normalize(id, profile)
		s.profiles[id] = profile
	}

	if len(s.profiles) == 0 {
		s.loadStatus = LoadEmpty
	} else {
		s.loadStatus = LoadRestored
	}
	s.logger.Info("conversations loaded", "users", len(s.profiles), "status", s.loadStatus)
}

// normalize fills collections missing from older documents so that later
// mutations never hit a nil map or slice.
func normalize(id string, p *storage.UserProfile) {
	if p.UserID == "" {
		p.UserID = id
	}
	if p.BasicInfo == nil {
		p.BasicInfo = storage.BasicInfo{}
	}
	if p.Messages == nil {
		p.Messages = []storage.Exchange{}
	}
	if p.Preferences == nil {
		p.Preferences = map[string]interface{}{}
	}
	if p.PersonalityTraits == nil {
		p.PersonalityTraits = []string{}
	}
}

// LoadStatus reports how the initial load went, with the load error for
// LoadRecovered.
func (s *Store) LoadStatus() (LoadStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadStatus, s.loadErr
}

// Exists reports whether a profile exists for userID.
func (s *Store) Exists(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.profiles[userID]
	return ok
}

// Len returns the number of profiles.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.profiles)
}

// GetBasicInfo returns a copy of the user's basic info, empty when unknown.
func (s *Store) GetBasicInfo(userID string) map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return map[string]interface{}{}
	}
	return map[string]interface{}(p.BasicInfo.Clone())
}

// GetProfile returns a deep copy of the user's profile.
func (s *Store) GetProfile(userID string) (*storage.UserProfile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// CreateProfile creates and persists a fresh profile. An existing profile is
// returned unchanged and nothing is written.
//
// The returned profile is a copy. A save failure is returned alongside it;
// the profile exists in memory either way.
func (s *Store) CreateProfile(ctx context.Context, userID string) (*storage.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.profiles[userID]; ok {
		return p.Clone(), nil
	}
	p := s.createLocked(userID)
	s.logger.Debug("profile created", "user", userID)
	return p.Clone(), s.persistLocked(ctx, "CreateProfile")
}

func (s *Store) createLocked(userID string) *storage.UserProfile {
	now := storage.NewTimestamp(s.clock.Now())
	p := &storage.UserProfile{
		UserID:              userID,
		CreatedAt:           now,
		LastActiveAt:        now,
		IsFirstConversation: true,
		BasicInfo:           storage.BasicInfo{},
		LearningPhase:       true,
		Messages:            []storage.Exchange{},
		Preferences:         map[string]interface{}{},
		PersonalityTraits:   []string{},
	}
	s.profiles[userID] = p
	return p
}

func (s *Store) getOrCreateLocked(userID string) *storage.UserProfile {
	if p, ok := s.profiles[userID]; ok {
		return p
	}
	return s.createLocked(userID)
}

// UpdateBasicInfo merges info into the user's basic info, creating the
// profile first when needed, and persists.
func (s *Store) UpdateBasicInfo(ctx context.Context, userID string, info map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.getOrCreateLocked(userID)
	s.mergeLocked(p, info)
	return s.persistLocked(ctx, "UpdateBasicInfo")
}

// mergeLocked overwrites same keys, touches LastActiveAt and ends the
// learning phase once enough keys are known. It never re-enables learning.
func (s *Store) mergeLocked(p *storage.UserProfile, info map[string]interface{}) {
	p.BasicInfo = lo.Assign(p.BasicInfo, storage.BasicInfo(info))
	p.LastActiveAt = storage.NewTimestamp(s.clock.Now())
	if p.LearningPhase && len(p.BasicInfo) >= LearningThreshold {
		p.LearningPhase = false
		s.logger.Info("learning phase complete", "user", p.UserID)
	}
}

// AppendExchange records one user message and its reply, creating the
// profile when needed. Non-empty extracted info is merged as by
// UpdateBasicInfo. The document is persisted once.
func (s *Store) AppendExchange(ctx context.Context, userID, userMessage, aiResponse string, extracted map[string]interface{}, opts ...ExchangeOption) error {
	options := &ExchangeOptions{}
	for _, opt := range opts {
		opt(options)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.getOrCreateLocked(userID)
	now := storage.NewTimestamp(s.clock.Now())

	p.TotalMessages += 2
	p.LastActiveAt = now
	if p.IsFirstConversation {
		p.IsFirstConversation = false
		p.SessionCount = 1
	}

	nextID := 1
	if n := len(p.Messages); n > 0 {
		nextID = p.Messages[n-1].ExchangeID + 1
	}
	p.Messages = append(p.Messages, storage.Exchange{
		ExchangeID:  nextID,
		Timestamp:   now,
		UserMessage: storage.MessageRecord{Content: userMessage, Timestamp: now},
		AIResponse:  storage.MessageRecord{Content: aiResponse, Timestamp: now},
		SessionID:   options.SessionID,
	})

	if len(extracted) > 0 {
		s.mergeLocked(p, extracted)
	}
	return s.persistLocked(ctx, "AppendExchange")
}

// DeleteProfile removes the user's profile and persists. It returns
// core.ErrUserNotFound when no profile exists.
func (s *Store) DeleteProfile(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[userID]; !ok {
		return core.NewAgentError("DeleteProfile", fmt.Errorf("%w: %s", core.ErrUserNotFound, userID))
	}
	delete(s.profiles, userID)
	s.logger.Info("profile deleted", "user", userID)
	return s.persistLocked(ctx, "DeleteProfile")
}

// GetRecentContext returns the last maxExchanges exchanges as alternating
// user and assistant messages, oldest first. maxExchanges <= 0 selects
// core.DefaultContextExchanges.
func (s *Store) GetRecentContext(userID string, maxExchanges int) []llm.Message {
	if maxExchanges <= 0 {
		maxExchanges = core.DefaultContextExchanges
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[userID]
	if !ok {
		return []llm.Message{}
	}

	recent := lo.Subset(p.Messages, -maxExchanges, uint(maxExchanges))
	return lo.FlatMap(recent, func(ex storage.Exchange, _ int) []llm.Message {
		return []llm.Message{
			{Role: llm.RoleUser, Content: ex.UserMessage.Content},
			{Role: llm.RoleAssistant, Content: ex.AIResponse.Content},
		}
	})
}

// persistLocked writes the whole state. On failure the state is kept, a
// warning is logged, and the error is returned wrapped in
// core.ErrStorageOperation.
func (s *Store) persistLocked(ctx context.Context, op string) error {
	doc := &storage.Document{Conversations: s.profiles}
	doc.Stamp(s.clock.Now())

	if err := s.backend.Save(ctx, doc); err != nil {
		s.logger.Warn("could not save conversations, changes are kept in memory only", "op", op, "err", err)
		return core.NewAgentError(op, fmt.Errorf("%w: %w", core.ErrStorageOperation, err))
	}
	return nil
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}
