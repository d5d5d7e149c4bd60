// Package agent ties the extractor, the conversation store and a chat
// provider together into a conversational assistant that recognizes
// returning users.
//
// Example usage:
//
//	cfg, _ := core.LoadConfigFromEnv()
//	a, err := agent.NewAgent(ctx, cfg, core.NewLogger(cfg.Log))
//	if err != nil {
//	    log.Fatal(err) // missing endpoint, key or model
//	}
//	defer a.Close()
//
//	fmt.Println(a.Greeting("marie@email.com"))
//	fmt.Println(a.Chat(ctx, "marie@email.com", "Je m'appelle Marie"))
package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/charmbracelet/log"

	"github.com/smartchat/smartchat-go/pkg/core"
	"github.com/smartchat/smartchat-go/pkg/extractor"
	"github.com/smartchat/smartchat-go/pkg/llm"
	usermemory "github.com/smartchat/smartchat-go/pkg/user_memory"
)

// Apology is returned by Chat whenever the chat provider fails.
const Apology = "Désolé, je rencontre un problème technique. Pouvez-vous réessayer?"

// Phase is the relationship state of a user.
type Phase string

const (
	// PhaseNew means no profile exists yet.
	PhaseNew Phase = "new"

	// PhaseLearning means the agent is still collecting basic information.
	PhaseLearning Phase = "learning"

	// PhaseEstablished means enough is known; the profile never leaves it.
	PhaseEstablished Phase = "established"
)

// Options tune generation and history replay.
type Options struct {
	// MaxTokens caps each reply. Defaults to core.DefaultMaxTokens.
	MaxTokens int

	// Temperature is the sampling temperature. Nil selects
	// core.DefaultTemperature; 0 is honored.
	Temperature *float64

	// ContextExchanges is how many past exchanges are replayed for a
	// returning user. Defaults to core.DefaultContextExchanges.
	ContextExchanges int
}

// Deps are the collaborators of an Agent.
type Deps struct {
	// Provider answers chat completions (required).
	Provider llm.Provider

	// Store holds the user profiles (required).
	Store *usermemory.Store

	// Extractor defaults to extractor.NewExtractor().
	Extractor *extractor.Extractor

	// Logger defaults to a discarding logger.
	Logger *log.Logger

	// Node generates the session id. Defaults to node 1.
	Node *snowflake.Node

	Options Options
}

// Agent is a conversational assistant with per-user memory. It is safe for
// concurrent use.
type Agent struct {
	provider  llm.Provider
	store     *usermemory.Store
	extractor *extractor.Extractor
	logger    *log.Logger
	options   Options
	sessionID string
}

// New creates an agent from explicit collaborators.
func New(deps Deps) (*Agent, error) {
	if deps.Provider == nil {
		return nil, core.NewAgentError("New", fmt.Errorf("%w: provider is required", core.ErrInvalidInput))
	}
	if deps.Store == nil {
		return nil, core.NewAgentError("New", fmt.Errorf("%w: store is required", core.ErrInvalidInput))
	}
	if deps.Extractor == nil {
		deps.Extractor = extractor.NewExtractor()
	}
	if deps.Logger == nil {
		deps.Logger = core.NopLogger()
	}
	if deps.Node == nil {
		node, err := snowflake.NewNode(1)
		if err != nil {
			return nil, core.NewAgentError("New", err)
		}
		deps.Node = node
	}

	opts := deps.Options
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = core.DefaultMaxTokens
	}
	temperature := core.DefaultTemperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}
	opts.Temperature = &temperature
	if opts.ContextExchanges <= 0 {
		opts.ContextExchanges = core.DefaultContextExchanges
	}

	a := &Agent{
		provider:  deps.Provider,
		store:     deps.Store,
		extractor: deps.Extractor,
		logger:    deps.Logger,
		options:   opts,
		sessionID: deps.Node.Generate().String(),
	}
	a.logger.Debug("agent ready", "session", a.sessionID)
	return a, nil
}

// SessionID identifies this agent instance on the exchanges it records.
func (a *Agent) SessionID() string {
	return a.sessionID
}

// Store returns the conversation store.
func (a *Agent) Store() *usermemory.Store {
	return a.store
}

// Chat answers message for the user behind identifier.
//
// The exchange and any information extracted from the message are recorded
// only when the provider answers. Any provider failure yields Apology and
// leaves the history untouched. A reply whose recording fails is still
// returned; the failure is logged.
func (a *Agent) Chat(ctx context.Context, identifier, message string) string {
	userID := DeriveUserID(identifier)
	logger := a.logger.With("user", userID)

	isNewUser := !a.store.Exists(userID)
	var basicInfo map[string]interface{}
	if isNewUser {
		logger.Info("new user")
		if _, err := a.store.CreateProfile(ctx, userID); err != nil {
			logger.Warn("profile not persisted", "err", err)
		}
		basicInfo = map[string]interface{}{}
	} else {
		basicInfo = a.store.GetBasicInfo(userID)
	}

	extracted := a.extractor.Extract(message)
	if len(extracted) > 0 {
		logger.Debug("information extracted", "info", extracted)
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: BuildSystemPrompt(isNewUser, basicInfo)},
	}
	if !isNewUser {
		messages = append(messages, a.store.GetRecentContext(userID, a.options.ContextExchanges)...)
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: message})

	reply, err := a.provider.GenerateWithMessages(ctx, messages,
		llm.WithMaxTokens(a.options.MaxTokens),
		llm.WithTemperature(*a.options.Temperature),
	)
	if err != nil {
		err = core.NewAgentError("Chat", fmt.Errorf("%w: %w", core.ErrLLMOperation, err))
		logger.Error("chat completion failed", "err", err)
		return Apology
	}

	if err := a.store.AppendExchange(ctx, userID, message, reply, extracted,
		usermemory.WithSessionID(a.sessionID)); err != nil {
		logger.Warn("exchange not persisted", "err", err)
	}
	return reply
}

// Greeting returns the personalized greeting for identifier.
func (a *Agent) Greeting(identifier string) string {
	return a.store.PersonalizedGreeting(DeriveUserID(identifier))
}

// Phase returns the relationship state of the user behind identifier.
func (a *Agent) Phase(identifier string) Phase {
	p, ok := a.store.GetProfile(DeriveUserID(identifier))
	switch {
	case !ok:
		return PhaseNew
	case p.LearningPhase:
		return PhaseLearning
	default:
		return PhaseEstablished
	}
}

// Forget deletes everything remembered about the user behind identifier.
func (a *Agent) Forget(ctx context.Context, identifier string) error {
	return a.store.DeleteProfile(ctx, DeriveUserID(identifier))
}

// Close releases the provider and the store. Both are closed even if the
// first fails.
func (a *Agent) Close() error {
	return errors.Join(a.provider.Close(), a.store.Close())
}
