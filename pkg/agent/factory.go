package agent

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/charmbracelet/log"

	"github.com/smartchat/smartchat-go/pkg/core"
	"github.com/smartchat/smartchat-go/pkg/extractor"
	"github.com/smartchat/smartchat-go/pkg/llm"
	openaiLLM "github.com/smartchat/smartchat-go/pkg/llm/openai"
	"github.com/smartchat/smartchat-go/pkg/storage"
	"github.com/smartchat/smartchat-go/pkg/storage/jsonfile"
	"github.com/smartchat/smartchat-go/pkg/storage/oceanbase"
	postgresStore "github.com/smartchat/smartchat-go/pkg/storage/postgres"
	sqliteStore "github.com/smartchat/smartchat-go/pkg/storage/sqlite"
	usermemory "github.com/smartchat/smartchat-go/pkg/user_memory"
)

// NewAgent builds an agent from configuration.
//
// The configuration is validated before anything is opened, so a missing
// endpoint, key or model fails here with core.ErrInvalidConfig instead of on
// the first message.
func NewAgent(ctx context.Context, cfg *core.Config, logger *log.Logger) (*Agent, error) {
	if cfg == nil {
		return nil, core.NewAgentError("NewAgent", fmt.Errorf("%w: nil config", core.ErrInvalidConfig))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = core.NopLogger()
	}

	provider, err := NewProvider(cfg.LLM)
	if err != nil {
		return nil, err
	}

	node, err := snowflake.NewNode(cfg.Agent.SnowflakeNode)
	if err != nil {
		_ = provider.Close()
		return nil, core.NewAgentError("NewAgent", fmt.Errorf("%w: SNOWFLAKE_NODE: %w", core.ErrInvalidConfig, err))
	}

	backend, err := NewBackend(ctx, cfg.Storage)
	if err != nil {
		_ = provider.Close()
		return nil, err
	}

	store, err := usermemory.NewStore(ctx, backend, usermemory.WithLogger(logger))
	if err != nil {
		_ = provider.Close()
		_ = backend.Close()
		return nil, err
	}

	temperature := cfg.LLM.Temperature
	return New(Deps{
		Provider:  provider,
		Store:     store,
		Extractor: extractor.NewExtractor(),
		Logger:    logger,
		Node:      node,
		Options: Options{
			MaxTokens:        cfg.LLM.MaxTokens,
			Temperature:      &temperature,
			ContextExchanges: cfg.Agent.ContextExchanges,
		},
	})
}

// NewProvider creates the chat provider named by cfg.Provider.
func NewProvider(cfg core.LLMConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case core.ProviderAzure, core.ProviderAzureOpenAI, core.ProviderOpenAI, core.ProviderDeepSeek, core.ProviderQwen, core.ProviderOllama:
		client, err := openaiLLM.NewClient(&openaiLLM.Config{
			Mode:       cfg.Provider,
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			Endpoint:   cfg.Endpoint,
			APIVersion: cfg.APIVersion,
		})
		if err != nil {
			return nil, core.NewAgentError("NewProvider", fmt.Errorf("%w: %w", core.ErrInvalidConfig, err))
		}
		return client, nil
	default:
		return nil, core.NewAgentError("NewProvider", fmt.Errorf("%w: unsupported LLM provider %q", core.ErrInvalidConfig, cfg.Provider))
	}
}

// NewBackend opens the storage backend named by cfg.Provider.
func NewBackend(ctx context.Context, cfg core.StorageConfig) (storage.Backend, error) {
	var (
		backend storage.Backend
		err     error
	)
	switch cfg.Provider {
	case core.StorageJSONFile:
		backend, err = jsonfile.NewClient(&jsonfile.Config{Path: cfg.Path})
	case core.StorageSQLite:
		backend, err = sqliteStore.NewClient(ctx, &sqliteStore.Config{
			DBPath: cfg.Path,
			Table:  cfg.Table,
		})
	case core.StoragePostgres:
		backend, err = postgresStore.NewClient(ctx, &postgresStore.Config{
			Host:     cfg.Host,
			Port:     cfg.Port,
			User:     cfg.User,
			Password: cfg.Password,
			DBName:   cfg.Database,
			Table:    cfg.Table,
			SSLMode:  cfg.SSLMode,
		})
	case core.StorageOceanBase:
		backend, err = oceanbase.NewClient(ctx, &oceanbase.Config{
			Host:     cfg.Host,
			Port:     cfg.Port,
			User:     cfg.User,
			Password: cfg.Password,
			DBName:   cfg.Database,
			Table:    cfg.Table,
		})
	default:
		return nil, core.NewAgentError("NewBackend", fmt.Errorf("%w: unsupported storage provider %q", core.ErrInvalidConfig, cfg.Provider))
	}
	if err != nil {
		return nil, core.NewAgentError("NewBackend", fmt.Errorf("%w: %w", core.ErrStorageOperation, err))
	}
	return backend, nil
}
