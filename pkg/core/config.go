package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Provider names accepted in configuration.
const (
	ProviderAzure       = "azure"
	ProviderAzureOpenAI = "azure-openai"
	ProviderOpenAI      = "openai"
	ProviderDeepSeek    = "deepseek"
	ProviderQwen        = "qwen"
	ProviderOllama      = "ollama"

	StorageJSONFile  = "jsonfile"
	StorageSQLite    = "sqlite"
	StoragePostgres  = "postgres"
	StorageOceanBase = "oceanbase"
)

// Config contains the complete configuration for a smartchat agent.
//
// Example:
//
//	cfg := &core.Config{
//	    LLM: core.LLMConfig{
//	        Provider: "azure",
//	        Endpoint: "https://my-resource.services.ai.azure.com/models",
//	        APIKey:   "...",
//	        Model:    "gpt-4o",
//	    },
//	    Storage: core.StorageConfig{
//	        Provider: "jsonfile",
//	        Path:     "smart_conversations.json",
//	    },
//	}
type Config struct {
	// LLM contains chat-completion provider configuration.
	LLM LLMConfig `json:"llm"`

	// Storage contains conversation store configuration.
	Storage StorageConfig `json:"storage"`

	// Agent contains conversation behaviour settings.
	Agent AgentConfig `json:"agent"`

	// Log contains logger settings.
	Log LogConfig `json:"log"`

	// Server contains web stub settings.
	Server ServerConfig `json:"server"`
}

// LLMConfig contains configuration for the chat-completion provider.
//
// Supported providers: azure, azure-openai, openai, deepseek, qwen, ollama
type LLMConfig struct {
	// Provider is the provider name (azure, azure-openai, openai, deepseek,
	// qwen, ollama).
	Provider string `json:"provider"`

	// Endpoint is the Azure AI Inference endpoint (azure), the Azure OpenAI
	// resource endpoint (azure-openai), or the base URL of an
	// OpenAI-compatible API (optional for the others).
	Endpoint string `json:"endpoint,omitempty"`

	// APIKey is the API key for the provider.
	APIKey string `json:"api_key"`

	// Model is the model name, or the deployment name on Azure.
	Model string `json:"model"`

	// APIVersion is the Azure API version (optional).
	APIVersion string `json:"api_version,omitempty"`

	// MaxTokens caps the reply length.
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls sampling randomness. 0 is honored.
	Temperature float64 `json:"temperature,omitempty"`
}

// StorageConfig contains configuration for the conversation store backend.
//
// Supported providers: jsonfile, sqlite, postgres, oceanbase
type StorageConfig struct {
	// Provider is the backend name.
	Provider string `json:"provider"`

	// Path is the JSON document path (jsonfile) or database file (sqlite).
	Path string `json:"path,omitempty"`

	// Table is the table name used by the SQL backends.
	Table string `json:"table,omitempty"`

	// Host, Port, User, Password, Database and SSLMode configure the
	// network SQL backends.
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	User     string `json:"user,omitempty"`
	Password string `json:"password,omitempty"`
	Database string `json:"database,omitempty"`
	SSLMode  string `json:"ssl_mode,omitempty"`
}

// AgentConfig contains conversation behaviour settings.
type AgentConfig struct {
	// ContextExchanges is the number of past exchanges replayed to the model.
	ContextExchanges int `json:"context_exchanges,omitempty"`

	// SnowflakeNode is the node number used for session ids.
	SnowflakeNode int64 `json:"snowflake_node,omitempty"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty"`
}

// ServerConfig contains web stub settings.
type ServerConfig struct {
	// Port is the TCP port the web stub listens on.
	Port int `json:"port,omitempty"`
}

// Defaults used when a value is not configured.
const (
	DefaultMaxTokens        = 800
	DefaultTemperature      = 0.8
	DefaultStoragePath      = "smart_conversations.json"
	DefaultTable            = "conversations"
	DefaultContextExchanges = 10
	DefaultServerPort       = 5000
)

// defaultModels are used when LLM_MODEL is not set.
var defaultModels = map[string]string{
	ProviderOpenAI:   "gpt-4o",
	ProviderDeepSeek: "deepseek-chat",
	ProviderQwen:     "qwen-plus",
	ProviderOllama:   "llama3.1",
}

// LoadConfigFromEnv loads configuration from environment variables.
//
// The function:
//  1. Searches for .env or .env.example files (up to 5 directory levels up)
//  2. Loads environment variables from the found file
//  3. Parses environment variables into a Config struct
//
// Supported environment variables:
//   - LLM_PROVIDER (azure, openai, deepseek, qwen, ollama)
//   - AZURE_INFERENCE_ENDPOINT, AZURE_INFERENCE_KEY, DEPLOYMENT_NAME, AZURE_API_VERSION
//   - LLM_API_KEY, LLM_MODEL, LLM_BASE_URL (the other providers)
//   - LLM_MAX_TOKENS, LLM_TEMPERATURE
//   - STORAGE_PROVIDER (jsonfile, sqlite, postgres, oceanbase), STORAGE_PATH, STORAGE_TABLE
//   - SQLITE_PATH
//   - POSTGRES_HOST, POSTGRES_PORT, POSTGRES_USER, POSTGRES_PASSWORD, POSTGRES_DATABASE, POSTGRES_SSLMODE
//   - OCEANBASE_HOST, OCEANBASE_PORT, OCEANBASE_USER, OCEANBASE_PASSWORD, OCEANBASE_DATABASE
//   - CONTEXT_MAX_EXCHANGES, SNOWFLAKE_NODE, LOG_LEVEL, SERVER_PORT
//
// Missing values are not an error here; Validate reports them.
func LoadConfigFromEnv() (*Config, error) {
	envPath, found := FindEnvFile()
	if found {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}
	return configFromEnv()
}

// LoadConfigFromEnvFile loads configuration from a specific .env file.
func LoadConfigFromEnvFile(envPath string) (*Config, error) {
	if err := godotenv.Load(envPath); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	return configFromEnv()
}

// LoadConfigFromJSON loads configuration from a JSON file. Unset values are
// filled with defaults.
func LoadConfigFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewAgentError("LoadConfigFromJSON", err)
	}

	// Temperature is pre-filled because 0 is a valid setting.
	cfg := Config{LLM: LLMConfig{Temperature: DefaultTemperature}}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, NewAgentError("LoadConfigFromJSON", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func configFromEnv() (*Config, error) {
	provider := strings.ToLower(getEnvOrDefault("LLM_PROVIDER", ProviderAzure))

	llmCfg := LLMConfig{
		Provider:   provider,
		APIVersion: os.Getenv("AZURE_API_VERSION"),
	}
	switch provider {
	case ProviderAzure, ProviderAzureOpenAI:
		llmCfg.Endpoint = os.Getenv("AZURE_INFERENCE_ENDPOINT")
		llmCfg.APIKey = os.Getenv("AZURE_INFERENCE_KEY")
		llmCfg.Model = os.Getenv("DEPLOYMENT_NAME")
	default:
		llmCfg.Endpoint = os.Getenv("LLM_BASE_URL")
		llmCfg.APIKey = os.Getenv("LLM_API_KEY")
		llmCfg.Model = getEnvOrDefault("LLM_MODEL", defaultModels[provider])
	}

	maxTokens, err := getEnvInt("LLM_MAX_TOKENS", DefaultMaxTokens)
	if err != nil {
		return nil, err
	}
	llmCfg.MaxTokens = maxTokens

	temperature, err := getEnvFloat("LLM_TEMPERATURE", DefaultTemperature)
	if err != nil {
		return nil, err
	}
	llmCfg.Temperature = temperature

	storageProvider := strings.ToLower(getEnvOrDefault("STORAGE_PROVIDER", StorageJSONFile))
	storageCfg := StorageConfig{
		Provider: storageProvider,
		Table:    getEnvOrDefault("STORAGE_TABLE", DefaultTable),
	}
	switch storageProvider {
	case StorageJSONFile:
		storageCfg.Path = getEnvOrDefault("STORAGE_PATH", DefaultStoragePath)
	case StorageSQLite:
		storageCfg.Path = getEnvOrDefault("SQLITE_PATH", "./smartchat.db")
	case StoragePostgres:
		port, err := getEnvInt("POSTGRES_PORT", 5432)
		if err != nil {
			return nil, err
		}
		storageCfg.Host = getEnvOrDefault("POSTGRES_HOST", "localhost")
		storageCfg.Port = port
		storageCfg.User = getEnvOrDefault("POSTGRES_USER", "postgres")
		storageCfg.Password = os.Getenv("POSTGRES_PASSWORD")
		storageCfg.Database = getEnvOrDefault("POSTGRES_DATABASE", "smartchat")
		storageCfg.SSLMode = getEnvOrDefault("POSTGRES_SSLMODE", "disable")
	case StorageOceanBase:
		port, err := getEnvInt("OCEANBASE_PORT", 2881)
		if err != nil {
			return nil, err
		}
		storageCfg.Host = getEnvOrDefault("OCEANBASE_HOST", "127.0.0.1")
		storageCfg.Port = port
		storageCfg.User = getEnvOrDefault("OCEANBASE_USER", "root@sys")
		storageCfg.Password = os.Getenv("OCEANBASE_PASSWORD")
		storageCfg.Database = getEnvOrDefault("OCEANBASE_DATABASE", "smartchat")
	}

	contextExchanges, err := getEnvInt("CONTEXT_MAX_EXCHANGES", DefaultContextExchanges)
	if err != nil {
		return nil, err
	}
	node, err := getEnvInt("SNOWFLAKE_NODE", 1)
	if err != nil {
		return nil, err
	}
	port, err := getEnvInt("SERVER_PORT", DefaultServerPort)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		LLM:     llmCfg,
		Storage: storageCfg,
		Agent: AgentConfig{
			ContextExchanges: contextExchanges,
			SnowflakeNode:    int64(node),
		},
		Log:    LogConfig{Level: getEnvOrDefault("LOG_LEVEL", "info")},
		Server: ServerConfig{Port: port},
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LLM.Provider == "" {
		c.LLM.Provider = ProviderAzure
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = DefaultMaxTokens
	}
	if c.Storage.Provider == "" {
		c.Storage.Provider = StorageJSONFile
	}
	if c.Storage.Provider == StorageJSONFile && c.Storage.Path == "" {
		c.Storage.Path = DefaultStoragePath
	}
	if c.Storage.Table == "" {
		c.Storage.Table = DefaultTable
	}
	if c.Agent.ContextExchanges == 0 {
		c.Agent.ContextExchanges = DefaultContextExchanges
	}
	if c.Agent.SnowflakeNode == 0 {
		c.Agent.SnowflakeNode = 1
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
}

// Validate checks that every value required to build an agent is present.
//
// For the azure provider the endpoint, key and deployment name are all
// required. For the openai provider the key and model are required. The
// returned error names every missing variable and wraps ErrInvalidConfig.
func (c *Config) Validate() error {
	var missing []string
	switch c.LLM.Provider {
	case ProviderAzure, ProviderAzureOpenAI:
		if c.LLM.Endpoint == "" {
			missing = append(missing, "AZURE_INFERENCE_ENDPOINT")
		}
		if c.LLM.APIKey == "" {
			missing = append(missing, "AZURE_INFERENCE_KEY")
		}
		if c.LLM.Model == "" {
			missing = append(missing, "DEPLOYMENT_NAME")
		}
	case ProviderOpenAI, ProviderDeepSeek, ProviderQwen:
		if c.LLM.APIKey == "" {
			missing = append(missing, "LLM_API_KEY")
		}
		if c.LLM.Model == "" {
			missing = append(missing, "LLM_MODEL")
		}
	case ProviderOllama:
		if c.LLM.Model == "" {
			missing = append(missing, "LLM_MODEL")
		}
	default:
		return NewAgentError("Validate", fmt.Errorf("%w: unsupported LLM provider %q", ErrInvalidConfig, c.LLM.Provider))
	}

	switch c.Storage.Provider {
	case StorageJSONFile:
		if c.Storage.Path == "" {
			missing = append(missing, "STORAGE_PATH")
		}
	case StorageSQLite:
		if c.Storage.Path == "" {
			missing = append(missing, "SQLITE_PATH")
		}
	case StoragePostgres, StorageOceanBase:
		if c.Storage.Host == "" {
			missing = append(missing, strings.ToUpper(c.Storage.Provider)+"_HOST")
		}
	default:
		return NewAgentError("Validate", fmt.Errorf("%w: unsupported storage provider %q", ErrInvalidConfig, c.Storage.Provider))
	}

	if len(missing) > 0 {
		return NewAgentError("Validate", fmt.Errorf("%w: missing %s", ErrInvalidConfig, strings.Join(missing, ", ")))
	}
	return nil
}

// getEnvOrDefault gets an environment variable or returns the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, NewAgentError("LoadConfigFromEnv", fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, key, raw))
	}
	return v, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, NewAgentError("LoadConfigFromEnv", fmt.Errorf("%w: %s=%q is not a number", ErrInvalidConfig, key, raw))
	}
	return v, nil
}

// FindEnvFile searches for .env or .env.example files.
//
// The search:
//  1. Checks the current directory
//  2. Searches up to 5 directory levels up
//  3. Returns the first .env or .env.example file found
func FindEnvFile() (string, bool) {
	if _, err := os.Stat(".env"); err == nil {
		return ".env", true
	}
	if _, err := os.Stat(".env.example"); err == nil {
		return ".env.example", true
	}

	dir, _ := os.Getwd()
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		envExamplePath := filepath.Join(dir, ".env.example")

		if _, err := os.Stat(envPath); err == nil {
			return envPath, true
		}
		if _, err := os.Stat(envExamplePath); err == nil {
			return envExamplePath, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", false
}
