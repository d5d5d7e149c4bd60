package core_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartchat/smartchat-go/pkg/core"
)

var configEnvVars = []string{
	"LLM_PROVIDER", "AZURE_INFERENCE_ENDPOINT", "AZURE_INFERENCE_KEY", "DEPLOYMENT_NAME", "AZURE_API_VERSION",
	"LLM_API_KEY", "LLM_MODEL", "LLM_BASE_URL", "LLM_MAX_TOKENS", "LLM_TEMPERATURE",
	"STORAGE_PROVIDER", "STORAGE_PATH", "STORAGE_TABLE", "SQLITE_PATH",
	"POSTGRES_HOST", "POSTGRES_PORT", "POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_DATABASE", "POSTGRES_SSLMODE",
	"OCEANBASE_HOST", "OCEANBASE_PORT", "OCEANBASE_USER", "OCEANBASE_PASSWORD", "OCEANBASE_DATABASE",
	"CONTEXT_MAX_EXCHANGES", "SNOWFLAKE_NODE", "LOG_LEVEL", "SERVER_PORT",
}

// clearConfigEnv blanks every variable the loader reads; blank means unset.
func clearConfigEnv(t *testing.T) {
	for _, key := range configEnvVars {
		t.Setenv(key, "")
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		check   func(t *testing.T, cfg *core.Config)
	}{
		{
			name: "azure defaults",
			envVars: map[string]string{
				"AZURE_INFERENCE_ENDPOINT": "https://example.openai.azure.com",
				"AZURE_INFERENCE_KEY":      "azure-key",
				"DEPLOYMENT_NAME":          "gpt-4o",
			},
			check: func(t *testing.T, cfg *core.Config) {
				assert.Equal(t, core.ProviderAzure, cfg.LLM.Provider)
				assert.Equal(t, "https://example.openai.azure.com", cfg.LLM.Endpoint)
				assert.Equal(t, "azure-key", cfg.LLM.APIKey)
				assert.Equal(t, "gpt-4o", cfg.LLM.Model)
				assert.Equal(t, core.DefaultMaxTokens, cfg.LLM.MaxTokens)
				assert.InDelta(t, core.DefaultTemperature, cfg.LLM.Temperature, 1e-9)
				assert.Equal(t, core.StorageJSONFile, cfg.Storage.Provider)
				assert.Equal(t, core.DefaultStoragePath, cfg.Storage.Path)
				assert.Equal(t, core.DefaultContextExchanges, cfg.Agent.ContextExchanges)
				assert.Equal(t, int64(1), cfg.Agent.SnowflakeNode)
				assert.Equal(t, core.DefaultServerPort, cfg.Server.Port)
				assert.NoError(t, cfg.Validate())
			},
		},
		{
			name: "openai-compatible with sqlite",
			envVars: map[string]string{
				"LLM_PROVIDER":     "OpenAI",
				"LLM_API_KEY":      "test-key",
				"LLM_BASE_URL":     "http://localhost:8080/v1",
				"STORAGE_PROVIDER": "sqlite",
				"SQLITE_PATH":      "./data/smartchat.db",
				"LLM_MAX_TOKENS":   "256",
				"LLM_TEMPERATURE":  "0.2",
			},
			check: func(t *testing.T, cfg *core.Config) {
				assert.Equal(t, core.ProviderOpenAI, cfg.LLM.Provider)
				assert.Equal(t, "gpt-4o", cfg.LLM.Model)
				assert.Equal(t, "http://localhost:8080/v1", cfg.LLM.Endpoint)
				assert.Equal(t, 256, cfg.LLM.MaxTokens)
				assert.InDelta(t, 0.2, cfg.LLM.Temperature, 1e-9)
				assert.Equal(t, "./data/smartchat.db", cfg.Storage.Path)
				assert.Equal(t, core.DefaultTable, cfg.Storage.Table)
				assert.NoError(t, cfg.Validate())
			},
		},
		{
			name: "deepseek default model",
			envVars: map[string]string{
				"LLM_PROVIDER": "deepseek",
				"LLM_API_KEY":  "test-key",
			},
			check: func(t *testing.T, cfg *core.Config) {
				assert.Equal(t, "deepseek-chat", cfg.LLM.Model)
			},
		},
		{
			name: "postgres",
			envVars: map[string]string{
				"STORAGE_PROVIDER":  "postgres",
				"POSTGRES_HOST":     "db.internal",
				"POSTGRES_PORT":     "6543",
				"POSTGRES_PASSWORD": "secret",
			},
			check: func(t *testing.T, cfg *core.Config) {
				assert.Equal(t, "db.internal", cfg.Storage.Host)
				assert.Equal(t, 6543, cfg.Storage.Port)
				assert.Equal(t, "postgres", cfg.Storage.User)
				assert.Equal(t, "secret", cfg.Storage.Password)
				assert.Equal(t, "disable", cfg.Storage.SSLMode)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg, err := core.LoadConfigFromEnv()
			require.NoError(t, err)
			require.NotNil(t, cfg)
			tt.check(t, cfg)
		})
	}
}

func TestLoadConfigFromEnv_BadNumber(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("LLM_MAX_TOKENS", "beaucoup")

	cfg, err := core.LoadConfigFromEnv()
	assert.Nil(t, cfg)
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "LLM_MAX_TOKENS")
}

func TestLoadConfigFromEnvFile(t *testing.T) {
	clearConfigEnv(t)
	// godotenv never overrides variables that are already set, even to "".
	for _, key := range []string{"AZURE_INFERENCE_ENDPOINT", "AZURE_INFERENCE_KEY", "DEPLOYMENT_NAME"} {
		require.NoError(t, os.Unsetenv(key))
	}
	t.Cleanup(func() {
		for _, key := range []string{"AZURE_INFERENCE_ENDPOINT", "AZURE_INFERENCE_KEY", "DEPLOYMENT_NAME"} {
			_ = os.Unsetenv(key)
		}
	})

	path := filepath.Join(t.TempDir(), ".env")
	content := "AZURE_INFERENCE_ENDPOINT=https://file.openai.azure.com\nAZURE_INFERENCE_KEY=file-key\nDEPLOYMENT_NAME=file-deployment\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := core.LoadConfigFromEnvFile(path)
	require.NoError(t, err)
	assert.Equal(t, "https://file.openai.azure.com", cfg.LLM.Endpoint)
	assert.Equal(t, "file-key", cfg.LLM.APIKey)
	assert.Equal(t, "file-deployment", cfg.LLM.Model)

	_, err = core.LoadConfigFromEnvFile(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestLoadConfigFromJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"llm": {"provider": "openai", "api_key": "k", "model": "gpt-4o"}}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := core.LoadConfigFromJSON(path)
	require.NoError(t, err)
	assert.Equal(t, core.ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, core.DefaultMaxTokens, cfg.LLM.MaxTokens)
	assert.Equal(t, core.StorageJSONFile, cfg.Storage.Provider)
	assert.Equal(t, core.DefaultStoragePath, cfg.Storage.Path)
	assert.Equal(t, core.DefaultServerPort, cfg.Server.Port)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFromJSON_Temperature(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    float64
	}{
		{"absent uses default", `{"llm": {"provider": "openai"}}`, core.DefaultTemperature},
		{"explicit zero kept", `{"llm": {"provider": "openai", "temperature": 0}}`, 0},
		{"explicit value kept", `{"llm": {"provider": "openai", "temperature": 0.3}}`, 0.3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			cfg, err := core.LoadConfigFromJSON(path)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, cfg.LLM.Temperature, 1e-9)
		})
	}
}

func TestLoadConfigFromEnv_ZeroTemperature(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("LLM_API_KEY", "k")
	t.Setenv("LLM_TEMPERATURE", "0")

	cfg, err := core.LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Zero(t, cfg.LLM.Temperature)
}

func TestConfigValidate(t *testing.T) {
	jsonStorage := core.StorageConfig{Provider: core.StorageJSONFile, Path: "c.json"}

	tests := []struct {
		name        string
		config      *core.Config
		wantErr     bool
		wantMissing []string
	}{
		{
			name: "valid azure",
			config: &core.Config{
				LLM:     core.LLMConfig{Provider: core.ProviderAzure, Endpoint: "https://e", APIKey: "k", Model: "m"},
				Storage: jsonStorage,
			},
		},
		{
			name: "azure missing everything",
			config: &core.Config{
				LLM:     core.LLMConfig{Provider: core.ProviderAzure},
				Storage: jsonStorage,
			},
			wantErr:     true,
			wantMissing: []string{"AZURE_INFERENCE_ENDPOINT", "AZURE_INFERENCE_KEY", "DEPLOYMENT_NAME"},
		},
		{
			name: "openai missing key",
			config: &core.Config{
				LLM:     core.LLMConfig{Provider: core.ProviderOpenAI, Model: "gpt-4o"},
				Storage: jsonStorage,
			},
			wantErr:     true,
			wantMissing: []string{"LLM_API_KEY"},
		},
		{
			name: "ollama without key",
			config: &core.Config{
				LLM:     core.LLMConfig{Provider: core.ProviderOllama, Model: "llama3.1"},
				Storage: jsonStorage,
			},
		},
		{
			name: "unknown llm provider",
			config: &core.Config{
				LLM:     core.LLMConfig{Provider: "bard"},
				Storage: jsonStorage,
			},
			wantErr: true,
		},
		{
			name: "postgres without host",
			config: &core.Config{
				LLM:     core.LLMConfig{Provider: core.ProviderOpenAI, APIKey: "k", Model: "m"},
				Storage: core.StorageConfig{Provider: core.StoragePostgres},
			},
			wantErr:     true,
			wantMissing: []string{"POSTGRES_HOST"},
		},
		{
			name: "sqlite without path",
			config: &core.Config{
				LLM:     core.LLMConfig{Provider: core.ProviderOpenAI, APIKey: "k", Model: "m"},
				Storage: core.StorageConfig{Provider: core.StorageSQLite},
			},
			wantErr:     true,
			wantMissing: []string{"SQLITE_PATH"},
		},
		{
			name: "unknown storage provider",
			config: &core.Config{
				LLM:     core.LLMConfig{Provider: core.ProviderOpenAI, APIKey: "k", Model: "m"},
				Storage: core.StorageConfig{Provider: "redis"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrInvalidConfig)
			for _, name := range tt.wantMissing {
				assert.Contains(t, err.Error(), name)
			}
		})
	}
}

func TestFindEnvFile(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LOG_LEVEL=debug\n"), 0644))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(nested))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	path, found := core.FindEnvFile()
	assert.True(t, found)
	assert.Equal(t, filepath.Join(dir, ".env"), path)
}
