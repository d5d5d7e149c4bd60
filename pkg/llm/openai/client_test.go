package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartchat/smartchat-go/pkg/llm"
	openaiLLM "github.com/smartchat/smartchat-go/pkg/llm/openai"
)

type capturedRequest struct {
	Path   string
	Query  url.Values
	Header http.Header
	Body   map[string]interface{}
}

func newCompletionServer(t *testing.T, status int, response string) (*httptest.Server, *capturedRequest) {
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.Path = r.URL.Path
		captured.Query = r.URL.Query()
		captured.Header = r.Header.Clone()
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured.Body))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

const okResponse = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1760860800,
  "model": "gpt-4o",
  "choices": [
    {"index": 0, "message": {"role": "assistant", "content": "Bonjour Marie!"}, "finish_reason": "stop"}
  ]
}`

func TestNewClient_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  *openaiLLM.Config
	}{
		{name: "nil config", cfg: nil},
		{name: "missing key", cfg: &openaiLLM.Config{Mode: openaiLLM.ModeOpenAI, Model: "gpt-4o"}},
		{name: "missing model", cfg: &openaiLLM.Config{Mode: openaiLLM.ModeOpenAI, APIKey: "k"}},
		{name: "azure without endpoint", cfg: &openaiLLM.Config{Mode: openaiLLM.ModeAzure, APIKey: "k", Model: "gpt-4o"}},
		{name: "azure-openai without endpoint", cfg: &openaiLLM.Config{Mode: openaiLLM.ModeAzureOpenAI, APIKey: "k", Model: "gpt-4o"}},
		{name: "unknown mode", cfg: &openaiLLM.Config{Mode: "bard", APIKey: "k", Model: "m"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := openaiLLM.NewClient(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestNewClient_OllamaNeedsNoKey(t *testing.T) {
	client, err := openaiLLM.NewClient(&openaiLLM.Config{Mode: openaiLLM.ModeOllama, Model: "llama3.1"})
	require.NoError(t, err)
	assert.NoError(t, client.Close())
}

func TestClient_OpenAICompatible(t *testing.T) {
	srv, captured := newCompletionServer(t, http.StatusOK, okResponse)

	client, err := openaiLLM.NewClient(&openaiLLM.Config{
		Mode:     openaiLLM.ModeOpenAI,
		APIKey:   "test-key",
		Model:    "gpt-4o",
		Endpoint: srv.URL + "/v1",
	})
	require.NoError(t, err)

	reply, err := client.GenerateWithMessages(context.Background(), []llm.Message{
		{Role: llm.RoleSystem, Content: "Tu es un assistant."},
		{Role: llm.RoleUser, Content: "Bonjour"},
	}, llm.WithMaxTokens(800), llm.WithTemperature(0.8))
	require.NoError(t, err)
	assert.Equal(t, "Bonjour Marie!", reply)

	assert.Equal(t, "/v1/chat/completions", captured.Path)
	assert.Equal(t, "Bearer test-key", captured.Header.Get("Authorization"))
	assert.Equal(t, "gpt-4o", captured.Body["model"])
	assert.EqualValues(t, 800, captured.Body["max_tokens"])
	assert.InDelta(t, 0.8, captured.Body["temperature"], 1e-6)

	messages, ok := captured.Body["messages"].([]interface{})
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]interface{})["role"])
}

func TestClient_AzureInference(t *testing.T) {
	tests := []struct {
		name        string
		apiVersion  string
		wantVersion string
	}{
		{"default api version", "", openaiLLM.DefaultInferenceAPIVersion},
		{"configured api version", "2024-08-01", "2024-08-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, captured := newCompletionServer(t, http.StatusOK, okResponse)

			client, err := openaiLLM.NewClient(&openaiLLM.Config{
				Mode:       openaiLLM.ModeAzure,
				APIKey:     "inference-key",
				Model:      "gpt-4o",
				Endpoint:   srv.URL + "/models/",
				APIVersion: tt.apiVersion,
			})
			require.NoError(t, err)

			reply, err := client.Generate(context.Background(), "Bonjour")
			require.NoError(t, err)
			assert.Equal(t, "Bonjour Marie!", reply)

			assert.Equal(t, "/models/chat/completions", captured.Path)
			assert.Equal(t, tt.wantVersion, captured.Query.Get("api-version"))
			assert.Equal(t, "inference-key", captured.Header.Get("api-key"))
			assert.Equal(t, "gpt-4o", captured.Body["model"])
		})
	}
}

func TestClient_AzureOpenAI(t *testing.T) {
	srv, captured := newCompletionServer(t, http.StatusOK, okResponse)

	client, err := openaiLLM.NewClient(&openaiLLM.Config{
		Mode:       openaiLLM.ModeAzureOpenAI,
		APIKey:     "azure-key",
		Model:      "my-deployment",
		Endpoint:   srv.URL,
		APIVersion: "2024-02-01",
	})
	require.NoError(t, err)

	reply, err := client.Generate(context.Background(), "Bonjour")
	require.NoError(t, err)
	assert.Equal(t, "Bonjour Marie!", reply)

	assert.Equal(t, "/openai/deployments/my-deployment/chat/completions", captured.Path)
	assert.Equal(t, "2024-02-01", captured.Query.Get("api-version"))
	assert.Equal(t, "azure-key", captured.Header.Get("api-key"))
}

func TestClient_ZeroTemperatureIsSent(t *testing.T) {
	srv, captured := newCompletionServer(t, http.StatusOK, okResponse)

	client, err := openaiLLM.NewClient(&openaiLLM.Config{
		Mode: openaiLLM.ModeOpenAI, APIKey: "k", Model: "gpt-4o", Endpoint: srv.URL + "/v1",
	})
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), "Bonjour", llm.WithTemperature(0))
	require.NoError(t, err)

	temperature, ok := captured.Body["temperature"]
	require.True(t, ok, "a zero temperature must not be dropped from the request")
	assert.InDelta(t, 0, temperature.(float64), 1e-9)
}

func TestClient_NoChoices(t *testing.T) {
	srv, _ := newCompletionServer(t, http.StatusOK, `{"id":"x","object":"chat.completion","choices":[]}`)

	client, err := openaiLLM.NewClient(&openaiLLM.Config{
		Mode: openaiLLM.ModeOpenAI, APIKey: "k", Model: "gpt-4o", Endpoint: srv.URL + "/v1",
	})
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), "Bonjour")
	assert.ErrorIs(t, err, openaiLLM.ErrNoChoices)
}

func TestClient_HTTPError(t *testing.T) {
	srv, _ := newCompletionServer(t, http.StatusUnauthorized,
		`{"error":{"message":"invalid api key","type":"invalid_request_error"}}`)

	client, err := openaiLLM.NewClient(&openaiLLM.Config{
		Mode: openaiLLM.ModeOpenAI, APIKey: "bad", Model: "gpt-4o", Endpoint: srv.URL + "/v1",
	})
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), "Bonjour")
	assert.Error(t, err)
}

var _ llm.Provider = (*openaiLLM.Client)(nil)
