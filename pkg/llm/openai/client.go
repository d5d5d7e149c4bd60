// Package openai implements llm.Provider on top of go-openai, for Azure
// OpenAI deployments, the OpenAI API, and OpenAI-compatible endpoints
// (DeepSeek, Qwen, Ollama).
package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/smartchat/smartchat-go/pkg/llm"
)

// Provider modes.
//
// ModeAzure targets an Azure AI Inference endpoint, which serves
// {endpoint}/chat/completions with the model named in the body. Endpoints on
// *.openai.azure.com are routed as ModeAzureOpenAI instead.
//
// ModeAzureOpenAI targets an Azure OpenAI resource, which serves
// {endpoint}/openai/deployments/{deployment}/chat/completions.
const (
	ModeAzure       = "azure"
	ModeAzureOpenAI = "azure-openai"
	ModeOpenAI      = "openai"
	ModeDeepSeek = "deepseek"
	ModeQwen     = "qwen"
	ModeOllama   = "ollama"
)

// compatibleBaseURLs are the default endpoints of the OpenAI-compatible modes.
var compatibleBaseURLs = map[string]string{
	ModeDeepSeek: "https://api.deepseek.com",
	ModeQwen:     "https://dashscope.aliyuncs.com/compatible-mode/v1",
	ModeOllama:   "http://localhost:11434/v1",
}

// DefaultInferenceAPIVersion is sent to Azure AI Inference endpoints when no
// API version is configured.
const DefaultInferenceAPIVersion = "2024-05-01-preview"

// ErrNoChoices is returned when the API answers without any choice.
var ErrNoChoices = errors.New("no choices returned from chat completion API")

// Client is a chat-completion client.
// It implements the llm.Provider interface.
type Client struct {
	client *openai.Client
	model  string
	mode   string
}

// Config is the configuration for the client.
// Mode: "azure" (default), "azure-openai", "openai", "deepseek", "qwen" or "ollama"
// APIKey: API key (required except in ollama mode)
// Model: model name, or deployment name in azure-openai mode (required)
// Endpoint: Azure endpoint (required in both azure modes) or base URL
// override in the other modes
// APIVersion: Azure API version (optional)
type Config struct {
	Mode       string
	APIKey     string
	Model      string
	Endpoint   string
	APIVersion string
}

// NewClient creates a new chat-completion client.
//
// Returns an error if a required value is missing, so misconfiguration is
// reported at construction time rather than on the first call.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("openai: nil config")
	}
	mode := strings.ToLower(cfg.Mode)
	apiKey := cfg.APIKey
	if apiKey == "" {
		if mode != ModeOllama {
			return nil, errors.New("openai: api key is required")
		}
		// Ollama ignores the key but the SDK always sends one.
		apiKey = "ollama"
	}
	if cfg.Model == "" {
		return nil, errors.New("openai: model is required")
	}

	if mode == "" {
		mode = ModeAzure
	}
	if (mode == ModeAzure || mode == ModeAzureOpenAI) && cfg.Endpoint == "" {
		return nil, errors.New("openai: azure endpoint is required")
	}
	if mode == ModeAzure && isAzureOpenAIEndpoint(cfg.Endpoint) {
		mode = ModeAzureOpenAI
	}

	var config openai.ClientConfig
	switch mode {
	case ModeAzure:
		config = openai.DefaultConfig(apiKey)
		config.BaseURL = strings.TrimRight(cfg.Endpoint, "/")
		apiVersion := cfg.APIVersion
		if apiVersion == "" {
			apiVersion = DefaultInferenceAPIVersion
		}
		config.HTTPClient = &http.Client{
			Transport: &inferenceTransport{apiKey: apiKey, apiVersion: apiVersion},
		}
	case ModeAzureOpenAI:
		config = openai.DefaultAzureConfig(apiKey, cfg.Endpoint)
		if cfg.APIVersion != "" {
			config.APIVersion = cfg.APIVersion
		}
		deployment := cfg.Model
		config.AzureModelMapperFunc = func(string) string { return deployment }
	case ModeOpenAI, ModeDeepSeek, ModeQwen, ModeOllama:
		config = openai.DefaultConfig(apiKey)
		if base, ok := compatibleBaseURLs[mode]; ok {
			config.BaseURL = base
		}
		if cfg.Endpoint != "" {
			config.BaseURL = cfg.Endpoint
		}
	default:
		return nil, fmt.Errorf("openai: unsupported mode %q", cfg.Mode)
	}

	return &Client{
		client: openai.NewClientWithConfig(config),
		model:  cfg.Model,
		mode:   mode,
	}, nil
}

func isAzureOpenAIEndpoint(endpoint string) bool {
	u, err := url.Parse(endpoint)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(u.Hostname()), ".openai.azure.com")
}

// inferenceTransport adds what Azure AI Inference expects on top of an
// OpenAI-style request: the api-key header and the api-version query.
type inferenceTransport struct {
	base       http.RoundTripper
	apiKey     string
	apiVersion string
}

func (t *inferenceTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("api-key", t.apiKey)
	q := req.URL.Query()
	q.Set("api-version", t.apiVersion)
	req.URL.RawQuery = q.Encode()
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

// Generate sends a single user prompt.
func (c *Client) Generate(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
	messages := []llm.Message{
		{Role: llm.RoleUser, Content: prompt},
	}
	return c.GenerateWithMessages(ctx, messages, opts...)
}

// GenerateWithMessages sends the whole conversation and returns the first
// choice's content.
func (c *Client) GenerateWithMessages(ctx context.Context, messages []llm.Message, opts ...llm.GenerateOption) (string, error) {
	options := llm.ApplyGenerateOptions(opts)

	chatMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		chatMessages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	temperature := float32(options.Temperature)
	if temperature == 0 {
		// The SDK omits a zero temperature, which the API reads as its default of 1.
		temperature = math.SmallestNonzeroFloat32
	}

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    chatMessages,
		Temperature: temperature,
		MaxTokens:   options.MaxTokens,
		TopP:        float32(options.TopP),
		Stop:        options.Stop,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}

	return resp.Choices[0].Message.Content, nil
}

// Close is a no-op; the SDK client holds no resources that need releasing.
func (c *Client) Close() error {
	return nil
}
