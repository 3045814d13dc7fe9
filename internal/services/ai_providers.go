package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/collabspace/server/internal/config"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ollama/ollama/api"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// ProviderClient is one generative backend. Implementations are constructed
// once at startup and injected into the orchestrator.
type ProviderClient interface {
	Name() string
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// NewProviderClient builds a client for the configured provider. A config
// with an empty provider name yields (nil, nil): that slot is unconfigured.
func NewProviderClient(cfg *config.ProviderConfig) (ProviderClient, error) {
	switch cfg.Provider {
	case "":
		return nil, nil
	case "anthropic":
		return newAnthropicProvider(cfg), nil
	case "gemini":
		return newGeminiProvider(cfg)
	case "ollama":
		return newOllamaProvider(cfg)
	case "azure":
		return newAzureProvider(cfg), nil
	default:
		// openai and other OpenAI-compatible services
		return newOpenAIProvider(cfg), nil
	}
}

// --- OpenAI / OpenAI-compatible ---

type openAIProvider struct {
	client *openai.Client
	model  string
	name   string
}

func newOpenAIProvider(cfg *config.ProviderConfig) *openAIProvider {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o"
	}

	return &openAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
		name:   cfg.Provider,
	}
}

// newAzureProvider builds an OpenAI client with Azure configuration.
// BaseURL format: https://{resource-name}.openai.azure.com; Model is the
// deployment name.
func newAzureProvider(cfg *config.ProviderConfig) *openAIProvider {
	clientConfig := openai.DefaultAzureConfig(cfg.APIKey, cfg.BaseURL)
	return &openAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
		name:   "azure",
	}
}

func (p *openAIProvider) Name() string { return p.name }

func (p *openAIProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("%s API error: %w", p.name, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from %s", p.name)
	}

	return resp.Choices[0].Message.Content, nil
}

// --- Anthropic ---

type anthropicProvider struct {
	client anthropic.Client
	model  string
}

func newAnthropicProvider(cfg *config.ProviderConfig) *anthropicProvider {
	model := cfg.Model
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}

	return &anthropicProvider{
		client: anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:  model,
	}
}

func (p *anthropicProvider) Name() string { return "anthropic" }

func (p *anthropicProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: 4096,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("Anthropic API error: %w", err)
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}

	return content, nil
}

// --- Gemini ---

type geminiProvider struct {
	client *genai.Client
	model  string
}

func newGeminiProvider(cfg *config.ProviderConfig) (*geminiProvider, error) {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("Gemini client error: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-3.0-flash"
	}

	return &geminiProvider{client: client, model: model}, nil
}

func (p *geminiProvider) Name() string { return "gemini" }

func (p *geminiProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	// The prompt is prefixed with the system instruction; the text API has
	// no separate system slot worth the extra config here.
	prompt := systemPrompt + "\n\n" + userPrompt
	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	return resp.Text(), nil
}

// --- Ollama ---

type ollamaProvider struct {
	client *api.Client
	model  string
}

func newOllamaProvider(cfg *config.ProviderConfig) (*ollamaProvider, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama base URL: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "llama3"
	}

	return &ollamaProvider{
		client: api.NewClient(u, http.DefaultClient),
		model:  model,
	}, nil
}

func (p *ollamaProvider) Name() string { return "ollama" }

func (p *ollamaProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var content strings.Builder
	err := p.client.Chat(ctx, &api.ChatRequest{
		Model: p.model,
		Messages: []api.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("Ollama API error: %w", err)
	}

	return content.String(), nil
}
