package llm

import (
	"context"
	"errors"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Config holds provider settings for the OpenAI client.
type Config struct {
	APIKey     string
	BaseURL    string        // optional override for OpenAI-compatible gateways
	EmbedModel string        // defaults to text-embedding-3-small
	ChatModel  string        // defaults to gpt-4o-mini
	Timeout    time.Duration // per-call ceiling, defaults to 60s
}

// OpenAIClient implements Embedder and Completer against the OpenAI API.
type OpenAIClient struct {
	client     *openai.Client
	embedModel string
	chatModel  string
	timeout    time.Duration
}

// NewOpenAIClient constructs a provider client. The API key is required;
// all other settings fall back to defaults.
func NewOpenAIClient(cfg Config) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llm: API key is required")
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = "text-embedding-3-small"
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &OpenAIClient{
		client:     openai.NewClientWithConfig(oc),
		embedModel: cfg.EmbedModel,
		chatModel:  cfg.ChatModel,
		timeout:    cfg.Timeout,
	}, nil
}

// Embed returns the embedding vector for text.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(c.embedModel),
	})
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, &Error{Kind: KindProviderFault, Err: errors.New("no embedding returned")}
	}
	return resp.Data[0].Embedding, nil
}

// Complete sends the assembled context and returns the assistant reply text.
func (c *OpenAIClient) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	converted := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		converted[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.chatModel,
		Messages: converted,
	})
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", &Error{Kind: KindProviderFault, Err: errors.New("no completion choices returned")}
	}
	return resp.Choices[0].Message.Content, nil
}
