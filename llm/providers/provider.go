package providers

import (
	"context"
	"fmt"

	openaiEmbed "github.com/cloudwego/eino-ext/components/embedding/openai"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	openaiModel "github.com/cloudwego/eino-ext/components/model/openai"
	einoEmbedding "github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"
)

// ChatModelConfig defines the configuration for creating a chat model.
type ChatModelConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
}

// NewChatModel creates an OpenAI-compatible chat model from specific configuration.
func NewChatModel(ctx context.Context, config *ChatModelConfig) (model.ToolCallingChatModel, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("API key is required in config")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	modelName := config.Model
	if modelName == "" {
		modelName = "gpt-4o-mini"
	}

	cfg := &openaiModel.ChatModelConfig{
		APIKey:  config.APIKey,
		BaseURL: baseURL,
		Model:   modelName,
	}
	if config.Temperature > 0 {
		temp := config.Temperature
		cfg.Temperature = &temp
	}
	if config.MaxTokens > 0 {
		maxTokens := config.MaxTokens
		cfg.MaxTokens = &maxTokens
	}
	return openaiModel.NewChatModel(ctx, cfg)
}

// NewGeminiModel creates a Gemini chat model from specific configuration.
func NewGeminiModel(ctx context.Context, config *ChatModelConfig) (model.ToolCallingChatModel, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("API key is required in config")
	}

	modelName := config.Model
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: config.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	// Temperature and token limits are applied per request through model
	// options, so the config stays minimal.
	return gemini.NewChatModel(ctx, &gemini.Config{
		Client: client,
		Model:  modelName,
	})
}

// EmbeddingConfig defines the configuration for creating an embedding model.
type EmbeddingConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// NewEmbeddingModel creates an OpenAI-compatible embedding model from specific configuration.
func NewEmbeddingModel(ctx context.Context, config *EmbeddingConfig) (einoEmbedding.Embedder, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("API key is required in config")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	modelName := config.Model
	if modelName == "" {
		modelName = "text-embedding-3-small"
	}

	return openaiEmbed.NewEmbedder(ctx, &openaiEmbed.EmbeddingConfig{
		APIKey:  config.APIKey,
		BaseURL: baseURL,
		Model:   modelName,
	})
}
