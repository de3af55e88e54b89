package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"

	"github.com/whizardlm/whizard-api/internal/models"
)

const (
	// DefaultOpenAIModel is the default model to use
	DefaultOpenAIModel = "gpt-4o-mini"
	// DefaultEmbeddingModel is the default embedding model
	DefaultEmbeddingModel = "text-embedding-3-small"
	// DefaultOpenAIBaseURL is the default OpenAI API base URL
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	// DefaultTimeout is the default timeout for API calls. A stalled
	// provider call fails the whole operation when this elapses.
	DefaultTimeout = 60 * time.Second

	// ErrNoChoicesInResponse is returned when the API response has no choices
	ErrNoChoicesInResponse = "no choices in response"

	// maxHistoryTurns caps how much conversation history is replayed to
	// the provider on each chat turn
	maxHistoryTurns = 20
)

// OpenAIProvider implements Generator and EmbeddingProvider using
// OpenAI's API
type OpenAIProvider struct {
	client         openai.Client
	model          string
	embeddingModel string
	logger         *zap.Logger
	debugMode      bool
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(apiKey string, model string) *OpenAIProvider {
	return NewOpenAIProviderWithLogger(apiKey, DefaultOpenAIBaseURL, model, nil, false)
}

// NewOpenAIProviderWithLogger creates a new OpenAI provider with logger support
func NewOpenAIProviderWithLogger(apiKey string, baseURL string, model string, logger *zap.Logger, debugMode bool) *OpenAIProvider {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}

	httpClient := &http.Client{
		Timeout: DefaultTimeout,
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(httpClient),
	)

	return &OpenAIProvider{
		client:         client,
		model:          model,
		embeddingModel: DefaultEmbeddingModel,
		logger:         logger,
		debugMode:      debugMode,
	}
}

// SetEmbeddingModel overrides the embedding model. Changing it after
// chunks have been indexed invalidates the stored vectors.
func (p *OpenAIProvider) SetEmbeddingModel(model string) {
	if model != "" {
		p.embeddingModel = model
	}
}

// Generate produces free-form text for a prompt
func (p *OpenAIProvider) Generate(ctx context.Context, prompt string) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage(prompt),
	}
	req := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.model),
		Messages: messages,
	}

	requestID := ExtractRequestID(ctx)
	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_request",
			zap.String("operation", "generate"),
			zap.String("model", p.model),
			zap.Int("prompt_length", len(prompt)),
			zap.String("prompt_preview", SanitizePrompt(prompt, true)),
			zap.String("request_id", requestID),
		)
	}

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, req)
	latency := time.Since(start)
	if err != nil {
		if p.logger != nil && p.debugMode {
			p.logger.Debug("llm_api_error",
				zap.String("operation", "generate"),
				zap.String("model", p.model),
				zap.Error(err),
				zap.String("request_id", requestID),
				zap.Duration("latency_ms", latency),
			)
		}
		if apiErr := ExtractAPIError(err); apiErr != nil {
			return "", fmt.Errorf("%w: %w", ErrGeneration, apiErr)
		}
		return "", fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: %s", ErrGeneration, ErrNoChoicesInResponse)
	}

	content := resp.Choices[0].Message.Content
	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_response",
			zap.String("operation", "generate"),
			zap.String("model", p.model),
			zap.Int("response_length", len(content)),
			zap.String("response_preview", SanitizeResponse(content, true)),
			zap.String("request_id", requestID),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}

	return strings.TrimSpace(content), nil
}

// ChatReply produces a Socratic tutoring reply. Retrieved chunks become
// system context; prior turns are replayed as chat history.
func (p *OpenAIProvider) ChatReply(ctx context.Context, userInput string, retrieved []string, history []*models.ChatMessage) (string, error) {
	systemContent := socraticChatPrompt
	if len(retrieved) > 0 {
		systemContent += "\n\nCONTEXT (use this to inform your questions and examples, referencing the student's uploaded materials):\n" +
			strings.Join(retrieved, "\n\n")
	}

	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	messages = append(messages, openai.SystemMessage(systemContent))
	for _, msg := range history {
		switch msg.MessageType {
		case models.MessageTypeAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}
	messages = append(messages, openai.UserMessage(strings.TrimSpace(userInput)))

	req := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.model),
		Messages: messages,
	}

	resp, err := p.client.Chat.Completions.New(ctx, req)
	if err != nil {
		if apiErr := ExtractAPIError(err); apiErr != nil {
			return "", fmt.Errorf("%w: %w", ErrGeneration, apiErr)
		}
		return "", fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: %s", ErrGeneration, ErrNoChoicesInResponse)
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Embed turns texts into embedding vectors
func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(p.embeddingModel),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to embed texts: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, errors.New("embedding response does not match input count")
	}

	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		vectors[i] = vec
	}

	return vectors, nil
}
