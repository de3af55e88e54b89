package ai

import (
	"context"
	"fmt"

	"github.com/whizardlm/whizard-api/internal/models"
)

// Generator is the interface to the generative content service. The core
// treats it as prompt in, text out; parsing and validation happen here,
// on our side of the boundary.
type Generator interface {
	// Generate produces free-form text for a prompt
	Generate(ctx context.Context, prompt string) (string, error)

	// ChatReply produces a tutoring reply given retrieved context and the
	// prior turns of the conversation
	ChatReply(ctx context.Context, userInput string, retrieved []string, history []*models.ChatMessage) (string, error)
}

// EmbeddingProvider turns texts into embedding vectors
type EmbeddingProvider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// ProviderFactory creates a generator from provider-specific config
type ProviderFactory func(config map[string]string) (Generator, error)

// ProviderRegistry stores available generative providers
type ProviderRegistry struct {
	providers map[string]ProviderFactory
}

// NewProviderRegistry creates a new provider registry
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		providers: make(map[string]ProviderFactory),
	}
}

// Register registers a provider factory
func (r *ProviderRegistry) Register(name string, factory ProviderFactory) {
	r.providers[name] = factory
}

// GetProvider gets a provider by name
func (r *ProviderRegistry) GetProvider(name string, config map[string]string) (Generator, error) {
	factory, ok := r.providers[name]
	if !ok {
		return nil, &ErrProviderNotFound{Name: name}
	}

	return factory(config)
}

// ErrProviderNotFound is returned when a provider is not found
type ErrProviderNotFound struct {
	Name string
}

func (e *ErrProviderNotFound) Error() string {
	return "AI provider not found: " + e.Name
}

// RegisterOpenAI registers the OpenAI provider factory
func RegisterOpenAI(r *ProviderRegistry) {
	r.Register("openai", func(config map[string]string) (Generator, error) {
		apiKey := config["api_key"]
		if apiKey == "" {
			return nil, fmt.Errorf("api_key is required for OpenAI provider")
		}

		provider := NewOpenAIProviderWithLogger(apiKey, config["base_url"], config["model"], nil, false)
		provider.SetEmbeddingModel(config["embedding_model"])
		return provider, nil
	})
}
