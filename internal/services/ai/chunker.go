package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Chunker splits raw source text into topic-labeled chunks by calling the
// generative provider. It is pure orchestration: no retries, no storage.
type Chunker struct {
	generator Generator
	logger    *zap.Logger
}

// NewChunker creates a new chunker
func NewChunker(generator Generator, logger *zap.Logger) *Chunker {
	return &Chunker{generator: generator, logger: logger}
}

type chunkItem struct {
	Topic   string `json:"topic"`
	Content string `json:"content"`
}

// ChunkWithTopics sends each raw text block to the provider and collects
// the resulting (topic, content) pairs into index-aligned slices, so
// topics[i] labels chunks[i]. Items with empty content are dropped
// without failing the batch.
func (c *Chunker) ChunkWithTopics(ctx context.Context, contents []string) (chunks, topics []string, err error) {
	for _, content := range contents {
		raw, err := c.generator.Generate(ctx, chunkTopicsPrompt+content)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to generate chunks and topics: %w", err)
		}

		items, err := parseChunkItems(raw)
		if err != nil {
			return nil, nil, err
		}

		for _, item := range items {
			text := strings.TrimSpace(item.Content)
			if text == "" {
				continue
			}
			chunks = append(chunks, text)
			topics = append(topics, item.Topic)
		}
	}

	c.logger.Debug("chunked_content",
		zap.Int("blocks", len(contents)),
		zap.Int("chunks", len(chunks)),
	)

	return chunks, topics, nil
}

func parseChunkItems(raw string) ([]chunkItem, error) {
	cleaned := StripCodeFence(raw)

	var items []chunkItem
	if err := json.Unmarshal([]byte(cleaned), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return items, nil
}

// StripCodeFence removes an enclosing markdown code fence, with or
// without a language tag, from a provider response. Responses without a
// fence pass through unchanged.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)

	if idx := strings.Index(s, "```json"); idx != -1 {
		start := idx + len("```json")
		if end := strings.Index(s[start:], "```"); end != -1 {
			return strings.TrimSpace(s[start : start+end])
		}
	}
	if idx := strings.Index(s, "```"); idx != -1 {
		start := idx + len("```")
		if end := strings.Index(s[start:], "```"); end != -1 {
			return strings.TrimSpace(s[start : start+end])
		}
	}

	return s
}
