package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/whizardlm/whizard-api/internal/models"
)

// ErrExtraction indicates a source could not be turned into plain text.
// Surfaced to the caller, never retried here. Within a batch an item that
// fails extraction is skipped, not fatal.
var ErrExtraction = errors.New("extraction failed")

// SourceItem is one uploaded item before extraction
type SourceItem struct {
	Name string
	Type models.SourceType
	Text string // inline text payload, when present
	URL  string // source URL for youtube items
}

// Extractor turns an uploaded item into plain text. PDF and video
// transcript extraction live outside this service behind the same
// interface.
type Extractor interface {
	Extract(ctx context.Context, item SourceItem) (string, error)
}

// TextExtractor handles inline text sources. It normalizes whitespace and
// strips the artifacts that tend to survive upstream converters.
type TextExtractor struct{}

// Extract returns the cleaned inline text of the item
func (TextExtractor) Extract(_ context.Context, item SourceItem) (string, error) {
	if item.Type != models.SourceTypeText {
		return "", fmt.Errorf("%w: unsupported source type %q", ErrExtraction, item.Type)
	}

	text := CleanExtractedText(item.Text)
	if text == "" {
		return "", fmt.Errorf("%w: source %q contains no text", ErrExtraction, item.Name)
	}

	return text, nil
}

// CleanExtractedText collapses whitespace and removes null and
// replacement characters left behind by document converters.
func CleanExtractedText(text string) string {
	text = strings.ReplaceAll(text, "\x00", "")
	text = strings.ReplaceAll(text, "�", "")
	return strings.Join(strings.Fields(text), " ")
}
