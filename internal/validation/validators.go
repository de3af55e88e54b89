package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/whizardlm/whizard-api/internal/models"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validators for enums
	// These should never fail in normal operation, but log if they do
	if err := Validate.RegisterValidation("source_type", validateSourceType); err != nil {
		panic(fmt.Sprintf("failed to register source_type validator: %v", err))
	}
	if err := Validate.RegisterValidation("content_type", validateContentType); err != nil {
		panic(fmt.Sprintf("failed to register content_type validator: %v", err))
	}
	if err := Validate.RegisterValidation("message_type", validateMessageType); err != nil {
		panic(fmt.Sprintf("failed to register message_type validator: %v", err))
	}
}

// validateSourceType validates that a string is a valid SourceType enum value
func validateSourceType(fl validator.FieldLevel) bool {
	switch models.SourceType(fl.Field().String()) {
	case models.SourceTypePDF, models.SourceTypeText, models.SourceTypeYouTube:
		return true
	default:
		return false
	}
}

// validateContentType validates that a string is a valid ContentType enum value
func validateContentType(fl validator.FieldLevel) bool {
	return models.ValidContentType(models.ContentType(fl.Field().String()))
}

// validateMessageType validates that a string is a valid MessageType enum value
func validateMessageType(fl validator.FieldLevel) bool {
	switch models.MessageType(fl.Field().String()) {
	case models.MessageTypeUser, models.MessageTypeAssistant:
		return true
	default:
		return false
	}
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	// Trim whitespace
	text = strings.TrimSpace(text)

	// Remove control characters except newline and tab
	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateSourceType validates a SourceType string value
func ValidateSourceType(value string) error {
	switch models.SourceType(value) {
	case models.SourceTypePDF, models.SourceTypeText, models.SourceTypeYouTube:
		return nil
	default:
		return fmt.Errorf("invalid source type: %s (must be 'pdf', 'text', or 'youtube')", value)
	}
}

// ValidateContentType validates a ContentType string value
func ValidateContentType(value string) error {
	if !models.ValidContentType(models.ContentType(value)) {
		return fmt.Errorf("invalid content type: %s (must be 'quiz', 'timeline', 'mindmap', or 'flashcard')", value)
	}
	return nil
}
