package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/whizardlm/whizard-api/internal/database"
	"github.com/whizardlm/whizard-api/internal/ingest"
	"github.com/whizardlm/whizard-api/internal/middleware"
	"github.com/whizardlm/whizard-api/internal/models"
	"github.com/whizardlm/whizard-api/internal/validation"
)

const (
	// MaxSourceTextLength caps inline text payloads per item
	MaxSourceTextLength = 500000
	// MaxItemsPerUpload caps the number of items in one upload batch
	MaxItemsPerUpload = 20
)

// Ingestor runs the ingest pipeline for an upload batch
type Ingestor interface {
	Ingest(ctx context.Context, scope models.TenantScope, projectID uuid.UUID, title string, items []ingest.SourceItem) (*ingest.Result, error)
}

// IngestHandler handles source upload requests
type IngestHandler struct {
	ingestor    Ingestor
	projectRepo database.ProjectStore
}

// NewIngestHandler creates a new ingest handler
func NewIngestHandler(ingestor Ingestor, projectRepo database.ProjectStore) *IngestHandler {
	return &IngestHandler{ingestor: ingestor, projectRepo: projectRepo}
}

// RegisterRoutes registers ingest routes on the given router
func (h *IngestHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.Ingest).Methods("POST")
}

// UploadItem is one item of an upload batch
type UploadItem struct {
	Name string `json:"name" validate:"required,min=1,max=300"`
	Type string `json:"type" validate:"required,source_type"`
	Text string `json:"text,omitempty"`
	URL  string `json:"url,omitempty"`
}

// IngestRequest represents an upload batch
type IngestRequest struct {
	ProjectID uuid.UUID    `json:"project_id" validate:"required"`
	Title     string       `json:"title,omitempty"`
	Items     []UploadItem `json:"items" validate:"required,min=1,dive"`
}

// Ingest processes an upload batch: extraction, chunking, topic merge,
// vector indexing, and relational bookkeeping
func (h *IngestHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if maxBytesErr, ok := err.(*http.MaxBytesError); ok {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	if err := validation.Validate.Struct(req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, fieldError := range validationErrors {
				respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Validation failed: %s", fieldError.Error()))
				return
			}
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed")
		return
	}

	if len(req.Items) > MaxItemsPerUpload {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Upload exceeds maximum of %d items", MaxItemsPerUpload))
		return
	}

	scope := models.NewScope(user.ID)

	// The project must exist and belong to the caller before anything is
	// extracted or indexed
	if _, err := h.projectRepo.GetByID(r.Context(), scope, req.ProjectID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Project not found")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve project")
		return
	}

	items := make([]ingest.SourceItem, 0, len(req.Items))
	for _, item := range req.Items {
		if len(item.Text) > MaxSourceTextLength {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Item %q exceeds maximum text length of %d", item.Name, MaxSourceTextLength))
			return
		}
		items = append(items, ingest.SourceItem{
			Name: validation.SanitizeText(item.Name),
			Type: models.SourceType(item.Type),
			Text: item.Text,
			URL:  item.URL,
		})
	}

	title := validation.SanitizeText(req.Title)
	if title == "" {
		title = items[0].Name
	}

	result, err := h.ingestor.Ingest(r.Context(), scope, req.ProjectID, title, items)
	if err != nil {
		if errors.Is(err, ingest.ErrNoUsableSources) {
			respondJSONError(w, http.StatusUnprocessableEntity, "Unprocessable Entity", "No usable sources in upload")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to ingest sources")
		return
	}

	// Best effort, the upload already succeeded
	_ = h.projectRepo.Touch(r.Context(), scope, req.ProjectID)

	respondJSON(w, http.StatusCreated, result)
}
