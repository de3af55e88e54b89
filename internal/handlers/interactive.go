package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/whizardlm/whizard-api/internal/database"
	"github.com/whizardlm/whizard-api/internal/middleware"
	"github.com/whizardlm/whizard-api/internal/models"
	"github.com/whizardlm/whizard-api/internal/services/ai"
	"github.com/whizardlm/whizard-api/internal/validation"
)

const (
	// DefaultHistoryLimit is the default number of history rows returned
	DefaultHistoryLimit = 20
	// MaxHistoryLimit caps the history page size
	MaxHistoryLimit = 100
)

// ProjectRetriever collects project chunks labeled with given topics
type ProjectRetriever interface {
	ByProjectTopics(ctx context.Context, scope models.TenantScope, projectID uuid.UUID, topics []string) ([]string, error)
}

// ArtifactMaker produces a validated artifact payload of a content type
type ArtifactMaker interface {
	Generate(ctx context.Context, contentType models.ContentType, sourceText string) (json.RawMessage, error)
}

// InteractiveHandler handles learning artifact generation and retrieval
type InteractiveHandler struct {
	interactiveRepo database.InteractiveStore
	topicRepo       database.TopicStore
	retriever       ProjectRetriever
	artifacts       ArtifactMaker
	logger          *zap.Logger
}

// NewInteractiveHandler creates a new interactive content handler
func NewInteractiveHandler(
	interactiveRepo database.InteractiveStore,
	topicRepo database.TopicStore,
	retriever ProjectRetriever,
	artifacts ArtifactMaker,
	logger *zap.Logger,
) *InteractiveHandler {
	return &InteractiveHandler{
		interactiveRepo: interactiveRepo,
		topicRepo:       topicRepo,
		retriever:       retriever,
		artifacts:       artifacts,
		logger:          logger,
	}
}

// RegisterRoutes registers interactive content routes on the given router
func (h *InteractiveHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.Generate).Methods("POST")
	r.HandleFunc("/{id}", h.Get).Methods("GET")
	r.HandleFunc("/projects/{project_id}/history", h.History).Methods("GET")
}

// GenerateRequest asks for an artifact over a project's topics. With no
// topics given, the project's whole topic set is used.
type GenerateRequest struct {
	ProjectID   uuid.UUID `json:"project_id" validate:"required"`
	ContentType string    `json:"content_type" validate:"required,content_type"`
	Topics      []string  `json:"topics,omitempty"`
}

// Generate retrieves the project content for the requested topics, asks
// the provider for the artifact, validates it and persists it with a
// history row.
func (h *InteractiveHandler) Generate(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
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

	ctx := r.Context()
	scope := models.NewScope(user.ID)
	contentType := models.ContentType(req.ContentType)

	topics := req.Topics
	if len(topics) == 0 {
		set, err := h.topicRepo.Read(ctx, scope, req.ProjectID)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				respondJSONError(w, http.StatusUnprocessableEntity, "Unprocessable Entity", "Project has no topics yet")
				return
			}
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve topics")
			return
		}
		topics = set.Topics
	}

	documents, err := h.retriever.ByProjectTopics(ctx, scope, req.ProjectID, topics)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve project content")
		return
	}
	if len(documents) == 0 {
		respondJSONError(w, http.StatusUnprocessableEntity, "Unprocessable Entity", "No content found for the requested topics")
		return
	}

	payload, err := h.artifacts.Generate(ctx, contentType, strings.Join(documents, "\n\n"))
	if err != nil {
		switch {
		case errors.Is(err, ai.ErrNotSuitable):
			respondJSONError(w, http.StatusUnprocessableEntity, "Unprocessable Entity", "Content is not suitable for this artifact type")
		case errors.Is(err, ai.ErrMalformedResponse):
			respondJSONError(w, http.StatusBadGateway, "Bad Gateway", "Provider returned an invalid artifact")
		default:
			respondJSONError(w, http.StatusBadGateway, "Bad Gateway", "Failed to generate artifact")
		}
		return
	}

	content := &models.InteractiveContent{
		InteractID:  uuid.New(),
		ProjectID:   req.ProjectID,
		ContentType: contentType,
		ContentJSON: payload,
		TopicsUsed:  topics,
		UserID:      user.ID,
		CreatedAt:   time.Now(),
	}

	if err := h.interactiveRepo.WriteContent(ctx, scope, content); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to save artifact")
		return
	}

	h.logger.Info("artifact_generated",
		zap.String("interact_id", content.InteractID.String()),
		zap.String("content_type", string(contentType)),
		zap.Int("topics", len(topics)),
	)

	respondJSON(w, http.StatusCreated, content)
}

// Get fetches one artifact by interact_id, scoped to the caller
func (h *InteractiveHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	interactID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid artifact ID")
		return
	}

	content, err := h.interactiveRepo.GetContent(r.Context(), models.NewScope(user.ID), interactID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Artifact not found")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve artifact")
		return
	}

	respondJSON(w, http.StatusOK, content)
}

// History lists a project's generation history, most recent first
func (h *InteractiveHandler) History(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	projectID, err := uuid.Parse(mux.Vars(r)["project_id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid project ID")
		return
	}

	limit := DefaultHistoryLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
			if limit > MaxHistoryLimit {
				limit = MaxHistoryLimit
			}
		}
	}

	history, err := h.interactiveRepo.History(r.Context(), models.NewScope(user.ID), projectID, limit)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve history")
		return
	}

	respondJSON(w, http.StatusOK, history)
}
