package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/whizardlm/whizard-api/internal/database"
	"github.com/whizardlm/whizard-api/internal/middleware"
	"github.com/whizardlm/whizard-api/internal/models"
	"github.com/whizardlm/whizard-api/internal/validation"
)

const (
	// MaxProjectNameLength is the maximum length for a project name
	MaxProjectNameLength = 200
)

// ProjectHandler handles project-related requests
type ProjectHandler struct {
	projectRepo database.ProjectStore
	topicRepo   database.TopicStore
	sourceRepo  database.SourceCatalog
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(projectRepo database.ProjectStore, topicRepo database.TopicStore, sourceRepo database.SourceCatalog) *ProjectHandler {
	return &ProjectHandler{
		projectRepo: projectRepo,
		topicRepo:   topicRepo,
		sourceRepo:  sourceRepo,
	}
}

// RegisterRoutes registers project routes on the given router
// The router should already have the /projects prefix
func (h *ProjectHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListProjects).Methods("GET")
	r.HandleFunc("", h.CreateProject).Methods("POST")
	r.HandleFunc("/{id}", h.GetProject).Methods("GET")
	r.HandleFunc("/{id}/topics", h.GetTopics).Methods("GET")
	r.HandleFunc("/{id}/sources", h.ListSources).Methods("GET")
}

// CreateProjectRequest represents a create project request
type CreateProjectRequest struct {
	Name string `json:"name" validate:"required,min=1,max=200"`
}

// CreateProject creates a new project for the authenticated user
func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req CreateProjectRequest
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

	req.Name = validation.SanitizeText(req.Name)
	if req.Name == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Name is required and cannot be empty after sanitization")
		return
	}

	scope := models.NewScope(user.ID)
	project := &models.Project{
		ID:             uuid.New(),
		UserID:         user.ID,
		Name:           req.Name,
		CreatedAt:      time.Now(),
		LastAccessedAt: time.Now(),
	}

	if err := h.projectRepo.Create(r.Context(), scope, project); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create project")
		return
	}

	respondJSON(w, http.StatusCreated, project)
}

// ListProjects lists the authenticated user's projects
func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	projects, err := h.projectRepo.ListByUser(r.Context(), models.NewScope(user.ID))
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve projects")
		return
	}

	respondJSON(w, http.StatusOK, projects)
}

// GetProject returns one project by id, scoped to the authenticated user
func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	projectID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid project ID")
		return
	}

	project, err := h.projectRepo.GetByID(r.Context(), models.NewScope(user.ID), projectID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Project not found")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve project")
		return
	}

	respondJSON(w, http.StatusOK, project)
}

// GetTopics returns the project's topic set. A project that exists but has
// no uploads yet yields an empty list, not a 404.
func (h *ProjectHandler) GetTopics(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	projectID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid project ID")
		return
	}

	scope := models.NewScope(user.ID)
	if _, err := h.projectRepo.GetByID(r.Context(), scope, projectID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Project not found")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve project")
		return
	}

	set, err := h.topicRepo.Read(r.Context(), scope, projectID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondJSON(w, http.StatusOK, map[string]any{"project_id": projectID, "topics": []string{}})
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve topics")
		return
	}

	respondJSON(w, http.StatusOK, set)
}

// ListSources lists the project's ingested sources
func (h *ProjectHandler) ListSources(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	projectID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid project ID")
		return
	}

	sources, err := h.sourceRepo.ListByProject(r.Context(), models.NewScope(user.ID), projectID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve sources")
		return
	}

	respondJSON(w, http.StatusOK, sources)
}
