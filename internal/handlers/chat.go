package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/whizardlm/whizard-api/internal/database"
	"github.com/whizardlm/whizard-api/internal/middleware"
	"github.com/whizardlm/whizard-api/internal/models"
	"github.com/whizardlm/whizard-api/internal/validation"
)

const (
	// MaxChatMessageLength is the maximum length for a chat message
	MaxChatMessageLength = 10000
	// DefaultRetrievalLimit is how many chunks ground a chat reply
	DefaultRetrievalLimit = 5
	// conversationTitleLength is how much of the first message becomes the title
	conversationTitleLength = 60
)

// ConversationRetriever runs conversation-scoped semantic retrieval
type ConversationRetriever interface {
	ByConversation(ctx context.Context, scope models.TenantScope, conversationID uuid.UUID, queryText string, limit int) ([]string, error)
}

// Replier produces a tutoring reply from retrieved context and history
type Replier interface {
	ChatReply(ctx context.Context, userInput string, retrieved []string, history []*models.ChatMessage) (string, error)
}

// ChatHandler handles tutoring chat requests
type ChatHandler struct {
	convRepo  database.ConversationStore
	retriever ConversationRetriever
	replier   Replier
	logger    *zap.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(convRepo database.ConversationStore, retriever ConversationRetriever, replier Replier, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		convRepo:  convRepo,
		retriever: retriever,
		replier:   replier,
		logger:    logger,
	}
}

// RegisterRoutes registers chat routes on the given router
func (h *ChatHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.Chat).Methods("POST")
	r.HandleFunc("/conversations", h.ListConversations).Methods("GET")
	r.HandleFunc("/conversations/{id}/messages", h.ListMessages).Methods("GET")
}

// ChatRequest represents one chat turn
type ChatRequest struct {
	ConversationID *uuid.UUID `json:"conversation_id,omitempty"`
	ProjectID      *uuid.UUID `json:"project_id,omitempty"`
	Message        string     `json:"message" validate:"required,min=1,max=10000"`
}

// ChatResponse is the generated reply with the conversation it belongs to
type ChatResponse struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	Reply          string    `json:"reply"`
}

// Chat handles one tutoring turn: the conversation is created lazily on
// the first message, the user message persisted, the reply grounded in
// conversation-scoped retrieval, and the assistant message persisted.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req ChatRequest
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

	message := validation.SanitizeText(req.Message)
	if message == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Message cannot be empty after sanitization")
		return
	}

	ctx := r.Context()
	scope := models.NewScope(user.ID)

	var conversationID uuid.UUID
	var history []*models.ChatMessage

	if req.ConversationID != nil {
		conv, err := h.convRepo.GetByID(ctx, scope, *req.ConversationID)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				respondJSONError(w, http.StatusNotFound, "Not Found", "Conversation not found")
				return
			}
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve conversation")
			return
		}
		conversationID = conv.ID

		history, err = h.convRepo.ListMessages(ctx, scope, conversationID)
		if err != nil {
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve history")
			return
		}
	} else {
		conversationID = uuid.New()
		conv := &models.Conversation{
			ID:        conversationID,
			Title:     conversationTitle(message),
			UserID:    user.ID,
			ProjectID: req.ProjectID,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		if err := h.convRepo.Create(ctx, scope, conv); err != nil {
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create conversation")
			return
		}
	}

	userMsg := &models.ChatMessage{
		ID:             uuid.New(),
		ConversationID: conversationID,
		MessageType:    models.MessageTypeUser,
		Content:        message,
		UserID:         user.ID,
		Timestamp:      time.Now(),
	}
	if err := h.convRepo.AppendMessage(ctx, scope, userMsg); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to save message")
		return
	}

	retrieved, err := h.retriever.ByConversation(ctx, scope, conversationID, message, DefaultRetrievalLimit)
	if err != nil {
		h.logger.Warn("chat_retrieval_failed",
			zap.String("conversation_id", conversationID.String()),
			zap.Error(err),
		)
		// A reply without grounding beats no reply
		retrieved = nil
	}

	reply, err := h.replier.ChatReply(ctx, message, retrieved, history)
	if err != nil {
		respondJSONError(w, http.StatusBadGateway, "Bad Gateway", "Failed to generate reply")
		return
	}

	assistantMsg := &models.ChatMessage{
		ID:             uuid.New(),
		ConversationID: conversationID,
		MessageType:    models.MessageTypeAssistant,
		Content:        reply,
		UserID:         user.ID,
		Timestamp:      time.Now(),
	}
	if err := h.convRepo.AppendMessage(ctx, scope, assistantMsg); err != nil {
		h.logger.Error("assistant_message_save_failed",
			zap.String("conversation_id", conversationID.String()),
			zap.Error(err),
		)
		// The reply was generated; return it even if persisting failed
	}

	respondJSON(w, http.StatusOK, ChatResponse{
		ConversationID: conversationID,
		Reply:          reply,
	})
}

// ListConversations lists the authenticated user's conversations
func (h *ChatHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	conversations, err := h.convRepo.ListByUser(r.Context(), models.NewScope(user.ID))
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve conversations")
		return
	}

	respondJSON(w, http.StatusOK, conversations)
}

// ListMessages lists a conversation's messages, oldest first
func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	conversationID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid conversation ID")
		return
	}

	scope := models.NewScope(user.ID)
	if _, err := h.convRepo.GetByID(r.Context(), scope, conversationID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Conversation not found")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve conversation")
		return
	}

	messages, err := h.convRepo.ListMessages(r.Context(), scope, conversationID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve messages")
		return
	}

	respondJSON(w, http.StatusOK, messages)
}

func conversationTitle(message string) string {
	if utf8.RuneCountInString(message) <= conversationTitleLength {
		return message
	}
	runes := []rune(message)
	return string(runes[:conversationTitleLength]) + "..."
}
