package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/aiox-platform/contextflow/internal/api"
	"github.com/aiox-platform/contextflow/internal/auth"
	"github.com/aiox-platform/contextflow/internal/memory"
	inats "github.com/aiox-platform/contextflow/internal/nats"
)

// Publisher queues knowledge events.
type Publisher interface {
	PublishKnowledge(ctx context.Context, ev inats.KnowledgeEvent) error
}

// Handler accepts knowledge for asynchronous ingestion.
type Handler struct {
	publisher Publisher
	validate  *validator.Validate
}

// NewHandler creates a new ingest handler.
func NewHandler(publisher Publisher) *Handler {
	return &Handler{publisher: publisher, validate: validator.New()}
}

// Enqueue publishes the caller's text to the knowledge stream and answers 202.
func (h *Handler) Enqueue(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserClaims(r.Context())
	if claims == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var req memory.LearnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	id, err := uuid.NewV7()
	if err != nil {
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	ev := inats.KnowledgeEvent{
		ID:          id.String(),
		UserID:      claims.UserID,
		Text:        req.Text,
		Metadata:    req.Metadata,
		PublishedAt: time.Now().UTC(),
	}
	if err := h.publisher.PublishKnowledge(r.Context(), ev); err != nil {
		slog.Error("publishing knowledge event", "error", err, "user_id", claims.UserID)
		api.HandleError(w, api.NewServiceUnavailableError("ingest queue unavailable"))
		return
	}

	api.JSON(w, http.StatusAccepted, map[string]string{"event_id": ev.ID})
}
