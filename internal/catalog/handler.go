package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aiox-platform/contextflow/internal/api"
	"github.com/aiox-platform/contextflow/internal/auth"
	"github.com/aiox-platform/contextflow/internal/memory"
	"github.com/aiox-platform/contextflow/internal/workflow"
)

// RunRequest starts a workflow over HTTP. Session names a conversation under
// the caller; it defaults to the workflow name.
type RunRequest struct {
	Input   string `json:"input" validate:"required,min=1,max=8000"`
	Session string `json:"session,omitempty" validate:"omitempty,max=64"`
}

// Summary describes a workflow in listings.
type Summary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Handler serves the workflow endpoints.
type Handler struct {
	deps     Deps
	validate *validator.Validate
}

// NewHandler creates a new workflow handler.
func NewHandler(deps Deps) *Handler {
	return &Handler{deps: deps, validate: validator.New()}
}

// List returns every workflow in the catalog.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	out := make([]Summary, 0, len(builders))
	for _, name := range Names() {
		wf, err := Lookup(name, h.deps)
		if err != nil {
			slog.Error("building workflow", "workflow", name, "error", err)
			continue
		}
		out = append(out, Summary{Name: wf.Name, Description: wf.Description})
	}
	api.JSON(w, http.StatusOK, out)
}

// Run executes a workflow synchronously for the caller.
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserClaims(r.Context())
	if claims == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	name := chi.URLParam(r, "name")
	if _, ok := builders[name]; !ok {
		api.HandleError(w, api.NewNotFoundError("workflow not found"))
		return
	}

	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	wf, err := Lookup(name, h.deps)
	if err != nil {
		slog.Error("building workflow", "workflow", name, "error", err)
		api.HandleError(w, api.ErrServiceUnavailable)
		return
	}

	session := req.Session
	if session == "" {
		session = name
	}
	res, err := wf.Run(r.Context(), workflow.RunInput{
		Input:      req.Input,
		SessionKey: memory.SessionKey(claims.UserID, session),
		UserID:     claims.UserID,
	})
	if err != nil {
		handleRunError(w, name, err)
		return
	}
	api.JSON(w, http.StatusOK, res)
}

func handleRunError(w http.ResponseWriter, name string, err error) {
	var sf *workflow.StepFailure
	switch {
	case errors.As(err, &sf) && sf.Timeout():
		slog.Warn("workflow step timed out", "workflow", name, "step", sf.Step)
		api.HandleError(w, &api.AppError{Code: http.StatusGatewayTimeout, Message: "step " + sf.Step + " timed out"})
	case errors.Is(err, context.Canceled):
		api.HandleError(w, api.ErrServiceUnavailable)
	case errors.As(err, &sf):
		slog.Error("workflow step failed", "workflow", name, "step", sf.Step, "error", err)
		api.HandleError(w, &api.AppError{Code: http.StatusBadGateway, Message: "step " + sf.Step + " failed"})
	default:
		slog.Error("workflow failed", "workflow", name, "error", err)
		api.HandleError(w, api.ErrInternalServer)
	}
}
