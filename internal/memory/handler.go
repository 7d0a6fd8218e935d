package memory

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aiox-platform/contextflow/internal/api"
	"github.com/aiox-platform/contextflow/internal/auth"
)

// UserKey is the metadata key that scopes knowledge to its owner.
const UserKey = "user_id"

// SessionKey derives the short-term session key for a user. An empty session
// name addresses the user's default session.
func SessionKey(userID, session string) string {
	if session == "" {
		return userID
	}
	return userID + ":" + session
}

// Handler handles memory HTTP endpoints. Every request is scoped to the
// authenticated user: knowledge through the user_id metadata key, sessions
// through the session key prefix.
type Handler struct {
	svc      *Service
	validate *validator.Validate
}

// NewHandler creates a new memory handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(),
	}
}

// HandleError maps memory sentinels onto HTTP errors.
func HandleError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, ErrNotFound):
		api.HandleError(w, api.NewNotFoundError(ErrNotFound.Error()))
	case errors.Is(err, ErrEmptyFilter), errors.Is(err, ErrEmptyText):
		api.HandleError(w, api.NewValidationError(err.Error()))
	case errors.Is(err, ErrEmbedding):
		slog.Error(msg, "error", err)
		api.HandleError(w, api.ErrBadGateway)
	case errors.Is(err, ErrStoreUnavailable), errors.Is(err, ErrQuery), errors.Is(err, ErrIndexWrite):
		slog.Error(msg, "error", err)
		api.HandleError(w, api.ErrServiceUnavailable)
	default:
		slog.Error(msg, "error", err)
		api.HandleError(w, api.ErrInternalServer)
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return false
	}
	return true
}

func userFilter(userID string, extra map[string]string) Filter {
	f := Filter{}
	for k, v := range extra {
		f[k] = v
	}
	f[UserKey] = userID
	return f
}

// Learn stores a piece of knowledge for the caller.
func (h *Handler) Learn(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserClaims(r.Context())
	if claims == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var req LearnRequest
	if !h.decode(w, r, &req) {
		return
	}

	id, err := h.svc.Learn(r.Context(), req.Text, userFilter(claims.UserID, req.Metadata))
	if err != nil {
		HandleError(w, err, "learning knowledge")
		return
	}

	api.JSON(w, http.StatusCreated, map[string]string{"id": id})
}

// Search runs hybrid retrieval over the caller's knowledge.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserClaims(r.Context())
	if claims == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var req SearchRequest
	if !h.decode(w, r, &req) {
		return
	}

	results, err := h.svc.RecallKnowledge(r.Context(), req.Query, req.Limit, userFilter(claims.UserID, req.Filter))
	if err != nil {
		HandleError(w, err, "searching knowledge")
		return
	}

	api.JSON(w, http.StatusOK, results)
}

// List returns the caller's knowledge page by page. Query parameters prefixed
// with "meta." narrow the listing by metadata.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserClaims(r.Context())
	if claims == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	page := 1
	pageSize := 20
	if p := r.URL.Query().Get("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}
	if ps := r.URL.Query().Get("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	meta := map[string]string{}
	for k, vs := range r.URL.Query() {
		if name, ok := strings.CutPrefix(k, "meta."); ok && len(vs) > 0 {
			meta[name] = vs[0]
		}
	}

	records, total, err := h.svc.ListKnowledge(r.Context(), userFilter(claims.UserID, meta), page, pageSize)
	if err != nil {
		HandleError(w, err, "listing knowledge")
		return
	}

	api.JSONPaginated(w, http.StatusOK, records, total, page, pageSize)
}

// owned fetches a record and hides records of other users behind 404.
func (h *Handler) owned(w http.ResponseWriter, r *http.Request) (*Record, bool) {
	claims := auth.GetUserClaims(r.Context())
	if claims == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return nil, false
	}

	rec, err := h.svc.GetKnowledge(r.Context(), chi.URLParam(r, "recordID"))
	if err != nil {
		HandleError(w, err, "getting knowledge")
		return nil, false
	}
	if rec.Metadata[UserKey] != claims.UserID {
		api.HandleError(w, api.NewNotFoundError(ErrNotFound.Error()))
		return nil, false
	}
	return rec, true
}

// Get returns one record.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.owned(w, r)
	if !ok {
		return
	}
	api.JSON(w, http.StatusOK, rec)
}

// Delete removes one record.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.owned(w, r)
	if !ok {
		return
	}

	if err := h.svc.Forget(r.Context(), rec.ID); err != nil {
		HandleError(w, err, "deleting knowledge")
		return
	}

	api.JSONMessage(w, http.StatusOK, "memory deleted successfully")
}

// Forget removes the caller's records matching a metadata filter.
func (h *Handler) Forget(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserClaims(r.Context())
	if claims == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var req ForgetRequest
	if !h.decode(w, r, &req) {
		return
	}

	n, err := h.svc.ForgetWhere(r.Context(), userFilter(claims.UserID, req.Filter))
	if err != nil {
		HandleError(w, err, "forgetting knowledge")
		return
	}

	api.JSON(w, http.StatusOK, ForgetResult{Deleted: n})
}

// Turns returns the recent history of one of the caller's sessions.
func (h *Handler) Turns(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserClaims(r.Context())
	if claims == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	turns, err := h.svc.RecallContext(r.Context(), SessionKey(claims.UserID, chi.URLParam(r, "session")))
	if err != nil {
		HandleError(w, err, "recalling session")
		return
	}

	api.JSON(w, http.StatusOK, turns)
}

// AppendTurn records a turn in one of the caller's sessions.
func (h *Handler) AppendTurn(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserClaims(r.Context())
	if claims == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var req TurnRequest
	if !h.decode(w, r, &req) {
		return
	}

	key := SessionKey(claims.UserID, chi.URLParam(r, "session"))
	if err := h.svc.RememberTurn(r.Context(), key, req.Role, req.Content); err != nil {
		HandleError(w, err, "remembering turn")
		return
	}

	api.JSONMessage(w, http.StatusCreated, "turn recorded")
}

// ClearSession drops one of the caller's sessions.
func (h *Handler) ClearSession(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserClaims(r.Context())
	if claims == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	if err := h.svc.ClearSession(r.Context(), SessionKey(claims.UserID, chi.URLParam(r, "session"))); err != nil {
		HandleError(w, err, "clearing session")
		return
	}

	api.JSONMessage(w, http.StatusOK, "session cleared")
}
