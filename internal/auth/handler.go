package auth

import (
	"log/slog"
	"net/http"

	"github.com/aiox-platform/contextflow/internal/api"
)

type Handler struct {
	authSvc *Service
}

func NewHandler(authSvc *Service) *Handler {
	return &Handler{authSvc: authSvc}
}

// WhoAmI returns the caller's identity as seen by the API.
func (h *Handler) WhoAmI(w http.ResponseWriter, r *http.Request) {
	claims := GetUserClaims(r.Context())
	if claims == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}
	api.JSON(w, http.StatusOK, map[string]any{
		"user_id": claims.UserID,
		"scopes":  claims.Scopes,
		"expires": claims.ExpiresAt,
	})
}

// Revoke invalidates the bearer token used for this request.
func (h *Handler) Revoke(w http.ResponseWriter, r *http.Request) {
	claims := GetUserClaims(r.Context())
	if claims == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	if err := h.authSvc.Revoke(r.Context(), claims); err != nil {
		slog.Error("revoking token", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONMessage(w, http.StatusOK, "token revoked")
}
