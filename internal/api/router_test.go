package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func stubHandlers() HandlerSet {
	ok := func(w http.ResponseWriter, r *http.Request) { JSONMessage(w, http.StatusOK, r.URL.Path) }
	pass := func(next http.Handler) http.Handler { return next }
	return HandlerSet{
		WhoAmI: ok, Revoke: ok,
		LearnKnowledge: ok, IngestKnowledge: ok, SearchKnowledge: ok, ListKnowledge: ok,
		GetKnowledge: ok, DeleteKnowledge: ok, ForgetKnowledge: ok,
		ListTurns: ok, AppendTurn: ok, ClearSession: ok,
		ListWorkflows: ok, RunWorkflow: ok,
		AuthMiddleware: pass,
		RequireScope: func(scope string) func(http.Handler) http.Handler {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					if r.Header.Get("X-Scope") != scope {
						HandleError(w, ErrForbidden)
						return
					}
					next.ServeHTTP(w, r)
				})
			}
		},
	}
}

func TestRouter_Health(t *testing.T) {
	failing := func(context.Context) error { return errors.New("down") }
	healthy := func(context.Context) error { return nil }

	tests := []struct {
		name   string
		checks []Check
		want   int
		body   string
	}{
		{"all healthy", []Check{{Name: "redis", Fn: healthy}}, http.StatusOK, `"redis":"healthy"`},
		{"required down", []Check{{Name: "redis", Fn: failing}}, http.StatusServiceUnavailable, `"redis":"unhealthy"`},
		{"optional down", []Check{{Name: "nats", Fn: failing, Optional: true}}, http.StatusOK, `"status":"degraded"`},
		{"not configured", []Check{{Name: "xmpp"}}, http.StatusOK, `"xmpp":"not configured"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRouter(RouterConfig{Checks: tt.checks}, stubHandlers())
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
			assert.Equal(t, tt.want, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.body)
		})
	}
}

func TestRouter_ScopedRoutes(t *testing.T) {
	r := NewRouter(RouterConfig{}, stubHandlers())

	do := func(method, path, scope string) int {
		req := httptest.NewRequest(method, path, nil)
		req.Header.Set("X-Scope", scope)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do(http.MethodPost, "/api/v1/workflows/legal/run", ScopeWorkflows))
	assert.Equal(t, http.StatusForbidden, do(http.MethodPost, "/api/v1/workflows/legal/run", ScopeMemory))
	assert.Equal(t, http.StatusOK, do(http.MethodGet, "/api/v1/knowledge/abc", ScopeMemory))
	assert.Equal(t, http.StatusOK, do(http.MethodDelete, "/api/v1/sessions/legal/", ScopeMemory))
	assert.Equal(t, http.StatusOK, do(http.MethodGet, "/api/v1/auth/me", ""))
	assert.Equal(t, http.StatusOK, do(http.MethodGet, "/health/live", ""))
}
