package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiox-platform/contextflow/internal/auth"
	"github.com/aiox-platform/contextflow/internal/llm"
	"github.com/aiox-platform/contextflow/internal/tool"
	"github.com/aiox-platform/contextflow/internal/workflow"
)

type slowModel struct{}

func (slowModel) Generate(ctx context.Context, _ llm.Request) (*llm.Response, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func serveRun(t *testing.T, h *Handler, name, body string, withUser bool) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Post("/workflows/{name}/run", h.Run)

	req := httptest.NewRequest(http.MethodPost, "/workflows/"+name+"/run", strings.NewReader(body))
	if withUser {
		req = req.WithContext(auth.WithUserClaims(req.Context(), &auth.AccessClaims{UserID: "u1"}))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandler_Run(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.deps)

	rec := serveRun(t, h, "assistant", `{"input":"book a table"}`, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Data workflow.RunResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "assistant", resp.Data.Workflow)
	assert.Equal(t, "out:Personal Assistant", resp.Data.Content)

	// default session is the workflow name under the caller
	assert.True(t, f.mr.Exists("conv:u1:assistant"))
}

func TestHandler_RunErrors(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.deps)

	assert.Equal(t, http.StatusUnauthorized, serveRun(t, h, "assistant", `{"input":"x"}`, false).Code)
	assert.Equal(t, http.StatusNotFound, serveRun(t, h, "astrology", `{"input":"x"}`, true).Code)
	assert.Equal(t, http.StatusBadRequest, serveRun(t, h, "assistant", `{"input":""}`, true).Code)
	assert.Equal(t, http.StatusBadRequest, serveRun(t, h, "assistant", `not json`, true).Code)
}

func TestHandler_RunStepTimeout(t *testing.T) {
	h := NewHandler(Deps{
		Model:       slowModel{},
		Tools:       tool.NewRegistry(staticTool{ToolWebSearch}),
		StepTimeout: 20 * time.Millisecond,
		Observer:    workflow.NopObserver{},
	})

	rec := serveRun(t, h, "assistant", `{"input":"x"}`, true)
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Contains(t, rec.Body.String(), "step Assistant timed out")
}

func TestHandler_List(t *testing.T) {
	f := newFixture(t)
	rec := httptest.NewRecorder()
	NewHandler(f.deps).List(rec, httptest.NewRequest(http.MethodGet, "/workflows", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []Summary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 4)
	assert.Equal(t, "assistant", resp.Data[0].Name)
	assert.NotEmpty(t, resp.Data[0].Description)
}
