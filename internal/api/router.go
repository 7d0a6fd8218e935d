package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	mw "github.com/aiox-platform/contextflow/internal/middleware"
)

// HandlerSet holds handler functions injected from main.go to avoid import cycles.
type HandlerSet struct {
	// Auth handlers
	WhoAmI http.HandlerFunc
	Revoke http.HandlerFunc

	// Knowledge (long-term memory)
	LearnKnowledge  http.HandlerFunc
	IngestKnowledge http.HandlerFunc
	SearchKnowledge http.HandlerFunc
	ListKnowledge   http.HandlerFunc
	GetKnowledge    http.HandlerFunc
	DeleteKnowledge http.HandlerFunc
	ForgetKnowledge http.HandlerFunc

	// Sessions (short-term memory)
	ListTurns    http.HandlerFunc
	AppendTurn   http.HandlerFunc
	ClearSession http.HandlerFunc

	// Workflows
	ListWorkflows http.HandlerFunc
	RunWorkflow   http.HandlerFunc

	// Auth middleware
	AuthMiddleware func(http.Handler) http.Handler
	// RequireScope gates a route group on a token scope.
	RequireScope func(scope string) func(http.Handler) http.Handler
}

// Check is one readiness dependency. Optional checks report but never fail readiness.
type Check struct {
	Name     string
	Fn       func(ctx context.Context) error
	Optional bool
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	CORSAllowedOrigins []string
	RateLimiter        func(http.Handler) http.Handler
	Checks             []Check
}

// Scopes accepted on bearer tokens.
const (
	ScopeMemory    = "memory"
	ScopeWorkflows = "workflows"
)

func NewRouter(cfg RouterConfig, h HandlerSet) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.SecurityHeaders)
	r.Use(mw.Logging)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)
	r.Use(cors.Handler(mw.CORS(cfg.CORSAllowedOrigins)))

	// Liveness probe: always 200, no dependency checks
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})

	readinessHandler := func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		health, status := readiness(ctx, cfg.Checks)
		JSON(w, status, health)
	}

	r.Get("/health/ready", readinessHandler)
	r.Get("/health", readinessHandler)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(h.AuthMiddleware)
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter)
		}

		r.Route("/auth", func(r chi.Router) {
			r.Get("/me", h.WhoAmI)
			r.Post("/revoke", h.Revoke)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.RequireScope(ScopeMemory))

			r.Route("/knowledge", func(r chi.Router) {
				r.Post("/", h.LearnKnowledge)
				r.Get("/", h.ListKnowledge)
				r.Post("/ingest", h.IngestKnowledge)
				r.Post("/search", h.SearchKnowledge)
				r.Post("/forget", h.ForgetKnowledge)
				r.Get("/{recordID}", h.GetKnowledge)
				r.Delete("/{recordID}", h.DeleteKnowledge)
			})

			r.Route("/sessions/{session}", func(r chi.Router) {
				r.Get("/turns", h.ListTurns)
				r.Post("/turns", h.AppendTurn)
				r.Delete("/", h.ClearSession)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(h.RequireScope(ScopeWorkflows))
			r.Get("/workflows", h.ListWorkflows)
			r.Post("/workflows/{name}/run", h.RunWorkflow)
		})
	})

	return r
}

func readiness(ctx context.Context, checks []Check) (map[string]string, int) {
	health := map[string]string{"status": "healthy"}
	status := http.StatusOK
	for _, c := range checks {
		if c.Fn == nil {
			health[c.Name] = "not configured"
			continue
		}
		if err := c.Fn(ctx); err != nil {
			health[c.Name] = "unhealthy"
			health["status"] = "degraded"
			if !c.Optional {
				status = http.StatusServiceUnavailable
			}
			continue
		}
		health[c.Name] = "healthy"
	}
	return health, status
}
