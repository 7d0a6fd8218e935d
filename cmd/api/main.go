package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/aiox-platform/contextflow/internal/api"
	"github.com/aiox-platform/contextflow/internal/app"
	"github.com/aiox-platform/contextflow/internal/auth"
	"github.com/aiox-platform/contextflow/internal/catalog"
	"github.com/aiox-platform/contextflow/internal/config"
	"github.com/aiox-platform/contextflow/internal/database"
	"github.com/aiox-platform/contextflow/internal/ingest"
	"github.com/aiox-platform/contextflow/internal/memory"
	mw "github.com/aiox-platform/contextflow/internal/middleware"
	inats "github.com/aiox-platform/contextflow/internal/nats"
	"github.com/aiox-platform/contextflow/internal/orchestrator"
	"github.com/aiox-platform/contextflow/internal/server"
	"github.com/aiox-platform/contextflow/internal/workflow"
	ixmpp "github.com/aiox-platform/contextflow/internal/xmpp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	app.SetupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	// Migrations create the vector extension the pool registers on connect.
	if cfg.Memory.Backend == "postgres" {
		if err := database.RunMigrations(cfg.DB.DSN(), cfg.DB.MigrationsPath); err != nil {
			return err
		}
	}

	stack, err := app.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer stack.Close()

	model, err := app.NewModel(cfg.LLM)
	if err != nil {
		return err
	}

	// Auth
	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiry)
	authSvc := auth.NewService(jwtManager, stack.Redis)
	authHandler := auth.NewHandler(authSvc)

	var observer workflow.Observer = workflow.LogObserver{}
	var natsClient *inats.Client
	var publisher *inats.Publisher
	if cfg.NATS.Enabled {
		natsClient, err = inats.NewClient(ctx, cfg.NATS)
		if err != nil {
			return err
		}
		defer natsClient.Close()
		publisher = inats.NewPublisher(natsClient.JetStream())
		observer = workflow.Observers{observer, inats.NewEventObserver(publisher)}
	}

	deps := catalog.Deps{
		Memory:      stack.Memory,
		Model:       model,
		Tools:       catalog.NewToolRegistry(stack.Memory, cfg.Memory.KnowledgeResults),
		StepTimeout: cfg.Workflow.StepTimeout,
		Observer:    observer,
	}

	memHandler := memory.NewHandler(stack.Memory)
	workflowHandler := catalog.NewHandler(deps)

	ingestKnowledge := func(w http.ResponseWriter, r *http.Request) {
		api.HandleError(w, api.NewServiceUnavailableError("asynchronous ingest requires NATS"))
	}
	if publisher != nil {
		ingestKnowledge = ingest.NewHandler(publisher).Enqueue
	}

	limiter := mw.NewRateLimiter(stack.Redis, "api", cfg.RateLimit.Requests, cfg.RateLimit.WindowSec).
		WithKeyFunc(func(r *http.Request) string {
			if claims := auth.GetUserClaims(r.Context()); claims != nil {
				return "user:" + claims.UserID
			}
			return ""
		})

	checks := []api.Check{
		{Name: "memory", Fn: stack.Ping},
		{Name: "nats", Optional: true},
		{Name: "xmpp", Optional: true},
	}
	if natsClient != nil {
		checks[1].Fn = natsClient.Ping
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.NATS.Enabled {
		consumerMgr := inats.NewConsumerManager(natsClient.JetStream())

		g.Go(func() error {
			return ingest.NewConsumer(stack.Memory, consumerMgr).Start(gctx)
		})

		if cfg.XMPP.Enabled {
			names := catalog.Names()
			xmppHandler := ixmpp.NewHandler(publisher, names)
			component, err := ixmpp.NewComponent(cfg.XMPP, xmppHandler)
			if err != nil {
				return err
			}
			checks[2].Fn = component.Ping

			orch := orchestrator.NewOrchestrator(
				publisher,
				consumerMgr,
				orchestrator.NewValidator(cfg.XMPP.AllowedDomains),
				orchestrator.NewRouter(names),
				func(name string) (*workflow.Workflow, error) { return catalog.Lookup(name, deps) },
				cfg.Workflow.StepTimeout*4,
			)

			g.Go(func() error { return component.Start(gctx) })
			g.Go(func() error { return orch.Start(gctx) })
			g.Go(func() error {
				return ixmpp.NewOutboundRelay(xmppHandler, component.Sender(), consumerMgr).Start(gctx)
			})
		}
	}

	router := api.NewRouter(api.RouterConfig{
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
		RateLimiter:        limiter.Middleware,
		Checks:             checks,
	}, api.HandlerSet{
		WhoAmI: authHandler.WhoAmI,
		Revoke: authHandler.Revoke,

		LearnKnowledge:  memHandler.Learn,
		IngestKnowledge: ingestKnowledge,
		SearchKnowledge: memHandler.Search,
		ListKnowledge:   memHandler.List,
		GetKnowledge:    memHandler.Get,
		DeleteKnowledge: memHandler.Delete,
		ForgetKnowledge: memHandler.Forget,

		ListTurns:    memHandler.Turns,
		AppendTurn:   memHandler.AppendTurn,
		ClearSession: memHandler.ClearSession,

		ListWorkflows: workflowHandler.List,
		RunWorkflow:   workflowHandler.Run,

		AuthMiddleware: auth.Middleware(authSvc),
		RequireScope:   auth.RequireScope,
	})

	srv := server.New(cfg.Server, cfg.GRPC, router, stack.Ping)
	g.Go(func() error { return srv.Run(gctx) })

	return g.Wait()
}
