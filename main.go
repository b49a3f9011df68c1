package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/Revoa-ux/revoa-app-sub007/pkg/config"
	"github.com/Revoa-ux/revoa-app-sub007/pkg/db"
	"github.com/Revoa-ux/revoa-app-sub007/pkg/events"
	"github.com/Revoa-ux/revoa-app-sub007/pkg/logging"
	"github.com/Revoa-ux/revoa-app-sub007/services/escalation"
	"github.com/Revoa-ux/revoa-app-sub007/services/flow"
	"github.com/Revoa-ux/revoa-app-sub007/services/flowcontext"
	"github.com/Revoa-ux/revoa-app-sub007/services/trigger"
	"github.com/Revoa-ux/revoa-app-sub007/services/warranty"
)

func main() {
	ctx := context.Background()
	cfg := config.Load()

	_, logCloser := logging.Setup(logging.Options{
		FilePath: cfg.App.LogFilePath,
		Level:    cfg.App.LogLevel,
	})
	if logCloser != nil {
		defer logCloser.Close()
	}

	if cfg.Database.URL == "" {
		slog.Error("DATABASE_URL is not set")
		return
	}

	pool, err := db.Connect(ctx, cfg.Database.URL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		return
	}
	defer pool.Close()

	// Initialize database schema and seed data
	orderRepo := flowcontext.NewPostgresOrderStore(pool)
	if err := orderRepo.InitSchema(ctx); err != nil {
		slog.Error("Failed to initialize order schema", "error", err)
		return
	}
	if err := escalation.NewRepository(pool).InitSchema(ctx); err != nil {
		slog.Error("Failed to initialize escalation schema", "error", err)
		return
	}
	if err := flow.InitDB(ctx, pool, cfg.Flow.SeedFlows); err != nil {
		slog.Error("Failed to initialize database", "error", err)
		return
	}

	bus := events.NewBus()
	defer bus.Close()
	if cfg.App.NatsURL != "" {
		nats, err := events.NewNatsPublisher(cfg.App.NatsURL)
		if err != nil {
			slog.Error("Failed to connect to NATS", "error", err)
			return
		}
		defer nats.Close()
		err = events.Forward(ctx, bus, nats,
			events.TypeEscalationTriggered,
			events.TypeEscalationAcknowledged,
			events.TypeEscalationResolved,
			events.TypeFlowCompleted,
		)
		if err != nil {
			slog.Error("Failed to forward events to NATS", "error", err)
			return
		}
	}

	flowRepo := flow.NewRepository(pool)
	analytics := flow.FanoutAnalytics{flowRepo}
	if cfg.App.RedisURL != "" {
		rdb, err := db.ConnectRedis(ctx, cfg.App.RedisURL)
		if err != nil {
			slog.Error("Failed to connect to redis", "error", err)
			return
		}
		defer rdb.Close()
		analytics = append(analytics, flow.NewRedisAnalytics(rdb, ""))
	}

	var orders flowcontext.OrderStore = orderRepo
	if cfg.Commerce.BaseURL != "" {
		slog.Info("Reading orders from commerce API", "baseUrl", cfg.Commerce.BaseURL)
		orders = flowcontext.NewHTTPOrderStore(cfg.Commerce.BaseURL, cfg.Commerce.APIKey, cfg.Commerce.Timeout)
	}

	escalationService := escalation.NewPostgresService(pool, bus)
	catalog := flow.NewCachedCatalog(flowRepo, cfg.Flow.CatalogCacheTTL)
	manager := flow.NewManager(flow.Dependencies{
		Catalog:   catalog,
		Sessions:  flowRepo,
		Responses: flowRepo,
		Analytics: analytics,
		Contexts:  flowcontext.NewBuilder(orders, warranty.NewEvaluator()),
		Escalator: escalationService,
		Publisher: bus,
	})
	flowService := flow.NewService(catalog, manager)

	rules, err := trigger.DefaultRules()
	if err != nil {
		slog.Error("Failed to load trigger table", "error", err)
		return
	}
	matcher := trigger.NewMatcher(rules, catalog, manager)

	// setup router
	mainRouter := mux.NewRouter()

	apiRouter := mainRouter.PathPrefix("/api/v1").Subrouter()

	flowService.LoadRoutes(apiRouter)
	escalationService.LoadRoutes(apiRouter)
	matcher.LoadRoutes(apiRouter)

	corsHandler := handlers.CORS(
		handlers.AllowedOrigins(cfg.App.CorsAllowedOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		handlers.AllowCredentials(),
	)(mainRouter)

	addr := ":" + cfg.App.Port
	srv := &http.Server{
		Addr:    addr,
		Handler: corsHandler,
	}

	serverErrors := make(chan error, 1)

	go func() {
		slog.Info("Starting server", "addr", addr, "env", cfg.App.Environment)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		slog.Error("Server error", "error", err)

	case sig := <-shutdown:
		slog.Info("Shutdown signal received", "signal", sig)

		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("Could not stop server gracefully", "error", err)
			srv.Close()
		}
	}
}
