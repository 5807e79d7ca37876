package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/vnmchuo/billing-gateway/config"
	"github.com/vnmchuo/billing-gateway/internal/api"
	"github.com/vnmchuo/billing-gateway/internal/billing"
	"github.com/vnmchuo/billing-gateway/internal/fetcher"
	"github.com/vnmchuo/billing-gateway/internal/provider"
	"github.com/vnmchuo/billing-gateway/internal/provider/gridworks"
	"github.com/vnmchuo/billing-gateway/internal/provider/heliowatt"
	"github.com/vnmchuo/billing-gateway/internal/provider/voltra"
	"github.com/vnmchuo/billing-gateway/internal/seeder"
	"github.com/vnmchuo/billing-gateway/internal/tariff"
	"github.com/vnmchuo/billing-gateway/internal/telemetry"
	"github.com/vnmchuo/billing-gateway/pkg/ratelimit"
)

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// 2. Init telemetry
	shutdownTracer, err := telemetry.InitTracer("billing-gateway", cfg)
	if err != nil {
		log.Fatalf("failed to init tracer: %v", err)
	}
	defer shutdownTracer()

	// 3. Connect PostgreSQL
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("failed to connect postgres: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("failed to ping postgres: %v", err)
	}
	log.Println("PostgreSQL connected")

	// 4. Connect Redis
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to ping redis: %v", err)
	}
	log.Println("Redis connected")

	// 5. Init tariff store
	store := tariff.NewPostgresStore(pool)

	// 6. Init rate limiter
	limiter := ratelimit.NewLimiter(rdb, cfg.CostQueriesPerMinute)

	// 7. Init utility provider adapters
	providers := []provider.Provider{
		voltra.New(cfg.VoltraAPIKey, cfg.VoltraBaseURL),
		gridworks.New(cfg.GridworksAPIKey, cfg.GridworksBaseURL),
		heliowatt.New(cfg.HeliowattAPIKey, cfg.HeliowattBaseURL),
	}

	// 8. Init usage fetcher
	usageFetcher := fetcher.New(store, providers)

	// 9. Init billing service
	svc := billing.NewService(usageFetcher, store)

	// 10. Init handler
	tracer := otel.GetTracerProvider().Tracer("billing-gateway")
	handler := api.NewHandler(svc, limiter, tracer)

	// 11. Seed demo tariff data if RUN_SEED=true
	if os.Getenv("RUN_SEED") == "true" {
		seeder.SeedDemoAccount(ctx, store)
	}

	// 12. Init Chi router
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","service":"billing-gateway"}`))
	})

	r.Get("/v1/accounts/{id}/cost", handler.HandleCost)

	// 13. Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Billing gateway starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
