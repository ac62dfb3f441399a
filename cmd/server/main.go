package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trapper/internal/audit/outbox"
	auditstore "trapper/internal/audit/store"
	"trapper/internal/classify"
	edgestore "trapper/internal/edge/store"
	entityservice "trapper/internal/entity/service"
	entitystore "trapper/internal/entity/store"
	identservice "trapper/internal/identifier/service"
	identstore "trapper/internal/identifier/store"
	"trapper/internal/jwt"
	"trapper/internal/match"
	matchstore "trapper/internal/match/store"
	"trapper/internal/merge"
	patregistry "trapper/internal/patterns/registry"
	patstore "trapper/internal/patterns/store"
	requestservice "trapper/internal/request/service"
	requeststore "trapper/internal/request/store"
	"trapper/internal/platform/config"
	"trapper/internal/platform/httpserver"
	"trapper/internal/platform/logger"
	"trapper/internal/platform/postgres"
	"trapper/internal/platform/redis"
	httptransport "trapper/internal/transport/http"
)

// main wires dependencies and owns process lifecycle. Business logic lives
// in the internal services.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	db, err := postgres.Open(cfg.DatabaseURL)
	if err != nil {
		log.Error("open postgres", "error", err.Error())
		os.Exit(1)
	}
	defer db.Close()
	if err := postgres.Migrate(db); err != nil {
		log.Error("run migrations", "error", err.Error())
		os.Exit(1)
	}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err.Error())
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Stores.
	entities := entitystore.NewPostgres(db)
	edges := edgestore.NewPostgres(db)
	identifiers := identstore.NewPostgres(db)
	patterns := patstore.NewPostgres(db)
	audit := auditstore.NewPostgres(db)
	requests := requeststore.NewPostgres(db)
	candidates := matchstore.NewPostgres(db)

	// The pattern registry and batch lock degrade gracefully when Redis is
	// not configured.
	var cache patregistry.Cache
	var locker merge.Locker
	if redisClient != nil {
		cache = redisClient
		locker = redisClient
	}
	registry := patregistry.New(patterns, cache, cfg.PatternCacheTTL, log)

	// Services.
	txRunner := postgres.NewTxRunner(db)
	entitySvc := entityservice.NewService(entities)
	identSvc := identservice.NewService(identifiers, txRunner, log)
	requestSvc := requestservice.NewService(requests)
	classifier := classify.NewService(entities, identifiers, registry, log, cfg.BatchSize)
	detector := match.NewDetector(entities, identifiers, registry, cfg.CoordinateThresholdMeters, log)
	reviewer := match.NewReviewer(candidates)
	selector := match.NewSelector(identifiers, classifier, edges)

	merger := merge.NewService(entities, edges, identifiers, audit, txRunner, log)
	batch := merge.NewBatchDriver(detector, entities, merger, selector, locker, cfg.MaxBatchIterations, log)

	jwtSvc := jwt.NewService(cfg.JWTSigningKey, "trapper", "trapper-api")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Audit corrections flow to Kafka through the transactional outbox.
	if len(cfg.Kafka.Brokers) > 0 {
		worker, err := outbox.NewWorker(cfg.Kafka, audit, log)
		if err != nil {
			log.Error("start outbox worker", "error", err.Error())
			os.Exit(1)
		}
		defer worker.Close()
		go worker.Run(ctx)
	}

	handler := httptransport.NewHandler(merger, batch, selector, classifier, identSvc, entitySvc, requestSvc, reviewer, jwtSvc, cfg.SchedulerSecretHash, log)
	router := httptransport.NewRouter(handler, jwtSvc, log)
	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("resolver listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err.Error())
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err.Error())
	}
}
