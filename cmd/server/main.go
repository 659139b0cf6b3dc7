package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/quartz"

	"codetime-backend/internal/config"
	"codetime-backend/internal/database"
	"codetime-backend/internal/handlers"
	"codetime-backend/internal/middleware"
	"codetime-backend/internal/repository"
	"codetime-backend/internal/router"
	"codetime-backend/internal/services"
	"codetime-backend/internal/session"
	"codetime-backend/internal/stats"
	"codetime-backend/internal/worker"
)

func main() {
	log.Println("🚀 Starting CodeTime Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Client ────
	redisClient, err := database.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClient.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	activityRepo := repository.NewActivityRepo(pool)
	friendRepo := repository.NewFriendRepo(pool)
	leaderboardRepo := repository.NewLeaderboardRepo(pool)

	// ──── Step 5: Initialize Session Tracking Core ────
	clock := quartz.NewReal()
	sessionStore := session.NewStore()
	finalizer := session.NewFinalizer(
		sessionStore,
		activityRepo,
		clock,
		session.ScratchNormalizer(cfg.EphemeralProjectPrefix, "tmp"),
	)
	engine := stats.NewEngine(activityRepo)
	ranker := stats.NewRanker(activityRepo)
	log.Println("✓ Session store initialized")

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	authService := services.NewAuthService(userRepo, redisClient, jwtAuth, cfg.RegistersPerDay)
	trackingService := services.NewTrackingService(finalizer, activityRepo, friendRepo, userRepo, engine, clock)
	friendService := services.NewFriendService(friendRepo, userRepo, engine, clock)
	leaderboardService := services.NewLeaderboardService(leaderboardRepo, userRepo, ranker, clock)

	// ──── Initialize Handlers ────
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(authService, trackingService)
	activityHandler := handlers.NewActivityHandler(trackingService, redisClient)
	friendHandler := handlers.NewFriendHandler(friendService)
	leaderboardHandler := handlers.NewLeaderboardHandler(leaderboardService)

	// ──── Step 6: Start Flush Worker Pool ────
	workerPool := worker.NewPool(
		redisClient,
		trackingService,
		clock,
		cfg.FlushWorkers,
		time.Duration(cfg.SweepIntervalSeconds)*time.Second,
	)
	workerPool.Start()
	log.Printf("✓ Worker pool started (%d goroutines)", cfg.FlushWorkers)

	// ──── Step 7: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		authHandler,
		userHandler,
		activityHandler,
		friendHandler,
		leaderboardHandler,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown: stop ingest, then flush every live session so
	// in-progress coding time survives the restart.
	done := make(chan struct{})
	go func() {
		defer close(done)

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		workerPool.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)

		if n := trackingService.FlushAll(ctx); n > 0 {
			log.Printf("Flushed %d live sessions", n)
		}
	}()

	log.Printf("✓ CodeTime Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
	<-done
}
