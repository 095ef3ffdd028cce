package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Chung305/threadline/internal/config"
	"github.com/Chung305/threadline/internal/repository/postgres"
	"github.com/Chung305/threadline/internal/repository/redis"
	"github.com/Chung305/threadline/internal/service/cleanup"
	"github.com/Chung305/threadline/internal/service/message"
	"github.com/Chung305/threadline/internal/service/session"
	transportHttp "github.com/Chung305/threadline/internal/transport/http"
	"github.com/Chung305/threadline/pkg/password"
	"github.com/Chung305/threadline/pkg/token"

	"github.com/gin-gonic/gin"
)

const schemaPath = "script/migration/schema.sql"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	db, err := postgres.Open(cfg.DatabaseURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetimeMin)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	log.Println("Running database migrations...")
	if err := postgres.RunMigrations(db, schemaPath); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	store := postgres.NewStore(db)

	// Redis is optional: without it the revocation list is served from
	// postgres alone.
	var cache session.Cache
	if client := redis.Connect(cfg.RedisURL, cfg.RedisPassword); client != nil {
		defer client.Close()
		cache = redis.NewCache(client)
	}

	hasher, err := password.NewHasher(cfg.Argon2)
	if err != nil {
		log.Fatalf("Password hasher error: %v", err)
	}
	issuer, err := token.New(cfg.AccessTokenSecret, cfg.RefreshTokenSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	if err != nil {
		log.Fatalf("Token issuer error: %v", err)
	}

	sessions := session.NewService(store, hasher, issuer, cache)
	messages := message.NewService(store.Accounts(), store.WebMessages())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	worker := cleanup.NewWorker(sessions, cfg.CleanupInterval)
	worker.Start(ctx)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := transportHttp.NewRouter(transportHttp.RouterDeps{
		Sessions:       sessions,
		Messages:       messages,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited gracefully")
}
