package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/buttonboard/buttonboard/internal/config"
	"github.com/buttonboard/buttonboard/internal/database"
	"github.com/buttonboard/buttonboard/internal/handler"
	"github.com/buttonboard/buttonboard/internal/middleware"
	"github.com/buttonboard/buttonboard/internal/queue"
	"github.com/buttonboard/buttonboard/internal/repository"
	"github.com/buttonboard/buttonboard/internal/router"
)

func main() {
	// Load .env when present; real deployments set the environment
	// directly and the file is absent.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.EnsureSchema(ctx, db); err != nil {
		cancel()
		log.Fatalf("schema: %v", err)
	}
	cancel()

	users := repository.NewUserRepo(db)
	buttons := repository.NewButtonRepo(db)
	usage := repository.NewUsageRepo(db)
	retirements := repository.NewRetirementRepo(db)

	authHandler := handler.NewAuthHandler(cfg, users)
	userHandler := handler.NewUserHandler(cfg, users)
	buttonHandler := handler.NewButtonHandler(buttons, usage, retirements)

	// Redis backs the token bucket on the anonymous increment endpoint.
	// A nil client disables limiting rather than failing startup.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; rate limiting disabled")
	}
	rateLimit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	auth := middleware.JWTAuth(cfg.JWTSecret, users)

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAPI(e, authHandler, userHandler, buttonHandler, auth, rateLimit)

	// Background consumer: activity log + notification hand-off. Runs a
	// reconnect loop of its own, so a missing broker never stops the API.
	go func() {
		if err := queue.StartActivityConsumer(); err != nil {
			log.Printf("activity consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
