package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"character-quiz/internal/app"
	"character-quiz/internal/config"
	apihttp "character-quiz/internal/http"
	"character-quiz/internal/service"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	components, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("load quiz components", zap.Error(err))
	}

	store, redisClient := app.NewSessionStore(ctx, cfg, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	secret := cfg.JWTSecret
	if secret == "" {
		logger.Warn("jwt secret not configured, using an ephemeral one")
		secret = uuid.NewString()
	}
	jwtSvc := service.NewJWTService(secret, cfg.SessionRetention)

	quizSvc := service.NewQuizService(components.Engine, components.Classifier, store, cfg.SessionTimeLimit, logger)
	quizHandler := apihttp.NewQuizHandler(logger, quizSvc, jwtSvc, components.Registry, app.NewRateLimiter(cfg, redisClient))
	router := apihttp.NewRouter(logger, quizHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
