package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/princeprakhar/review-widget-backend/internal/app"
	"github.com/princeprakhar/review-widget-backend/internal/config"
	"github.com/princeprakhar/review-widget-backend/internal/database"
	"github.com/princeprakhar/review-widget-backend/pkg/logger"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	logger.Init()

	cfg := config.Load()

	db, err := database.Init(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to initialize database: ", err)
	}

	application, err := app.New(cfg, db)
	if err != nil {
		logger.Fatal("Failed to initialize application: ", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := application.Run(ctx); err != nil {
		logger.Fatal("Server stopped: ", err)
	}
}
