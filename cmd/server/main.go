package main

import (
	"os"

	"github.com/joho/godotenv"

	"payment-reconciliation-service/internal/matcher"
	"payment-reconciliation-service/internal/reconciler"
	"payment-reconciliation-service/internal/server"
	"payment-reconciliation-service/internal/store"
	"payment-reconciliation-service/pkg/logger"
)

func main() {
	// Load .env if present; real environments set variables directly.
	godotenv.Load()

	logConfig := logger.ProductionConfig()
	if os.Getenv("DEBUG") == "true" {
		logConfig = logger.DebugConfig()
	}
	log, err := logger.NewLogger(logConfig)
	if err != nil {
		logger.WithError(err).Fatal("invalid logger configuration")
	}
	logger.SetGlobalLogger(log)

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := store.Open(dsn)
	if err != nil {
		log.WithError(err).Fatal("failed to open database")
	}

	engine := matcher.NewMatchingEngine(matcher.DefaultEngineConfig())
	service := reconciler.NewService(engine, db, nil)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	router := server.New(service, db, db).Router()
	log.WithField("port", port).Info("starting reconciliation server")
	if err := router.Run(":" + port); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
