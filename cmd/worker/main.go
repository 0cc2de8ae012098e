package main

import (
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"platesync/internal/cache"
	"platesync/internal/config"
	"platesync/internal/database"
	"platesync/internal/importer"
	"platesync/internal/logger"
	"platesync/internal/queue"
	"platesync/internal/store"
	"platesync/internal/vendor"
	"platesync/internal/worker"
)

const cachePrefix = "platesync_"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Initialize logger
	logger := logger.New(cfg.LogLevel)

	// Initialize database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database: %v", err)
	}
	st := store.New(db)

	// Initialize redis-backed task backlog
	redisClient, err := cache.NewRedisClient(cfg.RedisURL)
	if err != nil {
		logger.Fatal("Failed to connect to redis: %v", err)
	}

	// Initialize the import engine the drain ticks run
	client := vendor.NewClient(cfg.VendorAPIURL, cfg.VendorAPIKey, logger)
	mat := importer.NewMaterializer(st, cfg.Import, logger)
	rec := importer.NewReconciler(st, client, cfg.Import, cfg.OrganizationID, logger)

	backlog := queue.NewRedisBacklog(redisClient, cachePrefix)
	trigger := queue.NewKafkaTrigger(strings.Split(cfg.KafkaBrokers, ","), cfg.TickTopic)
	q := queue.New(backlog, trigger, mat, rec, logger)

	// Initialize worker
	w := worker.New(cfg, logger, q)

	// Start worker
	logger.Info("Starting worker...")
	go w.Start()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")
	w.Stop()
}
