package main

import (
	"log"
	"strings"
	"time"

	"platesync/internal/api"
	"platesync/internal/cache"
	"platesync/internal/config"
	"platesync/internal/database"
	"platesync/internal/importer"
	"platesync/internal/logger"
	"platesync/internal/queue"
	"platesync/internal/store"
	"platesync/internal/vendor"
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

	// Initialize redis-backed snapshot cache and task backlog
	redisClient, err := cache.NewRedisClient(cfg.RedisURL)
	if err != nil {
		logger.Fatal("Failed to connect to redis: %v", err)
	}
	cacheStore := cache.NewStore(
		cache.NewRedisKV(redisClient),
		cachePrefix,
		time.Duration(cfg.Import.CacheTTLSeconds)*time.Second,
		logger,
	)

	// Initialize vendor client and the import engine
	client := vendor.NewClient(cfg.VendorAPIURL, cfg.VendorAPIKey, logger)
	mat := importer.NewMaterializer(st, cfg.Import, logger)
	rec := importer.NewReconciler(st, client, cfg.Import, cfg.OrganizationID, logger)

	backlog := queue.NewRedisBacklog(redisClient, cachePrefix)
	trigger := queue.NewKafkaTrigger(strings.Split(cfg.KafkaBrokers, ","), cfg.TickTopic)
	q := queue.New(backlog, trigger, mat, rec, logger)

	orch := importer.NewOrchestrator(cacheStore, st, client, mat, rec, q, cfg.Import, cfg.OrganizationID, logger)

	// Initialize API server
	server := api.New(cfg, logger, st, orch)

	// Start server
	logger.Info("Starting API server on port " + cfg.APIPort)
	if err := server.Start(); err != nil {
		logger.Fatal("Failed to start server: %v", err)
	}
}
