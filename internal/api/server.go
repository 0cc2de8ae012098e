package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"platesync/internal/api/handlers"
	"platesync/internal/api/middleware"
	"platesync/internal/config"
	"platesync/internal/importer"
	"platesync/internal/logger"
	"platesync/internal/store"

	"github.com/gin-gonic/gin"
)

type Server struct {
	config *config.Config
	logger *logger.Logger
	router *gin.Engine
	server *http.Server
}

func New(cfg *config.Config, logger *logger.Logger, st *store.Store, orch *importer.Orchestrator) *Server {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS())

	catalogHandler := handlers.NewCatalogHandler(orch, logger)
	importHandler := handlers.NewImportHandler(orch, logger)
	productHandler := handlers.NewProductHandler(st, logger)

	v1 := router.Group("/api/v1")
	{
		catalog := v1.Group("/catalog")
		{
			catalog.POST("/refresh", catalogHandler.Refresh)
			catalog.GET("/tree", catalogHandler.Tree)
		}

		imports := v1.Group("/import")
		{
			imports.POST("", importHandler.Import)
			imports.POST("/drain", importHandler.Drain)
		}

		products := v1.Group("/products")
		{
			products.GET("", productHandler.List)
			products.GET("/:id", productHandler.Get)
		}
	}

	return &Server{
		config: cfg,
		logger: logger,
		router: router,
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%s", s.config.APIHost, s.config.APIPort)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting server on " + addr)
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	return s.server.Shutdown(ctx)
}
