package handlers

import (
	"net/http"

	"platesync/internal/importer"
	"platesync/internal/logger"

	"github.com/gin-gonic/gin"
)

type CatalogHandler struct {
	orch   *importer.Orchestrator
	logger *logger.Logger
}

func NewCatalogHandler(orch *importer.Orchestrator, logger *logger.Logger) *CatalogHandler {
	return &CatalogHandler{
		orch:   orch,
		logger: logger,
	}
}

// Refresh fetches the vendor catalog and replaces the cached snapshot.
func (h *CatalogHandler) Refresh(c *gin.Context) {
	result, err := h.orch.Refresh(c.Request.Context())
	if err != nil {
		h.logger.Error("refresh failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to refresh catalog"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// Tree returns the category forest rebuilt from the cached snapshot.
func (h *CatalogHandler) Tree(c *gin.Context) {
	tree, err := h.orch.Tree(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": tree})
}
