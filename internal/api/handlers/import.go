package handlers

import (
	"net/http"

	"platesync/internal/importer"
	"platesync/internal/logger"

	"github.com/gin-gonic/gin"
)

type ImportHandler struct {
	orch   *importer.Orchestrator
	logger *logger.Logger
}

func NewImportHandler(orch *importer.Orchestrator, logger *logger.Logger) *ImportHandler {
	return &ImportHandler{
		orch:   orch,
		logger: logger,
	}
}

type importRequest struct {
	CategoryIDs []string `json:"category_ids" binding:"required,min=1"`
}

// Import runs one import over the chosen vendor categories. The response
// carries statistics plus the accumulated notices and errors; the caller
// decides whether zero imports is a problem.
func (h *ImportHandler) Import(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.orch.Import(c.Request.Context(), req.CategoryIDs)
	if err != nil {
		h.logger.Error("import failed: %v", err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// Drain runs one queue tick by hand, useful when no worker is consuming the
// trigger topic.
func (h *ImportHandler) Drain(c *gin.Context) {
	if err := h.orch.RunScheduledDrain(c.Request.Context()); err != nil {
		h.logger.Error("drain failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to drain import queue"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": "ok"})
}
