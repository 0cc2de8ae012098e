package handlers

import (
	"net/http"
	"strconv"

	"platesync/internal/logger"
	"platesync/internal/store"

	"github.com/gin-gonic/gin"
)

type ProductHandler struct {
	store  *store.Store
	logger *logger.Logger
}

func NewProductHandler(store *store.Store, logger *logger.Logger) *ProductHandler {
	return &ProductHandler{
		store:  store,
		logger: logger,
	}
}

func (h *ProductHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 20
	}
	offset := (page - 1) * limit

	products, err := h.store.ListProducts(c.Request.Context(), limit, offset)
	if err != nil {
		h.logger.Error("list products failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch products"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": products,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
		},
	})
}

func (h *ProductHandler) Get(c *gin.Context) {
	id := c.Param("id")

	product, err := h.store.GetProduct(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("get product failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch product"})
		return
	}
	if product == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": product})
}
