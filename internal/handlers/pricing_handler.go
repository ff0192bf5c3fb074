package handlers

import (
	"fmt"
	"net/http"

	"catalog-service/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type PricingHandler struct {
	batcher CatalogBatcher
}

func NewPricingHandler(batcher CatalogBatcher) *PricingHandler {
	return &PricingHandler{batcher: batcher}
}

// AdjustPrices applies a percentage change to product prices
// POST /api/v1/catalog/prices/adjust
func (h *PricingHandler) AdjustPrices(c *gin.Context) {
	userID := c.GetString("user_id")

	var req models.AdjustPricesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	productIDs := make([]uuid.UUID, 0, len(req.ProductIDs))
	for _, raw := range req.ProductIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_ID", fmt.Sprintf("Invalid product ID %q", raw))
			return
		}
		productIDs = append(productIDs, id)
	}

	result, err := h.batcher.AdjustPrices(c.Request.Context(), *req.Percent, productIDs, userID)
	if err != nil {
		respondBatchError(c, err)
		return
	}

	respondBatch(c, result)
}
