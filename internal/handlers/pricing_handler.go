package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mentorium/mentorium-api/internal/models"
	"github.com/mentorium/mentorium-api/internal/services"
)

type PricingHandler struct {
	service services.PricingServiceInterface
}

func NewPricingHandler(service services.PricingServiceInterface) *PricingHandler {
	return &PricingHandler{service: service}
}

type priceQuery struct {
	Duration int    `form:"duration" binding:"required,min=1"`
	Modality string `form:"modality" binding:"required,oneof=virtual in_person"`
}

// GetPrice handles GET /api/v1/price?duration=90&modality=in_person
func (h *PricingHandler) GetPrice(c *gin.Context) {
	var q priceQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}

	quote, err := h.service.Quote(q.Duration, models.Modality(q.Modality))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, quote)
}
