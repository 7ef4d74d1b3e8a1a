package portfolio

import (
	"github.com/SalahGhedda/BrokerX/pkg/response"
	"github.com/gin-gonic/gin"
)

type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{service: service}
}

// ListPositionsHandler returns the caller's portfolio.
func (h *GinHandlers) ListPositionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		positions, err := h.service.ListPositions(c.Request.Context(), c.GetString("accountID"))
		response.Handle(c, positions, err)
	}
}
