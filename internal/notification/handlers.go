package notification

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

// ListHandler returns the caller's notifications, newest first.
func (h *GinHandlers) ListHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		response.Success(c, h.service.List(c.GetString("accountID")))
	}
}

// ClearHandler drops the caller's notifications.
func (h *GinHandlers) ClearHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		h.service.Clear(c.GetString("accountID"))
		response.Success(c, gin.H{"message": "notifications cleared"})
	}
}
