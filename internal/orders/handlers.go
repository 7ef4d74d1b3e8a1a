package orders

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

// PlaceOrderHandler submits a new order for the caller.
func (h *GinHandlers) PlaceOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var cmd PlaceOrderCommand
		if err := c.ShouldBindJSON(&cmd); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		order, err := h.service.PlaceOrder(c.Request.Context(), c.GetString("accountID"), cmd)
		response.Handle(c, order, err)
	}
}

// ListOrdersHandler returns the caller's orders, newest first.
func (h *GinHandlers) ListOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := h.service.ListOrders(c.Request.Context(), c.GetString("accountID"))
		response.Handle(c, list, err)
	}
}

// GetOrderHandler returns one of the caller's orders.
func (h *GinHandlers) GetOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		order, err := h.service.GetOrder(c.Request.Context(), c.GetString("accountID"), c.Param("order_id"))
		response.Handle(c, order, err)
	}
}

// CancelOrderHandler cancels one of the caller's pending orders.
func (h *GinHandlers) CancelOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		order, err := h.service.CancelOrder(c.Request.Context(), c.GetString("accountID"), c.Param("order_id"))
		response.Handle(c, order, err)
	}
}

// OrderAuditHandler returns the audit trail of one of the caller's orders.
func (h *GinHandlers) OrderAuditHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		entries, err := h.service.ListAuditEntries(c.Request.Context(), c.GetString("accountID"), c.Param("order_id"))
		response.Handle(c, entries, err)
	}
}
