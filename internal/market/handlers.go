package market

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

// ListStocksHandler handles GET requests for the stock catalogue.
func (h *GinHandlers) ListStocksHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		stocks, err := h.service.ListStocks(c.Request.Context())
		response.Handle(c, stocks, err)
	}
}

// QuoteHandler returns a fresh price observation for a symbol.
func (h *GinHandlers) QuoteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		snapshot, err := h.service.Quote(c.Request.Context(), c.Param("symbol"))
		response.Handle(c, snapshot, err)
	}
}

// WatchlistHandler returns refreshed quotes for the caller's followed stocks.
func (h *GinHandlers) WatchlistHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID := c.GetString("accountID")
		quotes, err := h.service.ListFollowed(c.Request.Context(), accountID)
		response.Handle(c, quotes, err)
	}
}

// FollowHandler adds a symbol to the caller's watchlist.
func (h *GinHandlers) FollowHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID := c.GetString("accountID")
		stock, err := h.service.Follow(c.Request.Context(), accountID, c.Param("symbol"))
		response.Handle(c, stock, err)
	}
}

// UnfollowHandler removes a symbol from the caller's watchlist.
func (h *GinHandlers) UnfollowHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID := c.GetString("accountID")
		err := h.service.Unfollow(c.Request.Context(), accountID, c.Param("symbol"))
		response.Handle(c, gin.H{"symbol": c.Param("symbol")}, err)
	}
}
