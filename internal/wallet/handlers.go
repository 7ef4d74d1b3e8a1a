package wallet

import (
	"github.com/SalahGhedda/BrokerX/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{service: service}
}

type depositRequest struct {
	Amount         string `json:"amount" binding:"required"`
	IdempotencyKey string `json:"idempotency_key"`
}

// DepositHandler handles POST requests to credit the caller's wallet.
// The idempotency key may come from the body or the Idempotency-Key header.
func (h *GinHandlers) DepositHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req depositRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		key := req.IdempotencyKey
		if key == "" {
			key = c.GetHeader("Idempotency-Key")
		}
		if key == "" {
			response.BadRequest(c, "Idempotency-Key header is required")
			return
		}

		amount, err := decimal.NewFromString(req.Amount)
		if err != nil {
			response.BadRequest(c, "invalid amount")
			return
		}

		tx, err := h.service.Deposit(c.Request.Context(), c.GetString("accountID"), key, amount)
		response.Handle(c, tx, err)
	}
}

// BalanceHandler returns the caller's wallet. A missing wallet reads as a
// zero balance rather than an error.
func (h *GinHandlers) BalanceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		wallet, err := h.service.FindWallet(c.Request.Context(), c.GetString("accountID"))
		if err != nil {
			response.Handle(c, nil, err)
			return
		}
		if wallet == nil {
			response.Success(c, gin.H{"balance": "0.00"})
			return
		}
		response.Success(c, wallet)
	}
}

// TransactionsHandler lists the caller's ledger history.
func (h *GinHandlers) TransactionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		txs, err := h.service.ListTransactions(c.Request.Context(), c.GetString("accountID"))
		response.Handle(c, txs, err)
	}
}
