package auth

import (
	"github.com/SalahGhedda/BrokerX/pkg/response"
	"github.com/gin-gonic/gin"
)

// GinHandlers contains HTTP handlers for account and token endpoints.
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{service: service}
}

type signupRequest struct {
	Email    string `json:"email" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SignupHandler handles POST requests to register a new account.
func (h *GinHandlers) SignupHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req signupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		account, err := h.service.Signup(c.Request.Context(), req.Email, req.Name, req.Password)
		response.Handle(c, account, err)
	}
}

// VerifyHandler moves a pending account to ACTIVE.
func (h *GinHandlers) VerifyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		account, err := h.service.VerifyAccount(c.Request.Context(), c.Param("account_id"))
		response.Handle(c, account, err)
	}
}

// SuspendHandler disables an account for trading and deposits.
func (h *GinHandlers) SuspendHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		account, err := h.service.Suspend(c.Request.Context(), c.Param("account_id"))
		response.Handle(c, account, err)
	}
}

// ReactivateHandler restores a suspended account.
func (h *GinHandlers) ReactivateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		account, err := h.service.Reactivate(c.Request.Context(), c.Param("account_id"))
		response.Handle(c, account, err)
	}
}

// AccountAuditHandler returns the account's transition trail.
func (h *GinHandlers) AccountAuditHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		entries, err := h.service.ListAuditEntries(c.Request.Context(), c.Param("account_id"))
		response.Handle(c, entries, err)
	}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenHandler exchanges credentials for a JWT.
func (h *GinHandlers) TokenHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		token, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			response.Unauthorized(c, "invalid credentials")
			return
		}
		response.Success(c, token)
	}
}
