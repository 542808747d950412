package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"profitbliss-backend/internal/auth"
	"profitbliss-backend/internal/money"
)

// handleGetWallet returns the authenticated user's wallet balance
// GET /api/wallet
func (s *Server) handleGetWallet(c *gin.Context) {
	balance, err := s.ledger.BalanceOf(c.Request.Context(), auth.GetUserID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"balance": money.Format(balance),
	})
}
