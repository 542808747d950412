package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"profitbliss-backend/internal/auth"
	"profitbliss-backend/internal/money"
)

type subscribeRequest struct {
	PlanID int64  `json:"plan_id" binding:"required"`
	Amount string `json:"amount" binding:"required"`
}

// handleSubscribe opens an investment, debiting the wallet
// POST /api/investments
func (s *Server) handleSubscribe(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	amount, err := money.Parse(req.Amount)
	if err != nil {
		s.respondError(c, err)
		return
	}

	inv, err := s.investments.Subscribe(c.Request.Context(), auth.GetUserID(c), req.PlanID, amount)
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.bus.PublishInvestmentOpened(inv.ID, inv.UserID, inv.Amount, inv.EndDate)

	c.JSON(http.StatusCreated, gin.H{
		"investment": newInvestmentResponse(inv),
	})
}

// handleListActiveInvestments lists the user's open investments
// GET /api/investments
func (s *Server) handleListActiveInvestments(c *gin.Context) {
	invs, err := s.investments.ListActive(c.Request.Context(), auth.GetUserID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"investments": newInvestmentList(invs),
	})
}

// handleInvestmentHistory lists the user's completed investments
// GET /api/investments/history
func (s *Server) handleInvestmentHistory(c *gin.Context) {
	invs, err := s.investments.ListHistory(c.Request.Context(), auth.GetUserID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"investments": newInvestmentList(invs),
	})
}
