package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"profitbliss-backend/internal/auth"
	"profitbliss-backend/internal/money"
)

type depositRequest struct {
	Amount string `json:"amount" binding:"required"`
	Method string `json:"method" binding:"required"`
}

type withdrawRequest struct {
	Amount  string `json:"amount" binding:"required"`
	Method  string `json:"method" binding:"required"`
	Address string `json:"address" binding:"required"`
}

// handleRequestDeposit records a pending deposit awaiting admin approval
// POST /api/transactions/deposit
func (s *Server) handleRequestDeposit(c *gin.Context) {
	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	amount, err := money.Parse(req.Amount)
	if err != nil {
		s.respondError(c, err)
		return
	}

	tx, err := s.transactions.RequestDeposit(c.Request.Context(), auth.GetUserID(c), amount, req.Method)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"transaction": newTransactionResponse(tx),
	})
}

// handleRequestWithdraw escrows funds and records a pending withdrawal
// POST /api/transactions/withdraw
func (s *Server) handleRequestWithdraw(c *gin.Context) {
	var req withdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	amount, err := money.Parse(req.Amount)
	if err != nil {
		s.respondError(c, err)
		return
	}

	tx, err := s.transactions.RequestWithdraw(c.Request.Context(), auth.GetUserID(c), amount, req.Method, req.Address)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"transaction": newTransactionResponse(tx),
	})
}

// handleListTransactions lists the user's transactions, newest first
// GET /api/transactions
func (s *Server) handleListTransactions(c *gin.Context) {
	txs, err := s.transactions.List(c.Request.Context(), auth.GetUserID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": newTransactionList(txs),
	})
}
