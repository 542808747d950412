package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"profitbliss-backend/internal/domain"
	"profitbliss-backend/internal/money"
)

type planRequest struct {
	Name         string `json:"name" binding:"required"`
	Description  string `json:"description"`
	MinAmount    string `json:"min_amount" binding:"required"`
	ROIPercent   int64  `json:"roi_percent" binding:"required,min=1"`
	DurationDays int    `json:"duration_days" binding:"required,min=1"`
}

func (s *Server) bindPlan(c *gin.Context) (*domain.InvestmentPlan, bool) {
	var req planRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return nil, false
	}

	minAmount, err := money.Parse(req.MinAmount)
	if err != nil {
		s.respondError(c, err)
		return nil, false
	}

	return &domain.InvestmentPlan{
		Name:         req.Name,
		Description:  req.Description,
		MinAmount:    minAmount,
		ROIPercent:   req.ROIPercent,
		DurationDays: req.DurationDays,
	}, true
}

// handleCreatePlan adds a plan to the catalog
// POST /api/admin/plans
func (s *Server) handleCreatePlan(c *gin.Context) {
	plan, ok := s.bindPlan(c)
	if !ok {
		return
	}

	if err := s.repo.CreatePlan(c.Request.Context(), plan); err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"plan": newPlanResponse(plan),
	})
}

// handleUpdatePlan rewrites a plan. Payouts are computed from the plan's
// current terms at settlement, so edits also affect open investments.
// PUT /api/admin/plans/:id
func (s *Server) handleUpdatePlan(c *gin.Context) {
	planID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		bindError(c, err)
		return
	}

	plan, ok := s.bindPlan(c)
	if !ok {
		return
	}
	plan.ID = planID

	if err := s.repo.UpdatePlan(c.Request.Context(), plan); err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"plan": newPlanResponse(plan),
	})
}

// handleDeletePlan removes a plan that no investment references
// DELETE /api/admin/plans/:id
func (s *Server) handleDeletePlan(c *gin.Context) {
	planID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		bindError(c, err)
		return
	}

	if err := s.repo.DeletePlan(c.Request.Context(), planID); err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "plan deleted"})
}

// handleAdminListTransactions lists transactions platform-wide, filtered
// by kind when ?kind=deposit or ?kind=withdraw is given
// GET /api/admin/transactions
func (s *Server) handleAdminListTransactions(c *gin.Context) {
	var (
		all []domain.Transaction
		err error
	)
	switch kind := c.Query("kind"); kind {
	case "":
		all, err = s.transactions.ListAll(c.Request.Context())
	case string(domain.TransactionDeposit), string(domain.TransactionWithdraw):
		all, err = s.transactions.ListByKind(c.Request.Context(), domain.TransactionKind(kind))
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   domain.CodeInvalidInput,
			"message": "kind must be deposit or withdraw",
		})
		return
	}
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": newTransactionList(all),
	})
}

// handleApproveTransaction approves a pending transaction. Deposits credit
// the wallet here; withdrawals were already debited at request time.
// POST /api/admin/transactions/:id/approve
func (s *Server) handleApproveTransaction(c *gin.Context) {
	tx, err := s.transactions.Approve(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transaction": newTransactionResponse(tx),
	})
}

// handleRejectTransaction rejects a pending transaction, refunding a
// withdrawal's escrow
// POST /api/admin/transactions/:id/reject
func (s *Server) handleRejectTransaction(c *gin.Context) {
	tx, err := s.transactions.Reject(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transaction": newTransactionResponse(tx),
	})
}

// handleAdminListInvestments lists every investment on the platform
// GET /api/admin/investments
func (s *Server) handleAdminListInvestments(c *gin.Context) {
	invs, err := s.repo.ListAllInvestments(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"investments": newInvestmentList(invs),
	})
}
