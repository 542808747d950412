package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"profitbliss-backend/internal/domain"
	"profitbliss-backend/internal/money"
)

// statusFor maps a domain error code to an HTTP status
func statusFor(code domain.ErrorCode) int {
	switch code {
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeInvalidInput, domain.CodeAmountBelowMinimum:
		return http.StatusBadRequest
	case domain.CodeInsufficientFunds:
		return http.StatusUnprocessableEntity
	case domain.CodeAlreadyProcessed, domain.CodeConflict:
		return http.StatusConflict
	case domain.CodeUnauthorized:
		return http.StatusUnauthorized
	case domain.CodeForbidden:
		return http.StatusForbidden
	case domain.CodeExternalServiceFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondError(c *gin.Context, err error) {
	var domErr domain.Error
	if errors.As(err, &domErr) {
		c.JSON(statusFor(domErr.Code), gin.H{
			"error":   domErr.Code,
			"message": domErr.Message,
		})
		return
	}

	s.logger.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   domain.CodeInternal,
		"message": "internal server error",
	})
}

func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   domain.CodeInvalidInput,
		"message": err.Error(),
	})
}

// transactionResponse is the client representation of a wallet transaction
type transactionResponse struct {
	ID          string     `json:"id"`
	Kind        string     `json:"kind"`
	Amount      string     `json:"amount"`
	Method      string     `json:"method"`
	Address     string     `json:"address,omitempty"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

func newTransactionResponse(tx *domain.Transaction) transactionResponse {
	return transactionResponse{
		ID:          tx.ID,
		Kind:        string(tx.Kind),
		Amount:      money.Format(tx.Amount),
		Method:      tx.Method,
		Address:     tx.Address,
		Status:      string(tx.Status),
		CreatedAt:   tx.CreatedAt,
		ProcessedAt: tx.ProcessedAt,
	}
}

func newTransactionList(txs []domain.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(txs))
	for i := range txs {
		out = append(out, newTransactionResponse(&txs[i]))
	}
	return out
}

// investmentResponse is the client representation of an investment
type investmentResponse struct {
	ID         string     `json:"id"`
	PlanID     int64      `json:"plan_id"`
	PlanName   string     `json:"plan_name"`
	Amount     string     `json:"amount"`
	ROIPercent int64      `json:"roi_percent"`
	Payout     string     `json:"payout"`
	Status     string     `json:"status"`
	StartDate  time.Time  `json:"start_date"`
	EndDate    time.Time  `json:"end_date"`
	SettledAt  *time.Time `json:"settled_at,omitempty"`
}

func newInvestmentResponse(inv *domain.Investment) investmentResponse {
	return investmentResponse{
		ID:         inv.ID,
		PlanID:     inv.PlanID,
		PlanName:   inv.PlanName,
		Amount:     money.Format(inv.Amount),
		ROIPercent: inv.ROIPercent,
		Payout:     money.Format(inv.Payout()),
		Status:     string(inv.Status),
		StartDate:  inv.StartDate,
		EndDate:    inv.EndDate,
		SettledAt:  inv.SettledAt,
	}
}

func newInvestmentList(invs []domain.Investment) []investmentResponse {
	out := make([]investmentResponse, 0, len(invs))
	for i := range invs {
		out = append(out, newInvestmentResponse(&invs[i]))
	}
	return out
}

// planResponse is the client representation of an investment plan
type planResponse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	MinAmount    string `json:"min_amount"`
	ROIPercent   int64  `json:"roi_percent"`
	DurationDays int    `json:"duration_days"`
}

func newPlanResponse(plan *domain.InvestmentPlan) planResponse {
	return planResponse{
		ID:           plan.ID,
		Name:         plan.Name,
		Description:  plan.Description,
		MinAmount:    money.Format(plan.MinAmount),
		ROIPercent:   plan.ROIPercent,
		DurationDays: plan.DurationDays,
	}
}
