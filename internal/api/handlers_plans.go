package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// handleListPlans returns the plan catalog. Public so prospects can browse
// plans before registering.
// GET /api/plans
func (s *Server) handleListPlans(c *gin.Context) {
	plans, err := s.repo.ListPlans(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}

	out := make([]planResponse, 0, len(plans))
	for i := range plans {
		out = append(out, newPlanResponse(&plans[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"plans": out,
	})
}
