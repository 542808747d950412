package investment

import "profitbliss-backend/internal/domain"

// DefaultPlans is the catalog seeded on first boot. Amounts are minor
// units; ROI is the flat total-return percentage over the plan duration.
func DefaultPlans() []domain.InvestmentPlan {
	return []domain.InvestmentPlan{
		{
			Name:         "Starter Plan",
			Description:  "Perfect for beginners",
			MinAmount:    10000,
			ROIPercent:   10,
			DurationDays: 30,
		},
		{
			Name:         "Pro Plan",
			Description:  "For consistent investors",
			MinAmount:    50000,
			ROIPercent:   15,
			DurationDays: 60,
		},
		{
			Name:         "Elite Plan",
			Description:  "High ROI for big investors",
			MinAmount:    100000,
			ROIPercent:   20,
			DurationDays: 90,
		},
	}
}
