package estimation

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	perrors "proposal-cost/pkg/errors"
)

// selectHistorical sums the selected actuals into a single aggregate bucket.
// Actuals are realized costs, so neither context multipliers nor the overtime premium apply.
func selectHistorical(entries []HistoricalEstimate) (*laborBuildUp, error) {
	hours := decimal.Zero
	cost := decimal.Zero
	selected := 0

	for i, e := range entries {
		if !e.Selected {
			continue
		}
		field := fmt.Sprintf("historical_estimates[%d]", i)
		if !finite(e.ActualHours) || e.ActualHours < 0 {
			return nil, perrors.NewValidationError(field+".actual_hours", fmt.Sprint(e.ActualHours),
				fmt.Sprintf("historical estimate %q has invalid actual_hours", e.Name))
		}
		if !finite(e.ActualTotalCost) || e.ActualTotalCost < 0 {
			return nil, perrors.NewValidationError(field+".actual_total_cost", fmt.Sprint(e.ActualTotalCost),
				fmt.Sprintf("historical estimate %q has invalid actual_total_cost", e.Name))
		}
		hours = hours.Add(decimal.NewFromFloat(e.ActualHours))
		cost = cost.Add(decimal.NewFromFloat(e.ActualTotalCost))
		selected++
	}

	if selected == 0 {
		return nil, perrors.NewValidationError("historical_estimates", "", "no historical estimates selected")
	}

	return &laborBuildUp{
		hours: hours,
		cost:  cost,
		byModule: map[string]ModuleBreakdown{
			HistoricalBucket: {
				ModuleName: "Historical Actuals",
				FocusArea:  HistoricalBucket,
				Hours:      hours,
				Cost:       cost,
			},
		},
		byRole: map[string]RoleBreakdown{
			HistoricalBucket: {
				RoleName:      "Historical Actuals",
				Hours:         hours,
				EffectiveRate: blendedRate(cost, hours),
				Cost:          cost,
			},
		},
		contextMultiplier: decimal.NewFromInt(1),
		premium:           decimal.NewFromInt(1),
	}, nil
}

// blendedRate is cost / hours, defined as zero when there are no hours.
func blendedRate(cost, hours decimal.Decimal) decimal.Decimal {
	if !hours.IsPositive() {
		return decimal.Zero
	}
	return cost.Div(hours)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
