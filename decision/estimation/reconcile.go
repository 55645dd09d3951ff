package estimation

import (
	"fmt"

	"github.com/shopspring/decimal"

	perrors "proposal-cost/pkg/errors"
)

// Tolerance bounds the disagreement allowed between independently derived totals.
var Tolerance = decimal.New(1, -6)

// Invariant names reported on reconciliation failure.
const (
	InvariantLaborHours    = "labor_hours"
	InvariantLaborCost     = "labor_cost"
	InvariantTotalCost     = "total_cost"
	InvariantEffectiveRate = "effective_hourly_rate"
)

// Reconcile cross-checks a result: module and role breakdowns must each sum to the labor
// totals, the total cost must be the sum of its parts, and the blended rate must equal
// labor cost over labor hours. A failure here is a defect in the engine, not in the input.
func Reconcile(r *Result) error {
	moduleHours, moduleCost := decimal.Zero, decimal.Zero
	for _, b := range r.BreakdownByModule {
		moduleHours = moduleHours.Add(b.Hours)
		moduleCost = moduleCost.Add(b.Cost)
	}
	roleHours, roleCost := decimal.Zero, decimal.Zero
	for _, b := range r.BreakdownByRole {
		roleHours = roleHours.Add(b.Hours)
		roleCost = roleCost.Add(b.Cost)
	}

	if !within(moduleHours, r.TotalLaborHours) || !within(roleHours, r.TotalLaborHours) {
		return perrors.NewInvariantError(InvariantLaborHours, fmt.Sprintf(
			"labor hours disagree: modules=%s roles=%s total=%s", moduleHours, roleHours, r.TotalLaborHours))
	}
	if !within(moduleCost, r.TotalLaborCost) || !within(roleCost, r.TotalLaborCost) {
		return perrors.NewInvariantError(InvariantLaborCost, fmt.Sprintf(
			"labor cost disagrees: modules=%s roles=%s total=%s", moduleCost, roleCost, r.TotalLaborCost))
	}

	expectedTotal := r.TotalLaborCost.Add(r.RiskReserve).Add(r.OverheadCost).Add(r.Ancillary.Sum())
	if !within(expectedTotal, r.TotalCost) {
		return perrors.NewInvariantError(InvariantTotalCost, fmt.Sprintf(
			"total cost %s does not equal the sum of its parts %s", r.TotalCost, expectedTotal))
	}

	expectedRate := blendedRate(r.TotalLaborCost, r.TotalLaborHours)
	if !within(expectedRate, r.EffectiveHourlyRate) {
		return perrors.NewInvariantError(InvariantEffectiveRate, fmt.Sprintf(
			"effective hourly rate %s, expected %s", r.EffectiveHourlyRate, expectedRate))
	}

	return nil
}

func within(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Tolerance)
}
