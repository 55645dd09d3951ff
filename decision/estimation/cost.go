package estimation

import (
	"fmt"

	"github.com/shopspring/decimal"

	"proposal-cost/decision/catalog"
	perrors "proposal-cost/pkg/errors"
)

// laborBuildUp is what either strategy hands to the shared reserve/overhead stage.
type laborBuildUp struct {
	hours             decimal.Decimal
	cost              decimal.Decimal
	byModule          map[string]ModuleBreakdown
	byRole            map[string]RoleBreakdown
	contextMultiplier decimal.Decimal
	premium           decimal.Decimal
}

// effectiveRates resolves the billed rate per role: override if given, else the table rate,
// times the overtime premium.
func effectiveRates(roles []string, rates *catalog.RateTable, overrides map[string]float64, premium decimal.Decimal) (map[string]decimal.Decimal, error) {
	card := make(map[string]decimal.Decimal, len(roles))
	for _, id := range roles {
		role, ok := rates.Get(id)
		if !ok {
			return nil, perrors.NewValidationError("base_hours_by_role", id,
				fmt.Sprintf("role %s has no rate in the rate table", id))
		}
		rate := role.BaseRate
		if o, ok := overrides[id]; ok && o >= 0 {
			rate = o
		}
		card[id] = decimal.NewFromFloat(rate).Mul(premium)
	}
	return card, nil
}

// composeCosts prices every cell and sums cost by module and by role.
func composeCosts(a allocation, modules []catalog.Module, rates *catalog.RateTable, card map[string]decimal.Decimal) (map[string]ModuleBreakdown, map[string]RoleBreakdown, decimal.Decimal) {
	byModule := make(map[string]ModuleBreakdown, len(modules))
	for _, m := range modules {
		byModule[m.ID] = ModuleBreakdown{
			ModuleName: m.Name,
			FocusArea:  m.FocusArea,
			Hours:      a.moduleHours[m.ID],
			Cost:       decimal.Zero,
		}
	}

	byRole := make(map[string]RoleBreakdown, len(a.roles))
	for _, id := range a.roles {
		role, _ := rates.Get(id)
		byRole[id] = RoleBreakdown{
			RoleName:      role.Name,
			Hours:         a.roleHours[id],
			EffectiveRate: card[id],
			Cost:          decimal.Zero,
		}
	}

	for _, c := range a.cells {
		cost := c.hours.Mul(card[c.role])

		mb := byModule[c.module]
		mb.Cost = mb.Cost.Add(cost)
		byModule[c.module] = mb

		rb := byRole[c.role]
		rb.Cost = rb.Cost.Add(cost)
		byRole[c.role] = rb
	}

	total := decimal.Zero
	for _, m := range modules {
		total = total.Add(byModule[m.ID].Cost)
	}
	return byModule, byRole, total
}
