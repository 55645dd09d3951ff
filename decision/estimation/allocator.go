package estimation

import (
	"github.com/shopspring/decimal"

	"proposal-cost/decision/catalog"
)

// cell is the hours one role spends on one module.
type cell struct {
	module string
	role   string
	hours  decimal.Decimal
}

// allocation is the module × role hour grid, summed both ways.
type allocation struct {
	cells       []cell
	moduleHours map[string]decimal.Decimal
	roleHours   map[string]decimal.Decimal
	roles       []string
	total       decimal.Decimal
}

// allocateHours expands base hours: hours(m, r) = base(m, r) * contextMultiplier * sites.
// Module and role totals are accumulated independently from the same cells.
func allocateHours(modules []catalog.Module, contextMultiplier decimal.Decimal, sites int) allocation {
	a := allocation{
		moduleHours: make(map[string]decimal.Decimal, len(modules)),
		roleHours:   make(map[string]decimal.Decimal),
		total:       decimal.Zero,
	}
	scale := contextMultiplier.Mul(decimal.NewFromInt(int64(sites)))

	for _, m := range modules {
		a.moduleHours[m.ID] = decimal.Zero
		for _, role := range m.RoleIDs() {
			h := decimal.NewFromFloat(m.BaseHoursByRole[role]).Mul(scale)
			a.cells = append(a.cells, cell{module: m.ID, role: role, hours: h})

			a.moduleHours[m.ID] = a.moduleHours[m.ID].Add(h)
			if _, ok := a.roleHours[role]; !ok {
				a.roles = append(a.roles, role)
				a.roleHours[role] = decimal.Zero
			}
			a.roleHours[role] = a.roleHours[role].Add(h)
		}
	}

	for _, m := range modules {
		a.total = a.total.Add(a.moduleHours[m.ID])
	}
	return a
}
