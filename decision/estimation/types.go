package estimation

import (
	"github.com/shopspring/decimal"
)

// Method selects how labor hours and cost are derived.
type Method string

const (
	MethodEngineering Method = "engineering"
	MethodHistorical  Method = "historical"
)

// HistoricalBucket keys the single aggregate breakdown entry produced in historical mode.
const HistoricalBucket = "historical"

// Input is one estimate request.
type Input struct {
	Modules             []string             `json:"modules"`
	Complexity          string               `json:"complexity"`
	Environment         string               `json:"environment,omitempty"`
	IntegrationLevel    string               `json:"integration_level,omitempty"`
	Geography           string               `json:"geography,omitempty"`
	ClearanceLevel      string               `json:"clearance_level,omitempty"`
	IsPrimeContractor   bool                 `json:"is_prime_contractor"`
	Sites               int                  `json:"sites"`
	Overtime            bool                 `json:"overtime"`
	CustomRoleOverrides map[string]float64   `json:"custom_role_overrides,omitempty"`
	EstimatingMethod    Method               `json:"estimating_method,omitempty"`
	HistoricalEstimates []HistoricalEstimate `json:"historical_estimates,omitempty"`

	// Pass-through ancillary costs, added verbatim to the total.
	ODCItems         []LineItem `json:"odc_items,omitempty"`
	FixedPriceItems  []LineItem `json:"fixed_price_items,omitempty"`
	HardwareSubtotal float64    `json:"hardware_subtotal"`
	WarrantyMonths   int        `json:"warranty_months"`
	WarrantyCost     float64    `json:"warranty_cost"`
}

// HistoricalEstimate is a previously recorded engagement used as a basis of estimate.
type HistoricalEstimate struct {
	Name            string  `json:"name"`
	ActualHours     float64 `json:"actual_hours"`
	ActualTotalCost float64 `json:"actual_total_cost"`
	Selected        bool    `json:"selected"`
}

// LineItem is an itemized pass-through cost.
type LineItem struct {
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

// Result is a fully reconciled estimate.
type Result struct {
	EstimatingMethod    Method          `json:"estimating_method"`
	TotalLaborHours     decimal.Decimal `json:"total_labor_hours"`
	TotalLaborCost      decimal.Decimal `json:"total_labor_cost"`
	RiskReserve         decimal.Decimal `json:"risk_reserve"`
	OverheadCost        decimal.Decimal `json:"overhead_cost"`
	TotalCost           decimal.Decimal `json:"total_cost"`
	EffectiveHourlyRate decimal.Decimal `json:"effective_hourly_rate"`

	BreakdownByModule map[string]ModuleBreakdown `json:"breakdown_by_module"`
	BreakdownByRole   map[string]RoleBreakdown   `json:"breakdown_by_role"`

	// Inputs to the arithmetic, kept for explainability.
	ContextMultiplier decimal.Decimal `json:"context_multiplier"`
	OvertimePremium   decimal.Decimal `json:"overtime_premium"`
	ReserveRate       decimal.Decimal `json:"reserve_rate"`
	OverheadRate      decimal.Decimal `json:"overhead_rate"`
	Ancillary         Ancillary       `json:"ancillary"`

	Warnings []string `json:"warnings"`
}

// ModuleBreakdown is one module's share of labor.
type ModuleBreakdown struct {
	ModuleName string          `json:"module_name"`
	FocusArea  string          `json:"focus_area"`
	Hours      decimal.Decimal `json:"hours"`
	Cost       decimal.Decimal `json:"cost"`
}

// RoleBreakdown is one role's share of labor. EffectiveRate includes any overtime premium.
type RoleBreakdown struct {
	RoleName      string          `json:"role_name"`
	Hours         decimal.Decimal `json:"hours"`
	EffectiveRate decimal.Decimal `json:"effective_rate"`
	Cost          decimal.Decimal `json:"cost"`
}

// Ancillary totals the pass-through costs.
type Ancillary struct {
	ODCTotal         decimal.Decimal `json:"odc_total"`
	FixedPriceTotal  decimal.Decimal `json:"fixed_price_total"`
	HardwareSubtotal decimal.Decimal `json:"hardware_subtotal"`
	WarrantyMonths   int             `json:"warranty_months"`
	WarrantyCost     decimal.Decimal `json:"warranty_cost"`
}

// Sum is the amount the ancillary costs add to the total.
func (a Ancillary) Sum() decimal.Decimal {
	return a.ODCTotal.Add(a.FixedPriceTotal).Add(a.HardwareSubtotal).Add(a.WarrantyCost)
}
