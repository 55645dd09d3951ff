package api

import (
	"time"

	"proposal-cost/decision/catalog"
	"proposal-cost/decision/estimation"
	"proposal-cost/decision/policy"
)

// EstimateResponse is the wire form of a reconciled estimate. Amounts are JSON numbers.
type EstimateResponse struct {
	EstimatingMethod    string  `json:"estimating_method"`
	TotalLaborHours     float64 `json:"total_labor_hours"`
	TotalLaborCost      float64 `json:"total_labor_cost"`
	RiskReserve         float64 `json:"risk_reserve"`
	OverheadCost        float64 `json:"overhead_cost"`
	TotalCost           float64 `json:"total_cost"`
	EffectiveHourlyRate float64 `json:"effective_hourly_rate"`

	BreakdownByModule map[string]ModuleBreakdownResponse `json:"breakdown_by_module"`
	BreakdownByRole   map[string]RoleBreakdownResponse   `json:"breakdown_by_role"`

	ContextMultiplier float64           `json:"context_multiplier"`
	OvertimePremium   float64           `json:"overtime_premium"`
	ReserveRate       float64           `json:"reserve_rate"`
	OverheadRate      float64           `json:"overhead_rate"`
	Ancillary         AncillaryResponse `json:"ancillary"`

	Warnings []string        `json:"warnings"`
	Policy   *PolicyResponse `json:"policy,omitempty"`
	Snapshot SnapshotRef     `json:"snapshot"`
}

// ModuleBreakdownResponse is one module's share of labor
type ModuleBreakdownResponse struct {
	ModuleName string  `json:"module_name"`
	FocusArea  string  `json:"focus_area"`
	Hours      float64 `json:"hours"`
	Cost       float64 `json:"cost"`
}

// RoleBreakdownResponse is one role's share of labor
type RoleBreakdownResponse struct {
	RoleName      string  `json:"role_name"`
	Hours         float64 `json:"hours"`
	EffectiveRate float64 `json:"effective_rate"`
	Cost          float64 `json:"cost"`
}

// AncillaryResponse totals pass-through costs
type AncillaryResponse struct {
	ODCTotal         float64 `json:"odc_total"`
	FixedPriceTotal  float64 `json:"fixed_price_total"`
	HardwareSubtotal float64 `json:"hardware_subtotal"`
	WarrantyMonths   int     `json:"warranty_months"`
	WarrantyCost     float64 `json:"warranty_cost"`
}

// PolicyResponse is the guardrail outcome
type PolicyResponse struct {
	Decision   policy.Decision    `json:"decision"`
	Violations []policy.Violation `json:"violations"`
	Warnings   []policy.Warning   `json:"warnings"`
}

// SnapshotRef identifies the catalog snapshot an estimate was computed against
type SnapshotRef struct {
	ID         string `json:"id"`
	Version    string `json:"version"`
	Hash       string `json:"hash"`
	EstimateAt string `json:"estimated_at"`
}

// NewEstimateResponse renders an estimate for the wire. pol may be nil when guardrails were skipped.
func NewEstimateResponse(est *estimation.Result, pol *policy.EvaluationResult, snap *catalog.Snapshot) *EstimateResponse {
	modules := make(map[string]ModuleBreakdownResponse, len(est.BreakdownByModule))
	for id, b := range est.BreakdownByModule {
		modules[id] = ModuleBreakdownResponse{
			ModuleName: b.ModuleName,
			FocusArea:  b.FocusArea,
			Hours:      b.Hours.InexactFloat64(),
			Cost:       b.Cost.InexactFloat64(),
		}
	}

	roles := make(map[string]RoleBreakdownResponse, len(est.BreakdownByRole))
	for id, b := range est.BreakdownByRole {
		roles[id] = RoleBreakdownResponse{
			RoleName:      b.RoleName,
			Hours:         b.Hours.InexactFloat64(),
			EffectiveRate: b.EffectiveRate.InexactFloat64(),
			Cost:          b.Cost.InexactFloat64(),
		}
	}

	warnings := est.Warnings
	if warnings == nil {
		warnings = []string{}
	}

	resp := &EstimateResponse{
		EstimatingMethod:    string(est.EstimatingMethod),
		TotalLaborHours:     est.TotalLaborHours.InexactFloat64(),
		TotalLaborCost:      est.TotalLaborCost.InexactFloat64(),
		RiskReserve:         est.RiskReserve.InexactFloat64(),
		OverheadCost:        est.OverheadCost.InexactFloat64(),
		TotalCost:           est.TotalCost.InexactFloat64(),
		EffectiveHourlyRate: est.EffectiveHourlyRate.InexactFloat64(),
		BreakdownByModule:   modules,
		BreakdownByRole:     roles,
		ContextMultiplier:   est.ContextMultiplier.InexactFloat64(),
		OvertimePremium:     est.OvertimePremium.InexactFloat64(),
		ReserveRate:         est.ReserveRate.InexactFloat64(),
		OverheadRate:        est.OverheadRate.InexactFloat64(),
		Ancillary: AncillaryResponse{
			ODCTotal:         est.Ancillary.ODCTotal.InexactFloat64(),
			FixedPriceTotal:  est.Ancillary.FixedPriceTotal.InexactFloat64(),
			HardwareSubtotal: est.Ancillary.HardwareSubtotal.InexactFloat64(),
			WarrantyMonths:   est.Ancillary.WarrantyMonths,
			WarrantyCost:     est.Ancillary.WarrantyCost.InexactFloat64(),
		},
		Warnings: warnings,
		Snapshot: SnapshotRef{
			ID:         snap.ID.String(),
			Version:    snap.Version,
			Hash:       snap.Hash,
			EstimateAt: time.Now().UTC().Format(time.RFC3339),
		},
	}
	if pol != nil {
		resp.Policy = &PolicyResponse{
			Decision:   pol.Decision,
			Violations: pol.Violations,
			Warnings:   pol.Warnings,
		}
	}
	return resp
}
