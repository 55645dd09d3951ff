// Package estimation provides the Estimation Calculation Engine.
// Turns a module selection plus contextual multipliers into a reconciled labor hours and cost
// breakdown, by module and independently by role, with reserve, overhead and pass-through costs.
package estimation

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"proposal-cost/decision/catalog"
	perrors "proposal-cost/pkg/errors"
)

// Engine is the estimation engine. It holds only read-only tables and is safe for concurrent use.
type Engine struct {
	multipliers catalog.Multipliers
	policy      catalog.CostPolicy
	logger      *slog.Logger
}

// NewEngine creates an engine over the given multiplier tables and cost policy.
func NewEngine(multipliers catalog.Multipliers, policy catalog.CostPolicy) (*Engine, error) {
	if err := multipliers.Validate(); err != nil {
		return nil, fmt.Errorf("invalid multipliers: %w", err)
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cost policy: %w", err)
	}
	return &Engine{
		multipliers: multipliers,
		policy:      policy,
		logger:      slog.Default(),
	}, nil
}

// NewEngineFromSnapshot creates an engine over an already validated snapshot.
func NewEngineFromSnapshot(s *catalog.Snapshot) *Engine {
	return &Engine{
		multipliers: s.Multipliers,
		policy:      s.Policy,
		logger:      slog.Default().With("snapshot_id", s.ID.String(), "snapshot_version", s.Version),
	}
}

// WithLogger sets the logger used to report invariant failures
func (e *Engine) WithLogger(logger *slog.Logger) *Engine {
	e.logger = logger
	return e
}

// EstimateSnapshot runs Estimate against the catalog and rates of s.
func EstimateSnapshot(in Input, s *catalog.Snapshot) (*Result, error) {
	return NewEngineFromSnapshot(s).Estimate(in, s.Catalog, s.Rates)
}

// Estimate computes a reconciled estimate. It has no side effects: identical inputs
// always yield identical results.
func (e *Engine) Estimate(in Input, cat *catalog.Catalog, rates *catalog.RateTable) (*Result, error) {
	selected, err := validateInput(in, rates)
	if err != nil {
		return nil, err
	}

	warnings, err := CheckPrerequisites(selected, cat)
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, scopeWarnings(in, selected)...)

	method := in.EstimatingMethod
	if method == "" {
		method = MethodEngineering
	}

	var labor *laborBuildUp
	switch method {
	case MethodHistorical:
		labor, err = selectHistorical(in.HistoricalEstimates)
	default:
		labor, err = e.engineering(in, selected, cat, rates)
	}
	if err != nil {
		return nil, err
	}

	reserveRate := decimal.NewFromFloat(e.policy.ReserveRateFor(strings.TrimSpace(in.ClearanceLevel), in.IsPrimeContractor))
	overheadRate := decimal.NewFromFloat(e.policy.OverheadRate)
	reserve, overhead := reserveAndOverhead(labor.cost, reserveRate, overheadRate)
	ancillary := ancillaryCosts(in)

	result := &Result{
		EstimatingMethod:    method,
		TotalLaborHours:     labor.hours,
		TotalLaborCost:      labor.cost,
		RiskReserve:         reserve,
		OverheadCost:        overhead,
		TotalCost:           labor.cost.Add(reserve).Add(overhead).Add(ancillary.Sum()),
		EffectiveHourlyRate: blendedRate(labor.cost, labor.hours),
		BreakdownByModule:   labor.byModule,
		BreakdownByRole:     labor.byRole,
		ContextMultiplier:   labor.contextMultiplier,
		OvertimePremium:     labor.premium,
		ReserveRate:         reserveRate,
		OverheadRate:        overheadRate,
		Ancillary:           ancillary,
		Warnings:            warnings,
	}

	if err := Reconcile(result); err != nil {
		e.logger.Error("estimate failed reconciliation",
			"invariant", invariantOf(err),
			"error", err,
			"method", string(method),
			"modules", selected,
		)
		return nil, err
	}

	return result, nil
}

// engineering is the bottom-up strategy: multipliers, hour allocation, then costing.
func (e *Engine) engineering(in Input, selected []string, cat *catalog.Catalog, rates *catalog.RateTable) (*laborBuildUp, error) {
	factors, err := ResolveFactors(in, e.multipliers)
	if err != nil {
		return nil, err
	}
	contextMultiplier := factors.Product()

	modules := make([]catalog.Module, 0, len(selected))
	for _, id := range selected {
		m, _ := cat.Get(id)
		modules = append(modules, m)
	}

	alloc := allocateHours(modules, contextMultiplier, in.Sites)

	premium := decimal.NewFromFloat(e.policy.Premium(in.Overtime))
	card, err := effectiveRates(alloc.roles, rates, in.CustomRoleOverrides, premium)
	if err != nil {
		return nil, err
	}

	byModule, byRole, cost := composeCosts(alloc, modules, rates, card)
	return &laborBuildUp{
		hours:             alloc.total,
		cost:              cost,
		byModule:          byModule,
		byRole:            byRole,
		contextMultiplier: contextMultiplier,
		premium:           premium,
	}, nil
}

// validateInput rejects malformed requests and returns the de-duplicated module selection.
func validateInput(in Input, rates *catalog.RateTable) ([]string, error) {
	selected := make([]string, 0, len(in.Modules))
	seen := make(map[string]bool, len(in.Modules))
	for _, id := range in.Modules {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		selected = append(selected, id)
	}
	if len(selected) == 0 {
		return nil, perrors.NewValidationError("modules", "", "at least one module must be selected")
	}

	switch in.EstimatingMethod {
	case "", MethodEngineering, MethodHistorical:
	default:
		return nil, perrors.NewValidationError("estimating_method", string(in.EstimatingMethod),
			fmt.Sprintf("estimating_method must be engineering or historical, got %q", in.EstimatingMethod))
	}

	if in.Sites < 1 {
		return nil, perrors.NewValidationError("sites", fmt.Sprint(in.Sites), "sites must be at least 1")
	}

	for _, role := range sortedOverrideRoles(in.CustomRoleOverrides) {
		rate := in.CustomRoleOverrides[role]
		field := "custom_role_overrides." + role
		if !finite(rate) || rate < 0 {
			return nil, perrors.NewValidationError(field, fmt.Sprint(rate),
				fmt.Sprintf("override rate for role %s must be a non-negative number", role))
		}
		if _, ok := rates.Get(role); !ok {
			return nil, perrors.NewValidationError(field, role,
				fmt.Sprintf("override names unknown role %s", role))
		}
	}

	items := []struct {
		field string
		items []LineItem
	}{
		{"odc_items", in.ODCItems},
		{"fixed_price_items", in.FixedPriceItems},
	}
	for _, group := range items {
		for i, item := range group.items {
			if !finite(item.Price) || item.Price < 0 {
				return nil, perrors.NewValidationError(fmt.Sprintf("%s[%d].price", group.field, i), fmt.Sprint(item.Price),
					fmt.Sprintf("price of %q must be a non-negative number", item.Description))
			}
		}
	}

	amounts := []struct {
		field string
		value float64
	}{
		{"hardware_subtotal", in.HardwareSubtotal},
		{"warranty_cost", in.WarrantyCost},
	}
	for _, a := range amounts {
		if !finite(a.value) || a.value < 0 {
			return nil, perrors.NewValidationError(a.field, fmt.Sprint(a.value), a.field+" must be a non-negative number")
		}
	}
	if in.WarrantyMonths < 0 {
		return nil, perrors.NewValidationError("warranty_months", fmt.Sprint(in.WarrantyMonths), "warranty_months must not be negative")
	}

	return selected, nil
}

func ancillaryCosts(in Input) Ancillary {
	a := Ancillary{
		ODCTotal:         decimal.Zero,
		FixedPriceTotal:  decimal.Zero,
		HardwareSubtotal: decimal.NewFromFloat(in.HardwareSubtotal),
		WarrantyMonths:   in.WarrantyMonths,
		WarrantyCost:     decimal.NewFromFloat(in.WarrantyCost),
	}
	for _, item := range in.ODCItems {
		a.ODCTotal = a.ODCTotal.Add(decimal.NewFromFloat(item.Price))
	}
	for _, item := range in.FixedPriceItems {
		a.FixedPriceTotal = a.FixedPriceTotal.Add(decimal.NewFromFloat(item.Price))
	}
	return a
}

func sortedOverrideRoles(overrides map[string]float64) []string {
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func invariantOf(err error) string {
	var e *perrors.EstimationError
	if errors.As(err, &e) {
		return e.Field
	}
	return ""
}
