package estimation

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"proposal-cost/decision/catalog"
	perrors "proposal-cost/pkg/errors"
)

// Factors are the resolved per-dimension context multipliers.
type Factors struct {
	Complexity  float64 `json:"complexity"`
	Environment float64 `json:"environment"`
	Integration float64 `json:"integration_level"`
	Geography   float64 `json:"geography"`
	Clearance   float64 `json:"clearance_level"`
}

// Product composes the factors. Composition is purely multiplicative, so order is irrelevant.
func (f Factors) Product() decimal.Decimal {
	return decimal.NewFromFloat(f.Complexity).
		Mul(decimal.NewFromFloat(f.Environment)).
		Mul(decimal.NewFromFloat(f.Integration)).
		Mul(decimal.NewFromFloat(f.Geography)).
		Mul(decimal.NewFromFloat(f.Clearance))
}

// ResolveFactors maps the categorical context of in to numeric factors.
// Complexity is required; the other dimensions default to 1.0 when empty
// and are rejected when set to a value the table does not know.
func ResolveFactors(in Input, tables catalog.Multipliers) (Factors, error) {
	var f Factors

	tier, ok := catalog.ParseComplexity(in.Complexity)
	if !ok {
		return f, perrors.NewValidationError("complexity", in.Complexity,
			fmt.Sprintf("complexity must be one of S, M, L, XL, got %q", in.Complexity))
	}
	factor, ok := tables.Complexity[tier]
	if !ok {
		return f, perrors.NewValidationError("complexity", in.Complexity,
			"no multiplier configured for complexity "+string(tier))
	}
	f.Complexity = factor

	lookups := []struct {
		field string
		value string
		table map[string]float64
		dst   *float64
	}{
		{"environment", in.Environment, tables.Environment, &f.Environment},
		{"integration_level", in.IntegrationLevel, tables.Integration, &f.Integration},
		{"geography", in.Geography, tables.Geography, &f.Geography},
		{"clearance_level", in.ClearanceLevel, tables.Clearance, &f.Clearance},
	}
	for _, l := range lookups {
		v, err := lookupFactor(l.field, l.value, l.table)
		if err != nil {
			return Factors{}, err
		}
		*l.dst = v
	}

	return f, nil
}

func lookupFactor(field, value string, table map[string]float64) (float64, error) {
	key := strings.TrimSpace(value)
	if key == "" {
		return 1.0, nil
	}
	f, ok := table[key]
	if !ok {
		return 0, perrors.NewValidationError(field, value, fmt.Sprintf("unrecognized %s %q", field, value))
	}
	return f, nil
}
