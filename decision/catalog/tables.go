package catalog

import (
	"fmt"
	"maps"
	"math"
	"sort"
	"strings"
)

// Complexity is the closed set of complexity tiers.
type Complexity string

const (
	ComplexitySmall      Complexity = "S"
	ComplexityMedium     Complexity = "M"
	ComplexityLarge      Complexity = "L"
	ComplexityExtraLarge Complexity = "XL"
)

// Complexities lists every tier, smallest first.
var Complexities = []Complexity{ComplexitySmall, ComplexityMedium, ComplexityLarge, ComplexityExtraLarge}

// ParseComplexity accepts the tier codes and their long names, case-insensitively.
func ParseComplexity(s string) (Complexity, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "S", "SMALL":
		return ComplexitySmall, true
	case "M", "MEDIUM":
		return ComplexityMedium, true
	case "L", "LARGE":
		return ComplexityLarge, true
	case "XL", "EXTRA_LARGE", "EXTRA-LARGE":
		return ComplexityExtraLarge, true
	}
	return "", false
}

// Multipliers maps each categorical context dimension to its factor table.
type Multipliers struct {
	Complexity  map[Complexity]float64 `json:"complexity" yaml:"complexity"`
	Environment map[string]float64     `json:"environment" yaml:"environment"`
	Integration map[string]float64     `json:"integration_level" yaml:"integration_level"`
	Geography   map[string]float64     `json:"geography" yaml:"geography"`
	Clearance   map[string]float64     `json:"clearance_level" yaml:"clearance_level"`
}

// Validate checks every tier is present and every factor lies in (0, ∞).
func (m Multipliers) Validate() error {
	for _, tier := range Complexities {
		f, ok := m.Complexity[tier]
		if !ok {
			return fmt.Errorf("complexity table is missing tier %s", tier)
		}
		if err := checkFactor("complexity", string(tier), f); err != nil {
			return err
		}
	}
	for key := range m.Complexity {
		if _, ok := ParseComplexity(string(key)); !ok {
			return fmt.Errorf("complexity table has unknown tier %q", key)
		}
	}

	tables := []struct {
		name  string
		table map[string]float64
	}{
		{"environment", m.Environment},
		{"integration_level", m.Integration},
		{"geography", m.Geography},
		{"clearance_level", m.Clearance},
	}
	for _, t := range tables {
		for _, key := range sortedKeys(t.table) {
			if err := checkFactor(t.name, key, t.table[key]); err != nil {
				return err
			}
		}
	}
	return nil
}

// clone returns a copy that shares no maps with m.
func (m Multipliers) clone() Multipliers {
	return Multipliers{
		Complexity:  maps.Clone(m.Complexity),
		Environment: maps.Clone(m.Environment),
		Integration: maps.Clone(m.Integration),
		Geography:   maps.Clone(m.Geography),
		Clearance:   maps.Clone(m.Clearance),
	}
}

func checkFactor(table, key string, f float64) error {
	if f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("%s factor for %q must be positive and finite, got %v", table, key, f)
	}
	return nil
}

// CostPolicy holds the rates layered on top of labor cost.
type CostPolicy struct {
	// ReserveRate is the default management reserve fraction of labor cost.
	ReserveRate float64 `json:"reserve_rate" yaml:"reserve_rate"`
	// ReserveByClearance replaces ReserveRate for specific clearance levels.
	ReserveByClearance map[string]float64 `json:"reserve_by_clearance,omitempty" yaml:"reserve_by_clearance,omitempty"`
	// PrimeContractorReserve is added to the reserve rate for prime-contractor bids.
	PrimeContractorReserve float64 `json:"prime_contractor_reserve" yaml:"prime_contractor_reserve"`
	// OverheadRate applies to labor plus reserve.
	OverheadRate float64 `json:"overhead_rate" yaml:"overhead_rate"`
	// OvertimePremium multiplies all labor cost when overtime is requested.
	OvertimePremium float64 `json:"overtime_premium" yaml:"overtime_premium"`
}

// ReserveRateFor resolves the reserve fraction for a clearance level and contractor status.
func (p CostPolicy) ReserveRateFor(clearance string, prime bool) float64 {
	rate := p.ReserveRate
	if r, ok := p.ReserveByClearance[clearance]; ok {
		rate = r
	}
	if prime {
		rate += p.PrimeContractorReserve
	}
	return rate
}

func (p CostPolicy) clone() CostPolicy {
	p.ReserveByClearance = maps.Clone(p.ReserveByClearance)
	return p
}

// Premium returns the labor cost multiplier for the overtime flag.
func (p CostPolicy) Premium(overtime bool) float64 {
	if overtime {
		return p.OvertimePremium
	}
	return 1.0
}

func (p CostPolicy) Validate() error {
	nonNegative := map[string]float64{
		"reserve_rate":             p.ReserveRate,
		"prime_contractor_reserve": p.PrimeContractorReserve,
		"overhead_rate":            p.OverheadRate,
	}
	for clearance, r := range p.ReserveByClearance {
		nonNegative["reserve_by_clearance."+clearance] = r
	}
	for _, name := range sortedKeys(nonNegative) {
		v := nonNegative[name]
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("policy %s must be a non-negative number, got %v", name, v)
		}
	}
	if p.OvertimePremium <= 0 || math.IsNaN(p.OvertimePremium) || math.IsInf(p.OvertimePremium, 0) {
		return fmt.Errorf("policy overtime_premium must be positive, got %v", p.OvertimePremium)
	}
	return nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
