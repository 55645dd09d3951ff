package estimation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"proposal-cost/decision/catalog"
)

func TestAllocateHours(t *testing.T) {
	modules := []catalog.Module{
		{ID: "a", BaseHoursByRole: map[string]float64{"eng": 10, "pm": 2}},
		{ID: "b", BaseHoursByRole: map[string]float64{"eng": 5, "qa": 4}},
	}

	a := allocateHours(modules, decimal.NewFromFloat(1.5), 2)

	assert.Len(t, a.cells, 4)
	assertDecimal(t, "36", a.moduleHours["a"])
	assertDecimal(t, "27", a.moduleHours["b"])
	assertDecimal(t, "45", a.roleHours["eng"])
	assertDecimal(t, "6", a.roleHours["pm"])
	assertDecimal(t, "12", a.roleHours["qa"])
	assertDecimal(t, "63", a.total)
	assert.Equal(t, []string{"eng", "pm", "qa"}, a.roles)
}

func TestReserveAndOverhead(t *testing.T) {
	reserve, overhead := reserveAndOverhead(decimal.NewFromInt(2000), decimal.NewFromFloat(0.1), decimal.NewFromFloat(0.5))
	assertDecimal(t, "200", reserve)
	assertDecimal(t, "1100", overhead)
}

func TestBlendedRate(t *testing.T) {
	assert.True(t, blendedRate(decimal.NewFromInt(500), decimal.Zero).IsZero())
	assertDecimal(t, "12.5", blendedRate(decimal.NewFromInt(500), decimal.NewFromInt(40)))
}
