package estimation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "proposal-cost/pkg/errors"
)

func TestReconcile_DetectsMismatch(t *testing.T) {
	cat, rates := testTables(t)

	tests := []struct {
		name      string
		tamper    func(*Result)
		invariant string
	}{
		{"role dropped from role breakdown", func(r *Result) { delete(r.BreakdownByRole, "pm") }, InvariantLaborHours},
		{"module cost drift", func(r *Result) {
			b := r.BreakdownByModule["DT"]
			b.Cost = b.Cost.Add(decimal.NewFromInt(1))
			r.BreakdownByModule["DT"] = b
		}, InvariantLaborCost},
		{"total not additive", func(r *Result) { r.TotalCost = r.TotalCost.Add(decimal.NewFromFloat(0.01)) }, InvariantTotalCost},
		{"blended rate wrong", func(r *Result) { r.EffectiveHourlyRate = decimal.NewFromInt(1) }, InvariantEffectiveRate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := testEngine(t).Estimate(baseInput("DT", "DA"), cat, rates)
			require.NoError(t, err)
			require.NoError(t, Reconcile(result))

			tt.tamper(result)
			err = Reconcile(result)
			require.Error(t, err)

			var estErr *perrors.EstimationError
			require.ErrorAs(t, err, &estErr)
			assert.Equal(t, tt.invariant, estErr.Field)
			assert.True(t, perrors.IsInvariantError(err))
			assert.False(t, perrors.IsUserError(err))
		})
	}
}

func TestReconcile_WithinTolerance(t *testing.T) {
	cat, rates := testTables(t)
	result, err := testEngine(t).Estimate(baseInput("M1"), cat, rates)
	require.NoError(t, err)

	result.TotalCost = result.TotalCost.Add(decimal.New(5, -7))
	assert.NoError(t, Reconcile(result))
}

func TestInvariantOf(t *testing.T) {
	assert.Equal(t, InvariantTotalCost, invariantOf(perrors.NewInvariantError(InvariantTotalCost, "x")))
	assert.Equal(t, "", invariantOf(assert.AnError))
}
