package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proposal-cost/decision/catalog"
	"proposal-cost/decision/estimation"
)

func estimate(t *testing.T, in estimation.Input) *estimation.Result {
	t.Helper()
	result, err := estimation.EstimateSnapshot(in, catalog.Default())
	require.NoError(t, err)
	return result
}

func TestEvaluate_Pass(t *testing.T) {
	est := estimate(t, estimation.Input{Modules: []string{"dt_discovery"}, Complexity: "M", Sites: 1})

	result, err := NewEngine().Evaluate(context.Background(), EvaluationRequest{Estimation: est})
	require.NoError(t, err)

	assert.Equal(t, DecisionPass, result.Decision)
	assert.Equal(t, 2, result.PoliciesRan)
	assert.Empty(t, result.Violations)
	assert.Empty(t, result.Warnings)
}

func TestEvaluate_ModuleCeilingWarns(t *testing.T) {
	// 680 base hours * 2.3 * 2.0 * 2.0 = 6256h
	est := estimate(t, estimation.Input{
		Modules:          []string{"cm_workload_migration"},
		Complexity:       "XL",
		Environment:      "classified",
		IntegrationLevel: "heavy_integration",
		Sites:            1,
	})

	result, err := NewEngine().Evaluate(context.Background(), EvaluationRequest{Estimation: est})
	require.NoError(t, err)

	assert.Equal(t, DecisionWarn, result.Decision)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "default-max-module-hours", result.Warnings[0].PolicyID)
	assert.Contains(t, result.Warnings[0].Message, "cm_workload_migration")
}

func TestEvaluate_CostLimitDenies(t *testing.T) {
	est := estimate(t, estimation.Input{Modules: []string{"dt_discovery"}, Complexity: "M", Sites: 1})

	result, err := NewEngine().Evaluate(context.Background(), EvaluationRequest{
		Estimation: est,
		CustomPolicies: []Policy{{
			ID:        "api-cost-limit",
			Name:      "Cost Limit",
			Type:      PolicyTypeCostLimit,
			Severity:  SeverityError,
			Threshold: 1000,
			Enabled:   true,
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, DecisionDeny, result.Decision)
	require.Len(t, result.Violations, 1)
	assert.Equal(t, "Cost Limit", result.Violations[0].PolicyName)
}

func TestEvaluate_MinProjectHoursSkipsHistorical(t *testing.T) {
	est := estimate(t, estimation.Input{
		Modules:          []string{"dt_discovery"},
		Complexity:       "M",
		Sites:            1,
		EstimatingMethod: estimation.MethodHistorical,
		HistoricalEstimates: []estimation.HistoricalEstimate{
			{Name: "pilot", ActualHours: 12, ActualTotalCost: 1800, Selected: true},
		},
	})

	e := NewEngine()
	e.AddPolicy(Policy{ID: "rate-floor", Type: PolicyTypeMinBlendedRate, Severity: SeverityWarning, Threshold: 200, Enabled: true})
	e.AddPolicy(Policy{ID: "disabled", Type: PolicyTypeCostLimit, Severity: SeverityError, Threshold: 1, Enabled: false})

	result, err := e.Evaluate(context.Background(), EvaluationRequest{Estimation: est})
	require.NoError(t, err)

	assert.Equal(t, 3, result.PoliciesRan)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "rate-floor", result.Warnings[0].PolicyID)
	assert.Equal(t, DecisionWarn, result.Decision)
}

func TestEvaluate_RequiresEstimate(t *testing.T) {
	_, err := NewEngine().Evaluate(context.Background(), EvaluationRequest{})
	assert.Error(t, err)
}
