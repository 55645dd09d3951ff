package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimationError_Error(t *testing.T) {
	err := NewValidationError("geography", "mars", "unrecognized geography: mars")
	assert.Equal(t, "[error] VALIDATION_FAILED: unrecognized geography: mars (field: geography)", err.Error())

	inv := NewInvariantError("labor_hours", "sums differ")
	assert.Equal(t, "[fatal] INTERNAL_INVARIANT: sums differ (field: labor_hours)", inv.Error())
}

func TestClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		user      bool
		invariant bool
	}{
		{"unknown module", NewUnknownModuleError("X1"), true, false},
		{"validation", NewValidationError("sites", "0", "sites must be at least 1"), true, false},
		{"wrapped validation", fmt.Errorf("estimate: %w", NewValidationError("modules", "", "empty")), true, false},
		{"invariant", NewInvariantError("labor_cost", "mismatch"), false, true},
		{"plain", fmt.Errorf("boom"), false, false},
		{"nil", nil, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.user, IsUserError(tt.err))
			assert.Equal(t, tt.invariant, IsInvariantError(tt.err))
		})
	}
}

func TestSeverityString(t *testing.T) {
	assert.Equal(t, "warning", SeverityWarning.String())
	assert.Equal(t, "unknown", Severity(42).String())
}
