// Package policy provides proposal guardrails.
// Evaluates sizing and budget policies against a finished estimate without changing it.
package policy

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"proposal-cost/decision/estimation"
	"proposal-cost/pkg/platform"
)

// PolicyType defines the type of policy
type PolicyType string

const (
	PolicyTypeCostLimit       PolicyType = "cost_limit"
	PolicyTypeMinProjectHours PolicyType = "min_project_hours"
	PolicyTypeMaxModuleHours  PolicyType = "max_module_hours"
	PolicyTypeMinBlendedRate  PolicyType = "min_blended_rate"
)

// Severity defines policy violation severity
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Decision is the policy evaluation outcome
type Decision string

const (
	DecisionPass Decision = "pass"
	DecisionWarn Decision = "warn"
	DecisionDeny Decision = "deny"
)

// Policy defines a guardrail
type Policy struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Type        PolicyType `json:"type"`
	Severity    Severity   `json:"severity"`
	Threshold   float64    `json:"threshold"`
	Enabled     bool       `json:"enabled"`
}

// Violation represents a policy violation
type Violation struct {
	PolicyID   string `json:"policy_id"`
	PolicyName string `json:"policy_name"`
	Message    string `json:"message"`
	Severity   string `json:"severity"`
}

// Warning represents a policy warning
type Warning struct {
	PolicyID string `json:"policy_id"`
	Message  string `json:"message"`
}

// EvaluationRequest contains the input for policy evaluation
type EvaluationRequest struct {
	Estimation     *estimation.Result
	CustomPolicies []Policy
}

// EvaluationResult contains the policy evaluation outcome
type EvaluationResult struct {
	Decision    Decision    `json:"decision"`
	Violations  []Violation `json:"violations"`
	Warnings    []Warning   `json:"warnings"`
	PoliciesRan int         `json:"policies_ran"`
	EvaluatedAt time.Time   `json:"evaluated_at"`
}

// Engine evaluates policies against estimates
type Engine struct {
	policies []Policy
}

// NewEngine creates a policy engine with the built-in sizing guardrails.
func NewEngine() *Engine {
	return &Engine{
		policies: DefaultPolicies(),
	}
}

// AddPolicy adds a custom policy
func (e *Engine) AddPolicy(p Policy) {
	e.policies = append(e.policies, p)
}

// Policies lists the configured policies.
func (e *Engine) Policies() []Policy {
	return append([]Policy(nil), e.policies...)
}

// Evaluate runs all policies against the estimate
func (e *Engine) Evaluate(ctx context.Context, req EvaluationRequest) (*EvaluationResult, error) {
	if req.Estimation == nil {
		return nil, fmt.Errorf("policy evaluation requires an estimate")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &EvaluationResult{
		Decision:    DecisionPass,
		Violations:  make([]Violation, 0),
		Warnings:    make([]Warning, 0),
		EvaluatedAt: time.Now(),
	}

	allPolicies := make([]Policy, 0, len(e.policies)+len(req.CustomPolicies))
	allPolicies = append(allPolicies, e.policies...)
	allPolicies = append(allPolicies, req.CustomPolicies...)

	for _, policy := range allPolicies {
		if !policy.Enabled {
			continue
		}

		result.PoliciesRan++
		violation, warning := e.evaluatePolicy(policy, req.Estimation)

		if violation != nil {
			result.Violations = append(result.Violations, *violation)
			if policy.Severity == SeverityError {
				result.Decision = DecisionDeny
			} else if result.Decision != DecisionDeny {
				result.Decision = DecisionWarn
			}
		}

		if warning != nil {
			result.Warnings = append(result.Warnings, *warning)
			if result.Decision == DecisionPass {
				result.Decision = DecisionWarn
			}
		}
	}

	return result, nil
}

func (e *Engine) evaluatePolicy(p Policy, est *estimation.Result) (*Violation, *Warning) {
	threshold := decimal.NewFromFloat(p.Threshold)

	switch p.Type {
	case PolicyTypeCostLimit:
		if est.TotalCost.GreaterThan(threshold) {
			return e.finding(p, fmt.Sprintf("Total cost ($%s) exceeds limit ($%s)",
				est.TotalCost.StringFixed(2), threshold.StringFixed(2)))
		}

	case PolicyTypeMinProjectHours:
		if est.EstimatingMethod == estimation.MethodEngineering && est.TotalLaborHours.LessThan(threshold) {
			return e.finding(p, fmt.Sprintf("Total labor hours (%s) below project minimum (%s)",
				est.TotalLaborHours.StringFixed(1), threshold.StringFixed(1)))
		}

	case PolicyTypeMaxModuleHours:
		var over []string
		for id, b := range est.BreakdownByModule {
			if b.Hours.GreaterThan(threshold) {
				over = append(over, fmt.Sprintf("%s (%sh)", id, b.Hours.StringFixed(1)))
			}
		}
		if len(over) > 0 {
			sort.Strings(over)
			return e.finding(p, fmt.Sprintf("Modules exceed %sh single-module ceiling: %v",
				threshold.StringFixed(0), over))
		}

	case PolicyTypeMinBlendedRate:
		if est.TotalLaborHours.IsPositive() && est.EffectiveHourlyRate.LessThan(threshold) {
			return e.finding(p, fmt.Sprintf("Blended rate ($%s/h) below floor ($%s/h)",
				est.EffectiveHourlyRate.StringFixed(2), threshold.StringFixed(2)))
		}
	}

	return nil, nil
}

// finding reports errors as violations and everything else as warnings.
func (e *Engine) finding(p Policy, msg string) (*Violation, *Warning) {
	if p.Severity == SeverityError {
		return &Violation{
			PolicyID:   p.ID,
			PolicyName: p.Name,
			Message:    msg,
			Severity:   string(p.Severity),
		}, nil
	}
	return nil, &Warning{PolicyID: p.ID, Message: msg}
}

// DefaultPolicies are the sizing rules every estimate is checked against.
// Thresholds can be tuned with PROPOSALCOST_MIN_PROJECT_HOURS and PROPOSALCOST_MAX_MODULE_HOURS.
func DefaultPolicies() []Policy {
	minHours := platform.GetEnvFloat("PROPOSALCOST_MIN_PROJECT_HOURS", 40)
	maxModuleHours := platform.GetEnvFloat("PROPOSALCOST_MAX_MODULE_HOURS", 2000)

	return []Policy{
		{
			ID:          "default-min-project-hours",
			Name:        "Minimum Project Size",
			Description: fmt.Sprintf("Warn when an engineering estimate totals fewer than %g labor hours", minHours),
			Type:        PolicyTypeMinProjectHours,
			Severity:    SeverityWarning,
			Threshold:   minHours,
			Enabled:     true,
		},
		{
			ID:          "default-max-module-hours",
			Name:        "Single Module Ceiling",
			Description: fmt.Sprintf("Warn when any module exceeds %g labor hours", maxModuleHours),
			Type:        PolicyTypeMaxModuleHours,
			Severity:    SeverityWarning,
			Threshold:   maxModuleHours,
			Enabled:     true,
		},
	}
}
