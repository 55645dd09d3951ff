package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"proposal-cost/api"
	"proposal-cost/decision/catalog"
	"proposal-cost/decision/estimation"
	"proposal-cost/decision/policy"
	perrors "proposal-cost/pkg/errors"
)

// exit code used when a guardrail denies the estimate
const exitPolicyDeny = 2

// =============================================================================
// ESTIMATE COMMAND
// =============================================================================

func inputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "input",
			Usage: "Path to a JSON request (same shape as POST /api/v1/calculate); other input flags are ignored",
		},
		&cli.StringSliceFlag{
			Name:    "module",
			Aliases: []string{"m"},
			Usage:   "Module id to include (repeatable)",
		},
		&cli.StringFlag{
			Name:    "complexity",
			Aliases: []string{"c"},
			Value:   "M",
			Usage:   "Complexity tier (S, M, L, XL)",
		},
		&cli.StringFlag{
			Name:  "environment",
			Usage: "Operating environment (e.g. commercial, govcloud, classified)",
		},
		&cli.StringFlag{
			Name:  "integration",
			Usage: "Integration level (e.g. standalone, light_integration, heavy_integration)",
		},
		&cli.StringFlag{
			Name:  "geography",
			Usage: "Geography (e.g. conus, oconus)",
		},
		&cli.StringFlag{
			Name:  "clearance",
			Usage: "Clearance level (e.g. none, public_trust, secret, top_secret)",
		},
		&cli.BoolFlag{
			Name:  "prime",
			Usage: "Prime contractor (adds the prime reserve)",
		},
		&cli.IntFlag{
			Name:  "sites",
			Value: 1,
			Usage: "Number of sites",
		},
		&cli.BoolFlag{
			Name:  "overtime",
			Usage: "Apply the overtime premium",
		},
		&cli.StringSliceFlag{
			Name:  "rate",
			Usage: "Role rate override as role=rate (repeatable)",
		},
		&cli.StringFlag{
			Name:  "method",
			Value: string(estimation.MethodEngineering),
			Usage: "Estimating method (engineering, historical)",
		},
		&cli.StringSliceFlag{
			Name:  "historical",
			Usage: "Selected historical actual as name:hours:cost (repeatable)",
		},
		&cli.Float64Flag{
			Name:  "cost-limit",
			Usage: "Total cost limit for policy check",
		},
	}
}

func estimateCommand() *cli.Command {
	flags := append(inputFlags(),
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Value:   "table",
			Usage:   "Output format (table, json, markdown)",
		},
		&cli.BoolFlag{
			Name:  "skip-policy",
			Value: false,
			Usage: "Skip policy evaluation",
		},
		&cli.BoolFlag{
			Name:  "rate-store",
			Usage: "Use the active rate card from ClickHouse",
		},
	)
	return &cli.Command{
		Name:   "estimate",
		Usage:  "Estimate labor hours and cost for a module selection",
		Flags:  flags,
		Action: runEstimate,
	}
}

func runEstimate(c *cli.Context) error {
	snap, err := loadSnapshot(c)
	if err != nil {
		return err
	}
	if c.Bool("rate-store") {
		holder := catalog.NewHolder(snap)
		store, _, err := applyStoredRates(c.Context, c, holder)
		if err != nil {
			return err
		}
		store.Close()
		snap = holder.Load()
	}

	req, err := requestFromFlags(c)
	if err != nil {
		return err
	}

	result, err := estimation.EstimateSnapshot(req.ToInput(), snap)
	if err != nil {
		return describeError(err)
	}

	var policyResult *policy.EvaluationResult
	if !c.Bool("skip-policy") {
		policyEngine := policy.NewEngine()
		if req.CostLimit != nil {
			policyEngine.AddPolicy(policy.Policy{
				ID:        "cli-cost-limit",
				Name:      "Cost Limit",
				Type:      policy.PolicyTypeCostLimit,
				Severity:  policy.SeverityError,
				Threshold: *req.CostLimit,
				Enabled:   true,
			})
		}
		policyResult, err = policyEngine.Evaluate(c.Context, policy.EvaluationRequest{Estimation: result})
		if err != nil {
			return fmt.Errorf("policy evaluation failed: %w", err)
		}
	}

	out := c.App.Writer
	switch c.String("format") {
	case "json":
		err = outputJSON(out, result, policyResult, snap)
	case "markdown":
		err = outputMarkdown(out, result, policyResult, snap)
	default:
		err = outputTable(out, result, policyResult, snap)
	}
	if err != nil {
		return err
	}

	if policyResult != nil && policyResult.Decision == policy.DecisionDeny {
		return cli.Exit("policy denied the estimate", exitPolicyDeny)
	}
	return nil
}

// =============================================================================
// VALIDATE COMMAND
// =============================================================================

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Check a request without printing the estimate",
		Flags: inputFlags(),
		Action: func(c *cli.Context) error {
			snap, err := loadSnapshot(c)
			if err != nil {
				return err
			}
			req, err := requestFromFlags(c)
			if err != nil {
				return err
			}
			result, err := estimation.EstimateSnapshot(req.ToInput(), snap)
			if err != nil {
				return describeError(err)
			}

			policyResult, err := policy.NewEngine().Evaluate(c.Context, policy.EvaluationRequest{Estimation: result})
			if err != nil {
				return err
			}

			fmt.Fprintln(c.App.Writer, "✅ Request is valid")
			for _, w := range result.Warnings {
				fmt.Fprintf(c.App.Writer, "⚠️  %s\n", w)
			}
			for _, w := range policyResult.Warnings {
				fmt.Fprintf(c.App.Writer, "⚠️  %s\n", w.Message)
			}
			return nil
		},
	}
}

// =============================================================================
// INPUT PARSING
// =============================================================================

func requestFromFlags(c *cli.Context) (api.CalculateRequest, error) {
	var req api.CalculateRequest

	if path := c.String("input"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return req, fmt.Errorf("failed to read input: %w", err)
		}
		if err := json.Unmarshal(data, &req); err != nil {
			return req, fmt.Errorf("invalid input %s: %w", path, err)
		}
		return req, nil
	}

	overrides, err := parseOverrides(c.StringSlice("rate"))
	if err != nil {
		return req, err
	}
	historical, err := parseHistorical(c.StringSlice("historical"))
	if err != nil {
		return req, err
	}

	sites := c.Int("sites")
	req.Sites = &sites
	req.Input = estimation.Input{
		Modules:             c.StringSlice("module"),
		Complexity:          c.String("complexity"),
		Environment:         c.String("environment"),
		IntegrationLevel:    c.String("integration"),
		Geography:           c.String("geography"),
		ClearanceLevel:      c.String("clearance"),
		IsPrimeContractor:   c.Bool("prime"),
		Overtime:            c.Bool("overtime"),
		CustomRoleOverrides: overrides,
		EstimatingMethod:    estimation.Method(c.String("method")),
		HistoricalEstimates: historical,
	}
	if c.IsSet("cost-limit") {
		limit := c.Float64("cost-limit")
		req.CostLimit = &limit
	}
	return req, nil
}

// parseOverrides reads role=rate pairs.
func parseOverrides(values []string) (map[string]float64, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make(map[string]float64, len(values))
	for _, v := range values {
		role, raw, ok := strings.Cut(v, "=")
		if !ok || strings.TrimSpace(role) == "" {
			return nil, fmt.Errorf("rate override %q must be role=rate", v)
		}
		rate, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("rate override %q: %w", v, err)
		}
		out[strings.TrimSpace(role)] = rate
	}
	return out, nil
}

// parseHistorical reads name:hours:cost triples; every entry given is selected.
func parseHistorical(values []string) ([]estimation.HistoricalEstimate, error) {
	out := make([]estimation.HistoricalEstimate, 0, len(values))
	for _, v := range values {
		parts := strings.Split(v, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("historical estimate %q must be name:hours:cost", v)
		}
		hours, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("historical estimate %q: bad hours: %w", v, err)
		}
		cost, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return nil, fmt.Errorf("historical estimate %q: bad cost: %w", v, err)
		}
		out = append(out, estimation.HistoricalEstimate{
			Name:            parts[0],
			ActualHours:     hours,
			ActualTotalCost: cost,
			Selected:        true,
		})
	}
	return out, nil
}

// describeError turns user errors into a one-line message with exit code 1.
func describeError(err error) error {
	if perrors.IsUserError(err) {
		return cli.Exit(fmt.Sprintf("invalid request: %v", err), 1)
	}
	return fmt.Errorf("estimation failed: %w", err)
}

// =============================================================================
// OUTPUT FORMATTERS
// =============================================================================

// outputJSON writes the same document POST /api/v1/calculate returns.
func outputJSON(w io.Writer, result *estimation.Result, policyResult *policy.EvaluationResult, snap *catalog.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(api.NewEstimateResponse(result, policyResult, snap))
}

func outputTable(w io.Writer, result *estimation.Result, policyResult *policy.EvaluationResult, snap *catalog.Snapshot) error {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "╔══════════════════════════════════════════════════════════════╗")
	fmt.Fprintln(w, "║                    💰 PROPOSAL ESTIMATE                       ║")
	fmt.Fprintln(w, "╠══════════════════════════════════════════════════════════════╣")
	fmt.Fprintf(w, "║  Method:                %-38s ║\n", result.EstimatingMethod)
	fmt.Fprintf(w, "║  Labor Hours:           %-38s ║\n", result.TotalLaborHours.StringFixed(1))
	fmt.Fprintf(w, "║  Labor Cost:            $%-37s ║\n", result.TotalLaborCost.StringFixed(2))
	fmt.Fprintf(w, "║  Risk Reserve:          $%-37s ║\n", result.RiskReserve.StringFixed(2))
	fmt.Fprintf(w, "║  Overhead:              $%-37s ║\n", result.OverheadCost.StringFixed(2))
	if sum := result.Ancillary.Sum(); sum.IsPositive() {
		fmt.Fprintf(w, "║  Other Direct Costs:    $%-37s ║\n", sum.StringFixed(2))
	}
	fmt.Fprintf(w, "║  Total Cost:            $%-37s ║\n", result.TotalCost.StringFixed(2))
	fmt.Fprintf(w, "║  Blended Rate:          $%-37s ║\n", result.EffectiveHourlyRate.StringFixed(2)+"/h")
	fmt.Fprintln(w, "╠══════════════════════════════════════════════════════════════╣")

	fmt.Fprintln(w, "║  BY MODULE                                                    ║")
	fmt.Fprintln(w, "╠══════════════════════════════════════════════════════════════╣")
	for _, id := range sortedKeys(result.BreakdownByModule) {
		b := result.BreakdownByModule[id]
		fmt.Fprintf(w, "║  %-35s  $%-20s ║\n", truncate(b.ModuleName, 35), b.Cost.StringFixed(2))
	}
	fmt.Fprintln(w, "╠══════════════════════════════════════════════════════════════╣")

	fmt.Fprintln(w, "║  BY ROLE                                                      ║")
	fmt.Fprintln(w, "╠══════════════════════════════════════════════════════════════╣")
	for _, id := range sortedKeys(result.BreakdownByRole) {
		b := result.BreakdownByRole[id]
		label := fmt.Sprintf("%s (%sh)", b.RoleName, b.Hours.StringFixed(1))
		fmt.Fprintf(w, "║  %-35s  $%-20s ║\n", truncate(label, 35), b.Cost.StringFixed(2))
	}
	fmt.Fprintln(w, "╠══════════════════════════════════════════════════════════════╣")

	for _, warning := range result.Warnings {
		fmt.Fprintf(w, "║  ⚠️  %-56s ║\n", truncate(warning, 56))
	}

	if policyResult != nil {
		var policyIcon string
		switch policyResult.Decision {
		case policy.DecisionPass:
			policyIcon = "✅ PASS"
		case policy.DecisionWarn:
			policyIcon = "⚠️  WARN"
		case policy.DecisionDeny:
			policyIcon = "❌ DENY"
		}
		fmt.Fprintf(w, "║  Policy Result:         %-38s ║\n", policyIcon)

		for _, v := range policyResult.Violations {
			fmt.Fprintf(w, "║  ❌ %-57s ║\n", truncate(v.Message, 57))
		}
		for _, pw := range policyResult.Warnings {
			fmt.Fprintf(w, "║  ⚠️  %-56s ║\n", truncate(pw.Message, 56))
		}
	}

	fmt.Fprintf(w, "║  Catalog: %-52s ║\n", truncate(snap.Version+" "+snap.Hash, 52))
	fmt.Fprintln(w, "╚══════════════════════════════════════════════════════════════╝")
	return nil
}

func outputMarkdown(w io.Writer, result *estimation.Result, policyResult *policy.EvaluationResult, snap *catalog.Snapshot) error {
	fmt.Fprintln(w, "## 💰 Proposal Estimate")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "| Metric | Value |")
	fmt.Fprintln(w, "|--------|-------|")
	fmt.Fprintf(w, "| **Labor Hours** | %s |\n", result.TotalLaborHours.StringFixed(1))
	fmt.Fprintf(w, "| **Labor Cost** | $%s |\n", result.TotalLaborCost.StringFixed(2))
	fmt.Fprintf(w, "| **Risk Reserve** | $%s |\n", result.RiskReserve.StringFixed(2))
	fmt.Fprintf(w, "| **Overhead** | $%s |\n", result.OverheadCost.StringFixed(2))
	fmt.Fprintf(w, "| **Total Cost** | $%s |\n", result.TotalCost.StringFixed(2))
	fmt.Fprintf(w, "| **Blended Rate** | $%s/h |\n", result.EffectiveHourlyRate.StringFixed(2))
	if policyResult != nil {
		fmt.Fprintf(w, "| **Policy Result** | %s |\n", policyResult.Decision)
	}
	fmt.Fprintf(w, "| **Catalog** | %s |\n", snap.Version)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "### 📊 By Module")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "| Module | Focus Area | Hours | Cost |")
	fmt.Fprintln(w, "|--------|------------|-------|------|")
	for _, id := range sortedKeys(result.BreakdownByModule) {
		b := result.BreakdownByModule[id]
		fmt.Fprintf(w, "| %s | %s | %s | $%s |\n", b.ModuleName, b.FocusArea, b.Hours.StringFixed(1), b.Cost.StringFixed(2))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "### 👥 By Role")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "| Role | Hours | Rate | Cost |")
	fmt.Fprintln(w, "|------|-------|------|------|")
	for _, id := range sortedKeys(result.BreakdownByRole) {
		b := result.BreakdownByRole[id]
		fmt.Fprintf(w, "| %s | %s | $%s | $%s |\n", b.RoleName, b.Hours.StringFixed(1), b.EffectiveRate.StringFixed(2), b.Cost.StringFixed(2))
	}

	warnings := append([]string(nil), result.Warnings...)
	if policyResult != nil {
		for _, v := range policyResult.Violations {
			warnings = append(warnings, "**"+v.PolicyName+"**: "+v.Message)
		}
		for _, pw := range policyResult.Warnings {
			warnings = append(warnings, pw.Message)
		}
	}
	if len(warnings) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "### ⚠️ Warnings")
		fmt.Fprintln(w)
		for _, warning := range warnings {
			fmt.Fprintf(w, "- %s\n", warning)
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
