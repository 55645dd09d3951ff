package estimation

import (
	"fmt"

	"proposal-cost/decision/catalog"
	perrors "proposal-cost/pkg/errors"
)

// manyModulesThreshold is the selection size above which a small-complexity estimate is flagged.
const manyModulesThreshold = 10

// CheckPrerequisites returns one warning per missing prerequisite, in selection order.
// Missing prerequisites never block an estimate; only unknown selected ids do.
func CheckPrerequisites(selected []string, cat *catalog.Catalog) ([]string, error) {
	chosen := make(map[string]bool, len(selected))
	for _, id := range selected {
		if !cat.Has(id) {
			return nil, perrors.NewUnknownModuleError(id)
		}
		chosen[id] = true
	}

	warnings := make([]string, 0)
	seen := make(map[string]bool)
	for _, id := range selected {
		m, _ := cat.Get(id)
		for _, prereq := range m.Prerequisites {
			if chosen[prereq] {
				continue
			}
			name := prereq
			if p, ok := cat.Get(prereq); ok {
				name = p.Name
			}
			w := fmt.Sprintf("%s requires %s", m.Name, name)
			if !seen[w] {
				seen[w] = true
				warnings = append(warnings, w)
			}
		}
	}
	return warnings, nil
}

// scopeWarnings flags selections that are legal but unlikely to be intended.
func scopeWarnings(in Input, selected []string) []string {
	var warnings []string
	if c, ok := catalog.ParseComplexity(in.Complexity); ok && c == catalog.ComplexitySmall && len(selected) > manyModulesThreshold {
		warnings = append(warnings, "Small complexity with many modules may be unrealistic")
	}
	return warnings
}
