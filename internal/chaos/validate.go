package chaos

import (
	"fmt"
	"math"
	"strings"

	"github.com/e35zhang/Clotho-Simulation-Engine/internal/blueprint"
	"github.com/e35zhang/Clotho-Simulation-Engine/internal/kernel"
	"github.com/e35zhang/Clotho-Simulation-Engine/internal/statestore"
)

// validate applies spec §4.8 step 4's post-run validation: the kernel's own
// per-commit invariant failures (already accumulated onto result), plus
// built-in safety properties over balance-like and score-like columns. The
// null, infinite and negative-value checks always run; the total-conservation
// and score race checks run only when no component declares an invariant of
// its own. Returns every failing message, one per offending row and column.
func validate(bp *blueprint.Blueprint, store *statestore.Store, result *kernel.Result, initialTotal float64, hadAmountColumns bool) []string {
	var failures []string
	failures = append(failures, result.InvariantFailures...)

	hasExplicitInvariant := false
	for _, c := range bp.Components {
		if len(c.Invariants) > 0 {
			hasExplicitInvariant = true
		}
	}

	finalTotal := 0.0
	sawScore, sawActionCount := false, false
	var scoreVal, actionCountVal float64

	for _, c := range bp.Components {
		for _, t := range c.Tables {
			rows := store.Rows(c.Name, t.Name)
			for _, row := range rows {
				for col, v := range row {
					lower := strings.ToLower(col)
					if strings.Contains(lower, "balance") || strings.Contains(lower, "amount") {
						f, ok := numericValue(v)
						if !ok {
							failures = append(failures, fmt.Sprintf("null balance in %s.%s.%s", c.Name, t.Name, col))
							continue
						}
						if math.IsInf(f, 0) {
							failures = append(failures, fmt.Sprintf("infinite balance in %s.%s.%s", c.Name, t.Name, col))
							continue
						}
						if f < 0 {
							failures = append(failures, fmt.Sprintf("negative balance in %s.%s.%s", c.Name, t.Name, col))
						}
						finalTotal += f
					}
					if lower == "score" {
						if f, ok := numericValue(v); ok {
							sawScore = true
							scoreVal += f
						}
					}
					if lower == "action_count" {
						if f, ok := numericValue(v); ok {
							sawActionCount = true
							actionCountVal += f
						}
					}
				}
			}
		}
	}

	if hadAmountColumns && !hasExplicitInvariant && finalTotal != initialTotal {
		failures = append(failures, fmt.Sprintf("Balance not conserved: final_total %v != initial_total %v", finalTotal, initialTotal))
	}

	if !hasExplicitInvariant && sawScore && sawActionCount && scoreVal != actionCountVal*10 {
		failures = append(failures, fmt.Sprintf("RACE CONDITION: score=%v, expected=%v", scoreVal, actionCountVal*10))
	}

	return failures
}

func numericValue(v any) (float64, bool) {
	switch t := v.(type) {
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	case float64:
		return t, true
	case nil:
		return 0, false
	default:
		return 0, false
	}
}

// sumAmountColumns totals every "balance"/"amount"-named column across a
// scenario's initial-state rows, used to capture the pre-run total the
// conservation check compares against.
func sumAmountColumns(entries []blueprint.ScenarioInitEntry) (total float64, found bool) {
	for _, e := range entries {
		for _, row := range e.Rows {
			for col, v := range row {
				lower := strings.ToLower(col)
				if strings.Contains(lower, "balance") || strings.Contains(lower, "amount") {
					if f, ok := numericValue(v); ok {
						total += f
						found = true
					}
				}
			}
		}
	}
	return total, found
}
