package blueprint

import "math"

// SynthesizedScenarioName is the name of the single scenario produced when a
// blueprint supplies run.generators/run.fixtures instead of run.scenarios
// (spec §6), matching original_source's literal "Auto-Generated Simulation"
// name for this same synthesis step.
const SynthesizedScenarioName = "Auto-Generated Simulation"

// FuzzHintField is one payload field's deterministic-synthesis hint for a
// generator (spec §6). A two-element Range picks its floor-midpoint value —
// the original's "naive deterministic expansion... pick middle of range for
// deterministic simple run" — otherwise Value is used verbatim.
type FuzzHintField struct {
	Range []float64 `yaml:"range,omitempty" json:"range,omitempty"`
	Value any       `yaml:"value,omitempty" json:"value,omitempty"`
}

// GeneratorBehavior describes what each of a Generator's Count iterations
// sends: a message name, an optional per-field synthesis hint, and an
// optional static payload overlay (where the literal value "$sequence" is
// replaced by the iteration index, matching the original).
type GeneratorBehavior struct {
	Send     string                   `yaml:"send,omitempty" json:"send,omitempty"`
	FuzzHint map[string]FuzzHintField `yaml:"fuzz_hint,omitempty" json:"fuzz_hint,omitempty"`
	Payload  map[string]any           `yaml:"payload,omitempty" json:"payload,omitempty"`
}

// Generator expands into Count external sends against Behavior (spec §6
// "run.generators", an alternative to hand-written run.scenarios.sends).
type Generator struct {
	Count    int               `yaml:"count" json:"count"`
	Behavior GeneratorBehavior `yaml:"behavior" json:"behavior"`
}

// Fixture seeds one component/table's rows outside of any named scenario
// (spec §6 "run.fixtures", the non-scenario-scoped alternative to
// Scenario.InitialState).
type Fixture struct {
	Component string           `yaml:"component" json:"component"`
	Table     string           `yaml:"table" json:"table"`
	Rows      []map[string]any `yaml:"rows" json:"rows"`
}

// synthesizeScenario converts Run.Fixtures + Run.Generators into a single
// scenario (spec §6): the Go equivalent of the original
// `_synthesize_scenarios_from_run`. Fixtures are grouped by (component,
// table) into initial-state entries; each generator's Count iterations
// expand into external sends whose target component is resolved by
// searching every component's handlers for the message name, mirroring the
// original's `_find_handler_for_message`. Returns false if the blueprint
// declares neither.
func (b *Blueprint) synthesizeScenario() (Scenario, bool) {
	if len(b.Run.Generators) == 0 && len(b.Run.Fixtures) == 0 {
		return Scenario{}, false
	}

	scenario := Scenario{Name: SynthesizedScenarioName}

	type tableKey struct{ component, table string }
	grouped := map[tableKey][]map[string]any{}
	var order []tableKey
	for _, f := range b.Run.Fixtures {
		k := tableKey{f.Component, f.Table}
		if _, seen := grouped[k]; !seen {
			order = append(order, k)
		}
		grouped[k] = append(grouped[k], f.Rows...)
	}
	for _, k := range order {
		scenario.InitialState = append(scenario.InitialState, ScenarioInitEntry{
			Component: k.component,
			Table:     k.table,
			Rows:      grouped[k],
		})
	}

	for _, gen := range b.Run.Generators {
		if gen.Behavior.Send == "" {
			continue
		}
		target, _ := b.findHandlerComponent(gen.Behavior.Send)
		for i := 0; i < gen.Count; i++ {
			payload := map[string]any{}
			for field, hint := range gen.Behavior.FuzzHint {
				if len(hint.Range) == 2 {
					payload[field] = int64(math.Floor((hint.Range[0] + hint.Range[1]) / 2))
				} else {
					payload[field] = hint.Value
				}
			}
			for field, v := range gen.Behavior.Payload {
				if v == "$sequence" {
					payload[field] = int64(i)
				} else {
					payload[field] = v
				}
			}
			scenario.Sends = append(scenario.Sends, ScenarioSend{
				Target:  target,
				Message: gen.Behavior.Send,
				Payload: payload,
			})
		}
	}

	return scenario, true
}

// findHandlerComponent searches every component's handlers for one that
// handles the given message, mirroring the original's
// `_find_handler_for_message`.
func (b *Blueprint) findHandlerComponent(message string) (string, bool) {
	for _, c := range b.Components {
		if _, ok := c.Handler(message); ok {
			return c.Name, true
		}
	}
	return "", false
}
