package fuzz

import (
	"math/rand"
	"strings"

	"github.com/e35zhang/Clotho-Simulation-Engine/internal/blueprint"
)

// StateFuzzer perturbs a scenario's initial-state rows (spec §4.6). Like
// InputFuzzer it owns a private RNG derived from the driving run's seed.
type StateFuzzer struct {
	rng *rand.Rand
	cfg Config
}

// NewStateFuzzer constructs a StateFuzzer with its own seeded source.
func NewStateFuzzer(seed int64, cfg Config) *StateFuzzer {
	return &StateFuzzer{rng: rand.New(rand.NewSource(seed)), cfg: cfg}
}

const maxRowDuplication = 100

// Mutate returns a fuzzed copy of entries: each table may be emptied,
// duplicated up to ~100x, or have its numeric fields perturbed. Columns
// whose name case-insensitively contains "id" are always preserved
// verbatim (spec §4.6 "to protect referential expectations").
func (f *StateFuzzer) Mutate(entries []blueprint.ScenarioInitEntry) []blueprint.ScenarioInitEntry {
	out := make([]blueprint.ScenarioInitEntry, len(entries))
	for i, e := range entries {
		out[i] = f.mutateEntry(e)
	}
	return out
}

func (f *StateFuzzer) mutateEntry(e blueprint.ScenarioInitEntry) blueprint.ScenarioInitEntry {
	draw := f.rng.Float64()
	switch {
	case draw < 0.1:
		return blueprint.ScenarioInitEntry{Component: e.Component, Table: e.Table, Rows: nil}
	case draw < 0.2:
		dupCount := 2 + f.rng.Intn(maxRowDuplication-1)
		rows := make([]map[string]any, 0, len(e.Rows)*dupCount)
		for i := 0; i < dupCount; i++ {
			for _, r := range e.Rows {
				rows = append(rows, f.perturbRow(r))
			}
		}
		return blueprint.ScenarioInitEntry{Component: e.Component, Table: e.Table, Rows: rows}
	default:
		rows := make([]map[string]any, len(e.Rows))
		for i, r := range e.Rows {
			rows[i] = f.perturbRow(r)
		}
		return blueprint.ScenarioInitEntry{Component: e.Component, Table: e.Table, Rows: rows}
	}
}

func (f *StateFuzzer) perturbRow(row map[string]any) map[string]any {
	out := make(map[string]any, len(row))
	for col, v := range row {
		if strings.Contains(strings.ToLower(col), "id") {
			out[col] = v
			continue
		}
		out[col] = f.perturbValue(v)
	}
	return out
}

func (f *StateFuzzer) perturbValue(v any) any {
	switch t := v.(type) {
	case int64:
		return f.perturbNumeric(float64(t), true)
	case int:
		return f.perturbNumeric(float64(t), true)
	case float64:
		return f.perturbNumeric(t, false)
	default:
		return v
	}
}

func (f *StateFuzzer) perturbNumeric(v float64, isInt bool) any {
	draw := f.rng.Float64()
	var result float64
	switch {
	case draw < f.cfg.Boundary:
		choices := []float64{0, -1, 1, 2147483647, -2147483648}
		result = choices[f.rng.Intn(len(choices))]
	case draw < f.cfg.Boundary+f.cfg.Extreme:
		scale := 1 + f.rng.Float64()*1000
		result = v * scale
	default:
		result = v * (1 + (f.rng.Float64()-0.5)*0.1)
	}
	if isInt {
		return int64(result)
	}
	return result
}
