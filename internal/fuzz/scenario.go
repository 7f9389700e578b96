package fuzz

import (
	"math/rand"

	"github.com/e35zhang/Clotho-Simulation-Engine/internal/blueprint"
)

// CombineMode names one of the three ways ScenarioFuzzer can combine
// multiple scenarios' sends into one (spec §4.6).
type CombineMode string

const (
	// CombineSequential concatenates each scenario's sends in order.
	CombineSequential CombineMode = "sequential"
	// CombineParallel concatenates then shuffles every send.
	CombineParallel CombineMode = "parallel"
	// CombineInterleaved round-robins across scenarios.
	CombineInterleaved CombineMode = "interleaved"
)

// ScenarioFuzzer combines multiple scenarios' external sends under one of
// the three combine modes (spec §4.6). Like the other two fuzzers it owns a
// private RNG derived from the driving run's seed.
type ScenarioFuzzer struct {
	rng *rand.Rand
}

// NewScenarioFuzzer constructs a ScenarioFuzzer with its own seeded source.
func NewScenarioFuzzer(seed int64) *ScenarioFuzzer {
	return &ScenarioFuzzer{rng: rand.New(rand.NewSource(seed))}
}

// Combine merges scenarios' Sends lists per mode. InitialState entries are
// concatenated unconditionally; only the Sends ordering is affected by mode.
func (f *ScenarioFuzzer) Combine(scenarios []blueprint.Scenario, mode CombineMode) blueprint.Scenario {
	combined := blueprint.Scenario{Name: "combined"}
	for _, s := range scenarios {
		combined.InitialState = append(combined.InitialState, s.InitialState...)
	}

	switch mode {
	case CombineParallel:
		var all []blueprint.ScenarioSend
		for _, s := range scenarios {
			all = append(all, s.Sends...)
		}
		f.rng.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
		combined.Sends = all
	case CombineInterleaved:
		combined.Sends = interleave(scenarios)
	default:
		var all []blueprint.ScenarioSend
		for _, s := range scenarios {
			all = append(all, s.Sends...)
		}
		combined.Sends = all
	}
	return combined
}

// interleave round-robins across each scenario's send list until all are
// exhausted, preserving each scenario's own internal send order.
func interleave(scenarios []blueprint.Scenario) []blueprint.ScenarioSend {
	var out []blueprint.ScenarioSend
	idx := make([]int, len(scenarios))
	for {
		progressed := false
		for i, s := range scenarios {
			if idx[i] < len(s.Sends) {
				out = append(out, s.Sends[idx[i]])
				idx[i]++
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}
	return out
}
