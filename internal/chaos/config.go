// Package chaos implements the parallel batch runner (spec §4.8): N
// independent simulation runs over a contiguous seed range, each with its
// own RNG, store, log, fuzzers, and blueprint copy, aggregated into one
// report alongside the shared coverage tracker.
package chaos

import (
	"runtime"

	"github.com/e35zhang/Clotho-Simulation-Engine/internal/blueprint"
	"github.com/e35zhang/Clotho-Simulation-Engine/internal/fuzz"
	"github.com/e35zhang/Clotho-Simulation-Engine/internal/kernel"
)

// Config drives one Matrix.Run call (spec §4.8).
type Config struct {
	Blueprint    *blueprint.Blueprint
	ScenarioName string

	SeedStart int64
	Count     int
	Workers   int // 0 means runtime.NumCPU()

	Kernel kernel.Config

	FuzzInputs bool
	FuzzState  bool
	FuzzConfig fuzz.Config
}

// workerCount resolves cfg.Workers' "0 means NumCPU" default.
func (c Config) workerCount() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}
