package chaos

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/e35zhang/Clotho-Simulation-Engine/internal/blueprint"
	"github.com/e35zhang/Clotho-Simulation-Engine/internal/clerr"
	"github.com/e35zhang/Clotho-Simulation-Engine/internal/coverage"
	"github.com/e35zhang/Clotho-Simulation-Engine/internal/eventlog"
	"github.com/e35zhang/Clotho-Simulation-Engine/internal/fuzz"
	"github.com/e35zhang/Clotho-Simulation-Engine/internal/kernel"
	"github.com/e35zhang/Clotho-Simulation-Engine/internal/statestore"
	"github.com/e35zhang/Clotho-Simulation-Engine/pkg/metrics"
)

// Matrix drives a parallel batch of independent simulation runs (spec §4.8).
// The coverage tracker is the only structure its runs share (spec §5).
type Matrix struct {
	Tracker *coverage.Tracker
}

// NewMatrix returns a Matrix with a fresh coverage tracker.
func NewMatrix() *Matrix {
	return &Matrix{Tracker: coverage.NewTracker()}
}

// Run drives cfg.Count runs over the seed range [cfg.SeedStart,
// cfg.SeedStart+cfg.Count), bounded by cfg.workerCount() concurrent runs
// (the teacher's Dispatcher.worker(ctx, workerID) bounded-pool idiom,
// adapted from an event queue to a seed range), and returns the aggregate
// Report. Cancellation is checked between dispatching runs, never injected
// mid-run (spec §5).
func (m *Matrix) Run(ctx context.Context, cfg Config) (*Report, error) {
	if cfg.Blueprint == nil {
		return nil, clerr.NewBlueprintInvalid("chaos: Config.Blueprint is nil")
	}
	if _, ok := cfg.Blueprint.Scenario(cfg.ScenarioName); !ok {
		return nil, clerr.NewBlueprintInvalid(fmt.Sprintf("chaos: unknown scenario %q", cfg.ScenarioName))
	}

	workers := cfg.workerCount()
	sem := make(chan struct{}, workers)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var outcomes []RunOutcome

	for i := 0; i < cfg.Count; i++ {
		seed := cfg.SeedStart + int64(i)

		if ctx.Err() != nil {
			break
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			defer func() { <-sem }()

			outcome := m.runOne(ctx, cfg, seed)
			mu.Lock()
			outcomes = append(outcomes, outcome)
			mu.Unlock()
		}(seed)
	}
	wg.Wait()

	score := coverage.Compute(m.Tracker.UniqueCount(), m.Tracker.Observations(), len(outcomes))
	coverage.Publish(m.Tracker, score)
	return buildReport(outcomes, score), nil
}

// runOne executes a single seed end to end: blueprint clone, per-run
// fuzzing, kernel execution, fingerprint capture, post-run validation, and
// store cleanup. A panic anywhere in this path is recovered and converted
// to a RunException result rather than crashing the batch (spec §7).
func (m *Matrix) runOne(ctx context.Context, cfg Config, seed int64) (outcome RunOutcome) {
	start := time.Now()
	defer func() {
		outcome.Duration = time.Since(start)
		metrics.RunDuration.Observe(outcome.Duration.Seconds())
		if outcome.Success {
			metrics.RunsTotal.WithLabelValues("success").Inc()
		} else {
			metrics.RunsTotal.WithLabelValues("failure").Inc()
		}
		if r := recover(); r != nil {
			outcome.Seed = seed
			outcome.Success = false
			outcome.Panicked = true
			outcome.Message = clerr.NewRunException(seed, fmt.Errorf("%v", r)).Error()
		}
	}()

	outcome.Seed = seed

	clonedBp := cfg.Blueprint.Clone()
	scenario, ok := clonedBp.Scenario(cfg.ScenarioName)
	if !ok {
		outcome.Message = fmt.Sprintf("chaos: unknown scenario %q", cfg.ScenarioName)
		return outcome
	}

	if cfg.FuzzInputs {
		inputFuzzer := fuzz.NewInputFuzzer(seed+1, cfg.FuzzConfig)
		for i := range scenario.Sends {
			scenario.Sends[i].Payload = inputFuzzer.Mutate(scenario.Sends[i].Payload)
		}
	}
	if cfg.FuzzState {
		stateFuzzer := fuzz.NewStateFuzzer(seed+2, cfg.FuzzConfig)
		scenario.InitialState = stateFuzzer.Mutate(scenario.InitialState)
	}
	// Write the (possibly fuzzed) scenario back under its name so the
	// kernel's own by-name lookup in Start sees the fuzzed version - this
	// also materializes a synthesized (generators/fixtures-derived)
	// scenario into Run.Scenarios, since Scenario() only synthesizes on
	// demand and never mutates the blueprint itself.
	replaceScenario(clonedBp, cfg.ScenarioName, scenario)

	initialTotal, hadAmount := sumAmountColumns(scenario.InitialState)

	store := statestore.New(clonedBp)
	log := eventlog.NewMemoryStore()

	r := kernel.New(clonedBp, store, log, seed, cfg.Kernel, nil)
	if err := r.Start(cfg.ScenarioName); err != nil {
		outcome.Message = err.Error()
		m.cleanup(ctx, log, false)
		return outcome
	}

	result, err := r.Execute(ctx)
	if err != nil {
		outcome.Message = err.Error()
		m.cleanup(ctx, log, false)
		return outcome
	}

	fp, fpErr := coverage.Compute(snapshot(clonedBp, store))
	if fpErr == nil {
		m.Tracker.Observe(fp)
	}

	failures := validate(clonedBp, store, result, initialTotal, hadAmount)
	if len(failures) > 0 {
		outcome.Message = strings.Join(failures, "; ")
		m.cleanup(ctx, log, false)
		return outcome
	}

	outcome.Success = true
	m.cleanup(ctx, log, true)
	return outcome
}

// cleanup closes the run's event log. The Store each run creates is the
// in-memory one, so there is no on-disk file to delete; the close call is
// still wrapped in the "retry up to three times" path of spec §4.8 step 5,
// so a file-backed Store could use this call site unchanged.
func (m *Matrix) cleanup(ctx context.Context, log eventlog.Store, success bool) {
	_ = success
	_ = retry(ctx, defaultCleanupRetry(), func() error {
		return log.Close(ctx)
	})
}

// replaceScenario overwrites the named scenario in bp.Run.Scenarios, or
// appends it if no scenario by that name is physically present yet (the
// case for a scenario synthesized from Run.Generators + Run.Fixtures).
func replaceScenario(bp *blueprint.Blueprint, name string, scenario blueprint.Scenario) {
	for i, s := range bp.Run.Scenarios {
		if s.Name == name {
			bp.Run.Scenarios[i] = scenario
			return
		}
	}
	bp.Run.Scenarios = append(bp.Run.Scenarios, scenario)
}

func snapshot(bp *blueprint.Blueprint, store *statestore.Store) coverage.Snapshot {
	snap := make(coverage.Snapshot)
	for _, c := range bp.Components {
		for _, t := range c.Tables {
			rows := store.Rows(c.Name, t.Name)
			out := make([]map[string]any, len(rows))
			for i, r := range rows {
				out[i] = map[string]any(r)
			}
			snap[c.Name+"."+t.Name] = out
		}
	}
	return snap
}
