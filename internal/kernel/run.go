package kernel

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/e35zhang/Clotho-Simulation-Engine/internal/blueprint"
	"github.com/e35zhang/Clotho-Simulation-Engine/internal/clerr"
	"github.com/e35zhang/Clotho-Simulation-Engine/internal/eventlog"
	"github.com/e35zhang/Clotho-Simulation-Engine/internal/statestore"
	"github.com/e35zhang/Clotho-Simulation-Engine/pkg/logger"
)

// Config is the kernel's tunable behavior (spec §4.5 termination, §7 strict
// mode), sourced from pkg/config.KernelConfig.
type Config struct {
	MaxEvents int
	Strict    bool
}

// DefaultConfig mirrors pkg/config's defaults.
func DefaultConfig() Config {
	return Config{MaxEvents: 100000, Strict: false}
}

// Result is the outcome of one Execute call (spec §6 "Chaos matrix result",
// per-run fields).
type Result struct {
	Seed              int64
	EventCount        int
	InvariantFailures []string
	LimitReached      bool
}

// Run owns one simulation: its own RNG, store, and event log (spec §5
// per-run isolation). A Run is used by exactly one goroutine and is not
// safe for concurrent use.
type Run struct {
	bp     *blueprint.Blueprint
	store  *statestore.Store
	log    eventlog.Store
	rng    *rand.Rand
	cfg    Config
	logger *logrus.Entry
	seed   int64

	pool          []*Task
	eventCount    int
	strictFailure error
}

// New constructs a Run with its own seeded RNG (spec §9 "per-run RNG
// ownership" — never math/rand's global source).
func New(bp *blueprint.Blueprint, store *statestore.Store, log eventlog.Store, seed int64, cfg Config, lg *logger.Logger) *Run {
	var entry *logrus.Entry
	if lg != nil {
		entry = lg.ForRun(seed)
	} else {
		entry = logrus.NewEntry(logrus.New())
	}
	return &Run{
		bp:     bp,
		store:  store,
		log:    log,
		rng:    rand.New(rand.NewSource(seed)),
		cfg:    cfg,
		logger: entry,
		seed:   seed,
	}
}

// Start seeds the store's initial state and enqueues the named scenario's
// external sends as root tasks, each correlation_id drawn fresh "at scenario
// construction" (spec §4.5).
func (r *Run) Start(scenarioName string) error {
	scenario, ok := r.bp.Scenario(scenarioName)
	if !ok {
		return clerr.New(clerr.BlueprintInvalid, fmt.Sprintf("unknown scenario %q", scenarioName))
	}

	for _, entry := range scenario.InitialState {
		r.store.Seed(entry.Component, entry.Table, entry.Rows)
	}

	for _, send := range scenario.Sends {
		correlationID := r.nextID()
		r.pool = append(r.pool, &Task{
			Kind:            TaskKindSend,
			MessageName:     send.Message,
			TargetComponent: send.Target,
			Payload:         send.Payload,
			CorrelationID:   correlationID,
			CausationID:     "",
		})
	}
	return nil
}

// Execute runs the scheduling loop to completion: the task pool drains, or
// the configured event cap is reached (spec §4.5 termination).
func (r *Run) Execute(ctx context.Context) (*Result, error) {
	result := &Result{Seed: r.seed}

	for len(r.pool) > 0 {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if r.eventCount >= r.cfg.MaxEvents {
			result.LimitReached = true
			r.logger.WithField("event_count", r.eventCount).Warn("simulation limit reached, probable livelock")
			return result, clerr.NewSimulationLimitReached(r.eventCount, r.cfg.MaxEvents)
		}

		idx := r.rng.Intn(len(r.pool))
		task := r.pool[idx]
		r.pool[idx] = r.pool[len(r.pool)-1]
		r.pool = r.pool[:len(r.pool)-1]

		switch task.Kind {
		case TaskKindSend:
			r.deliver(ctx, task)
		case TaskKindHandler:
			r.advanceHandler(ctx, task, result)
		}

		if r.cfg.Strict && r.strictFailure != nil {
			result.EventCount = r.eventCount
			return result, r.strictFailure
		}
	}

	result.EventCount = r.eventCount
	return result, nil
}

func (r *Run) appendEvent(ctx context.Context, e eventlog.Event) {
	e.SimulationSeed = r.seed
	if _, err := r.log.Append(ctx, e); err != nil {
		r.logger.WithField("error", err).Error("failed to append event")
		return
	}
	r.eventCount++
}
