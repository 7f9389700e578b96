// Package kernel implements the simulation kernel (spec §4.5): a single
// seeded-RNG-driven scheduler, a handler step interpreter, causal identifier
// assignment, fault injection, and per-commit invariant checking.
package kernel

import "github.com/e35zhang/Clotho-Simulation-Engine/internal/blueprint"

// TaskKind discriminates the two task shapes in spec §3's "Task (internal
// queue element)" definition.
type TaskKind int

const (
	// TaskKindSend is a pending external/send awaiting delivery.
	TaskKindSend TaskKind = iota
	// TaskKindHandler is a handler in progress, re-queued after each step.
	TaskKindHandler
)

// Task is the kernel's tagged-union queue element. Exactly the fields for
// its Kind are meaningful; CorrelationID/CausationID are shared by both
// shapes (spec §3, §4.5 causal identifier rules).
type Task struct {
	Kind TaskKind

	// TaskKindSend
	MessageName     string
	TargetComponent string
	Payload         map[string]any

	// TaskKindHandler
	ComponentName  string
	HandlerName    string
	TriggerMessage string
	RemainingSteps []blueprint.Step
	LocalContext   map[string]any
	EventID        string

	// shared
	CorrelationID string
	CausationID   string
}
