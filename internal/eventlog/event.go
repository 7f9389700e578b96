// Package eventlog implements the append-only causal event log (spec §4.3):
// an interface plus two realizations, an in-memory store every kernel run
// actually uses, and an optional SQL-backed store demonstrating the log is
// specified abstractly (spec §1 Non-goals: "the specific persistence backend").
package eventlog

import (
	"context"
	"time"
)

// Action enumerates the kinds of log event (spec §3).
type Action string

const (
	ActionHandlerExec    Action = "HANDLER_EXEC"
	ActionCreate         Action = "CREATE"
	ActionUpdate         Action = "UPDATE"
	ActionDelete         Action = "DELETE"
	ActionInvariantFail  Action = "INVARIANT_FAIL"
	ActionFaultInjection Action = "FAULT_INJECTION"
)

// Event mirrors spec §3's event record exactly, plus a local Sequence number
// (distinct from the human-readable Timestamp) carrying the monotonic
// ordering assigned by append.
type Event struct {
	Sequence       int64     `json:"sequence" db:"sequence"`
	EventID        string    `json:"event_id" db:"event_id"`
	Timestamp      time.Time `json:"timestamp" db:"timestamp"`
	CorrelationID  string    `json:"correlation_id" db:"correlation_id"`
	CausationID    string    `json:"causation_id,omitempty" db:"causation_id"`
	Component      string    `json:"component" db:"component"`
	HandlerName    string    `json:"handler_name,omitempty" db:"handler_name"`
	TriggerMessage string    `json:"trigger_message,omitempty" db:"trigger_message"`
	TableName      string    `json:"table_name,omitempty" db:"table_name"`
	Action         Action    `json:"action" db:"action"`
	PayloadJSON    string    `json:"payload_json,omitempty" db:"payload_json"`
	SimulationSeed int64     `json:"simulation_seed" db:"simulation_seed"`
}

// Filter restricts ReadAll to a subset of the log (spec §4.3).
type Filter struct {
	CorrelationID string
	Component     string
	Action        Action
	Since         time.Time
	Until         time.Time
}

func (f Filter) matches(e Event) bool {
	if f.CorrelationID != "" && e.CorrelationID != f.CorrelationID {
		return false
	}
	if f.Component != "" && e.Component != f.Component {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && e.Timestamp.After(f.Until) {
		return false
	}
	return true
}

// Store is the append-only event log contract. A single handler step that
// performs one CREATE/UPDATE/DELETE must record exactly one event through
// Append, and the state mutation plus this append must be treated as a
// single atomic unit by callers (the kernel enforces this at a single call
// site, see internal/kernel).
type Store interface {
	// Append assigns the next monotonically increasing sequence number and
	// records e, returning that sequence.
	Append(ctx context.Context, e Event) (seq int64, err error)
	ReadAll(ctx context.Context, f Filter) ([]Event, error)
	Close(ctx context.Context) error
}
