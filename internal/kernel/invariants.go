package kernel

import (
	"context"
	"time"

	"github.com/e35zhang/Clotho-Simulation-Engine/internal/clerr"
	"github.com/e35zhang/Clotho-Simulation-Engine/internal/eventlog"
	"github.com/e35zhang/Clotho-Simulation-Engine/internal/exprlang"
	"github.com/e35zhang/Clotho-Simulation-Engine/internal/statestore"
)

// commit is the handler-completion point (spec §4.5): every component's
// invariant expressions are evaluated against a lazy root-proxy view of the
// store. A failing invariant always produces an INVARIANT_FAIL event; in
// strict mode it also aborts the run by recording the violation onto result
// so Execute's caller can treat it as fatal (spec §7 "fatal only in strict
// mode").
func (r *Run) commit(ctx context.Context, task *Task, result *Result) {
	root := exprlang.NewRootProxy(statestore.AsRootView(r.store))
	evalCtx := exprlang.Context{"root": root}

	for _, comp := range r.bp.Components {
		for _, inv := range comp.Invariants {
			verdict := exprlang.Evaluate(inv.Expr, evalCtx)
			ok, isBool := verdict.(bool)
			if isBool && ok {
				continue
			}

			label := comp.Name + "." + inv.Name
			result.InvariantFailures = append(result.InvariantFailures, label)
			if r.cfg.Strict && r.strictFailure == nil {
				r.strictFailure = clerr.NewInvariantViolation(inv.Name, comp.Name)
			}
			r.appendEvent(ctx, eventlog.Event{
				EventID:        r.nextID(),
				Timestamp:      time.Now().UTC(),
				CorrelationID:  task.CorrelationID,
				CausationID:    task.EventID,
				Component:      comp.Name,
				HandlerName:    task.HandlerName,
				TriggerMessage: task.TriggerMessage,
				Action:         eventlog.ActionInvariantFail,
				PayloadJSON:    marshalPayload(map[string]any{"invariant": inv.Name, "expr": inv.Expr}),
			})
			r.logger.WithField("invariant", label).Warn("invariant failed")
		}
	}
}
