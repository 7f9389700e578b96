package kernel

import (
	"context"
	"fmt"
	"time"

	"github.com/e35zhang/Clotho-Simulation-Engine/internal/blueprint"
	"github.com/e35zhang/Clotho-Simulation-Engine/internal/clerr"
	"github.com/e35zhang/Clotho-Simulation-Engine/internal/eventlog"
	"github.com/e35zhang/Clotho-Simulation-Engine/internal/exprlang"
	"github.com/e35zhang/Clotho-Simulation-Engine/internal/statestore"
)

// advanceHandler executes exactly one step of task (spec §4.5 scheduling
// model), dispatching by step kind much like the teacher's
// InvocableService.Invoke(ctx, method, params) single-entry-point-plus-switch
// idiom. If steps remain afterward the task is re-queued; otherwise the
// handler has completed and invariants are checked (spec §4.5 "invariant
// checking").
func (r *Run) advanceHandler(ctx context.Context, task *Task, result *Result) {
	if len(task.RemainingSteps) == 0 {
		r.commit(ctx, task, result)
		return
	}

	step := task.RemainingSteps[0]
	rest := task.RemainingSteps[1:]

	switch step.Kind {
	case blueprint.StepRead:
		r.execRead(task, step.Read)
	case blueprint.StepCreate:
		r.execCreate(ctx, task, step.Create)
	case blueprint.StepUpdate:
		r.execUpdate(ctx, task, step.Update)
	case blueprint.StepSend:
		r.execSend(task, step.Send)
	case blueprint.StepMatch:
		rest = r.execMatch(task, step.Match, rest)
	}

	task.RemainingSteps = rest
	if len(task.RemainingSteps) == 0 {
		r.commit(ctx, task, result)
		return
	}
	r.pool = append(r.pool, task)
}

func (r *Run) localReadBinding(task *Task) map[string]any {
	read, _ := task.LocalContext["read"].(map[string]any)
	if read == nil {
		read = map[string]any{}
		task.LocalContext["read"] = read
	}
	return read
}

func (r *Run) execRead(task *Task, step *blueprint.ReadStep) {
	read := r.localReadBinding(task)
	owner, ok := r.store.Owner(step.Table)
	if !ok {
		r.logger.WithField("table", step.Table).Warn("read from unknown table, bound as unresolved")
		read[step.As] = exprlang.Unresolved
		return
	}

	where := map[string]string{}
	if step.Key != "" {
		comp, _ := r.bp.Component(owner)
		tbl, _ := comp.Table(step.Table)
		pk := tbl.PrimaryKeyColumn()
		if pk != "" {
			keyVal := exprlang.RenderTemplate(step.Key, task.LocalContext)
			where[pk] = stringifyKey(keyVal)
		}
	}
	for k, tmpl := range step.Where {
		where[k] = stringifyKey(exprlang.RenderTemplate(tmpl, task.LocalContext))
	}

	row, warnings, found := r.store.Read(owner, step.Table, where)
	for _, w := range warnings {
		r.logger.Warn(w)
	}
	if !found {
		read[step.As] = exprlang.Unresolved
		return
	}
	read[step.As] = map[string]any(row)
}

func (r *Run) execCreate(ctx context.Context, task *Task, step *blueprint.CreateStep) {
	owner, ok := r.store.Owner(step.Table)
	if !ok {
		r.logger.WithField("table", step.Table).Warn("create on unknown table, dropped")
		return
	}
	data := renderTemplateMap(step.Data, task.LocalContext)
	rows, err := r.store.Write(owner, step.Table, statestore.WriteCreate, data, nil)
	if err != nil {
		r.logger.WithField("error", err).Warn(clerr.NewInvalidWrite(err.Error()).Error())
		return
	}
	r.emitWriteEvent(ctx, task, owner, step.Table, eventlog.ActionCreate, rows)
}

func (r *Run) execUpdate(ctx context.Context, task *Task, step *blueprint.UpdateStep) {
	owner, ok := r.store.Owner(step.Table)
	if !ok {
		r.logger.WithField("table", step.Table).Warn("update on unknown table, dropped")
		return
	}
	set := renderTemplateMap(step.Set, task.LocalContext)
	where := map[string]string{}
	for k, tmpl := range step.Where {
		where[k] = stringifyKey(exprlang.RenderTemplate(tmpl, task.LocalContext))
	}
	rows, err := r.store.Write(owner, step.Table, statestore.WriteUpdate, set, where)
	if err != nil {
		r.logger.WithField("error", err).Warn(clerr.NewInvalidWrite(err.Error()).Error())
		return
	}
	r.emitWriteEvent(ctx, task, owner, step.Table, eventlog.ActionUpdate, rows)
}

func (r *Run) execSend(task *Task, step *blueprint.SendStep) {
	payload := renderTemplateMapAny(step.Payload, task.LocalContext)
	r.pool = append(r.pool, &Task{
		Kind:            TaskKindSend,
		MessageName:     step.Message,
		TargetComponent: step.To,
		Payload:         payload,
		CorrelationID:   task.CorrelationID,
		CausationID:     task.EventID,
	})
}

// execMatch evaluates the match's `on` expression once, then finds the first
// case whose own `when` expression evaluates to a value equal to it (spec §9
// "match semantics"; `on` is never bound into `when`'s evaluation context -
// the two are evaluated independently and compared by value, matching the
// original clotho_simulator's `_evaluate_condition(match_value, ...)` form),
// falling back to any default case, and prepends the winning case's steps to
// rest.
func (r *Run) execMatch(task *Task, step *blueprint.MatchStep, rest []blueprint.Step) []blueprint.Step {
	onValue := exprlang.Evaluate(step.On, task.LocalContext)

	var defaultCase *blueprint.MatchCase
	for i := range step.Cases {
		c := &step.Cases[i]
		if c.Default {
			defaultCase = c
			continue
		}
		whenValue := exprlang.Evaluate(c.When, task.LocalContext)
		if exprlang.ValuesEqual(onValue, whenValue) {
			return append(append([]blueprint.Step(nil), c.Steps...), rest...)
		}
	}
	if defaultCase != nil {
		return append(append([]blueprint.Step(nil), defaultCase.Steps...), rest...)
	}
	return rest
}

func (r *Run) emitWriteEvent(ctx context.Context, task *Task, owner, table string, action eventlog.Action, rows []statestore.Row) {
	if len(rows) == 0 {
		return
	}
	payloadJSON := marshalPayload(map[string]any(rows[0]))
	r.appendEvent(ctx, eventlog.Event{
		EventID:        r.nextID(),
		Timestamp:      time.Now().UTC(),
		CorrelationID:  task.CorrelationID,
		CausationID:    task.EventID,
		Component:      owner,
		HandlerName:    task.HandlerName,
		TriggerMessage: task.TriggerMessage,
		TableName:      table,
		Action:         action,
		PayloadJSON:    payloadJSON,
	})
}

func renderTemplateMap(m map[string]string, ctx exprlang.Context) map[string]any {
	out := make(map[string]any, len(m))
	for k, tmpl := range m {
		out[k] = exprlang.RenderTemplate(tmpl, ctx)
	}
	return out
}

func renderTemplateMapAny(m map[string]string, ctx exprlang.Context) map[string]any {
	return renderTemplateMap(m, ctx)
}

// stringifyKey renders an evaluated template value as a where-clause
// comparison string; the store compares all equality values as strings
// (statestore.rowMatches), so this must agree with that representation.
func stringifyKey(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
