package kernel

import (
	"context"
	"encoding/json"
	"time"

	"github.com/e35zhang/Clotho-Simulation-Engine/internal/blueprint"
	"github.com/e35zhang/Clotho-Simulation-Engine/internal/eventlog"
)

// deliver processes one TaskKindSend: fault injection, then handler
// dispatch (spec §4.5 "fault injection", "causal identifier rules").
func (r *Run) deliver(ctx context.Context, task *Task) {
	if r.consultFaults(ctx, task) {
		return
	}

	comp, ok := r.bp.Component(task.TargetComponent)
	if !ok {
		r.logger.WithField("target", task.TargetComponent).Warn("send to unknown component, dropped")
		return
	}
	handler, ok := comp.Handler(task.MessageName)
	if !ok {
		r.logger.WithField("message", task.MessageName).WithField("component", task.TargetComponent).
			Warn("send to unknown message, dropped")
		return
	}

	eventID := r.nextID()
	payloadJSON := marshalPayload(task.Payload)
	r.appendEvent(ctx, eventlog.Event{
		EventID:        eventID,
		Timestamp:      time.Now().UTC(),
		CorrelationID:  task.CorrelationID,
		CausationID:    task.CausationID,
		Component:      task.TargetComponent,
		HandlerName:    task.MessageName,
		TriggerMessage: task.MessageName,
		Action:         eventlog.ActionHandlerExec,
		PayloadJSON:    payloadJSON,
	})

	triggerValue := map[string]any{"payload": copyPayload(task.Payload)}
	ctxValues := map[string]any{
		"trigger": triggerValue,
		"msg":     triggerValue,
		"read":    map[string]any{},
	}

	r.pool = append(r.pool, &Task{
		Kind:           TaskKindHandler,
		ComponentName:  task.TargetComponent,
		HandlerName:    task.MessageName,
		TriggerMessage: task.MessageName,
		RemainingSteps: append([]blueprint.Step(nil), handler.Logic...),
		LocalContext:   ctxValues,
		EventID:        eventID,
		CorrelationID:  task.CorrelationID,
		CausationID:    task.CausationID,
	})
}

// consultFaults checks the blueprint's fault list against this send's
// target, drawing exactly one RNG uniform when a fault applies (spec §4.5:
// "this consumes exactly one RNG draw regardless of whether the fault
// fires"). Returns true if the send was dropped.
func (r *Run) consultFaults(ctx context.Context, task *Task) bool {
	for _, f := range r.bp.Run.Environment.Faults {
		if f.Kind != blueprint.FaultMessageDrop {
			continue
		}
		if f.Target != "*" && f.Target != task.TargetComponent {
			continue
		}
		draw := r.rng.Float64()
		if draw < f.Probability {
			r.appendEvent(ctx, eventlog.Event{
				EventID:        r.nextID(),
				Timestamp:      time.Now().UTC(),
				CorrelationID:  task.CorrelationID,
				CausationID:    task.CausationID,
				Component:      task.TargetComponent,
				TriggerMessage: task.MessageName,
				Action:         eventlog.ActionFaultInjection,
			})
			return true
		}
		return false
	}
	return false
}

func copyPayload(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func marshalPayload(m map[string]any) string {
	if len(m) == 0 {
		return ""
	}
	b, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(b)
}
