// Package exprlang implements the sandboxed expression engine (spec §4.1): a
// small pure-functional grammar evaluated against a read-only context, used
// inside handler logic, invariants, and template strings.
package exprlang

import "math"

// unresolvedType is the concrete type behind the Unresolved sentinel. Every
// evaluation failure — parse error, runtime type mismatch, missing variable,
// disallowed function — collapses to this single value; Evaluate never panics
// and never returns a Go error.
type unresolvedType struct{}

// Unresolved is returned whenever an expression cannot be evaluated to a
// concrete value. Outside the engine it renders as null (spec §4.1).
var Unresolved any = unresolvedType{}

// IsUnresolved reports whether v is the Unresolved sentinel.
func IsUnresolved(v any) bool {
	_, ok := v.(unresolvedType)
	return ok
}

// TableView exposes one table's rows on demand, without the expression engine
// needing to import the state store package (spec §9, "lazy state proxies").
type TableView interface {
	Rows() []map[string]any
}

// ComponentView resolves a component's tables on demand.
type ComponentView interface {
	Table(name string) (TableView, bool)
}

// RootView resolves components on demand; statestore.AsRootView adapts a
// statestore.Store to this interface, so exprlang needs no statestore import.
type RootView interface {
	Component(name string) (ComponentView, bool)
}

// rootProxy lazily resolves root.<Component> to a componentProxy.
type rootProxy struct {
	view RootView
}

// NewRootProxy wraps a RootView as an expression-engine value, for binding
// under the "root" context variable so invariants can read root.<Component>.<Table>
// without the full store being eagerly materialized.
func NewRootProxy(view RootView) any {
	return rootProxy{view: view}
}

func (p rootProxy) field(name string) any {
	cv, ok := p.view.Component(name)
	if !ok {
		return Unresolved
	}
	return componentProxy{view: cv}
}

// componentProxy lazily resolves .<Table> to the live list of rows.
type componentProxy struct {
	view ComponentView
}

func (p componentProxy) field(name string) any {
	tv, ok := p.view.Table(name)
	if !ok {
		return Unresolved
	}
	rows := tv.Rows()
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = copyRow(r)
	}
	return out
}

func copyRow(row map[string]any) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

// fieldResolver is implemented by any value that supports dotted field access
// beyond plain map/list traversal (the two proxy types above).
type fieldResolver interface {
	field(name string) any
}

// normalizeNumber converts a float64 result to an int64 when its fractional
// part is zero, per spec §4.1 "numeric results ... are normalized to integer".
func normalizeNumber(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Unresolved
	}
	if f == math.Trunc(f) && f >= -9.007199254740992e15 && f <= 9.007199254740992e15 {
		return int64(f)
	}
	return f
}

// toFloat coerces a numeric-looking value to float64, returning false if v is
// not a number (or is Unresolved/nil).
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
