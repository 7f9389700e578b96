package exprlang

import "strings"

// Context is the read-only binding set an expression is evaluated against:
// normally {"trigger": ..., "read": ..., "root": ...} depending on where the
// expression appears (handler step, template string, invariant).
type Context map[string]any

// Evaluate parses (via the shared cache) and evaluates src against ctx. It
// never panics and never returns a Go error: any failure collapses to
// Unresolved, per spec §4.1.
func Evaluate(src string, ctx Context) any {
	n, err := parseCached(src)
	if err != nil {
		return Unresolved
	}
	return evalNode(n, ctx)
}

func evalNode(n *node, ctx Context) any {
	switch n.kind {
	case nodeLiteral:
		return n.literal
	case nodeList:
		out := make([]any, len(n.items))
		for i, item := range n.items {
			out[i] = evalNode(item, ctx)
		}
		return out
	case nodeIdent:
		return evalIdent(n.path, ctx)
	case nodeCall:
		return evalCall(n.fn, n.args, ctx)
	case nodeUnary:
		return evalUnary(n.operand, ctx)
	case nodeBinary:
		return evalBinary(n.op, n.left, n.right, ctx)
	default:
		return Unresolved
	}
}

func evalIdent(path []string, ctx Context) any {
	if len(path) == 0 {
		return Unresolved
	}
	root, ok := ctx[path[0]]
	if !ok {
		return Unresolved
	}
	cur := root
	for _, part := range path[1:] {
		cur = resolveField(cur, part)
		if IsUnresolved(cur) {
			return Unresolved
		}
	}
	return cur
}

// resolveField implements dotted traversal, including the list-projection
// rule from spec §4.1: field access on a list of maps maps the access over
// every element and returns a list.
func resolveField(v any, name string) any {
	switch t := v.(type) {
	case map[string]any:
		val, ok := t[name]
		if !ok {
			return Unresolved
		}
		return val
	case fieldResolver:
		return t.field(name)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = resolveField(item, name)
		}
		return out
	default:
		return Unresolved
	}
}

func evalUnary(operand *node, ctx Context) any {
	v := evalNode(operand, ctx)
	f, ok := toFloat(v)
	if !ok {
		return Unresolved
	}
	return normalizeNumber(-f)
}

func evalCall(fn string, argNodes []*node, ctx Context) any {
	impl, ok := builtins[strings.ToLower(fn)]
	if !ok {
		return Unresolved
	}
	args := make([]any, len(argNodes))
	for i, a := range argNodes {
		args[i] = evalNode(a, ctx)
	}
	return impl(args)
}

func evalBinary(op string, leftNode, rightNode *node, ctx Context) any {
	// "and"/"or" short-circuit and propagate Unresolved like any other
	// operand that isn't a definite bool.
	if op == "and" || op == "or" {
		left := evalNode(leftNode, ctx)
		lb, ok := left.(bool)
		if !ok {
			return Unresolved
		}
		if op == "and" && !lb {
			return false
		}
		if op == "or" && lb {
			return true
		}
		right := evalNode(rightNode, ctx)
		rb, ok := right.(bool)
		if !ok {
			return Unresolved
		}
		return rb
	}

	left := evalNode(leftNode, ctx)
	right := evalNode(rightNode, ctx)

	switch op {
	case "==":
		return valuesEqual(left, right)
	case "!=":
		eq := valuesEqual(left, right)
		if IsUnresolved(eq) {
			return Unresolved
		}
		return !eq.(bool)
	case "in":
		return evalIn(left, right)
	case "+":
		return evalAdd(left, right)
	case "-", "*", "/":
		return evalArith(op, left, right)
	case ">", "<", ">=", "<=":
		return evalOrderedCompare(op, left, right)
	default:
		return Unresolved
	}
}

// valuesEqual implements equality-against-null as a legal definite boolean
// (spec §4.1): comparing anything, including Unresolved, to null/Unresolved
// with == or != always yields a real bool, never Unresolved.
func valuesEqual(a, b any) any {
	if isNullish(a) || isNullish(b) {
		return isNullish(a) && isNullish(b)
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	return a == b
}

// ValuesEqual exposes the same null-safe equality valuesEqual uses for the
// `==` operator, for callers (e.g. the kernel's match step) that need to
// compare two already-evaluated values directly rather than through a
// binary expression node.
func ValuesEqual(a, b any) bool {
	eq, _ := valuesEqual(a, b).(bool)
	return eq
}

func isNullish(v any) bool {
	return v == nil || IsUnresolved(v)
}

func evalIn(needle, haystack any) any {
	list, ok := haystack.([]any)
	if !ok {
		return Unresolved
	}
	for _, item := range list {
		eq := valuesEqual(needle, item)
		if b, ok := eq.(bool); ok && b {
			return true
		}
	}
	return false
}

func evalAdd(a, b any) any {
	if sa, ok := a.(string); ok {
		if sb, ok := b.(string); ok {
			return sa + sb
		}
		return Unresolved
	}
	return evalArith("+", a, b)
}

func evalArith(op string, a, b any) any {
	if isNullish(a) || isNullish(b) {
		return Unresolved
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if !aok || !bok {
		return Unresolved
	}
	switch op {
	case "+":
		return normalizeNumber(af + bf)
	case "-":
		return normalizeNumber(af - bf)
	case "*":
		return normalizeNumber(af * bf)
	case "/":
		if bf == 0 {
			return Unresolved
		}
		return normalizeNumber(af / bf)
	default:
		return Unresolved
	}
}

func evalOrderedCompare(op string, a, b any) any {
	if isNullish(a) || isNullish(b) {
		return Unresolved
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if !aok || !bok {
		return Unresolved
	}
	switch op {
	case ">":
		return af > bf
	case "<":
		return af < bf
	case ">=":
		return af >= bf
	case "<=":
		return af <= bf
	default:
		return Unresolved
	}
}
