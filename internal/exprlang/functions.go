package exprlang

import (
	"github.com/google/uuid"
)

// builtinFn implements one whitelisted function. Any identifier called that
// isn't in this table evaluates to Unresolved (spec §4.1): there is no
// reflection-based dispatch into arbitrary Go functions.
type builtinFn func(args []any) any

var builtins = map[string]builtinFn{
	"uuid": fnUUID,
	"sum":  fnSum,
	"all":  fnAll,
	"any":  fnAny,
	"len":  fnLen,
	"min":  fnMin,
	"max":  fnMax,
}

// fnUUID is the only place the expression engine touches a non-deterministic
// source; it exists for generating opaque display identifiers inside handler
// logic, never for the RNG-derived causal IDs the kernel owns.
func fnUUID(args []any) any {
	if len(args) != 0 {
		return Unresolved
	}
	return uuid.NewString()
}

func asList(v any) ([]any, bool) {
	list, ok := v.([]any)
	return list, ok
}

func fnSum(args []any) any {
	if len(args) != 1 {
		return Unresolved
	}
	list, ok := asList(args[0])
	if !ok {
		return Unresolved
	}
	var total float64
	for _, item := range list {
		f, ok := toFloat(item)
		if !ok {
			return Unresolved
		}
		total += f
	}
	return normalizeNumber(total)
}

func fnAll(args []any) any {
	if len(args) != 1 {
		return Unresolved
	}
	list, ok := asList(args[0])
	if !ok {
		return Unresolved
	}
	for _, item := range list {
		b, ok := item.(bool)
		if !ok {
			return Unresolved
		}
		if !b {
			return false
		}
	}
	return true
}

func fnAny(args []any) any {
	if len(args) != 1 {
		return Unresolved
	}
	list, ok := asList(args[0])
	if !ok {
		return Unresolved
	}
	for _, item := range list {
		b, ok := item.(bool)
		if !ok {
			return Unresolved
		}
		if b {
			return true
		}
	}
	return false
}

func fnLen(args []any) any {
	if len(args) != 1 {
		return Unresolved
	}
	switch v := args[0].(type) {
	case []any:
		return int64(len(v))
	case string:
		return int64(len(v))
	default:
		return Unresolved
	}
}

func fnMin(args []any) any {
	return fnExtreme(args, false)
}

func fnMax(args []any) any {
	return fnExtreme(args, true)
}

func fnExtreme(args []any, wantMax bool) any {
	var values []any
	if len(args) == 1 {
		list, ok := asList(args[0])
		if !ok {
			return Unresolved
		}
		values = list
	} else {
		values = args
	}
	if len(values) == 0 {
		return Unresolved
	}
	best, ok := toFloat(values[0])
	if !ok {
		return Unresolved
	}
	for _, v := range values[1:] {
		f, ok := toFloat(v)
		if !ok {
			return Unresolved
		}
		if (wantMax && f > best) || (!wantMax && f < best) {
			best = f
		}
	}
	return normalizeNumber(best)
}
