package statestore

import (
	"bytes"
	"encoding/json"
	"sort"
)

// marshalCanonical renders v as JSON with every object's keys sorted and no
// insignificant whitespace. encoding/json already marshals map[string]any
// keys in sorted order, so this is mostly a thin wrapper — it exists because
// no library in the pack offers an off-the-shelf canonical-JSON form (see
// DESIGN.md's standard-library justification).
func marshalCanonical(v any) (string, error) {
	normalized := normalize(v)
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return "", err
	}
	out := buf.Bytes()
	if len(out) > 0 && out[len(out)-1] == '\n' {
		out = out[:len(out)-1]
	}
	return string(out), nil
}

// normalize recursively walks v converting map[string]any keys into a stable
// order via ordinary Go map marshaling (already sorted by encoding/json) and
// recursing into slices, so nested structures are canonicalized too.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out[k] = normalize(t[k])
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalize(item)
		}
		return out
	default:
		return v
	}
}
