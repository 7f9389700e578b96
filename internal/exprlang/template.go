package exprlang

import (
	"fmt"
	"strings"
)

// RenderTemplate evaluates every {{ ... }} region in s against ctx. Per spec
// §4.1: a string consisting of exactly one {{ ... }} region (nothing before
// or after) returns the evaluated value natively, preserving its type;
// anything else is rendered to a plain string with each region substituted
// in place.
func RenderTemplate(s string, ctx Context) any {
	regions, err := scanTemplate(s)
	if err != nil {
		return Unresolved
	}
	if len(regions) == 1 && regions[0].isExpr && regions[0].start == 0 && regions[0].end == len(s) {
		return Evaluate(regions[0].text, ctx)
	}
	var b strings.Builder
	for _, r := range regions {
		if !r.isExpr {
			b.WriteString(r.text)
			continue
		}
		v := Evaluate(r.text, ctx)
		b.WriteString(stringify(v))
	}
	return b.String()
}

type templateRegion struct {
	text         string
	isExpr       bool
	start, end   int
}

// scanTemplate splits s into literal and {{ expr }} regions. It returns an
// error on an unterminated "{{" so callers can fail the same way a malformed
// expression would.
func scanTemplate(s string) ([]templateRegion, error) {
	var regions []templateRegion
	i := 0
	for i < len(s) {
		start := strings.Index(s[i:], "{{")
		if start < 0 {
			regions = append(regions, templateRegion{text: s[i:], start: i, end: len(s)})
			break
		}
		start += i
		if start > i {
			regions = append(regions, templateRegion{text: s[i:start], start: i, end: start})
		}
		end := strings.Index(s[start+2:], "}}")
		if end < 0 {
			return nil, fmt.Errorf("unterminated template expression")
		}
		end += start + 2
		expr := strings.TrimSpace(s[start+2 : end])
		regions = append(regions, templateRegion{text: expr, isExpr: true, start: start, end: end + 2})
		i = end + 2
	}
	return regions, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case unresolvedType:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", t)
	}
}
