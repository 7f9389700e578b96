// Package analyzer implements the static analyzer (spec §4.2): a one-time,
// pre-execution pass over a blueprint that rejects handlers referencing
// variables outside their lexical scope, and syntax-checks every embedded
// expression along the way. Passing the analyzer is a precondition for
// starting the kernel.
package analyzer

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/e35zhang/Clotho-Simulation-Engine/internal/blueprint"
	"github.com/e35zhang/Clotho-Simulation-Engine/internal/exprlang"
)

// Analyze walks every component's handlers and invariants once, collecting
// every scope violation and syntax error into a single multierror-backed
// report. A nil error means the blueprint is clear to run.
func Analyze(bp *blueprint.Blueprint) error {
	var result *multierror.Error
	for _, c := range bp.Components {
		for _, h := range c.Handlers {
			if err := analyzeHandler(c, h); err != nil {
				result = multierror.Append(result, err)
			}
		}
		for _, inv := range c.Invariants {
			if err := analyzeInvariant(c, inv); err != nil {
				result = multierror.Append(result, err)
			}
		}
	}
	if result == nil {
		return nil
	}
	return result.ErrorOrNil()
}

// scope tracks the aliases introduced by `read` steps seen so far in one
// handler's step sequence, mapping alias -> table name so column references
// can be checked against that table's schema.
type scope struct {
	component blueprint.Component
	aliases   map[string]string
}

func newScope(c blueprint.Component) *scope {
	return &scope{component: c, aliases: map[string]string{}}
}

func analyzeHandler(c blueprint.Component, h blueprint.Handler) error {
	s := newScope(c)
	return analyzeSteps(s, h.OnMessage, h.Logic)
}

func analyzeSteps(s *scope, onMessage string, steps []blueprint.Step) error {
	var result *multierror.Error
	for _, step := range steps {
		switch step.Kind {
		case blueprint.StepRead:
			if err := analyzeTemplateMap(s, onMessage, "read.where", step.Read.Where); err != nil {
				result = multierror.Append(result, err)
			}
			if step.Read.Key != "" {
				if err := checkTemplate(s, onMessage, "read.key", step.Read.Key); err != nil {
					result = multierror.Append(result, err)
				}
			}
			tbl, ok := s.component.Table(step.Read.Table)
			if !ok {
				result = multierror.Append(result, fmt.Errorf(
					"handler %q: read step references unknown table %q", onMessage, step.Read.Table))
			} else if step.Read.As != "" {
				s.aliases[step.Read.As] = tbl.Name
			}
		case blueprint.StepCreate:
			if err := analyzeTemplateMap(s, onMessage, "create.data", step.Create.Data); err != nil {
				result = multierror.Append(result, err)
			}
		case blueprint.StepUpdate:
			if err := analyzeTemplateMap(s, onMessage, "update.set", step.Update.Set); err != nil {
				result = multierror.Append(result, err)
			}
			if err := analyzeTemplateMap(s, onMessage, "update.where", step.Update.Where); err != nil {
				result = multierror.Append(result, err)
			}
		case blueprint.StepSend:
			if err := analyzeTemplateMap(s, onMessage, "send.payload", step.Send.Payload); err != nil {
				result = multierror.Append(result, err)
			}
		case blueprint.StepMatch:
			if err := checkExpr(s, onMessage, "match.on", step.Match.On); err != nil {
				result = multierror.Append(result, err)
			}
			for _, mc := range step.Match.Cases {
				if !mc.Default && mc.When != "" {
					if err := checkExpr(s, onMessage, "match.case.when", mc.When); err != nil {
						result = multierror.Append(result, err)
					}
				}
				if err := analyzeSteps(s, onMessage, mc.Steps); err != nil {
					result = multierror.Append(result, err)
				}
			}
		}
	}
	return result.ErrorOrNil()
}

func analyzeTemplateMap(s *scope, onMessage, field string, m map[string]string) error {
	var result *multierror.Error
	for key, tmpl := range m {
		if err := checkTemplate(s, onMessage, field+"."+key, tmpl); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func checkTemplate(s *scope, onMessage, field, tmpl string) error {
	ids, err := exprlang.TemplateIdentifiers(tmpl)
	if err != nil {
		return fmt.Errorf("handler %q: %s: syntax error: %w", onMessage, field, err)
	}
	return checkIdentifiers(s, onMessage, field, ids)
}

func checkExpr(s *scope, onMessage, field, expr string) error {
	ids, err := exprlang.Identifiers(expr)
	if err != nil {
		return fmt.Errorf("handler %q: %s: syntax error: %w", onMessage, field, err)
	}
	return checkIdentifiers(s, onMessage, field, ids)
}

func checkIdentifiers(s *scope, onMessage, field string, ids [][]string) error {
	var result *multierror.Error
	for _, path := range ids {
		if err := checkOneIdentifier(s, path); err != nil {
			result = multierror.Append(result, fmt.Errorf("handler %q: %s: %w", onMessage, field, err))
		}
	}
	return result.ErrorOrNil()
}

// checkOneIdentifier validates a single dotted identifier path against the
// handler scope: trigger.*/msg.* are always in scope (spec §4.2 — this
// blueprint model declares no message schemas, so the analyzer is
// permissive for every message, per the spec's own fallback rule);
// read.<alias>.<column> must reference an alias already bound by a
// preceding read step, restricted to a column declared on that alias's
// table.
func checkOneIdentifier(s *scope, path []string) error {
	if len(path) == 0 {
		return nil
	}
	switch path[0] {
	case "trigger", "msg":
		return nil
	case "read":
		if len(path) < 2 {
			return fmt.Errorf("read.<alias> requires an alias")
		}
		alias := path[1]
		tableName, ok := s.aliases[alias]
		if !ok {
			return fmt.Errorf("read.%s: alias not bound by any preceding read step", alias)
		}
		if len(path) < 3 {
			return nil
		}
		column := path[2]
		tbl, _ := s.component.Table(tableName)
		if _, ok := tbl.Column(column); !ok {
			return fmt.Errorf("read.%s.%s: column %q not declared on table %q", alias, column, column, tableName)
		}
		return nil
	default:
		return fmt.Errorf("%s: variable out of scope", path[0])
	}
}

// analyzeInvariant checks an invariant expression's syntax and scope.
// Invariants read the lazy root proxy (root.<Component>.<Table>...), which
// the analyzer cannot validate beyond syntax without materializing live
// state, so only the leading "root" binding is enforced as in-scope; any
// other leading identifier is rejected the same way handler scope is.
func analyzeInvariant(c blueprint.Component, inv blueprint.Invariant) error {
	ids, err := exprlang.Identifiers(inv.Expr)
	if err != nil {
		return fmt.Errorf("component %q: invariant %q: syntax error: %w", c.Name, inv.Name, err)
	}
	var result *multierror.Error
	for _, path := range ids {
		if len(path) == 0 || path[0] == "root" {
			continue
		}
		result = multierror.Append(result, fmt.Errorf(
			"component %q: invariant %q: %s: variable out of scope", c.Name, inv.Name, path[0]))
	}
	return result.ErrorOrNil()
}
