// Package statestore implements the per-run state store (spec §4.4): tables
// keyed by (component, table), with a scoped read/write API and canonical
// JSON serialization of non-scalar values at the storage boundary.
package statestore

import (
	"fmt"
	"sort"
	"sync"

	"github.com/e35zhang/Clotho-Simulation-Engine/internal/blueprint"
)

// Row is one stored record: column name to value.
type Row map[string]any

func (r Row) clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

type tableKey struct {
	component string
	table     string
}

// Store holds every component's tables for the duration of one run. It is
// never shared across runs — the chaos matrix gives each run its own Store
// (spec §5 per-run isolation).
type Store struct {
	mu  sync.RWMutex
	bp  *blueprint.Blueprint
	tbl map[tableKey][]Row
}

// New returns an empty store scoped to bp's schema. bp is read-only from the
// store's perspective — it is used only to resolve table ownership and
// primary keys.
func New(bp *blueprint.Blueprint) *Store {
	return &Store{bp: bp, tbl: make(map[tableKey][]Row)}
}

// Owner resolves which component owns table, by blueprint lookup, exactly
// once per call (spec §4.4: "the owner of each table is resolved once by
// blueprint lookup").
func (s *Store) Owner(table string) (string, bool) {
	return s.bp.OwnerOf(table)
}

// Seed inserts initial rows directly, bypassing the write validation rules —
// used once at run start to apply a scenario's initial_state (spec §3).
func (s *Store) Seed(component, table string, rows []map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := tableKey{component: component, table: table}
	for _, r := range rows {
		s.tbl[key] = append(s.tbl[key], Row(r).clone())
	}
}

// Read returns the first row matching an equality where clause, or (nil,
// false) if none matches. Invalid identifier keys (columns not declared on
// the table) are ignored, per spec §4.4 ("with a recorded warning") — the
// warning is surfaced through the returned Warnings slice rather than a log
// side effect, keeping Read pure.
func (s *Store) Read(owner, table string, where map[string]string) (Row, []string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var warnings []string
	validWhere := map[string]string{}
	comp, _ := s.bp.Component(owner)
	tbl, _ := comp.Table(table)
	for k, v := range where {
		if _, ok := tbl.Column(k); !ok {
			warnings = append(warnings, fmt.Sprintf("read %s.%s: unknown column %q in where clause ignored", owner, table, k))
			continue
		}
		validWhere[k] = v
	}

	rows := s.tbl[tableKey{component: owner, table: table}]
	for _, r := range rows {
		if rowMatches(r, validWhere) {
			return r.clone(), warnings, true
		}
	}
	return nil, warnings, false
}

func rowMatches(r Row, where map[string]string) bool {
	for k, v := range where {
		if fmt.Sprintf("%v", r[k]) != v {
			return false
		}
	}
	return true
}

// WriteAction discriminates the three write kinds (spec §4.4).
type WriteAction string

const (
	WriteCreate WriteAction = "CREATE"
	WriteUpdate WriteAction = "UPDATE"
	WriteDelete WriteAction = "DELETE"
)

// Write applies one CREATE/UPDATE/DELETE to (owner, table), enforcing the
// validation rules from spec §4.4. It returns the set of rows affected
// (post-image, for CREATE/UPDATE; pre-image, for DELETE) so the caller (the
// kernel) can emit exactly one log event per step.
func (s *Store) Write(owner, table string, action WriteAction, data map[string]any, where map[string]string) ([]Row, error) {
	switch action {
	case WriteCreate:
		if len(data) == 0 {
			return nil, fmt.Errorf("statestore: CREATE requires non-empty data")
		}
	case WriteUpdate:
		if len(data) == 0 {
			return nil, fmt.Errorf("statestore: UPDATE requires non-empty data")
		}
		if len(where) == 0 {
			return nil, fmt.Errorf("statestore: UPDATE requires non-empty where")
		}
		for k := range data {
			if _, ok := where[k]; ok {
				return nil, fmt.Errorf("statestore: UPDATE: column %q present in both data and where", k)
			}
		}
	case WriteDelete:
		if len(where) == 0 {
			return nil, fmt.Errorf("statestore: DELETE requires non-empty where")
		}
	default:
		return nil, fmt.Errorf("statestore: unknown write action %q", action)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := tableKey{component: owner, table: table}

	switch action {
	case WriteCreate:
		row := canonicalizeRow(data)
		s.tbl[key] = append(s.tbl[key], row)
		return []Row{row.clone()}, nil
	case WriteUpdate:
		var affected []Row
		rows := s.tbl[key]
		for i, r := range rows {
			if rowMatchesAny(r, where) {
				for k, v := range data {
					rows[i][k] = canonicalizeValue(v)
				}
				affected = append(affected, rows[i].clone())
			}
		}
		return affected, nil
	case WriteDelete:
		rows := s.tbl[key]
		var kept []Row
		var affected []Row
		for _, r := range rows {
			if rowMatchesAny(r, where) {
				affected = append(affected, r.clone())
				continue
			}
			kept = append(kept, r)
		}
		s.tbl[key] = kept
		return affected, nil
	}
	return nil, nil
}

func rowMatchesAny(r Row, where map[string]string) bool {
	for k, v := range where {
		if fmt.Sprintf("%v", r[k]) != v {
			return false
		}
	}
	return true
}

func canonicalizeRow(data map[string]any) Row {
	out := make(Row, len(data))
	for k, v := range data {
		out[k] = canonicalizeValue(v)
	}
	return out
}

// canonicalizeValue serializes non-scalar values to a canonical JSON string
// (sorted keys, no whitespace) at the storage boundary, per spec §4.4.
// Scalars pass through untouched so expressions keep observing the original
// typed value (spec §9 open-question resolution).
func canonicalizeValue(v any) any {
	switch v.(type) {
	case string, int, int64, float64, bool, nil:
		return v
	default:
		s, err := canonicalJSON(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return s
	}
}

// canonicalJSON renders v as JSON with map keys sorted and no insignificant
// whitespace. encoding/json already sorts map[string]any keys on marshal, so
// this wrapper's only job is to recursively normalize nested maps/slices the
// same way and strip whitespace — there is no canonical-JSON helper in the
// pack, hence the small hand-rolled implementation (see DESIGN.md).
func canonicalJSON(v any) (string, error) {
	return marshalCanonical(v)
}

// Rows returns a defensive copy of every row for (component, table), used by
// the kernel's invariant-evaluation path and by exprlang.TableView.
func (s *Store) Rows(component, table string) []Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.tbl[tableKey{component: component, table: table}]
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = r.clone()
	}
	return out
}

// componentNames returns the set of component names that currently have at
// least one table materialized.
func (s *Store) componentNames() []string {
	seen := map[string]struct{}{}
	for k := range s.tbl {
		seen[k.component] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
