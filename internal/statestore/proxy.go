package statestore

import "github.com/e35zhang/Clotho-Simulation-Engine/internal/exprlang"

// This file implements internal/exprlang's TableView/ComponentView/RootView
// interfaces (spec §9 "lazy state proxies"). statestore imports exprlang for
// these interface types; exprlang never imports statestore, so there is no
// cycle — only this direction of dependency exists.

// tableView exposes one (component, table) pair's rows on demand.
type tableView struct {
	store     *Store
	component string
	table     string
}

func (v tableView) Rows() []map[string]any {
	rows := v.store.Rows(v.component, v.table)
	out := make([]map[string]any, len(rows))
	for i, r := range rows {
		out[i] = map[string]any(r)
	}
	return out
}

// componentView resolves a component's declared tables on demand.
type componentView struct {
	store     *Store
	component string
}

func (v componentView) Table(name string) (exprlang.TableView, bool) {
	comp, ok := v.store.bp.Component(v.component)
	if !ok {
		return nil, false
	}
	if _, ok := comp.Table(name); !ok {
		return nil, false
	}
	return tableView{store: v.store, component: v.component, table: name}, true
}

// rootView exposes the whole store as a lazily-resolved root for invariant
// expressions; callers bind it under the "root" context key via
// exprlang.NewRootProxy.
type rootView struct {
	store *Store
}

// AsRootView adapts a Store to exprlang.RootView.
func AsRootView(s *Store) exprlang.RootView {
	return rootView{store: s}
}

func (v rootView) Component(name string) (exprlang.ComponentView, bool) {
	if _, ok := v.store.bp.Component(name); !ok {
		return nil, false
	}
	return componentView{store: v.store, component: name}, true
}
