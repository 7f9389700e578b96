// Package blueprint defines the declarative input data model (spec §3, §6):
// components, tables, handlers, steps, scenarios, and faults. This package
// owns only the types — parsing a blueprint file and validating it against a
// schema is the job of an external loader this module deliberately does not
// implement (spec §1 Non-goals).
package blueprint

// PrimitiveType names one of the blueprint's informational primitive type
// aliases (storage-mapping hints only; never enforced at runtime).
type PrimitiveType string

const (
	TypeString PrimitiveType = "string"
	TypeInt    PrimitiveType = "int"
	TypeFloat  PrimitiveType = "float"
	TypeBool   PrimitiveType = "bool"
)

// TypeAlias is one entry of the blueprint's top-level `types` map.
type TypeAlias struct {
	Name      string        `yaml:"name" json:"name"`
	Primitive PrimitiveType `yaml:"primitive" json:"primitive"`
}

// Column describes one column of a table's schema.
type Column struct {
	Name       string        `yaml:"name" json:"name"`
	Type       PrimitiveType `yaml:"type" json:"type"`
	PrimaryKey bool          `yaml:"primary_key,omitempty" json:"primary_key,omitempty"`
	NotNull    bool          `yaml:"not_null,omitempty" json:"not_null,omitempty"`
}

// Table is a named, ordered set of column definitions owned by a component.
type Table struct {
	Name    string   `yaml:"name" json:"name"`
	Columns []Column `yaml:"columns" json:"columns"`
}

// PrimaryKeyColumn returns the table's primary-key column name, or "" if none
// is declared.
func (t Table) PrimaryKeyColumn() string {
	for _, c := range t.Columns {
		if c.PrimaryKey {
			return c.Name
		}
	}
	return ""
}

// Column looks up a column by name.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// StepKind discriminates the handler step language (spec §4.5).
type StepKind string

const (
	StepRead   StepKind = "read"
	StepCreate StepKind = "create"
	StepUpdate StepKind = "update"
	StepSend   StepKind = "send"
	StepMatch  StepKind = "match"
)

// ReadStep looks up one row and binds it under read.<As> in the local context.
// Exactly one of Where or Key should be set; Key is a template expression
// evaluating to the table's primary-key value, Where is a set of column-name
// to template-expression equality conditions.
type ReadStep struct {
	Table string            `yaml:"table" json:"table"`
	Where map[string]string `yaml:"where,omitempty" json:"where,omitempty"`
	Key   string            `yaml:"key,omitempty" json:"key,omitempty"`
	As    string            `yaml:"as" json:"as"`
}

// CreateStep inserts one row; Data values may be template strings.
type CreateStep struct {
	Table string            `yaml:"table" json:"table"`
	Data  map[string]string `yaml:"data" json:"data"`
}

// UpdateStep updates rows matching Where; Set and Where may be templates.
type UpdateStep struct {
	Table string            `yaml:"table" json:"table"`
	Set   map[string]string `yaml:"set" json:"set"`
	Where map[string]string `yaml:"where" json:"where"`
}

// SendStep enqueues a new pending message.
type SendStep struct {
	To      string            `yaml:"to" json:"to"`
	Message string            `yaml:"message" json:"message"`
	Payload map[string]string `yaml:"payload,omitempty" json:"payload,omitempty"`
}

// MatchCase is one branch of a match step. Default, when true, makes this the
// fallback case; otherwise When is evaluated as its own value and the case
// matches when that value equals the match step's separately-evaluated `on`
// value (spec §9 "match semantics"; On and When are never in scope of one
// another).
type MatchCase struct {
	When    string `yaml:"when,omitempty" json:"when,omitempty"`
	Default bool   `yaml:"default,omitempty" json:"default,omitempty"`
	Steps   []Step `yaml:"steps" json:"steps"`
}

// MatchStep evaluates On and dispatches to the first matching case (or the
// default case); the chosen case's steps are prepended to the handler's
// remaining step list (spec §4.5, §9 "Match semantics").
type MatchStep struct {
	On    string      `yaml:"on" json:"on"`
	Cases []MatchCase `yaml:"cases" json:"cases"`
}

// Step is a tagged union over the five step kinds. Exactly the field named by
// Kind should be non-nil.
type Step struct {
	Kind   StepKind    `yaml:"kind" json:"kind"`
	Read   *ReadStep   `yaml:"read,omitempty" json:"read,omitempty"`
	Create *CreateStep `yaml:"create,omitempty" json:"create,omitempty"`
	Update *UpdateStep `yaml:"update,omitempty" json:"update,omitempty"`
	Send   *SendStep   `yaml:"send,omitempty" json:"send,omitempty"`
	Match  *MatchStep  `yaml:"match,omitempty" json:"match,omitempty"`
}

// Handler is a sequence of steps triggered by a named message.
type Handler struct {
	OnMessage string `yaml:"on_message" json:"on_message"`
	Logic     []Step `yaml:"logic" json:"logic"`
}

// Invariant is a named boolean expression evaluated over the read context
// after every commit point.
type Invariant struct {
	Name string `yaml:"name" json:"name"`
	Expr string `yaml:"expr" json:"expr"`
}

// Component owns tables, handlers, and invariants.
type Component struct {
	Name       string      `yaml:"name" json:"name"`
	Tables     []Table     `yaml:"tables,omitempty" json:"tables,omitempty"`
	Handlers   []Handler   `yaml:"handlers,omitempty" json:"handlers,omitempty"`
	Invariants []Invariant `yaml:"invariants,omitempty" json:"invariants,omitempty"`
}

// Table looks up one of the component's tables by name.
func (c Component) Table(name string) (Table, bool) {
	for _, t := range c.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// Handler looks up the handler triggered by the given message name.
func (c Component) Handler(message string) (Handler, bool) {
	for _, h := range c.Handlers {
		if h.OnMessage == message {
			return h, true
		}
	}
	return Handler{}, false
}

// ScenarioInitEntry seeds one table's rows at the start of a scenario.
type ScenarioInitEntry struct {
	Component string           `yaml:"component" json:"component"`
	Table     string           `yaml:"table" json:"table"`
	Rows      []map[string]any `yaml:"rows" json:"rows"`
}

// ScenarioSend is one external message sent at scenario start.
type ScenarioSend struct {
	Target  string         `yaml:"target" json:"target"`
	Message string         `yaml:"message" json:"message"`
	Payload map[string]any `yaml:"payload,omitempty" json:"payload,omitempty"`
}

// Scenario names an initial state plus an ordered sequence of external sends.
type Scenario struct {
	Name         string              `yaml:"name" json:"name"`
	InitialState []ScenarioInitEntry `yaml:"initial_state,omitempty" json:"initial_state,omitempty"`
	Sends        []ScenarioSend      `yaml:"sends" json:"sends"`
}

// FaultKind names one of the supported fault descriptors.
type FaultKind string

const (
	FaultMessageDrop FaultKind = "MessageDrop"
)

// Fault describes one entry of run.environment.faults.
type Fault struct {
	Kind        FaultKind `yaml:"kind" json:"kind"`
	Target      string    `yaml:"target" json:"target"`
	Probability float64   `yaml:"probability" json:"probability"`
}

// Environment holds run-wide fault injection configuration.
type Environment struct {
	Faults []Fault `yaml:"faults,omitempty" json:"faults,omitempty"`
}

// Run holds the scenarios (or the generators/fixtures an equivalent scenario
// is synthesized from, spec §6) and environment a blueprint ships with.
type Run struct {
	Scenarios   []Scenario  `yaml:"scenarios,omitempty" json:"scenarios,omitempty"`
	Generators  []Generator `yaml:"generators,omitempty" json:"generators,omitempty"`
	Fixtures    []Fixture   `yaml:"fixtures,omitempty" json:"fixtures,omitempty"`
	Environment Environment `yaml:"environment,omitempty" json:"environment,omitempty"`
}

// Blueprint is the complete, immutable-at-runtime declarative input.
type Blueprint struct {
	Types      []TypeAlias `yaml:"types,omitempty" json:"types,omitempty"`
	Components []Component `yaml:"components" json:"components"`
	Run        Run         `yaml:"run,omitempty" json:"run,omitempty"`
}

// Component looks up one of the blueprint's components by name.
func (b *Blueprint) Component(name string) (Component, bool) {
	for _, c := range b.Components {
		if c.Name == name {
			return c, true
		}
	}
	return Component{}, false
}

// Scenario looks up one of the blueprint's scenarios by name. If no literal
// scenario matches, it falls back to the scenario synthesized from
// Run.Generators + Run.Fixtures, if any (spec §6) — the fallback's one
// possible name is SynthesizedScenarioName.
func (b *Blueprint) Scenario(name string) (Scenario, bool) {
	for _, s := range b.Run.Scenarios {
		if s.Name == name {
			return s, true
		}
	}
	if synthesized, ok := b.synthesizeScenario(); ok && synthesized.Name == name {
		return synthesized, true
	}
	return Scenario{}, false
}

// OwnerOf resolves which component owns a given table, scanning every
// component once. Returns false if no component declares that table.
func (b *Blueprint) OwnerOf(table string) (string, bool) {
	for _, c := range b.Components {
		if _, ok := c.Table(table); ok {
			return c.Name, true
		}
	}
	return "", false
}

// Clone returns a deep copy of the blueprint, used by the chaos matrix so
// per-run fuzzing never mutates the shared blueprint (spec §4.8 step 1).
func (b *Blueprint) Clone() *Blueprint {
	if b == nil {
		return nil
	}
	out := &Blueprint{
		Types:      append([]TypeAlias(nil), b.Types...),
		Components: make([]Component, len(b.Components)),
		Run:        cloneRun(b.Run),
	}
	for i, c := range b.Components {
		out.Components[i] = cloneComponent(c)
	}
	return out
}

func cloneComponent(c Component) Component {
	out := Component{
		Name:       c.Name,
		Tables:     make([]Table, len(c.Tables)),
		Handlers:   make([]Handler, len(c.Handlers)),
		Invariants: append([]Invariant(nil), c.Invariants...),
	}
	for i, t := range c.Tables {
		out.Tables[i] = Table{Name: t.Name, Columns: append([]Column(nil), t.Columns...)}
	}
	for i, h := range c.Handlers {
		out.Handlers[i] = Handler{OnMessage: h.OnMessage, Logic: cloneSteps(h.Logic)}
	}
	return out
}

func cloneSteps(steps []Step) []Step {
	out := make([]Step, len(steps))
	for i, s := range steps {
		out[i] = cloneStep(s)
	}
	return out
}

func cloneStep(s Step) Step {
	out := Step{Kind: s.Kind}
	if s.Read != nil {
		r := *s.Read
		r.Where = cloneStringMap(s.Read.Where)
		out.Read = &r
	}
	if s.Create != nil {
		c := *s.Create
		c.Data = cloneStringMap(s.Create.Data)
		out.Create = &c
	}
	if s.Update != nil {
		u := *s.Update
		u.Set = cloneStringMap(s.Update.Set)
		u.Where = cloneStringMap(s.Update.Where)
		out.Update = &u
	}
	if s.Send != nil {
		sd := *s.Send
		sd.Payload = cloneStringMap(s.Send.Payload)
		out.Send = &sd
	}
	if s.Match != nil {
		m := MatchStep{On: s.Match.On, Cases: make([]MatchCase, len(s.Match.Cases))}
		for i, mc := range s.Match.Cases {
			m.Cases[i] = MatchCase{When: mc.When, Default: mc.Default, Steps: cloneSteps(mc.Steps)}
		}
		out.Match = &m
	}
	return out
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneRun(r Run) Run {
	out := Run{
		Scenarios:   make([]Scenario, len(r.Scenarios)),
		Generators:  make([]Generator, len(r.Generators)),
		Fixtures:    make([]Fixture, len(r.Fixtures)),
		Environment: Environment{Faults: append([]Fault(nil), r.Environment.Faults...)},
	}
	for i, s := range r.Scenarios {
		out.Scenarios[i] = cloneScenario(s)
	}
	for i, g := range r.Generators {
		out.Generators[i] = cloneGenerator(g)
	}
	for i, f := range r.Fixtures {
		rows := make([]map[string]any, len(f.Rows))
		for j, row := range f.Rows {
			rows[j] = cloneAnyMap(row)
		}
		out.Fixtures[i] = Fixture{Component: f.Component, Table: f.Table, Rows: rows}
	}
	return out
}

func cloneGenerator(g Generator) Generator {
	out := Generator{Count: g.Count, Behavior: GeneratorBehavior{Send: g.Behavior.Send}}
	if g.Behavior.FuzzHint != nil {
		out.Behavior.FuzzHint = make(map[string]FuzzHintField, len(g.Behavior.FuzzHint))
		for k, v := range g.Behavior.FuzzHint {
			out.Behavior.FuzzHint[k] = FuzzHintField{Range: append([]float64(nil), v.Range...), Value: v.Value}
		}
	}
	out.Behavior.Payload = cloneAnyMap(g.Behavior.Payload)
	return out
}

func cloneScenario(s Scenario) Scenario {
	out := Scenario{
		Name:         s.Name,
		InitialState: make([]ScenarioInitEntry, len(s.InitialState)),
		Sends:        make([]ScenarioSend, len(s.Sends)),
	}
	for i, e := range s.InitialState {
		rows := make([]map[string]any, len(e.Rows))
		for j, row := range e.Rows {
			rows[j] = cloneAnyMap(row)
		}
		out.InitialState[i] = ScenarioInitEntry{Component: e.Component, Table: e.Table, Rows: rows}
	}
	for i, snd := range s.Sends {
		out.Sends[i] = ScenarioSend{Target: snd.Target, Message: snd.Message, Payload: cloneAnyMap(snd.Payload)}
	}
	return out
}

func cloneAnyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
