package blueprint

import "testing"

func sampleBlueprint() *Blueprint {
	return &Blueprint{
		Components: []Component{
			{
				Name: "A",
				Tables: []Table{
					{Name: "t", Columns: []Column{
						{Name: "id", Type: TypeString, PrimaryKey: true},
						{Name: "v", Type: TypeInt},
					}},
				},
				Handlers: []Handler{
					{OnMessage: "Set", Logic: []Step{
						{Kind: StepCreate, Create: &CreateStep{Table: "t", Data: map[string]string{
							"id": "{{ trigger.payload.id }}",
							"v":  "{{ trigger.payload.v }}",
						}}},
					}},
				},
			},
		},
	}
}

func TestComponentAndTableLookup(t *testing.T) {
	bp := sampleBlueprint()

	c, ok := bp.Component("A")
	if !ok {
		t.Fatal("expected component A")
	}
	tbl, ok := c.Table("t")
	if !ok {
		t.Fatal("expected table t")
	}
	if tbl.PrimaryKeyColumn() != "id" {
		t.Errorf("PrimaryKeyColumn() = %q, want id", tbl.PrimaryKeyColumn())
	}
	if _, ok := c.Handler("Set"); !ok {
		t.Fatal("expected handler Set")
	}
	if _, ok := c.Handler("Missing"); ok {
		t.Fatal("expected no handler named Missing")
	}
}

func TestOwnerOf(t *testing.T) {
	bp := sampleBlueprint()
	owner, ok := bp.OwnerOf("t")
	if !ok || owner != "A" {
		t.Fatalf("OwnerOf(t) = (%q, %v), want (A, true)", owner, ok)
	}
	if _, ok := bp.OwnerOf("missing"); ok {
		t.Fatal("expected OwnerOf(missing) to fail")
	}
}

func TestCloneIsDeep(t *testing.T) {
	bp := sampleBlueprint()
	clone := bp.Clone()

	clone.Components[0].Tables[0].Columns[0].Name = "mutated"
	clone.Components[0].Handlers[0].Logic[0].Create.Data["id"] = "mutated"

	if bp.Components[0].Tables[0].Columns[0].Name == "mutated" {
		t.Error("mutating clone's column leaked into original")
	}
	if bp.Components[0].Handlers[0].Logic[0].Create.Data["id"] == "mutated" {
		t.Error("mutating clone's step data leaked into original")
	}
}

func TestFromYAML(t *testing.T) {
	doc := []byte(`
components:
  - name: A
    tables:
      - name: t
        columns:
          - name: id
            type: string
            primary_key: true
    handlers:
      - on_message: Set
        logic:
          - kind: create
            create:
              table: t
              data:
                id: "{{ trigger.payload.id }}"
run:
  scenarios:
    - name: basic
      sends:
        - target: A
          message: Set
          payload:
            id: x
`)
	bp, err := FromYAML(doc)
	if err != nil {
		t.Fatalf("FromYAML: %v", err)
	}
	if len(bp.Components) != 1 || bp.Components[0].Name != "A" {
		t.Fatalf("unexpected components: %+v", bp.Components)
	}
	if _, ok := bp.Scenario("basic"); !ok {
		t.Fatal("expected scenario basic")
	}
}
