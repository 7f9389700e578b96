package blueprint

import "testing"

func generatorBlueprint() *Blueprint {
	return &Blueprint{
		Components: []Component{
			{
				Name: "AccountService",
				Tables: []Table{
					{Name: "accounts", Columns: []Column{
						{Name: "id", Type: TypeString, PrimaryKey: true},
						{Name: "balance", Type: TypeInt},
					}},
				},
				Handlers: []Handler{
					{OnMessage: "InitiateTransfer", Logic: []Step{
						{Kind: StepRead, Read: &ReadStep{Table: "accounts", Key: "{{trigger.payload.from_id}}", As: "acct"}},
					}},
				},
			},
		},
		Run: Run{
			Fixtures: []Fixture{
				{Component: "AccountService", Table: "accounts", Rows: []map[string]any{{"id": "a", "balance": int64(1000)}}},
				{Component: "AccountService", Table: "accounts", Rows: []map[string]any{{"id": "b", "balance": int64(500)}}},
			},
			Generators: []Generator{
				{
					Count: 3,
					Behavior: GeneratorBehavior{
						Send: "InitiateTransfer",
						FuzzHint: map[string]FuzzHintField{
							"amount": {Range: []float64{0, 100}},
						},
						Payload: map[string]any{
							"from_id": "a",
							"to_id":   "b",
							"nonce":   "$sequence",
						},
					},
				},
			},
		},
	}
}

func TestScenarioFallsBackToSynthesis(t *testing.T) {
	bp := generatorBlueprint()

	scenario, ok := bp.Scenario(SynthesizedScenarioName)
	if !ok {
		t.Fatal("expected a synthesized scenario")
	}

	if len(scenario.InitialState) != 1 {
		t.Fatalf("expected fixtures for one table grouped together, got %d entries", len(scenario.InitialState))
	}
	entry := scenario.InitialState[0]
	if entry.Component != "AccountService" || entry.Table != "accounts" {
		t.Fatalf("unexpected initial state entry: %+v", entry)
	}
	if len(entry.Rows) != 2 {
		t.Fatalf("expected both fixture rows grouped under one entry, got %d", len(entry.Rows))
	}

	if len(scenario.Sends) != 3 {
		t.Fatalf("expected 3 sends from count=3 generator, got %d", len(scenario.Sends))
	}
	for i, send := range scenario.Sends {
		if send.Target != "AccountService" {
			t.Errorf("send %d: target = %q, want AccountService (resolved via handler lookup)", i, send.Target)
		}
		if send.Message != "InitiateTransfer" {
			t.Errorf("send %d: message = %q, want InitiateTransfer", i, send.Message)
		}
		if send.Payload["amount"] != int64(50) {
			t.Errorf("send %d: amount = %v, want 50 (floor midpoint of [0,100])", i, send.Payload["amount"])
		}
		if send.Payload["from_id"] != "a" || send.Payload["to_id"] != "b" {
			t.Errorf("send %d: static payload overlay missing: %+v", i, send.Payload)
		}
		if send.Payload["nonce"] != int64(i) {
			t.Errorf("send %d: nonce = %v, want %d ($sequence substitution)", i, send.Payload["nonce"], i)
		}
	}
}

func TestScenarioWithNoGeneratorsOrFixturesDoesNotSynthesize(t *testing.T) {
	bp := sampleBlueprint()
	if _, ok := bp.Scenario(SynthesizedScenarioName); ok {
		t.Fatal("expected no synthesized scenario when Run.Generators/Run.Fixtures are both empty")
	}
}

func TestSynthesisDoesNotMutateBlueprint(t *testing.T) {
	bp := generatorBlueprint()
	if len(bp.Run.Scenarios) != 0 {
		t.Fatalf("expected no scenarios before lookup, got %d", len(bp.Run.Scenarios))
	}
	if _, ok := bp.Scenario(SynthesizedScenarioName); !ok {
		t.Fatal("expected synthesis to succeed")
	}
	if len(bp.Run.Scenarios) != 0 {
		t.Fatalf("expected Scenario() lookup to remain side-effect-free, got %d materialized scenarios", len(bp.Run.Scenarios))
	}
}

func TestCloneDeepCopiesGeneratorsAndFixtures(t *testing.T) {
	bp := generatorBlueprint()
	clone := bp.Clone()

	clone.Run.Fixtures[0].Rows[0]["balance"] = int64(999999)
	clone.Run.Generators[0].Behavior.Payload["from_id"] = "mutated"
	clone.Run.Generators[0].Behavior.FuzzHint["amount"] = FuzzHintField{Range: []float64{1, 1}}

	if bp.Run.Fixtures[0].Rows[0]["balance"] == int64(999999) {
		t.Error("mutating clone's fixture row leaked into original")
	}
	if bp.Run.Generators[0].Behavior.Payload["from_id"] == "mutated" {
		t.Error("mutating clone's generator payload leaked into original")
	}
	if bp.Run.Generators[0].Behavior.FuzzHint["amount"].Range[1] == 1 {
		t.Error("mutating clone's fuzz hint leaked into original")
	}
}
