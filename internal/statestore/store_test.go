package statestore

import (
	"testing"

	"github.com/e35zhang/Clotho-Simulation-Engine/internal/blueprint"
	"github.com/e35zhang/Clotho-Simulation-Engine/internal/exprlang"
)

func sampleBlueprint() *blueprint.Blueprint {
	return &blueprint.Blueprint{
		Components: []blueprint.Component{
			{
				Name: "Account",
				Tables: []blueprint.Table{
					{Name: "balances", Columns: []blueprint.Column{
						{Name: "id", Type: blueprint.TypeString, PrimaryKey: true},
						{Name: "amount", Type: blueprint.TypeInt},
					}},
				},
			},
		},
	}
}

func TestWriteCreateRequiresData(t *testing.T) {
	s := New(sampleBlueprint())
	if _, err := s.Write("Account", "balances", WriteCreate, nil, nil); err == nil {
		t.Fatal("expected error for empty CREATE data")
	}
}

func TestWriteCreateAndRead(t *testing.T) {
	s := New(sampleBlueprint())
	_, err := s.Write("Account", "balances", WriteCreate, map[string]any{"id": "a1", "amount": int64(100)}, nil)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	row, warnings, ok := s.Read("Account", "balances", map[string]string{"id": "a1"})
	if !ok {
		t.Fatal("expected row a1 to be found")
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if row["amount"] != int64(100) {
		t.Fatalf("row amount = %v, want 100", row["amount"])
	}
}

func TestReadIgnoresUnknownColumnWithWarning(t *testing.T) {
	s := New(sampleBlueprint())
	s.Write("Account", "balances", WriteCreate, map[string]any{"id": "a1", "amount": int64(100)}, nil)
	_, warnings, ok := s.Read("Account", "balances", map[string]string{"bogus": "x"})
	if !ok {
		t.Fatal("expected row to match since the invalid where key is ignored")
	}
	if len(warnings) != 1 {
		t.Fatalf("expected one warning, got %v", warnings)
	}
}

func TestWriteUpdateRejectsOverlappingColumns(t *testing.T) {
	s := New(sampleBlueprint())
	_, err := s.Write("Account", "balances", WriteUpdate,
		map[string]any{"id": "x"}, map[string]string{"id": "x"})
	if err == nil {
		t.Fatal("expected error: column in both data and where")
	}
}

func TestWriteUpdateRequiresWhereAndData(t *testing.T) {
	s := New(sampleBlueprint())
	if _, err := s.Write("Account", "balances", WriteUpdate, nil, map[string]string{"id": "x"}); err == nil {
		t.Fatal("expected error for empty UPDATE data")
	}
	if _, err := s.Write("Account", "balances", WriteUpdate, map[string]any{"amount": int64(1)}, nil); err == nil {
		t.Fatal("expected error for empty UPDATE where")
	}
}

func TestWriteUpdateAppliesToMatchingRows(t *testing.T) {
	s := New(sampleBlueprint())
	s.Write("Account", "balances", WriteCreate, map[string]any{"id": "a1", "amount": int64(100)}, nil)
	affected, err := s.Write("Account", "balances", WriteUpdate,
		map[string]any{"amount": int64(150)}, map[string]string{"id": "a1"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(affected) != 1 || affected[0]["amount"] != int64(150) {
		t.Fatalf("affected = %+v, want amount 150", affected)
	}
	row, _, _ := s.Read("Account", "balances", map[string]string{"id": "a1"})
	if row["amount"] != int64(150) {
		t.Fatalf("stored amount = %v, want 150", row["amount"])
	}
}

func TestWriteDeleteRequiresWhere(t *testing.T) {
	s := New(sampleBlueprint())
	if _, err := s.Write("Account", "balances", WriteDelete, nil, nil); err == nil {
		t.Fatal("expected error for empty DELETE where")
	}
}

func TestWriteDeleteRemovesMatchingRows(t *testing.T) {
	s := New(sampleBlueprint())
	s.Write("Account", "balances", WriteCreate, map[string]any{"id": "a1", "amount": int64(100)}, nil)
	affected, err := s.Write("Account", "balances", WriteDelete, nil, map[string]string{"id": "a1"})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(affected) != 1 {
		t.Fatalf("affected = %+v, want 1 row", affected)
	}
	if _, _, ok := s.Read("Account", "balances", map[string]string{"id": "a1"}); ok {
		t.Fatal("expected row to be gone after delete")
	}
}

func TestOwnerResolvesViaBlueprint(t *testing.T) {
	s := New(sampleBlueprint())
	owner, ok := s.Owner("balances")
	if !ok || owner != "Account" {
		t.Fatalf("Owner(balances) = (%q, %v), want (Account, true)", owner, ok)
	}
}

func TestCanonicalizeNonScalarValue(t *testing.T) {
	s := New(sampleBlueprint())
	rows, err := s.Write("Account", "balances", WriteCreate,
		map[string]any{"id": "a1", "amount": map[string]any{"b": 2, "a": 1}}, nil)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	canon, ok := rows[0]["amount"].(string)
	if !ok {
		t.Fatalf("expected canonicalized string, got %T", rows[0]["amount"])
	}
	if canon != `{"a":1,"b":2}` {
		t.Fatalf("canonical json = %q, want sorted-key form", canon)
	}
}

func TestRootViewLazyInvariantEvaluation(t *testing.T) {
	bp := sampleBlueprint()
	s := New(bp)
	s.Write("Account", "balances", WriteCreate, map[string]any{"id": "a1", "amount": int64(100)}, nil)
	s.Write("Account", "balances", WriteCreate, map[string]any{"id": "a2", "amount": int64(50)}, nil)

	ctx := exprlang.Context{"root": exprlang.NewRootProxy(AsRootView(s))}
	got := exprlang.Evaluate("sum(root.Account.balances.amount)", ctx)
	if got != int64(150) {
		t.Fatalf("sum(root.Account.balances.amount) = %v, want 150", got)
	}

	got = exprlang.Evaluate("sum(root.Account.balances.amount) >= 0", ctx)
	if got != true {
		t.Fatalf("sum(...) >= 0 = %v, want true", got)
	}
}
