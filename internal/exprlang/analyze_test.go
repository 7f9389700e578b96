package exprlang

import "testing"

func TestIdentifiersFlattensNestedExpressions(t *testing.T) {
	ids, err := Identifiers("trigger.payload.id == read.acct.balance and sum(rows.v) > 0")
	if err != nil {
		t.Fatalf("Identifiers: %v", err)
	}
	want := [][]string{
		{"trigger", "payload", "id"},
		{"read", "acct", "balance"},
		{"rows", "v"},
	}
	if len(ids) != len(want) {
		t.Fatalf("got %v, want %v", ids, want)
	}
	for i := range want {
		if len(ids[i]) != len(want[i]) {
			t.Fatalf("ids[%d] = %v, want %v", i, ids[i], want[i])
		}
		for j := range want[i] {
			if ids[i][j] != want[i][j] {
				t.Fatalf("ids[%d] = %v, want %v", i, ids[i], want[i])
			}
		}
	}
}

func TestIdentifiersPropagatesParseError(t *testing.T) {
	if _, err := Identifiers("1 +"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestTemplateIdentifiersAcrossRegions(t *testing.T) {
	ids, err := TemplateIdentifiers("id={{ trigger.payload.id }} amt={{ trigger.payload.amount }}")
	if err != nil {
		t.Fatalf("TemplateIdentifiers: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("got %v, want 2 identifier paths", ids)
	}
}

func TestTemplateIdentifiersNoRegions(t *testing.T) {
	ids, err := TemplateIdentifiers("plain text")
	if err != nil {
		t.Fatalf("TemplateIdentifiers: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("got %v, want none", ids)
	}
}
