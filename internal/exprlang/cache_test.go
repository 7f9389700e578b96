package exprlang

import "testing"

func TestParseCachedReturnsEquivalentTree(t *testing.T) {
	n1, err := parseCached("1 + 2")
	if err != nil {
		t.Fatalf("parseCached: %v", err)
	}
	n2, err := parseCached("1 + 2")
	if err != nil {
		t.Fatalf("parseCached: %v", err)
	}
	if n1 != n2 {
		t.Fatal("expected identical cached tree pointer on repeated parse of same source")
	}
}

func TestParseCachedPropagatesParseErrors(t *testing.T) {
	if _, err := parseCached("1 +"); err == nil {
		t.Fatal("expected parse error to propagate")
	}
}
