package exprlang

import "testing"

func TestRenderTemplateSingleExprPreservesType(t *testing.T) {
	ctx := Context{"trigger": map[string]any{"payload": map[string]any{"amount": int64(42)}}}
	got := RenderTemplate("{{ trigger.payload.amount }}", ctx)
	if got != int64(42) {
		t.Fatalf("got %v (%T), want int64(42)", got, got)
	}
}

func TestRenderTemplateMixedContentStringifies(t *testing.T) {
	ctx := Context{"trigger": map[string]any{"payload": map[string]any{"id": "abc"}}}
	got := RenderTemplate("order-{{ trigger.payload.id }}-end", ctx)
	if got != "order-abc-end" {
		t.Fatalf("got %v, want order-abc-end", got)
	}
}

func TestRenderTemplateNoExpr(t *testing.T) {
	got := RenderTemplate("plain text", Context{})
	if got != "plain text" {
		t.Fatalf("got %v, want plain text", got)
	}
}

func TestRenderTemplateUnterminatedIsUnresolved(t *testing.T) {
	got := RenderTemplate("{{ trigger.payload.id", Context{})
	if !IsUnresolved(got) {
		t.Fatalf("got %v, want Unresolved", got)
	}
}

func TestRenderTemplateUnresolvedSubRegionStringifiesEmpty(t *testing.T) {
	got := RenderTemplate("value=[{{ missing.field }}]", Context{})
	if got != "value=[]" {
		t.Fatalf("got %v, want value=[]", got)
	}
}
