package rendering

import "testing"

func TestRenderPlainString(t *testing.T) {
	out, err := Render("Hello", nil)
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	if out != "Hello" {
		t.Fatalf("Render = %q, want %q", out, "Hello")
	}
}

func TestRenderVariable(t *testing.T) {
	out, err := Render("{{ a }}", map[string]any{"a": "benden"})
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	if out != "benden" {
		t.Fatalf("Render = %q, want %q", out, "benden")
	}
}

func TestRenderIndirection(t *testing.T) {
	bindings := map[string]any{"a": "{{ b }}", "b": "Hello"}
	out, err := Render("{{ a }}", bindings)
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	if out != "Hello" {
		t.Fatalf("Render = %q, want Hello", out)
	}
}

func TestRenderUndefinedVariable(t *testing.T) {
	_, err := Render("{{ missing }}", map[string]any{})
	if err == nil {
		t.Fatal("expected UndefinedVariableError")
	}
	if _, ok := err.(*UndefinedVariableError); !ok {
		t.Fatalf("got %T, want *UndefinedVariableError", err)
	}
}

func TestRenderRawBlockSurvives(t *testing.T) {
	tmpl := "{% raw %}{{ a }}{% endraw %}"
	out, err := Render(tmpl, map[string]any{"a": "should not appear"})
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	if out != "{{ a }}" {
		t.Fatalf("Render = %q, want literal %q", out, "{{ a }}")
	}
}

func TestRenderIsIdempotentOnPlainText(t *testing.T) {
	s := "no directives here"
	out1, _ := Render(s, nil)
	out2, _ := Render(out1, nil)
	if out1 != s || out2 != s {
		t.Fatalf("Render not idempotent: %q -> %q -> %q", s, out1, out2)
	}
}

func TestRenderDottedPath(t *testing.T) {
	bindings := map[string]any{"item": map[string]any{"name": "widget"}}
	out, err := Render("{{ item.name }}", bindings)
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	if out != "widget" {
		t.Fatalf("Render = %q, want widget", out)
	}
}

func TestRenderMultipleItems(t *testing.T) {
	for _, item := range []string{"a", "b", "c"} {
		out, err := Render("{{ item }}", map[string]any{"item": item})
		if err != nil {
			t.Fatalf("Render error: %v", err)
		}
		if out != item {
			t.Fatalf("Render = %q, want %q", out, item)
		}
	}
}
