package render

import "testing"

func TestRender_Expands(t *testing.T) {
	out, err := Render("hello {{.name}}", map[string]string{"name": "world"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "hello world" {
		t.Fatalf("got %q", out)
	}
}

func TestRender_NoPlaceholdersFastPath(t *testing.T) {
	out, err := Render("plain text", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "plain text" {
		t.Fatalf("got %q", out)
	}
}

func TestRender_MissingKeyFails(t *testing.T) {
	if _, err := Render("{{.missing}}", map[string]string{"name": "x"}); err == nil {
		t.Fatal("expected error for missing key")
	}
}

func TestRenderOrLiteral_FallsBack(t *testing.T) {
	cases := map[string]string{
		"{{.missing}}":   "{{.missing}}",   // clave ausente
		"{{.broken":      "{{.broken",      // sintaxis rota
		"hola {{.name}}": "hola ada",       // render normal
		"sin templates":  "sin templates",  // literal
	}
	scope := map[string]string{"name": "ada"}
	for in, want := range cases {
		if got := RenderOrLiteral(in, scope); got != want {
			t.Fatalf("RenderOrLiteral(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRenderAll_ValuesOnly(t *testing.T) {
	out := RenderAll(
		map[string]string{"X-Campaign": "{{.appid}}", "X-Fixed": "v"},
		map[string]string{"appid": "contact"},
	)
	if out["X-Campaign"] != "contact" || out["X-Fixed"] != "v" {
		t.Fatalf("got %v", out)
	}
}
