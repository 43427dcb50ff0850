package appconfig

import "testing"

func TestParseDirective_RejectsUnknown(t *testing.T) {
	if _, err := ParseDirective("optional"); err == nil {
		t.Fatal("unknown directive must be rejected")
	}
	if _, err := ParseDirective("required"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheck_Boolean(t *testing.T) {
	ds := []Directive{DirectiveBoolean}
	for _, ok := range []string{"true", "yes", "Y", "1", "on", "false", "no", "N", "0", "off"} {
		if msgs := Check(ds, ok, true); len(msgs) != 0 {
			t.Fatalf("%q should be a valid boolean: %v", ok, msgs)
		}
	}
	if msgs := Check(ds, "maybe", true); len(msgs) == 0 {
		t.Fatal("expected boolean failure")
	}
	// ausente no falla: boolean solo valida el valor si está
	if msgs := Check(ds, "", false); len(msgs) != 0 {
		t.Fatalf("absent value should pass: %v", msgs)
	}
}

func TestCheck_Forbidden(t *testing.T) {
	ds := []Directive{DirectiveForbidden}
	if msgs := Check(ds, "algo", true); len(msgs) == 0 {
		t.Fatal("non-empty forbidden field must fail")
	}
	if msgs := Check(ds, "", false); len(msgs) != 0 {
		t.Fatalf("absent forbidden field should pass: %v", msgs)
	}
}

func TestCheck_Mandatory(t *testing.T) {
	ds := []Directive{DirectiveMandatory}
	if msgs := Check(ds, "yes", true); len(msgs) != 0 {
		t.Fatalf("mandatory yes should pass: %v", msgs)
	}
	if msgs := Check(ds, "no", true); len(msgs) == 0 {
		t.Fatal("mandatory no must fail")
	}
	if msgs := Check(ds, "", false); len(msgs) == 0 {
		t.Fatal("absent mandatory must fail")
	}
}

func TestCheck_SingleLine(t *testing.T) {
	ds := []Directive{DirectiveSingleLine}
	if msgs := Check(ds, "una línea", true); len(msgs) != 0 {
		t.Fatalf("single line should pass: %v", msgs)
	}
	if msgs := Check(ds, "dos\nlíneas", true); len(msgs) == 0 {
		t.Fatal("embedded newline must fail")
	}
}

func TestCheck_ReportsAllFailures(t *testing.T) {
	// email + single-line sobre un valor que viola ambas
	ds := []Directive{DirectiveEmail, DirectiveSingleLine}
	msgs := Check(ds, "not-an-email\nwith-newline", true)
	if len(msgs) != 2 {
		t.Fatalf("expected both failures, got %v", msgs)
	}
}

func TestValidEmail(t *testing.T) {
	valids := []string{"a@x.com", "first.last@sub.example.org"}
	for _, v := range valids {
		if !ValidEmail(v) {
			t.Fatalf("expected valid: %q", v)
		}
	}
	invalids := []string{"", "sin-arroba", "Name <a@x.com>", "a@x.com extra"}
	for _, v := range invalids {
		if ValidEmail(v) {
			t.Fatalf("expected invalid: %q", v)
		}
	}
}
