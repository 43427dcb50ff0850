package forms

import "testing"

func TestFromValues_DropsEmptyParams(t *testing.T) {
	sub := FromValues(map[string][]string{
		"appid":   {"contact"},
		"name":    {""},
		"content": {"hola"},
	})
	if sub.AppID != "contact" {
		t.Fatalf("appid = %q", sub.AppID)
	}
	if sub.Has("name") {
		t.Fatal("empty param should be dropped")
	}
	if sub.Fields["content"] != "hola" {
		t.Fatalf("content = %q", sub.Fields["content"])
	}
}

func TestFromValues_LangValidation(t *testing.T) {
	valid := FromValues(map[string][]string{"lang": {"de"}})
	if valid.Lang != "de" {
		t.Fatalf("lang = %q", valid.Lang)
	}

	// fuera del patrón: se descarta en lugar de fallar
	for _, bad := range []string{"DEU", "d", "deutsch", "d3"} {
		sub := FromValues(map[string][]string{"lang": {bad}})
		if sub.Lang != "" || sub.Has("lang") {
			t.Fatalf("lang %q should be dropped", bad)
		}
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	in := Submission{
		AppID:   "contact",
		Confirm: "a@x.com",
		Lang:    "en",
		Fields:  map[string]string{"appid": "contact", "confirm": "a@x.com"},
	}
	data, err := in.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.AppID != in.AppID || out.Confirm != in.Confirm || out.Fields["confirm"] != "a@x.com" {
		t.Fatalf("round trip mismatch: %+v", out)
	}
}
