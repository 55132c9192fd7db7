package card

import (
	"strings"
	"testing"
)

func TestSizeForExamples(t *testing.T) {
	tests := []struct {
		s    string
		want SizeTier
	}{
		{"", Large},
		{"100,000", Large},     // 7 chars
		{"1,000,000", Medium},  // 9 chars
		{"12345678", Medium},   // 8 chars
		{"1234567890", Medium}, // 10 chars
		{"100,000,000", Small}, // 11 chars
	}
	for _, tt := range tests {
		if got := SizeFor(tt.s); got != tt.want {
			t.Errorf("SizeFor(%q) = %v, want %v", tt.s, got, tt.want)
		}
	}
}

func TestSizeForMonotonic(t *testing.T) {
	// Tier must never grow as the string grows.
	prev := Large
	for n := 0; n <= 20; n++ {
		tier := SizeFor(strings.Repeat("9", n))
		if tier > prev {
			t.Fatalf("tier grew at length %d: %v after %v", n, tier, prev)
		}
		prev = tier
	}
}

func TestSizeTierPointsOrdering(t *testing.T) {
	if !(Large.Points() > Medium.Points() && Medium.Points() > Small.Points()) {
		t.Fatalf("tier point sizes out of order: %v %v %v",
			Large.Points(), Medium.Points(), Small.Points())
	}
}

func TestApplyDefaults(t *testing.T) {
	var c Composition
	c.ApplyDefaults()
	if c.Date == "" {
		t.Fatal("default date not set")
	}
	if c.Unit == "" || c.Badge == "" {
		t.Fatalf("footer defaults not set: unit=%q badge=%q", c.Unit, c.Badge)
	}

	c2 := Composition{Date: "2026-01-15"}
	c2.ApplyDefaults()
	if c2.Date != "2026-01-15" {
		t.Fatalf("explicit date overwritten: %q", c2.Date)
	}
}

func TestDisplayDate(t *testing.T) {
	c := Composition{Date: "2026-09-01"}
	if got := c.DisplayDate(); got != "2026.09.01" {
		t.Fatalf("DisplayDate = %q", got)
	}
}

func TestValidate(t *testing.T) {
	c := Composition{Name: " ", Date: "next tuesday"}
	warnings := c.Validate()
	if len(warnings) != 2 {
		t.Fatalf("warnings = %v, want 2 entries", warnings)
	}

	ok := Composition{Name: "王小明", Date: "2026-09-01"}
	if w := ok.Validate(); len(w) != 0 {
		t.Fatalf("unexpected warnings: %v", w)
	}
}

func TestParseData(t *testing.T) {
	comp, warnings, err := ParseData([]byte(SampleJSON()))
	if err != nil {
		t.Fatalf("ParseData(SampleJSON): %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("sample data produced warnings: %v", warnings)
	}
	if comp.Name == "" || comp.Product == "" {
		t.Fatalf("sample fields missing: %+v", comp)
	}
	if !comp.Portrait.IsEmpty() || !comp.Background.IsEmpty() {
		t.Fatal("sample should carry no images")
	}
}

func TestParseDataRemoteSources(t *testing.T) {
	comp, _, err := ParseData([]byte(`{
		"name": "王小明",
		"image": "https://example.com/p.jpg",
		"bgImage": "data:image/png;base64,aGVsbG8="
	}`))
	if err != nil {
		t.Fatalf("ParseData: %v", err)
	}
	if !comp.Portrait.IsRemote() {
		t.Fatalf("portrait kind = %v, want remote", comp.Portrait.Kind)
	}
	if !comp.Background.IsEmbedded() {
		t.Fatalf("background kind = %v, want embedded", comp.Background.Kind)
	}
}

func TestParseDataBadJSON(t *testing.T) {
	if _, _, err := ParseData([]byte("{nope")); err == nil {
		t.Fatal("expected parse error")
	}
}
