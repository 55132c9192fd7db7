package resolver

import (
	"errors"
	"strings"
	"testing"
)

func TestExtractFileID(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://drive.google.com/file/d/ABC123/view", "ABC123"},
		{"https://drive.google.com/open?id=XYZ789&export=download", "XYZ789"},
		{"https://drive.google.com/open?id=XYZ789", "XYZ789"},
		{"https://drive.google.com/about", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ExtractFileID(tt.url); got != tt.want {
			t.Errorf("ExtractFileID(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestDeriveFromLookup(t *testing.T) {
	rows := [][]string{
		{"姓名", "照片"},
		{"王小明", "https://drive.google.com/file/d/FILE01/view"},
		{"李大仁", "no link here"},
		{"陳美玲", "https://drive.google.com/weird/link"},
	}

	ref, err := DeriveFromLookup("王小明", rows)
	if err != nil {
		t.Fatalf("DeriveFromLookup: %v", err)
	}
	if !ref.IsRemote() {
		t.Fatalf("expected remote ref, got %v", ref.Kind)
	}
	if !strings.Contains(ref.URL, "FILE01") {
		t.Fatalf("URL %q does not embed the file id", ref.URL)
	}
}

func TestDeriveFromLookupFailures(t *testing.T) {
	rows := [][]string{
		{"李大仁", "plain text"},
		{"陳美玲", "https://drive.google.com/no/shape"},
	}

	tests := []struct {
		name   string
		person string
		detail string
	}{
		{"no matching row", "不存在", "no roster row"},
		{"row without link", "李大仁", "no photo link"},
		{"link without id", "陳美玲", "no file id"},
		{"blank name", "  ", "empty name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DeriveFromLookup(tt.person, rows)
			if !errors.Is(err, ErrNotFound) {
				t.Fatalf("err = %v, want ErrNotFound", err)
			}
			if !strings.Contains(err.Error(), tt.detail) {
				t.Fatalf("err %q should mention %q", err, tt.detail)
			}
		})
	}
}

func TestDeriveFromLookupMatchesExactCellsOnly(t *testing.T) {
	rows := [][]string{
		{"王小明外傳", "https://drive.google.com/file/d/WRONG/view"},
		{"王小明", "https://drive.google.com/file/d/RIGHT/view"},
	}
	ref, err := DeriveFromLookup("王小明", rows)
	if err != nil {
		t.Fatalf("DeriveFromLookup: %v", err)
	}
	if !strings.Contains(ref.URL, "RIGHT") {
		t.Fatalf("matched the wrong row: %q", ref.URL)
	}
}
