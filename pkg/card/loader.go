// loader.go — Load card data JSON and produce sample files for init.
package card

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/b1690/awardgen/pkg/imageref"
)

// fileSpec is the on-disk JSON shape. Image fields hold sources the
// same way the form does: a data URI, an http(s) URL, or "".
type fileSpec struct {
	Name    string `json:"name"`
	Product string `json:"product"`
	FYP     string `json:"fyp"`
	FYC     string `json:"fyc"`
	Date    string `json:"date"`
	Unit    string `json:"unit,omitempty"`
	Badge   string `json:"badge,omitempty"`

	Portrait   string `json:"image"`
	Background string `json:"bgImage"`
}

// LoadFile reads a card data JSON file into a Composition with
// defaults applied. Returns warnings for soft issues; only unreadable
// or unparseable input is fatal.
func LoadFile(path string) (*Composition, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read card data: %w", err)
	}
	return ParseData(data)
}

// ParseData parses card data JSON from memory.
func ParseData(data []byte) (*Composition, []string, error) {
	var spec fileSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, nil, fmt.Errorf("parse card data: %w", err)
	}

	comp := &Composition{
		Name:    spec.Name,
		Product: spec.Product,
		FYP:     spec.FYP,
		FYC:     spec.FYC,
		Date:    spec.Date,
		Unit:    spec.Unit,
		Badge:   spec.Badge,
	}
	comp.ApplyDefaults()

	var warnings []string
	if portrait, err := imageref.Parse(spec.Portrait); err != nil {
		warnings = append(warnings, fmt.Sprintf("portrait source ignored: %v", err))
	} else {
		comp.Portrait = portrait
	}
	if bg, err := imageref.Parse(spec.Background); err != nil {
		warnings = append(warnings, fmt.Sprintf("background source ignored: %v", err))
	} else {
		comp.Background = bg
	}

	warnings = append(warnings, comp.Validate()...)
	return comp, warnings, nil
}

// SampleJSON returns a starter card data file for `awardgen init`.
func SampleJSON() string {
	return `{
  "name": "黃啟倫",
  "product": "PFK",
  "fyp": "100,000",
  "fyc": "35,000",
  "date": "2026-09-01",
  "image": "",
  "bgImage": ""
}`
}
