// Package card models the award-card composition and renders it to a
// fixed 480×600 canvas.
package card

import (
	"fmt"
	"strings"
	"time"

	"github.com/b1690/awardgen/pkg/imageref"
)

// Logical canvas dimensions. Exports scale these by a pixel-density
// multiplier but the layout itself never changes.
const (
	Width  = 480
	Height = 600
)

// DefaultBackgroundURL is the built-in background used when no custom
// background has been uploaded or cached.
const DefaultBackgroundURL = "https://lh3.googleusercontent.com/u/0/d/1AffsJ-awf6jfdme6nlFp4Y991gIA_rRm=w1600"

// Composition is the resolved snapshot handed to the rasterizer:
// background and portrait references plus the card's text fields.
// It is derived fresh from form state for every render; only the
// background survives via the cache slot.
type Composition struct {
	Name    string `json:"name"`
	Product string `json:"product"`
	FYP     string `json:"fyp"`
	FYC     string `json:"fyc"`
	Date    string `json:"date"` // "2006-01-02"

	Unit  string `json:"unit,omitempty"`  // footer unit line
	Badge string `json:"badge,omitempty"` // footer badge code

	Background imageref.Ref `json:"-"`
	Portrait   imageref.Ref `json:"-"`
}

// ApplyDefaults fills the fields a blank form starts with.
func (c *Composition) ApplyDefaults() {
	if c.Date == "" {
		c.Date = time.Now().Format("2006-01-02")
	}
	if c.Unit == "" {
		c.Unit = "中恩通訊處"
	}
	if c.Badge == "" {
		c.Badge = "B1690"
	}
}

// Refs returns pointers to every image-bearing field, in paint order.
// The rasterizer walks these to resolve strays before capture.
func (c *Composition) Refs() []*imageref.Ref {
	return []*imageref.Ref{&c.Background, &c.Portrait}
}

// Validate returns warnings for fields that will render oddly.
// Warnings never block rendering.
func (c *Composition) Validate() []string {
	var warnings []string
	if strings.TrimSpace(c.Name) == "" {
		warnings = append(warnings, "name is empty — the card will show a blank headline")
	}
	if c.Date != "" {
		if _, err := time.Parse("2006-01-02", c.Date); err != nil {
			warnings = append(warnings, fmt.Sprintf("date %q is not YYYY-MM-DD — rendered verbatim", c.Date))
		}
	}
	return warnings
}

// DisplayDate renders the date with dot separators, the form the card
// footer uses.
func (c *Composition) DisplayDate() string {
	return strings.ReplaceAll(c.Date, "-", ".")
}

// SizeTier is the font tier for the two numeric amount fields.
type SizeTier int

const (
	Small SizeTier = iota
	Medium
	Large
)

func (t SizeTier) String() string {
	switch t {
	case Large:
		return "large"
	case Medium:
		return "medium"
	default:
		return "small"
	}
}

// Points returns the tier's font size on the logical canvas.
func (t SizeTier) Points() float64 {
	switch t {
	case Large:
		return 36
	case Medium:
		return 30
	default:
		return 24
	}
}

// SizeFor selects the amount font tier from string length. Monotonic
// non-increasing: longer strings never get a larger tier. Total: the
// empty string maps to Large.
func SizeFor(s string) SizeTier {
	switch n := len([]rune(s)); {
	case n > 10:
		return Small
	case n > 7:
		return Medium
	default:
		return Large
	}
}
