// fonts.go — Font management with custom TTF support and embedded
// fallback. Faces are cached per size: the card layout reuses a handful
// of sizes and opentype face creation is not free.
package card

import (
	"fmt"
	"log"
	"os"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// FontManager loads one font and hands out faces by size.
type FontManager struct {
	parsed *opentype.Font

	mu    sync.Mutex
	faces map[float64]font.Face
}

// NewFontManager creates a font manager from a TTF path. An empty or
// unreadable path falls back to the embedded Go font.
func NewFontManager(customPath string) (*FontManager, error) {
	var data []byte
	if customPath != "" {
		var err error
		data, err = os.ReadFile(customPath)
		if err != nil {
			log.Printf("Fonts: could not load %q, using embedded default: %v", customPath, err)
			data = nil
		}
	}
	if data == nil {
		data = goregular.TTF
	}
	return NewFontManagerFromBytes(data)
}

// NewFontManagerFromBytes creates a font manager from raw TTF data
// (used by the WASM client, which has no filesystem).
func NewFontManagerFromBytes(data []byte) (*FontManager, error) {
	parsed, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return &FontManager{
		parsed: parsed,
		faces:  make(map[float64]font.Face),
	}, nil
}

// Face returns a cached font.Face at the given point size.
func (fm *FontManager) Face(size float64) (font.Face, error) {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	if f, ok := fm.faces[size]; ok {
		return f, nil
	}

	f, err := opentype.NewFace(fm.parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create %.1fpt face: %w", size, err)
	}
	fm.faces[size] = f
	return f, nil
}
