// Package export holds the rasterized artifact and its file writers.
//
// Output follows a unified pipeline: render an image.Image first, then
// write it as PNG or JPEG depending on the requested extension.
package export

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// DefaultLabel prefixes exported filenames.
const DefaultLabel = "B1690賀報"

// Artifact is one finished export. Immutable once produced; a source
// field change invalidates it and forces regeneration.
type Artifact struct {
	ID        string
	Data      []byte // encoded PNG
	Width     int
	Height    int
	Filename  string
	CreatedAt time.Time
}

// NewArtifact encodes img as PNG and wraps it with metadata.
func NewArtifact(img image.Image, filename string) (*Artifact, error) {
	var buf bytes.Buffer
	if err := EncodePNG(&buf, img); err != nil {
		return nil, err
	}
	b := img.Bounds()
	return &Artifact{
		ID:        uuid.NewString(),
		Data:      buf.Bytes(),
		Width:     b.Dx(),
		Height:    b.Dy(),
		Filename:  filename,
		CreatedAt: time.Now(),
	}, nil
}

// Save writes the artifact to path, placing it under the artifact's own
// filename when path is a directory.
func (a *Artifact) Save(path string) (string, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, a.Filename)
	}
	if err := os.WriteFile(path, a.Data, 0644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return path, nil
}

// Filename builds the export filename: <label>_<name>[_<month><day>].png.
// The date suffix is included when date parses as YYYY-MM-DD; month and
// day are unpadded. An empty label falls back to DefaultLabel.
func Filename(label, name, date string) string {
	if label == "" {
		label = DefaultLabel
	}
	base := label + "_" + name
	if t, err := time.Parse("2006-01-02", date); err == nil {
		base += fmt.Sprintf("_%d%d", int(t.Month()), t.Day())
	}
	return base + ".png"
}

// EncodePNG writes img to w as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode PNG: %w", err)
	}
	return nil
}

// SaveImage writes img to path, dispatching the format on the file
// extension: ".png" or ".jpg"/".jpeg".
func SaveImage(path string, img image.Image) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".png":
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		defer f.Close()
		return EncodePNG(f, img)
	case ".jpg", ".jpeg":
		if err := imaging.Save(img, path, imaging.JPEGQuality(90)); err != nil {
			return fmt.Errorf("save %s: %w", path, err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported format %q: use .png or .jpg", ext)
	}
}
