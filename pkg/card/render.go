// render.go — Fixed-layout card rendering.
//
// The layout is a constant 480×600 composition: cover-fit background
// under a light scrim, a corner-ruled frame, a circle-clipped portrait,
// the name headline, a two-column stat panel, and a footer with the
// unit line and date. A pixel-density multiplier scales every
// coordinate and font size; the layout itself never moves.
package card

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"github.com/b1690/awardgen/pkg/imageref"
)

// Layout constants on the logical 480×600 canvas.
const (
	frameInset     = 16.0
	frameTick      = 40.0
	portraitSize   = 208.0
	portraitTop    = 40.0
	nameSize       = 48.0
	panelWidth     = 320.0
	panelTop       = 324.0
	panelHeight    = 116.0
	panelRadius    = 16.0
	panelHeader    = 40.0
	labelSize      = 9.0
	productSize    = 18.0
	footerSize     = 10.0
	dateSize       = 14.0
	glyphSize      = 120.0
	footerY        = 532.0
	dateY          = 558.0
	placeholderRun = "賀"
)

// Renderer draws compositions. Safe for sequential reuse; faces are
// cached across renders.
type Renderer struct {
	fonts *FontManager
}

// NewRenderer creates a renderer using the font at fontPath, or the
// embedded default when the path is empty.
func NewRenderer(fontPath string) (*Renderer, error) {
	fm, err := NewFontManager(fontPath)
	if err != nil {
		return nil, err
	}
	return &Renderer{fonts: fm}, nil
}

// NewRendererFromFontBytes creates a renderer from raw TTF data.
func NewRendererFromFontBytes(data []byte) (*Renderer, error) {
	fm, err := NewFontManagerFromBytes(data)
	if err != nil {
		return nil, err
	}
	return &Renderer{fonts: fm}, nil
}

// Render rasterizes the composition at the given pixel density.
// A density of 2 produces a 960×1200 bitmap of the same layout.
//
// Every image reference must already be Embedded or Empty; a Remote
// reference here is an error, never a silent blank region.
func (r *Renderer) Render(comp *Composition, density float64) (image.Image, error) {
	if density <= 0 {
		density = 1
	}
	for _, ref := range comp.Refs() {
		if ref.IsRemote() {
			return nil, fmt.Errorf("composition holds unresolved remote image %q", ref.URL)
		}
	}

	s := scaled{density}
	dc := gg.NewContext(s.i(Width), s.i(Height))

	// Opaque base fill behind any transparency.
	dc.SetRGB(0, 0, 0)
	dc.Clear()

	if err := r.drawBackground(dc, s, comp.Background); err != nil {
		return nil, err
	}
	r.drawFrame(dc, s)
	if err := r.drawPortrait(dc, s, comp.Portrait); err != nil {
		return nil, err
	}
	if err := r.drawName(dc, s, comp.Name); err != nil {
		return nil, err
	}
	if err := r.drawStatPanel(dc, s, comp); err != nil {
		return nil, err
	}
	if err := r.drawFooter(dc, s, comp); err != nil {
		return nil, err
	}

	return dc.Image(), nil
}

// scaled multiplies logical coordinates by the pixel density.
type scaled struct{ d float64 }

func (s scaled) f(v float64) float64 { return v * s.d }
func (s scaled) i(v float64) int     { return int(v*s.d + 0.5) }

func (r *Renderer) face(dc *gg.Context, s scaled, size float64) error {
	f, err := r.fonts.Face(s.f(size))
	if err != nil {
		return err
	}
	dc.SetFontFace(f)
	return nil
}

func decodeRef(ref imageref.Ref) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(ref.Data))
	if err != nil {
		return nil, fmt.Errorf("decode embedded image: %w", err)
	}
	return img, nil
}

func (r *Renderer) drawBackground(dc *gg.Context, s scaled, bg imageref.Ref) error {
	if bg.IsEmpty() {
		// No background: plain dark fill, same as the preview placeholder.
		dc.SetRGB255(23, 23, 23)
		dc.DrawRectangle(0, 0, s.f(Width), s.f(Height))
		dc.Fill()
	} else {
		img, err := decodeRef(bg)
		if err != nil {
			return fmt.Errorf("background: %w", err)
		}
		fitted := imaging.Fill(img, s.i(Width), s.i(Height), imaging.Center, imaging.Lanczos)
		dc.DrawImage(fitted, 0, 0)
	}

	// 15% scrim keeps white text readable on bright backgrounds.
	dc.SetRGBA(0, 0, 0, 0.15)
	dc.DrawRectangle(0, 0, s.f(Width), s.f(Height))
	dc.Fill()
	return nil
}

func (r *Renderer) drawFrame(dc *gg.Context, s scaled) {
	x0, y0 := s.f(frameInset), s.f(frameInset)
	x1, y1 := s.f(Width-frameInset), s.f(Height-frameInset)

	dc.SetRGBA(1, 1, 1, 0.2)
	dc.SetLineWidth(s.f(1))
	dc.DrawRectangle(x0, y0, x1-x0, y1-y0)
	dc.Stroke()

	// Heavier corner ticks over the thin frame.
	t := s.f(frameTick)
	dc.SetRGBA(1, 1, 1, 0.5)
	dc.SetLineWidth(s.f(2))
	for _, c := range [][4]float64{
		{x0, y0 + t, x0, y0}, {x0, y0, x0 + t, y0}, // top-left
		{x1 - t, y0, x1, y0}, {x1, y0, x1, y0 + t}, // top-right
		{x0, y1 - t, x0, y1}, {x0, y1, x0 + t, y1}, // bottom-left
		{x1 - t, y1, x1, y1}, {x1, y1 - t, x1, y1}, // bottom-right
	} {
		dc.DrawLine(c[0], c[1], c[2], c[3])
	}
	dc.Stroke()
}

func (r *Renderer) drawPortrait(dc *gg.Context, s scaled, portrait imageref.Ref) error {
	cx := s.f(Width / 2)
	cy := s.f(portraitTop + portraitSize/2)
	radius := s.f(portraitSize / 2)

	dc.SetRGB255(38, 38, 38)
	dc.DrawCircle(cx, cy, radius)
	dc.Fill()

	if portrait.IsEmpty() {
		// Placeholder glyph when no portrait is set.
		if err := r.face(dc, s, glyphSize); err != nil {
			return err
		}
		dc.SetRGBA(1, 1, 1, 0.9)
		dc.DrawStringAnchored(placeholderRun, cx, cy, 0.5, 0.5)
		return nil
	}

	img, err := decodeRef(portrait)
	if err != nil {
		return fmt.Errorf("portrait: %w", err)
	}
	size := s.i(portraitSize)
	fitted := imaging.Fill(img, size, size, imaging.Center, imaging.Lanczos)

	dc.Push()
	dc.DrawCircle(cx, cy, radius)
	dc.Clip()
	dc.DrawImageAnchored(fitted, int(cx), int(cy), 0.5, 0.5)
	dc.Pop()
	return nil
}

func (r *Renderer) drawName(dc *gg.Context, s scaled, name string) error {
	if err := r.face(dc, s, nameSize); err != nil {
		return err
	}
	cx := s.f(Width / 2)
	cy := s.f(portraitTop + portraitSize + 44)

	// Offset shadow keeps the headline legible on light backgrounds.
	dc.SetRGBA(0, 0, 0, 0.9)
	dc.DrawStringAnchored(name, cx+s.f(2), cy+s.f(4), 0.5, 0.5)
	dc.SetRGB(1, 1, 1)
	dc.DrawStringAnchored(name, cx, cy, 0.5, 0.5)
	return nil
}

func (r *Renderer) drawStatPanel(dc *gg.Context, s scaled, comp *Composition) error {
	px := s.f((Width - panelWidth) / 2)
	py := s.f(panelTop)
	pw, ph := s.f(panelWidth), s.f(panelHeight)

	dc.DrawRoundedRectangle(px, py, pw, ph, s.f(panelRadius))
	dc.SetRGBA(0, 0, 0, 0.4)
	dc.FillPreserve()
	dc.SetRGB(1, 1, 1)
	dc.SetLineWidth(s.f(2))
	dc.Stroke()

	// Header band with the product line.
	headerBottom := py + s.f(panelHeader)
	dc.SetRGBA(1, 1, 1, 0.2)
	dc.SetLineWidth(s.f(1))
	dc.DrawLine(px, headerBottom, px+pw, headerBottom)
	dc.Stroke()

	if err := r.face(dc, s, productSize); err != nil {
		return err
	}
	dc.SetRGB(1, 1, 1)
	dc.DrawStringAnchored("成交 "+comp.Product, px+pw/2, py+s.f(panelHeader/2), 0.5, 0.5)

	// Column divider, inset from the band edges.
	dc.SetRGBA(1, 1, 1, 0.2)
	dc.DrawLine(px+pw/2, headerBottom+s.f(12), px+pw/2, py+ph-s.f(12))
	dc.Stroke()

	colY := headerBottom
	colH := ph - s.f(panelHeader)
	if err := r.drawAmount(dc, s, "FYP", comp.FYP, px+pw/4, colY, colH); err != nil {
		return err
	}
	return r.drawAmount(dc, s, "FYC", comp.FYC, px+3*pw/4, colY, colH)
}

// drawAmount draws one labeled amount column. The value's font tier
// shrinks as the string grows so long amounts never overflow the panel.
func (r *Renderer) drawAmount(dc *gg.Context, s scaled, label, value string, cx, top, height float64) error {
	if err := r.face(dc, s, labelSize); err != nil {
		return err
	}
	dc.SetRGBA(1, 1, 1, 0.6)
	dc.DrawStringAnchored(label, cx, top+height*0.28, 0.5, 0.5)

	if err := r.face(dc, s, SizeFor(value).Points()); err != nil {
		return err
	}
	dc.SetRGB(1, 1, 1)
	dc.DrawStringAnchored(value, cx, top+height*0.64, 0.5, 0.5)
	return nil
}

func (r *Renderer) drawFooter(dc *gg.Context, s scaled, comp *Composition) error {
	cx := s.f(Width / 2)

	if err := r.face(dc, s, footerSize); err != nil {
		return err
	}
	dc.SetRGB(1, 1, 1)
	dc.DrawStringAnchored(comp.Badge+"  |  "+comp.Unit, cx, s.f(footerY), 0.5, 0.5)

	if err := r.face(dc, s, dateSize); err != nil {
		return err
	}
	dc.SetRGBA(1, 1, 1, 0.9)
	dc.DrawStringAnchored(comp.DisplayDate(), cx, s.f(dateY), 0.5, 0.5)
	return nil
}
