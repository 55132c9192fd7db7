// Package rasterizer turns a composition into an export artifact.
//
// Each export runs the sequence Idle → Preparing → Settling → Capturing
// strictly in order: stray remote images are converted first, then the
// settle step confirms every embedded image actually decodes (with an
// optional fixed delay kept as a compat shim), and only then is the
// bitmap captured. A failure in any phase surfaces a typed error and
// never corrupts the caller's composition.
package rasterizer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/disintegration/imaging"

	"github.com/b1690/awardgen/pkg/card"
	"github.com/b1690/awardgen/pkg/export"
	"github.com/b1690/awardgen/pkg/imageref"
	"github.com/b1690/awardgen/pkg/resolver"
)

var (
	// ErrExportBusy: an export is already in flight. Concurrent capture
	// of the same composition is rejected, never queued.
	ErrExportBusy = errors.New("export already in progress")

	// ErrCapture: rasterization itself failed. The user-facing advice
	// is to screenshot manually.
	ErrCapture = errors.New("capture failure")
)

// Phase is the observable state of the export pipeline.
type Phase int32

const (
	Idle Phase = iota
	Preparing
	Settling
	Capturing
)

func (p Phase) String() string {
	switch p {
	case Preparing:
		return "preparing"
	case Settling:
		return "settling"
	case Capturing:
		return "capturing"
	default:
		return "idle"
	}
}

// DefaultSettleDelay is the compat fallback used when decode
// verification is disabled. A timing heuristic, not a guarantee.
const DefaultSettleDelay = 300 * time.Millisecond

// DefaultPixelDensity doubles the logical 480×600 layout on export.
const DefaultPixelDensity = 2.0

// Rasterizer drives exports. One export at a time; the busy flag is
// the only mutual exclusion and is cleared on every exit path.
type Rasterizer struct {
	Resolver *resolver.Resolver
	Renderer *card.Renderer

	// PixelDensity scales the output bitmap. Any live preview scaling
	// the caller applies never leaks in here: capture always uses the
	// identity transform at this density.
	PixelDensity float64

	// SettleDelay is the fixed wait before capture. Zero skips it.
	SettleDelay time.Duration

	// VerifyDecode enables the explicit "all images decoded" check,
	// the preferred settle signal.
	VerifyDecode bool

	Label string // filename label; empty uses export.DefaultLabel

	busy  atomic.Bool
	phase atomic.Int32
}

// New returns a Rasterizer with the default density and the decode
// verification settle path enabled.
func New(res *resolver.Resolver, ren *card.Renderer) *Rasterizer {
	return &Rasterizer{
		Resolver:     res,
		Renderer:     ren,
		PixelDensity: DefaultPixelDensity,
		SettleDelay:  DefaultSettleDelay,
		VerifyDecode: true,
	}
}

// Phase reports the current pipeline phase.
func (r *Rasterizer) Phase() Phase {
	return Phase(r.phase.Load())
}

// Export runs the whole pipeline on a snapshot of comp and returns the
// finished artifact. The caller's composition is never mutated.
//
// Re-entrant invocations while an export is in flight fail fast with
// ErrExportBusy.
func (r *Rasterizer) Export(ctx context.Context, comp *card.Composition) (*export.Artifact, error) {
	if !r.busy.CompareAndSwap(false, true) {
		return nil, ErrExportBusy
	}
	defer func() {
		r.phase.Store(int32(Idle))
		r.busy.Store(false)
	}()

	snapshot := *comp

	r.phase.Store(int32(Preparing))
	if err := r.prepareForCapture(ctx, &snapshot); err != nil {
		return nil, err
	}

	r.phase.Store(int32(Settling))
	if err := r.waitForSettle(ctx, &snapshot); err != nil {
		return nil, err
	}

	r.phase.Store(int32(Capturing))
	return r.capture(&snapshot)
}

// prepareForCapture walks every image-bearing field and converts any
// reference that is still remote. This is a last-chance guard — the
// primary resolution path is the caller's own Resolve — so a failure
// here fails the export instead of degrading silently.
func (r *Rasterizer) prepareForCapture(ctx context.Context, comp *card.Composition) error {
	for _, ref := range comp.Refs() {
		if !ref.IsRemote() {
			continue
		}
		log.Printf("Rasterizer: converting stray remote image before capture: %s", ref.URL)
		resolved, err := r.Resolver.Resolve(ctx, *ref)
		if err != nil {
			return fmt.Errorf("prepare: %w", err)
		}
		*ref = resolved
	}
	return nil
}

// waitForSettle stands in for the platform's missing "images decoded
// and painted" signal. With VerifyDecode every embedded payload is
// decoded up front; the fixed delay remains as the documented fallback.
func (r *Rasterizer) waitForSettle(ctx context.Context, comp *card.Composition) error {
	if r.VerifyDecode {
		for _, ref := range comp.Refs() {
			if !ref.IsEmbedded() {
				continue
			}
			if _, err := imaging.Decode(bytes.NewReader(ref.Data)); err != nil {
				return fmt.Errorf("%w: settle decode: %v", resolver.ErrDecode, err)
			}
		}
	}

	if r.SettleDelay <= 0 {
		return nil
	}
	select {
	case <-time.After(r.SettleDelay):
		return nil
	case <-ctx.Done():
		return fmt.Errorf("settle interrupted: %w", ctx.Err())
	}
}

// capture renders the snapshot at full export density and wraps it as
// an artifact. Rendering failures become ErrCapture; the composition
// state stays intact for the caller to retry or screenshot.
func (r *Rasterizer) capture(comp *card.Composition) (*export.Artifact, error) {
	for _, ref := range comp.Refs() {
		if ref.IsRemote() {
			return nil, fmt.Errorf("%w: remote image survived preparation: %s", ErrCapture, ref.URL)
		}
	}

	density := r.PixelDensity
	if density <= 0 {
		density = DefaultPixelDensity
	}

	img, err := r.Renderer.Render(comp, density)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCapture, err)
	}

	artifact, err := export.NewArtifact(img, export.Filename(r.Label, comp.Name, comp.Date))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCapture, err)
	}
	return artifact, nil
}
