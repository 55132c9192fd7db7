package rasterizer

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"

	"github.com/b1690/awardgen/pkg/card"
	"github.com/b1690/awardgen/pkg/imageref"
	"github.com/b1690/awardgen/pkg/resolver"
)

func newTestRasterizer(t *testing.T) *Rasterizer {
	t.Helper()
	ren, err := card.NewRenderer("")
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	r := New(resolver.New(), ren)
	r.SettleDelay = 0 // keep tests fast; the delay path is tested explicitly
	return r
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.New(w, h, color.NRGBA{R: 90, G: 60, B: 30, A: 255}), imaging.PNG); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func baseComposition() *card.Composition {
	comp := &card.Composition{
		Name:    "王小明",
		Product: "PFK",
		FYP:     "100,000",
		FYC:     "35,000",
		Date:    "2026-09-01",
	}
	comp.ApplyDefaults()
	return comp
}

func TestExportEndToEndWithRemotePortrait(t *testing.T) {
	payload := pngBytes(t, 240, 240)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(payload)
	}))
	defer srv.Close()

	r := newTestRasterizer(t)
	comp := baseComposition()
	comp.Portrait = imageref.NewRemote(srv.URL) // no explicit background

	artifact, err := r.Export(context.Background(), comp)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	// Caller's composition is a snapshot source, never mutated.
	if !comp.Portrait.IsRemote() {
		t.Fatal("caller composition was mutated")
	}

	if artifact.Width != card.Width*2 || artifact.Height != card.Height*2 {
		t.Fatalf("artifact = %dx%d, want %dx%d", artifact.Width, artifact.Height, card.Width*2, card.Height*2)
	}
	if artifact.Filename != "B1690賀報_王小明_91.png" {
		t.Fatalf("filename = %q", artifact.Filename)
	}
	if _, err := png.Decode(bytes.NewReader(artifact.Data)); err != nil {
		t.Fatalf("artifact not decodable: %v", err)
	}
}

func TestExportFailsOnUnreachableRemote(t *testing.T) {
	r := newTestRasterizer(t)
	comp := baseComposition()
	comp.Portrait = imageref.NewRemote("http://127.0.0.1:1/gone")

	if _, err := r.Export(context.Background(), comp); !errors.Is(err, resolver.ErrNetwork) {
		t.Fatalf("err = %v, want ErrNetwork", err)
	}

	// The busy flag must clear on the failure path.
	if r.Phase() != Idle {
		t.Fatalf("phase = %v after failure, want idle", r.Phase())
	}
	comp.Portrait = imageref.Ref{}
	if _, err := r.Export(context.Background(), comp); err != nil {
		t.Fatalf("follow-up export blocked: %v", err)
	}
}

func TestExportRejectsReentry(t *testing.T) {
	r := newTestRasterizer(t)
	r.SettleDelay = 150 * time.Millisecond
	r.VerifyDecode = false

	comp := baseComposition()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = r.Export(context.Background(), comp)
		}(i)
	}
	wg.Wait()

	var ok, busy int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrExportBusy):
			busy++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || busy != 1 {
		t.Fatalf("got %d successes and %d busy rejections, want 1 and 1", ok, busy)
	}
}

func TestSettleDecodeCatchesCorruptImage(t *testing.T) {
	r := newTestRasterizer(t)
	comp := baseComposition()
	comp.Background = imageref.Embed([]byte("corrupt bytes"), "image/png")

	if _, err := r.Export(context.Background(), comp); !errors.Is(err, resolver.ErrDecode) {
		t.Fatalf("err = %v, want ErrDecode from settle verification", err)
	}
}

func TestSettleDelayHonorsContext(t *testing.T) {
	r := newTestRasterizer(t)
	r.SettleDelay = 10 * time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := r.Export(ctx, baseComposition())
	if err == nil {
		t.Fatal("expected settle interruption")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("cancelation took %v", elapsed)
	}
}

func TestExportPlainComposition(t *testing.T) {
	r := newTestRasterizer(t)
	r.PixelDensity = 1

	artifact, err := r.Export(context.Background(), baseComposition())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if artifact.Width != card.Width || artifact.Height != card.Height {
		t.Fatalf("artifact = %dx%d", artifact.Width, artifact.Height)
	}
}
