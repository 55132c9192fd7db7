// Package resolver converts image references into export-safe embedded
// form. Every image that reaches the rasterizer must pass through here
// first: rasterizing an unconverted remote image produces a blank or
// corrupted export.
package resolver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/disintegration/imaging"

	"github.com/b1690/awardgen/pkg/imageref"
)

// Failure classes. Callers distinguish them with errors.Is so the UI
// can show an accurate message (retry, upload manually, and so on).
var (
	// ErrNetwork: the fetch was rejected or returned a non-OK status.
	ErrNetwork = errors.New("network failure")
	// ErrDecode: the payload was fetched but is not a decodable image.
	ErrDecode = errors.New("image decode failure")
	// ErrNotFound: the lookup ran but no usable record or link exists.
	ErrNotFound = errors.New("not found")
)

const (
	// DefaultMaxWidth bounds locally uploaded images. Wider uploads are
	// downsampled before embedding; narrower ones pass through untouched.
	DefaultMaxWidth = 1000

	// jpegQuality is the re-encode quality for downsampled uploads.
	jpegQuality = 80
)

// Resolver converts remote references to embedded ones and encodes
// user uploads.
type Resolver struct {
	HTTPClient *http.Client
	MaxWidth   int
}

// New returns a Resolver with the default HTTP timeout and width bound.
func New() *Resolver {
	return &Resolver{
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		MaxWidth:   DefaultMaxWidth,
	}
}

// Resolve guarantees the returned reference is safe for rasterization.
//
// Empty and Embedded references are returned unchanged (idempotent fast
// path — embedded data is assumed safe, including data previously
// produced by this function). A Remote reference is fetched and
// re-encoded as an embedded payload carrying the response content type.
//
// Fails soft: on any failure the original reference is returned
// unchanged together with a typed error. Callers must treat an
// unchanged Remote result as "resolution failed" and never pass it on
// to capture.
func (r *Resolver) Resolve(ctx context.Context, ref imageref.Ref) (imageref.Ref, error) {
	if !ref.IsRemote() {
		return ref, nil
	}

	data, mime, err := r.fetch(ctx, ref.URL)
	if err != nil {
		return ref, err
	}
	return imageref.Embed(data, mime), nil
}

func (r *Resolver) fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: build request: %v", ErrNetwork, err)
	}
	// The upstream host caches aggressively; a stale cached response can
	// carry image bytes that no longer match the share link.
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("%w: status %s", ErrNetwork, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("%w: read body: %v", ErrNetwork, err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty payload", ErrDecode)
	}

	return data, resp.Header.Get("Content-Type"), nil
}

// CompressAndEmbed encodes a locally supplied image (an upload, never a
// network fetch) as an embedded reference, downsampling first when its
// natural width exceeds the resolver's width bound.
//
// Images already within the bound are embedded byte-for-byte, avoiding
// a needless re-encode generation loss. Wider images are resized
// proportionally and re-encoded as JPEG.
func (r *Resolver) CompressAndEmbed(data []byte) (imageref.Ref, error) {
	maxWidth := r.MaxWidth
	if maxWidth <= 0 {
		maxWidth = DefaultMaxWidth
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return imageref.Ref{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	if img.Bounds().Dx() <= maxWidth {
		return imageref.Embed(data, ""), nil
	}

	// Height 0 preserves aspect ratio.
	resized := imaging.Resize(img, maxWidth, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return imageref.Ref{}, fmt.Errorf("%w: re-encode: %v", ErrDecode, err)
	}
	return imageref.Embed(buf.Bytes(), "image/jpeg"), nil
}
