// Package imageref defines the tagged image reference passed between the
// resolver and the rasterizer.
//
// A reference is in one of three states: empty, embedded (self-contained
// data URI, safe to rasterize from any origin), or remote (URL only, NOT
// safe to rasterize — pixel extraction from an unconverted remote image
// is the central failure mode this pipeline exists to prevent).
package imageref

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

// Kind is the state tag of a Ref.
type Kind int

const (
	Empty Kind = iota
	Embedded
	Remote
)

func (k Kind) String() string {
	switch k {
	case Embedded:
		return "embedded"
	case Remote:
		return "remote"
	default:
		return "empty"
	}
}

// Ref is an image reference. The zero value is the empty reference.
// A Ref never transitions from Embedded back to Remote.
type Ref struct {
	Kind Kind
	URL  string // set when Kind == Remote
	Data []byte // raw image bytes when Kind == Embedded
	MIME string // content type when Kind == Embedded
}

// NewRemote returns a Remote reference for url. An empty url yields
// the empty reference.
func NewRemote(url string) Ref {
	if url == "" {
		return Ref{}
	}
	return Ref{Kind: Remote, URL: url}
}

// Embed wraps raw image bytes as an Embedded reference. If mime is
// empty the content type is sniffed from the payload.
func Embed(data []byte, mime string) Ref {
	if len(data) == 0 {
		return Ref{}
	}
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	return Ref{Kind: Embedded, Data: data, MIME: mime}
}

// IsEmpty reports whether the reference holds no image.
func (r Ref) IsEmpty() bool { return r.Kind == Empty }

// IsEmbedded reports whether the reference is self-contained and safe
// for rasterization.
func (r Ref) IsEmbedded() bool { return r.Kind == Embedded }

// IsRemote reports whether the reference still requires a network fetch
// before it may reach the rasterizer.
func (r Ref) IsRemote() bool { return r.Kind == Remote }

// DataURI encodes an Embedded reference as "data:<mime>;base64,<payload>".
// Empty and Remote references encode to "" and the raw URL respectively,
// mirroring how the reference would be written into an image src.
func (r Ref) DataURI() string {
	switch r.Kind {
	case Embedded:
		return "data:" + r.MIME + ";base64," + base64.StdEncoding.EncodeToString(r.Data)
	case Remote:
		return r.URL
	default:
		return ""
	}
}

// Parse interprets a src string as a reference: a data URI becomes
// Embedded, an http(s) URL becomes Remote, and "" becomes Empty.
func Parse(src string) (Ref, error) {
	switch {
	case src == "":
		return Ref{}, nil
	case strings.HasPrefix(src, "data:"):
		return ParseDataURI(src)
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		return NewRemote(src), nil
	default:
		return Ref{}, fmt.Errorf("unrecognized image source %q", truncate(src, 48))
	}
}

// ParseDataURI decodes a "data:<mime>;base64,<payload>" string into an
// Embedded reference.
func ParseDataURI(uri string) (Ref, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return Ref{}, fmt.Errorf("not a data URI: %q", truncate(uri, 48))
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return Ref{}, fmt.Errorf("malformed data URI: missing payload separator")
	}

	mime, enc := meta, ""
	if m, e, found := strings.Cut(meta, ";"); found {
		mime, enc = m, e
	}
	if enc != "base64" {
		return Ref{}, fmt.Errorf("unsupported data URI encoding %q", enc)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Ref{}, fmt.Errorf("decode data URI payload: %w", err)
	}
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	return Ref{Kind: Embedded, Data: data, MIME: mime}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
