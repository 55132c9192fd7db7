package server

import (
	"bytes"
	"encoding/json"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"

	"github.com/b1690/awardgen/pkg/card"
	"github.com/b1690/awardgen/pkg/imageref"
	"github.com/b1690/awardgen/pkg/rasterizer"
	"github.com/b1690/awardgen/pkg/resolver"
	"github.com/b1690/awardgen/pkg/sheet"
	"github.com/b1690/awardgen/pkg/store"
)

func newTestServer(t *testing.T, sheetURL string) (*Server, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ren, err := card.NewRenderer("")
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	res := resolver.New()
	ras := rasterizer.New(res, ren)
	ras.SettleDelay = 0

	s := &Server{
		resolver:   res,
		renderer:   ren,
		rasterizer: ras,
		sheet:      sheet.NewClient(sheetURL),
		cache:      store.NewFileStore(filepath.Join(t.TempDir(), "bg")),
		assets:     newAssetManager(),
	}

	r := gin.New()
	s.Register(r)
	return s, r
}

func testDataURI(t *testing.T, w, h int) string {
	t.Helper()
	var buf bytes.Buffer
	img := imaging.New(w, h, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return imageref.Embed(buf.Bytes(), "image/png").DataURI()
}

func TestHealth(t *testing.T) {
	_, r := newTestServer(t, "http://127.0.0.1:1/")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d", w.Code)
	}
}

func TestExportReturnsAttachment(t *testing.T) {
	_, r := newTestServer(t, "http://127.0.0.1:1/")

	body := `{"name":"王小明","product":"PFK","fyp":"100,000","fyc":"35,000","date":"2026-09-01","bgImage":"` + testDataURI(t, 64, 80) + `"}`
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/export", strings.NewReader(body)))

	if w.Code != http.StatusOK {
		t.Fatalf("export status = %d: %s", w.Code, w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "B1690賀報_王小明") {
		t.Fatalf("Content-Disposition = %q", cd)
	}
	img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatalf("export body is not PNG: %v", err)
	}
	if img.Bounds().Dx() != card.Width*2 {
		t.Fatalf("export width = %d, want %d", img.Bounds().Dx(), card.Width*2)
	}
}

func TestSyncAgainstStubbedSheet(t *testing.T) {
	photo := testDataURI(t, 40, 40)

	imageSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ref, err := imageref.ParseDataURI(photo)
		if err != nil {
			t.Errorf("parse test data URI: %v", err)
		}
		w.Header().Set("Content-Type", ref.MIME)
		w.Write(ref.Data)
	}))
	defer imageSrv.Close()

	sheetSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte("姓名,照片\n王小明,https://drive.google.com/file/d/F1/view\n"))
	}))
	defer sheetSrv.Close()

	s, r := newTestServer(t, sheetSrv.URL)
	// Redirect the derived photo URL at the stub image server.
	s.resolver.HTTPClient = &http.Client{Transport: rewriteHost(imageSrv.URL)}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/sync", strings.NewReader(`{"name":"王小明"}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("sync status = %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Image string `json:"image"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode sync response: %v", err)
	}
	if !strings.HasPrefix(resp.Image, "data:image/png;base64,") {
		t.Fatalf("sync image = %q, want embedded data URI", resp.Image)
	}
}

func TestSyncUnknownNameIs404(t *testing.T) {
	sheetSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte("姓名\n別人\n"))
	}))
	defer sheetSrv.Close()

	_, r := newTestServer(t, sheetSrv.URL)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/sync", strings.NewReader(`{"name":"王小明"}`)))
	if w.Code != http.StatusNotFound {
		t.Fatalf("sync status = %d, want 404", w.Code)
	}
}

func TestBackgroundSlotRoundTrip(t *testing.T) {
	_, r := newTestServer(t, "http://127.0.0.1:1/")
	uri := testDataURI(t, 16, 16)

	w := httptest.NewRecorder()
	body, _ := json.Marshal(map[string]string{"image": uri})
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/background", bytes.NewReader(body)))
	if w.Code != http.StatusOK {
		t.Fatalf("put status = %d: %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/background", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), uri[:40]) {
		t.Fatalf("get background = %d %q", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/background", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}
}

func TestQREndpoint(t *testing.T) {
	_, r := newTestServer(t, "http://127.0.0.1:1/")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/qr?text=https://example.com/card&size=256", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("qr status = %d", w.Code)
	}
	img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatalf("qr body is not PNG: %v", err)
	}
	if img.Bounds().Dx() != 256 {
		t.Fatalf("qr size = %d", img.Bounds().Dx())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/qr", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("qr without text = %d, want 400", w.Code)
	}
}

// rewriteHost redirects every outgoing request to the given base URL,
// keeping the path. Lets tests intercept the derived photo fetch.
type hostRewriter struct {
	base string
	next http.RoundTripper
}

func rewriteHost(base string) http.RoundTripper {
	return &hostRewriter{base: base, next: http.DefaultTransport}
}

func (h *hostRewriter) RoundTrip(req *http.Request) (*http.Response, error) {
	target := h.base + req.URL.Path
	clone := req.Clone(req.Context())
	u, err := clone.URL.Parse(target)
	if err != nil {
		return nil, err
	}
	clone.URL = u
	clone.Host = u.Host
	return h.next.RoundTrip(clone)
}
