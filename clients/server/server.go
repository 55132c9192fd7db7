// Package server exposes the award-card pipeline as an HTTP API for
// the browser front end.
package server

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/b1690/awardgen/pkg/card"
	"github.com/b1690/awardgen/pkg/config"
	"github.com/b1690/awardgen/pkg/export"
	"github.com/b1690/awardgen/pkg/imageref"
	"github.com/b1690/awardgen/pkg/rasterizer"
	"github.com/b1690/awardgen/pkg/resolver"
	"github.com/b1690/awardgen/pkg/sheet"
	"github.com/b1690/awardgen/pkg/store"
)

// Server wires the pipeline components behind the API routes.
type Server struct {
	resolver   *resolver.Resolver
	renderer   *card.Renderer
	rasterizer *rasterizer.Rasterizer
	sheet      *sheet.Client
	cache      store.Store
	assets     *assetManager
}

// New assembles a Server from configuration. The background cache uses
// the SQLite backend when the cache path ends in .db, a flat file
// otherwise.
func New(cfg *config.Config) (*Server, error) {
	ren, err := card.NewRenderer(cfg.FontPath)
	if err != nil {
		return nil, err
	}

	var cache store.Store
	if isSQLitePath(cfg.CachePath) {
		cache, err = store.OpenSQLite(cfg.CachePath)
		if err != nil {
			return nil, err
		}
	} else {
		cache = store.NewFileStore(cfg.CachePath)
	}

	res := resolver.New()
	return &Server{
		resolver:   res,
		renderer:   ren,
		rasterizer: rasterizer.New(res, ren),
		sheet:      sheet.NewClient(cfg.SheetURL),
		cache:      cache,
		assets:     newAssetManager(),
	}, nil
}

// Run starts the API server on the configured port.
func Run(cfg *config.Config) error {
	s, err := New(cfg)
	if err != nil {
		return err
	}

	r := gin.Default()
	s.Register(r)

	log.Printf("awardgen API → http://localhost:%s", cfg.Port)
	return r.Run(":" + cfg.Port)
}

// Register attaches all API routes to the engine.
func (s *Server) Register(r *gin.Engine) {
	api := r.Group("/api")
	api.GET("/health", s.health)
	api.POST("/render", s.render)
	api.POST("/export", s.export)
	api.POST("/sync", s.sync)
	api.POST("/upload/image", s.uploadImage)
	api.GET("/assets", s.listAssets)
	api.GET("/assets/:id", s.getAsset)
	api.DELETE("/assets/:id", s.deleteAsset)
	api.GET("/qr", s.qr)
	api.GET("/background", s.getBackground)
	api.PUT("/background", s.putBackground)
	api.DELETE("/background", s.clearBackground)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// readComposition decodes the request body as card data JSON and fills
// the cached background when none was supplied.
func (s *Server) readComposition(c *gin.Context) (*card.Composition, bool) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}

	comp, warnings, err := card.ParseData(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	for _, w := range warnings {
		log.Println("Server: card data:", w)
	}

	if comp.Background.IsEmpty() {
		if cached, ok, err := s.cache.Load(); err == nil && ok {
			if ref, err := imageref.Parse(cached); err == nil {
				comp.Background = ref
			}
		}
	}
	if comp.Background.IsEmpty() {
		comp.Background = imageref.NewRemote(card.DefaultBackgroundURL)
	}
	return comp, true
}

// render produces a density-1 preview without the full export pipeline.
// Remote references are resolved inline so the preview matches what an
// export would capture.
func (s *Server) render(c *gin.Context) {
	comp, ok := s.readComposition(c)
	if !ok {
		return
	}

	for _, ref := range comp.Refs() {
		resolved, err := s.resolver.Resolve(c.Request.Context(), *ref)
		if err != nil {
			// Soft-fail policy: keep the prior reference, report, and
			// render without the image rather than blanking the card.
			log.Println("Server: preview resolve:", err)
			*ref = imageref.Ref{}
			continue
		}
		*ref = resolved
	}

	img, err := s.renderer.Render(comp, 1)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Writer.Header().Set("Content-Type", "image/png")
	c.Status(http.StatusOK)
	if err := export.EncodePNG(c.Writer, img); err != nil {
		log.Println("Server: write preview:", err)
	}
}

// export runs the full prepare → settle → capture pipeline and returns
// the finished PNG as an attachment.
func (s *Server) export(c *gin.Context) {
	comp, ok := s.readComposition(c)
	if !ok {
		return
	}

	artifact, err := s.rasterizer.Export(c.Request.Context(), comp)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error(), "suggestion": suggestionFor(err)})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+artifact.Filename+`"`)
	c.Data(http.StatusOK, "image/png", artifact.Data)
}

// sync looks the person up in the roster sheet and returns their
// portrait as an embedded data URI.
func (s *Server) sync(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	rows, err := s.sheet.FetchRows(ctx)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "suggestion": "再試一次或手動上傳照片"})
		return
	}

	ref, err := resolver.DeriveFromLookup(req.Name, rows)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error(), "suggestion": "手動上傳照片"})
		return
	}

	resolved, err := s.resolver.Resolve(ctx, ref)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error(), "suggestion": "再試一次或手動上傳照片"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"name": req.Name, "image": resolved.DataURI()})
}

// uploadImage accepts a local file, bounds its width, and stores it as
// an asset. The response carries both the asset URL and the embedded
// data URI so the client can use either.
func (s *Server) uploadImage(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file uploaded"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ref, err := s.resolver.CompressAndEmbed(data)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	id := s.assets.add(header.Filename, ref)

	// A background upload also refreshes the persisted slot.
	if c.Query("slot") == "background" {
		if err := s.cache.Save(ref.DataURI()); err != nil {
			log.Println("Server: save background slot:", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"id":    id,
		"name":  header.Filename,
		"url":   "/api/assets/" + id,
		"image": ref.DataURI(),
	})
}

func (s *Server) listAssets(c *gin.Context) {
	c.JSON(http.StatusOK, s.assets.listAll())
}

func (s *Server) getAsset(c *gin.Context) {
	a, ok := s.assets.get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "asset not found"})
		return
	}
	c.Data(http.StatusOK, a.Ref.MIME, a.Ref.Data)
}

func (s *Server) deleteAsset(c *gin.Context) {
	if _, ok := s.assets.get(c.Param("id")); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "asset not found"})
		return
	}
	s.assets.remove(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"status": "deleted", "id": c.Param("id")})
}

// qr renders a share-link QR code as PNG.
func (s *Server) qr(c *gin.Context) {
	text := c.Query("text")
	if text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text query parameter required"})
		return
	}
	size := 400
	if v, err := strconv.Atoi(c.Query("size")); err == nil && v > 0 {
		size = v
	}

	data, err := qrcode.Encode(text, qrcode.Medium, size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", data)
}

func (s *Server) getBackground(c *gin.Context) {
	value, ok, err := s.cache.Load()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"image": "", "default": card.DefaultBackgroundURL})
		return
	}
	c.JSON(http.StatusOK, gin.H{"image": value})
}

func (s *Server) putBackground(c *gin.Context) {
	var req struct {
		Image string `json:"image"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := imageref.Parse(req.Image); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.cache.Save(req.Image); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "saved"})
}

func (s *Server) clearBackground(c *gin.Context) {
	if err := s.cache.Clear(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

// statusFor maps pipeline failure classes onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, rasterizer.ErrExportBusy):
		return http.StatusConflict
	case errors.Is(err, resolver.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, resolver.ErrNetwork):
		return http.StatusBadGateway
	case errors.Is(err, resolver.ErrDecode):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// suggestionFor keeps the user-facing advice consistent with the
// original client's messages.
func suggestionFor(err error) string {
	switch {
	case errors.Is(err, rasterizer.ErrExportBusy):
		return "生成中，請稍候"
	case errors.Is(err, rasterizer.ErrCapture):
		return "下載過程發生錯誤，請截圖或重試"
	case errors.Is(err, resolver.ErrNotFound):
		return "查無資料，請手動上傳照片"
	default:
		return "請重試"
	}
}

func isSQLitePath(path string) bool {
	return len(path) > 3 && path[len(path)-3:] == ".db"
}
