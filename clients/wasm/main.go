// awardgen WASM — Client-side card pipeline.
// Compiled with: GOOS=js GOARCH=wasm go build -o awardgen.wasm ./clients/wasm/
package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"syscall/js"

	"github.com/b1690/awardgen/pkg/card"
	"github.com/b1690/awardgen/pkg/export"
	"github.com/b1690/awardgen/pkg/rasterizer"
	"github.com/b1690/awardgen/pkg/resolver"
)

var (
	mu  sync.Mutex
	ren *card.Renderer
	ras *rasterizer.Rasterizer
	res = resolver.New()
)

func main() {
	fmt.Println("awardgen WASM loaded")

	js.Global().Set("goRegisterFont", js.FuncOf(registerFont))
	js.Global().Set("goRenderCard", js.FuncOf(renderCard))
	js.Global().Set("goExportCard", js.FuncOf(exportCard))
	js.Global().Set("goCompressImage", js.FuncOf(compressImage))
	js.Global().Set("goExtractFileID", js.FuncOf(extractFileID))
	js.Global().Set("goReady", js.ValueOf(true))

	// Block forever (WASM must not exit).
	select {}
}

// pipeline lazily builds the renderer and rasterizer, after an optional
// font registration.
func pipeline() (*card.Renderer, *rasterizer.Rasterizer, error) {
	mu.Lock()
	defer mu.Unlock()
	if ren == nil {
		r, err := card.NewRenderer("")
		if err != nil {
			return nil, nil, err
		}
		ren = r
		ras = rasterizer.New(res, ren)
		// The decode check is the settle signal here; there is no paint
		// to wait out when rendering off-screen.
		ras.SettleDelay = 0
	}
	return ren, ras, nil
}

// goRegisterFont(base64TTF) — replace the embedded font, e.g. with a
// CJK face the default cannot cover.
func registerFont(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf("error: need base64 TTF data")
	}
	data, err := base64.StdEncoding.DecodeString(args[0].String())
	if err != nil {
		return js.ValueOf("error: invalid base64: " + err.Error())
	}
	r, err := card.NewRendererFromFontBytes(data)
	if err != nil {
		return js.ValueOf("error: " + err.Error())
	}

	mu.Lock()
	ren = r
	ras = rasterizer.New(res, ren)
	ras.SettleDelay = 0
	mu.Unlock()
	return js.ValueOf("ok")
}

func parseCard(jsonStr string) (*card.Composition, error) {
	comp, warnings, err := card.ParseData([]byte(jsonStr))
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		fmt.Println("card data:", w)
	}
	return comp, nil
}

// goRenderCard(cardJSON) — density-1 preview, base64 PNG.
func renderCard(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf("error: need card JSON")
	}
	r, _, err := pipeline()
	if err != nil {
		return js.ValueOf("error: " + err.Error())
	}

	comp, err := parseCard(args[0].String())
	if err != nil {
		return js.ValueOf("error: " + err.Error())
	}

	// Previews tolerate missing images; exports do not.
	for _, ref := range comp.Refs() {
		if resolved, err := res.Resolve(context.Background(), *ref); err == nil {
			*ref = resolved
		}
	}

	img, err := r.Render(comp, 1)
	if err != nil {
		return js.ValueOf("error: render: " + err.Error())
	}

	var buf bytes.Buffer
	if err := export.EncodePNG(&buf, img); err != nil {
		return js.ValueOf("error: encode: " + err.Error())
	}
	return js.ValueOf(base64.StdEncoding.EncodeToString(buf.Bytes()))
}

// goExportCard(cardJSON) — full prepare/settle/capture pipeline at
// export density, base64 PNG.
func exportCard(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf("error: need card JSON")
	}
	_, ra, err := pipeline()
	if err != nil {
		return js.ValueOf("error: " + err.Error())
	}

	comp, err := parseCard(args[0].String())
	if err != nil {
		return js.ValueOf("error: " + err.Error())
	}

	artifact, err := ra.Export(context.Background(), comp)
	if err != nil {
		return js.ValueOf("error: export: " + err.Error())
	}
	return js.ValueOf(base64.StdEncoding.EncodeToString(artifact.Data))
}

// goCompressImage(base64Data) — bound an upload's width and return the
// embedded data URI.
func compressImage(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf("error: need base64 image data")
	}
	data, err := base64.StdEncoding.DecodeString(args[0].String())
	if err != nil {
		return js.ValueOf("error: invalid base64: " + err.Error())
	}
	ref, err := res.CompressAndEmbed(data)
	if err != nil {
		return js.ValueOf("error: " + err.Error())
	}
	return js.ValueOf(ref.DataURI())
}

// goExtractFileID(url) — expose the share-link id extraction.
func extractFileID(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf("")
	}
	return js.ValueOf(resolver.ExtractFileID(args[0].String()))
}
