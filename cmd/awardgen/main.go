// awardgen — Award-card generation.
//
// Usage:
//
//	awardgen generate -o <file> [--data <path>] [options]
//	awardgen sync --name <person> [-o <file>]
//	awardgen qr --text <link> -o <file>
//	awardgen serve
//	awardgen init
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/b1690/awardgen/clients/server"
	"github.com/b1690/awardgen/pkg/card"
	"github.com/b1690/awardgen/pkg/config"
	"github.com/b1690/awardgen/pkg/export"
	"github.com/b1690/awardgen/pkg/imageref"
	"github.com/b1690/awardgen/pkg/rasterizer"
	"github.com/b1690/awardgen/pkg/resolver"
	"github.com/b1690/awardgen/pkg/sheet"
	"github.com/b1690/awardgen/pkg/store"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "generate", "gen":
		if err := runGenerate(os.Args[2:]); err != nil {
			fatal(err)
		}
	case "sync":
		if err := runSync(os.Args[2:]); err != nil {
			fatal(err)
		}
	case "qr":
		if err := runQR(os.Args[2:]); err != nil {
			fatal(err)
		}
	case "serve":
		if err := server.Run(config.Load()); err != nil {
			fatal(err)
		}
	case "init":
		if err := runInit(os.Args[2:]); err != nil {
			fatal(err)
		}
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runGenerate(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)

	var (
		output   string
		dataPath string
		name     string
		product  string
		fyp      string
		fyc      string
		date     string
		portrait string
		bg       string
		density  float64
		noCache  bool
	)

	fs.StringVar(&output, "o", "", "Output file path (.png or .jpg)")
	fs.StringVar(&output, "output", "", "Output file path (.png or .jpg)")
	fs.StringVar(&dataPath, "data", "", "Path to card data JSON (optional)")
	fs.StringVar(&name, "name", "", "Person name")
	fs.StringVar(&product, "product", "", "Product label")
	fs.StringVar(&fyp, "fyp", "", "FYP amount")
	fs.StringVar(&fyc, "fyc", "", "FYC amount")
	fs.StringVar(&date, "date", "", "Date (YYYY-MM-DD, default today)")
	fs.StringVar(&portrait, "portrait", "", "Portrait: file path, URL, or data URI")
	fs.StringVar(&bg, "bg", "", "Background: file path, URL, or data URI")
	fs.Float64Var(&density, "density", rasterizer.DefaultPixelDensity, "Pixel density multiplier")
	fs.BoolVar(&noCache, "no-cache", false, "Ignore the persisted background slot")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if output == "" {
		return fmt.Errorf("output file is required (-o)")
	}

	cfg := config.Load()

	var comp *card.Composition
	if dataPath != "" {
		loaded, warnings, err := card.LoadFile(dataPath)
		if err != nil {
			return err
		}
		for _, w := range warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
		}
		comp = loaded
	} else {
		comp = &card.Composition{Name: name, Product: product, FYP: fyp, FYC: fyc, Date: date}
		comp.ApplyDefaults()
		for _, w := range comp.Validate() {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
		}
	}

	res := resolver.New()
	if portrait != "" {
		ref, err := refFromSource(res, portrait)
		if err != nil {
			return fmt.Errorf("portrait: %w", err)
		}
		comp.Portrait = ref
	}
	if bg != "" {
		ref, err := refFromSource(res, bg)
		if err != nil {
			return fmt.Errorf("background: %w", err)
		}
		comp.Background = ref
	}

	// Background fallback: the persisted slot, then the built-in URL.
	if comp.Background.IsEmpty() && !noCache {
		if cached, ok, err := store.NewFileStore(cfg.CachePath).Load(); err == nil && ok {
			if ref, err := imageref.Parse(cached); err == nil {
				comp.Background = ref
			}
		}
	}
	if comp.Background.IsEmpty() {
		comp.Background = imageref.NewRemote(card.DefaultBackgroundURL)
	}

	ren, err := card.NewRenderer(cfg.FontPath)
	if err != nil {
		return err
	}

	ras := rasterizer.New(res, ren)
	ras.PixelDensity = density

	fmt.Printf("Generating card: %s\n", output)
	artifact, err := ras.Export(context.Background(), comp)
	if err != nil {
		return err
	}

	path := output
	switch strings.ToLower(filepath.Ext(output)) {
	case ".jpg", ".jpeg":
		img, err := imaging.Decode(bytes.NewReader(artifact.Data))
		if err != nil {
			return err
		}
		if err := export.SaveImage(output, img); err != nil {
			return err
		}
	default:
		path, err = artifact.Save(output)
		if err != nil {
			return err
		}
	}
	fmt.Printf("Successfully created: %s (%dx%d)\n", path, artifact.Width, artifact.Height)
	return nil
}

// refFromSource builds an image reference from a CLI argument: a URL,
// a data URI, or a local file (compressed and embedded).
func refFromSource(res *resolver.Resolver, src string) (imageref.Ref, error) {
	if ref, err := imageref.Parse(src); err == nil {
		return ref, nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return imageref.Ref{}, fmt.Errorf("read %s: %w", src, err)
	}
	return res.CompressAndEmbed(data)
}

func runSync(args []string) error {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)

	var (
		name   string
		output string
	)
	fs.StringVar(&name, "name", "", "Person name to look up")
	fs.StringVar(&output, "o", "", "Save the photo to this file instead of printing the URL")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("person name is required (--name)")
	}

	cfg := config.Load()
	ctx := context.Background()

	rows, err := sheet.NewClient(cfg.SheetURL).FetchRows(ctx)
	if err != nil {
		return err
	}

	ref, err := resolver.DeriveFromLookup(name, rows)
	if err != nil {
		return err
	}

	if output == "" {
		fmt.Println(ref.URL)
		return nil
	}

	resolved, err := resolver.New().Resolve(ctx, ref)
	if err != nil {
		return err
	}
	if err := os.WriteFile(output, resolved.Data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	fmt.Printf("Saved photo for %s: %s (%d bytes)\n", name, output, len(resolved.Data))
	return nil
}

func runQR(args []string) error {
	fs := flag.NewFlagSet("qr", flag.ExitOnError)

	var (
		text   string
		output string
		size   int
	)
	fs.StringVar(&text, "text", "", "Link or text to encode")
	fs.StringVar(&output, "o", "", "Output PNG path")
	fs.IntVar(&size, "size", 400, "Image size in pixels")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if text == "" || output == "" {
		return fmt.Errorf("both --text and -o are required")
	}

	if err := qrcode.WriteFile(text, qrcode.Medium, size, output); err != nil {
		return fmt.Errorf("write QR: %w", err)
	}
	fmt.Printf("Successfully created: %s\n", output)
	return nil
}

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	var output string
	fs.StringVar(&output, "o", "card.json", "Output path for sample card data")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := os.WriteFile(output, []byte(card.SampleJSON()), 0644); err != nil {
		return fmt.Errorf("write sample: %w", err)
	}
	fmt.Printf("Created sample file: %s\n", output)
	fmt.Println("You can now run: awardgen generate --data " + output + " -o card.png")
	return nil
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func printUsage() {
	fmt.Println(`awardgen - Award-card generation

USAGE:
    awardgen generate [options]
    awardgen sync --name <person> [-o photo.jpg]
    awardgen qr --text <link> -o qr.png
    awardgen serve
    awardgen init [-o card.json]

GENERATE OPTIONS:
    -o, --output <path>  Output file path (.png or .jpg)
    --data <path>        Card data JSON (see 'awardgen init')
    --name <text>        Person name
    --product <text>     Product label
    --fyp <text>         FYP amount
    --fyc <text>         FYC amount
    --date <date>        YYYY-MM-DD (default: today)
    --portrait <src>     Portrait file, URL, or data URI
    --bg <src>           Background file, URL, or data URI
    --density <n>        Pixel density multiplier (default: 2)
    --no-cache           Ignore the persisted background slot

ENVIRONMENT:
    AWARDGEN_SHEET_URL   Published-CSV roster address
    AWARDGEN_FONT        Custom TTF path (CJK coverage)
    AWARDGEN_CACHE       Background slot path (.db selects SQLite)
    PORT                 Server port (serve mode)

EXAMPLES:
    awardgen init
    awardgen generate --data card.json -o card.png
    awardgen generate --name 王小明 --product PFK --fyp 100,000 --fyc 35,000 -o card.png
    awardgen sync --name 王小明 -o photo.jpg`)
}
