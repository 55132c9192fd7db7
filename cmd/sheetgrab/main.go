// sheetgrab - Roster photo fetcher
//
// Usage:
//
//	sheetgrab list
//	sheetgrab fetch --name <person> [-o <file>]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/b1690/awardgen/pkg/config"
	"github.com/b1690/awardgen/pkg/resolver"
	"github.com/b1690/awardgen/pkg/sheet"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "list", "ls":
		if err := runList(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "fetch":
		if err := runFetch(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	rows, err := fetchRows()
	if err != nil {
		return err
	}

	count := 0
	for _, row := range rows {
		if len(row) == 0 || row[0] == "" {
			continue
		}
		fmt.Println(row[0])
		count++
	}
	fmt.Fprintf(os.Stderr, "%d entries\n", count)
	return nil
}

func runFetch(args []string) error {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)

	var (
		name   string
		output string
	)
	fs.StringVar(&name, "name", "", "Person name to look up")
	fs.StringVar(&output, "o", "", "Output file (default: <name>.jpg)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("person name is required (--name)")
	}
	if output == "" {
		output = name + ".jpg"
	}

	rows, err := fetchRows()
	if err != nil {
		return err
	}

	ref, err := resolver.DeriveFromLookup(name, rows)
	if err != nil {
		return err
	}
	fmt.Printf("Found photo for %s: %s\n", name, ref.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resolved, err := resolver.New().Resolve(ctx, ref)
	if err != nil {
		return err
	}
	if err := os.WriteFile(output, resolved.Data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	fmt.Printf("Successfully saved: %s (%d bytes)\n", output, len(resolved.Data))
	return nil
}

func fetchRows() ([][]string, error) {
	cfg := config.Load()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return sheet.NewClient(cfg.SheetURL).FetchRows(ctx)
}

func printUsage() {
	fmt.Println(`sheetgrab - Roster photo fetcher

USAGE:
    sheetgrab list
    sheetgrab fetch --name <person> [-o photo.jpg]

ENVIRONMENT:
    AWARDGEN_SHEET_URL   Published-CSV roster address

EXAMPLES:
    sheetgrab list
    sheetgrab fetch --name 王小明
    sheetgrab fetch --name 王小明 -o photos/wang.jpg`)
}
