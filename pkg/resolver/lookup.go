// lookup.go — Derive a portrait reference from roster sheet rows.
package resolver

import (
	"fmt"
	"strings"

	"github.com/b1690/awardgen/pkg/imageref"
)

const (
	// fileHostMarker identifies a cell holding a share link.
	fileHostMarker = "drive.google.com"

	// photoURLTemplate turns an extracted file id into a directly
	// fetchable image URL. %s is the file id.
	photoURLTemplate = "https://lh3.googleusercontent.com/u/0/d/%s=w1000"
)

// DeriveFromLookup finds the row whose cells contain name exactly,
// extracts a file id from the first share link in that row, and returns
// a Remote reference to the direct-view image URL.
//
// This is a best-effort string match, not a structured parse: row and
// column positions are irrelevant, only cell equality and substring
// containment matter. All failures are ErrNotFound with a message
// naming what was missing (row, link, or id).
func DeriveFromLookup(name string, rows [][]string) (imageref.Ref, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return imageref.Ref{}, fmt.Errorf("%w: empty name", ErrNotFound)
	}

	row := findRow(name, rows)
	if row == nil {
		return imageref.Ref{}, fmt.Errorf("%w: no roster row for %q", ErrNotFound, name)
	}

	link := ""
	for _, cell := range row {
		if strings.Contains(cell, fileHostMarker) {
			link = cell
			break
		}
	}
	if link == "" {
		return imageref.Ref{}, fmt.Errorf("%w: row for %q has no photo link", ErrNotFound, name)
	}

	id := ExtractFileID(link)
	if id == "" {
		return imageref.Ref{}, fmt.Errorf("%w: no file id in link for %q", ErrNotFound, name)
	}

	return imageref.NewRemote(fmt.Sprintf(photoURLTemplate, id)), nil
}

func findRow(name string, rows [][]string) []string {
	for _, row := range rows {
		for _, cell := range row {
			if cell == name {
				return row
			}
		}
	}
	return nil
}

// ExtractFileID pulls a file identifier out of a share link. Exactly
// two URL shapes are supported:
//
//	…/d/<id>/…       (viewer links)
//	…?id=<id>&…      (legacy open links)
//
// Returns "" when the URL matches neither shape.
func ExtractFileID(url string) string {
	if _, after, found := strings.Cut(url, "/d/"); found {
		id, _, _ := strings.Cut(after, "/")
		return id
	}
	if _, after, found := strings.Cut(url, "id="); found {
		id, _, _ := strings.Cut(after, "&")
		return id
	}
	return ""
}
