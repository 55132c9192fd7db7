// Package sheet fetches and parses the published roster spreadsheet.
//
// The sheet is consumed as published CSV. Parsing is deliberately naive:
// rows split on newlines, cells split on commas, quotes stripped. Cells
// containing embedded commas or escaped quotes are a known gap — the
// roster holds names and share links, neither of which uses them.
package sheet

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultURL is the published-CSV address of the roster sheet.
const DefaultURL = "https://docs.google.com/spreadsheets/d/e/2PACX-1vTU3_CIpMZcKYy8HNwz7roxLlUM4ndzxn8AJvtD38IA-VsNykmY9wzU-fkEotDNyy1F955_toROJAy-/pub?output=csv"

// Client fetches roster rows over HTTP.
type Client struct {
	URL        string
	HTTPClient *http.Client
}

// NewClient returns a Client for the given published-CSV URL.
// An empty url selects DefaultURL.
func NewClient(url string) *Client {
	if url == "" {
		url = DefaultURL
	}
	return &Client{
		URL:        url,
		HTTPClient: &http.Client{Timeout: 12 * time.Second},
	}
}

// FetchRows downloads the sheet and returns its parsed rows.
func (c *Client) FetchRows(ctx context.Context) ([][]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build sheet request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch sheet: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch sheet: unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read sheet body: %w", err)
	}

	return ParseRows(string(body)), nil
}

// ParseRows splits raw CSV text into rows of trimmed, unquoted cells.
func ParseRows(text string) [][]string {
	lines := strings.Split(text, "\n")
	rows := make([][]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		cells := strings.Split(line, ",")
		for i, c := range cells {
			cells[i] = strings.ReplaceAll(strings.TrimSpace(c), `"`, "")
		}
		rows = append(rows, cells)
	}
	return rows
}
