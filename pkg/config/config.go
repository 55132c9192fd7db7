// Package config reads process configuration from the environment,
// with .env support for local development.
package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/b1690/awardgen/pkg/sheet"
	"github.com/b1690/awardgen/pkg/store"
)

// Config collects every environment-driven setting.
type Config struct {
	SheetURL  string // published-CSV roster address
	Port      string // server listen port
	FontPath  string // optional custom TTF for CJK glyph coverage
	CachePath string // background slot location (file or .db)

	// APIKey feeds the optional AI-suggestion side features. The core
	// pipeline never uses it; it is read here so deployments keep one
	// configuration surface.
	APIKey string
}

// Load reads .env (if present) and the process environment.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Println("Config: loaded .env")
	}

	return &Config{
		SheetURL:  getenv("AWARDGEN_SHEET_URL", sheet.DefaultURL),
		Port:      getenv("PORT", "8080"),
		FontPath:  os.Getenv("AWARDGEN_FONT"),
		CachePath: getenv("AWARDGEN_CACHE", store.DefaultFilePath()),
		APIKey:    os.Getenv("API_KEY"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
