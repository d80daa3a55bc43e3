// Package config reads the acme-qda styles file.
//
// The file uses the acme-styles palette syntax plus a few directives:
//
//	# comment
//	:code.<id> bg=#ffe0e0        palette entry
//	@layer qda                   acme-styles layer name
//	@codecolors on               tint every code segment by default
//	@snap off                    do not widen selections to whole words
package config

import (
	"os"
	"strings"

	"github.com/cptaffe/acme-qda/style"
)

// DefaultLayer is the acme-styles layer acme-qda paints into.
const DefaultLayer = "qda"

// Config holds all values parsed from the styles file.
type Config struct {
	// Palette overrides the generated entries for codes, highlights,
	// memos and matches.
	Palette style.Palette

	// Layer names the acme-styles layer to paint.
	Layer string

	// ShowCodeColors is the initial code tint mode.
	ShowCodeColors bool

	// Snap widens new selections to word boundaries.
	Snap bool
}

// Default returns the configuration used without a styles file.
func Default() Config {
	return Config{Layer: DefaultLayer, Snap: true}
}

// Parse parses the content of a styles file.  Malformed lines are skipped.
func Parse(content string) Config {
	cfg := Default()
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		switch {
		case strings.HasPrefix(line, ":"):
			if e, ok := style.ParsePaletteLine(line[1:]); ok {
				cfg.Palette = append(cfg.Palette, e)
			}
		case strings.HasPrefix(line, "@"):
			fields := strings.Fields(line[1:])
			if len(fields) != 2 {
				continue
			}
			switch fields[0] {
			case "layer":
				cfg.Layer = fields[1]
			case "codecolors":
				cfg.ShowCodeColors = on(fields[1])
			case "snap":
				cfg.Snap = on(fields[1])
			}
		}
	}
	return cfg
}

// Load reads and parses the styles file at path.  An empty path gives
// the default configuration.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(string(data)), nil
}

func on(v string) bool {
	switch strings.ToLower(v) {
	case "on", "true", "yes", "1":
		return true
	}
	return false
}
