package compose

import (
	"strings"

	"github.com/cptaffe/acme-qda/annot"
	"github.com/cptaffe/acme-qda/style"
)

// Runs converts the styled segments of a pass into acme-styles runs.
// Plain and untinted segments are left out; adjacent segments of the same
// style are joined.
func Runs(segs []annot.DisplaySegment) []style.StyleRun {
	runs := make([]style.StyleRun, 0, len(segs))
	for _, s := range segs {
		if s.Style == "" {
			continue
		}
		runs = append(runs, style.StyleRun{Name: s.Style, Start: s.Start, End: s.End})
	}
	return style.Coalesce(runs)
}

// Palette completes base with entries for every code and highlight color
// that base does not define.  Codes get their color as background; base
// entries always win.
func Palette(base style.Palette, codes []annot.CodeDefinition, highlights []annot.Highlight) style.Palette {
	out := append(style.Palette{}, base...)
	for _, name := range []string{StyleCode, StyleMemo, StyleMatch, StyleCurrentMatch} {
		out = out.With(defaults[name])
	}
	for _, c := range codes {
		e := style.PaletteEntry{Name: CodeStyle(c.ID), BG: hexColor(c.Color)}
		if e.BG == "" {
			e.BG = defaults[StyleCode].BG
		}
		out = out.With(e)
	}
	for _, h := range highlights {
		e := style.PaletteEntry{Name: HighlightStyle(h.Color), BG: hexColor(h.Color)}
		if e.BG == "" {
			e.BG = namedColors[DefaultHighlightColor]
		}
		out = out.With(e)
	}
	return out
}

var defaults = map[string]style.PaletteEntry{
	StyleCode:         {Name: StyleCode, BG: "#e8e8ff"},
	StyleMemo:         {Name: StyleMemo, Underline: true},
	StyleMatch:        {Name: StyleMatch, BG: "#fff3a0"},
	StyleCurrentMatch: {Name: StyleCurrentMatch, BG: "#ffb340", Bold: true},
}

// DefaultHighlightColor is shown for highlights whose color is unknown.
const DefaultHighlightColor = "yellow"

// namedColors are the highlight color names the store accepts.
var namedColors = map[string]string{
	"yellow": "#fff59d",
	"green":  "#c5e1a5",
	"blue":   "#90caf9",
	"pink":   "#f8bbd0",
	"orange": "#ffcc80",
	"purple": "#ce93d8",
	"red":    "#ef9a9a",
	"gray":   "#e0e0e0",
}

// hexColor normalises a stored color to "#rrggbb".  Hex colors may omit
// the '#', use three digits or carry alpha, which is dropped.  Unknown
// names give "".
func hexColor(c string) string {
	c = strings.ToLower(strings.TrimSpace(c))
	if named, ok := namedColors[c]; ok {
		return named
	}
	h := strings.TrimPrefix(c, "#")
	if h == c && len(h) != 6 || !isHex(h) {
		return ""
	}
	switch len(h) {
	case 3, 4:
		return "#" + string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	case 6, 8:
		return "#" + h[:6]
	}
	return ""
}

func isHex(s string) bool {
	for _, r := range s {
		if !('0' <= r && r <= '9' || 'a' <= r && r <= 'f' || 'A' <= r && r <= 'F') {
			return false
		}
	}
	return true
}
