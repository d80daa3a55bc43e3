// Package style speaks the acme-styles wire format: palette lines
// (":name fg=#rrggbb bg=#rrggbb bold") followed by run lines
// ("start length name").  acme-qda writes its composed display segments
// to an acme-styles layer in this format and reads its styles file with
// the same palette syntax.
package style

import (
	"fmt"
	"strconv"
	"strings"
)

// PaletteEntry is a named visual style definition.
type PaletteEntry struct {
	Name      string // e.g. "memo" or "code.<id>"
	FontName  string // absolute font path, or ""
	FG        string // "#rrggbb", or ""
	BG        string // "#rrggbb", or ""
	Bold      bool
	Italic    bool
	Underline bool
}

// Equal reports whether e and b look the same (all fields except Name).
func (e PaletteEntry) Equal(b PaletteEntry) bool {
	return e.FontName == b.FontName &&
		e.FG == b.FG &&
		e.BG == b.BG &&
		e.Bold == b.Bold &&
		e.Italic == b.Italic &&
		e.Underline == b.Underline
}

// Palette is an ordered set of entries, unique by name.
type Palette []PaletteEntry

// Lookup returns the entry called name.
func (p Palette) Lookup(name string) (PaletteEntry, bool) {
	for _, e := range p {
		if e.Name == name {
			return e, true
		}
	}
	return PaletteEntry{}, false
}

// With returns p plus e, unless p already defines e.Name.
func (p Palette) With(e PaletteEntry) Palette {
	if _, ok := p.Lookup(e.Name); ok {
		return p
	}
	return append(p, e)
}

// StyleRun is a named style span in rune offsets; End is exclusive.
type StyleRun struct {
	Name  string
	Start int
	End   int // exclusive
}

// Coalesce joins adjacent runs of the same name.  runs must be sorted and
// non-overlapping.
func Coalesce(runs []StyleRun) []StyleRun {
	var out []StyleRun
	for _, r := range runs {
		if n := len(out); n > 0 && out[n-1].Name == r.Name && out[n-1].End == r.Start {
			out[n-1].End = r.End
			continue
		}
		out = append(out, r)
	}
	return out
}

// Format serialises palette entries and runs into the wire format.
func Format(palette Palette, runs []StyleRun) string {
	var sb strings.Builder
	for _, e := range palette {
		writePaletteLine(&sb, e)
	}
	for _, r := range runs {
		fmt.Fprintf(&sb, "%d %d %s\n", r.Start, r.End-r.Start, r.Name)
	}
	return sb.String()
}

// FormatAt serialises the part of runs inside [q0, q1) with offsets
// relative to q0, for addr-scoped partial writes.
func FormatAt(palette Palette, runs []StyleRun, q0, q1 int) string {
	out := make([]StyleRun, 0, len(runs))
	for _, r := range runs {
		if r.End <= q0 || r.Start >= q1 {
			continue
		}
		out = append(out, StyleRun{Name: r.Name, Start: max(r.Start, q0) - q0, End: min(r.End, q1) - q0})
	}
	return Format(palette, out)
}

func writePaletteLine(sb *strings.Builder, e PaletteEntry) {
	fmt.Fprintf(sb, ":%s", e.Name)
	if e.FontName != "" {
		fmt.Fprintf(sb, " font=%s", e.FontName)
	}
	if e.FG != "" {
		fmt.Fprintf(sb, " fg=%s", e.FG)
	}
	if e.BG != "" {
		fmt.Fprintf(sb, " bg=%s", e.BG)
	}
	if e.Bold {
		sb.WriteString(" bold")
	}
	if e.Italic {
		sb.WriteString(" italic")
	}
	if e.Underline {
		sb.WriteString(" underline")
	}
	sb.WriteByte('\n')
}

// ParsePaletteLine parses "name [prop ...]", the leading ':' already
// stripped.  Unknown properties are ignored.
func ParsePaletteLine(line string) (PaletteEntry, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return PaletteEntry{}, false
	}
	e := PaletteEntry{Name: fields[0]}
	for _, tok := range fields[1:] {
		switch {
		case tok == "bold":
			e.Bold = true
		case tok == "italic":
			e.Italic = true
		case tok == "underline":
			e.Underline = true
		case strings.HasPrefix(tok, "font="):
			e.FontName = tok[5:]
		case strings.HasPrefix(tok, "fg="):
			e.FG = tok[3:]
		case strings.HasPrefix(tok, "bg="):
			e.BG = tok[3:]
		}
	}
	return e, true
}

// ParseRunLine parses "start length name".
func ParseRunLine(line string) (StyleRun, bool) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return StyleRun{}, false
	}
	start, err := strconv.Atoi(fields[0])
	if err != nil || start < 0 {
		return StyleRun{}, false
	}
	length, err := strconv.Atoi(fields[1])
	if err != nil || length <= 0 {
		return StyleRun{}, false
	}
	return StyleRun{Name: fields[2], Start: start, End: start + length}, true
}

// Parse parses a complete style buffer.
func Parse(content string) (Palette, []StyleRun) {
	var (
		palette Palette
		runs    []StyleRun
	)
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, ":") {
			if e, ok := ParsePaletteLine(line[1:]); ok {
				palette = append(palette, e)
			}
		} else if r, ok := ParseRunLine(line); ok {
			runs = append(runs, r)
		}
	}
	return palette, runs
}
