package compose

import (
	"strings"

	"github.com/cptaffe/acme-qda/annot"
)

// Palette entry names used by composed segments.
const (
	StyleCode         = "code"
	StyleMemo         = "memo"
	StyleMatch        = "match"
	StyleCurrentMatch = "match.current"
)

// MemoMarker is the glyph shown for anchored memos.
const MemoMarker = "✎"

// CodeStyle returns the palette entry name of a tinted segment of code.
func CodeStyle(codeID string) string {
	return StyleCode + "." + codeID
}

// HighlightStyle returns the palette entry name of a highlight color.
// Runes other than letters and digits become '-' so the name stays one
// field of the acme-styles wire format.
func HighlightStyle(color string) string {
	c := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(color), "#"))
	return "hl." + strings.Map(func(r rune) rune {
		if 'a' <= r && r <= 'z' || '0' <= r && r <= '9' {
			return r
		}
		return '-'
	}, c)
}

type styleFunc func(it item, s ActiveState) (style, marker string)

var resolvers = map[annot.Kind]styleFunc{
	annot.KindCode:      codeStyle,
	annot.KindHighlight: highlightStyle,
	annot.KindMemo:      memoStyle,
	annot.KindSearch:    matchStyle,
}

func resolve(it item, s ActiveState) (style, marker string) {
	if f, ok := resolvers[it.ann.Kind()]; ok {
		return f(it, s)
	}
	return "", ""
}

// codeStyle tints a code segment in exactly one of its normal and active
// states: ShowCodeColors tints every segment but the active one,
// otherwise only the active one is tinted.
func codeStyle(it item, s ActiveState) (string, string) {
	seg := it.ann.(annot.CodeSegment)
	active := seg.ID != "" && seg.ID == s.ActiveCodeSegmentID
	if active != s.ShowCodeColors {
		return CodeStyle(seg.CodeID), ""
	}
	return "", ""
}

func highlightStyle(it item, _ ActiveState) (string, string) {
	return HighlightStyle(it.ann.(annot.Highlight).Color), ""
}

func memoStyle(item, ActiveState) (string, string) {
	return StyleMemo, MemoMarker
}

func matchStyle(it item, s ActiveState) (string, string) {
	if it.idx == s.CurrentMatchIndex {
		return StyleCurrentMatch, ""
	}
	return StyleMatch, ""
}
