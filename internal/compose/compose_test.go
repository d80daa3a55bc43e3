package compose

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cptaffe/acme-qda/annot"
	"github.com/cptaffe/acme-qda/style"
)

func code(id string, start, end int, codeID string) annot.CodeSegment {
	return annot.CodeSegment{ID: id, DocumentID: "d1", Start: start, End: end, CodeID: codeID}
}

type piece struct {
	start, end int
	source     string
}

func pieces(segs []annot.DisplaySegment) []piece {
	var out []piece
	for _, s := range segs {
		p := piece{start: s.Start, end: s.End}
		switch a := s.Source.(type) {
		case annot.CodeSegment:
			p.source = a.ID
		case annot.Highlight:
			p.source = a.ID
		case annot.Memo:
			p.source = a.ID
		case annot.SearchMatch:
			p.source = "match"
		}
		out = append(out, p)
	}
	return out
}

func assertTiles(t *testing.T, doc *annot.Document, segs []annot.DisplaySegment) {
	t.Helper()
	next := 0
	for _, s := range segs {
		require.Equal(t, next, s.Start, "segments must be contiguous")
		require.Less(t, s.Start, s.End)
		require.Equal(t, doc.Slice(s.Start, s.End), s.Content)
		next = s.End
	}
	require.Equal(t, doc.Len(), next, "segments must reach the end of the document")
}

func TestFirstClaim(t *testing.T) {
	doc := annot.NewDocument("d1", "", "abcdefghijklmno")
	layers := annot.Layers{Codes: []annot.CodeSegment{code("A", 0, 10, "x"), code("B", 5, 15, "y")}}

	got := Compose(doc, layers, DefaultState)
	assert.Equal(t, []piece{{0, 10, "A"}, {10, 15, "B"}}, pieces(got))
}

func TestCompose(t *testing.T) {
	doc := annot.NewDocument("d1", "", "0123456789")

	tests := []struct {
		name   string
		layers annot.Layers
		want   []piece
	}{
		{
			name: "no layers",
			want: []piece{{0, 10, ""}},
		},
		{
			name:   "gaps become plain",
			layers: annot.Layers{Codes: []annot.CodeSegment{code("A", 2, 4, "x"), code("B", 6, 8, "x")}},
			want:   []piece{{0, 2, ""}, {2, 4, "A"}, {4, 6, ""}, {6, 8, "B"}, {8, 10, ""}},
		},
		{
			name:   "nested span is swallowed",
			layers: annot.Layers{Codes: []annot.CodeSegment{code("A", 0, 8, "x"), code("B", 2, 4, "y")}},
			want:   []piece{{0, 8, "A"}, {8, 10, ""}},
		},
		{
			name:   "shorter span sorts first on equal start",
			layers: annot.Layers{Codes: []annot.CodeSegment{code("A", 0, 8, "x"), code("B", 0, 4, "y")}},
			want:   []piece{{0, 4, "B"}, {4, 8, "A"}, {8, 10, ""}},
		},
		{
			name: "identical spans keep layer order",
			layers: annot.Layers{
				Highlights: []annot.Highlight{{ID: "H", Start: 3, End: 6, Color: "yellow"}},
				Codes:      []annot.CodeSegment{code("A", 3, 6, "x")},
			},
			want: []piece{{0, 3, ""}, {3, 6, "A"}, {6, 10, ""}},
		},
		{
			name: "every layer kind",
			layers: annot.Layers{
				Codes:      []annot.CodeSegment{code("A", 0, 2, "x")},
				Highlights: []annot.Highlight{{ID: "H", Start: 2, End: 4, Color: "yellow"}},
				Memos:      []annot.Memo{{ID: "M", Start: 4, End: 6}},
				Matches:    []annot.SearchMatch{{Start: 7, End: 9}},
			},
			want: []piece{{0, 2, "A"}, {2, 4, "H"}, {4, 6, "M"}, {6, 7, ""}, {7, 9, "match"}, {9, 10, ""}},
		},
		{
			name: "unanchored memo is not inline",
			layers: annot.Layers{
				Memos: []annot.Memo{{ID: "M", Start: annot.Unanchored, End: annot.Unanchored}},
			},
			want: []piece{{0, 10, ""}},
		},
		{
			name:   "stale end is clamped",
			layers: annot.Layers{Highlights: []annot.Highlight{{ID: "H", Start: 5, End: 40, Color: "yellow"}}},
			want:   []piece{{0, 5, ""}, {5, 10, "H"}},
		},
		{
			name:   "stale span past the end",
			layers: annot.Layers{Highlights: []annot.Highlight{{ID: "H", Start: 12, End: 14, Color: "yellow"}}},
			want:   []piece{{0, 10, ""}},
		},
		{
			name:   "empty span",
			layers: annot.Layers{Codes: []annot.CodeSegment{code("A", 4, 4, "x")}},
			want:   []piece{{0, 4, ""}, {4, 10, ""}},
		},
		{
			name: "search match loses to earlier code",
			layers: annot.Layers{
				Codes:   []annot.CodeSegment{code("A", 0, 5, "x")},
				Matches: []annot.SearchMatch{{Start: 3, End: 7}},
			},
			want: []piece{{0, 5, "A"}, {5, 7, "match"}, {7, 10, ""}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compose(doc, tt.layers, DefaultState)
			assert.Equal(t, tt.want, pieces(got))
			assertTiles(t, doc, got)
		})
	}
}

func TestComposeEmptyDocument(t *testing.T) {
	doc := annot.NewDocument("d1", "", "")
	assert.Empty(t, Compose(doc, annot.Layers{Codes: []annot.CodeSegment{code("A", 0, 0, "x")}}, DefaultState))
}

func TestComposeTilesRandomLayers(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	doc := annot.NewDocument("d1", "", strings.Repeat("añb c.", 20))
	n := doc.Len()

	span := func() (int, int) {
		a, b := rng.Intn(n+5), rng.Intn(n+5)
		if a > b {
			a, b = b, a
		}
		return a, b
	}
	for iter := 0; iter < 200; iter++ {
		var l annot.Layers
		for k := 0; k < rng.Intn(12); k++ {
			a, b := span()
			switch rng.Intn(4) {
			case 0:
				l.Codes = append(l.Codes, code("c", a, b, "x"))
			case 1:
				l.Highlights = append(l.Highlights, annot.Highlight{ID: "h", Start: a, End: b, Color: "blue"})
			case 2:
				l.Memos = append(l.Memos, annot.Memo{ID: "m", Start: a, End: b})
			case 3:
				l.Matches = append(l.Matches, annot.SearchMatch{Start: a, End: b})
			}
		}
		state := ActiveState{ShowCodeColors: rng.Intn(2) == 0, CurrentMatchIndex: rng.Intn(3) - 1}

		got := Compose(doc, l, state)
		assertTiles(t, doc, got)
		assert.Equal(t, got, Compose(doc, l, state), "compose must be pure")
	}
}

func TestCodeTint(t *testing.T) {
	doc := annot.NewDocument("d1", "", "0123456789")
	layers := annot.Layers{Codes: []annot.CodeSegment{code("A", 0, 3, "x"), code("B", 3, 6, "y")}}

	styles := func(s ActiveState) []string {
		var out []string
		for _, seg := range Compose(doc, layers, s) {
			out = append(out, seg.Style)
		}
		return out
	}

	assert.Equal(t, []string{"", "", ""}, styles(DefaultState))
	assert.Equal(t, []string{"code.x", "", ""}, styles(DefaultState.ToggleCode("A")))
	assert.Equal(t, []string{"code.x", "code.y", ""}, styles(ActiveState{ShowCodeColors: true}))
	assert.Equal(t, []string{"code.x", "", ""},
		styles(ActiveState{ShowCodeColors: true, ActiveCodeSegmentID: "B"}))
}

func TestOtherStyles(t *testing.T) {
	doc := annot.NewDocument("d1", "", "0123456789")
	layers := annot.Layers{
		Highlights: []annot.Highlight{{ID: "H", Start: 0, End: 2, Color: "#FFEE00"}},
		Memos:      []annot.Memo{{ID: "M", Start: 2, End: 4}},
		Matches:    []annot.SearchMatch{{Start: 4, End: 5}, {Start: 6, End: 7}},
	}

	got := Compose(doc, layers, ActiveState{CurrentMatchIndex: 1})
	require.Len(t, got, 6)
	assert.Equal(t, "hl.ffee00", got[0].Style)
	assert.Equal(t, StyleMemo, got[1].Style)
	assert.Equal(t, MemoMarker, got[1].Marker)
	assert.Equal(t, StyleMatch, got[2].Style)
	assert.Equal(t, StyleCurrentMatch, got[4].Style)
	assert.Empty(t, got[5].Style)
}

func TestToggle(t *testing.T) {
	s := DefaultState.ToggleCode("A")
	assert.Equal(t, "A", s.ActiveCodeSegmentID)
	assert.Empty(t, s.ToggleCode("A").ActiveCodeSegmentID)
	assert.Equal(t, "B", s.ToggleCode("B").ActiveCodeSegmentID)

	m := DefaultState.ToggleMemo("M")
	assert.Equal(t, "M", m.ActiveMemoID)
	assert.Empty(t, m.ToggleMemo("M").ActiveMemoID)
	assert.Empty(t, DefaultState.ActiveMemoID, "toggles return copies")
}

func TestRunsAndPalette(t *testing.T) {
	doc := annot.NewDocument("d1", "", "0123456789")
	layers := annot.Layers{
		Codes:      []annot.CodeSegment{code("A", 0, 3, "x"), code("B", 3, 5, "x"), code("C", 6, 8, "y")},
		Highlights: []annot.Highlight{{ID: "H", Start: 8, End: 10, Color: "green"}},
	}
	segs := Compose(doc, layers, ActiveState{ShowCodeColors: true, ActiveCodeSegmentID: "C"})

	assert.Equal(t, []style.StyleRun{
		{Name: "code.x", Start: 0, End: 5},
		{Name: "hl.green", Start: 8, End: 10},
	}, Runs(segs))

	base := style.Palette{{Name: "code.y", BG: "#000000"}}
	pal := Palette(base, []annot.CodeDefinition{{ID: "x", Color: "ff0000"}, {ID: "y", Color: "#00ff00"}}, layers.Highlights)
	x, ok := pal.Lookup("code.x")
	require.True(t, ok)
	assert.Equal(t, "#ff0000", x.BG)
	y, _ := pal.Lookup("code.y")
	assert.Equal(t, "#000000", y.BG, "base entries win")
	hl, _ := pal.Lookup("hl.green")
	assert.Equal(t, "#c5e1a5", hl.BG)
	_, ok = pal.Lookup(StyleCurrentMatch)
	assert.True(t, ok)
}

func TestHighlightColors(t *testing.T) {
	highlights := []annot.Highlight{
		{Color: "Yellow"},
		{Color: "light blue"},
		{Color: "#ABC"},
		{Color: "#11223344"},
		{Color: "c0ffee"},
	}
	pal := Palette(nil, nil, highlights)

	tests := []struct {
		color, name, bg string
	}{
		{"Yellow", "hl.yellow", "#fff59d"},
		{"light blue", "hl.light-blue", namedColors[DefaultHighlightColor]},
		{"#ABC", "hl.abc", "#aabbcc"},
		{"#11223344", "hl.11223344", "#112233"},
		{"c0ffee", "hl.c0ffee", "#c0ffee"},
	}
	for _, tt := range tests {
		t.Run(tt.color, func(t *testing.T) {
			assert.Equal(t, tt.name, HighlightStyle(tt.color))
			e, ok := pal.Lookup(tt.name)
			require.True(t, ok)
			assert.Equal(t, tt.bg, e.BG, "every highlight shows a background")
		})
	}

	// Style names survive the wire format as a single field.
	runs := []style.StyleRun{{Name: HighlightStyle("light blue"), Start: 0, End: 3}}
	gotPal, gotRuns := style.Parse(style.Format(pal, runs))
	assert.Equal(t, runs, gotRuns)
	_, ok := gotPal.Lookup("hl.light-blue")
	assert.True(t, ok)
}
