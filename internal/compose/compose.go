// Package compose flattens the annotation layers of a document and the
// current search matches into one gap-free sequence of display segments.
//
// Overlaps are resolved by first claim: layer items are sorted by
// (Start, End) and swept left to right; an item renders only the part of
// its span that no earlier item has already claimed.  Layers are not
// blended.
package compose

import (
	"cmp"
	"slices"

	"github.com/cptaffe/acme-qda/annot"
)

// ActiveState is the UI toggle state a pass is composed under.
type ActiveState struct {
	ActiveCodeSegmentID string
	ActiveMemoID        string
	ShowCodeColors      bool
	// CurrentMatchIndex indexes Layers.Matches; -1 means none.
	CurrentMatchIndex int
}

// DefaultState has no active selection and no current match.
var DefaultState = ActiveState{CurrentMatchIndex: -1}

// ToggleCode returns s with id as the active code segment, or with no
// active code segment if id already was.
func (s ActiveState) ToggleCode(id string) ActiveState {
	if s.ActiveCodeSegmentID == id {
		s.ActiveCodeSegmentID = ""
	} else {
		s.ActiveCodeSegmentID = id
	}
	return s
}

// ToggleMemo returns s with id as the active memo, or with no active memo
// if id already was.
func (s ActiveState) ToggleMemo(id string) ActiveState {
	if s.ActiveMemoID == id {
		s.ActiveMemoID = ""
	} else {
		s.ActiveMemoID = id
	}
	return s
}

// item is one renderable layer entry.  idx is its index within its own
// layer, which the search style needs.
type item struct {
	ann        annot.Annotation
	start, end int
	idx        int
}

// items gathers the renderable entries in layer order: codes, highlights,
// anchored memos, search matches.  The stable sort in Compose keeps this
// order for entries with identical spans.
func items(l annot.Layers) []item {
	out := make([]item, 0, len(l.Codes)+len(l.Highlights)+len(l.Memos)+len(l.Matches))
	for i, c := range l.Codes {
		out = append(out, item{c, c.Start, c.End, i})
	}
	for i, h := range l.Highlights {
		out = append(out, item{h, h.Start, h.End, i})
	}
	for i, m := range l.Memos {
		if !m.Anchored() {
			continue
		}
		out = append(out, item{m, m.Start, m.End, i})
	}
	for i, m := range l.Matches {
		out = append(out, item{m, m.Start, m.End, i})
	}
	return out
}

// Compose returns the display segments of doc under state.  The segments
// are contiguous, non-overlapping and exactly cover [0, doc.Len()).
// Offsets past the end of the document are clamped.
func Compose(doc *annot.Document, layers annot.Layers, state ActiveState) []annot.DisplaySegment {
	n := doc.Len()
	if n == 0 {
		return nil
	}

	list := items(layers)
	slices.SortStableFunc(list, func(a, b item) int {
		return cmp.Or(cmp.Compare(a.start, b.start), cmp.Compare(a.end, b.end))
	})

	var out []annot.DisplaySegment
	plain := func(start, end int) {
		if start < end {
			out = append(out, annot.DisplaySegment{Start: start, End: end, Content: doc.Slice(start, end)})
		}
	}

	last := 0
	for _, it := range list {
		if it.start > last {
			plain(last, min(it.start, n))
			last = min(it.start, n)
		}
		start := max(last, it.start)
		end := min(it.end, n)
		if start < end {
			seg := annot.DisplaySegment{
				Start:   start,
				End:     end,
				Content: doc.Slice(start, end),
				Source:  it.ann,
			}
			seg.Style, seg.Marker = resolve(it, state)
			out = append(out, seg)
		}
		last = max(last, it.end)
	}
	if last < n {
		plain(last, n)
	}
	return out
}
