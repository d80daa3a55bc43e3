// Package selection maps a host text selection onto document offsets.
//
// The rendered form of a document is fragmented into many text leaves by
// the display segments of the compositor, and the same text can appear
// more than once, so a selection is never located by searching for its
// text.  Instead the leaves under the rendering root are walked in
// document order, counting runes, until the selected leaf is reached.
package selection

import (
	"iter"
	"strings"
	"unicode/utf8"

	"github.com/cptaffe/acme-qda/annot"
)

// NodeID identifies a text leaf of the rendering host.
type NodeID int

// Leaf is one text-bearing node of the rendered document.
type Leaf struct {
	Node NodeID
	Text string
}

// TextLeafIterator yields the text leaves under a rendering root in
// document order.
type TextLeafIterator interface {
	TextLeaves() iter.Seq[Leaf]
}

// Leaves is a TextLeafIterator over an ordered list of text runs.
type Leaves []Leaf

// TextLeaves implements TextLeafIterator.
func (ls Leaves) TextLeaves() iter.Seq[Leaf] {
	return func(yield func(Leaf) bool) {
		for _, l := range ls {
			if !yield(l) {
				return
			}
		}
	}
}

// LeavesFromSegments returns the leaves a compositor pass renders to: one
// leaf per display segment, numbered in order.
func LeavesFromSegments(segs []annot.DisplaySegment) Leaves {
	out := make(Leaves, len(segs))
	for i, s := range segs {
		out[i] = Leaf{Node: NodeID(i), Text: s.Content}
	}
	return out
}

// Point is a position inside a text leaf, in runes.
type Point struct {
	Node   NodeID
	Offset int
}

// Selection is a host selection.  Anchor and Focus may be in either order.
type Selection struct {
	Anchor Point
	Focus  Point
}

// Range is a resolved selection.
type Range struct {
	Text  string
	Start int
	End   int
}

// CharOffsetInContainer returns the absolute rune offset of localOffset
// within node, or -1 if node is not a leaf of root or localOffset falls
// outside it.
func CharOffsetInContainer(root TextLeafIterator, node NodeID, localOffset int) int {
	consumed := 0
	for l := range root.TextLeaves() {
		n := utf8.RuneCountInString(l.Text)
		if l.Node == node {
			if localOffset < 0 || localOffset > n {
				return -1
			}
			return consumed + localOffset
		}
		consumed += n
	}
	return -1
}

// MapSelectionToOffsets resolves sel against root.  It reports false when
// either end lies outside root, the selection is empty or whitespace
// only, or it does not fit doc.
func MapSelectionToOffsets(doc *annot.Document, root TextLeafIterator, sel Selection) (Range, bool) {
	a := CharOffsetInContainer(root, sel.Anchor.Node, sel.Anchor.Offset)
	f := CharOffsetInContainer(root, sel.Focus.Node, sel.Focus.Offset)
	if a < 0 || f < 0 {
		return Range{}, false
	}
	return DotSelection(doc, min(a, f), max(a, f))
}

// DotSelection validates an already absolute selection such as acme's dot.
func DotSelection(doc *annot.Document, q0, q1 int) (Range, bool) {
	if q0 >= q1 || !doc.Valid(q0, q1) {
		return Range{}, false
	}
	text := doc.Slice(q0, q1)
	if strings.TrimSpace(text) == "" {
		return Range{}, false
	}
	return Range{Text: text, Start: q0, End: q1}, true
}

func isWordRune(r rune) bool {
	return 'a' <= r && r <= 'z' ||
		'A' <= r && r <= 'Z' ||
		'0' <= r && r <= '9' ||
		r == '_' || r == '\'' || r == '-'
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '?' || r == '!'
}

// SnapToWordBoundary widens r to whole words: backwards while the
// preceding rune is a word rune, forwards while the following rune is a
// word rune and then over any run of sentence-ending punctuation.
func SnapToWordBoundary(doc *annot.Document, r Range) Range {
	n := doc.Len()
	start, end := max(r.Start, 0), min(r.End, n)
	if start > end {
		return r
	}
	for start > 0 && isWordRune(doc.At(start-1)) {
		start--
	}
	for end < n && isWordRune(doc.At(end)) {
		end++
	}
	for end < n && isSentenceEnd(doc.At(end)) {
		end++
	}
	return Range{Text: doc.Slice(start, end), Start: start, End: end}
}
