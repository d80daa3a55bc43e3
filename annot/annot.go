// Package annot defines the annotation types shared by the acme-qda store,
// the overlap analyzer and the render compositor.
//
// All offsets are rune offsets into a document's text; End is exclusive.
// This is the unit acme reports for dot and the unit acme-styles runs use.
package annot

import "golang.org/x/exp/utf8string"

// Unanchored is the Start/End sentinel of a document-level memo.
const Unanchored = -1

// Kind tags the variant of an Annotation.
type Kind int

const (
	KindCode Kind = iota
	KindHighlight
	KindMemo
	KindSearch
)

func (k Kind) String() string {
	switch k {
	case KindCode:
		return "code"
	case KindHighlight:
		return "highlight"
	case KindMemo:
		return "memo"
	case KindSearch:
		return "search"
	}
	return "unknown"
}

// Annotation is the projection every renderable layer item shares.
type Annotation interface {
	Kind() Kind
	Span() (start, end int)
}

// Document is an immutable text document.
type Document struct {
	ID    string
	Title string
	Text  string

	runes *utf8string.String
}

// NewDocument returns a document over text.
func NewDocument(id, title, text string) *Document {
	return &Document{ID: id, Title: title, Text: text, runes: utf8string.NewString(text)}
}

func (d *Document) str() *utf8string.String {
	if d.runes == nil {
		d.runes = utf8string.NewString(d.Text)
	}
	return d.runes
}

// Len returns the length of the document in runes.
func (d *Document) Len() int {
	if d == nil {
		return 0
	}
	return d.str().RuneCount()
}

// At returns the rune at offset i.
func (d *Document) At(i int) rune {
	return d.str().At(i)
}

// Slice returns the text of [start, end), clamped to the document.
func (d *Document) Slice(start, end int) string {
	n := d.Len()
	start = max(start, 0)
	end = min(end, n)
	if start >= end {
		return ""
	}
	return d.str().Slice(start, end)
}

// Valid reports whether [start, end) is an anchored interval inside d.
func (d *Document) Valid(start, end int) bool {
	return 0 <= start && start <= end && end <= d.Len()
}

// CodeDefinition is a qualitative code owned by the project.
type CodeDefinition struct {
	ID          string `toml:"id" validate:"required"`
	Name        string `toml:"name" validate:"required"`
	Description string `toml:"description,omitempty"`
	Color       string `toml:"color,omitempty"`
}

// CodeSegment assigns a code to a document interval.
type CodeSegment struct {
	ID         string `toml:"id" validate:"required"`
	DocumentID string `toml:"document" validate:"required"`
	Start      int    `toml:"start" validate:"gte=0,ltefield=End"`
	End        int    `toml:"end"`
	CodeID     string `toml:"code" validate:"required"`
	Text       string `toml:"text,omitempty"`
}

func (s CodeSegment) Kind() Kind             { return KindCode }
func (s CodeSegment) Span() (start, end int) { return s.Start, s.End }

// Highlight is a free-form colored span.
type Highlight struct {
	ID         string `toml:"id" validate:"required"`
	DocumentID string `toml:"document" validate:"required"`
	Start      int    `toml:"start" validate:"gte=0,ltefield=End"`
	End        int    `toml:"end"`
	Color      string `toml:"color" validate:"required,hexcolor|oneof=yellow green blue pink orange purple red gray"`
	Text       string `toml:"text,omitempty"`
}

func (h Highlight) Kind() Kind             { return KindHighlight }
func (h Highlight) Span() (start, end int) { return h.Start, h.End }

// Memo is a note attached to a document interval, or to the whole
// document when Start and End are Unanchored.
type Memo struct {
	ID         string `toml:"id" validate:"required"`
	DocumentID string `toml:"document" validate:"required"`
	Start      int    `toml:"start"`
	End        int    `toml:"end"`
	Title      string `toml:"title"`
	Content    string `toml:"content"`
}

func (m Memo) Kind() Kind             { return KindMemo }
func (m Memo) Span() (start, end int) { return m.Start, m.End }

// Anchored reports whether m is attached to a real interval.
func (m Memo) Anchored() bool {
	return m.Start != Unanchored || m.End != Unanchored
}

// SearchMatch is one hit of the current search query.
type SearchMatch struct {
	Start int
	End   int
	Text  string
}

func (m SearchMatch) Kind() Kind             { return KindSearch }
func (m SearchMatch) Span() (start, end int) { return m.Start, m.End }

// OverlapRegion is a maximal run of text covered by the same set of two
// or more codes.
type OverlapRegion struct {
	Start int
	End   int
	Text  string
	Codes []CodeDefinition
}

// CodeIDs returns the ids of r.Codes in order.
func (r OverlapRegion) CodeIDs() []string {
	ids := make([]string, len(r.Codes))
	for i, c := range r.Codes {
		ids[i] = c.ID
	}
	return ids
}

// DisplaySegment is one atomic chunk of composed output.  Source is nil
// for plain text.  Style names a palette entry; it is empty for plain
// text and for segments whose source shows no tint in the current state.
type DisplaySegment struct {
	Start   int
	End     int
	Content string
	Source  Annotation
	Style   string
	Marker  string
}

// Interval is a half-open rune interval.
type Interval struct {
	Start int
	End   int
}

// Intersects reports whether a and b share at least one rune.
func (a Interval) Intersects(b Interval) bool {
	return max(a.Start, b.Start) < min(a.End, b.End)
}

// Layers is the input of one compositor pass over a document.
type Layers struct {
	Codes      []CodeSegment
	Highlights []Highlight
	Memos      []Memo
	Matches    []SearchMatch
}
