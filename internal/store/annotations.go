package store

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/cptaffe/acme-qda/annot"
)

func bySpan[T annot.Annotation](a, b T) int {
	as, ae := a.Span()
	bs, be := b.Span()
	return cmp.Or(cmp.Compare(as, bs), cmp.Compare(ae, be))
}

// AddCodeSegment anchors a code to seg's interval.  The id is generated
// when empty and Text is filled from the document.
func (s *Store) AddCodeSegment(seg annot.CodeSegment) (annot.CodeSegment, error) {
	e, err := s.entry(seg.DocumentID)
	if err != nil {
		return annot.CodeSegment{}, err
	}
	if _, ok := s.codes[seg.CodeID]; !ok {
		return annot.CodeSegment{}, fmt.Errorf("%w: %s", ErrUnknownCode, seg.CodeID)
	}
	if err := anchoredIn(e.doc, seg.Start, seg.End); err != nil {
		return annot.CodeSegment{}, err
	}
	if seg.ID == "" {
		seg.ID = newID()
	}
	if s.hasID(seg.ID) {
		return annot.CodeSegment{}, fmt.Errorf("%w: %s", ErrDuplicateID, seg.ID)
	}
	seg.Text = e.doc.Slice(seg.Start, seg.End)
	if err := s.check(seg); err != nil {
		return annot.CodeSegment{}, err
	}
	e.segments = append(e.segments, seg)
	return seg, nil
}

// ReassignCode points an existing segment at a different code.
func (s *Store) ReassignCode(segID, codeID string) error {
	if _, ok := s.codes[codeID]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCode, codeID)
	}
	for _, e := range s.docs {
		for i := range e.segments {
			if e.segments[i].ID == segID {
				e.segments[i].CodeID = codeID
				return nil
			}
		}
	}
	return fmt.Errorf("%w: segment %s", ErrNotFound, segID)
}

// AddHighlight anchors a colored highlight to h's interval.
func (s *Store) AddHighlight(h annot.Highlight) (annot.Highlight, error) {
	e, err := s.entry(h.DocumentID)
	if err != nil {
		return annot.Highlight{}, err
	}
	if err := anchoredIn(e.doc, h.Start, h.End); err != nil {
		return annot.Highlight{}, err
	}
	if h.ID == "" {
		h.ID = newID()
	}
	if s.hasID(h.ID) {
		return annot.Highlight{}, fmt.Errorf("%w: %s", ErrDuplicateID, h.ID)
	}
	h.Color = strings.ToLower(strings.TrimSpace(h.Color))
	h.Text = e.doc.Slice(h.Start, h.End)
	if err := s.check(h); err != nil {
		return annot.Highlight{}, err
	}
	e.highlights = append(e.highlights, h)
	return h, nil
}

// AddMemo attaches m to its document.  Unanchored memos must carry the
// sentinel in both Start and End.
func (s *Store) AddMemo(m annot.Memo) (annot.Memo, error) {
	e, err := s.entry(m.DocumentID)
	if err != nil {
		return annot.Memo{}, err
	}
	if m.Anchored() {
		if err := anchoredIn(e.doc, m.Start, m.End); err != nil {
			return annot.Memo{}, err
		}
	}
	if m.ID == "" {
		m.ID = newID()
	}
	if s.hasID(m.ID) {
		return annot.Memo{}, fmt.Errorf("%w: %s", ErrDuplicateID, m.ID)
	}
	if err := s.check(m); err != nil {
		return annot.Memo{}, err
	}
	e.memos = append(e.memos, m)
	return m, nil
}

// UpdateMemo replaces the title and content of a memo.
func (s *Store) UpdateMemo(memoID, title, content string) error {
	for _, e := range s.docs {
		for i := range e.memos {
			if e.memos[i].ID == memoID {
				e.memos[i].Title = title
				e.memos[i].Content = content
				return nil
			}
		}
	}
	return fmt.Errorf("%w: memo %s", ErrNotFound, memoID)
}

// RemoveAnnotation deletes the code segment, highlight or memo with the
// given id.
func (s *Store) RemoveAnnotation(id string) error {
	for _, e := range s.docs {
		n := len(e.segments) + len(e.highlights) + len(e.memos)
		e.segments = slices.DeleteFunc(e.segments, func(a annot.CodeSegment) bool { return a.ID == id })
		e.highlights = slices.DeleteFunc(e.highlights, func(a annot.Highlight) bool { return a.ID == id })
		e.memos = slices.DeleteFunc(e.memos, func(a annot.Memo) bool { return a.ID == id })
		if len(e.segments)+len(e.highlights)+len(e.memos) < n {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// EraseHighlights deletes every highlight of docID intersecting
// [start, end) and returns the deleted highlights in span order.
func (s *Store) EraseHighlights(docID string, start, end int) ([]annot.Highlight, error) {
	e, err := s.entry(docID)
	if err != nil {
		return nil, err
	}
	if err := anchoredIn(e.doc, start, end); err != nil {
		return nil, err
	}
	sel := annot.Interval{Start: start, End: end}
	var erased []annot.Highlight
	e.highlights = slices.DeleteFunc(e.highlights, func(h annot.Highlight) bool {
		if sel.Intersects(annot.Interval{Start: h.Start, End: h.End}) {
			erased = append(erased, h)
			return true
		}
		return false
	})
	slices.SortStableFunc(erased, bySpan)
	return erased, nil
}

func (s *Store) hasID(id string) bool {
	for _, e := range s.docs {
		if slices.ContainsFunc(e.segments, func(a annot.CodeSegment) bool { return a.ID == id }) ||
			slices.ContainsFunc(e.highlights, func(a annot.Highlight) bool { return a.ID == id }) ||
			slices.ContainsFunc(e.memos, func(a annot.Memo) bool { return a.ID == id }) {
			return true
		}
	}
	return false
}

// ---- read views ----

// CodeSegments returns the code segments of docID sorted by (Start, End).
// The slice is a copy.
func (s *Store) CodeSegments(docID string) []annot.CodeSegment {
	e, ok := s.docs[docID]
	if !ok {
		return nil
	}
	out := slices.Clone(e.segments)
	slices.SortStableFunc(out, bySpan)
	return out
}

// Highlights returns the highlights of docID sorted by (Start, End).
func (s *Store) Highlights(docID string) []annot.Highlight {
	e, ok := s.docs[docID]
	if !ok {
		return nil
	}
	out := slices.Clone(e.highlights)
	slices.SortStableFunc(out, bySpan)
	return out
}

// Memos returns the memos of docID sorted by (Start, End); unanchored
// memos sort first.
func (s *Store) Memos(docID string) []annot.Memo {
	e, ok := s.docs[docID]
	if !ok {
		return nil
	}
	out := slices.Clone(e.memos)
	slices.SortStableFunc(out, bySpan)
	return out
}

// Layers returns the persisted layers of docID as compositor input.  The
// caller adds the search matches.
func (s *Store) Layers(docID string) annot.Layers {
	return annot.Layers{
		Codes:      s.CodeSegments(docID),
		Highlights: s.Highlights(docID),
		Memos:      s.Memos(docID),
	}
}

// AllCodeSegments returns the code segments of every document, keyed by
// document id.
func (s *Store) AllCodeSegments() map[string][]annot.CodeSegment {
	out := make(map[string][]annot.CodeSegment, len(s.docs))
	for id := range s.docs {
		out[id] = s.CodeSegments(id)
	}
	return out
}
