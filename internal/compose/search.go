package compose

import (
	"unicode"

	"github.com/cptaffe/acme-qda/annot"
)

// Search returns the non-overlapping, case-insensitive matches of query
// in doc, in ascending order.  An empty or blank query matches nothing.
func Search(doc *annot.Document, query string) []annot.SearchMatch {
	q := []rune(query)
	blank := true
	for _, r := range q {
		if !unicode.IsSpace(r) {
			blank = false
			break
		}
	}
	if blank {
		return nil
	}
	for i, r := range q {
		q[i] = unicode.ToLower(r)
	}

	n := doc.Len()
	text := make([]rune, 0, n)
	for _, r := range doc.Text {
		text = append(text, unicode.ToLower(r))
	}

	var out []annot.SearchMatch
	for i := 0; i+len(q) <= n; {
		if match(text[i:], q) {
			out = append(out, annot.SearchMatch{Start: i, End: i + len(q), Text: doc.Slice(i, i+len(q))})
			i += len(q)
			continue
		}
		i++
	}
	return out
}

func match(text, q []rune) bool {
	for i, r := range q {
		if text[i] != r {
			return false
		}
	}
	return true
}

// ReconcileMatchIndex picks the current match after the match set changes
// from prev to next.  The previously current match stays current if next
// holds a match with its exact offsets; otherwise the first match becomes
// current, or -1 if there are no matches.
func ReconcileMatchIndex(prev []annot.SearchMatch, prevIdx int, next []annot.SearchMatch) int {
	if len(next) == 0 {
		return -1
	}
	if prevIdx >= 0 && prevIdx < len(prev) {
		cur := prev[prevIdx]
		for i, m := range next {
			if m.Start == cur.Start && m.End == cur.End {
				return i
			}
		}
	}
	return 0
}

// Step moves the current match index by delta, wrapping around.
func Step(matches []annot.SearchMatch, idx, delta int) int {
	n := len(matches)
	if n == 0 {
		return -1
	}
	if idx < 0 {
		idx = 0
		if delta > 0 {
			delta--
		}
	}
	return ((idx+delta)%n + n) % n
}
