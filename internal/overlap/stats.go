package overlap

import (
	"context"
	"strings"

	"github.com/cptaffe/acme-qda/annot"
)

// DocumentOverlaps is the overlap result of one document.
type DocumentOverlaps struct {
	Document *annot.Document
	Regions  []annot.OverlapRegion
}

// Pair is an unordered pair of code ids and how many regions contain
// both.  A and B keep the orientation in which the pair was first seen.
type Pair struct {
	A, B  annot.CodeDefinition
	Count int
}

// Stats summarises overlaps across a project.
type Stats struct {
	TotalRegions      int
	DocsWithOverlaps  int
	MaxCodesInOverlap int
	// MostFrequentPair is nil when no region holds two distinct codes.
	MostFrequentPair *Pair
}

// ComputeAll runs Compute over every document in order.
func ComputeAll(ctx context.Context, docs []*annot.Document, segments map[string][]annot.CodeSegment, codes CodeLookup) []DocumentOverlaps {
	out := make([]DocumentOverlaps, 0, len(docs))
	for _, d := range docs {
		out = append(out, DocumentOverlaps{Document: d, Regions: Compute(ctx, d, segments[d.ID], codes)})
	}
	return out
}

// Aggregate sums region counts and counts every unordered pair of codes
// present in each region.  The most frequent pair wins ties by the order
// in which pairs were first encountered.
func Aggregate(all []DocumentOverlaps) Stats {
	var st Stats
	type pairKey struct{ lo, hi string }
	counts := make(map[pairKey]*Pair)
	var order []pairKey

	for _, d := range all {
		if len(d.Regions) > 0 {
			st.DocsWithOverlaps++
		}
		st.TotalRegions += len(d.Regions)
		for _, r := range d.Regions {
			st.MaxCodesInOverlap = max(st.MaxCodesInOverlap, len(r.Codes))
			if len(r.Codes) < 2 {
				continue
			}
			for i := 0; i < len(r.Codes); i++ {
				for j := i + 1; j < len(r.Codes); j++ {
					a, b := r.Codes[i], r.Codes[j]
					k := pairKey{a.ID, b.ID}
					if k.hi < k.lo {
						k.lo, k.hi = k.hi, k.lo
					}
					p, ok := counts[k]
					if !ok {
						p = &Pair{A: a, B: b}
						counts[k] = p
						order = append(order, k)
					}
					p.Count++
				}
			}
		}
	}

	for _, k := range order {
		p := counts[k]
		if st.MostFrequentPair == nil || p.Count > st.MostFrequentPair.Count {
			st.MostFrequentPair = p
		}
	}
	return st
}

// ReportRow is one line of the overlap report handed to the exporter.
type ReportRow struct {
	Document string
	Start    int
	End      int
	Text     string
	Codes    string
}

// Report flattens per-document overlaps into exporter rows, documents in
// order and regions ascending.
func Report(all []DocumentOverlaps) []ReportRow {
	var rows []ReportRow
	for _, d := range all {
		title := d.Document.Title
		if title == "" {
			title = d.Document.ID
		}
		for _, r := range d.Regions {
			names := make([]string, len(r.Codes))
			for i, c := range r.Codes {
				names[i] = c.Name
				if names[i] == "" {
					names[i] = c.ID
				}
			}
			rows = append(rows, ReportRow{
				Document: title,
				Start:    r.Start,
				End:      r.End,
				Text:     r.Text,
				Codes:    strings.Join(names, ", "),
			})
		}
	}
	return rows
}
