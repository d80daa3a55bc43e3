// Package overlap finds the regions of a document where two or more code
// segments cover the same text, and aggregates those regions across a
// project for the overlap report and the statistics view.
package overlap

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/cptaffe/acme-qda/annot"
	"github.com/cptaffe/acme-qda/internal/logger"
)

// MaxRegionsPerDocument bounds the regions reported for one document.
// Regions past the cap are dropped with a warning.
var MaxRegionsPerDocument = 10000

// CodeLookup resolves a code id to its definition.
type CodeLookup map[string]annot.CodeDefinition

func (l CodeLookup) resolve(id string) annot.CodeDefinition {
	if c, ok := l[id]; ok {
		return c
	}
	return annot.CodeDefinition{ID: id}
}

// Compute returns the maximal overlap regions of doc in ascending order.
// Only segments anchored to doc take part; segments of other documents
// and segments whose interval does not fit doc are ignored.
//
// The document is swept over the segments' boundary points.  Each
// elementary interval between consecutive points that at least two
// segments cover becomes a candidate region whose codes are unique by id
// in segment input order; adjacent candidates with the same code-id set
// are then merged.
func Compute(ctx context.Context, doc *annot.Document, segments []annot.CodeSegment, codes CodeLookup) []annot.OverlapRegion {
	if doc == nil {
		return nil
	}
	segs := make([]annot.CodeSegment, 0, len(segments))
	for _, s := range segments {
		if s.DocumentID != "" && s.DocumentID != doc.ID {
			continue
		}
		if !doc.Valid(s.Start, s.End) {
			continue
		}
		segs = append(segs, s)
	}
	if len(segs) < 2 {
		return nil
	}

	type event struct {
		pos   int
		idx   int
		isEnd bool
	}
	events := make([]event, 0, 2*len(segs))
	for i, s := range segs {
		if s.Start == s.End {
			continue
		}
		events = append(events, event{s.Start, i, false}, event{s.End, i, true})
	}
	slices.SortFunc(events, func(a, b event) int {
		if a.pos != b.pos {
			return a.pos - b.pos
		}
		if a.isEnd != b.isEnd {
			if a.isEnd {
				return -1
			}
			return 1
		}
		return a.idx - b.idx
	})

	// active holds the indices of the segments covering the current
	// elementary interval, in input order.
	var (
		active []int
		elems  []annot.OverlapRegion
	)
	for i := 0; i < len(events); {
		pos := events[i].pos
		for i < len(events) && events[i].pos == pos {
			ev := events[i]
			j, _ := slices.BinarySearch(active, ev.idx)
			if ev.isEnd {
				active = slices.Delete(active, j, j+1)
			} else {
				active = slices.Insert(active, j, ev.idx)
			}
			i++
		}
		if i == len(events) || len(active) < 2 {
			continue
		}
		r := annot.OverlapRegion{Start: pos, End: events[i].pos}
		var seen []string
		for _, k := range active {
			id := segs[k].CodeID
			if slices.Contains(seen, id) {
				continue
			}
			seen = append(seen, id)
			r.Codes = append(r.Codes, codes.resolve(id))
		}
		elems = append(elems, r)
	}

	regions := merge(elems)
	for i := range regions {
		regions[i].Text = doc.Slice(regions[i].Start, regions[i].End)
	}
	if len(regions) > MaxRegionsPerDocument {
		logger.L(ctx).Warn("overlap regions truncated",
			zap.String("document", doc.ID),
			zap.Int("regions", len(regions)),
			zap.Int("cap", MaxRegionsPerDocument))
		regions = regions[:MaxRegionsPerDocument]
	}
	return regions
}

// merge joins each region with its successor while the successor starts
// where it ends and covers the same set of code ids.  The code order of
// the first region of a run is kept.
func merge(elems []annot.OverlapRegion) []annot.OverlapRegion {
	if len(elems) == 0 {
		return nil
	}
	out := []annot.OverlapRegion{elems[0]}
	for _, next := range elems[1:] {
		cur := &out[len(out)-1]
		if next.Start == cur.End && sameCodeSet(cur.Codes, next.Codes) {
			cur.End = next.End
			continue
		}
		out = append(out, next)
	}
	return out
}

func sameCodeSet(a, b []annot.CodeDefinition) bool {
	if len(a) != len(b) {
		return false
	}
	return slices.Equal(sortedIDs(a), sortedIDs(b))
}

func sortedIDs(codes []annot.CodeDefinition) []string {
	ids := make([]string, len(codes))
	for i, c := range codes {
		ids[i] = c.ID
	}
	slices.Sort(ids)
	return ids
}
