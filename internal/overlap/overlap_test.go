package overlap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cptaffe/acme-qda/annot"
	"github.com/cptaffe/acme-qda/internal/logger"
)

var testCodes = CodeLookup{
	"x": {ID: "x", Name: "X"},
	"y": {ID: "y", Name: "Y"},
	"z": {ID: "z", Name: "Z"},
}

func seg(id string, start, end int, code string) annot.CodeSegment {
	return annot.CodeSegment{ID: id, DocumentID: "d1", Start: start, End: end, CodeID: code}
}

type span struct {
	start, end int
	codes      []string
}

func spans(rs []annot.OverlapRegion) []span {
	var out []span
	for _, r := range rs {
		out = append(out, span{r.Start, r.End, r.CodeIDs()})
	}
	return out
}

func TestCompute(t *testing.T) {
	doc := annot.NewDocument("d1", "", "abcdefghijklmnopqrst")

	tests := []struct {
		name string
		segs []annot.CodeSegment
		want []span
	}{
		{
			name: "none",
			segs: nil,
		},
		{
			name: "single segment",
			segs: []annot.CodeSegment{seg("a", 0, 10, "x")},
		},
		{
			name: "touching is not overlapping",
			segs: []annot.CodeSegment{seg("a", 0, 5, "x"), seg("b", 5, 10, "y")},
		},
		{
			name: "partial overlap",
			segs: []annot.CodeSegment{seg("a", 0, 10, "x"), seg("b", 5, 15, "y")},
			want: []span{{5, 10, []string{"x", "y"}}},
		},
		{
			name: "adjacent identical code sets merge",
			segs: []annot.CodeSegment{
				seg("s1", 0, 5, "x"), seg("s2", 0, 5, "y"),
				seg("s3", 5, 10, "x"), seg("s4", 5, 10, "y"),
			},
			want: []span{{0, 10, []string{"x", "y"}}},
		},
		{
			name: "merge ignores code order",
			segs: []annot.CodeSegment{
				seg("s1", 0, 5, "x"), seg("s2", 0, 5, "y"),
				seg("s3", 5, 10, "y"), seg("s4", 5, 10, "x"),
			},
			want: []span{{0, 10, []string{"x", "y"}}},
		},
		{
			name: "nested",
			segs: []annot.CodeSegment{seg("a", 0, 10, "x"), seg("b", 2, 4, "y"), seg("c", 3, 8, "z")},
			want: []span{
				{2, 3, []string{"x", "y"}},
				{3, 4, []string{"x", "y", "z"}},
				{4, 8, []string{"x", "z"}},
			},
		},
		{
			name: "codes in segment input order",
			segs: []annot.CodeSegment{seg("a", 2, 6, "y"), seg("b", 0, 6, "x")},
			want: []span{{2, 6, []string{"y", "x"}}},
		},
		{
			name: "same code twice",
			segs: []annot.CodeSegment{seg("a", 0, 5, "x"), seg("b", 2, 8, "x")},
			want: []span{{2, 5, []string{"x"}}},
		},
		{
			name: "gap splits regions",
			segs: []annot.CodeSegment{
				seg("a", 0, 4, "x"), seg("b", 0, 4, "y"),
				seg("c", 6, 9, "x"), seg("d", 6, 9, "y"),
			},
			want: []span{{0, 4, []string{"x", "y"}}, {6, 9, []string{"x", "y"}}},
		},
		{
			name: "zero length segment does not split",
			segs: []annot.CodeSegment{seg("a", 0, 10, "x"), seg("b", 0, 10, "y"), seg("c", 5, 5, "z")},
			want: []span{{0, 10, []string{"x", "y"}}},
		},
		{
			name: "other documents and stale offsets ignored",
			segs: []annot.CodeSegment{
				seg("a", 0, 10, "x"),
				{ID: "b", DocumentID: "d2", Start: 0, End: 10, CodeID: "y"},
				seg("c", 5, 40, "z"),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(context.Background(), doc, tt.segs, testCodes)
			assert.Equal(t, tt.want, spans(got))
		})
	}
}

func TestComputeRegionProperties(t *testing.T) {
	doc := annot.NewDocument("d1", "", "Wörter über Grenzen, ñandú y café.")
	segs := []annot.CodeSegment{
		seg("a", 0, 12, "x"), seg("b", 3, 20, "y"), seg("c", 7, 9, "z"),
		seg("d", 15, 30, "x"), seg("e", 25, 33, "z"), seg("f", 0, 2, "y"),
	}

	got := Compute(context.Background(), doc, segs, testCodes)
	require.NotEmpty(t, got)
	prevEnd := -1
	for _, r := range got {
		assert.Equal(t, doc.Slice(r.Start, r.End), r.Text)
		assert.Less(t, r.Start, r.End)
		assert.GreaterOrEqual(t, r.Start, prevEnd, "regions ascending and disjoint")
		prevEnd = r.End
	}

	again := Compute(context.Background(), doc, segs, testCodes)
	assert.Equal(t, got, again)
}

func TestComputeResolvesCodes(t *testing.T) {
	doc := annot.NewDocument("d1", "", "abcdefghij")
	got := Compute(context.Background(), doc,
		[]annot.CodeSegment{seg("a", 0, 6, "x"), seg("b", 3, 9, "gone")}, testCodes)

	require.Len(t, got, 1)
	assert.Equal(t, "def", got[0].Text)
	assert.Equal(t, []annot.CodeDefinition{{ID: "x", Name: "X"}, {ID: "gone"}}, got[0].Codes)
}

func TestComputeNilDocument(t *testing.T) {
	assert.Nil(t, Compute(context.Background(), nil, []annot.CodeSegment{seg("a", 0, 1, "x"), seg("b", 0, 1, "y")}, testCodes))
}

func TestComputeTruncates(t *testing.T) {
	prev := MaxRegionsPerDocument
	MaxRegionsPerDocument = 3
	t.Cleanup(func() { MaxRegionsPerDocument = prev })

	core, logs := observer.New(zap.WarnLevel)
	ctx := logger.NewContext(context.Background(), zap.New(core))

	doc := annot.NewDocument("d1", "", "abcdefghijklmnopqrst")
	var segs []annot.CodeSegment
	for i := 0; i < 5; i++ {
		segs = append(segs, seg("", 3*i, 3*i+2, "x"), seg("", 3*i, 3*i+2, "y"))
	}

	got := Compute(ctx, doc, segs, testCodes)
	assert.Equal(t, []span{
		{0, 2, []string{"x", "y"}},
		{3, 5, []string{"x", "y"}},
		{6, 8, []string{"x", "y"}},
	}, spans(got))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "overlap regions truncated", entry.Message)
	assert.Equal(t, int64(5), entry.ContextMap()["regions"])
	assert.Equal(t, int64(3), entry.ContextMap()["cap"])

	MaxRegionsPerDocument = 5
	assert.Len(t, Compute(ctx, doc, segs, testCodes), 5)
	assert.Equal(t, 1, logs.Len(), "no warning at the cap")
}
