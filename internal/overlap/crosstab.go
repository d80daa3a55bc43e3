package overlap

import "github.com/cptaffe/acme-qda/annot"

// Table is a code-by-document frequency table: Counts[i][j] is the number
// of segments of code RowIDs[i] in document ColIDs[j].  It is the observed
// table the chisq package tests.
type Table struct {
	RowIDs    []string
	RowLabels []string
	ColIDs    []string
	ColLabels []string
	Counts    [][]int
}

// Total returns the sum of all cells.
func (t Table) Total() int {
	n := 0
	for _, row := range t.Counts {
		for _, c := range row {
			n += c
		}
	}
	return n
}

// RowTotals returns the per-code sums.
func (t Table) RowTotals() []int {
	out := make([]int, len(t.Counts))
	for i, row := range t.Counts {
		for _, c := range row {
			out[i] += c
		}
	}
	return out
}

// Crosstab counts the code segments of every code in every document.
// Rows follow codes, columns follow docs.  Segments of unknown codes or
// documents are not counted.
func Crosstab(docs []*annot.Document, segments map[string][]annot.CodeSegment, codes []annot.CodeDefinition) Table {
	t := Table{
		RowIDs:    make([]string, len(codes)),
		RowLabels: make([]string, len(codes)),
		ColIDs:    make([]string, len(docs)),
		ColLabels: make([]string, len(docs)),
		Counts:    make([][]int, len(codes)),
	}
	row := make(map[string]int, len(codes))
	for i, c := range codes {
		t.RowIDs[i] = c.ID
		t.RowLabels[i] = c.Name
		t.Counts[i] = make([]int, len(docs))
		row[c.ID] = i
	}
	for j, d := range docs {
		t.ColIDs[j] = d.ID
		t.ColLabels[j] = d.Title
		if t.ColLabels[j] == "" {
			t.ColLabels[j] = d.ID
		}
		for _, s := range segments[d.ID] {
			if i, ok := row[s.CodeID]; ok {
				t.Counts[i][j]++
			}
		}
	}
	return t
}

// Select returns the sub-table of the given code rows and document
// columns, in the given order.  Unknown ids are skipped; nil keeps all.
func (t Table) Select(rowIDs, colIDs []string) Table {
	rows := pick(t.RowIDs, rowIDs)
	cols := pick(t.ColIDs, colIDs)
	out := Table{Counts: make([][]int, len(rows))}
	for _, j := range cols {
		out.ColIDs = append(out.ColIDs, t.ColIDs[j])
		out.ColLabels = append(out.ColLabels, t.ColLabels[j])
	}
	for k, i := range rows {
		out.RowIDs = append(out.RowIDs, t.RowIDs[i])
		out.RowLabels = append(out.RowLabels, t.RowLabels[i])
		out.Counts[k] = make([]int, len(cols))
		for l, j := range cols {
			out.Counts[k][l] = t.Counts[i][j]
		}
	}
	return out
}

func pick(have, want []string) []int {
	if want == nil {
		idx := make([]int, len(have))
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	var idx []int
	for _, id := range want {
		for i, h := range have {
			if h == id {
				idx = append(idx, i)
				break
			}
		}
	}
	return idx
}
