package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cptaffe/acme-qda/annot"
	"github.com/cptaffe/acme-qda/internal/chisq"
	"github.com/cptaffe/acme-qda/internal/overlap"
)

var (
	overlapsCSV bool
	statsTest   string
	statsCodes  []string
	statsDocs   []string
	proportions []float64
)

var overlapsCmd = &cobra.Command{
	Use:   "overlaps",
	Short: "List regions where two or more code segments overlap",
	Long:  "List overlap regions of --doc, or of every document when --doc is not set.",
	Args:  cobra.NoArgs,
	RunE:  runOverlaps,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarise overlaps and code frequencies across the project",
	Long: "stats prints overlap totals and the code by document frequency table, then runs\n" +
		"--test on the table: independence, homogeneity, fisher (2x2 only), gof (code\n" +
		"totals against --proportions, uniform by default) or none.",
	Args: cobra.NoArgs,
	RunE: runStats,
}

var codesCmd = &cobra.Command{
	Use:   "codes",
	Short: "List code definitions",
	Args:  cobra.NoArgs,
	RunE:  runCodes,
}

func init() {
	overlapsCmd.Flags().BoolVar(&overlapsCSV, "csv", false, "write CSV instead of aligned columns")
	statsCmd.Flags().StringVar(&statsTest, "test", "independence", "independence, homogeneity, fisher, gof or none")
	statsCmd.Flags().StringSliceVar(&statsCodes, "codes", nil, "restrict the table to these codes (names or ids)")
	statsCmd.Flags().StringSliceVar(&statsDocs, "docs", nil, "restrict the table to these documents (titles or ids)")
	statsCmd.Flags().Float64SliceVar(&proportions, "proportions", nil, "expected percentage per code for gof")
}

func runOverlaps(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	s, err := loadSession(ctx, false)
	if err != nil {
		return err
	}
	docs := s.store.Documents()
	if docFlag != "" {
		d, err := s.document(nil)
		if err != nil {
			return err
		}
		docs = []*annot.Document{d}
	}
	all := overlap.ComputeAll(ctx, docs, s.store.AllCodeSegments(), s.store.CodeMap())
	rows := overlap.Report(all)
	if overlapsCSV {
		return writeReportCSV(cmd.OutOrStdout(), rows)
	}
	return writeReport(cmd.OutOrStdout(), rows)
}

func writeReport(w io.Writer, rows []overlap.ReportRow) error {
	tw := tabwriter.NewWriter(w, 0, 8, 1, ' ', 0)
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%q\n", r.Document, r.Start, r.End, r.Codes, r.Text)
	}
	return tw.Flush()
}

func writeReportCSV(w io.Writer, rows []overlap.ReportRow) error {
	cw := csv.NewWriter(w)
	cw.Write([]string{"document", "start", "end", "text", "codes"}) //nolint:errcheck
	for _, r := range rows {
		cw.Write([]string{r.Document, strconv.Itoa(r.Start), strconv.Itoa(r.End), r.Text, r.Codes}) //nolint:errcheck
	}
	cw.Flush()
	return cw.Error()
}

func runStats(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	s, err := loadSession(ctx, false)
	if err != nil {
		return err
	}
	docs := s.store.Documents()
	segs := s.store.AllCodeSegments()
	st := overlap.Aggregate(overlap.ComputeAll(ctx, docs, segs, s.store.CodeMap()))
	tab, err := selectTable(s, overlap.Crosstab(docs, segs, s.store.Codes()))
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if err := writeStats(out, st, tab); err != nil {
		return err
	}

	var r chisq.Result
	switch statsTest {
	case "none":
		return nil
	case "independence":
		r, err = chisq.IndependenceTest(tab)
	case "homogeneity":
		r, err = chisq.HomogeneityTest(tab)
	case "fisher":
		r, err = chisq.FisherExactTest(tab)
	case "gof":
		r, err = chisq.GoodnessOfFitTest(tab.RowTotals(), tab.RowLabels, proportions)
	default:
		return fmt.Errorf("unknown test %q", statsTest)
	}
	fmt.Fprintln(out)
	if err != nil {
		fmt.Fprintf(out, "%s: %v\n", statsTest, err)
		return nil
	}
	writeTest(out, r)
	return nil
}

// selectTable narrows t to --codes and --docs.
func selectTable(s *session, t overlap.Table) (overlap.Table, error) {
	var rows, cols []string
	for _, name := range statsCodes {
		c, ok := s.store.CodeByName(name)
		if !ok {
			if c, ok = s.store.Code(name); !ok {
				return t, fmt.Errorf("no code %q", name)
			}
		}
		rows = append(rows, c.ID)
	}
	for _, name := range statsDocs {
		d, ok := s.store.Document(name)
		if !ok {
			if d, ok = s.store.DocumentByTitle(name); !ok {
				return t, fmt.Errorf("no document %q", name)
			}
		}
		cols = append(cols, d.ID)
	}
	return t.Select(rows, cols), nil
}

func writeTest(w io.Writer, r chisq.Result) {
	label := "chi2"
	if r.Test == chisq.FisherExact {
		label = "odds ratio"
	}
	fmt.Fprintf(w, "%s test: %s=%s p=%.4g", r.Test, label, number(r.Statistic), r.PValue)
	if r.DF >= 0 {
		fmt.Fprintf(w, " df=%d", r.DF)
	}
	if !math.IsNaN(r.CramersV) {
		fmt.Fprintf(w, " V=%.4f", r.CramersV)
	}
	fmt.Fprintf(w, " n=%d\n", r.SampleSize)
	fmt.Fprintln(w, r.Interpretation())
}

func number(f float64) string {
	if math.IsNaN(f) {
		return "n/a"
	}
	return strconv.FormatFloat(f, 'f', 4, 64)
}

func writeStats(w io.Writer, st overlap.Stats, t overlap.Table) error {
	fmt.Fprintf(w, "overlap regions: %d\n", st.TotalRegions)
	fmt.Fprintf(w, "documents with overlaps: %d\n", st.DocsWithOverlaps)
	fmt.Fprintf(w, "most codes in one region: %d\n", st.MaxCodesInOverlap)
	if p := st.MostFrequentPair; p != nil {
		fmt.Fprintf(w, "most frequent pair: %s + %s (%d)\n", p.A.Name, p.B.Name, p.Count)
	}
	if len(t.RowIDs) == 0 {
		return nil
	}

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 8, 1, ' ', tabwriter.AlignRight)
	fmt.Fprint(tw, "\t")
	for _, c := range t.ColLabels {
		fmt.Fprintf(tw, "%s\t", c)
	}
	fmt.Fprint(tw, "total\t\n")
	totals := t.RowTotals()
	for i, label := range t.RowLabels {
		fmt.Fprintf(tw, "%s\t", label)
		for _, n := range t.Counts[i] {
			fmt.Fprintf(tw, "%d\t", n)
		}
		fmt.Fprintf(tw, "%d\t\n", totals[i])
	}
	return tw.Flush()
}

func runCodes(cmd *cobra.Command, _ []string) error {
	s, err := loadSession(cmd.Context(), false)
	if err != nil {
		return err
	}
	counts := make(map[string]int)
	for _, segs := range s.store.AllCodeSegments() {
		for _, seg := range segs {
			counts[seg.CodeID]++
		}
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 1, ' ', 0)
	for _, c := range s.store.Codes() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", c.ID, c.Name, c.Color, counts[c.ID], c.Description)
	}
	return tw.Flush()
}
