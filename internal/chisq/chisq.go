// Package chisq runs the chi-square family of tests on code frequency
// tables: goodness-of-fit, independence and homogeneity, Fisher's exact
// test for 2x2 tables, and Cramér's V as the effect size.
package chisq

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat/combin"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/cptaffe/acme-qda/internal/overlap"
)

var (
	ErrNoData       = errors.New("chisq: no observed data provided")
	ErrZeroTotal    = errors.New("chisq: total observed count is zero")
	ErrShape        = errors.New("chisq: observed data must be a rectangular contingency table")
	ErrNot2x2       = errors.New("chisq: Fisher's exact test is only applicable to 2x2 tables")
	ErrZeroExpected = errors.New("chisq: an expected frequency is zero")
	ErrProportions  = errors.New("chisq: proportions do not fit the observed categories")
)

// Alpha is the significance level of Significant.
const Alpha = 0.05

// Test names a test.
type Test int

const (
	GoodnessOfFit Test = iota
	Independence
	Homogeneity
	FisherExact
)

func (t Test) String() string {
	switch t {
	case GoodnessOfFit:
		return "chi-square goodness-of-fit"
	case Independence:
		return "chi-square independence"
	case Homogeneity:
		return "chi-square homogeneity"
	case FisherExact:
		return "Fisher's exact"
	}
	return "unknown"
}

const (
	noteGoodnessOfFit = "At least one category had an expected frequency below 5, which can reduce the accuracy of this test."
	noteContingency   = "The accuracy of this test may be reduced because one or more cells had an expected frequency below 5."
	noteZeroMargin    = "The odds ratio cannot be calculated because one or more groups have zero observations."
	noteOddsUndefined = "The odds ratio cannot be reliably calculated for this data configuration."
)

// Result is the outcome of one test.
type Result struct {
	Test Test
	// Statistic is chi-square, or the odds ratio for FisherExact.  It is
	// NaN when the odds ratio is undefined.
	Statistic float64
	PValue    float64
	// DF is -1 for FisherExact.
	DF int
	// CramersV is NaN for GoodnessOfFit and FisherExact.
	CramersV   float64
	SampleSize int
	Observed   [][]float64
	// Expected is nil for FisherExact.
	Expected  [][]float64
	RowLabels []string
	ColLabels []string
	Note      string
}

// Significant reports whether PValue is below Alpha.
func (r Result) Significant() bool {
	return r.PValue < Alpha
}

// Interpretation states the conclusion in words.
func (r Result) Interpretation() string {
	var pos, neg string
	switch r.Test {
	case GoodnessOfFit:
		pos = "The category frequencies differ significantly from the expected distribution."
		neg = "There is no statistical evidence that the category frequencies differ from the expected distribution."
	case Independence:
		pos = "The analysis suggests a significant association between the selected codes and documents."
		neg = "There is no statistical evidence of an association between the selected codes and documents."
	case Homogeneity:
		pos = "The frequency distribution of codes differs significantly across the groups."
		neg = "There is no statistical evidence that the frequency distribution of codes differs across the groups."
	default:
		pos = "The analysis reveals a significant association between the variables."
		neg = "There is no statistical evidence of an association between the variables."
	}
	s := "The result is not statistically significant (p >= 0.05), so the null hypothesis is not rejected. " + neg
	if r.Significant() {
		s = "The result is statistically significant (p < 0.05), so the null hypothesis is rejected. " + pos
	}
	if r.Note != "" {
		s += " Note: " + r.Note
	}
	return s
}

// GoodnessOfFitTest tests observed category counts against a distribution.
// proportions are percentages per category; nil means uniform.
func GoodnessOfFitTest(observed []int, labels []string, proportions []float64) (Result, error) {
	if len(observed) == 0 {
		return Result{}, ErrNoData
	}
	obs := floats(observed)
	total := sum(obs)
	if total == 0 {
		return Result{}, ErrZeroTotal
	}

	exp := make([]float64, len(obs))
	switch {
	case proportions == nil:
		for i := range exp {
			exp[i] = total / float64(len(obs))
		}
	case len(proportions) != len(obs):
		return Result{}, fmt.Errorf("%w: %d proportions for %d categories", ErrProportions, len(proportions), len(obs))
	default:
		for i, p := range proportions {
			exp[i] = total * p / 100
		}
		if math.Abs(sum(exp)-total) > 1e-8*total {
			return Result{}, fmt.Errorf("%w: proportions sum to %g%%", ErrProportions, sum(exp)/total*100)
		}
	}

	var chi2 float64
	note := ""
	for i := range obs {
		if exp[i] == 0 {
			return Result{}, fmt.Errorf("%w: category %d", ErrZeroExpected, i)
		}
		if exp[i] < 5 {
			note = noteGoodnessOfFit
		}
		d := obs[i] - exp[i]
		chi2 += d * d / exp[i]
	}
	df := len(obs) - 1
	return Result{
		Test:       GoodnessOfFit,
		Statistic:  chi2,
		PValue:     survival(chi2, df),
		DF:         df,
		CramersV:   math.NaN(),
		SampleSize: int(total),
		Observed:   [][]float64{obs},
		Expected:   [][]float64{exp},
		ColLabels:  labels,
		Note:       note,
	}, nil
}

// IndependenceTest tests whether codes (rows) and documents (columns) of
// t are associated.
func IndependenceTest(t overlap.Table) (Result, error) {
	return contingency(Independence, t)
}

// HomogeneityTest tests whether the code distribution is the same in
// every column group of t.
func HomogeneityTest(t overlap.Table) (Result, error) {
	return contingency(Homogeneity, t)
}

// contingency is a chi-square test on a two-way table.  With one degree
// of freedom Yates' continuity correction is applied.
func contingency(test Test, t overlap.Table) (Result, error) {
	obs, err := observed(t)
	if err != nil {
		return Result{}, err
	}
	rows, cols := len(obs), len(obs[0])
	rowSums, colSums, n := margins(obs)
	if n == 0 {
		return Result{}, ErrZeroTotal
	}

	exp := make([][]float64, rows)
	note := ""
	for i := range exp {
		exp[i] = make([]float64, cols)
		for j := range exp[i] {
			exp[i][j] = rowSums[i] * colSums[j] / n
			if exp[i][j] == 0 {
				return Result{}, fmt.Errorf("%w: cell %d,%d", ErrZeroExpected, i, j)
			}
			if exp[i][j] < 5 {
				note = noteContingency
			}
		}
	}

	df := (rows - 1) * (cols - 1)
	var chi2 float64
	p := 1.0
	if df > 0 {
		for i := range obs {
			for j := range obs[i] {
				d := math.Abs(obs[i][j] - exp[i][j])
				if df == 1 {
					d -= min(0.5, d)
				}
				chi2 += d * d / exp[i][j]
			}
		}
		p = survival(chi2, df)
	}

	return Result{
		Test:       test,
		Statistic:  chi2,
		PValue:     p,
		DF:         df,
		CramersV:   CramersV(chi2, n, rows, cols),
		SampleSize: int(n),
		Observed:   obs,
		Expected:   exp,
		RowLabels:  t.RowLabels,
		ColLabels:  t.ColLabels,
		Note:       note,
	}, nil
}

// FisherExactTest runs the two-sided Fisher's exact test on a 2x2 table.
// Statistic is the sample odds ratio.  Tables with an empty row or column
// give p = 1 and an undefined odds ratio.
func FisherExactTest(t overlap.Table) (Result, error) {
	obs, err := observed(t)
	if err != nil {
		return Result{}, err
	}
	if len(obs) != 2 || len(obs[0]) != 2 {
		return Result{}, fmt.Errorf("%w: got %dx%d", ErrNot2x2, len(obs), len(obs[0]))
	}
	rowSums, colSums, n := margins(obs)
	r := Result{
		Test:       FisherExact,
		DF:         -1,
		CramersV:   math.NaN(),
		SampleSize: int(n),
		Observed:   obs,
		RowLabels:  t.RowLabels,
		ColLabels:  t.ColLabels,
	}
	if slices.Contains(rowSums, 0) || slices.Contains(colSums, 0) {
		r.Statistic, r.PValue, r.Note = math.NaN(), 1, noteZeroMargin
		return r, nil
	}

	a, b, c, d := obs[0][0], obs[0][1], obs[1][0], obs[1][1]
	r.Statistic = a * d / (b * c)
	if math.IsNaN(r.Statistic) || math.IsInf(r.Statistic, 0) {
		r.Statistic, r.Note = math.NaN(), noteOddsUndefined
	}
	r.PValue = fisherP(int(a), int(rowSums[0]), int(rowSums[1]), int(colSums[0]))
	return r, nil
}

// fisherP sums the hypergeometric probabilities of every table with the
// same margins that is no more likely than the observed one.
func fisherP(a, row0, row1, col0 int) float64 {
	total := row0 + row1
	logPMF := func(x int) float64 {
		return combin.LogGeneralizedBinomial(float64(row0), float64(x)) +
			combin.LogGeneralizedBinomial(float64(row1), float64(col0-x)) -
			combin.LogGeneralizedBinomial(float64(total), float64(col0))
	}
	cut := logPMF(a) + math.Log1p(1e-7)
	var p float64
	for x := max(0, col0-row1); x <= min(row0, col0); x++ {
		if lp := logPMF(x); lp <= cut {
			p += math.Exp(lp)
		}
	}
	return min(p, 1)
}

// CramersV is the effect size of a chi-square statistic over an r x c
// table of n observations.
func CramersV(chi2, n float64, rows, cols int) float64 {
	if n == 0 {
		return math.NaN()
	}
	k := min(rows-1, cols-1)
	if k <= 0 {
		return 0
	}
	return math.Sqrt(chi2 / n / float64(k))
}

func survival(chi2 float64, df int) float64 {
	return distuv.ChiSquared{K: float64(df)}.Survival(chi2)
}

func observed(t overlap.Table) ([][]float64, error) {
	if len(t.Counts) == 0 || len(t.Counts[0]) == 0 {
		return nil, ErrNoData
	}
	out := make([][]float64, len(t.Counts))
	for i, row := range t.Counts {
		if len(row) != len(t.Counts[0]) {
			return nil, ErrShape
		}
		out[i] = floats(row)
	}
	return out, nil
}

func margins(obs [][]float64) (rows, cols []float64, n float64) {
	rows = make([]float64, len(obs))
	cols = make([]float64, len(obs[0]))
	for i, row := range obs {
		for j, v := range row {
			rows[i] += v
			cols[j] += v
			n += v
		}
	}
	return rows, cols, n
}

func floats(xs []int) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = float64(x)
	}
	return out
}

func sum(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s
}
