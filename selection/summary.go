package selection

import (
	"fmt"
	"math"
	"strings"

	"github.com/YuminosukeSato/riskml/dataset"
	"github.com/YuminosukeSato/riskml/statsmodels/discrete"
)

// DefaultTarget is the default-flag column of the HMEQ credit data.
const DefaultTarget = "BAD"

// SummaryRow is one coefficient of a LogisticSummary.
type SummaryRow struct {
	Name      string
	Lower2_5  float64
	Upper97_5 float64
	OddsRatio float64
	PValue    float64
}

// SummaryTable is the rounded coefficient table of a simple logistic
// regression, intercept first.
type SummaryTable struct {
	Rows    []SummaryRow
	Results *discrete.LogitResults
}

// LogisticSummary fits Logit(target ~ const + vars) and tabulates the 95%
// confidence interval and odds ratio of each coefficient rounded to two
// decimals, and its p-value rounded to three. An empty target means
// DefaultTarget.
func LogisticSummary(frame *dataset.Frame, vars []string, target string, opts ...discrete.Option) (*SummaryTable, error) {
	if target == "" {
		target = DefaultTarget
	}
	X, err := frame.Matrix(vars)
	if err != nil {
		return nil, err
	}
	y, err := frame.Target(target)
	if err != nil {
		return nil, err
	}
	res, err := discrete.NewLogit(opts...).Fit(X, y, vars)
	if err != nil {
		return nil, err
	}

	ci := res.ConfInt(0.05)
	odds := res.OddsRatios()
	table := &SummaryTable{Results: res}
	for j, name := range res.Names {
		table.Rows = append(table.Rows, SummaryRow{
			Name:      name,
			Lower2_5:  round(ci[j][0], 2),
			Upper97_5: round(ci[j][1], 2),
			OddsRatio: round(odds[j], 2),
			PValue:    round(res.PValues[j], 3),
		})
	}
	return table, nil
}

// Row returns the row of the named coefficient.
func (t *SummaryTable) Row(name string) (SummaryRow, bool) {
	for _, r := range t.Rows {
		if r.Name == name {
			return r, true
		}
	}
	return SummaryRow{}, false
}

// String renders the table with the columns 2.5%, 97.5%, Odds Ratio and
// p-value.
func (t *SummaryTable) String() string {
	width := 0
	for _, r := range t.Rows {
		if len(r.Name) > width {
			width = len(r.Name)
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-*s %8s %8s %11s %8s\n", width, "", "2.5%", "97.5%", "Odds Ratio", "p-value")
	for _, r := range t.Rows {
		fmt.Fprintf(&b, "%-*s %8.2f %8.2f %11.2f %8.3f\n", width, r.Name, r.Lower2_5, r.Upper97_5, r.OddsRatio, r.PValue)
	}
	return b.String()
}

func round(x float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	return math.Round(x*p) / p
}
