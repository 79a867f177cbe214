package metrics

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// ClassScore holds the per-class rows of a Report.
type ClassScore struct {
	Label     string
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// Report is a scikit-learn style classification report for labels 0 and 1.
type Report struct {
	Classes     []ClassScore
	Accuracy    float64
	MacroAvg    ClassScore
	WeightedAvg ClassScore
	Support     int
}

// ClassificationReport builds the per-class precision, recall, f1 and
// support table plus accuracy, macro and weighted averages. Undefined
// scores are reported as 0.
func ClassificationReport(yTrue, yPred *mat.VecDense) (*Report, error) {
	cm, err := ConfusionMatrix(yTrue, yPred)
	if err != nil {
		return nil, err
	}
	s := scoresFromConfusion(cm, false)
	total := s.support[0] + s.support[1]

	r := &Report{Support: total}
	for c := 0; c < 2; c++ {
		r.Classes = append(r.Classes, ClassScore{
			Label:     fmt.Sprintf("%d", c),
			Precision: s.precision[c],
			Recall:    s.recall[c],
			F1:        s.f1[c],
			Support:   s.support[c],
		})
	}
	r.Accuracy = (cm.At(0, 0) + cm.At(1, 1)) / float64(total)

	avg := func(label string, average Average) ClassScore {
		p, _ := combine(s.precision, s.support, average)
		rc, _ := combine(s.recall, s.support, average)
		f, _ := combine(s.f1, s.support, average)
		return ClassScore{Label: label, Precision: p, Recall: rc, F1: f, Support: total}
	}
	r.MacroAvg = avg("macro avg", AverageMacro)
	r.WeightedAvg = avg("weighted avg", AverageWeighted)
	return r, nil
}

// String renders the report in the layout of sklearn's
// classification_report with two digits.
func (r *Report) String() string {
	const width = len("weighted avg")
	var b strings.Builder

	fmt.Fprintf(&b, "%*s  %9s %9s %9s %9s\n\n", width, "", "precision", "recall", "f1-score", "support")
	row := func(c ClassScore) {
		fmt.Fprintf(&b, "%*s  %9.2f %9.2f %9.2f %9d\n", width, c.Label, c.Precision, c.Recall, c.F1, c.Support)
	}
	for _, c := range r.Classes {
		row(c)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%*s  %9s %9s %9.2f %9d\n", width, "accuracy", "", "", r.Accuracy, r.Support)
	row(r.MacroAvg)
	row(r.WeightedAvg)
	return b.String()
}
