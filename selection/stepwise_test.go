package selection

import (
	"math"
	"testing"

	"github.com/YuminosukeSato/riskml/dataset"
	"github.com/YuminosukeSato/riskml/pkg/errors"
	"github.com/YuminosukeSato/riskml/pkg/log"
)

// creditFrame builds 160 rows over four (X1, X2) cells of 40. X1 and X2
// both raise the default rate, X1 more strongly. NOISE takes 0 and 1
// equally often inside every (X1, X2, BAD) cell, so it carries no
// information and its Wald p-value is 1.
func creditFrame(t *testing.T) *dataset.Frame {
	t.Helper()
	cells := []struct {
		x1, x2    float64
		positives int
	}{
		{0, 0, 4},
		{0, 1, 12},
		{1, 0, 16},
		{1, 1, 28},
	}
	cols := map[string][]float64{}
	for _, c := range cells {
		for i := 0; i < 40; i++ {
			bad := 0.0
			if i < c.positives {
				bad = 1
			}
			// 各セル内で陽性・陰性それぞれ半数ずつ NOISE=1
			var noise float64
			if i < c.positives {
				noise = float64(i % 2)
			} else {
				noise = float64((i - c.positives) % 2)
			}
			cols["BAD"] = append(cols["BAD"], bad)
			cols["NOISE"] = append(cols["NOISE"], noise)
			cols["X1"] = append(cols["X1"], c.x1)
			cols["X2"] = append(cols["X2"], c.x2)
		}
	}
	f, err := dataset.FromColumns(cols, []string{"BAD", "NOISE", "X1", "X2"})
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func silenceWarnings(t *testing.T) *[]error {
	t.Helper()
	var warnings []error
	errors.SetZerologWarnFunc(func(w error) { warnings = append(warnings, w) })
	t.Cleanup(func() { errors.SetZerologWarnFunc(nil) })
	return &warnings
}

func TestStepwiseSelection(t *testing.T) {
	silenceWarnings(t)
	logger, _ := log.NewTestLogger(log.LevelDebug)

	res, err := StepwiseSelection(creditFrame(t), "BAD", WithLogger(logger))
	if err != nil {
		t.Fatalf("StepwiseSelection failed: %v", err)
	}

	want := []string{"X1", "X2"}
	if len(res.Selected) != len(want) {
		t.Fatalf("Selected = %v, want %v", res.Selected, want)
	}
	for i := range want {
		if res.Selected[i] != want[i] {
			t.Errorf("Selected[%d] = %s, want %s", i, res.Selected[i], want[i])
		}
	}
	if res.NumColumns != 4 {
		t.Errorf("NumColumns = %d, want 4", res.NumColumns)
	}
	if res.Oscillated {
		t.Error("did not expect oscillation")
	}
	if len(res.Steps) != 2 || res.Steps[0].Kind != StepAdd || res.Steps[0].PValue >= 0.05 {
		t.Errorf("unexpected steps %+v", res.Steps)
	}

	if !logger.ContainsMessage("adding feature") || !logger.ContainsField(log.FeatureKey, "X1") {
		t.Error("expected verbose log of the forward step")
	}
}

func TestStepwiseSelection_SubsetInvariant(t *testing.T) {
	silenceWarnings(t)
	frame := creditFrame(t)
	res, err := StepwiseSelection(frame, "BAD", WithVerbose(false))
	if err != nil {
		t.Fatal(err)
	}
	seen := map[string]bool{}
	for _, s := range res.Selected {
		if !frame.HasColumn(s) || s == "BAD" {
			t.Errorf("selected %q is not a feature column", s)
		}
		if seen[s] {
			t.Errorf("duplicate %q", s)
		}
		seen[s] = true
	}
}

func TestStepwiseSelection_Oscillation(t *testing.T) {
	warnings := silenceWarnings(t)

	// NOISE は閾値1.01で必ず追加され、0.5で必ず削除される
	res, err := StepwiseSelection(creditFrame(t), "BAD",
		WithThresholdIn(1.01),
		WithThresholdOut(0.5),
		WithVerbose(false),
	)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Oscillated {
		t.Fatal("expected oscillation to be detected")
	}
	if len(res.Selected) != 2 || res.Selected[0] != "X1" || res.Selected[1] != "X2" {
		t.Errorf("Selected = %v, want [X1 X2]", res.Selected)
	}

	found := false
	for _, w := range *warnings {
		var ow *errors.OscillationWarning
		if errors.As(w, &ow) && ow.Feature == "NOISE" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected OscillationWarning on NOISE, got %v", *warnings)
	}
}

func TestStepwiseSelection_MaxSteps(t *testing.T) {
	silenceWarnings(t)
	res, err := StepwiseSelection(creditFrame(t), "BAD", WithMaxSteps(1), WithVerbose(false))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Selected) != 1 || res.Selected[0] != "X1" {
		t.Errorf("Selected = %v, want [X1]", res.Selected)
	}
}

func TestStepwiseSelection_InvalidTarget(t *testing.T) {
	frame := creditFrame(t)
	if _, err := StepwiseSelection(frame, "X3"); !errors.Is(err, errors.ErrUnknownColumn) {
		t.Errorf("expected ErrUnknownColumn, got %v", err)
	}

	f, _ := dataset.FromColumns(map[string][]float64{"y": {0, 1, 2}, "x": {1, 2, 3}}, []string{"y", "x"})
	if _, err := StepwiseSelection(f, "y"); !errors.Is(err, errors.ErrNotBinary) {
		t.Errorf("expected ErrNotBinary, got %v", err)
	}
}

func TestLogisticSummary(t *testing.T) {
	silenceWarnings(t)
	table, err := LogisticSummary(creditFrame(t), []string{"X1", "X2"}, "")
	if err != nil {
		t.Fatalf("LogisticSummary failed: %v", err)
	}
	if len(table.Rows) != 3 || table.Rows[0].Name != "const" {
		t.Fatalf("unexpected rows %+v", table.Rows)
	}

	x1, ok := table.Row("X1")
	if !ok {
		t.Fatal("missing X1 row")
	}
	if x1.OddsRatio <= 1 || x1.Lower2_5 <= 0 || x1.PValue >= 0.05 {
		t.Errorf("X1 should be a significant risk factor, got %+v", x1)
	}
	for _, r := range table.Rows {
		if v := r.OddsRatio * 100; math.Abs(v-math.Round(v)) > 1e-6 {
			t.Errorf("odds ratio %v is not rounded to 2 decimals", r.OddsRatio)
		}
		if v := r.PValue * 1000; math.Abs(v-math.Round(v)) > 1e-6 {
			t.Errorf("p-value %v is not rounded to 3 decimals", r.PValue)
		}
	}
	if s := table.String(); len(s) == 0 {
		t.Error("empty rendering")
	}
}

// scriptedSteps は反復ごとに決められた追加・削除を返す
type scriptedSteps struct {
	adds, removes []string
	nf, nb        int
}

func (s *scriptedSteps) forward(selected, remaining []string) (string, float64) {
	var v string
	if s.nf < len(s.adds) {
		v = s.adds[s.nf]
	}
	s.nf++
	if v == "" {
		return "", math.Inf(1)
	}
	return v, 0.001
}

func (s *scriptedSteps) backward(selected []string) (string, float64, error) {
	var v string
	if s.nb < len(s.removes) {
		v = s.removes[s.nb]
	}
	s.nb++
	if v == "" {
		return selected[0], 0.001, nil
	}
	return v, 0.9, nil
}

func stepConfig() *config {
	return &config{thresholdIn: 0.05, thresholdOut: 0.05, maxSteps: 20}
}

func TestRunStepwise_MidIterationSetIsNotACycle(t *testing.T) {
	silenceWarnings(t)
	logger, _ := log.NewTestLogger(log.LevelDebug)

	// {a,b} は反復2の前進ステップ直後に現れ、反復4の終了時に初めて確定する
	m := &scriptedSteps{
		adds:    []string{"a", "b", "z", "a", "c"},
		removes: []string{"", "a", "", "z", ""},
	}
	res := &StepwiseResult{}
	if err := runStepwise(m, []string{"a", "b", "c", "z"}, stepConfig(), logger, res); err != nil {
		t.Fatal(err)
	}
	if res.Oscillated {
		t.Fatalf("did not expect oscillation, steps %+v", res.Steps)
	}
	want := []string{"b", "a", "c"}
	if len(res.Selected) != len(want) {
		t.Fatalf("Selected = %v, want %v", res.Selected, want)
	}
	for i := range want {
		if res.Selected[i] != want[i] {
			t.Errorf("Selected[%d] = %s, want %s", i, res.Selected[i], want[i])
		}
	}
}

func TestRunStepwise_AddRemoveCycle(t *testing.T) {
	warnings := silenceWarnings(t)
	logger, _ := log.NewTestLogger(log.LevelDebug)

	m := &scriptedSteps{
		adds:    []string{"a", "a", "a"},
		removes: []string{"a", "a", "a"},
	}
	res := &StepwiseResult{}
	if err := runStepwise(m, []string{"a", "b"}, stepConfig(), logger, res); err != nil {
		t.Fatal(err)
	}
	if !res.Oscillated {
		t.Fatal("expected oscillation back to the empty set")
	}
	if len(res.Selected) != 0 {
		t.Errorf("Selected = %v, want []", res.Selected)
	}
	if m.nf != 1 {
		t.Errorf("forward steps = %d, want 1", m.nf)
	}
	if len(*warnings) != 1 {
		t.Errorf("warnings = %v, want one OscillationWarning", *warnings)
	}
}

func TestBestCandidate_SkipsUndefinedPValues(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelDebug)
	pvalues := map[string]float64{"DEBTINC": math.NaN(), "LOAN": 0.2, "VALUE": 0.03}

	best, p := bestCandidate([]string{"DEBTINC", "LOAN", "VALUE", "MISSING"}, logger, func(c string) (float64, error) {
		v, ok := pvalues[c]
		if !ok {
			return 0, errors.Wrapf(errors.ErrUnknownColumn, "coefficient %q", c)
		}
		return v, nil
	})
	if best != "VALUE" || p != 0.03 {
		t.Errorf("bestCandidate = (%s, %v), want (VALUE, 0.03)", best, p)
	}
	if !logger.ContainsMessage("skipping candidate with undefined p-value") || !logger.ContainsField(log.FeatureKey, "DEBTINC") {
		t.Error("expected a debug log for the NaN p-value")
	}
	if !logger.ContainsField(log.FeatureKey, "MISSING") {
		t.Error("expected a debug log for the failed candidate")
	}

	best, _ = bestCandidate([]string{"DEBTINC"}, logger, func(string) (float64, error) { return math.NaN(), nil })
	if best != "" {
		t.Errorf("bestCandidate = %q, want none", best)
	}
}
