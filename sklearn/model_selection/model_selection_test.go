package model_selection

import (
	"context"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/riskml/pkg/errors"
	"github.com/YuminosukeSato/riskml/sklearn/linear_model"
)

// separable は x > 0 を正例とする1次元データ（20サンプル）
func separable() (*mat.Dense, *mat.VecDense) {
	X := mat.NewDense(20, 1, nil)
	y := mat.NewVecDense(20, nil)
	for i := 0; i < 20; i++ {
		x := float64(i) - 9.5
		X.Set(i, 0, x)
		if x > 0 {
			y.SetVec(i, 1)
		}
	}
	return X, y
}

func checkPartition(t *testing.T, folds []Fold, n int) {
	t.Helper()
	seen := make([]int, n)
	for _, f := range folds {
		if len(f.Train)+len(f.Test) != n {
			t.Errorf("fold sizes %d + %d != %d", len(f.Train), len(f.Test), n)
		}
		for _, i := range f.Test {
			seen[i]++
		}
	}
	for i, c := range seen {
		if c != 1 {
			t.Errorf("row %d appears in %d test folds", i, c)
		}
	}
}

func TestKFold_Split(t *testing.T) {
	X := mat.NewDense(10, 1, nil)
	folds, err := NewKFold(3, false, 0).Split(X, nil)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	want := []int{4, 3, 3}
	for i, f := range folds {
		if len(f.Test) != want[i] {
			t.Errorf("fold %d test size = %d, want %d", i, len(f.Test), want[i])
		}
	}
	if folds[0].Test[0] != 0 || folds[2].Test[2] != 9 {
		t.Errorf("unshuffled folds should be contiguous: %v", folds)
	}
	checkPartition(t, folds, 10)

	a, _ := NewKFold(3, true, 42).Split(X, nil)
	b, _ := NewKFold(3, true, 42).Split(X, nil)
	for i := range a {
		for j := range a[i].Test {
			if a[i].Test[j] != b[i].Test[j] {
				t.Fatal("same seed produced different folds")
			}
		}
	}
	checkPartition(t, a, 10)
}

func TestStratifiedKFold_ClassRatios(t *testing.T) {
	X := mat.NewDense(20, 1, nil)
	y := mat.NewVecDense(20, nil)
	for i := 0; i < 8; i++ {
		y.SetVec(i*2, 1)
	}

	for _, shuffle := range []bool{false, true} {
		folds, err := NewStratifiedKFold(4, shuffle, 999).Split(X, y)
		if err != nil {
			t.Fatalf("Split: %v", err)
		}
		checkPartition(t, folds, 20)
		for i, f := range folds {
			pos := 0
			for _, r := range f.Test {
				pos += int(y.AtVec(r))
			}
			if len(f.Test) != 5 || pos != 2 {
				t.Errorf("shuffle=%v fold %d: size %d positives %d, want 5 and 2", shuffle, i, len(f.Test), pos)
			}
		}
	}
}

func TestStratifiedKFold_Errors(t *testing.T) {
	X := mat.NewDense(4, 1, nil)
	y := mat.NewVecDense(4, []float64{0, 0, 1, 1})

	var ve *errors.ValidationError
	if _, err := NewStratifiedKFold(3, false, 0).Split(X, y); !errors.As(err, &ve) {
		t.Errorf("expected ValidationError, got %v", err)
	}
	if _, err := NewStratifiedKFold(1, false, 0).Split(X, y); !errors.As(err, &ve) {
		t.Errorf("n_splits=1 should be a ValidationError, got %v", err)
	}
	if _, err := NewStratifiedKFold(2, false, 0).Split(X, mat.NewVecDense(3, nil)); err == nil {
		t.Error("length mismatch should fail")
	}
}

func TestParamGrid_Candidates(t *testing.T) {
	g := ParamGrid{
		"penalty": {"l1", "l2"},
		"C":       {0.1, 1.0, 10.0},
	}
	c := g.Candidates()
	if len(c) != 6 || g.Size() != 6 {
		t.Fatalf("got %d candidates, want 6", len(c))
	}
	// C がソート順で先、penalty が最も速く変化する
	if c[0]["C"] != 0.1 || c[0]["penalty"] != "l1" {
		t.Errorf("first candidate = %v", c[0])
	}
	if c[1]["C"] != 0.1 || c[1]["penalty"] != "l2" {
		t.Errorf("second candidate = %v", c[1])
	}
	if c[5]["C"] != 10.0 || c[5]["penalty"] != "l2" {
		t.Errorf("last candidate = %v", c[5])
	}
}

func TestCrossValScore(t *testing.T) {
	X, y := separable()
	est := linear_model.NewLogisticRegression()
	cv := NewStratifiedKFold(5, false, 0)

	seq, err := CrossValScore(context.Background(), est, X, y, cv, "roc_auc", 1)
	if err != nil {
		t.Fatalf("CrossValScore: %v", err)
	}
	par, err := CrossValScore(context.Background(), est, X, y, cv, "roc_auc", 4)
	if err != nil {
		t.Fatalf("CrossValScore parallel: %v", err)
	}
	if len(seq) != 5 {
		t.Fatalf("got %d scores, want 5", len(seq))
	}
	for i := range seq {
		if seq[i] != 1 {
			t.Errorf("fold %d AUC = %v, want 1", i, seq[i])
		}
		if seq[i] != par[i] {
			t.Errorf("fold %d differs between n_jobs 1 and 4", i)
		}
	}
	if est.IsFitted() {
		t.Error("CrossValScore must not fit the original estimator")
	}
	if Mean(seq) != 1 || Std(seq) != 0 {
		t.Errorf("Mean = %v, Std = %v", Mean(seq), Std(seq))
	}

	if _, err := CrossValScore(context.Background(), est, X, y, cv, "balanced_accuracy", 1); err == nil {
		t.Error("unknown scorer should fail")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := CrossValScore(ctx, est, X, y, cv, "roc_auc", 1); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestScorers(t *testing.T) {
	X, y := separable()
	est := linear_model.NewLogisticRegression()
	if err := est.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	for _, name := range ScorerNames() {
		s, err := GetScorer(name)
		if err != nil {
			t.Fatalf("GetScorer(%q): %v", name, err)
		}
		v, err := s(est, X, y)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if name == "neg_log_loss" {
			if v >= 0 {
				t.Errorf("neg_log_loss = %v, want < 0", v)
			}
			continue
		}
		if v != 1 {
			t.Errorf("%s = %v on separable data, want 1", name, v)
		}
	}
}

func TestGridSearchCV(t *testing.T) {
	X, y := separable()
	gs := NewGridSearchCV(linear_model.NewLogisticRegression(),
		ParamGrid{"C": {1.0, 2.0}},
		WithScoring("roc_auc"),
	)
	if _, err := gs.Predict(X); err == nil {
		t.Error("Predict before Fit should fail")
	}
	if err := gs.Fit(context.Background(), X, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	// 両候補ともAUC=1なので先の候補が残る
	if gs.BestParams()["C"] != 1.0 {
		t.Errorf("BestParams = %v, want C=1", gs.BestParams())
	}
	if gs.BestScore() != 1 {
		t.Errorf("BestScore = %v", gs.BestScore())
	}
	res := gs.Results()
	if len(res) != 2 || res[0].Rank != 1 || res[1].Rank != 1 {
		t.Errorf("Results = %+v", res)
	}
	best := gs.BestEstimator()
	if best == nil || best.GetParams()["C"] != 1.0 {
		t.Fatalf("BestEstimator = %v", best)
	}
	pred, err := gs.Predict(X)
	if err != nil {
		t.Fatal(err)
	}
	if pred.At(19, 0) != 1 || pred.At(0, 0) != 0 {
		t.Error("refitted estimator mispredicts training extremes")
	}
}

func TestGridSearchCV_InvalidCandidate(t *testing.T) {
	X, y := separable()
	gs := NewGridSearchCV(linear_model.NewLogisticRegression(),
		ParamGrid{"not_a_param": {1}},
		WithRefit(false),
	)
	var ve *errors.ValidationError
	if err := gs.Fit(context.Background(), X, y); !errors.As(err, &ve) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}
