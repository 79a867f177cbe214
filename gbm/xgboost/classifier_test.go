package xgboost

import (
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/riskml/gbm"
	"github.com/YuminosukeSato/riskml/pkg/errors"
)

func TestXGBClassifier_FitPredict(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	n := 150
	X := mat.NewDense(n, 3, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < 3; j++ {
			X.Set(i, j, rng.NormFloat64())
		}
		if X.At(i, 1) > 0 {
			y.Set(i, 0, 1)
		}
	}

	c, err := NewXGBClassifier(WithNEstimators(30), WithMaxDepth(2), WithEvalMetric("logloss"))
	if err != nil {
		t.Fatalf("NewXGBClassifier: %v", err)
	}
	if err := c.Fit(X, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	pred, err := c.Predict(X)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	correct := 0
	for i := 0; i < n; i++ {
		if pred.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	if acc := float64(correct) / float64(n); acc < 0.95 {
		t.Errorf("training accuracy = %v", acc)
	}

	imp := c.Booster().FeatureImportance()
	if imp[1] < imp[0] || imp[1] < imp[2] {
		t.Errorf("feature 1 should be most important: %v", imp)
	}
}

func TestXGBClassifier_ParamMapping(t *testing.T) {
	c, err := NewXGBClassifier(WithParams(map[string]interface{}{
		"subsample":        0.6,
		"colsample_bytree": 0.5,
		"gamma":            0.01,
		"reg_alpha":        1e-3,
		"reg_lambda":       2.0,
		"min_child_weight": 5,
	}))
	if err != nil {
		t.Fatalf("NewXGBClassifier: %v", err)
	}
	p, err := c.EngineParams()
	if err != nil {
		t.Fatalf("EngineParams: %v", err)
	}
	if p.GrowPolicy != gbm.Depthwise || p.MaxDepth != 6 {
		t.Errorf("tree params = %v / %d", p.GrowPolicy, p.MaxDepth)
	}
	if p.Bootstrap != gbm.BootstrapBernoulli || p.Subsample != 0.6 {
		t.Errorf("sampling = %v / %v", p.Bootstrap, p.Subsample)
	}
	if p.FeatureFraction != 0.5 || p.MinSplitGain != 0.01 || p.LambdaL1 != 1e-3 || p.LambdaL2 != 2 || p.MinChildWeight != 5 {
		t.Errorf("regularisation = %+v", p)
	}
}

func TestXGBClassifier_InvalidParams(t *testing.T) {
	if _, err := NewXGBClassifier(WithParams(map[string]interface{}{"max_depth": 2.5})); err == nil {
		t.Error("non-integral max_depth should be rejected")
	}

	c, _ := NewXGBClassifier(WithParams(map[string]interface{}{"objective": "multi:softprob"}))
	X := mat.NewDense(2, 1, []float64{0, 1})
	y := mat.NewDense(2, 1, []float64{0, 1})
	err := c.Fit(X, y)
	var vErr *errors.ValidationError
	if !errors.As(err, &vErr) || vErr.ParamName != "objective" {
		t.Errorf("expected objective ValidationError, got %v", err)
	}
}
