package lightgbm

import (
	"testing"

	"github.com/YuminosukeSato/riskml/gbm"
	"github.com/YuminosukeSato/riskml/pkg/errors"
)

func TestLGBMClassifier_ParamMapping(t *testing.T) {
	c, err := NewLGBMClassifier(WithParams(map[string]interface{}{
		"is_unbalance":      true,
		"num_leaves":        64,
		"max_depth":         7,
		"bagging_fraction":  0.8,
		"bagging_freq":      3,
		"feature_fraction":  0.6,
		"min_child_samples": 10,
		"path_smooth":       0.3,
		"max_bin":           63,
	}))
	if err != nil {
		t.Fatalf("NewLGBMClassifier: %v", err)
	}
	p, err := c.EngineParams()
	if err != nil {
		t.Fatalf("EngineParams: %v", err)
	}
	want := gbm.Params{
		GrowPolicy: gbm.Lossguide, NumLeaves: 64, MaxDepth: 7, BaggingFraction: 0.8, BaggingFreq: 3,
		FeatureFraction: 0.6, MinDataInLeaf: 10, PathSmooth: 0.3, MaxBin: 63, IsUnbalance: true,
	}
	if p.GrowPolicy != want.GrowPolicy || p.NumLeaves != want.NumLeaves || p.MaxDepth != want.MaxDepth ||
		p.BaggingFraction != want.BaggingFraction || p.BaggingFreq != want.BaggingFreq ||
		p.FeatureFraction != want.FeatureFraction || p.MinDataInLeaf != want.MinDataInLeaf ||
		p.PathSmooth != want.PathSmooth || p.MaxBin != want.MaxBin || !p.IsUnbalance {
		t.Errorf("engine params = %+v", p)
	}

	// max_depth = -1 は無制限
	d, _ := NewLGBMClassifier()
	p, _ = d.EngineParams()
	if p.MaxDepth != 0 || p.NumLeaves != 31 {
		t.Errorf("defaults mapped to depth %d leaves %d", p.MaxDepth, p.NumLeaves)
	}
}

func TestLGBMClassifier_Validation(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]interface{}
		param  string
	}{
		{"dart unsupported", map[string]interface{}{"boosting": "dart"}, "boosting"},
		{"unbalance with scale", map[string]interface{}{"is_unbalance": true, "scale_pos_weight": 3.0}, "is_unbalance"},
		{"bad fraction", map[string]interface{}{"feature_fraction": 0.0}, "feature_fraction"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewLGBMClassifier(WithParams(tt.params))
			if err != nil {
				t.Fatalf("NewLGBMClassifier: %v", err)
			}
			_, err = c.EngineParams()
			var vErr *errors.ValidationError
			if !errors.As(err, &vErr) || vErr.ParamName != tt.param {
				t.Errorf("expected ValidationError on %q, got %v", tt.param, err)
			}
		})
	}
}

func TestLGBMClassifier_Clone(t *testing.T) {
	c, _ := NewLGBMClassifier(WithNumLeaves(8), WithRandomState(3))
	clone := c.Clone().(*LGBMClassifier)
	if clone.GetParams()["num_leaves"] != 8 || clone.GetParams()["random_state"] != 3 {
		t.Errorf("clone params = %v", clone.GetParams())
	}
}
