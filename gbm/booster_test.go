package gbm

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/riskml/pkg/errors"
)

// makeThresholdData は x0 > 0.5 のとき陽性、x1 はノイズのデータを作る
func makeThresholdData(n int, seed int64) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewSource(seed))
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		x0 := rng.Float64()
		X.Set(i, 0, x0)
		X.Set(i, 1, rng.Float64())
		if x0 > 0.5 {
			y.Set(i, 0, 1)
		}
	}
	return X, y
}

func accuracy(t *testing.T, b *Booster, X, y mat.Matrix) float64 {
	t.Helper()
	pred, err := b.Predict(X)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	n, _ := X.Dims()
	correct := 0
	for i := 0; i < n; i++ {
		if pred.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(n)
}

func TestBooster_GrowPolicies(t *testing.T) {
	X, y := makeThresholdData(200, 1)

	tests := []struct {
		name   string
		modify func(p *Params)
	}{
		{"lossguide", func(p *Params) {}},
		{"depthwise", func(p *Params) {
			p.GrowPolicy = Depthwise
			p.MaxDepth = 3
		}},
		{"symmetric", func(p *Params) {
			p.GrowPolicy = SymmetricTree
			p.MaxDepth = 3
		}},
		{"symmetric ordered", func(p *Params) {
			p.GrowPolicy = SymmetricTree
			p.MaxDepth = 3
			p.BoostingType = Ordered
		}},
		{"bernoulli per level", func(p *Params) {
			p.GrowPolicy = Depthwise
			p.MaxDepth = 3
			p.Bootstrap = BootstrapBernoulli
			p.Subsample = 0.7
			p.SamplingFrequency = PerTreeLevel
		}},
		{"bayesian", func(p *Params) {
			p.GrowPolicy = SymmetricTree
			p.MaxDepth = 4
			p.Bootstrap = BootstrapBayesian
			p.BaggingTemperature = 1
			p.RandomStrength = 1
		}},
		{"mvs", func(p *Params) {
			p.Bootstrap = BootstrapMVS
			p.Subsample = 0.8
		}},
		{"lightgbm bagging", func(p *Params) {
			p.BaggingFraction = 0.6
			p.BaggingFreq = 5
			p.FeatureFraction = 0.5
			p.LambdaL1 = 0.1
			p.LambdaL2 = 1
			p.PathSmooth = 0.5
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			p.NumIterations = 30
			p.MinDataInLeaf = 5
			p.Seed = 3
			tt.modify(&p)

			b := NewBooster(p)
			if err := b.Fit(X, y); err != nil {
				t.Fatalf("Fit: %v", err)
			}
			if acc := accuracy(t, b, X, y); acc < 0.9 {
				t.Errorf("training accuracy = %v, want >= 0.9", acc)
			}

			loss := b.TrainingLoss()
			if len(loss) != 30 {
				t.Fatalf("len(TrainingLoss) = %d, want 30", len(loss))
			}
			if loss[len(loss)-1] >= loss[0] {
				t.Errorf("training loss did not decrease: first=%v last=%v", loss[0], loss[len(loss)-1])
			}
		})
	}
}

func TestBooster_SymmetricTreesAreOblivious(t *testing.T) {
	X, y := makeThresholdData(120, 2)
	p := DefaultParams()
	p.GrowPolicy = SymmetricTree
	p.MaxDepth = 2
	p.NumIterations = 5
	p.MinDataInLeaf = 1

	b := NewBooster(p)
	if err := b.Fit(X, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	for k, tr := range b.Trees() {
		root := tr.Nodes[0]
		if root.IsLeaf() {
			continue
		}
		l, r := tr.Nodes[root.Left], tr.Nodes[root.Right]
		if l.IsLeaf() != r.IsLeaf() {
			t.Fatalf("tree %d: unbalanced level", k)
		}
		if !l.IsLeaf() && (l.Feature != r.Feature || l.Threshold != r.Threshold) {
			t.Errorf("tree %d: level 1 splits differ: (%d, %v) vs (%d, %v)",
				k, l.Feature, l.Threshold, r.Feature, r.Threshold)
		}
	}
}

func TestBooster_LossguideLeafBudget(t *testing.T) {
	X, y := makeThresholdData(300, 4)
	p := DefaultParams()
	p.NumLeaves = 4
	p.NumIterations = 3
	p.MinDataInLeaf = 1

	b := NewBooster(p)
	if err := b.Fit(X, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	for k, tr := range b.Trees() {
		if got := tr.NumLeaves(); got > 4 {
			t.Errorf("tree %d has %d leaves, want <= 4", k, got)
		}
	}
}

func TestBooster_FeatureImportance(t *testing.T) {
	X, y := makeThresholdData(200, 5)
	p := DefaultParams()
	p.NumIterations = 20
	p.MinDataInLeaf = 5

	b := NewBooster(p)
	if err := b.Fit(X, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	imp := b.FeatureImportance()
	if imp[0] <= imp[1] {
		t.Errorf("informative feature should dominate: %v", imp)
	}
	if math.Abs(imp[0]+imp[1]-1) > 1e-9 {
		t.Errorf("importances should sum to 1: %v", imp)
	}
}

func TestBooster_InitScoreAndClassWeights(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{0, 1, 2, 3})
	y := mat.NewDense(4, 1, []float64{0, 0, 0, 1})

	p := DefaultParams()
	p.NumIterations = 1
	b := NewBooster(p)
	if err := b.Fit(X, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if want := math.Log(1.0 / 3.0); math.Abs(b.InitScore()-want) > 1e-12 {
		t.Errorf("InitScore = %v, want %v", b.InitScore(), want)
	}

	// Balanced では陽性の重みが 3 倍になり事前確率が 0.5 になる
	p.ClassWeights = ClassWeightsBalanced
	b = NewBooster(p)
	if err := b.Fit(X, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if math.Abs(b.InitScore()) > 1e-12 {
		t.Errorf("balanced InitScore = %v, want 0", b.InitScore())
	}
}

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(p *Params)
		param  string
	}{
		{"ordered needs symmetric", func(p *Params) { p.BoostingType = Ordered }, "boosting_type"},
		{"lossguide per level", func(p *Params) { p.SamplingFrequency = PerTreeLevel }, "sampling_frequency"},
		{"temperature without bayesian", func(p *Params) {
			p.Bootstrap = BootstrapBernoulli
			p.BaggingTemperature = 1
		}, "bagging_temperature"},
		{"subsample with bayesian", func(p *Params) {
			p.Bootstrap = BootstrapBayesian
			p.Subsample = 0.5
		}, "subsample"},
		{"depthwise needs depth", func(p *Params) { p.GrowPolicy = Depthwise }, "max_depth"},
		{"unknown policy", func(p *Params) { p.GrowPolicy = "Oblique" }, "grow_policy"},
		{"bad learning rate", func(p *Params) { p.LearningRate = 0 }, "learning_rate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.modify(&p)
			err := p.Validate()
			var vErr *errors.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if vErr.ParamName != tt.param {
				t.Errorf("ParamName = %q, want %q", vErr.ParamName, tt.param)
			}
		})
	}

	if err := DefaultParams().Validate(); err != nil {
		t.Errorf("default params should be valid: %v", err)
	}
}

func TestBooster_NotFitted(t *testing.T) {
	b := NewBooster(DefaultParams())
	_, err := b.PredictProba(mat.NewDense(1, 2, nil))
	var nf *errors.NotFittedError
	if !errors.As(err, &nf) {
		t.Errorf("expected NotFittedError, got %v", err)
	}
}

func TestFindBinBounds(t *testing.T) {
	got := findBinBounds([]float64{3, 1, 2, 2, 1}, 255)
	want := []float64{1.5, 2.5, math.Inf(1)}
	if len(got) != len(want) {
		t.Fatalf("bounds = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("bounds[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	many := make([]float64, 1000)
	for i := range many {
		many[i] = float64(i)
	}
	if n := len(findBinBounds(many, 16)); n > 16 {
		t.Errorf("got %d bins, want <= 16", n)
	}

	m := &binMapper{bounds: [][]float64{want}}
	if b := m.bin(0, 2); b != 1 {
		t.Errorf("bin(2) = %d, want 1", b)
	}
	if b := m.bin(0, math.NaN()); b != 0 {
		t.Errorf("bin(NaN) = %d, want 0", b)
	}
}
