package discrete

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/riskml/pkg/errors"
)

// twoByTwo builds a binary regressor whose Logit estimates equal the
// empirical log odds: x=0 has 3/10 positives, x=1 has 6/10.
func twoByTwo() (*mat.Dense, *mat.VecDense) {
	X := mat.NewDense(20, 1, nil)
	y := mat.NewVecDense(20, nil)
	for i := 0; i < 20; i++ {
		if i >= 10 {
			X.Set(i, 0, 1)
		}
	}
	for _, i := range []int{0, 1, 2, 10, 11, 12, 13, 14, 15} {
		y.SetVec(i, 1)
	}
	return X, y
}

func TestLogit_ClosedForm(t *testing.T) {
	X, y := twoByTwo()
	res, err := NewLogit().Fit(X, y, []string{"x"})
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	if !res.Converged {
		t.Error("expected convergence")
	}
	if res.Names[0] != ConstName || res.Names[1] != "x" {
		t.Errorf("Names = %v", res.Names)
	}

	wantB0 := math.Log(3.0 / 7.0)
	wantB1 := math.Log(3.5)
	wantSE1 := math.Sqrt(1.0/3 + 1.0/7 + 1.0/6 + 1.0/4)
	wantSE0 := math.Sqrt(1.0/3 + 1.0/7)

	tests := []struct {
		name      string
		got, want float64
	}{
		{"const", res.Params[0], wantB0},
		{"x", res.Params[1], wantB1},
		{"se const", res.StdErr[0], wantSE0},
		{"se x", res.StdErr[1], wantSE1},
		{"odds ratio", res.OddsRatios()[1], 3.5},
		{"p-value", res.PValues[1], 2 * distuv.UnitNormal.Survival(wantB1/wantSE1)},
	}
	for _, tt := range tests {
		if math.Abs(tt.got-tt.want) > 1e-6 {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}

	p, err := res.PValue("x")
	if err != nil || p != res.PValues[1] {
		t.Errorf("PValue(x) = %v, %v", p, err)
	}
	if _, err := res.PValue("missing"); !errors.Is(err, errors.ErrUnknownColumn) {
		t.Errorf("expected ErrUnknownColumn, got %v", err)
	}

	ci := res.ConfInt(0.05)
	if math.Abs(ci[1][0]-(wantB1-1.959963984540054*wantSE1)) > 1e-6 {
		t.Errorf("lower CI = %v", ci[1][0])
	}
	if res.AIC() != -2*res.LogLikelihood+4 {
		t.Errorf("AIC = %v", res.AIC())
	}
	if r2 := res.PseudoR2(); r2 <= 0 || r2 >= 1 {
		t.Errorf("PseudoR2 = %v, expected in (0, 1)", r2)
	}
}

func TestLogit_InterceptOnly(t *testing.T) {
	_, y := twoByTwo()
	res, err := NewLogit().Fit(&mat.Dense{}, y, nil)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if len(res.Params) != 1 {
		t.Fatalf("expected only the constant, got %v", res.Names)
	}
	if want := math.Log(9.0 / 11.0); math.Abs(res.Params[0]-want) > 1e-8 {
		t.Errorf("const = %v, want %v", res.Params[0], want)
	}
	if math.Abs(res.LogLikelihood-res.LLNull) > 1e-8 {
		t.Errorf("intercept-only llf %v should equal llnull %v", res.LogLikelihood, res.LLNull)
	}
}

func TestLogit_Predict(t *testing.T) {
	X, y := twoByTwo()
	res, err := NewLogit().Fit(X, y, []string{"x"})
	if err != nil {
		t.Fatal(err)
	}
	p, err := res.Predict(mat.NewDense(2, 1, []float64{0, 1}))
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(p.AtVec(0)-0.3) > 1e-6 || math.Abs(p.AtVec(1)-0.6) > 1e-6 {
		t.Errorf("Predict = %v, want [0.3 0.6]", p.RawVector().Data)
	}
	if _, err := res.Predict(mat.NewDense(1, 2, nil)); err == nil {
		t.Error("expected dimension error")
	}
}

func TestLogit_SingularDesign(t *testing.T) {
	X, y := twoByTwo()
	dup := mat.NewDense(20, 2, nil)
	for i := 0; i < 20; i++ {
		dup.Set(i, 0, X.At(i, 0))
		dup.Set(i, 1, X.At(i, 0))
	}

	_, err := NewLogit().Fit(dup, y, []string{"x", "x_copy"})
	if !errors.Is(err, errors.ErrSingularMatrix) {
		t.Fatalf("expected ErrSingularMatrix, got %v", err)
	}
	var me *errors.ModelError
	if !errors.As(err, &me) {
		t.Errorf("expected ModelError, got %T", err)
	}
}

func TestLogit_SeparationWarns(t *testing.T) {
	var warnings []error
	errors.SetZerologWarnFunc(func(w error) { warnings = append(warnings, w) })
	defer errors.SetZerologWarnFunc(nil)

	X := mat.NewDense(6, 1, []float64{1, 2, 3, 4, 5, 6})
	y := mat.NewVecDense(6, []float64{0, 0, 0, 1, 1, 1})
	_, err := NewLogit().Fit(X, y, []string{"x"})

	// 分離データは警告付きで返るか、特異行列エラーになる
	if err != nil && !errors.Is(err, errors.ErrSingularMatrix) {
		t.Fatalf("unexpected error: %v", err)
	}
	if err == nil && len(warnings) == 0 {
		t.Error("separated data should emit a warning")
	}
}

func TestLogit_InvalidInput(t *testing.T) {
	X, y := twoByTwo()
	tests := []struct {
		name  string
		X     mat.Matrix
		y     *mat.VecDense
		names []string
	}{
		{"nil response", X, nil, []string{"x"}},
		{"names mismatch", X, y, []string{"x", "z"}},
		{"row mismatch", mat.NewDense(3, 1, nil), y, []string{"x"}},
		{"non binary", X, mat.NewVecDense(20, nil), []string{"x"}},
	}
	tests[3].y.SetVec(4, 2)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewLogit().Fit(tt.X, tt.y, tt.names); err == nil {
				t.Error("expected error")
			}
		})
	}

	nan := mat.DenseCopyOf(X)
	nan.Set(3, 0, math.NaN())
	if _, err := NewLogit().Fit(nan, y, []string{"x"}); err == nil {
		t.Error("expected error for NaN input")
	}
}
