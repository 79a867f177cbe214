package metrics

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestROCCurve(t *testing.T) {
	yTrue := mat.NewVecDense(4, []float64{0, 0, 1, 1})
	yScore := mat.NewVecDense(4, []float64{0.1, 0.4, 0.35, 0.8})

	fpr, tpr, thr, err := ROCCurve(yTrue, yScore)
	if err != nil {
		t.Fatal(err)
	}

	wantFPR := []float64{0, 0, 0.5, 0.5, 1}
	wantTPR := []float64{0, 0.5, 0.5, 1, 1}
	wantThr := []float64{math.Inf(1), 0.8, 0.4, 0.35, 0.1}
	for i := range wantFPR {
		if fpr[i] != wantFPR[i] || tpr[i] != wantTPR[i] || thr[i] != wantThr[i] {
			t.Fatalf("point %d = (%v, %v, %v), want (%v, %v, %v)",
				i, fpr[i], tpr[i], thr[i], wantFPR[i], wantTPR[i], wantThr[i])
		}
	}

	area, err := TrapezoidAUC(fpr, tpr)
	if err != nil {
		t.Fatal(err)
	}
	auc, _ := AUC(yTrue, yScore)
	if math.Abs(area-auc) > 1e-12 {
		t.Errorf("trapezoid area %v differs from AUC %v", area, auc)
	}
}

func TestROCCurve_Ties(t *testing.T) {
	yTrue := mat.NewVecDense(4, []float64{0, 1, 0, 1})
	yScore := mat.NewVecDense(4, []float64{0.5, 0.5, 0.5, 0.5})

	fpr, tpr, _, err := ROCCurve(yTrue, yScore)
	if err != nil {
		t.Fatal(err)
	}
	if len(fpr) != 2 || fpr[1] != 1 || tpr[1] != 1 {
		t.Errorf("tied scores should collapse to one point, got fpr=%v tpr=%v", fpr, tpr)
	}
}

func TestTrapezoidAUC(t *testing.T) {
	tests := []struct {
		name    string
		x, y    []float64
		want    float64
		wantErr bool
	}{
		{"unit square", []float64{0, 1}, []float64{1, 1}, 1, false},
		{"triangle", []float64{0, 1}, []float64{0, 1}, 0.5, false},
		{"decreasing x", []float64{1, 0}, []float64{1, 1}, 1, false},
		{"non monotone", []float64{0, 1, 0.5}, []float64{0, 1, 1}, 0, true},
		{"too short", []float64{0}, []float64{0}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TrapezoidAUC(tt.x, tt.y)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPositiveColumn(t *testing.T) {
	proba := mat.NewDense(2, 2, []float64{0.7, 0.3, 0.2, 0.8})
	pos, err := PositiveColumn(proba)
	if err != nil {
		t.Fatal(err)
	}
	if pos.AtVec(0) != 0.3 || pos.AtVec(1) != 0.8 {
		t.Errorf("PositiveColumn = %v", pos.RawVector().Data)
	}
}
