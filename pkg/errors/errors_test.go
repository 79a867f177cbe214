package errors

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		kind    string
		err     error
		wantMsg string
	}{
		{
			name:    "with original error",
			op:      "Logit.Fit",
			kind:    "hessian inversion failed",
			err:     ErrSingularMatrix,
			wantMsg: "riskml: Logit.Fit: hessian inversion failed: singular matrix",
		},
		{
			name:    "without original error",
			op:      "Predict",
			kind:    "not fitted",
			wantMsg: "riskml: Predict: not fitted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)

			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			// スタックトレースにテストファイルが含まれること
			if !strings.Contains(fmt.Sprintf("%+v", err), "errors_test.go") {
				t.Error("Expected stack trace to contain test file name")
			}

			var modelErr *ModelError
			if !As(err, &modelErr) {
				t.Error("Error should be castable to *ModelError")
			}
			if tt.err != nil && !Is(err, tt.err) {
				t.Error("ModelError should unwrap to the original error")
			}
		})
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("AUC", 4, 3, 0)

	want := "riskml: AUC: dimension mismatch on axis 0 (rows). Expected 4, got 3"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var dimErr *DimensionError
	if !As(err, &dimErr) {
		t.Fatal("Error should be castable to *DimensionError")
	}
	if dimErr.Got != 3 {
		t.Errorf("Got = %d, want 3", dimErr.Got)
	}
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("LogisticRegression", "PredictProba")

	want := "riskml: LogisticRegression: this model is not fitted yet. Call Fit() before using PredictProba()"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var notFitted *NotFittedError
	if !As(err, &notFitted) {
		t.Error("Error should be castable to *NotFittedError")
	}
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("grow_policy", "Ordered boosting requires SymmetricTree", "Lossguide")

	want := "riskml: validation failed for parameter 'grow_policy': Ordered boosting requires SymmetricTree (got: Lossguide)"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}
}

func TestWarnings(t *testing.T) {
	tests := []struct {
		name string
		warn error
		want string
	}{
		{
			name: "convergence",
			warn: NewConvergenceWarning("Logit", 35, "maximum likelihood did not converge"),
			want: "Logit failed to converge after 35 iterations: maximum likelihood did not converge",
		},
		{
			name: "undefined metric",
			warn: NewUndefinedMetricWarning("precision", "no predicted samples", 0),
			want: "'precision' is ill-defined and being set to 0 due to no predicted samples.",
		},
		{
			name: "oscillation",
			warn: NewOscillationWarning("LOAN", []string{"DEBTINC", "LOAN"}, 4),
			want: "stepwise selection oscillates on 'LOAN' at step 4; stopping with [DEBTINC, LOAN]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.warn.Error() != tt.want {
				t.Errorf("Error() = %q, want %q", tt.warn.Error(), tt.want)
			}
		})
	}
}

func TestWarn_UsesZerologHook(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	SetZerologWarnFunc(func(w error) {
		ev := logger.Warn()
		if m, ok := w.(zerolog.LogObjectMarshaler); ok {
			ev = ev.EmbedObject(m)
		}
		ev.Msg(w.Error())
	})
	defer SetZerologWarnFunc(nil)

	Warn(NewPerfectSeparationWarning("Logit"))

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("warning was not logged as JSON: %v (%q)", err, buf.String())
	}
	if entry["type"] != "PerfectSeparationWarning" {
		t.Errorf("type = %v, want PerfectSeparationWarning", entry["type"])
	}
}

func TestWarn_FallbackHandler(t *testing.T) {
	var got error
	SetWarningHandler(func(w error) { got = w })
	defer SetWarningHandler(func(w error) {})

	w := NewConvergenceWarning("saga", 10, "")
	Warn(w)
	if got != w {
		t.Errorf("handler received %v, want %v", got, w)
	}
}

func TestWrapAndIs(t *testing.T) {
	wrapped := Wrapf(ErrUnknownColumn, "column %q", "DEBTINC")

	if !Is(wrapped, ErrUnknownColumn) {
		t.Error("Expected Is(wrapped, ErrUnknownColumn) to be true")
	}
	if !strings.Contains(wrapped.Error(), `column "DEBTINC"`) {
		t.Errorf("unexpected message %q", wrapped.Error())
	}
}

func TestCheckScalar(t *testing.T) {
	if err := CheckScalar("loss", 0.3, 1); err != nil {
		t.Errorf("finite value should pass: %v", err)
	}
	err := CheckScalar("loss", nanValue(), 7)
	var instab *NumericalInstabilityError
	if !As(err, &instab) {
		t.Fatalf("Expected NumericalInstabilityError, got %v", err)
	}
	if instab.Iteration != 7 {
		t.Errorf("Iteration = %d, want 7", instab.Iteration)
	}
}

func TestSigmoid(t *testing.T) {
	tests := []struct {
		z    float64
		want float64
	}{
		{0, 0.5},
		{800, 1},
		{-800, 0},
	}
	for _, tt := range tests {
		if got := Sigmoid(tt.z); got != tt.want {
			t.Errorf("Sigmoid(%v) = %v, want %v", tt.z, got, tt.want)
		}
	}
}

func nanValue() float64 {
	zero := 0.0
	return zero / zero
}
