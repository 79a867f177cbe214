package discrete

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/riskml/pkg/errors"
)

// LogitResults holds the estimates and Wald inference of a fitted Logit.
// Slices are indexed like Names, with the intercept first.
type LogitResults struct {
	Names   []string
	Params  []float64
	StdErr  []float64
	ZValues []float64
	PValues []float64

	LogLikelihood float64
	LLNull        float64
	NObs          int
	Converged     bool
	Iterations    int

	cov *mat.Dense
}

func newResults(names []string, beta *mat.VecDense, cov *mat.Dense, ll, llNull float64, n int, converged bool, iter int) *LogitResults {
	k := beta.Len()
	r := &LogitResults{
		Names:         names,
		Params:        make([]float64, k),
		StdErr:        make([]float64, k),
		ZValues:       make([]float64, k),
		PValues:       make([]float64, k),
		LogLikelihood: ll,
		LLNull:        llNull,
		NObs:          n,
		Converged:     converged,
		Iterations:    iter,
		cov:           cov,
	}
	for j := 0; j < k; j++ {
		r.Params[j] = beta.AtVec(j)
		r.StdErr[j] = math.Sqrt(cov.At(j, j))
		r.ZValues[j] = r.Params[j] / r.StdErr[j]
		// 両側検定のp値
		r.PValues[j] = 2 * distuv.UnitNormal.Survival(math.Abs(r.ZValues[j]))
	}
	return r
}

// Cov returns the estimated covariance matrix of the parameters.
func (r *LogitResults) Cov() *mat.Dense {
	return mat.DenseCopyOf(r.cov)
}

// PValue returns the p-value of the named coefficient.
func (r *LogitResults) PValue(name string) (float64, error) {
	for j, n := range r.Names {
		if n == name {
			return r.PValues[j], nil
		}
	}
	return 0, errors.Wrapf(errors.ErrUnknownColumn, "coefficient %q", name)
}

// ConfInt returns the Wald confidence interval of level 1-alpha for each
// coefficient.
func (r *LogitResults) ConfInt(alpha float64) [][2]float64 {
	q := distuv.UnitNormal.Quantile(1 - alpha/2)
	out := make([][2]float64, len(r.Params))
	for j := range r.Params {
		out[j] = [2]float64{r.Params[j] - q*r.StdErr[j], r.Params[j] + q*r.StdErr[j]}
	}
	return out
}

// OddsRatios returns exp(params).
func (r *LogitResults) OddsRatios() []float64 {
	out := make([]float64, len(r.Params))
	for j, b := range r.Params {
		out[j] = math.Exp(b)
	}
	return out
}

// PseudoR2 is McFadden's 1 - llf/llnull.
func (r *LogitResults) PseudoR2() float64 {
	if r.LLNull == 0 {
		return math.NaN()
	}
	return 1 - r.LogLikelihood/r.LLNull
}

// AIC is -2 llf + 2 k.
func (r *LogitResults) AIC() float64 {
	return -2*r.LogLikelihood + 2*float64(len(r.Params))
}

// BIC is -2 llf + k ln(n).
func (r *LogitResults) BIC() float64 {
	return -2*r.LogLikelihood + float64(len(r.Params))*math.Log(float64(r.NObs))
}

// Predict returns P(y = 1) for X given without the constant column.
func (r *LogitResults) Predict(X mat.Matrix) (*mat.VecDense, error) {
	n, p := X.Dims()
	if p != len(r.Params)-1 {
		return nil, errors.NewDimensionError("LogitResults.Predict", len(r.Params)-1, p, 1)
	}
	out := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		eta := r.Params[0]
		for j := 0; j < p; j++ {
			eta += r.Params[j+1] * X.At(i, j)
		}
		out.SetVec(i, errors.Sigmoid(eta))
	}
	return out, nil
}

// Summary renders the coefficient table.
func (r *LogitResults) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Logit Regression Results\n")
	fmt.Fprintf(&b, "No. Observations: %d  Log-Likelihood: %.3f  LL-Null: %.3f  Pseudo R-squ.: %.4f  Converged: %t\n",
		r.NObs, r.LogLikelihood, r.LLNull, r.PseudoR2(), r.Converged)
	width := len(ConstName)
	for _, n := range r.Names {
		if len(n) > width {
			width = len(n)
		}
	}
	fmt.Fprintf(&b, "%-*s %10s %10s %8s %8s %10s %10s\n", width, "", "coef", "std err", "z", "P>|z|", "[0.025", "0.975]")
	ci := r.ConfInt(0.05)
	for j, n := range r.Names {
		fmt.Fprintf(&b, "%-*s %10.4f %10.3f %8.3f %8.3f %10.3f %10.3f\n",
			width, n, r.Params[j], r.StdErr[j], r.ZValues[j], r.PValues[j], ci[j][0], ci[j][1])
	}
	return b.String()
}
