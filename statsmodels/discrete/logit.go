// Package discrete implements maximum-likelihood models for discrete
// outcomes. Logit mirrors statsmodels' discrete_model.Logit: an intercept
// column named "const" is always added, and fitting returns Wald
// statistics for every coefficient.
package discrete

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/riskml/pkg/errors"
	"github.com/YuminosukeSato/riskml/pkg/log"
)

// ConstName is the name of the intercept coefficient.
const ConstName = "const"

// Logit is a binary logistic regression fitted by Newton-Raphson.
type Logit struct {
	maxIter int
	tol     float64
	logger  log.Logger
}

// Option configures a Logit.
type Option func(*Logit)

// WithMaxIter sets the maximum number of Newton iterations (default 35).
func WithMaxIter(n int) Option {
	return func(m *Logit) { m.maxIter = n }
}

// WithTol sets the parameter-change tolerance (default 1e-8).
func WithTol(tol float64) Option {
	return func(m *Logit) { m.tol = tol }
}

// WithLogger sets the logger used for iteration traces.
func WithLogger(l log.Logger) Option {
	return func(m *Logit) { m.logger = l }
}

// NewLogit creates a Logit with statsmodels' Newton defaults.
func NewLogit(opts ...Option) *Logit {
	m := &Logit{
		maxIter: 35,
		tol:     1e-8,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = log.GetLoggerWithName("discrete.Logit")
	}
	return m
}

// Fit estimates the model on X (n x p, without a constant column) and the
// 0/1 response y. names labels the p columns of X. An X with zero columns
// fits the intercept-only model.
//
// A singular Hessian is returned as ErrSingularMatrix inside a ModelError.
// Perfect separation and non-convergence are reported as warnings and the
// last iterate is returned, as statsmodels does. A gonum panic, e.g. on a
// shape mismatch of names, is returned as a *errors.PanicError.
func (m *Logit) Fit(X mat.Matrix, y *mat.VecDense, names []string) (res *LogitResults, err error) {
	defer errors.Recover(&err, "Logit.Fit")
	if y == nil || y.Len() == 0 {
		return nil, errors.NewModelError("Logit.Fit", "empty response", errors.ErrEmptyData)
	}
	n := y.Len()
	var p int
	if X != nil {
		var r int
		r, p = X.Dims()
		if p > 0 && r != n {
			return nil, errors.NewDimensionError("Logit.Fit", n, r, 0)
		}
	}
	if len(names) != p {
		return nil, errors.NewValidationError("names", "must label every column of X", len(names))
	}
	for i := 0; i < n; i++ {
		if v := y.AtVec(i); v != 0 && v != 1 {
			return nil, errors.Wrapf(errors.ErrNotBinary, "Logit.Fit: response %v at row %d", v, i)
		}
	}

	k := p + 1
	design := mat.NewDense(n, k, nil)
	for i := 0; i < n; i++ {
		design.Set(i, 0, 1)
		for j := 0; j < p; j++ {
			v := X.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, errors.NewValueError("Logit.Fit", "exog contains inf or nans in column "+names[j])
			}
			design.Set(i, j+1, v)
		}
	}

	beta := mat.NewVecDense(k, nil)
	ll := logLikelihood(design, y, beta)
	converged := false
	iter := 0

	for iter = 1; iter <= m.maxIter; iter++ {
		prob := predict(design, beta)
		if separated(prob, y) {
			errors.Warn(errors.NewPerfectSeparationWarning("Logit"))
			break
		}

		grad, info := scoreAndInformation(design, y, prob)
		var infoInv mat.Dense
		if err := infoInv.Inverse(info); err != nil {
			return nil, errors.NewModelError("Logit.Fit", "hessian inversion failed", errors.ErrSingularMatrix)
		}
		step := mat.NewVecDense(k, nil)
		step.MulVec(&infoInv, grad)

		// 対数尤度が減少する場合はステップを半分にする
		candidate := mat.NewVecDense(k, nil)
		newLL := ll
		scale := 1.0
		for h := 0; h < 20; h++ {
			candidate.AddScaledVec(beta, scale, step)
			newLL = logLikelihood(design, y, candidate)
			if newLL >= ll-1e-12 {
				break
			}
			scale /= 2
		}
		if err := errors.CheckScalar("Logit.Fit", newLL, iter); err != nil {
			return nil, err
		}
		if err := errors.CheckNumericalStability("Logit.Fit", candidate.RawVector().Data, iter); err != nil {
			return nil, err
		}

		maxChange := 0.0
		for j := 0; j < k; j++ {
			maxChange = math.Max(maxChange, math.Abs(candidate.AtVec(j)-beta.AtVec(j)))
		}
		beta.CopyVec(candidate)
		m.logger.Debug("newton iteration",
			log.IterationKey, iter,
			log.LossKey, -newLL,
		)
		ll = newLL
		if maxChange <= m.tol {
			converged = true
			break
		}
	}
	if iter > m.maxIter {
		iter = m.maxIter
	}
	if !converged {
		errors.Warn(errors.NewConvergenceWarning("Logit", iter, "Maximum Likelihood optimization failed to converge. Check mle_retvals"))
	}

	_, info := scoreAndInformation(design, y, predict(design, beta))
	var cov mat.Dense
	if err := cov.Inverse(info); err != nil {
		return nil, errors.NewModelError("Logit.Fit", "covariance is singular", errors.ErrSingularMatrix)
	}

	return newResults(append([]string{ConstName}, names...), beta, &cov, ll, nullLogLikelihood(y), n, converged, iter), nil
}

func predict(design *mat.Dense, beta *mat.VecDense) *mat.VecDense {
	n, _ := design.Dims()
	eta := mat.NewVecDense(n, nil)
	eta.MulVec(design, beta)
	for i := 0; i < n; i++ {
		eta.SetVec(i, errors.Sigmoid(eta.AtVec(i)))
	}
	return eta
}

// logLikelihood is sum(y*eta - log(1+exp(eta))).
func logLikelihood(design *mat.Dense, y, beta *mat.VecDense) float64 {
	n, _ := design.Dims()
	eta := mat.NewVecDense(n, nil)
	eta.MulVec(design, beta)
	var ll float64
	for i := 0; i < n; i++ {
		e := eta.AtVec(i)
		ll += y.AtVec(i)*e - errors.Log1pExp(e)
	}
	return ll
}

// scoreAndInformation returns the gradient X'(y-p) and the Fisher
// information X'WX with W = diag(p(1-p)).
func scoreAndInformation(design *mat.Dense, y, prob *mat.VecDense) (*mat.VecDense, *mat.SymDense) {
	n, k := design.Dims()
	grad := mat.NewVecDense(k, nil)
	info := mat.NewSymDense(k, nil)
	row := make([]float64, k)
	for i := 0; i < n; i++ {
		mat.Row(row, i, design)
		pi := prob.AtVec(i)
		r := y.AtVec(i) - pi
		w := pi * (1 - pi)
		for a := 0; a < k; a++ {
			grad.SetVec(a, grad.AtVec(a)+row[a]*r)
			for b := a; b < k; b++ {
				info.SetSym(a, b, info.At(a, b)+w*row[a]*row[b])
			}
		}
	}
	return grad, info
}

func separated(prob, y *mat.VecDense) bool {
	for i := 0; i < y.Len(); i++ {
		if math.Abs(prob.AtVec(i)-y.AtVec(i)) > 1e-10 {
			return false
		}
	}
	return true
}

func nullLogLikelihood(y *mat.VecDense) float64 {
	n := float64(y.Len())
	pbar := mat.Sum(y) / n
	if pbar == 0 || pbar == 1 {
		return 0
	}
	return n * (pbar*math.Log(pbar) + (1-pbar)*math.Log(1-pbar))
}
