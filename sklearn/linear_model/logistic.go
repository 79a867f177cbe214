package linear_model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/riskml/core/model"
	"github.com/YuminosukeSato/riskml/pkg/errors"
	"github.com/YuminosukeSato/riskml/pkg/log"
)

// LogisticRegression implements binary logistic regression compatible
// with scikit-learn's LogisticRegression.
//
// The objective is C * sum_i w_i logloss_i + R(coef) with
// R = ||coef||_1 for "l1", 0.5 ||coef||_2^2 for "l2" and the l1_ratio
// mixture of both for "elasticnet". The intercept is not penalized. It is
// minimized by accelerated proximal gradient with backtracking, which
// handles the non-smooth l1 term the way saga does.
type LogisticRegression struct {
	state *model.StateManager // State management (composition)

	// Hyperparameters
	penalty      string  // Regularization: "l2", "l1", "elasticnet", "none"
	C            float64 // Inverse regularization strength
	fitIntercept bool    // Whether to fit intercept
	classWeight  string  // Class weight: "balanced", "none"
	solver       string  // Solver: "lbfgs", "liblinear", "saga"
	maxIter      int     // Maximum iterations
	l1Ratio      float64 // L1 ratio for elastic net
	tol          float64 // Tolerance for stopping
	randomState  int64   // Kept for API compatibility, the solver is deterministic

	// Model parameters
	coef_      []float64
	intercept_ float64
	nIter_     int

	logger log.Logger
}

// LogisticRegressionOption is a functional option for LogisticRegression
type LogisticRegressionOption func(*LogisticRegression)

// NewLogisticRegression creates a new LogisticRegression classifier
func NewLogisticRegression(opts ...LogisticRegressionOption) *LogisticRegression {
	lr := &LogisticRegression{
		state:        model.NewStateManager(),
		penalty:      "l2",
		C:            1.0,
		fitIntercept: true,
		classWeight:  "none",
		solver:       "lbfgs",
		maxIter:      100,
		l1Ratio:      0.5,
		tol:          1e-4,
		randomState:  -1,
	}
	for _, opt := range opts {
		opt(lr)
	}
	lr.logger = log.GetLoggerWithName("LogisticRegression")
	return lr
}

// WithLRPenalty sets the regularization type
func WithLRPenalty(penalty string) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.penalty = penalty }
}

// WithLRC sets the inverse regularization strength
func WithLRC(c float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.C = c }
}

// WithLogisticFitIntercept sets whether to fit intercept
func WithLogisticFitIntercept(fit bool) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.fitIntercept = fit }
}

// WithLRSolver sets the optimization solver
func WithLRSolver(solver string) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.solver = solver }
}

// WithLRMaxIter sets the maximum number of iterations
func WithLRMaxIter(maxIter int) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.maxIter = maxIter }
}

// WithLRTol sets the tolerance for stopping criteria
func WithLRTol(tol float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.tol = tol }
}

// WithLRL1Ratio sets the elastic-net mixing parameter
func WithLRL1Ratio(ratio float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.l1Ratio = ratio }
}

// WithLRClassWeight sets the class weighting, "balanced" or "none"
func WithLRClassWeight(w string) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.classWeight = w }
}

// WithLRRandomState sets the random seed
func WithLRRandomState(seed int64) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.randomState = seed }
}

func (lr *LogisticRegression) validate() error {
	switch lr.penalty {
	case "l1", "l2", "elasticnet", "none":
	default:
		return errors.NewValidationError("penalty", "must be l1, l2, elasticnet or none", lr.penalty)
	}
	switch lr.solver {
	case "lbfgs", "newton-cg", "sag":
		if lr.penalty == "l1" || lr.penalty == "elasticnet" {
			return errors.NewValidationError("solver", fmt.Sprintf("%s supports only 'l2' or 'none' penalties", lr.solver), lr.penalty)
		}
	case "liblinear":
		if lr.penalty == "elasticnet" || lr.penalty == "none" {
			return errors.NewValidationError("solver", "liblinear supports only 'l1' or 'l2' penalties", lr.penalty)
		}
	case "saga":
	default:
		return errors.NewValidationError("solver", "unknown solver", lr.solver)
	}
	if lr.C <= 0 {
		return errors.NewValidationError("C", "must be positive", lr.C)
	}
	if lr.penalty == "elasticnet" && (lr.l1Ratio < 0 || lr.l1Ratio > 1) {
		return errors.NewValidationError("l1_ratio", "must be in [0, 1]", lr.l1Ratio)
	}
	if lr.classWeight != "none" && lr.classWeight != "balanced" && lr.classWeight != "" {
		return errors.NewValidationError("class_weight", "must be balanced or none", lr.classWeight)
	}
	return nil
}

// Fit trains the logistic regression model
func (lr *LogisticRegression) Fit(X, y mat.Matrix) error {
	if err := lr.validate(); err != nil {
		return err
	}
	labels, err := model.CheckXY("LogisticRegression.Fit", X, y)
	if err != nil {
		return err
	}
	nSamples, nFeatures := X.Dims()
	Xd := mat.DenseCopyOf(X)

	weights := make([]float64, nSamples)
	if lr.classWeight == "balanced" {
		weights = model.BalancedWeights(labels)
	} else {
		for i := range weights {
			weights[i] = 1
		}
	}

	// 目的関数を C*n で割って平均損失のスケールにする
	lambda := 1.0 / (lr.C * float64(nSamples))
	var l1, l2 float64
	switch lr.penalty {
	case "l1":
		l1 = lambda
	case "l2":
		l2 = lambda
	case "elasticnet":
		l1 = lambda * lr.l1Ratio
		l2 = lambda * (1 - lr.l1Ratio)
	}

	s := &proxSolver{
		X:       Xd,
		y:       labels,
		w:       weights,
		l1:      l1,
		l2:      l2,
		fitInt:  lr.fitIntercept,
		maxIter: lr.maxIter,
		tol:     lr.tol,
	}
	coef, intercept, nIter, converged := s.solve(nFeatures)
	if !converged {
		errors.Warn(errors.NewConvergenceWarning(lr.solver, nIter, "The max_iter was reached which means the coef_ did not converge"))
	}

	lr.coef_ = coef
	lr.intercept_ = intercept
	lr.nIter_ = nIter
	lr.state.SetDimensions(nFeatures, nSamples)
	lr.state.SetFitted()

	lr.logger.Debug("LogisticRegression fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		log.IterationKey, nIter,
	)
	return nil
}

// DecisionFunction returns X coef + intercept.
func (lr *LogisticRegression) DecisionFunction(X mat.Matrix) ([]float64, error) {
	if err := lr.state.RequireFitted("LogisticRegression", "DecisionFunction"); err != nil {
		return nil, err
	}
	n, p := X.Dims()
	if err := lr.state.CheckFeatures("LogisticRegression.DecisionFunction", p); err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		z := lr.intercept_
		for j := 0; j < p; j++ {
			z += X.At(i, j) * lr.coef_[j]
		}
		out[i] = z
	}
	return out, nil
}

func (lr *LogisticRegression) positive(X mat.Matrix) ([]float64, error) {
	z, err := lr.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	for i := range z {
		z[i] = errors.Sigmoid(z[i])
	}
	return z, nil
}

// Predict makes predictions for input data
func (lr *LogisticRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	p, err := lr.positive(X)
	if err != nil {
		return nil, err
	}
	return model.LabelsFromPositive(p), nil
}

// PredictProba returns probability estimates for classes 0 and 1
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	p, err := lr.positive(X)
	if err != nil {
		return nil, err
	}
	return model.ProbaFromPositive(p), nil
}

// Score returns the mean accuracy on the given test data and labels
func (lr *LogisticRegression) Score(X, y mat.Matrix) float64 {
	predictions, err := lr.Predict(X)
	if err != nil {
		return 0.0
	}
	nSamples, _ := X.Dims()
	correct := 0
	for i := 0; i < nSamples; i++ {
		if predictions.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(nSamples)
}

// Coef returns the fitted coefficients.
func (lr *LogisticRegression) Coef() []float64 {
	return append([]float64(nil), lr.coef_...)
}

// Intercept returns the fitted intercept.
func (lr *LogisticRegression) Intercept() float64 { return lr.intercept_ }

// NIter returns the number of solver iterations of the last Fit.
func (lr *LogisticRegression) NIter() int { return lr.nIter_ }

// IsFitted reports whether Fit has been called.
func (lr *LogisticRegression) IsFitted() bool { return lr.state.IsFitted() }

// GetParams returns the model hyperparameters
func (lr *LogisticRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"penalty":       lr.penalty,
		"C":             lr.C,
		"fit_intercept": lr.fitIntercept,
		"class_weight":  lr.classWeight,
		"random_state":  lr.randomState,
		"solver":        lr.solver,
		"max_iter":      lr.maxIter,
		"l1_ratio":      lr.l1Ratio,
		"tol":           lr.tol,
	}
}

// SetParams sets the model hyperparameters
func (lr *LogisticRegression) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var err error
		switch key {
		case "penalty":
			lr.penalty, err = model.ParamString(key, value)
		case "C":
			lr.C, err = model.ParamFloat(key, value)
		case "fit_intercept":
			lr.fitIntercept, err = model.ParamBool(key, value)
		case "class_weight":
			lr.classWeight, err = model.ParamString(key, value)
		case "random_state":
			var seed int
			seed, err = model.ParamInt(key, value)
			lr.randomState = int64(seed)
		case "solver":
			lr.solver, err = model.ParamString(key, value)
		case "max_iter":
			lr.maxIter, err = model.ParamInt(key, value)
		case "l1_ratio":
			lr.l1Ratio, err = model.ParamFloat(key, value)
		case "tol":
			lr.tol, err = model.ParamFloat(key, value)
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Clone returns an unfitted copy with the same hyperparameters.
func (lr *LogisticRegression) Clone() model.Estimator {
	c := NewLogisticRegression()
	_ = c.SetParams(lr.GetParams())
	return c
}

// proxSolver minimizes mean weighted log-loss + l2/2 ||b||^2 + l1 ||b||_1
// with FISTA and backtracking line search.
type proxSolver struct {
	X       *mat.Dense
	y, w    []float64
	l1, l2  float64
	fitInt  bool
	maxIter int
	tol     float64
}

// smooth returns the smooth objective and its gradient at (b, b0).
func (s *proxSolver) smooth(b []float64, b0 float64) (float64, []float64, float64) {
	n, p := s.X.Dims()
	grad := make([]float64, p)
	var g0, loss float64
	row := make([]float64, p)
	for i := 0; i < n; i++ {
		mat.Row(row, i, s.X)
		z := b0
		for j, x := range row {
			z += x * b[j]
		}
		loss += s.w[i] * (errors.Log1pExp(z) - s.y[i]*z)
		r := s.w[i] * (errors.Sigmoid(z) - s.y[i])
		g0 += r
		for j, x := range row {
			grad[j] += r * x
		}
	}
	inv := 1 / float64(n)
	loss *= inv
	g0 *= inv
	for j := range grad {
		grad[j] = grad[j]*inv + s.l2*b[j]
		loss += 0.5 * s.l2 * b[j] * b[j]
	}
	if !s.fitInt {
		g0 = 0
	}
	return loss, grad, g0
}

func softThreshold(v, t float64) float64 {
	switch {
	case v > t:
		return v - t
	case v < -t:
		return v + t
	default:
		return 0
	}
}

func (s *proxSolver) solve(p int) ([]float64, float64, int, bool) {
	b := make([]float64, p)
	var b0 float64
	yb := make([]float64, p) // extrapolated point
	var yb0 float64
	t := 1.0
	step := 1.0

	next := make([]float64, p)
	for iter := 1; iter <= s.maxIter; iter++ {
		f, grad, g0 := s.smooth(yb, yb0)

		// バックトラッキングで Lipschitz 条件を満たすステップを探す
		var nb0 float64
		for k := 0; k < 50; k++ {
			for j := range next {
				next[j] = softThreshold(yb[j]-step*grad[j], step*s.l1)
			}
			nb0 = yb0 - step*g0
			fn, _, _ := s.smooth(next, nb0)
			quad := f + (nb0-yb0)*g0
			var sq float64
			for j := range next {
				d := next[j] - yb[j]
				quad += d * grad[j]
				sq += d * d
			}
			sq += (nb0 - yb0) * (nb0 - yb0)
			if fn <= quad+sq/(2*step)+1e-12 {
				break
			}
			step /= 2
		}

		maxChange := math.Abs(nb0 - b0)
		for j := range next {
			maxChange = math.Max(maxChange, math.Abs(next[j]-b[j]))
		}

		tNext := (1 + math.Sqrt(1+4*t*t)) / 2
		momentum := (t - 1) / tNext
		for j := range next {
			yb[j] = next[j] + momentum*(next[j]-b[j])
			b[j] = next[j]
		}
		yb0 = nb0 + momentum*(nb0-b0)
		b0 = nb0
		t = tNext

		if maxChange <= s.tol {
			return b, b0, iter, true
		}
	}
	return b, b0, s.maxIter, false
}
