// Package selection implements significance-driven stepwise selection of
// logistic regression variables.
//
// Each iteration runs a forward step, which adds the candidate with the
// smallest Wald p-value when it is below the entry threshold, followed by
// a backward step, which removes the selected variable with the largest
// p-value when it exceeds the exit threshold. Iteration stops when neither
// step changes the selection.
//
//	res, err := selection.StepwiseSelection(frame, "BAD",
//	    selection.WithThresholdIn(0.05),
//	    selection.WithThresholdOut(0.05),
//	)
//	fmt.Println(res.Selected)
package selection

import (
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/riskml/dataset"
	"github.com/YuminosukeSato/riskml/pkg/errors"
	"github.com/YuminosukeSato/riskml/pkg/log"
	"github.com/YuminosukeSato/riskml/statsmodels/discrete"
)

// StepKind tells whether a step added or removed a variable.
type StepKind int

const (
	// StepAdd is a forward step.
	StepAdd StepKind = iota
	// StepRemove is a backward step.
	StepRemove
)

// String returns "add" or "remove".
func (k StepKind) String() string {
	if k == StepAdd {
		return "add"
	}
	return "remove"
}

// Step records one change of the selected set.
type Step struct {
	Kind    StepKind
	Feature string
	PValue  float64
}

// StepwiseResult is the outcome of StepwiseSelection.
type StepwiseResult struct {
	// Selected lists the retained variables in the order they entered.
	Selected []string
	// Steps is the ordered history of additions and removals.
	Steps []Step
	// NumColumns is the number of columns of the input frame, target included.
	NumColumns int
	// Oscillated is set when the selection revisited an earlier set and
	// was stopped there.
	Oscillated bool
}

type config struct {
	thresholdIn  float64
	thresholdOut float64
	verbose      bool
	maxSteps     int
	logger       log.Logger
	logitOpts    []discrete.Option
}

// Option configures StepwiseSelection.
type Option func(*config)

// WithThresholdIn sets the entry p-value threshold (default 0.05).
func WithThresholdIn(p float64) Option {
	return func(c *config) { c.thresholdIn = p }
}

// WithThresholdOut sets the exit p-value threshold (default 0.05).
func WithThresholdOut(p float64) Option {
	return func(c *config) { c.thresholdOut = p }
}

// WithVerbose toggles the per-step Info logs (default true).
func WithVerbose(v bool) Option {
	return func(c *config) { c.verbose = v }
}

// WithMaxSteps bounds the number of iterations. The default is twice the
// number of candidate variables plus 10.
func WithMaxSteps(n int) Option {
	return func(c *config) { c.maxSteps = n }
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithLogitOptions passes options to every Logit fit.
func WithLogitOptions(opts ...discrete.Option) Option {
	return func(c *config) { c.logitOpts = append(c.logitOpts, opts...) }
}

// StepwiseSelection selects the columns of frame, other than target, that
// enter a logistic model of target.
//
// Candidates are evaluated in frame column order, so equal p-values resolve
// to the earliest column. A candidate whose Logit fit fails, or whose
// p-value is undefined, is skipped. If an iteration ends on a set that an
// earlier iteration already ended on, selection stops with an
// OscillationWarning and returns that set.
func StepwiseSelection(frame *dataset.Frame, target string, opts ...Option) (*StepwiseResult, error) {
	if frame == nil || frame.Nrow() == 0 {
		return nil, errors.WithStack(errors.ErrEmptyData)
	}
	y, err := frame.Target(target)
	if err != nil {
		return nil, err
	}
	features := frame.FeatureNames(target)
	columns := make(map[string]*mat.VecDense, len(features))
	for _, name := range features {
		values, err := frame.Column(name)
		if err != nil {
			return nil, err
		}
		columns[name] = mat.NewVecDense(len(values), values)
	}

	cfg := &config{
		thresholdIn:  0.05,
		thresholdOut: 0.05,
		verbose:      true,
		maxSteps:     2*len(features) + 10,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = log.GetLoggerWithName("selection")
	}
	logger := cfg.logger.With(log.OperationKey, log.OperationSelect, log.TargetKey, target)

	s := &logitSteps{
		y:       y,
		columns: columns,
		logit:   discrete.NewLogit(append([]discrete.Option{discrete.WithLogger(logger)}, cfg.logitOpts...)...),
		logger:  logger,
	}

	res := &StepwiseResult{NumColumns: frame.Ncol()}
	if err := runStepwise(s, features, cfg, logger, res); err != nil {
		return nil, err
	}
	if cfg.verbose {
		logger.Info("stepwise selection finished",
			"columns", res.NumColumns,
			log.SelectedKey, res.Selected,
			"n_selected", len(res.Selected),
		)
	}
	return res, nil
}

// stepModel scores one forward and one backward step for a selected set.
type stepModel interface {
	// forward returns the remaining candidate with the smallest p-value,
	// or "" when none could be evaluated.
	forward(selected, remaining []string) (string, float64)
	// backward returns the selected variable with the largest p-value.
	backward(selected []string) (string, float64, error)
}

// runStepwise は前進・後退ステップを繰り返し、res.Selected と res.Steps を埋める
func runStepwise(m stepModel, features []string, cfg *config, logger log.Logger, res *StepwiseResult) error {
	var selected []string
	// 反復終了時点の集合だけを記録する（開始時の空集合を含む）
	visited := map[string]bool{setKey(selected): true}

	for iter := 1; iter <= cfg.maxSteps; iter++ {
		changed, last := false, ""

		// 前進ステップ
		remaining := make([]string, 0, len(features))
		for _, f := range features {
			if !contains(selected, f) {
				remaining = append(remaining, f)
			}
		}
		if bestVar, bestP := m.forward(selected, remaining); bestVar != "" && bestP < cfg.thresholdIn {
			selected = append(selected, bestVar)
			res.Steps = append(res.Steps, Step{Kind: StepAdd, Feature: bestVar, PValue: bestP})
			changed, last = true, bestVar
			if cfg.verbose {
				logger.Info("adding feature", log.FeatureKey, bestVar, log.PValueKey, bestP, log.StepKey, iter)
			}
		}

		// 後退ステップ（定数項は対象外）
		if len(selected) > 0 {
			worstVar, worstP, err := m.backward(selected)
			if err != nil {
				return errors.Wrapf(err, "stepwise: fit of %v", selected)
			}
			if worstVar != "" && worstP > cfg.thresholdOut {
				selected = remove(selected, worstVar)
				res.Steps = append(res.Steps, Step{Kind: StepRemove, Feature: worstVar, PValue: worstP})
				changed, last = true, worstVar
				if cfg.verbose {
					logger.Info("removing feature", log.FeatureKey, worstVar, log.PValueKey, worstP, log.StepKey, iter)
				}
			}
		}

		if !changed {
			break
		}
		if oscillates(visited, selected, last, iter, res, logger) {
			break
		}
		if iter == cfg.maxSteps {
			logger.Warn("stepwise selection reached the step limit", log.StepKey, iter)
		}
	}
	res.Selected = selected
	return nil
}

// logitSteps scores steps with Logit Wald p-values.
type logitSteps struct {
	y       *mat.VecDense
	columns map[string]*mat.VecDense
	logit   *discrete.Logit
	logger  log.Logger
}

func (s *logitSteps) fit(vars []string) (*discrete.LogitResults, error) {
	n := s.y.Len()
	if len(vars) == 0 {
		return s.logit.Fit(&mat.Dense{}, s.y, nil)
	}
	X := mat.NewDense(n, len(vars), nil)
	for j, v := range vars {
		X.SetCol(j, s.columns[v].RawVector().Data)
	}
	return s.logit.Fit(X, s.y, vars)
}

func (s *logitSteps) forward(selected, remaining []string) (string, float64) {
	return bestCandidate(remaining, s.logger, func(cand string) (float64, error) {
		fitted, err := s.fit(append(append([]string{}, selected...), cand))
		if err != nil {
			return 0, err
		}
		return fitted.PValue(cand)
	})
}

func (s *logitSteps) backward(selected []string) (string, float64, error) {
	model, err := s.fit(selected)
	if err != nil {
		return "", 0, err
	}
	worstVar, worstP := "", math.Inf(-1)
	for j, name := range model.Names[1:] {
		if p := model.PValues[j+1]; p > worstP {
			worstVar, worstP = name, p
		}
	}
	return worstVar, worstP, nil
}

// bestCandidate returns the candidate with the smallest p-value. Candidates
// whose p-value cannot be computed or is NaN are logged and skipped.
func bestCandidate(cands []string, logger log.Logger, pvalue func(string) (float64, error)) (string, float64) {
	bestVar, bestP := "", math.Inf(1)
	for _, cand := range cands {
		p, err := pvalue(cand)
		if err != nil {
			logger.Debug("skipping candidate", log.FeatureKey, cand, log.ErrAttrKey, err)
			continue
		}
		if math.IsNaN(p) {
			logger.Debug("skipping candidate with undefined p-value", log.FeatureKey, cand)
			continue
		}
		if p < bestP {
			bestVar, bestP = cand, p
		}
	}
	return bestVar, bestP
}

// oscillates records selected as visited and reports whether it had
// already been seen, in which case an OscillationWarning is emitted.
func oscillates(visited map[string]bool, selected []string, feature string, step int, res *StepwiseResult, logger log.Logger) bool {
	key := setKey(selected)
	if !visited[key] {
		visited[key] = true
		return false
	}
	res.Oscillated = true
	w := errors.NewOscillationWarning(feature, selected, step)
	errors.Warn(w)
	logger.Warn("stopping oscillating selection", log.FeatureKey, feature, log.StepKey, step, log.SelectedKey, selected)
	return true
}

func setKey(vars []string) string {
	sorted := append([]string{}, vars...)
	sort.Strings(sorted)
	return strings.Join(sorted, "\x00")
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func remove(list []string, v string) []string {
	out := make([]string, 0, len(list))
	for _, x := range list {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}
