// Package optimize is a sequential hyperparameter optimizer modelled on
// optuna: a Study runs an objective repeatedly, each Trial suggests
// parameters through a Sampler, and the best completed trial is kept.
package optimize

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/riskml/pkg/errors"
	"github.com/YuminosukeSato/riskml/pkg/log"
)

// Direction tells the study whether larger or smaller values are better.
type Direction int

const (
	// Minimize keeps the trial with the smallest value (default).
	Minimize Direction = iota
	// Maximize keeps the trial with the largest value.
	Maximize
)

// String returns "minimize" or "maximize".
func (d Direction) String() string {
	if d == Maximize {
		return "maximize"
	}
	return "minimize"
}

// better は a が b より良いかを返す
func (d Direction) better(a, b float64) bool {
	if d == Maximize {
		return a > b
	}
	return a < b
}

// Objective evaluates one configuration. Returning an error marks the
// trial failed; wrapping errors.ErrTrialPruned marks it pruned.
type Objective func(trial Trial) (float64, error)

// Study holds the trials of one optimization run.
type Study struct {
	id        string
	name      string
	direction Direction
	sampler   Sampler
	seed      int64
	logger    log.Logger

	mu     sync.RWMutex
	trials []FrozenTrial
	best   int
}

// StudyOption configures a Study.
type StudyOption func(*Study)

// WithDirection sets the optimization direction. Default: Minimize.
func WithDirection(d Direction) StudyOption {
	return func(s *Study) { s.direction = d }
}

// WithSampler sets the sampler. Default: TPESampler seeded by WithSeed.
func WithSampler(sampler Sampler) StudyOption {
	return func(s *Study) { s.sampler = sampler }
}

// WithSeed seeds the default sampler.
func WithSeed(seed int64) StudyOption {
	return func(s *Study) { s.seed = seed }
}

// WithStudyName sets a human readable name used in logs.
func WithStudyName(name string) StudyOption {
	return func(s *Study) { s.name = name }
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) StudyOption {
	return func(s *Study) { s.logger = l }
}

// NewStudy creates an empty study.
func NewStudy(opts ...StudyOption) *Study {
	s := &Study{
		id:        uuid.New().String(),
		direction: Minimize,
		best:      -1,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sampler == nil {
		s.sampler = NewTPESampler(s.seed)
	}
	if s.name == "" {
		s.name = "study-" + s.id[:8]
	}
	if s.logger == nil {
		s.logger = log.GetLoggerWithName("Study")
	}
	s.logger = s.logger.With(log.StudyKey, s.name)
	return s
}

// ID returns the study's unique identifier.
func (s *Study) ID() string { return s.id }

// Name returns the study name.
func (s *Study) Name() string { return s.name }

// Direction returns the optimization direction.
func (s *Study) Direction() Direction { return s.direction }

// Optimize runs nTrials sequential trials. A failing objective does not
// stop the study; a cancelled context does, and its error is returned.
func (s *Study) Optimize(ctx context.Context, objective Objective, nTrials int) error {
	if objective == nil {
		return errors.NewValueError("Study.Optimize", "nil objective")
	}
	if nTrials < 1 {
		return errors.NewValidationError("n_trials", "must be >= 1", nTrials)
	}

	for i := 0; i < nTrials; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.runTrial(objective)
	}
	return nil
}

func (s *Study) runTrial(objective Objective) {
	s.mu.RLock()
	number := len(s.trials)
	s.mu.RUnlock()

	trial := &studyTrial{
		study:  s,
		number: number,
		params: make(map[string]interface{}),
		dists:  make(map[string]Distribution),
	}
	start := time.Now()
	var value float64
	err := errors.SafeExecute(fmt.Sprintf("trial %d", number), func() error {
		var err error
		value, err = objective(trial)
		return err
	})

	ft := FrozenTrial{
		Number:        number,
		State:         TrialComplete,
		Value:         value,
		Params:        trial.params,
		Distributions: trial.dists,
		Start:         start,
		Duration:      time.Since(start),
	}
	switch {
	case err != nil && errors.Is(err, errors.ErrTrialPruned):
		ft.State, ft.Err, ft.Value = TrialPruned, err, math.NaN()
	case err != nil:
		ft.State, ft.Err, ft.Value = TrialFail, err, math.NaN()
	case math.IsNaN(value) || math.IsInf(value, 0):
		ft.State, ft.Err = TrialFail, errors.NewValueError("Study.Optimize", "objective returned a non-finite value")
	}

	s.mu.Lock()
	s.trials = append(s.trials, ft)
	isBest := false
	if ft.State == TrialComplete && (s.best < 0 || s.direction.better(ft.Value, s.trials[s.best].Value)) {
		s.best = ft.Number
		isBest = true
	}
	bestValue := math.NaN()
	if s.best >= 0 {
		bestValue = s.trials[s.best].Value
	}
	s.mu.Unlock()

	if ft.State != TrialComplete {
		s.logger.Warn("trial "+ft.State.String(),
			log.TrialKey, ft.Number,
			log.HyperParamsKey, ft.Params,
			"error", ft.Err,
		)
		return
	}
	s.logger.Info("trial finished",
		log.TrialKey, ft.Number,
		log.ValueKey, ft.Value,
		log.HyperParamsKey, ft.Params,
		"best_value", bestValue,
		"is_best", isBest,
		log.DurationMsKey, ft.Duration.Milliseconds(),
	)
}

// completed returns the finished trials usable by samplers.
func (s *Study) completed() []FrozenTrial {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]FrozenTrial, 0, len(s.trials))
	for _, t := range s.trials {
		if t.State == TrialComplete {
			out = append(out, t)
		}
	}
	return out
}

// Trials returns every recorded trial in order.
func (s *Study) Trials() []FrozenTrial {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]FrozenTrial(nil), s.trials...)
}

// BestTrial returns the best completed trial. The earliest trial wins ties.
func (s *Study) BestTrial() (FrozenTrial, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.best < 0 {
		return FrozenTrial{}, errors.WithStack(errors.ErrNoCompletedTrials)
	}
	return s.trials[s.best], nil
}

// BestParams returns the parameters of the best trial.
func (s *Study) BestParams() (map[string]interface{}, error) {
	t, err := s.BestTrial()
	if err != nil {
		return nil, err
	}
	out := make(map[string]interface{}, len(t.Params))
	for k, v := range t.Params {
		out[k] = v
	}
	return out, nil
}

// BestValue returns the objective value of the best trial.
func (s *Study) BestValue() (float64, error) {
	t, err := s.BestTrial()
	if err != nil {
		return math.NaN(), err
	}
	return t.Value, nil
}
