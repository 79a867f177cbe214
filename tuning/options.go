package tuning

import (
	"github.com/YuminosukeSato/riskml/optimize"
	"github.com/YuminosukeSato/riskml/pkg/log"
	"github.com/YuminosukeSato/riskml/sklearn/model_selection"
)

const (
	// DefaultTrials is the number of optimizer trials.
	DefaultTrials = 100
	// RefitSeed is the random_state of every refitted or compared model.
	RefitSeed = 999
	// TestSize is the hold-out fraction of the grid searches and comparison.
	TestSize = 0.2
)

type config struct {
	trials  int
	cvJobs  int
	seed    int64
	sampler optimize.Sampler
	grid    model_selection.ParamGrid
	kFolds  int
	logger  log.Logger
}

// Option configures the tuning functions. Options that do not apply to a
// function are ignored.
type Option func(*config)

// WithTrials sets the number of optimizer trials. Default: 100.
func WithTrials(n int) Option {
	return func(c *config) { c.trials = n }
}

// WithCVJobs bounds concurrent cross-validation folds. Default: one per CPU.
func WithCVJobs(n int) Option {
	return func(c *config) { c.cvJobs = n }
}

// WithSeed seeds the study's default TPE sampler. Default: 999.
func WithSeed(seed int64) Option {
	return func(c *config) { c.seed = seed }
}

// WithSampler replaces the study's sampler.
func WithSampler(s optimize.Sampler) Option {
	return func(c *config) { c.sampler = s }
}

// WithGrid overrides the parameter grid of a grid search.
func WithGrid(g model_selection.ParamGrid) Option {
	return func(c *config) { c.grid = g }
}

// WithKFolds sets the number of grid-search folds. Default: 5.
func WithKFolds(k int) Option {
	return func(c *config) { c.kFolds = k }
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(c *config) { c.logger = l }
}

func newConfig(opts []Option) *config {
	c := &config{
		trials: DefaultTrials,
		cvJobs: -1,
		seed:   RefitSeed,
		kFolds: 5,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.GetLoggerWithName("tuning")
	}
	return c
}
