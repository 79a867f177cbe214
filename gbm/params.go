// Package gbm is a histogram gradient-boosted decision tree engine for
// binary log-loss. The xgboost, lightgbm and catboost sub-packages map
// each library's parameter vocabulary onto Params.
package gbm

import (
	"github.com/YuminosukeSato/riskml/pkg/errors"
)

// GrowPolicy selects how trees are grown.
type GrowPolicy string

const (
	// Depthwise splits every node level by level up to MaxDepth (xgboost).
	Depthwise GrowPolicy = "Depthwise"
	// Lossguide expands the leaf with the largest gain until NumLeaves (lightgbm).
	Lossguide GrowPolicy = "Lossguide"
	// SymmetricTree uses one split per level shared by all nodes (catboost oblivious trees).
	SymmetricTree GrowPolicy = "SymmetricTree"
)

// BootstrapType selects the row sampling scheme.
type BootstrapType string

const (
	BootstrapNo        BootstrapType = "No"
	BootstrapBernoulli BootstrapType = "Bernoulli"
	BootstrapBayesian  BootstrapType = "Bayesian"
	BootstrapMVS       BootstrapType = "MVS"
)

// SamplingFrequency controls when bootstrap weights are redrawn.
type SamplingFrequency string

const (
	PerTree      SamplingFrequency = "PerTree"
	PerTreeLevel SamplingFrequency = "PerTreeLevel"
)

// BoostingType selects how training residuals are computed.
type BoostingType string

const (
	// Plain fits each tree to the gradients of the current model.
	Plain BoostingType = "Plain"
	// Ordered updates the training scores of each row with leaf values
	// estimated only from rows that precede it in a random permutation.
	Ordered BoostingType = "Ordered"
)

// ClassWeights selects automatic class weighting.
type ClassWeights string

const (
	ClassWeightsNone         ClassWeights = ""
	ClassWeightsBalanced     ClassWeights = "Balanced"
	ClassWeightsSqrtBalanced ClassWeights = "SqrtBalanced"
)

// Params holds engine hyperparameters. Zero values of optional fields mean
// "disabled" unless noted.
type Params struct {
	NumIterations int
	LearningRate  float64
	MaxDepth      int // 0 = unlimited (Lossguide only)
	NumLeaves     int // leaf budget for Lossguide, 0 = unlimited
	GrowPolicy    GrowPolicy
	MaxBin        int

	MinDataInLeaf  int
	MinChildWeight float64 // minimum hessian sum per child
	MinSplitGain   float64 // gamma

	LambdaL1   float64
	LambdaL2   float64
	PathSmooth float64

	FeatureFraction float64 // per tree, 1 = all features

	// lightgbm style bagging: a BaggingFraction subset redrawn every BaggingFreq iterations
	BaggingFraction float64
	BaggingFreq     int

	Bootstrap          BootstrapType
	Subsample          float64 // Bernoulli / MVS, 0 = 1
	BaggingTemperature float64 // Bayesian only
	SamplingFrequency  SamplingFrequency
	RandomStrength     float64
	BoostingType       BoostingType

	ScalePosWeight float64 // 0 = 1
	IsUnbalance    bool
	ClassWeights   ClassWeights

	NumThreads int // 1 = sequential, <= 0 = all cores
	Seed       int64
}

// DefaultParams returns settings close to a LightGBM binary classifier.
func DefaultParams() Params {
	return Params{
		NumIterations:     100,
		LearningRate:      0.1,
		MaxDepth:          0,
		NumLeaves:         31,
		GrowPolicy:        Lossguide,
		MaxBin:            255,
		MinDataInLeaf:     20,
		MinChildWeight:    1e-3,
		LambdaL2:          0,
		FeatureFraction:   1,
		BaggingFraction:   1,
		Bootstrap:         BootstrapNo,
		SamplingFrequency: PerTree,
		BoostingType:      Plain,
		NumThreads:        1,
	}
}

// Validate checks ranges and the cross-parameter constraints.
func (p Params) Validate() error {
	if p.NumIterations < 1 {
		return errors.NewValidationError("num_iterations", "must be >= 1", p.NumIterations)
	}
	if p.LearningRate <= 0 {
		return errors.NewValidationError("learning_rate", "must be positive", p.LearningRate)
	}
	if p.MaxBin < 2 || p.MaxBin > 65535 {
		return errors.NewValidationError("max_bin", "must be in [2, 65535]", p.MaxBin)
	}
	if p.MaxDepth < 0 {
		return errors.NewValidationError("max_depth", "must be >= 0", p.MaxDepth)
	}
	if p.LambdaL1 < 0 || p.LambdaL2 < 0 {
		return errors.NewValidationError("lambda", "must be >= 0", []float64{p.LambdaL1, p.LambdaL2})
	}
	if p.FeatureFraction <= 0 || p.FeatureFraction > 1 {
		return errors.NewValidationError("feature_fraction", "must be in (0, 1]", p.FeatureFraction)
	}
	if p.BaggingFraction <= 0 || p.BaggingFraction > 1 {
		return errors.NewValidationError("bagging_fraction", "must be in (0, 1]", p.BaggingFraction)
	}
	if p.Subsample < 0 || p.Subsample > 1 {
		return errors.NewValidationError("subsample", "must be in (0, 1]", p.Subsample)
	}

	switch p.GrowPolicy {
	case Depthwise, SymmetricTree:
		if p.MaxDepth == 0 {
			return errors.NewValidationError("max_depth", string(p.GrowPolicy)+" requires a positive depth", p.MaxDepth)
		}
	case Lossguide:
		if p.MaxDepth == 0 && p.NumLeaves == 0 {
			return errors.NewValidationError("num_leaves", "Lossguide needs num_leaves or max_depth", p.NumLeaves)
		}
	default:
		return errors.NewValidationError("grow_policy", "unknown grow policy", p.GrowPolicy)
	}

	switch p.BoostingType {
	case Plain:
	case Ordered:
		if p.GrowPolicy != SymmetricTree {
			return errors.NewValidationError("boosting_type", "Ordered boosting requires SymmetricTree", p.GrowPolicy)
		}
	default:
		return errors.NewValidationError("boosting_type", "unknown boosting type", p.BoostingType)
	}

	switch p.SamplingFrequency {
	case PerTree:
	case PerTreeLevel:
		if p.GrowPolicy == Lossguide {
			return errors.NewValidationError("sampling_frequency", "Lossguide supports only PerTree", p.SamplingFrequency)
		}
	default:
		return errors.NewValidationError("sampling_frequency", "unknown sampling frequency", p.SamplingFrequency)
	}

	switch p.Bootstrap {
	case BootstrapNo, BootstrapBernoulli, BootstrapBayesian, BootstrapMVS:
	default:
		return errors.NewValidationError("bootstrap_type", "unknown bootstrap type", p.Bootstrap)
	}
	if p.BaggingTemperature != 0 && p.Bootstrap != BootstrapBayesian {
		return errors.NewValidationError("bagging_temperature", "only valid with Bayesian bootstrap", p.Bootstrap)
	}
	if p.BaggingTemperature < 0 {
		return errors.NewValidationError("bagging_temperature", "must be >= 0", p.BaggingTemperature)
	}
	if p.Subsample != 0 && p.Bootstrap != BootstrapBernoulli && p.Bootstrap != BootstrapMVS {
		return errors.NewValidationError("subsample", "only valid with Bernoulli or MVS bootstrap", p.Bootstrap)
	}

	switch p.ClassWeights {
	case ClassWeightsNone, ClassWeightsBalanced, ClassWeightsSqrtBalanced:
	default:
		return errors.NewValidationError("auto_class_weights", "unknown class weighting", p.ClassWeights)
	}
	if p.ScalePosWeight < 0 {
		return errors.NewValidationError("scale_pos_weight", "must be >= 0", p.ScalePosWeight)
	}
	return nil
}
