package log

// Model and operation context.
const (
	// ModelNameKey identifies the estimator, e.g. "Logit", "RandomForest".
	ModelNameKey = "model.name"

	// OperationKey is the operation being performed: "fit", "predict", "score".
	OperationKey = "ml.operation"

	// ComponentKey identifies the package emitting the record.
	ComponentKey = "ml.component"

	// PhaseKey indicates "training", "validation", "testing".
	PhaseKey = "ml.phase"
)

// Data shape.
const (
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"
	TargetKey   = "data.target"
)

// Performance and metrics.
const (
	DurationMsKey = "perf.duration_ms"
	AccuracyKey   = "metrics.accuracy"
	AUCKey        = "metrics.auc"
	F1Key         = "metrics.f1"
	LossKey       = "metrics.loss"
	IterationKey  = "training.iteration"
)

// Stepwise selection.
const (
	// FeatureKey is the feature entering or leaving the model.
	FeatureKey = "selection.feature"

	// PValueKey is the Wald p-value that drove the decision.
	PValueKey = "selection.pvalue"

	// StepKey is the selection iteration number.
	StepKey = "selection.step"

	// SelectedKey is the current selected feature list.
	SelectedKey = "selection.selected"
)

// Hyperparameter search.
const (
	StudyKey       = "tuning.study"
	TrialKey       = "tuning.trial"
	ValueKey       = "tuning.value"
	HyperParamsKey = "tuning.params"
	FoldKey        = "cv.fold"
	ScoringKey     = "cv.scoring"
	RandomSeedKey  = "config.random_seed"
)

// Error context.
const (
	ErrorCodeKey  = "error.code"
	ErrorTypeKey  = "error.type"
	SuggestionKey = "error.suggestion"
)

// Standard attribute values.
const (
	OperationFit     = "fit"
	OperationPredict = "predict"
	OperationScore   = "score"
	OperationSelect  = "select"
	OperationTune    = "tune"

	PhaseTraining   = "training"
	PhaseValidation = "validation"
	PhaseTesting    = "testing"

	ErrorNotFitted      = "NOT_FITTED"
	ErrorConvergence    = "CONVERGENCE_FAILURE"
	ErrorSingularMatrix = "SINGULAR_MATRIX"
	ErrorTrialFailed    = "TRIAL_FAILED"
)
