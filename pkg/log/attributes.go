// Standard attribute keys shared by every log call in rftune. They follow a
// hierarchical "<area>.<name>" convention so that logs can be filtered by prefix.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the type of estimator.
	// Examples: "RandomForestClassifier", "GridSearchCV", "RFECV"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is logging.
	// Examples: "ensemble", "model_selection", "feature_selection"
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of model lifecycle.
	PhaseKey = "ml.phase"
)

// Data Shape
const (
	// SamplesKey indicates the number of samples (rows).
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns).
	FeaturesKey = "data.features"

	// ClassesKey indicates the number of distinct labels.
	ClassesKey = "data.classes"
)

// Performance and Scores
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// ScoreKey records a cross-validated score.
	ScoreKey = "metrics.score"

	// ScoreStdKey records the standard deviation of fold scores.
	ScoreStdKey = "metrics.score_std"

	// ScoringKey names the scoring function ("accuracy", "roc_auc", ...).
	ScoringKey = "metrics.scoring"

	// IterationKey records the current iteration number of an iterative process.
	IterationKey = "training.iteration"
)

// Model Selection
const (
	// CandidatesKey is the number of parameter combinations in a grid.
	CandidatesKey = "cv.candidates"

	// CandidateKey is the 1-based index of the combination being evaluated.
	CandidateKey = "cv.candidate"

	// FoldsKey is the number of cross-validation folds.
	FoldsKey = "cv.folds"

	// FoldKey is the 0-based index of a fold.
	FoldKey = "cv.fold"

	// HyperParamsKey contains hyperparameters as a structured object.
	HyperParamsKey = "model.hyperparams"

	// StepKey is the number of features removed per elimination iteration.
	StepKey = "rfe.step"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"

	// JobsKey records the degree of parallelism.
	JobsKey = "config.n_jobs"
)

// Error Context
const (
	// ErrorCodeKey provides a structured error code for programmatic handling.
	ErrorCodeKey = "error.code"

	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"
)

// Standard attribute values.
const (
	OperationFit         = "fit"
	OperationPredict     = "predict"
	OperationScore       = "score"
	OperationSearch      = "grid_search"
	OperationElimination = "feature_elimination"

	PhaseTraining   = "training"
	PhaseValidation = "validation"

	ErrorNotFitted         = "NOT_FITTED"
	ErrorDimensionMismatch = "DIMENSION_MISMATCH"
	ErrorInvalidParam      = "INVALID_PARAM"
)
