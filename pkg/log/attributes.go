// Standard attribute keys for model fitting and prediction logs.
//
// Keys follow a dotted hierarchy ("model.name", "data.samples") so records
// from different packages can be filtered the same way.

package log

// Model and operation context.
const (
	// ModelNameKey identifies the estimator type, e.g. "LogisticGD".
	ModelNameKey = "model.name"

	// OperationKey is the operation being performed: "fit", "predict", "score".
	OperationKey = "ml.operation"

	// ComponentKey identifies the package or component emitting the record.
	ComponentKey = "ml.component"

	// PhaseKey indicates the lifecycle phase: "training", "inference".
	PhaseKey = "ml.phase"
)

// Data shape.
const (
	// SamplesKey is the number of rows in the design matrix.
	SamplesKey = "data.samples"

	// FeaturesKey is the number of columns in the design matrix.
	FeaturesKey = "data.features"
)

// Training progress and results.
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// AccuracyKey records classification accuracy in [0, 1].
	AccuracyKey = "metrics.accuracy"

	// LossKey records a loss value (negative mean log-likelihood).
	LossKey = "metrics.loss"

	// LogLikelihoodKey records the Bernoulli log-likelihood of the fit.
	LogLikelihoodKey = "metrics.log_likelihood"

	// IterationKey records the current gradient descent iteration.
	IterationKey = "training.iteration"

	// DeltaKey records the change in log-likelihood since the previous iteration.
	DeltaKey = "training.delta"

	// GradNormKey records the L2 norm of the mean gradient.
	GradNormKey = "training.grad_norm"

	// ConvergedKey records whether the convergence test fired.
	ConvergedKey = "training.converged"
)

// Hyperparameters.
const (
	// LearningRateKey records the fixed gradient descent step size.
	LearningRateKey = "hyperparams.learning_rate"

	// MaxIterKey records the iteration budget.
	MaxIterKey = "hyperparams.max_iter"

	// TolKey records the convergence tolerance.
	TolKey = "hyperparams.tol"
)

// Error context.
const (
	// ErrorCodeKey provides a structured error code for programmatic handling.
	ErrorCodeKey = "error.code"

	// ErrorTypeKey categorizes the error, e.g. "ValidationError".
	ErrorTypeKey = "error.type"

	// ErrAttrKey holds the error value passed to Logger.Error.
	ErrAttrKey = "error"

	// StacktraceKey carries the stack trace recorded by cockroachdb/errors.
	StacktraceKey = "error.stacktrace"
)

// Standard values.
const (
	OperationFit     = "fit"
	OperationPredict = "predict"
	OperationScore   = "score"

	PhaseTraining  = "training"
	PhaseInference = "inference"

	ErrorNotFitted         = "NOT_FITTED"
	ErrorDimensionMismatch = "DIMENSION_MISMATCH"
	ErrorEmptyData         = "EMPTY_DATA"
	ErrorInvalidInput      = "INVALID_INPUT"
	ErrorConvergence       = "CONVERGENCE_FAILURE"
	ErrorNumerical         = "NUMERICAL_INSTABILITY"
)
