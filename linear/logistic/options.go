package logistic

import "github.com/YuminosukeSato/logitgd/pkg/log"

// Default solver settings.
const (
	DefaultLearningRate = 0.01
	DefaultMaxIter      = 1000
	DefaultTol          = 1e-6
)

// Option configures a Solver.
type Option func(*Solver)

// WithLearningRate sets the fixed step size. It is ignored when a custom
// Stepper is installed with WithStepper.
func WithLearningRate(lr float64) Option {
	return func(s *Solver) {
		s.learningRate = lr
	}
}

// WithMaxIter sets the iteration budget. Zero means no step is taken.
func WithMaxIter(maxIter int) Option {
	return func(s *Solver) {
		s.maxIter = maxIter
	}
}

// WithTol sets the convergence tolerance on the change in log-likelihood
// between consecutive iterations. A tolerance of zero never fires.
func WithTol(tol float64) Option {
	return func(s *Solver) {
		s.tol = tol
	}
}

// WithStepper replaces the coefficient update rule.
func WithStepper(stepper Stepper) Option {
	return func(s *Solver) {
		s.stepper = stepper
	}
}

// WithCallback registers fn to be called once per iteration, after the
// convergence test has been evaluated.
func WithCallback(fn func(Iteration)) Option {
	return func(s *Solver) {
		s.callback = fn
	}
}

// WithLogger enables per-iteration debug records.
func WithLogger(logger log.Logger) Option {
	return func(s *Solver) {
		s.logger = logger
	}
}
