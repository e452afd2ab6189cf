package logistic

import (
	"context"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/logitgd/pkg/log"
)

// Result is the outcome of one fit. It is built once when the fit ends and
// the caller owns the Coefficients slice.
type Result struct {
	// Coefficients has one entry per column of the design matrix.
	Coefficients []float64

	// Converged reports whether the log-likelihood change dropped below the
	// tolerance before the iteration budget ran out.
	Converged bool

	// Iterations is the number of iterations executed.
	Iterations int

	// LogLikelihood is the last value computed by the loop. It is evaluated
	// on the probabilities that produced the final gradient, so it trails
	// Coefficients by one update.
	LogLikelihood float64
}

// Iteration describes one pass of the solver loop.
type Iteration struct {
	Index         int
	LogLikelihood float64
	// Delta is the change from the previous iteration; +Inf on the first.
	Delta    float64
	GradNorm float64
}

// Solver fits binary logistic regression by batch gradient descent.
//
// A Solver only holds configuration: every call to Fit allocates its own
// coefficient and work vectors, so a Solver can be shared by goroutines as
// long as the inputs they pass are not modified during the fit.
type Solver struct {
	learningRate float64
	maxIter      int
	tol          float64
	stepper      Stepper
	callback     func(Iteration)
	logger       log.Logger
}

// NewSolver creates a Solver with DefaultLearningRate, DefaultMaxIter and
// DefaultTol, modified by opts.
func NewSolver(opts ...Option) *Solver {
	s := &Solver{
		learningRate: DefaultLearningRate,
		maxIter:      DefaultMaxIter,
		tol:          DefaultTol,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LearningRate returns the configured step size.
func (s *Solver) LearningRate() float64 { return s.learningRate }

// MaxIter returns the iteration budget.
func (s *Solver) MaxIter() int { return s.maxIter }

// Tol returns the convergence tolerance.
func (s *Solver) Tol() float64 { return s.tol }

// Fit runs gradient descent on the n×p design matrix X and the length-n
// response y, whose entries must be 0 or 1. Inputs are not validated; shape
// mismatches make gonum panic, and non-finite inputs or an oversized learning
// rate yield non-finite coefficients rather than an error.
//
// Starting from zero coefficients, each iteration computes
//
//	p    = sigmoid(X·beta)
//	g    = Xᵀ(p - y) / n
//	beta = step(beta, g)
//	ll   = LogLikelihood(y, p)
//
// and stops once |ll - previous ll| < tol. With a zero budget the result
// holds the zero vector and the log-likelihood at that point.
func (s *Solver) Fit(X mat.Matrix, y mat.Vector) Result {
	n, p := X.Dims()

	coef := mat.NewVecDense(p, nil)
	logits := mat.NewVecDense(n, nil)
	probs := mat.NewVecDense(n, nil)
	resid := mat.NewVecDense(n, nil)
	grad := mat.NewVecDense(p, nil)

	stepper := s.stepper
	if stepper == nil {
		stepper = FixedStep{LearningRate: s.learningRate}
	}
	debug := s.logger != nil && s.logger.Enabled(context.Background(), log.LevelDebug)
	invN := 1.0 / float64(n)

	prevLL := math.Inf(-1)
	ll := prevLL
	converged := false
	iterations := 0

	for k := 1; k <= s.maxIter; k++ {
		logits.MulVec(X, coef)
		SigmoidVec(probs, logits)
		resid.SubVec(probs, y)
		grad.MulVec(X.T(), resid)
		grad.ScaleVec(invN, grad)

		stepper.Step(coef, grad)

		// probs still holds the pre-update probabilities here.
		ll = LogLikelihood(y, probs)
		iterations = k
		delta := ll - prevLL
		converged = math.Abs(delta) < s.tol

		if s.callback != nil || debug {
			it := Iteration{
				Index:         k,
				LogLikelihood: ll,
				Delta:         delta,
				GradNorm:      floats.Norm(grad.RawVector().Data, 2),
			}
			if debug {
				s.logIteration(it)
			}
			if s.callback != nil {
				s.callback(it)
			}
		}

		if converged {
			break
		}
		prevLL = ll
	}

	if iterations == 0 {
		logits.MulVec(X, coef)
		SigmoidVec(probs, logits)
		ll = LogLikelihood(y, probs)
	}

	return Result{
		Coefficients:  coef.RawVector().Data,
		Converged:     converged,
		Iterations:    iterations,
		LogLikelihood: ll,
	}
}

func (s *Solver) logIteration(it Iteration) {
	fields := []any{
		log.IterationKey, it.Index,
		log.LogLikelihoodKey, it.LogLikelihood,
		log.GradNormKey, it.GradNorm,
	}
	if !math.IsInf(it.Delta, 0) && !math.IsNaN(it.Delta) {
		fields = append(fields, log.DeltaKey, it.Delta)
	}
	s.logger.Debug("gradient descent iteration", fields...)
}
