// Package logitgd fits binary logistic regression models by batch gradient
// descent on the Bernoulli log-likelihood.
//
// The numerical kernel lives in linear/logistic and is usable on its own.
// Most callers want the estimator in sklearn/linear_model, which adds input
// validation, intercept handling, convergence warnings, parallel prediction
// and persistence on top of the kernel.
//
// # Quick Start
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/logitgd/sklearn/linear_model"
//	    "gonum.org/v1/gonum/mat"
//	)
//
//	func main() {
//	    X := mat.NewDense(4, 1, []float64{0, 1, 2, 3})
//	    y := mat.NewDense(4, 1, []float64{0, 0, 1, 1})
//
//	    clf := linear_model.NewLogisticGD(
//	        linear_model.WithGDLearningRate(0.1),
//	        linear_model.WithGDMaxIter(500),
//	        linear_model.WithGDTol(1e-3),
//	    )
//	    if err := clf.Fit(X, y); err != nil {
//	        log.Fatal(err)
//	    }
//
//	    proba, err := clf.PredictProba(mat.NewDense(1, 1, []float64{1.5}))
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(clf.Converged(), clf.NIter(), proba.At(0, 1))
//	}
//
// # Packages
//
//   - linear/logistic: sigmoid, log-likelihood and the gradient descent Solver
//   - sklearn/linear_model: LogisticGD estimator
//   - preprocessing: StandardScaler used by the standardize option
//   - metrics: accuracy, log-loss and AUC for binary labels
//   - diagnostics: per-iteration Trace with gonum/plot rendering
//   - core/model: estimator interfaces, state and weight persistence
//   - core/parallel: row-chunked parallel execution
//   - pkg/errors, pkg/log: structured errors and zerolog-backed logging
//
// # Performance
//
// Prediction is split across GOMAXPROCS workers once the input reaches
// parallel.DefaultThreshold rows. Fitting is sequential; each iteration is
// one pass of gonum BLAS over the design matrix.
package logitgd
