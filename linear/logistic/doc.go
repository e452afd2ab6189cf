// Package logistic is the numerical kernel for binary logistic regression
// fit by batch gradient descent.
//
// It has three pieces: a numerically stable sigmoid (Sigmoid, SigmoidVec),
// a Bernoulli log-likelihood with probability clamping (LogLikelihood), and
// the iterative Solver. The kernel trusts its caller: it validates nothing
// and returns no errors. Input checking, intercept handling, warnings and
// persistence live in sklearn/linear_model.LogisticGD.
//
//	X := mat.NewDense(4, 2, []float64{1, 0, 1, 1, 1, 2, 1, 3})
//	y := mat.NewVecDense(4, []float64{0, 0, 1, 1})
//	res := logistic.NewSolver(
//	    logistic.WithLearningRate(0.1),
//	    logistic.WithMaxIter(500),
//	    logistic.WithTol(1e-3),
//	).Fit(X, y)
//	fmt.Println(res.Converged, res.Iterations, res.Coefficients)
package logistic
