package logistic

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Epsilon bounds probabilities away from 0 and 1 before taking logarithms.
const Epsilon = 1e-15

// ClampProbability restricts p to [Epsilon, 1-Epsilon].
func ClampProbability(p float64) float64 {
	if p < Epsilon {
		return Epsilon
	}
	if p > 1-Epsilon {
		return 1 - Epsilon
	}
	return p
}

// LogLikelihood returns the Bernoulli log-likelihood
//
//	sum_i y_i*log(p_i) + (1-y_i)*log(1-p_i)
//
// with every p_i clamped first, so the result is finite even when a
// probability has saturated to exactly 0 or 1. y and p must have the same
// length.
func LogLikelihood(y, p mat.Vector) float64 {
	n := y.Len()
	if p.Len() != n {
		panic(mat.ErrShape)
	}
	var ll float64
	for i := 0; i < n; i++ {
		yi := y.AtVec(i)
		pi := ClampProbability(p.AtVec(i))
		ll += yi*math.Log(pi) + (1-yi)*math.Log(1-pi)
	}
	return ll
}
