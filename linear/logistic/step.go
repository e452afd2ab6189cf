package logistic

import "gonum.org/v1/gonum/mat"

// Stepper moves the coefficients given the mean gradient of the logistic
// loss at the current point. Step updates coef in place.
type Stepper interface {
	Step(coef *mat.VecDense, grad mat.Vector)
}

// FixedStep is plain gradient descent: coef <- coef - LearningRate*grad.
// There is no line search and no adaptation between iterations.
type FixedStep struct {
	LearningRate float64
}

// Step implements Stepper.
func (s FixedStep) Step(coef *mat.VecDense, grad mat.Vector) {
	coef.AddScaledVec(coef, -s.LearningRate, grad)
}
