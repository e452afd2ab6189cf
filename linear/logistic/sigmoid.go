package logistic

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Sigmoid computes 1/(1+exp(-z)) without overflowing exp: the exponent is
// never a large positive number.
func Sigmoid(z float64) float64 {
	if z >= 0 {
		return 1.0 / (1.0 + math.Exp(-z))
	}
	ez := math.Exp(z)
	return ez / (1.0 + ez)
}

// SigmoidVec applies Sigmoid elementwise to z and stores the result in dst.
// dst must either be empty (it is then sized to z) or have the same length
// as z. dst and z may be the same vector.
func SigmoidVec(dst *mat.VecDense, z mat.Vector) {
	n := z.Len()
	if dst.IsEmpty() {
		dst.ReuseAsVec(n)
	} else if dst.Len() != n {
		panic(mat.ErrShape)
	}
	for i := 0; i < n; i++ {
		dst.SetVec(i, Sigmoid(z.AtVec(i)))
	}
}
