// Package metrics は二値分類モデルの評価指標を提供する。
package metrics

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/logitgd/linear/logistic"
	"github.com/YuminosukeSato/logitgd/pkg/errors"
)

// Accuracy は正解率（予測ラベルが真のラベルと一致した割合）を計算する
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("Accuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// AccuracyMatrix は列ベクトル（n×1行列）形式の入力に対して正解率を計算する
func AccuracyMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	t, p, err := firstColumns("AccuracyMatrix", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return Accuracy(t, p)
}

// ClassificationError は誤分類率（1 - 正解率）を計算する
func ClassificationError(yTrue, yPred *mat.VecDense) (float64, error) {
	acc, err := Accuracy(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return 1 - acc, nil
}

// LogLoss は二値交差エントロピー −LL/n を計算する。
// 確率は logistic.ClampProbability と同じ範囲にクリップされるため、0や1を含んでも有限値になる。
func LogLoss(yTrue, prob *mat.VecDense) (float64, error) {
	n, err := checkPair("LogLoss", yTrue, prob)
	if err != nil {
		return 0, err
	}
	if err := checkBinary("LogLoss", yTrue); err != nil {
		return 0, err
	}

	return -logistic.LogLikelihood(yTrue, prob) / float64(n), nil
}

// AUC はROC曲線下面積を計算する。
// 同順位のスコアには平均順位を割り当てる（Mann-Whitney U統計量と同値）。
// 正例または負例しか含まれない場合、AUCは定義できないため0.5を返す。
func AUC(yTrue, yScore *mat.VecDense) (float64, error) {
	n, err := checkPair("AUC", yTrue, yScore)
	if err != nil {
		return 0, err
	}
	if err := checkBinary("AUC", yTrue); err != nil {
		return 0, err
	}
	// NaNを含むと順位付けが定義できない
	if err := errors.CheckVector("AUC.yScore", yScore, 0); err != nil {
		return 0, err
	}

	scores := make([]float64, n)
	for i := 0; i < n; i++ {
		scores[i] = yScore.AtVec(i)
	}
	idx := make([]int, n)
	floats.Argsort(scores, idx)

	// 同順位をまとめて平均順位（1始まり）を付ける
	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i + 1
		for j < n && scores[j] == scores[i] {
			j++
		}
		avg := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			ranks[idx[k]] = avg
		}
		i = j
	}

	var nPos, nNeg, rankSum float64
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == 1 {
			nPos++
			rankSum += ranks[i]
		} else {
			nNeg++
		}
	}
	if nPos == 0 || nNeg == 0 {
		return 0.5, nil
	}

	return (rankSum - nPos*(nPos+1)/2) / (nPos * nNeg), nil
}

// AUCMatrix は行列形式の入力に対してAUCを計算する（先頭列を使用）
func AUCMatrix(yTrue, yScore mat.Matrix) (float64, error) {
	t, s, err := firstColumns("AUCMatrix", yTrue, yScore)
	if err != nil {
		return 0, err
	}
	return AUC(t, s)
}

func checkPair(op string, a, b *mat.VecDense) (int, error) {
	if a == nil || b == nil || a.Len() == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	n := a.Len()
	if b.Len() != n {
		return 0, errors.NewDimensionError(op, n, b.Len(), 0)
	}
	return n, nil
}

func checkBinary(op string, y *mat.VecDense) error {
	for i := 0; i < y.Len(); i++ {
		if v := y.AtVec(i); v != 0 && v != 1 {
			return errors.Mark(errors.NewValidationError(op+".yTrue", "labels must be 0 or 1", v), errors.ErrNonBinaryLabel)
		}
	}
	return nil
}

func firstColumns(op string, a, b mat.Matrix) (*mat.VecDense, *mat.VecDense, error) {
	if a == nil || b == nil {
		return nil, nil, errors.NewValueError(op, "nil matrix")
	}
	ra, ca := a.Dims()
	rb, cb := b.Dims()
	if ra == 0 || ca == 0 || cb == 0 {
		return nil, nil, errors.NewValueError(op, "empty matrix")
	}
	if ra != rb {
		return nil, nil, errors.NewDimensionError(op, ra, rb, 0)
	}
	return mat.NewVecDense(ra, mat.Col(nil, 0, a)), mat.NewVecDense(rb, mat.Col(nil, 0, b)), nil
}
