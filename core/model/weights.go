package model

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"math"

	scierrors "github.com/YuminosukeSato/logitgd/pkg/errors"
)

// ModelWeights はモデルの重みを表す構造体（シリアライゼーション用）
type ModelWeights struct {
	// ModelType はモデルの種類（LogisticGD等）
	ModelType string `json:"model_type"`

	// Version はモデルのバージョン（互換性チェック用）
	Version string `json:"version"`

	// Coefficients は特徴量ごとの重み係数（切片を含まない）
	Coefficients []float64 `json:"coefficients"`

	// Intercept は切片
	Intercept float64 `json:"intercept"`

	// Hyperparameters はモデルのハイパーパラメータ
	Hyperparameters map[string]interface{} `json:"hyperparameters"`

	// Metadata は学習時の統計（反復回数、対数尤度、チェックサム等）
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// IsFitted はモデルが学習済みかどうか
	IsFitted bool `json:"is_fitted"`
}

// ToJSON はModelWeightsをJSON形式にシリアライズ
func (mw *ModelWeights) ToJSON() ([]byte, error) {
	data, err := json.MarshalIndent(mw, "", "  ")
	if err != nil {
		return nil, scierrors.Wrap(err, "failed to marshal weights")
	}
	return data, nil
}

// FromJSON はJSON形式からModelWeightsをデシリアライズ
func (mw *ModelWeights) FromJSON(data []byte) error {
	if err := json.Unmarshal(data, mw); err != nil {
		return scierrors.Wrap(err, "failed to unmarshal weights")
	}
	return nil
}

// Validate はModelWeightsの妥当性を検証
func (mw *ModelWeights) Validate() error {
	if mw.ModelType == "" {
		return scierrors.NewValidationError("model_type", "is required", mw.ModelType)
	}
	if mw.Version == "" {
		return scierrors.NewValidationError("version", "is required", mw.Version)
	}
	if !mw.IsFitted && len(mw.Coefficients) > 0 {
		return scierrors.NewValidationError("coefficients", "unfitted model should not have coefficients", len(mw.Coefficients))
	}
	if mw.IsFitted && len(mw.Coefficients) == 0 {
		return scierrors.NewValidationError("coefficients", "fitted model must have coefficients", 0)
	}
	if sum, ok := mw.Metadata["checksum"].(string); ok {
		if sum != Checksum(mw.Coefficients, mw.Intercept) {
			return scierrors.NewValidationError("checksum", "weights may be corrupted", sum)
		}
	}
	return nil
}

// Clone はModelWeightsのディープコピーを作成
func (mw *ModelWeights) Clone() *ModelWeights {
	clone := &ModelWeights{
		ModelType:       mw.ModelType,
		Version:         mw.Version,
		Intercept:       mw.Intercept,
		IsFitted:        mw.IsFitted,
		Coefficients:    make([]float64, len(mw.Coefficients)),
		Hyperparameters: make(map[string]interface{}, len(mw.Hyperparameters)),
		Metadata:        make(map[string]interface{}, len(mw.Metadata)),
	}
	copy(clone.Coefficients, mw.Coefficients)

	for k, v := range mw.Hyperparameters {
		clone.Hyperparameters[k] = v
	}
	for k, v := range mw.Metadata {
		clone.Metadata[k] = v
	}
	return clone
}

// Checksum は係数と切片のSHA-256ハッシュを16進文字列で返す。
// IEEE 754のビット列をハッシュするため、NaNやInfを含んでも値ごとに異なる。
func Checksum(coef []float64, intercept float64) string {
	h := sha256.New()
	buf := make([]byte, 8)
	for _, v := range append(append([]float64(nil), coef...), intercept) {
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
		h.Write(buf)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// MetaInt はmの数値をintとして取り出す。
// JSON経由ではfloat64、gob経由ではintとして復元されるため両方を受け付ける。
// 小数部を持つ値やintの範囲外の値は拒否する。
func MetaInt(m map[string]interface{}, key string) (int, bool) {
	switch v := m[key].(type) {
	case int:
		return v, true
	case int64:
		if v < math.MinInt || v > math.MaxInt {
			return 0, false
		}
		return int(v), true
	case float64:
		// float64(math.MaxInt)+1 は 2^63（32bit環境では 2^31）で正確に表せる
		bound := float64(math.MaxInt) + 1
		if v != math.Trunc(v) || v >= bound || v < -bound {
			return 0, false
		}
		return int(v), true
	}
	return 0, false
}

// MetaFloat はmの数値をfloat64として取り出す
func MetaFloat(m map[string]interface{}, key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
