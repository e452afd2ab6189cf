package linear_model

import (
	"encoding/json"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/logitgd/core/model"
	"github.com/YuminosukeSato/logitgd/linear/logistic"
	"github.com/YuminosukeSato/logitgd/pkg/errors"
	"github.com/YuminosukeSato/logitgd/pkg/log"
	"github.com/YuminosukeSato/logitgd/preprocessing"
)

// stepData has one feature; the label flips between x=1 and x=2.
func stepData() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(4, 1, []float64{0, 1, 2, 3})
	y := mat.NewDense(4, 1, []float64{0, 0, 1, 1})
	return X, y
}

// captureWarnings collects everything passed to errors.Warn until the test ends.
func captureWarnings(t *testing.T) *[]error {
	t.Helper()
	var got []error
	errors.SetWarningHandler(func(w error) { got = append(got, w) })
	t.Cleanup(func() { errors.SetWarningHandler(func(error) {}) })
	return &got
}

func newQuietGD(opts ...LogisticGDOption) *LogisticGD {
	logger, _ := log.NewTestLogger(log.LevelWarn)
	return NewLogisticGD(append([]LogisticGDOption{WithGDLogger(logger)}, opts...)...)
}

func TestLogisticGD_Defaults(t *testing.T) {
	m := NewLogisticGD()
	params := m.GetParams()

	assert.Equal(t, logistic.DefaultLearningRate, params["learning_rate"])
	assert.Equal(t, logistic.DefaultMaxIter, params["max_iter"])
	assert.Equal(t, logistic.DefaultTol, params["tol"])
	assert.Equal(t, true, params["fit_intercept"])
	assert.Equal(t, false, params["standardize"])
	assert.False(t, m.IsFitted())
	assert.Equal(t, []int{0, 1}, m.Classes())
}

func TestLogisticGD_FitExhaustsBudgetAndWarns(t *testing.T) {
	warnings := captureWarnings(t)
	X, y := stepData()

	m := newQuietGD(WithGDLearningRate(0.1), WithGDMaxIter(500), WithGDTol(1e-6))
	require.NoError(t, m.Fit(X, y))

	assert.True(t, m.IsFitted())
	assert.False(t, m.Converged())
	assert.Equal(t, 500, m.NIter())
	assert.InDelta(t, -3.430679457999131, m.Intercept(), 1e-9)
	require.Len(t, m.Coef(), 1)
	assert.InDelta(t, 2.5272472329489974, m.Coef()[0], 1e-9)
	assert.InDelta(t, -0.5682594485873278, m.Result().LogLikelihood, 1e-9)

	require.Len(t, *warnings, 1)
	var cw *errors.ConvergenceWarning
	require.True(t, errors.As((*warnings)[0], &cw))
	assert.Equal(t, 500, cw.Iterations)
	assert.InDelta(t, -0.5682594485873278, cw.LogLikelihood, 1e-9)
}

func TestLogisticGD_FitConvergesWithoutWarning(t *testing.T) {
	warnings := captureWarnings(t)
	X, y := stepData()

	m := newQuietGD(WithGDLearningRate(0.1), WithGDMaxIter(500), WithGDTol(1e-3))
	require.NoError(t, m.Fit(X, y))

	assert.True(t, m.Converged())
	assert.Equal(t, 383, m.NIter())
	assert.InDelta(t, -2.981822233767979, m.Intercept(), 1e-9)
	assert.InDelta(t, 2.247693820293933, m.Coef()[0], 1e-9)
	assert.Empty(t, *warnings)
}

func TestLogisticGD_ResultMatchesSolver(t *testing.T) {
	captureWarnings(t)
	X, y := stepData()

	m := newQuietGD(WithGDLearningRate(0.1), WithGDMaxIter(50))
	require.NoError(t, m.Fit(X, y))

	design := mat.NewDense(4, 2, []float64{1, 0, 1, 1, 1, 2, 1, 3})
	want := logistic.NewSolver(logistic.WithLearningRate(0.1), logistic.WithMaxIter(50)).
		Fit(design, mat.NewVecDense(4, []float64{0, 0, 1, 1}))

	assert.Equal(t, want, m.Result())
	assert.Equal(t, want.Coefficients[0], m.Intercept())
	assert.Equal(t, want.Coefficients[1:], m.Coef())
}

func TestLogisticGD_WithoutIntercept(t *testing.T) {
	captureWarnings(t)
	X := mat.NewDense(4, 2, []float64{1, 0, 1, 1, 1, 2, 1, 3})
	_, y := stepData()

	m := newQuietGD(WithGDLearningRate(0.1), WithGDMaxIter(500), WithGDFitIntercept(false))
	require.NoError(t, m.Fit(X, y))

	assert.Equal(t, 0.0, m.Intercept())
	require.Len(t, m.Coef(), 2)
	assert.InDelta(t, -3.430679457999131, m.Coef()[0], 1e-9)
	assert.InDelta(t, 2.5272472329489974, m.Coef()[1], 1e-9)
}

func TestLogisticGD_Predictions(t *testing.T) {
	captureWarnings(t)
	X, y := stepData()
	m := newQuietGD(WithGDLearningRate(0.1), WithGDMaxIter(500))
	require.NoError(t, m.Fit(X, y))

	probe := mat.NewDense(5, 1, []float64{0, 1, 1.5, 2, 3})
	wantP1 := []float64{0.03135029226884838, 0.28834568506678043, 0.5890867637358046, 0.8353205942373777, 0.9844964649369455}

	proba, err := m.PredictProba(probe)
	require.NoError(t, err)
	r, c := proba.Dims()
	require.Equal(t, 5, r)
	require.Equal(t, 2, c)
	for i, want := range wantP1 {
		assert.InDelta(t, want, proba.At(i, 1), 1e-9, "row %d", i)
		assert.InDelta(t, 1.0, proba.At(i, 0)+proba.At(i, 1), 1e-12)
	}

	logits, err := m.DecisionFunction(probe)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		assert.InDelta(t, logistic.Sigmoid(logits.At(i, 0)), proba.At(i, 1), 1e-15)
	}

	pred, err := m.Predict(probe)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 1, 1, 1}, mat.Col(nil, 0, pred))

	score, err := m.Score(X, y)
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)
}

func TestLogisticGD_ParallelPredictionMatchesSequential(t *testing.T) {
	captureWarnings(t)
	X, y := stepData()
	m := newQuietGD(WithGDLearningRate(0.1), WithGDMaxIter(100))
	require.NoError(t, m.Fit(X, y))

	n := 5000
	data := make([]float64, n)
	for i := range data {
		data[i] = float64(i%40)/10 - 0.5
	}
	probe := mat.NewDense(n, 1, data)

	logits, err := m.DecisionFunction(probe)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		want := m.Intercept() + m.Coef()[0]*data[i]
		require.InDelta(t, want, logits.At(i, 0), 1e-12, "row %d", i)
	}
}

func TestLogisticGD_NotFitted(t *testing.T) {
	m := NewLogisticGD()
	X, y := stepData()

	assertNotFitted := func(err error, method string) {
		t.Helper()
		var nf *errors.NotFittedError
		require.True(t, errors.As(err, &nf), "got %v", err)
		assert.Equal(t, method, nf.Method)
	}

	_, err := m.Predict(X)
	assertNotFitted(err, "Predict")
	_, err = m.PredictProba(X)
	assertNotFitted(err, "PredictProba")
	_, err = m.DecisionFunction(X)
	assertNotFitted(err, "DecisionFunction")
	_, err = m.Score(X, y)
	assertNotFitted(err, "Predict")
	_, err = m.ExportWeights()
	assertNotFitted(err, "ExportWeights")
	assertNotFitted(m.Save(filepath.Join(t.TempDir(), "m.gob")), "ExportWeights")
}

func TestLogisticGD_FitValidation(t *testing.T) {
	X, y := stepData()

	tests := []struct {
		name  string
		model *LogisticGD
		X, y  mat.Matrix
		check func(t *testing.T, err error)
	}{
		{
			name: "nil data", model: newQuietGD(), X: nil, y: y,
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, errors.ErrEmptyData))
			},
		},
		{
			name: "empty data", model: newQuietGD(), X: &mat.Dense{}, y: &mat.Dense{},
			check: func(t *testing.T, err error) {
				var me *errors.ModelError
				assert.True(t, errors.As(err, &me))
				assert.True(t, errors.Is(err, errors.ErrEmptyData))
			},
		},
		{
			name: "row mismatch", model: newQuietGD(), X: X, y: mat.NewDense(3, 1, []float64{0, 1, 1}),
			check: func(t *testing.T, err error) {
				var de *errors.DimensionError
				require.True(t, errors.As(err, &de))
				assert.Equal(t, 4, de.Expected)
				assert.Equal(t, 3, de.Got)
				assert.Equal(t, 0, de.Axis)
			},
		},
		{
			name: "y not a column", model: newQuietGD(), X: X, y: mat.NewDense(4, 2, nil),
			check: func(t *testing.T, err error) {
				var ve *errors.ValueError
				assert.True(t, errors.As(err, &ve))
			},
		},
		{
			name: "non-binary label", model: newQuietGD(), X: X, y: mat.NewDense(4, 1, []float64{0, 2, 1, 1}),
			check: func(t *testing.T, err error) {
				var ve *errors.ValidationError
				require.True(t, errors.As(err, &ve))
				assert.Equal(t, "y", ve.ParamName)
				assert.True(t, errors.Is(err, errors.ErrNonBinaryLabel))
			},
		},
		{
			name: "zero learning rate", model: newQuietGD(WithGDLearningRate(0)), X: X, y: y,
			check: paramError("learning_rate"),
		},
		{
			name: "NaN learning rate", model: newQuietGD(WithGDLearningRate(math.NaN())), X: X, y: y,
			check: paramError("learning_rate"),
		},
		{
			name: "negative max_iter", model: newQuietGD(WithGDMaxIter(-1)), X: X, y: y,
			check: paramError("max_iter"),
		},
		{
			name: "negative tol", model: newQuietGD(WithGDTol(-1e-6)), X: X, y: y,
			check: paramError("tol"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.model.Fit(tt.X, tt.y)
			require.Error(t, err)
			tt.check(t, err)
			assert.False(t, tt.model.IsFitted())
		})
	}
}

func paramError(name string) func(t *testing.T, err error) {
	return func(t *testing.T, err error) {
		var ve *errors.ValidationError
		require.True(t, errors.As(err, &ve), "got %v", err)
		assert.Equal(t, name, ve.ParamName)
	}
}

func TestLogisticGD_ZeroIterations(t *testing.T) {
	warnings := captureWarnings(t)
	X, y := stepData()

	m := newQuietGD(WithGDMaxIter(0))
	require.NoError(t, m.Fit(X, y))

	assert.Equal(t, 0, m.NIter())
	assert.False(t, m.Converged())
	assert.Equal(t, 0.0, m.Intercept())
	assert.Equal(t, []float64{0}, m.Coef())
	assert.InDelta(t, 4*math.Log(0.5), m.Result().LogLikelihood, 1e-12)
	assert.Len(t, *warnings, 1)
}

func TestLogisticGD_NonFiniteInputIsReported(t *testing.T) {
	captureWarnings(t)
	X := mat.NewDense(4, 1, []float64{0, math.NaN(), 2, 3})
	_, y := stepData()

	m := newQuietGD(WithGDMaxIter(5))
	err := m.Fit(X, y)

	var ne *errors.NumericalInstabilityError
	require.True(t, errors.As(err, &ne), "got %v", err)
	assert.Equal(t, "coefficients", ne.Operation)
	assert.False(t, m.IsFitted())
}

// panicMatrix reports a shape but panics when read.
type panicMatrix struct{}

func (panicMatrix) Dims() (int, int)    { return 4, 1 }
func (panicMatrix) At(i, j int) float64 { panic("unreadable matrix") }
func (p panicMatrix) T() mat.Matrix     { return mat.Transpose{Matrix: p} }

func TestLogisticGD_PanicIsRecovered(t *testing.T) {
	_, y := stepData()
	m := newQuietGD()

	err := m.Fit(panicMatrix{}, y)

	var pe *errors.PanicError
	require.True(t, errors.As(err, &pe), "got %v", err)
	assert.Equal(t, "LogisticGD.Fit", pe.Operation)
	assert.Equal(t, "unreadable matrix", pe.PanicValue)
	assert.False(t, m.IsFitted())
}

func TestLogisticGD_FeatureMismatch(t *testing.T) {
	captureWarnings(t)
	X, y := stepData()
	m := newQuietGD(WithGDMaxIter(10))
	require.NoError(t, m.Fit(X, y))

	_, err := m.Predict(mat.NewDense(2, 3, nil))
	var de *errors.DimensionError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 1, de.Expected)
	assert.Equal(t, 3, de.Got)
	assert.Equal(t, 1, de.Axis)

	_, err = m.Score(X, mat.NewDense(3, 1, nil))
	assert.True(t, errors.As(err, &de))
}

func TestLogisticGD_Standardize(t *testing.T) {
	captureWarnings(t)
	X, y := stepData()

	for _, fitIntercept := range []bool{true, false} {
		m := newQuietGD(WithGDMaxIter(200), WithGDStandardize(true), WithGDFitIntercept(fitIntercept))
		require.NoError(t, m.Fit(X, y))

		scaler := preprocessing.NewStandardScaler(fitIntercept, true)
		Z, err := scaler.FitTransform(X)
		require.NoError(t, err)

		// 元のスケールの係数で計算したロジットは、標準化空間のソルバー係数と一致する
		res := m.Result()
		got, err := m.DecisionFunction(X)
		require.NoError(t, err)
		for i := 0; i < 4; i++ {
			want := res.Coefficients[len(res.Coefficients)-1] * Z.At(i, 0)
			if fitIntercept {
				want += res.Coefficients[0]
			}
			assert.InDelta(t, want, got.At(i, 0), 1e-9, "fit_intercept=%t row %d", fitIntercept, i)
		}
		if !fitIntercept {
			assert.Zero(t, m.Intercept())
		}
	}
}

func TestLogisticGD_StandardizedWeightsRoundTrip(t *testing.T) {
	captureWarnings(t)
	X, y := stepData()
	m1 := newQuietGD(WithGDMaxIter(200), WithGDStandardize(true))
	require.NoError(t, m1.Fit(X, y))

	weights, err := m1.ExportWeights()
	require.NoError(t, err)
	assert.Equal(t, true, weights.Hyperparameters["standardize"])

	m2 := NewLogisticGD()
	require.NoError(t, m2.ImportWeights(weights))
	assert.Equal(t, m1.GetParams(), m2.GetParams())

	p1, err := m1.PredictProba(X)
	require.NoError(t, err)
	p2, err := m2.PredictProba(X)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(p1, p2, 1e-12))
}

func TestLogisticGD_SetParams(t *testing.T) {
	m := NewLogisticGD()

	require.NoError(t, m.SetParams(map[string]interface{}{
		"learning_rate": 0.5,
		"max_iter":      250.0,
		"tol":           1e-4,
		"fit_intercept": false,
		"standardize":   true,
	}))
	assert.Equal(t, map[string]interface{}{
		"learning_rate": 0.5,
		"max_iter":      250,
		"tol":           1e-4,
		"fit_intercept": false,
		"standardize":   true,
	}, m.GetParams())

	tests := []struct {
		name   string
		params map[string]interface{}
	}{
		{name: "unknown key", params: map[string]interface{}{"penalty": "l2"}},
		{name: "fractional max_iter", params: map[string]interface{}{"max_iter": 2.5}},
		{name: "string learning rate", params: map[string]interface{}{"learning_rate": "fast"}},
		{name: "numeric fit_intercept", params: map[string]interface{}{"fit_intercept": 1}},
		{name: "string standardize", params: map[string]interface{}{"standardize": "yes"}},
		{name: "valid keys with an unknown one", params: map[string]interface{}{
			"learning_rate": 0.9, "tol": 0.1, "max_iter": 3, "bogus": 1,
		}},
		{name: "valid keys with a bad max_iter", params: map[string]interface{}{
			"learning_rate": 0.9, "fit_intercept": true, "max_iter": "x",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := m.GetParams()
			// 失敗したSetParamsはどのキーも反映しない（マップの走査順に依存しない）
			for i := 0; i < 20; i++ {
				var ve *errors.ValidationError
				require.True(t, errors.As(m.SetParams(tt.params), &ve))
				assert.Equal(t, before, m.GetParams())
			}
		})
	}
}

func TestLogisticGD_WeightsRoundTripThroughJSON(t *testing.T) {
	captureWarnings(t)
	X, y := stepData()
	m1 := newQuietGD(WithGDLearningRate(0.1), WithGDMaxIter(500), WithGDTol(1e-3))
	require.NoError(t, m1.Fit(X, y))

	weights, err := m1.ExportWeights()
	require.NoError(t, err)
	data, err := json.Marshal(weights)
	require.NoError(t, err)

	loaded := &model.ModelWeights{}
	require.NoError(t, json.Unmarshal(data, loaded))

	m2 := NewLogisticGD()
	require.NoError(t, m2.ImportWeights(loaded))

	assert.Equal(t, m1.Coef(), m2.Coef())
	assert.Equal(t, m1.Intercept(), m2.Intercept())
	assert.Equal(t, m1.Result(), m2.Result())
	assert.Equal(t, m1.GetParams(), m2.GetParams())

	p1, err := m1.PredictProba(X)
	require.NoError(t, err)
	p2, err := m2.PredictProba(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(p1, p2))
}

func TestLogisticGD_ImportWeightsErrors(t *testing.T) {
	captureWarnings(t)
	X, y := stepData()
	fitted := newQuietGD(WithGDMaxIter(20))
	require.NoError(t, fitted.Fit(X, y))
	good, err := fitted.ExportWeights()
	require.NoError(t, err)

	m := NewLogisticGD()
	var ve *errors.ValueError
	assert.True(t, errors.As(m.ImportWeights(nil), &ve))

	wrongType := good.Clone()
	wrongType.ModelType = "LinearRegression"
	var vErr *errors.ValidationError
	require.True(t, errors.As(m.ImportWeights(wrongType), &vErr))
	assert.Equal(t, "model_type", vErr.ParamName)

	tampered := good.Clone()
	tampered.Coefficients[0] += 1
	require.True(t, errors.As(m.ImportWeights(tampered), &vErr))
	assert.Equal(t, "checksum", vErr.ParamName)

	assert.False(t, m.IsFitted())
}

func TestLogisticGD_RejectedImportLeavesModelUntouched(t *testing.T) {
	captureWarnings(t)
	X, y := stepData()
	m := newQuietGD(WithGDMaxIter(20))
	require.NoError(t, m.Fit(X, y))
	good, err := m.ExportWeights()
	require.NoError(t, err)

	badParams := good.Clone()
	badParams.Coefficients[0] += 1
	badParams.Metadata["checksum"] = model.Checksum(badParams.Coefficients, badParams.Intercept)
	badParams.Hyperparameters["learning_rate"] = 0.7
	badParams.Hyperparameters["max_iter"] = "x"

	badIter := good.Clone()
	badIter.Hyperparameters["learning_rate"] = 0.7
	badIter.Metadata["n_iter"] = 2.5

	hugeSamples := good.Clone()
	hugeSamples.Metadata["n_samples"] = 1e300

	badFeatures := good.Clone()
	badFeatures.Metadata["n_features"] = 3

	badConverged := good.Clone()
	badConverged.Metadata["converged"] = "yes"

	tests := []struct {
		name    string
		weights *model.ModelWeights
		param   string
	}{
		{name: "bad hyperparameter", weights: badParams, param: "max_iter"},
		{name: "fractional n_iter", weights: badIter, param: "n_iter"},
		{name: "n_samples out of int range", weights: hugeSamples, param: "n_samples"},
		{name: "n_features mismatch", weights: badFeatures, param: "n_features"},
		{name: "non-bool converged", weights: badConverged, param: "converged"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params, coef, intercept, res := m.GetParams(), m.Coef(), m.Intercept(), m.Result()

			var vErr *errors.ValidationError
			require.True(t, errors.As(m.ImportWeights(tt.weights), &vErr))
			assert.Equal(t, tt.param, vErr.ParamName)

			assert.True(t, m.IsFitted())
			assert.Equal(t, params, m.GetParams())
			assert.Equal(t, coef, m.Coef())
			assert.Equal(t, intercept, m.Intercept())
			assert.Equal(t, res, m.Result())
		})
	}
}

func TestLogisticGD_SaveLoad(t *testing.T) {
	captureWarnings(t)
	X, y := stepData()
	m1 := newQuietGD(WithGDLearningRate(0.1), WithGDMaxIter(500))
	require.NoError(t, m1.Fit(X, y))

	path := filepath.Join(t.TempDir(), "logistic_gd.gob")
	require.NoError(t, m1.Save(path))

	m2 := NewLogisticGD()
	require.NoError(t, m2.Load(path))
	assert.True(t, m2.IsFitted())
	assert.Equal(t, m1.Result(), m2.Result())

	pred1, err := m1.Predict(X)
	require.NoError(t, err)
	pred2, err := m2.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(pred1, pred2))

	assert.Error(t, NewLogisticGD().Load(filepath.Join(t.TempDir(), "missing.gob")))
}

func TestLogisticGD_CallbackAndLogging(t *testing.T) {
	captureWarnings(t)
	logger, _ := log.NewTestLogger(log.LevelInfo)
	var seen []logistic.Iteration

	X, y := stepData()
	m := NewLogisticGD(
		WithGDLearningRate(0.1),
		WithGDMaxIter(25),
		WithGDLogger(logger),
		WithGDCallback(func(it logistic.Iteration) { seen = append(seen, it) }),
	)
	require.NoError(t, m.Fit(X, y))

	require.Len(t, seen, 25)
	assert.Equal(t, 1, seen[0].Index)
	assert.Equal(t, m.Result().LogLikelihood, seen[24].LogLikelihood)

	assert.True(t, logger.ContainsMessage("fit started"))
	assert.True(t, logger.ContainsMessage("fit completed"))
	assert.True(t, logger.ContainsField(log.IterationKey, 25.0))
	assert.True(t, logger.ContainsField(log.ConvergedKey, false))
	assert.False(t, logger.ContainsMessage("gradient descent iteration"), "debug records stay off at info level")
}

func TestLogisticGD_String(t *testing.T) {
	captureWarnings(t)
	m := newQuietGD(WithGDMaxIter(3))
	assert.Contains(t, m.String(), "max_iter=3")

	X, y := stepData()
	require.NoError(t, m.Fit(X, y))
	assert.Contains(t, m.String(), "n_iter=3")
	assert.Contains(t, m.String(), "fitted=true")
}
