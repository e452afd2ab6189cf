package linear_model

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/logitgd/core/model"
	"github.com/YuminosukeSato/logitgd/core/parallel"
	"github.com/YuminosukeSato/logitgd/linear/logistic"
	"github.com/YuminosukeSato/logitgd/metrics"
	"github.com/YuminosukeSato/logitgd/pkg/errors"
	"github.com/YuminosukeSato/logitgd/pkg/log"
	"github.com/YuminosukeSato/logitgd/preprocessing"
)

const (
	logisticGDName    = "LogisticGD"
	logisticGDVersion = "1.0.0"
)

var (
	_ model.Classifier      = (*LogisticGD)(nil)
	_ model.ParameterGetter = (*LogisticGD)(nil)
	_ model.ParameterSetter = (*LogisticGD)(nil)
	_ model.WeightExporter  = (*LogisticGD)(nil)
	_ model.Persistable     = (*LogisticGD)(nil)
)

// LogisticGD is a binary logistic regression classifier trained by batch
// gradient descent on the log-likelihood. Labels must be 0 or 1.
//
// The solver outcome stays available through Result, Converged and NIter.
// Running out of iterations is not an error: Fit succeeds and raises a
// ConvergenceWarning through errors.Warn.
type LogisticGD struct {
	state *model.StateManager

	// Hyperparameters
	learningRate float64
	maxIter      int
	tol          float64
	fitIntercept bool
	standardize  bool

	logger   log.Logger
	callback func(logistic.Iteration)

	// Model parameters
	coef_      []float64
	intercept_ float64
	result_    logistic.Result
	nFeatures_ int
}

// LogisticGDOption is a functional option for LogisticGD
type LogisticGDOption func(*LogisticGD)

// NewLogisticGD creates a new LogisticGD classifier
func NewLogisticGD(opts ...LogisticGDOption) *LogisticGD {
	m := &LogisticGD{
		state:        model.NewStateManager(),
		learningRate: logistic.DefaultLearningRate,
		maxIter:      logistic.DefaultMaxIter,
		tol:          logistic.DefaultTol,
		fitIntercept: true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// WithGDLearningRate sets the gradient descent step size
func WithGDLearningRate(lr float64) LogisticGDOption {
	return func(m *LogisticGD) {
		m.learningRate = lr
	}
}

// WithGDMaxIter sets the maximum number of iterations
func WithGDMaxIter(maxIter int) LogisticGDOption {
	return func(m *LogisticGD) {
		m.maxIter = maxIter
	}
}

// WithGDTol sets the tolerance on the log-likelihood change
func WithGDTol(tol float64) LogisticGDOption {
	return func(m *LogisticGD) {
		m.tol = tol
	}
}

// WithGDFitIntercept sets whether a constant column is prepended to X
func WithGDFitIntercept(fit bool) LogisticGDOption {
	return func(m *LogisticGD) {
		m.fitIntercept = fit
	}
}

// WithGDStandardize standardizes features before the solver runs. Coef and
// Intercept are mapped back to the original feature scale; Result keeps the
// solver's coefficients on the standardized scale.
func WithGDStandardize(standardize bool) LogisticGDOption {
	return func(m *LogisticGD) {
		m.standardize = standardize
	}
}

// WithGDLogger sets the logger. Per-iteration records are written at debug level.
func WithGDLogger(logger log.Logger) LogisticGDOption {
	return func(m *LogisticGD) {
		m.logger = logger
	}
}

// WithGDCallback registers a per-iteration callback, e.g. diagnostics.Trace.Record
func WithGDCallback(fn func(logistic.Iteration)) LogisticGDOption {
	return func(m *LogisticGD) {
		m.callback = fn
	}
}

func (m *LogisticGD) getLogger() log.Logger {
	if m.logger != nil {
		return m.logger
	}
	return log.GetLoggerWithName("linear_model").With(log.ModelNameKey, logisticGDName)
}

// Fit trains the classifier on X (n×p) and the n×1 label column y.
func (m *LogisticGD) Fit(X, y mat.Matrix) (err error) {
	const op = "LogisticGD.Fit"
	defer errors.Recover(&err, op)

	if err := m.validateParams(); err != nil {
		return err
	}
	if X == nil || y == nil {
		return errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	nSamples, nFeatures := X.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	yRows, yCols := y.Dims()
	if yCols != 1 {
		return errors.NewValueError(op, fmt.Sprintf("y must be a column vector, got %d columns", yCols))
	}
	if yRows != nSamples {
		return errors.NewDimensionError(op, nSamples, yRows, 0)
	}

	target := mat.NewVecDense(nSamples, nil)
	for i := 0; i < nSamples; i++ {
		v := y.At(i, 0)
		if v != 0 && v != 1 {
			return errors.Mark(errors.NewValidationError("y", "labels must be 0 or 1", v), errors.ErrNonBinaryLabel)
		}
		target.SetVec(i, v)
	}

	logger := m.getLogger()
	logger.Info("fit started",
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhaseTraining,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		log.LearningRateKey, m.learningRate,
		log.MaxIterKey, m.maxIter,
		log.TolKey, m.tol,
	)
	start := time.Now()

	opts := []logistic.Option{
		logistic.WithLearningRate(m.learningRate),
		logistic.WithMaxIter(m.maxIter),
		logistic.WithTol(m.tol),
		logistic.WithLogger(logger),
	}
	if m.callback != nil {
		opts = append(opts, logistic.WithCallback(m.callback))
	}
	features := X
	var scaler *preprocessing.StandardScaler
	if m.standardize {
		// Without an intercept a mean shift cannot be undone, so only rescale.
		scaler = preprocessing.NewStandardScaler(m.fitIntercept, true)
		if features, err = scaler.FitTransform(X); err != nil {
			return err
		}
	}
	res := logistic.NewSolver(opts...).Fit(m.design(features), target)

	err = errors.CheckNumericalStability("coefficients", res.Coefficients, res.Iterations)
	if err == nil {
		err = errors.CheckScalar("log_likelihood", res.LogLikelihood, res.Iterations)
	}
	if err != nil {
		m.state.Reset()
		logger.Error("fit diverged", err, log.ErrorCodeKey, log.ErrorNumerical, log.IterationKey, res.Iterations)
		return err
	}

	intercept, coef := 0.0, res.Coefficients
	if m.fitIntercept {
		intercept, coef = res.Coefficients[0], res.Coefficients[1:]
	}
	if scaler != nil {
		if intercept, coef, err = scaler.UnscaleLinear(intercept, coef); err != nil {
			return err
		}
	}
	m.intercept_ = intercept
	m.coef_ = append([]float64(nil), coef...)
	m.result_ = res
	m.nFeatures_ = nFeatures
	m.state.SetFitted(nFeatures, nSamples)

	if !res.Converged {
		errors.Warn(errors.NewConvergenceWarning("GradientDescent", res.Iterations, res.LogLikelihood,
			"increase max_iter or the learning rate"))
	}

	logger.Info("fit completed",
		log.OperationKey, log.OperationFit,
		log.IterationKey, res.Iterations,
		log.ConvergedKey, res.Converged,
		log.LogLikelihoodKey, res.LogLikelihood,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

func (m *LogisticGD) validateParams() error {
	if !(m.learningRate > 0) {
		return errors.NewValidationError("learning_rate", "must be positive", m.learningRate)
	}
	if m.maxIter < 0 {
		return errors.NewValidationError("max_iter", "must be non-negative", m.maxIter)
	}
	if !(m.tol >= 0) {
		return errors.NewValidationError("tol", "must be non-negative", m.tol)
	}
	return nil
}

// design returns X with a leading column of ones when fitting an intercept.
func (m *LogisticGD) design(X mat.Matrix) mat.Matrix {
	if !m.fitIntercept {
		return X
	}
	n, p := X.Dims()
	d := mat.NewDense(n, p+1, nil)
	for i := 0; i < n; i++ {
		d.Set(i, 0, 1)
	}
	d.Slice(0, n, 1, p+1).(*mat.Dense).Copy(X)
	return d
}

// decision computes intercept + X·coef for every row of X.
func (m *LogisticGD) decision(X mat.Matrix, method string) ([]float64, error) {
	if err := m.state.RequireFitted(logisticGDName, method); err != nil {
		return nil, err
	}
	if X == nil {
		return nil, errors.NewValueError(logisticGDName+"."+method, "nil input")
	}
	nSamples, nFeatures := X.Dims()
	if nFeatures != m.nFeatures_ {
		return nil, errors.NewDimensionError(logisticGDName+"."+method, m.nFeatures_, nFeatures, 1)
	}
	if nSamples == 0 {
		return nil, errors.NewValueError(logisticGDName+"."+method, "empty input")
	}

	z := make([]float64, nSamples)
	parallel.ParallelizeWithThreshold(nSamples, parallel.DefaultThreshold, func(start, end int) {
		row := make([]float64, nFeatures)
		for i := start; i < end; i++ {
			mat.Row(row, i, X)
			z[i] = m.intercept_ + floats.Dot(row, m.coef_)
		}
	})
	return z, nil
}

// DecisionFunction returns the n×1 matrix of logits.
func (m *LogisticGD) DecisionFunction(X mat.Matrix) (mat.Matrix, error) {
	z, err := m.decision(X, "DecisionFunction")
	if err != nil {
		return nil, err
	}
	return mat.NewDense(len(z), 1, z), nil
}

// PredictProba returns an n×2 matrix whose columns are P(y=0) and P(y=1).
func (m *LogisticGD) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	z, err := m.decision(X, "PredictProba")
	if err != nil {
		return nil, err
	}
	proba := mat.NewDense(len(z), 2, nil)
	for i, zi := range z {
		p := logistic.Sigmoid(zi)
		proba.Set(i, 0, 1-p)
		proba.Set(i, 1, p)
	}
	return proba, nil
}

// Predict returns the n×1 matrix of labels, 1 where P(y=1) >= 0.5.
func (m *LogisticGD) Predict(X mat.Matrix) (mat.Matrix, error) {
	z, err := m.decision(X, "Predict")
	if err != nil {
		return nil, err
	}
	pred := mat.NewDense(len(z), 1, nil)
	for i, zi := range z {
		if logistic.Sigmoid(zi) >= 0.5 {
			pred.Set(i, 0, 1)
		}
	}
	return pred, nil
}

// Score returns the mean accuracy on X and the n×1 label column y.
func (m *LogisticGD) Score(X, y mat.Matrix) (float64, error) {
	pred, err := m.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.AccuracyMatrix(y, pred)
}

// Coef returns a copy of the feature coefficients, excluding the intercept.
func (m *LogisticGD) Coef() []float64 {
	return append([]float64(nil), m.coef_...)
}

// Intercept returns the fitted intercept, or 0 when fit_intercept is false.
func (m *LogisticGD) Intercept() float64 {
	return m.intercept_
}

// Result returns a copy of the raw solver result from the last Fit.
// Coefficients include the intercept as the first entry when it was fitted.
func (m *LogisticGD) Result() logistic.Result {
	r := m.result_
	r.Coefficients = append([]float64(nil), m.result_.Coefficients...)
	return r
}

// Converged reports whether the last Fit met the tolerance.
func (m *LogisticGD) Converged() bool {
	return m.result_.Converged
}

// NIter returns the number of iterations the last Fit executed.
func (m *LogisticGD) NIter() int {
	return m.result_.Iterations
}

// Classes returns the class labels in PredictProba column order.
func (m *LogisticGD) Classes() []int {
	return []int{0, 1}
}

// IsFitted returns whether the model has been fitted
func (m *LogisticGD) IsFitted() bool {
	return m.state.IsFitted()
}

// GetParams returns the model hyperparameters
func (m *LogisticGD) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"learning_rate": m.learningRate,
		"max_iter":      m.maxIter,
		"tol":           m.tol,
		"fit_intercept": m.fitIntercept,
		"standardize":   m.standardize,
	}
}

// SetParams sets the model hyperparameters. Integral float64 values are
// accepted for max_iter so that parameters decoded from JSON can be applied.
// Either every key is applied or, on error, none is.
func (m *LogisticGD) SetParams(params map[string]interface{}) error {
	p, err := m.params().merge(params)
	if err != nil {
		return err
	}
	m.setParams(p)
	return nil
}

// gdParams is the hyperparameter set exchanged through GetParams/SetParams.
type gdParams struct {
	learningRate float64
	maxIter      int
	tol          float64
	fitIntercept bool
	standardize  bool
}

func (m *LogisticGD) params() gdParams {
	return gdParams{
		learningRate: m.learningRate,
		maxIter:      m.maxIter,
		tol:          m.tol,
		fitIntercept: m.fitIntercept,
		standardize:  m.standardize,
	}
}

func (m *LogisticGD) setParams(p gdParams) {
	m.learningRate = p.learningRate
	m.maxIter = p.maxIter
	m.tol = p.tol
	m.fitIntercept = p.fitIntercept
	m.standardize = p.standardize
}

// merge returns a copy of p with params applied. Keys are checked in sorted
// order so the reported error does not depend on map iteration.
func (p gdParams) merge(params map[string]interface{}) (gdParams, error) {
	for _, key := range slices.Sorted(maps.Keys(params)) {
		value := params[key]
		switch key {
		case "learning_rate":
			v, ok := model.MetaFloat(params, key)
			if !ok {
				return p, errors.NewValidationError(key, "must be a number", value)
			}
			p.learningRate = v
		case "max_iter":
			v, ok := model.MetaInt(params, key)
			if !ok {
				return p, errors.NewValidationError(key, "must be an integer", value)
			}
			p.maxIter = v
		case "tol":
			v, ok := model.MetaFloat(params, key)
			if !ok {
				return p, errors.NewValidationError(key, "must be a number", value)
			}
			p.tol = v
		case "fit_intercept":
			v, ok := value.(bool)
			if !ok {
				return p, errors.NewValidationError(key, "must be a bool", value)
			}
			p.fitIntercept = v
		case "standardize":
			v, ok := value.(bool)
			if !ok {
				return p, errors.NewValidationError(key, "must be a bool", value)
			}
			p.standardize = v
		default:
			return p, errors.NewValidationError(key, "unknown parameter", value)
		}
	}
	return p, nil
}

// ExportWeights はモデルの重みをエクスポート（完全な再現性を保証）
func (m *LogisticGD) ExportWeights() (*model.ModelWeights, error) {
	if err := m.state.RequireFitted(logisticGDName, "ExportWeights"); err != nil {
		return nil, err
	}
	_, nSamples := m.state.GetDimensions()

	return &model.ModelWeights{
		ModelType:       logisticGDName,
		Version:         logisticGDVersion,
		Coefficients:    m.Coef(),
		Intercept:       m.intercept_,
		IsFitted:        true,
		Hyperparameters: m.GetParams(),
		Metadata: map[string]interface{}{
			"n_features":     m.nFeatures_,
			"n_samples":      nSamples,
			"n_iter":         m.result_.Iterations,
			"converged":      m.result_.Converged,
			"log_likelihood": m.result_.LogLikelihood,
			"checksum":       model.Checksum(m.coef_, m.intercept_),
		},
	}, nil
}

// ImportWeights はモデルの重みをインポート（完全な再現性を保証）
// 検証に失敗した場合、モデルの状態は変更されない。
func (m *LogisticGD) ImportWeights(weights *model.ModelWeights) error {
	const op = "LogisticGD.ImportWeights"
	if weights == nil {
		return errors.NewValueError(op, "weights cannot be nil")
	}
	if weights.ModelType != logisticGDName {
		return errors.NewValidationError("model_type", "expected "+logisticGDName, weights.ModelType)
	}
	if err := weights.Validate(); err != nil {
		return err
	}
	p, err := m.params().merge(weights.Hyperparameters)
	if err != nil {
		return err
	}

	md := weights.Metadata
	nFeatures := len(weights.Coefficients)
	if v, ok := md["n_features"]; ok {
		n, err := metaCount(md, "n_features")
		if err != nil {
			return err
		}
		if n != nFeatures {
			return errors.NewValidationError("n_features", fmt.Sprintf("does not match %d coefficients", nFeatures), v)
		}
	}
	nIter, err := metaCount(md, "n_iter")
	if err != nil {
		return err
	}
	nSamples, err := metaCount(md, "n_samples")
	if err != nil {
		return err
	}
	var ll float64
	if v, ok := md["log_likelihood"]; ok {
		if ll, ok = model.MetaFloat(md, "log_likelihood"); !ok {
			return errors.NewValidationError("log_likelihood", "must be a number", v)
		}
	}
	var converged bool
	if v, ok := md["converged"]; ok {
		if converged, ok = v.(bool); !ok {
			return errors.NewValidationError("converged", "must be a bool", v)
		}
	}

	m.setParams(p)
	m.coef_ = append([]float64(nil), weights.Coefficients...)
	m.intercept_ = weights.Intercept
	m.nFeatures_ = nFeatures

	// The solver-scale coefficients are not exported; with standardize on,
	// the restored Result carries the original-scale ones.
	res := logistic.Result{Converged: converged, Iterations: nIter, LogLikelihood: ll}
	if m.fitIntercept {
		res.Coefficients = append([]float64{m.intercept_}, m.coef_...)
	} else {
		res.Coefficients = append([]float64(nil), m.coef_...)
	}
	m.result_ = res
	m.state.SetFitted(m.nFeatures_, nSamples)
	return nil
}

// metaCount reads an optional non-negative integer from weights metadata.
func metaCount(md map[string]interface{}, key string) (int, error) {
	v, present := md[key]
	if !present {
		return 0, nil
	}
	n, ok := model.MetaInt(md, key)
	if !ok || n < 0 {
		return 0, errors.NewValidationError(key, "must be a non-negative integer", v)
	}
	return n, nil
}

// Save writes the fitted weights to path in gob format.
func (m *LogisticGD) Save(path string) error {
	weights, err := m.ExportWeights()
	if err != nil {
		return err
	}
	return model.SaveModel(weights, path)
}

// Load restores a model written by Save.
func (m *LogisticGD) Load(path string) error {
	var weights model.ModelWeights
	if err := model.LoadModel(&weights, path); err != nil {
		return err
	}
	return m.ImportWeights(&weights)
}

// String returns the string representation of the model
func (m *LogisticGD) String() string {
	if !m.state.IsFitted() {
		return fmt.Sprintf("LogisticGD(learning_rate=%g, max_iter=%d, tol=%g, fit_intercept=%t, standardize=%t)",
			m.learningRate, m.maxIter, m.tol, m.fitIntercept, m.standardize)
	}
	return fmt.Sprintf("LogisticGD(n_features=%d, n_iter=%d, converged=%t, fitted=true)",
		m.nFeatures_, m.result_.Iterations, m.result_.Converged)
}
