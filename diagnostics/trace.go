// Package diagnostics records solver progress and renders convergence plots.
package diagnostics

import (
	"sync"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/logitgd/linear/logistic"
	"github.com/YuminosukeSato/logitgd/pkg/errors"
)

// Trace collects per-iteration solver records. Record has the signature of
// a solver callback:
//
//	var tr diagnostics.Trace
//	solver := logistic.NewSolver(logistic.WithCallback(tr.Record))
//
// The zero value is ready to use and a Trace is safe for concurrent use.
type Trace struct {
	mu         sync.Mutex
	iterations []logistic.Iteration
}

// Record appends it to the trace.
func (t *Trace) Record(it logistic.Iteration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.iterations = append(t.iterations, it)
}

// Len returns the number of recorded iterations.
func (t *Trace) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.iterations)
}

// Iterations returns a copy of the recorded iterations.
func (t *Trace) Iterations() []logistic.Iteration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]logistic.Iteration(nil), t.iterations...)
}

// LogLikelihoods returns the log-likelihood of each recorded iteration.
func (t *Trace) LogLikelihoods() []float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	ll := make([]float64, len(t.iterations))
	for i, it := range t.iterations {
		ll[i] = it.LogLikelihood
	}
	return ll
}

// Reset discards all records.
func (t *Trace) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.iterations = t.iterations[:0]
}

// Plot builds a line plot of log-likelihood against iteration index.
func (t *Trace) Plot(title string) (*plot.Plot, error) {
	its := t.Iterations()
	if len(its) == 0 {
		return nil, errors.NewValueError("Trace.Plot", "no iterations recorded")
	}

	pts := make(plotter.XYs, len(its))
	for i, it := range its {
		pts[i].X = float64(it.Index)
		pts[i].Y = it.LogLikelihood
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, errors.Wrap(err, "building log-likelihood line")
	}
	line.Width = vg.Points(1.5)

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Iteration"
	p.Y.Label.Text = "Log-likelihood"
	p.Add(plotter.NewGrid(), line)
	p.Legend.Add("log-likelihood", line)
	p.Legend.Left = false
	p.Legend.Top = false

	return p, nil
}

// Save renders the plot to path. The image format follows the file
// extension (png, svg, pdf, ...).
func (t *Trace) Save(path string, w, h vg.Length) error {
	p, err := t.Plot("Gradient descent convergence")
	if err != nil {
		return err
	}
	if err := p.Save(w, h, path); err != nil {
		return errors.Wrapf(err, "saving convergence plot to %s", path)
	}
	return nil
}
