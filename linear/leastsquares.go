// Package linear provides least-squares sub-estimators for composition into
// a stepwise estimator. LeastSquares solves ordinary or ridge-penalized
// least squares through a QR factorization of the (optionally weighted)
// design matrix.
package linear

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/modelkit/stepwise"
	"github.com/modelkit/stepwise/errs"
	"github.com/modelkit/stepwise/internal/options"
)

// paramNames lists the native hyperparameters in their stable introspection
// order.
var paramNames = []string{"alpha", "fit_intercept"}

// LeastSquares is a linear regressor fitted by least squares. With alpha
// zero it performs an ordinary least-squares fit; with alpha positive it
// adds an L2 (ridge) penalty on the coefficients. The intercept, when
// fitted, is never penalized.
//
// LeastSquares satisfies the stepwise.Estimator capability contract and can
// be used directly as a step of a composite.
type LeastSquares struct {
	alpha        float64
	fitIntercept bool

	coef      []float64
	intercept float64
	fitted    bool
}

var _ stepwise.Estimator = (*LeastSquares)(nil)

// Option is a functional option for configuring a LeastSquares estimator.
type Option = options.Option[*LeastSquares]

// WithAlpha sets the L2 penalty strength. Zero disables the penalty.
func WithAlpha(alpha float64) Option {
	return func(e *LeastSquares) error {
		if alpha < 0 || math.IsNaN(alpha) {
			return fmt.Errorf("%w: alpha must be non-negative, got %v", errs.ErrInvalidParamValue, alpha)
		}
		e.alpha = alpha

		return nil
	}
}

// WithIntercept enables or disables fitting an intercept term.
func WithIntercept(enabled bool) Option {
	return options.NoError(func(e *LeastSquares) {
		e.fitIntercept = enabled
	})
}

// NewLeastSquares creates a least-squares estimator. The default is an
// ordinary least-squares fit with an intercept.
func NewLeastSquares(opts ...Option) (*LeastSquares, error) {
	est := &LeastSquares{fitIntercept: true}
	if err := options.Apply(est, opts...); err != nil {
		return nil, err
	}

	return est, nil
}

// Fit solves the least-squares problem for X and y. Sample weights scale
// each row by sqrt(w); a positive alpha appends sqrt(alpha)·I rows so the
// same QR solve yields the ridge solution. Fit-time options from a
// composite are accepted and ignored.
func (e *LeastSquares) Fit(X mat.Matrix, y, sampleWeight []float64, _ ...stepwise.FitOption) error {
	n, p := X.Dims()
	if len(y) != n {
		return fmt.Errorf("%w: X has %d rows, y has %d values", errs.ErrDimensionMismatch, n, len(y))
	}
	if sampleWeight != nil && len(sampleWeight) != n {
		return fmt.Errorf("%w: X has %d rows, sample weights have %d values", errs.ErrDimensionMismatch, n, len(sampleWeight))
	}

	cols := p
	if e.fitIntercept {
		cols++
	}
	rows := n
	if e.alpha > 0 {
		rows += p
	}
	if rows < cols {
		return fmt.Errorf("%w: %d equations for %d unknowns", errs.ErrDimensionMismatch, rows, cols)
	}

	a := mat.NewDense(rows, cols, nil)
	b := mat.NewVecDense(rows, nil)
	for i := 0; i < n; i++ {
		w := 1.0
		if sampleWeight != nil {
			w = math.Sqrt(sampleWeight[i])
		}
		for j := 0; j < p; j++ {
			a.Set(i, j, w*X.At(i, j))
		}
		if e.fitIntercept {
			a.Set(i, p, w)
		}
		b.SetVec(i, w*y[i])
	}
	if e.alpha > 0 {
		// Penalty rows cover only the coefficient columns; the intercept
		// column stays zero so the offset is not shrunk.
		penalty := math.Sqrt(e.alpha)
		for j := 0; j < p; j++ {
			a.Set(n+j, j, penalty)
		}
	}

	var qr mat.QR
	qr.Factorize(a)

	var sol mat.Dense
	if err := qr.SolveTo(&sol, false, b); err != nil {
		return fmt.Errorf("least squares solve: %w", err)
	}

	coef := make([]float64, p)
	for j := range coef {
		coef[j] = sol.At(j, 0)
	}
	e.coef = coef
	if e.fitIntercept {
		e.intercept = sol.At(p, 0)
	} else {
		e.intercept = 0.0
	}
	e.fitted = true

	return nil
}

// Predict returns X·coef + intercept for every row of X.
func (e *LeastSquares) Predict(X mat.Matrix) ([]float64, error) {
	if !e.fitted {
		return nil, errs.ErrNotFitted
	}
	n, p := X.Dims()
	if p != len(e.coef) {
		return nil, fmt.Errorf("%w: fitted on %d features, X has %d", errs.ErrDimensionMismatch, len(e.coef), p)
	}

	out := make([]float64, n)
	for i := 0; i < n; i++ {
		sum := e.intercept
		for j, c := range e.coef {
			sum += c * X.At(i, j)
		}
		out[i] = sum
	}

	return out, nil
}

// ParamNames returns the native hyperparameter names.
func (e *LeastSquares) ParamNames() []string {
	return append([]string(nil), paramNames...)
}

// GetParams returns the current hyperparameter values. LeastSquares has no
// nested estimators, so deep has no effect.
func (e *LeastSquares) GetParams(_ bool) map[string]any {
	return map[string]any{
		"alpha":         e.alpha,
		"fit_intercept": e.fitIntercept,
	}
}

// SetParams updates hyperparameters by native name. Unknown names and
// mistyped or out-of-range values are rejected.
func (e *LeastSquares) SetParams(params map[string]any) error {
	for name, value := range params {
		switch name {
		case "alpha":
			alpha, ok := value.(float64)
			if !ok {
				return fmt.Errorf("%w: alpha must be a float64, got %T", errs.ErrInvalidParamValue, value)
			}
			if err := WithAlpha(alpha)(e); err != nil {
				return err
			}
		case "fit_intercept":
			enabled, ok := value.(bool)
			if !ok {
				return fmt.Errorf("%w: fit_intercept must be a bool, got %T", errs.ErrInvalidParamValue, value)
			}
			e.fitIntercept = enabled
		default:
			return fmt.Errorf("%w: %q", errs.ErrUnknownParam, name)
		}
	}

	return nil
}

// Coef returns the fitted coefficients.
func (e *LeastSquares) Coef() []float64 {
	return e.coef
}

// Intercept returns the fitted intercept.
func (e *LeastSquares) Intercept() float64 {
	return e.intercept
}

// FitIntercept reports whether an intercept term is fitted.
func (e *LeastSquares) FitIntercept() bool {
	return e.fitIntercept
}

// SetFitIntercept toggles intercept fitting.
func (e *LeastSquares) SetFitIntercept(enabled bool) {
	e.fitIntercept = enabled
}
