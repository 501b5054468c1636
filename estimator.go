package stepwise

import "gonum.org/v1/gonum/mat"

// FitOption is an opaque fit-time option forwarded unmodified to every
// step's estimator. Each estimator interprets the options it recognizes and
// ignores the rest.
type FitOption any

// Estimator is the capability contract a sub-estimator must satisfy to be
// composed into a StepwiseEstimator. Any regression implementation works
// regardless of its internal algorithm, as long as it exposes fitting,
// prediction, and parameter introspection in this shape.
//
// Implementations are mutated in place by the composite: parameters are set
// through SetParams, the fit-intercept flag may be forced off at composite
// construction, and Fit populates the fitted coefficients and intercept.
type Estimator interface {
	// Fit fits the estimator to the given feature matrix and target vector.
	// sampleWeight may be nil for unweighted fitting. opts are forwarded
	// verbatim from the composite's Fit call.
	Fit(X mat.Matrix, y, sampleWeight []float64, opts ...FitOption) error

	// Predict returns one predicted value per row of X. It requires a prior
	// successful Fit.
	Predict(X mat.Matrix) ([]float64, error)

	// ParamNames returns the estimator's native hyperparameter names in a
	// stable order.
	ParamNames() []string

	// GetParams returns the current value of every native hyperparameter.
	// When deep is true, estimators that contain nested estimators include
	// their parameters as well.
	GetParams(deep bool) map[string]any

	// SetParams updates hyperparameters by native name. Unknown names or
	// invalid values are rejected by the estimator's own validation.
	SetParams(params map[string]any) error

	// Coef returns the fitted coefficient vector, one entry per feature
	// column the estimator was fitted on.
	Coef() []float64

	// Intercept returns the fitted intercept, or zero when fitting without
	// an intercept.
	Intercept() float64

	// FitIntercept reports whether the estimator fits an intercept term.
	FitIntercept() bool

	// SetFitIntercept toggles intercept fitting. The composite uses this to
	// enforce the single-intercept invariant across steps.
	SetFitIntercept(enabled bool)
}
