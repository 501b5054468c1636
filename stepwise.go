package stepwise

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/modelkit/stepwise/errs"
)

// Step is a named sub-estimator within a composite. Steps are fitted in the
// order they are declared; the name qualifies the sub-estimator's parameters
// in the flattened namespace.
type Step struct {
	Name      string
	Estimator Estimator
}

// StepwiseEstimator composes several sub-estimators into a single piecewise
// regressor. Each step owns a disjoint scope of feature columns; the steps
// are fitted in sequence, each to the residual of the previous fits, and the
// fitted coefficients are assembled into one dense coefficient vector with a
// single global intercept.
//
// A StepwiseEstimator holds its sub-estimators for its entire lifetime and
// mutates them in place (parameter updates, intercept forcing, fitting). It
// is not safe for concurrent mutating calls on the same instance.
type StepwiseEstimator struct {
	steps  []Step
	scopes []Scope

	// fullScope is the total feature count the scopes cover, i.e. the size
	// of the contiguous range [0, fullScope).
	fullScope int

	coef      []float64
	intercept float64
	fitted    bool
}

// The composite satisfies the same capability contract it requires from its
// steps, so it is usable anywhere a plain regressor is expected. Nesting one
// composite inside another is still rejected at construction.
var _ Estimator = (*StepwiseEstimator)(nil)

// New constructs a composite from steps and their positionally paired
// feature scopes.
//
// Validation order: step/scope count match, no nested composites, scopes
// form an exact partition of [0, n), step names are unique and contain no
// "__". Any violation returns a configuration error and no composite.
//
// Construction forces the fit-intercept flag off on every step except the
// first: an additive residual chain can carry at most one global intercept,
// and assigning it elsewhere would double-count a constant offset. This
// mutation happens once here, not per fit.
func New(steps []Step, scopes []Scope) (*StepwiseEstimator, error) {
	if len(steps) == 0 {
		return nil, errs.ErrNoSteps
	}
	if len(steps) != len(scopes) {
		return nil, fmt.Errorf("%w: %d steps, %d scopes", errs.ErrScopeCountMismatch, len(steps), len(scopes))
	}

	seen := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		if step.Name == "" || strings.Contains(step.Name, "__") {
			return nil, fmt.Errorf("%w: %q", errs.ErrInvalidStepName, step.Name)
		}
		if _, dup := seen[step.Name]; dup {
			return nil, fmt.Errorf("%w: %q", errs.ErrDuplicateStepName, step.Name)
		}
		seen[step.Name] = struct{}{}

		if _, nested := step.Estimator.(*StepwiseEstimator); nested {
			return nil, fmt.Errorf("%w: step %q", errs.ErrNestedComposite, step.Name)
		}
	}

	fullScope, err := validateScopes(scopes)
	if err != nil {
		return nil, err
	}

	est := &StepwiseEstimator{
		steps:     append([]Step(nil), steps...),
		scopes:    make([]Scope, len(scopes)),
		fullScope: fullScope,
	}
	for i, scope := range scopes {
		est.scopes[i] = append(Scope(nil), scope...)
	}

	// Only the first step may fit an intercept.
	for _, step := range est.steps[1:] {
		step.Estimator.SetFitIntercept(false)
	}

	return est, nil
}

// Steps returns the steps in declaration order. The returned slice is a
// copy, but the estimators it references are the composite's own live
// sub-estimators.
func (s *StepwiseEstimator) Steps() []Step {
	return append([]Step(nil), s.steps...)
}

// StepNames returns the step names in declaration order.
func (s *StepwiseEstimator) StepNames() []string {
	names := make([]string, len(s.steps))
	for i, step := range s.steps {
		names[i] = step.Name
	}

	return names
}

// Scopes returns a copy of the per-step feature scopes in declaration order.
func (s *StepwiseEstimator) Scopes() []Scope {
	scopes := make([]Scope, len(s.scopes))
	for i, scope := range s.scopes {
		scopes[i] = append(Scope(nil), scope...)
	}

	return scopes
}

// NumFeatures returns the total feature count the composite's scopes cover.
func (s *StepwiseEstimator) NumFeatures() int {
	return s.fullScope
}

// ParamNames returns the flattened parameter names of every step, as
// "<step>__<param>", preserving step order and each estimator's native
// parameter order. The mapping between (step, native name) pairs and
// flattened names is bijective: step names are unique and contain no "__".
func (s *StepwiseEstimator) ParamNames() []string {
	var names []string
	for _, step := range s.steps {
		for _, name := range step.Estimator.ParamNames() {
			names = append(names, step.Name+"__"+name)
		}
	}

	return names
}

// splitParamName resolves a qualified parameter name to the index of its
// step and the native parameter name. The token before the first "__" is the
// step name; the remainder is passed through untouched, so native names may
// themselves contain "__".
func (s *StepwiseEstimator) splitParamName(name string) (int, string, error) {
	stepName, paramName, _ := strings.Cut(name, "__")
	for i, step := range s.steps {
		if step.Name == stepName {
			return i, paramName, nil
		}
	}

	return 0, "", fmt.Errorf("%w: %q", errs.ErrUnknownStep, name)
}

// GetParams returns the current value of every flattened parameter, keyed by
// qualified name. When deep is true the request is forwarded as a deep
// lookup to each sub-estimator. Every name comes from a registered step, so
// unlike SetParams no lookup can fail here.
func (s *StepwiseEstimator) GetParams(deep bool) map[string]any {
	out := make(map[string]any)
	for _, step := range s.steps {
		params := step.Estimator.GetParams(deep)
		for _, name := range step.Estimator.ParamNames() {
			out[step.Name+"__"+name] = params[name]
		}
	}

	return out
}

// SetParams routes qualified parameters to the sub-estimators they address.
// An empty map is a no-op. Native-name validation is delegated entirely to
// each sub-estimator's own SetParams; the composite only resolves the step
// component and fails on unknown step names.
func (s *StepwiseEstimator) SetParams(params map[string]any) error {
	if len(params) == 0 {
		return nil
	}

	perStep := make([]map[string]any, len(s.steps))
	for name, value := range params {
		idx, paramName, err := s.splitParamName(name)
		if err != nil {
			return err
		}
		if perStep[idx] == nil {
			perStep[idx] = make(map[string]any)
		}
		perStep[idx][paramName] = value
	}

	for i, stepParams := range perStep {
		if stepParams == nil {
			continue
		}
		if err := s.steps[i].Estimator.SetParams(stepParams); err != nil {
			return err
		}
	}

	return nil
}

// Fit fits every step in declaration order, feeding each step the residual
// left by the steps before it.
//
// The loop is strictly sequential and order-dependent: the result is not
// equivalent to fitting all steps jointly, and step order is part of the
// model specification. sampleWeight may be nil; opts are forwarded verbatim
// to every step's Fit.
//
// The composite's scopes must cover exactly the column count of X, which is
// re-validated here because the feature count is only known at fit time. Any
// sub-estimator failure aborts the fit and propagates; a failed Fit leaves
// the composite unfitted (a previously fitted state is discarded).
func (s *StepwiseEstimator) Fit(X mat.Matrix, y, sampleWeight []float64, opts ...FitOption) error {
	rows, cols := X.Dims()
	if cols != s.fullScope {
		return fmt.Errorf("%w: scopes cover %d features, X has %d", errs.ErrScopeCoverage, s.fullScope, cols)
	}
	if len(y) != rows {
		return fmt.Errorf("%w: X has %d rows, y has %d values", errs.ErrDimensionMismatch, rows, len(y))
	}
	if sampleWeight != nil && len(sampleWeight) != rows {
		return fmt.Errorf("%w: X has %d rows, sample weights have %d values", errs.ErrDimensionMismatch, rows, len(sampleWeight))
	}

	s.fitted = false

	coef := make([]float64, cols)
	assigned := make([]bool, cols)
	residual := append([]float64(nil), y...)

	for i, step := range s.steps {
		scope := s.scopes[i]
		sub := sliceColumns(X, scope)

		if err := step.Estimator.Fit(sub, residual, sampleWeight, opts...); err != nil {
			return fmt.Errorf("fitting step %q: %w", step.Name, err)
		}

		stepCoef := step.Estimator.Coef()
		if len(stepCoef) != len(scope) {
			return fmt.Errorf("step %q produced %d coefficients for %d features", step.Name, len(stepCoef), len(scope))
		}
		for j, col := range scope {
			coef[col] = stepCoef[j]
			assigned[col] = true
		}

		preds, err := step.Estimator.Predict(sub)
		if err != nil {
			return fmt.Errorf("predicting step %q: %w", step.Name, err)
		}
		if len(preds) != rows {
			return fmt.Errorf("step %q predicted %d values for %d samples", step.Name, len(preds), rows)
		}
		for j := range residual {
			residual[j] -= preds[j]
		}
	}

	// The partition invariant guarantees every column is written exactly
	// once; verify coverage before publishing the fitted state.
	for col, ok := range assigned {
		if !ok {
			return fmt.Errorf("%w: column %d left unassigned", errs.ErrScopeCoverage, col)
		}
	}

	s.coef = coef
	if first := s.steps[0].Estimator; first.FitIntercept() {
		s.intercept = first.Intercept()
	} else {
		s.intercept = 0.0
	}
	s.fitted = true

	return nil
}

// Predict returns X·coef + intercept for every row of X.
//
// Because every step after the first fits without an intercept and the first
// step's intercept equals the composite's, this is exactly the sum of each
// sub-estimator's prediction over its own scope.
func (s *StepwiseEstimator) Predict(X mat.Matrix) ([]float64, error) {
	if !s.fitted {
		return nil, errs.ErrNotFitted
	}
	rows, cols := X.Dims()
	if cols != len(s.coef) {
		return nil, fmt.Errorf("%w: fitted on %d features, X has %d", errs.ErrDimensionMismatch, len(s.coef), cols)
	}

	out := make([]float64, rows)
	for i := 0; i < rows; i++ {
		sum := s.intercept
		for j, c := range s.coef {
			sum += c * X.At(i, j)
		}
		out[i] = sum
	}

	return out, nil
}

// IsFitted reports whether the composite has completed a successful Fit.
func (s *StepwiseEstimator) IsFitted() bool {
	return s.fitted
}

// Coef returns the assembled coefficient vector, one entry per feature
// column. It is only defined after a successful Fit.
func (s *StepwiseEstimator) Coef() []float64 {
	return s.coef
}

// Intercept returns the composite intercept: the first step's intercept when
// that step fits one, zero otherwise. It is only defined after a successful
// Fit.
func (s *StepwiseEstimator) Intercept() float64 {
	return s.intercept
}

// FitIntercept reports whether the composite fits an intercept, which is
// determined entirely by its first step.
func (s *StepwiseEstimator) FitIntercept() bool {
	return s.steps[0].Estimator.FitIntercept()
}

// SetFitIntercept toggles intercept fitting on the first step. Later steps
// are permanently intercept-free.
func (s *StepwiseEstimator) SetFitIntercept(enabled bool) {
	s.steps[0].Estimator.SetFitIntercept(enabled)
}

// RestoreFitted installs a previously captured fitted state (an assembled
// coefficient vector and intercept) without refitting, so a composite can
// serve predictions from persisted state. The coefficient count must match
// the composite's full scope.
func (s *StepwiseEstimator) RestoreFitted(coef []float64, intercept float64) error {
	if len(coef) != s.fullScope {
		return fmt.Errorf("%w: composite covers %d features, got %d coefficients", errs.ErrDimensionMismatch, s.fullScope, len(coef))
	}

	s.coef = append([]float64(nil), coef...)
	s.intercept = intercept
	s.fitted = true

	return nil
}
