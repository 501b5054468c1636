package stepwise

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/modelkit/stepwise/errs"
)

// mockEstimator is a scriptable Estimator that records every call the
// composite makes to it.
type mockEstimator struct {
	fitIntercept bool
	coef         []float64
	intercept    float64

	// predictions is returned from Predict after a fit; sized to the sample
	// count of the fit data.
	predictions []float64

	params     map[string]any
	paramOrder []string

	fitErr error

	fitTargets    [][]float64
	fitWeights    [][]float64
	fitOpts       [][]FitOption
	setParamCalls int
}

func (m *mockEstimator) Fit(_ mat.Matrix, y, sampleWeight []float64, opts ...FitOption) error {
	if m.fitErr != nil {
		return m.fitErr
	}
	m.fitTargets = append(m.fitTargets, append([]float64(nil), y...))
	m.fitWeights = append(m.fitWeights, append([]float64(nil), sampleWeight...))
	m.fitOpts = append(m.fitOpts, opts)

	return nil
}

func (m *mockEstimator) Predict(X mat.Matrix) ([]float64, error) {
	rows, _ := X.Dims()
	out := make([]float64, rows)
	copy(out, m.predictions)

	return out, nil
}

func (m *mockEstimator) ParamNames() []string {
	return append([]string(nil), m.paramOrder...)
}

func (m *mockEstimator) GetParams(_ bool) map[string]any {
	out := make(map[string]any, len(m.params))
	for k, v := range m.params {
		out[k] = v
	}

	return out
}

func (m *mockEstimator) SetParams(params map[string]any) error {
	m.setParamCalls++
	if m.params == nil {
		m.params = make(map[string]any)
	}
	for k, v := range params {
		if _, known := m.params[k]; !known {
			return errors.New("unknown parameter " + k)
		}
		m.params[k] = v
	}

	return nil
}

func (m *mockEstimator) Coef() []float64        { return m.coef }
func (m *mockEstimator) Intercept() float64     { return m.intercept }
func (m *mockEstimator) FitIntercept() bool     { return m.fitIntercept }
func (m *mockEstimator) SetFitIntercept(b bool) { m.fitIntercept = b }

func newMock() *mockEstimator {
	return &mockEstimator{fitIntercept: true}
}

func matrix(rows, cols int, data []float64) *mat.Dense {
	return mat.NewDense(rows, cols, data)
}

func TestNewValidComposite(t *testing.T) {
	a, b := newMock(), newMock()
	est, err := New(
		[]Step{{Name: "a", Estimator: a}, {Name: "b", Estimator: b}},
		[]Scope{{0, 1}, {2, 3}},
	)
	require.NoError(t, err)
	require.NotNil(t, est)
	require.Equal(t, 4, est.NumFeatures())
	require.Equal(t, []string{"a", "b"}, est.StepNames())
	require.False(t, est.IsFitted())
}

func TestNewScopeOrderIndependent(t *testing.T) {
	// Scopes may be supplied in any order as long as their union partitions
	// the range.
	est, err := New(
		[]Step{{Name: "a", Estimator: newMock()}, {Name: "b", Estimator: newMock()}},
		[]Scope{{2, 3}, {1, 0}},
	)
	require.NoError(t, err)
	require.Equal(t, 4, est.NumFeatures())
}

func TestNewScopeCountMismatch(t *testing.T) {
	_, err := New(
		[]Step{{Name: "a", Estimator: newMock()}, {Name: "b", Estimator: newMock()}},
		[]Scope{{0, 1}},
	)
	require.ErrorIs(t, err, errs.ErrScopeCountMismatch)
}

func TestNewNoSteps(t *testing.T) {
	_, err := New(nil, nil)
	require.ErrorIs(t, err, errs.ErrNoSteps)
}

func TestCompositeSatisfiesEstimatorContract(t *testing.T) {
	// The composite must be usable wherever the capability contract is
	// expected, including as the static type of a Step's Estimator field.
	var est Estimator

	a := newMock()
	composite, err := New([]Step{{Name: "a", Estimator: a}}, []Scope{{0}})
	require.NoError(t, err)
	est = composite
	require.NotNil(t, est)

	// The intercept flag delegates to the first step.
	require.True(t, composite.FitIntercept())
	composite.SetFitIntercept(false)
	require.False(t, a.FitIntercept())
	require.False(t, composite.FitIntercept())
}

func TestNewNestedCompositeForbidden(t *testing.T) {
	inner, err := New(
		[]Step{{Name: "only", Estimator: newMock()}},
		[]Scope{{0, 1}},
	)
	require.NoError(t, err)

	_, err = New(
		[]Step{{Name: "outer", Estimator: inner}},
		[]Scope{{0, 1}},
	)
	require.ErrorIs(t, err, errs.ErrNestedComposite)
}

func TestNewInvalidScopes(t *testing.T) {
	tests := []struct {
		name   string
		scopes []Scope
	}{
		{name: "gap", scopes: []Scope{{0, 1}, {3, 4}}},
		{name: "overlap across scopes", scopes: []Scope{{0, 1}, {1, 2}}},
		{name: "duplicate within one scope", scopes: []Scope{{0, 0}, {1, 2}}},
		{name: "not starting at zero", scopes: []Scope{{1, 2}, {3, 4}}},
		{name: "negative index", scopes: []Scope{{-1, 0}, {1, 2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(
				[]Step{{Name: "a", Estimator: newMock()}, {Name: "b", Estimator: newMock()}},
				tt.scopes,
			)
			require.ErrorIs(t, err, errs.ErrInvalidScopes)
		})
	}
}

func TestNewStepNameValidation(t *testing.T) {
	_, err := New(
		[]Step{{Name: "a", Estimator: newMock()}, {Name: "a", Estimator: newMock()}},
		[]Scope{{0}, {1}},
	)
	require.ErrorIs(t, err, errs.ErrDuplicateStepName)

	_, err = New(
		[]Step{{Name: "bad__name", Estimator: newMock()}},
		[]Scope{{0}},
	)
	require.ErrorIs(t, err, errs.ErrInvalidStepName)

	_, err = New(
		[]Step{{Name: "", Estimator: newMock()}},
		[]Scope{{0}},
	)
	require.ErrorIs(t, err, errs.ErrInvalidStepName)
}

func TestNewForcesSingleIntercept(t *testing.T) {
	a, b, c := newMock(), newMock(), newMock()
	require.True(t, b.FitIntercept())

	_, err := New(
		[]Step{{Name: "a", Estimator: a}, {Name: "b", Estimator: b}, {Name: "c", Estimator: c}},
		[]Scope{{0}, {1}, {2}},
	)
	require.NoError(t, err)

	require.True(t, a.FitIntercept(), "first step keeps its intercept")
	require.False(t, b.FitIntercept())
	require.False(t, c.FitIntercept())
}

func TestParamNamesFlattening(t *testing.T) {
	a, b := newMock(), newMock()
	a.params = map[string]any{"alpha": 1.0, "fit_intercept": true}
	a.paramOrder = []string{"alpha", "fit_intercept"}
	b.params = map[string]any{"alpha": 2.0}
	b.paramOrder = []string{"alpha"}

	est, err := New(
		[]Step{{Name: "a", Estimator: a}, {Name: "b", Estimator: b}},
		[]Scope{{0, 1}, {2}},
	)
	require.NoError(t, err)

	names := est.ParamNames()
	require.Equal(t, []string{"a__alpha", "a__fit_intercept", "b__alpha"}, names)

	// Bijection: no duplicates.
	seen := make(map[string]struct{})
	for _, name := range names {
		_, dup := seen[name]
		require.False(t, dup, "duplicate flattened name %q", name)
		seen[name] = struct{}{}
	}
}

func TestGetParamsSetParamsRoundTrip(t *testing.T) {
	a, b := newMock(), newMock()
	a.params = map[string]any{"alpha": 1.0}
	a.paramOrder = []string{"alpha"}
	b.params = map[string]any{"alpha": 2.0, "fit_intercept": false}
	b.paramOrder = []string{"alpha", "fit_intercept"}

	est, err := New(
		[]Step{{Name: "a", Estimator: a}, {Name: "b", Estimator: b}},
		[]Scope{{0}, {1}},
	)
	require.NoError(t, err)

	params := est.GetParams(true)
	require.Equal(t, map[string]any{
		"a__alpha":         1.0,
		"b__alpha":         2.0,
		"b__fit_intercept": false,
	}, params)

	// Setting the same values back leaves GetParams unchanged.
	require.NoError(t, est.SetParams(params))
	require.Equal(t, params, est.GetParams(true))
}

func TestSetParamsRouting(t *testing.T) {
	a, b := newMock(), newMock()
	a.params = map[string]any{"alpha": 1.0}
	a.paramOrder = []string{"alpha"}
	b.params = map[string]any{"alpha": 2.0}
	b.paramOrder = []string{"alpha"}

	est, err := New(
		[]Step{{Name: "a", Estimator: a}, {Name: "b", Estimator: b}},
		[]Scope{{0}, {1}},
	)
	require.NoError(t, err)

	require.NoError(t, est.SetParams(map[string]any{"b__alpha": 9.5}))
	require.Equal(t, 0, a.setParamCalls, "untargeted step receives no call")
	require.Equal(t, 1, b.setParamCalls)
	require.Equal(t, 9.5, b.params["alpha"])
}

func TestSetParamsEmptyIsNoOp(t *testing.T) {
	a := newMock()
	a.params = map[string]any{"alpha": 1.0}
	a.paramOrder = []string{"alpha"}

	est, err := New([]Step{{Name: "a", Estimator: a}}, []Scope{{0}})
	require.NoError(t, err)

	require.NoError(t, est.SetParams(nil))
	require.NoError(t, est.SetParams(map[string]any{}))
	require.Equal(t, 0, a.setParamCalls)
}

func TestParamsUnknownStep(t *testing.T) {
	a := newMock()
	a.params = map[string]any{"alpha": 1.0}
	a.paramOrder = []string{"alpha"}

	est, err := New([]Step{{Name: "a", Estimator: a}}, []Scope{{0}})
	require.NoError(t, err)

	err = est.SetParams(map[string]any{"nosuch__alpha": 1.0})
	require.ErrorIs(t, err, errs.ErrUnknownStep)
}

func TestSetParamsDelegatesNativeValidation(t *testing.T) {
	a := newMock()
	a.params = map[string]any{"alpha": 1.0}
	a.paramOrder = []string{"alpha"}

	est, err := New([]Step{{Name: "a", Estimator: a}}, []Scope{{0}})
	require.NoError(t, err)

	// The composite routes the call; rejecting the unknown native name is
	// the sub-estimator's job.
	err = est.SetParams(map[string]any{"a__bogus": 1.0})
	require.Error(t, err)
	require.Equal(t, 1, a.setParamCalls)
}

func TestNativeNameMayContainSeparator(t *testing.T) {
	a := newMock()
	a.params = map[string]any{"inner__alpha": 3.0}
	a.paramOrder = []string{"inner__alpha"}

	est, err := New([]Step{{Name: "a", Estimator: a}}, []Scope{{0}})
	require.NoError(t, err)

	// Only the first "__" splits; the rest of the name passes through.
	params := est.GetParams(false)
	require.Equal(t, 3.0, params["a__inner__alpha"])

	require.NoError(t, est.SetParams(map[string]any{"a__inner__alpha": 4.0}))
	require.Equal(t, 4.0, a.params["inner__alpha"])
}

func TestFitResidualChain(t *testing.T) {
	y := []float64{10, 20, 30, 40}

	a, b := newMock(), newMock()
	a.coef = []float64{1, 2}
	a.predictions = []float64{1, 2, 3, 4}
	b.coef = []float64{3, 4}
	b.predictions = []float64{0, 0, 0, 0}

	est, err := New(
		[]Step{{Name: "a", Estimator: a}, {Name: "b", Estimator: b}},
		[]Scope{{0, 1}, {2, 3}},
	)
	require.NoError(t, err)

	X := matrix(4, 4, make([]float64, 16))
	require.NoError(t, est.Fit(X, y, nil))

	// The first step sees the raw target.
	require.Equal(t, []float64{10, 20, 30, 40}, a.fitTargets[0])
	// The second step sees exactly y minus the first step's predictions.
	require.Equal(t, []float64{9, 18, 27, 36}, b.fitTargets[0])
}

func TestFitCoefficientAssembly(t *testing.T) {
	a, b := newMock(), newMock()
	a.coef = []float64{1.5, 2.5}
	a.predictions = []float64{0, 0, 0}
	a.intercept = 7.0
	b.coef = []float64{3.5, 4.5}
	b.predictions = []float64{0, 0, 0}

	// Scope order is scattered; coefficients land at the scope's positions.
	est, err := New(
		[]Step{{Name: "a", Estimator: a}, {Name: "b", Estimator: b}},
		[]Scope{{2, 0}, {1, 3}},
	)
	require.NoError(t, err)

	X := matrix(3, 4, make([]float64, 12))
	require.NoError(t, est.Fit(X, []float64{1, 2, 3}, nil))

	require.Equal(t, []float64{2.5, 3.5, 1.5, 4.5}, est.Coef())
	require.Equal(t, 7.0, est.Intercept())
	require.True(t, est.IsFitted())
}

func TestFitInterceptSourceRule(t *testing.T) {
	a, b := newMock(), newMock()
	a.coef = []float64{1}
	a.intercept = 5.0
	a.fitIntercept = false
	b.coef = []float64{2}
	b.intercept = 9.0

	est, err := New(
		[]Step{{Name: "a", Estimator: a}, {Name: "b", Estimator: b}},
		[]Scope{{0}, {1}},
	)
	require.NoError(t, err)

	X := matrix(2, 2, make([]float64, 4))
	require.NoError(t, est.Fit(X, []float64{1, 2}, nil))

	// The first step does not fit an intercept, so the composite's is zero
	// even though the sub-estimator reports a stale value.
	require.Equal(t, 0.0, est.Intercept())
}

func TestFitScopeCoverageRevalidated(t *testing.T) {
	a := newMock()
	a.coef = []float64{1, 2}

	est, err := New([]Step{{Name: "a", Estimator: a}}, []Scope{{0, 1}})
	require.NoError(t, err)

	// X has three columns but the scopes only cover two.
	X := matrix(2, 3, make([]float64, 6))
	err = est.Fit(X, []float64{1, 2}, nil)
	require.ErrorIs(t, err, errs.ErrScopeCoverage)
	require.False(t, est.IsFitted())
}

func TestFitDimensionChecks(t *testing.T) {
	a := newMock()
	a.coef = []float64{1, 2}

	est, err := New([]Step{{Name: "a", Estimator: a}}, []Scope{{0, 1}})
	require.NoError(t, err)

	X := matrix(3, 2, make([]float64, 6))
	require.ErrorIs(t, est.Fit(X, []float64{1, 2}, nil), errs.ErrDimensionMismatch)
	require.ErrorIs(t, est.Fit(X, []float64{1, 2, 3}, []float64{1}), errs.ErrDimensionMismatch)
}

func TestFitForwardsWeightsAndOptions(t *testing.T) {
	a, b := newMock(), newMock()
	a.coef = []float64{1}
	a.predictions = []float64{0, 0}
	b.coef = []float64{2}
	b.predictions = []float64{0, 0}

	est, err := New(
		[]Step{{Name: "a", Estimator: a}, {Name: "b", Estimator: b}},
		[]Scope{{0}, {1}},
	)
	require.NoError(t, err)

	weights := []float64{0.5, 2.0}
	type customOpt struct{ tag string }
	opt := customOpt{tag: "forwarded"}

	X := matrix(2, 2, make([]float64, 4))
	require.NoError(t, est.Fit(X, []float64{1, 2}, weights, opt))

	for _, m := range []*mockEstimator{a, b} {
		require.Equal(t, weights, m.fitWeights[0])
		require.Len(t, m.fitOpts[0], 1)
		require.Equal(t, opt, m.fitOpts[0][0])
	}
}

func TestFitSubEstimatorErrorPropagates(t *testing.T) {
	sentinel := errors.New("numerical failure")

	a, b := newMock(), newMock()
	a.coef = []float64{1}
	a.predictions = []float64{0, 0}
	b.coef = []float64{2}
	b.fitErr = sentinel

	est, err := New(
		[]Step{{Name: "a", Estimator: a}, {Name: "b", Estimator: b}},
		[]Scope{{0}, {1}},
	)
	require.NoError(t, err)

	X := matrix(2, 2, make([]float64, 4))
	err = est.Fit(X, []float64{1, 2}, nil)
	require.ErrorIs(t, err, sentinel, "sub-estimator error value is preserved")
	require.False(t, est.IsFitted())
}

func TestFitCoefLengthMismatch(t *testing.T) {
	a := newMock()
	a.coef = []float64{1, 2, 3} // three coefficients for a two-column scope

	est, err := New([]Step{{Name: "a", Estimator: a}}, []Scope{{0, 1}})
	require.NoError(t, err)

	X := matrix(2, 2, make([]float64, 4))
	require.Error(t, est.Fit(X, []float64{1, 2}, nil))
}

func TestPredictRequiresFit(t *testing.T) {
	a := newMock()
	est, err := New([]Step{{Name: "a", Estimator: a}}, []Scope{{0}})
	require.NoError(t, err)

	_, err = est.Predict(matrix(1, 1, []float64{1}))
	require.ErrorIs(t, err, errs.ErrNotFitted)
}

func TestPredictLinearForm(t *testing.T) {
	a := newMock()
	a.coef = []float64{2, -1}
	a.predictions = []float64{0, 0}
	a.intercept = 0.5

	est, err := New([]Step{{Name: "a", Estimator: a}}, []Scope{{0, 1}})
	require.NoError(t, err)

	X := matrix(2, 2, []float64{
		1, 2,
		3, 4,
	})
	require.NoError(t, est.Fit(X, []float64{0, 0}, nil))

	preds, err := est.Predict(X)
	require.NoError(t, err)
	require.InDelta(t, 0.5+2*1-1*2, preds[0], 1e-12)
	require.InDelta(t, 0.5+2*3-1*4, preds[1], 1e-12)

	_, err = est.Predict(matrix(1, 3, []float64{1, 2, 3}))
	require.ErrorIs(t, err, errs.ErrDimensionMismatch)
}

func TestRefitOverwritesState(t *testing.T) {
	a := newMock()
	a.coef = []float64{1}
	a.predictions = []float64{0, 0}
	a.intercept = 2.0

	est, err := New([]Step{{Name: "a", Estimator: a}}, []Scope{{0}})
	require.NoError(t, err)

	X := matrix(2, 1, []float64{1, 2})
	require.NoError(t, est.Fit(X, []float64{1, 2}, nil))
	require.Equal(t, []float64{1}, est.Coef())

	a.coef = []float64{5}
	a.intercept = -1.0
	require.NoError(t, est.Fit(X, []float64{1, 2}, nil))
	require.Equal(t, []float64{5}, est.Coef())
	require.Equal(t, -1.0, est.Intercept())
}

func TestRestoreFitted(t *testing.T) {
	a := newMock()
	est, err := New([]Step{{Name: "a", Estimator: a}}, []Scope{{0, 1}})
	require.NoError(t, err)

	require.ErrorIs(t, est.RestoreFitted([]float64{1}, 0), errs.ErrDimensionMismatch)
	require.False(t, est.IsFitted())

	require.NoError(t, est.RestoreFitted([]float64{1, 2}, 3))
	require.True(t, est.IsFitted())

	preds, err := est.Predict(matrix(1, 2, []float64{1, 1}))
	require.NoError(t, err)
	require.InDelta(t, 6.0, preds[0], 1e-12)
}
