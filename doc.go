// Package stepwise provides a composite regression estimator that performs
// piecewise (stepwise) fitting over disjoint feature scopes.
//
// A StepwiseEstimator owns an ordered list of named sub-estimators, each
// assigned a scope of feature-column indices. The first step fits its slice
// of the feature matrix to the target vector; every following step fits its
// own slice to the residual left over by the steps before it. The result is
// a single estimator that behaves like a plain linear regressor (assembled
// coefficient vector, single intercept) and can be dropped into
// cross-validation loops, pipelines, or hyperparameter search.
//
// # Core Features
//
//   - Scope validation: declared feature scopes must partition the full
//     feature-index range exactly, with no gaps or overlaps
//   - Flattened parameter namespace: every sub-estimator parameter is
//     addressable as "<step>__<param>" for external search tools
//   - Sequential residual fitting: step order is part of the model
//     specification, later steps see only what earlier steps left unexplained
//   - Single global intercept: all steps after the first have their
//     fit-intercept flag forced off at construction
//
// # Basic Usage
//
//	import (
//	    "github.com/modelkit/stepwise"
//	    "github.com/modelkit/stepwise/linear"
//	)
//
//	a, _ := linear.NewLeastSquares(linear.WithIntercept(true))
//	b, _ := linear.NewLeastSquares(linear.WithAlpha(0.5))
//
//	est, err := stepwise.New(
//	    []stepwise.Step{{Name: "main", Estimator: a}, {Name: "tail", Estimator: b}},
//	    []stepwise.Scope{{0, 1}, {2, 3}},
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := est.Fit(X, y, nil); err != nil {
//	    log.Fatal(err)
//	}
//	preds, _ := est.Predict(X)
//
// Hyperparameters of any step can be tuned through the flattened namespace:
//
//	err = est.SetParams(map[string]any{"tail__alpha": 1.5})
//
// # Package Structure
//
//   - stepwise: the composite estimator and the Estimator capability contract
//   - linear: a least-squares sub-estimator (optional ridge penalty) built on
//     gonum, usable as a step or as a template for custom estimators
//   - snapshot: capture, serialize, and restore fitted composite state
//
// # Concurrency
//
// A StepwiseEstimator is not safe for concurrent Fit or SetParams calls on
// the same instance. It performs no internal locking; callers that share an
// instance across goroutines must serialize mutating calls themselves.
package stepwise
