// Package errs defines the sentinel errors returned by the stepwise module.
//
// All errors are plain sentinel values so callers can test for them with
// errors.Is even when they arrive wrapped with additional context.
package errs

import "errors"

// Construction errors. Returned by stepwise.New; the composite is never
// created when any of these occur.
var (
	// ErrNoSteps indicates the composite was constructed without any steps.
	ErrNoSteps = errors.New("composite requires at least one step")

	// ErrScopeCountMismatch indicates the number of scopes does not match the
	// number of steps.
	ErrScopeCountMismatch = errors.New("a feature scope must be specified for each step")

	// ErrNestedComposite indicates a StepwiseEstimator was supplied as a
	// sub-estimator of another StepwiseEstimator.
	ErrNestedComposite = errors.New("a stepwise composite cannot be a step of another composite")

	// ErrInvalidScopes indicates the declared scopes overlap, contain
	// duplicate indices, or do not form a contiguous range starting at zero.
	ErrInvalidScopes = errors.New("feature scopes must not overlap and must be contiguous from zero")

	// ErrDuplicateStepName indicates two steps share the same name.
	ErrDuplicateStepName = errors.New("step names must be unique")

	// ErrInvalidStepName indicates a step name that would break qualified
	// parameter-name routing.
	ErrInvalidStepName = errors.New("step name must be non-empty and must not contain \"__\"")
)

// Fit and predict errors.
var (
	// ErrScopeCoverage indicates the union of all scopes does not cover the
	// feature count of the matrix supplied to Fit.
	ErrScopeCoverage = errors.New("feature scopes do not cover all features of the input matrix")

	// ErrNotFitted indicates Predict or state capture was attempted before a
	// successful Fit.
	ErrNotFitted = errors.New("estimator is not fitted")

	// ErrDimensionMismatch indicates input slices or matrices with
	// inconsistent sample or feature counts.
	ErrDimensionMismatch = errors.New("input dimensions are inconsistent")
)

// Parameter namespace errors.
var (
	// ErrUnknownStep indicates a qualified parameter name whose step
	// component does not match any registered step.
	ErrUnknownStep = errors.New("unknown step name in qualified parameter")

	// ErrUnknownParam indicates a native parameter name an estimator does not
	// recognize.
	ErrUnknownParam = errors.New("unknown parameter")

	// ErrInvalidParamValue indicates a parameter value of the wrong type or
	// outside its valid range.
	ErrInvalidParamValue = errors.New("invalid parameter value")
)

// Snapshot errors.
var (
	// ErrInvalidSnapshotFormat indicates snapshot data with a bad magic
	// number or a truncated header.
	ErrInvalidSnapshotFormat = errors.New("snapshot data is corrupted or has wrong magic number")

	// ErrUnsupportedSnapshotVersion indicates a snapshot written by an
	// incompatible format version.
	ErrUnsupportedSnapshotVersion = errors.New("unsupported snapshot format version")

	// ErrChecksumMismatch indicates the snapshot payload failed checksum
	// verification.
	ErrChecksumMismatch = errors.New("snapshot payload checksum mismatch")

	// ErrUnknownCompression indicates an unrecognized compression type byte.
	ErrUnknownCompression = errors.New("unknown snapshot compression type")

	// ErrSnapshotMismatch indicates a snapshot that does not match the
	// composite it is being applied to.
	ErrSnapshotMismatch = errors.New("snapshot does not match the target composite")
)
