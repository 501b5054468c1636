package stepwise

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/mat"

	"github.com/modelkit/stepwise/errs"
)

// Scope is an ordered sequence of feature-column indices assigned to one
// step. The step consumes exactly the columns X[:, scope] of the feature
// matrix, in the order the scope lists them.
type Scope []int

// validateScopes checks that the given scopes form an exact partition of a
// contiguous feature-index range starting at zero. It returns the size of
// the full scope (the total feature count the composite expects).
//
// The check sorts the raw concatenation of all scope indices and requires it
// to equal [0, 1, ..., n-1] exactly. Any duplicate index, whether repeated
// across scopes or within a single scope, and any gap or negative index
// fails the check.
func validateScopes(scopes []Scope) (int, error) {
	total := 0
	for _, scope := range scopes {
		total += len(scope)
	}

	flat := make([]int, 0, total)
	for _, scope := range scopes {
		flat = append(flat, scope...)
	}
	slices.Sort(flat)

	for i, idx := range flat {
		if idx != i {
			return 0, fmt.Errorf("%w: got indices %v", errs.ErrInvalidScopes, scopes)
		}
	}

	return total, nil
}

// sliceColumns materializes the columns of X selected by scope, in scope
// order, as a dense matrix.
func sliceColumns(X mat.Matrix, scope Scope) *mat.Dense {
	rows, _ := X.Dims()
	out := mat.NewDense(rows, len(scope), nil)
	for j, col := range scope {
		for i := 0; i < rows; i++ {
			out.Set(i, j, X.At(i, col))
		}
	}

	return out
}
