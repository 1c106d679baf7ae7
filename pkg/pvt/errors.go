package pvt

import (
	"errors"
	"fmt"

	"github.com/de-bkg/gopvt/pkg/gtime"
)

// errors
var (
	// ErrUndefinedAprioriPosition is returned when the apriori position is the null vector.
	ErrUndefinedAprioriPosition = errors.New("undefined apriori position")

	// ErrNeedsAtLeastOnePseudoRange is returned on candidate creation without any code observation.
	ErrNeedsAtLeastOnePseudoRange = errors.New("at least one pseudo range observation is mandatory")

	// ErrMissingPseudoRange is returned when no code observation is left to work with.
	ErrMissingPseudoRange = errors.New("missing pseudo range observation")

	// ErrPseudoRangeCombination is returned when the ionosphere free combination cannot be formed.
	ErrPseudoRangeCombination = errors.New("failed to form pseudo range combination")

	// ErrUnresolvedState is returned when a candidate state was never interpolated.
	ErrUnresolvedState = errors.New("unresolved candidate state")

	// ErrMatrixInversion is returned on a singular navigation matrix.
	ErrMatrixInversion = errors.New("failed to invert navigation matrix")

	// ErrTimeIsNan is returned when the resolved clock bias is not finite.
	ErrTimeIsNan = errors.New("resolved clock bias is not finite")
)

// LessThanRequiredSVError is returned when too few candidates survive
// the admission filters to resolve the configured solution type.
type LessThanRequiredSVError struct {
	T        gtime.Epoch
	Required int
	Count    int
}

func (e *LessThanRequiredSVError) Error() string {
	return fmt.Sprintf("%v : can't generate a solution (%d SV in sight, %d required)", e.T, e.Count, e.Required)
}

// SolvingError is returned when the navigation system of an epoch
// cannot be resolved. The epoch fails as a whole, no partial solution
// is returned.
type SolvingError struct {
	T   gtime.Epoch
	Err error
}

func (e *SolvingError) Error() string {
	return fmt.Sprintf("%v : %v", e.T, e.Err)
}

func (e *SolvingError) Unwrap() error { return e.Err }
