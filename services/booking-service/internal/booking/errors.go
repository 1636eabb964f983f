package booking

import (
	"errors"

	"github.com/sentinel-dot/easyseat-sub000/services/booking-service/internal/availability"
)

// Kind partitions lifecycle failures for the transport layer. Storage errors
// are not wrapped into this taxonomy; they propagate raw and map to 500.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindConflict
	KindPolicy
	KindState
)

type Error struct {
	Kind   Kind
	Reason string
}

func (e *Error) Error() string { return e.Reason }

func newError(kind Kind, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

// NewError lets sibling packages fail with the same taxonomy the transport
// layer maps to HTTP statuses.
func NewError(kind Kind, reason string) *Error {
	return newError(kind, reason)
}

// KindOf extracts the failure kind, or 0 for errors outside the taxonomy.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// problemsToError collapses a validation problem list into one lifecycle
// error. Not-found beats conflict beats policy beats shape, so the caller
// sees the most fundamental reason the request cannot proceed.
func problemsToError(problems []availability.Problem) error {
	if len(problems) == 0 {
		return nil
	}
	best := problems[0]
	for _, p := range problems[1:] {
		if rankCategory(p.Category) > rankCategory(best.Category) {
			best = p
		}
	}
	switch best.Category {
	case availability.CategoryNotFound:
		return newError(KindNotFound, best.Message)
	case availability.CategoryConflict:
		return newError(KindConflict, best.Message)
	case availability.CategoryPolicy:
		return newError(KindPolicy, best.Message)
	default:
		return newError(KindValidation, best.Message)
	}
}

func rankCategory(c availability.Category) int {
	switch c {
	case availability.CategoryNotFound:
		return 4
	case availability.CategoryConflict:
		return 3
	case availability.CategoryPolicy:
		return 2
	default:
		return 1
	}
}
