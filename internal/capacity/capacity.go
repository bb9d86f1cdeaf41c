// Package capacity holds the admission rule for finite-capacity resources
// such as event seats and trainer slots.
//
// Admit is only meaningful when the caller holds a lock on the row that owns
// the capacity for the whole count-then-insert sequence.
package capacity

import (
	"fmt"

	"kickgym/internal/apperr"
)

// Admit reports whether one more claim fits next to current existing claims.
// A nil limit means the resource is unbounded.
func Admit(current int, limit *int) error {
	if limit == nil {
		return nil
	}
	if current >= *limit {
		return apperr.CapacityExceeded(fmt.Sprintf("capacity of %d reached", *limit))
	}
	return nil
}

// Remaining returns the free places left, or nil for an unbounded resource.
func Remaining(current int, limit *int) *int {
	if limit == nil {
		return nil
	}
	left := *limit - current
	if left < 0 {
		left = 0
	}
	return &left
}
