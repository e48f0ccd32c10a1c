package quota

import (
	"errors"
	"fmt"
)

var ErrQuotaExceeded = errors.New("daily quota exceeded")

// ExceededError describes a rejected batch. Nothing was consumed.
type ExceededError struct {
	Identity  string
	Limit     int
	Used      int
	Requested int
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("quota exceeded for %s: %d used + %d requested > %d", e.Identity, e.Used, e.Requested, e.Limit)
}

func (e *ExceededError) Unwrap() error { return ErrQuotaExceeded }
