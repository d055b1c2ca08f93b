package document

import (
	"errors"
	"fmt"
)

// ErrRangeInvalid is returned for ranges that are stale or out of bounds.
var ErrRangeInvalid = errors.New("range invalid")

// RangeError describes why a range was rejected.
type RangeError struct {
	Range    Range
	Revision uint64 // Document revision at the time of the call
	Reason   string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("range [%d,%d) at revision %d: %s (document revision %d)",
		e.Range.Start, e.Range.End, e.Range.rev, e.Reason, e.Revision)
}

func (e *RangeError) Unwrap() error {
	return ErrRangeInvalid
}
