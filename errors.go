package florascan

import (
	"errors"
	"fmt"
)

// ErrEmptyImage is returned when IdentifyPlant is called with no image bytes.
// Upstream validation should have rejected the upload already; this is the
// last line of defense, never retried.
var ErrEmptyImage = errors.New("florascan: empty image")

// UnavailableError is returned when both providers were absent (errored,
// timed out, or breaker-open) and nothing was cached. Callers should treat
// it as retry-able service unavailability, never as "no match found".
type UnavailableError struct {
	PrimaryErr   error
	SecondaryErr error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("florascan: identification unavailable: primary=%v; secondary=%v",
		e.PrimaryErr, e.SecondaryErr)
}

func (e *UnavailableError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.PrimaryErr != nil {
		errs = append(errs, e.PrimaryErr)
	}
	if e.SecondaryErr != nil {
		errs = append(errs, e.SecondaryErr)
	}
	return errs
}

// IsUnavailable reports whether err represents a both-providers-absent outcome.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}
