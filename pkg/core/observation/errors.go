package observation

import (
	"errors"
	"fmt"
)

// ErrInvalidObservation is matched by every InvalidObservationError
var ErrInvalidObservation = errors.New("invalid observation")

// InvalidObservationError reports why an observation could not be added
type InvalidObservationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *InvalidObservationError) Error() string {
	return fmt.Sprintf("invalid observation: %s=%v: %s", e.Field, e.Value, e.Reason)
}

func (e *InvalidObservationError) Is(target error) bool {
	return target == ErrInvalidObservation
}
