package trial

import (
	"errors"
	"fmt"
)

// ErrStopped is returned by Run when stop-on-first ended the run early. It
// marks a normal completion, not a failure.
var ErrStopped = errors.New("stopped at first difference")

// FaultError is a panic recovered from one of a trial's parallel executions.
// It is fatal to the run.
type FaultError struct {
	Trial int
	Side  Side
	Value any
	Stack []byte
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("trial %d: fault while running side %s: %v", e.Trial, e.Side, e.Value)
}
