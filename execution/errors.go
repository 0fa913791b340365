package execution

import (
	"errors"
	"fmt"
)

// ErrIllegalState marks programmer misuse of an execution. It is never
// offered to exception handlers and is not worth retrying.
var ErrIllegalState = errors.New("illegal state")

var ErrAlreadyStarted = fmt.Errorf("%w: this flow execution has already been started; start can not be called more than once", ErrIllegalState)
var ErrNotStarted = fmt.Errorf("%w: this flow execution cannot be resumed; it has not been started", ErrIllegalState)
var ErrEnded = fmt.Errorf("%w: this flow execution cannot be resumed; it has ended", ErrIllegalState)
var ErrNoActiveSession = fmt.Errorf("%w: no active flow session; this flow execution is not active", ErrIllegalState)

type StatusTransitionError struct {
	FlowId string
	From   Status
	To     Status
}

func (e StatusTransitionError) Error() string {
	return fmt.Sprintf("flow session of '%s' can not go from %s to %s", e.FlowId, e.From, e.To)
}

func (e StatusTransitionError) Unwrap() error {
	return ErrIllegalState
}

// RestorationError is returned when a memento can not be bound back to the
// flow definitions it references.
type RestorationError struct {
	FlowId  string
	StateId string
	Message string
	Cause   error
}

func (e RestorationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("unable to restore flow execution of '%s': %s: %s", e.FlowId, e.Message, e.Cause.Error())
	}
	return fmt.Sprintf("unable to restore flow execution of '%s': %s", e.FlowId, e.Message)
}

func (e RestorationError) Unwrap() error {
	return e.Cause
}
