package flow

import (
	"errors"
	"fmt"
)

var ErrNoMatchingTransition = errors.New("no matching transition")
var ErrNoSuchState = errors.New("no such state")
var ErrNotResumable = errors.New("state is not resumable")

// ExecutionError is raised while a flow is being driven. It carries the flow
// and, when known, the state that was current when the failure happened.
type ExecutionError struct {
	FlowId  string
	StateId string
	Message string
	Cause   error
}

func NewExecutionError(flowId string, stateId string, message string, cause error) *ExecutionError {
	return &ExecutionError{
		FlowId:  flowId,
		StateId: stateId,
		Message: message,
		Cause:   cause,
	}
}

func (e *ExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Cause.Error())
	}
	return e.Message
}

func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

func (e *ExecutionError) RootCause() error {
	var root error = e
	for {
		next := errors.Unwrap(root)
		if next == nil {
			return root
		}
		root = next
	}
}

type NoSuchFlowDefinitionError struct {
	FlowId string
}

func (e NoSuchFlowDefinitionError) Error() string {
	return fmt.Sprintf("no flow definition '%s' found", e.FlowId)
}
