package flow

import (
	"errors"
	"strings"
)

// ExceptionHandler is one entry of an ordered (predicate, handler) table
// consulted first on the failing state and then on its flow.
type ExceptionHandler interface {
	CanHandle(err *ExecutionError) bool
	Handle(err *ExecutionError, rc RequestControlContext) error
}

type ExceptionHandlerSet []ExceptionHandler

// Handle offers err to the first handler that claims it. The error returned
// is whatever the handler raised while recovering, not err itself.
func (hs ExceptionHandlerSet) Handle(err *ExecutionError, rc RequestControlContext) (bool, error) {
	for _, h := range hs {
		if h.CanHandle(err) {
			return true, h.Handle(err, rc)
		}
	}
	return false, nil
}

type ErrorMatcher func(err *ExecutionError) bool

func MatchAny() ErrorMatcher {
	return func(err *ExecutionError) bool { return true }
}

func MatchError(target error) ErrorMatcher {
	return func(err *ExecutionError) bool { return errors.Is(err, target) }
}

// MatchMessage claims errors whose root cause message contains text.
func MatchMessage(text string) ErrorMatcher {
	return func(err *ExecutionError) bool {
		return strings.Contains(err.RootCause().Error(), text)
	}
}

const ERROR_MESSAGE_ATTRIBUTE = "errorMessage"
const ERROR_STATE_ATTRIBUTE = "errorState"

var _ ExceptionHandler = new(TransitionExceptionHandler)

// TransitionExceptionHandler recovers by transitioning to another state of the
// active flow, exposing the failure in flash scope.
type TransitionExceptionHandler struct {
	Matcher ErrorMatcher
	To      string
}

func NewTransitionExceptionHandler(matcher ErrorMatcher, to string) *TransitionExceptionHandler {
	return &TransitionExceptionHandler{Matcher: matcher, To: to}
}

func (h *TransitionExceptionHandler) CanHandle(err *ExecutionError) bool {
	return h.Matcher(err)
}

func (h *TransitionExceptionHandler) Handle(err *ExecutionError, rc RequestControlContext) error {
	rc.GetFlashScope().Put(ERROR_MESSAGE_ATTRIBUTE, err.RootCause().Error())
	rc.GetFlashScope().Put(ERROR_STATE_ATTRIBUTE, err.StateId)
	return rc.Execute(&Transition{On: "*", To: h.To})
}

var _ ExceptionHandler = new(FuncExceptionHandler)

type FuncExceptionHandler struct {
	Matcher ErrorMatcher
	Fn      func(err *ExecutionError, rc RequestControlContext) error
}

func (h *FuncExceptionHandler) CanHandle(err *ExecutionError) bool {
	return h.Matcher(err)
}

func (h *FuncExceptionHandler) Handle(err *ExecutionError, rc RequestControlContext) error {
	return h.Fn(err, rc)
}
