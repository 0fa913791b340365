package rest

import (
	"context"
	"errors"
	"net/http"

	"github.com/mohitkumar/flowkeeper/continuation"
	"github.com/mohitkumar/flowkeeper/execution"
	"github.com/mohitkumar/flowkeeper/flow"
	"github.com/mohitkumar/flowkeeper/persistence"
	"github.com/mohitkumar/flowkeeper/repository"
)

// statusFor maps engine failures onto http status codes.
func statusFor(err error) int {
	var (
		noSuchExecution  repository.NoSuchFlowExecutionError
		noSuchDefinition flow.NoSuchFlowDefinitionError
		notFound         persistence.NotFoundError
		badKey           execution.KeyFormatError
		unmarshal        continuation.UnmarshalError
		executionErr     *flow.ExecutionError
	)
	switch {
	case errors.As(err, &noSuchExecution), errors.As(err, &noSuchDefinition), errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &badKey):
		return http.StatusBadRequest
	case errors.As(err, &unmarshal):
		if unmarshal.Kind == continuation.UNRESOLVED_TYPE {
			return http.StatusInternalServerError
		}
		return http.StatusBadRequest
	case errors.Is(err, execution.ErrIllegalState):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.As(err, &executionErr):
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}
