package repository

import (
	"context"
	"fmt"

	"github.com/mohitkumar/flowkeeper/execution"
)

// Lock guards the read-modify-write cycle of one conversation. Callers take
// it before GetFlowExecution and release it after PutFlowExecution.
type Lock interface {
	Lock(ctx context.Context) error
	Unlock()
}

// Repository stores paused flow executions between requests.
type Repository interface {
	// GenerateKey begins a new conversation for an execution that has none.
	GenerateKey(e *execution.FlowExecution) (execution.Key, error)
	// GetNextKey returns the key the execution is stored under after a
	// request that was submitted with previous.
	GetNextKey(e *execution.FlowExecution, previous execution.Key) (execution.Key, error)
	GetLock(key execution.Key) (Lock, error)
	GetFlowExecution(key execution.Key) (*execution.FlowExecution, error)
	PutFlowExecution(key execution.Key, e *execution.FlowExecution) error
	RemoveFlowExecution(key execution.Key) error
	ParseFlowExecutionKey(encoded string) (execution.Key, error)
}

type Config struct {
	// MaxContinuations bounds the continuations kept per conversation by the
	// server side strategy. UNBOUNDED keeps all of them.
	MaxContinuations int
	// AlwaysGenerateNewNextKey mints a new continuation id on every request.
	// When false the first key identifies the execution for its whole life.
	AlwaysGenerateNewNextKey bool
	Compress                 bool
}

func DefaultConfig() Config {
	return Config{
		MaxContinuations:         30,
		AlwaysGenerateNewNextKey: true,
	}
}

// NoSuchFlowExecutionError is returned for keys whose snapshot is no longer
// available. An evicted continuation and a key that never existed look the
// same.
type NoSuchFlowExecutionError struct {
	Key   string
	Cause error
}

func (e NoSuchFlowExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("no flow execution could be found with key '%s'; perhaps it has ended or expired: %v", e.Key, e.Cause)
	}
	return fmt.Sprintf("no flow execution could be found with key '%s'; perhaps it has ended or expired", e.Key)
}

func (e NoSuchFlowExecutionError) Unwrap() error {
	return e.Cause
}
