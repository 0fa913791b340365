package executor

import (
	"context"

	"github.com/mohitkumar/flowkeeper/execution"
	"github.com/mohitkumar/flowkeeper/flow"
	"github.com/mohitkumar/flowkeeper/logger"
	"github.com/mohitkumar/flowkeeper/repository"
	"go.uber.org/zap"
)

// Result is what a caller needs after one request: where the execution can
// be found next, or how it ended.
type Result struct {
	FlowId    string
	Key       string
	Active    bool
	Execution *execution.FlowExecution
	Outcome   *flow.Event
	Redirect  *flow.Redirect
}

// FlowExecutor launches and resumes executions, persisting them between
// requests. Every read-modify-write of a stored execution happens under the
// lock of its conversation.
type FlowExecutor struct {
	resolver   flow.Resolver
	factory    *execution.Factory
	repository repository.Repository
}

func NewFlowExecutor(resolver flow.Resolver, factory *execution.Factory, repo repository.Repository) *FlowExecutor {
	return &FlowExecutor{
		resolver:   resolver,
		factory:    factory,
		repository: repo,
	}
}

func (fe *FlowExecutor) Launch(ctx context.Context, flowId string, input map[string]any, ext *flow.ExternalContext) (*Result, error) {
	definition, err := fe.resolver.Resolve(flowId)
	if err != nil {
		return nil, err
	}
	e := fe.factory.CreateFlowExecution(definition)
	if ext == nil {
		ext = flow.NewExternalContext("", nil)
	}
	if err := e.Start(flow.Scope(input), ext); err != nil {
		logger.Error("error in launching flow", zap.String("flow", flowId), zap.Error(err))
		return nil, err
	}
	if !e.IsActive() {
		return newResult(e, ""), nil
	}
	key, err := fe.repository.GenerateKey(e)
	if err != nil {
		return nil, err
	}
	lock, err := fe.repository.GetLock(key)
	if err != nil {
		return nil, err
	}
	if err := lock.Lock(ctx); err != nil {
		return nil, err
	}
	defer lock.Unlock()
	if err := fe.repository.PutFlowExecution(key, e); err != nil {
		return nil, err
	}
	logger.Info("flow launched", zap.String("flow", flowId), zap.String("key", key.String()))
	return newResult(e, key.String()), nil
}

func (fe *FlowExecutor) Resume(ctx context.Context, encodedKey string, ext *flow.ExternalContext) (*Result, error) {
	key, err := fe.repository.ParseFlowExecutionKey(encodedKey)
	if err != nil {
		return nil, err
	}
	lock, err := fe.repository.GetLock(key)
	if err != nil {
		return nil, err
	}
	if err := lock.Lock(ctx); err != nil {
		return nil, err
	}
	defer lock.Unlock()
	e, err := fe.repository.GetFlowExecution(key)
	if err != nil {
		return nil, err
	}
	if ext == nil {
		ext = flow.NewExternalContext("", nil)
	}
	if err := e.Resume(ext); err != nil {
		logger.Error("error in resuming flow", zap.String("flow", e.GetFlowId()), zap.String("key", encodedKey), zap.Error(err))
		return nil, err
	}
	if !e.IsActive() {
		if err := fe.repository.RemoveFlowExecution(key); err != nil {
			return nil, err
		}
		logger.Info("flow ended", zap.String("flow", e.GetFlowId()), zap.String("key", encodedKey))
		return newResult(e, ""), nil
	}
	next, err := fe.repository.GetNextKey(e, key)
	if err != nil {
		return nil, err
	}
	if err := fe.repository.PutFlowExecution(next, e); err != nil {
		return nil, err
	}
	return newResult(e, next.String()), nil
}

// Inspect loads the execution stored under encodedKey without changing it.
func (fe *FlowExecutor) Inspect(ctx context.Context, encodedKey string) (*Result, error) {
	key, err := fe.repository.ParseFlowExecutionKey(encodedKey)
	if err != nil {
		return nil, err
	}
	lock, err := fe.repository.GetLock(key)
	if err != nil {
		return nil, err
	}
	if err := lock.Lock(ctx); err != nil {
		return nil, err
	}
	defer lock.Unlock()
	e, err := fe.repository.GetFlowExecution(key)
	if err != nil {
		return nil, err
	}
	return newResult(e, encodedKey), nil
}

func newResult(e *execution.FlowExecution, key string) *Result {
	return &Result{
		FlowId:    e.GetFlowId(),
		Key:       key,
		Active:    e.IsActive(),
		Execution: e,
		Outcome:   e.GetOutcome(),
		Redirect:  e.GetRedirect(),
	}
}
