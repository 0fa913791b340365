package execution

import (
	"github.com/mohitkumar/flowkeeper/flow"
	"github.com/mohitkumar/flowkeeper/logger"
	"go.uber.org/zap"
)

// Listener observes the lifecycle of flow executions. Implementations should
// embed NoopListener and override what they care about.
type Listener interface {
	RequestSubmitted(rc flow.RequestContext)
	RequestProcessed(rc flow.RequestContext)
	SessionStarting(rc flow.RequestContext, definition *flow.Flow, input flow.Scope)
	SessionStarted(rc flow.RequestContext, session *FlowSession)
	StateEntered(rc flow.RequestContext, previous flow.State, state flow.State)
	Resumed(rc flow.RequestContext)
	Paused(rc flow.RequestContext)
	SessionEnded(rc flow.RequestContext, session *FlowSession, outcome *flow.Event)
	ExceptionThrown(rc flow.RequestContext, err *flow.ExecutionError)
}

var _ Listener = new(NoopListener)

type NoopListener struct{}

func (NoopListener) RequestSubmitted(rc flow.RequestContext) {}
func (NoopListener) RequestProcessed(rc flow.RequestContext) {}
func (NoopListener) SessionStarting(rc flow.RequestContext, definition *flow.Flow, input flow.Scope) {
}
func (NoopListener) SessionStarted(rc flow.RequestContext, session *FlowSession) {}
func (NoopListener) StateEntered(rc flow.RequestContext, previous flow.State, state flow.State) {
}
func (NoopListener) Resumed(rc flow.RequestContext) {}
func (NoopListener) Paused(rc flow.RequestContext)  {}
func (NoopListener) SessionEnded(rc flow.RequestContext, session *FlowSession, outcome *flow.Event) {
}
func (NoopListener) ExceptionThrown(rc flow.RequestContext, err *flow.ExecutionError) {}

// Listeners notifies every listener in order. A panicking listener is logged
// and skipped; it never breaks the request.
type Listeners []Listener

func (ls Listeners) each(callback string, fn func(l Listener)) {
	for _, l := range ls {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("flow execution listener failed", zap.String("callback", callback), zap.Any("panic", r))
				}
			}()
			fn(l)
		}()
	}
}

func (ls Listeners) fireRequestSubmitted(rc flow.RequestContext) {
	ls.each("requestSubmitted", func(l Listener) { l.RequestSubmitted(rc) })
}

func (ls Listeners) fireRequestProcessed(rc flow.RequestContext) {
	ls.each("requestProcessed", func(l Listener) { l.RequestProcessed(rc) })
}

func (ls Listeners) fireSessionStarting(rc flow.RequestContext, definition *flow.Flow, input flow.Scope) {
	ls.each("sessionStarting", func(l Listener) { l.SessionStarting(rc, definition, input) })
}

func (ls Listeners) fireSessionStarted(rc flow.RequestContext, session *FlowSession) {
	ls.each("sessionStarted", func(l Listener) { l.SessionStarted(rc, session) })
}

func (ls Listeners) fireStateEntered(rc flow.RequestContext, previous flow.State, state flow.State) {
	ls.each("stateEntered", func(l Listener) { l.StateEntered(rc, previous, state) })
}

func (ls Listeners) fireResumed(rc flow.RequestContext) {
	ls.each("resumed", func(l Listener) { l.Resumed(rc) })
}

func (ls Listeners) firePaused(rc flow.RequestContext) {
	ls.each("paused", func(l Listener) { l.Paused(rc) })
}

func (ls Listeners) fireSessionEnded(rc flow.RequestContext, session *FlowSession, outcome *flow.Event) {
	ls.each("sessionEnded", func(l Listener) { l.SessionEnded(rc, session, outcome) })
}

func (ls Listeners) fireExceptionThrown(rc flow.RequestContext, err *flow.ExecutionError) {
	ls.each("exceptionThrown", func(l Listener) { l.ExceptionThrown(rc, err) })
}

var _ Listener = new(LoggingListener)

// LoggingListener writes every lifecycle callback to the debug log.
type LoggingListener struct {
	NoopListener
}

func (LoggingListener) RequestSubmitted(rc flow.RequestContext) {
	logger.Debug("request submitted", zap.String("flow", rc.GetRootFlowId()))
}

func (LoggingListener) RequestProcessed(rc flow.RequestContext) {
	logger.Debug("request processed", zap.String("flow", rc.GetRootFlowId()), zap.Bool("active", rc.IsActive()))
}

func (LoggingListener) SessionStarting(rc flow.RequestContext, definition *flow.Flow, input flow.Scope) {
	logger.Debug("session starting", zap.String("flow", definition.Id), zap.Any("input", input))
}

func (LoggingListener) SessionStarted(rc flow.RequestContext, session *FlowSession) {
	logger.Debug("session started", zap.String("flow", session.GetFlowId()))
}

func (LoggingListener) StateEntered(rc flow.RequestContext, previous flow.State, state flow.State) {
	from := ""
	if previous != nil {
		from = previous.GetId()
	}
	logger.Debug("state entered", zap.String("flow", rc.GetActiveFlow().Id), zap.String("from", from), zap.String("state", state.GetId()))
}

func (LoggingListener) Resumed(rc flow.RequestContext) {
	logger.Debug("execution resumed", zap.String("flow", rc.GetRootFlowId()))
}

func (LoggingListener) Paused(rc flow.RequestContext) {
	logger.Debug("execution paused", zap.String("flow", rc.GetRootFlowId()))
}

func (LoggingListener) SessionEnded(rc flow.RequestContext, session *FlowSession, outcome *flow.Event) {
	logger.Debug("session ended", zap.String("flow", session.GetFlowId()), zap.String("outcome", outcome.Id))
}

func (LoggingListener) ExceptionThrown(rc flow.RequestContext, err *flow.ExecutionError) {
	logger.Info("exception thrown", zap.String("flow", err.FlowId), zap.String("state", err.StateId), zap.Error(err))
}
