package execution

import (
	"errors"
	"fmt"

	"github.com/mohitkumar/flowkeeper/flow"
	"github.com/mohitkumar/flowkeeper/logger"
	"go.uber.org/zap"
)

// FlowExecution is a stack of flow sessions driven one request at a time.
// The stack is empty exactly when the execution is not started or has ended.
// It is not safe for concurrent use; callers serialize access through the
// conversation lock handed out by the repository.
type FlowExecution struct {
	flow              *flow.Flow
	sessions          []*FlowSession
	started           bool
	flashScope        flow.Scope
	conversationScope flow.Scope
	attributes        flow.Scope
	listeners         Listeners
	key               *Key
	outcome           *flow.Event
	redirect          *flow.Redirect
}

func newFlowExecution(definition *flow.Flow, listeners Listeners, attributes flow.Scope) *FlowExecution {
	if attributes == nil {
		attributes = flow.NewScope()
	}
	return &FlowExecution{
		flow:              definition,
		flashScope:        flow.NewScope(),
		conversationScope: flow.NewScope(),
		attributes:        attributes,
		listeners:         listeners,
	}
}

func (e *FlowExecution) GetDefinition() *flow.Flow {
	return e.flow
}

func (e *FlowExecution) GetFlowId() string {
	return e.flow.Id
}

func (e *FlowExecution) HasStarted() bool {
	return e.started
}

func (e *FlowExecution) IsActive() bool {
	return len(e.sessions) > 0
}

func (e *FlowExecution) HasEnded() bool {
	return e.started && !e.IsActive()
}

func (e *FlowExecution) GetActiveSession() (*FlowSession, error) {
	session := e.activeSession()
	if session == nil {
		return nil, ErrNoActiveSession
	}
	return session, nil
}

// GetSessions returns the session stack, root first.
func (e *FlowExecution) GetSessions() []*FlowSession {
	sessions := make([]*FlowSession, len(e.sessions))
	copy(sessions, e.sessions)
	return sessions
}

func (e *FlowExecution) GetFlashScope() flow.Scope {
	return e.flashScope
}

func (e *FlowExecution) GetConversationScope() flow.Scope {
	return e.conversationScope
}

func (e *FlowExecution) GetAttributes() flow.Scope {
	return e.attributes
}

func (e *FlowExecution) GetKey() *Key {
	return e.key
}

func (e *FlowExecution) AssignKey(key Key) {
	e.key = &key
}

// GetOutcome is the end state event of the root session, nil while active.
func (e *FlowExecution) GetOutcome() *flow.Event {
	return e.outcome
}

// GetRedirect is what the last request asked the caller to do next.
func (e *FlowExecution) GetRedirect() *flow.Redirect {
	return e.redirect
}

func (e *FlowExecution) Start(input flow.Scope, ext *flow.ExternalContext) error {
	if e.started {
		return ErrAlreadyStarted
	}
	logger.Debug("starting flow execution", zap.String("flow", e.flow.Id))
	e.started = true
	rc := newRequestControlContext(e, ext)
	e.listeners.fireRequestSubmitted(rc)
	err := rc.Start(e.flow, input)
	if err != nil {
		err = e.handleException(e.wrap(err, rc), rc)
	}
	e.finishRequest(rc)
	return err
}

func (e *FlowExecution) Resume(ext *flow.ExternalContext) error {
	if !e.IsActive() {
		if e.started {
			return ErrEnded
		}
		return ErrNotStarted
	}
	logger.Debug("resuming flow execution", zap.String("flow", e.flow.Id))
	e.flashScope.Clear()
	rc := newRequestControlContext(e, ext)
	e.listeners.fireRequestSubmitted(rc)
	session := e.activeSession()
	var err error
	if session.status != ACTIVE {
		err = session.setStatus(ACTIVE)
	}
	if err == nil {
		e.listeners.fireResumed(rc)
		err = session.flow.Resume(rc)
	}
	if err != nil {
		err = e.handleException(e.wrap(err, rc), rc)
	}
	e.finishRequest(rc)
	return err
}

func (e *FlowExecution) finishRequest(rc *requestControlContext) {
	e.redirect = rc.redirect
	if e.IsActive() {
		session := e.activeSession()
		if session.status == ACTIVE {
			_ = session.setStatus(PAUSED)
		}
		e.listeners.firePaused(rc)
	}
	e.listeners.fireRequestProcessed(rc)
}

func (e *FlowExecution) activeSession() *FlowSession {
	if len(e.sessions) == 0 {
		return nil
	}
	return e.sessions[len(e.sessions)-1]
}

// activateSession pushes a new session for definition. The previous top, if
// any, is suspended and becomes the parent.
func (e *FlowExecution) activateSession(definition *flow.Flow) (*FlowSession, error) {
	parent := e.activeSession()
	if parent != nil {
		if err := parent.setStatus(SUSPENDED); err != nil {
			return nil, err
		}
	}
	session := newFlowSession(definition, parent)
	e.sessions = append(e.sessions, session)
	if err := session.setStatus(STARTING); err != nil {
		return nil, err
	}
	logger.Debug("starting flow session", zap.String("flow", definition.Id), zap.Int("depth", len(e.sessions)))
	return session, nil
}

// endActiveSession pops the top session. The parent, if any, becomes active
// again; otherwise the execution is over.
func (e *FlowExecution) endActiveSession() (*FlowSession, error) {
	ending := e.activeSession()
	if ending == nil {
		return nil, ErrNoActiveSession
	}
	e.sessions = e.sessions[:len(e.sessions)-1]
	if err := ending.setStatus(ENDED); err != nil {
		return nil, err
	}
	if parent := e.activeSession(); parent != nil {
		logger.Debug("resuming parent flow session", zap.String("flow", parent.flowId), zap.String("state", parent.stateId))
		if err := parent.setStatus(ACTIVE); err != nil {
			return nil, err
		}
	} else {
		logger.Debug("flow execution ended", zap.String("flow", e.flow.Id))
	}
	return ending, nil
}

// handleException offers err to the handlers of the state it was raised in,
// then to the handlers of the active flow. A failure raised by a handler goes
// through the same two tiers again. Unclaimed errors are returned as is.
func (e *FlowExecution) handleException(err *flow.ExecutionError, rc *requestControlContext) error {
	logger.Debug("handling flow execution exception", zap.String("flow", err.FlowId), zap.String("state", err.StateId), zap.Error(err))
	e.listeners.fireExceptionThrown(rc, err)
	handled, handlerErr := e.tryStateHandlers(err, rc)
	if handlerErr == nil && !handled {
		handled, handlerErr = e.tryFlowHandlers(err, rc)
	}
	if handlerErr != nil {
		return e.handleException(e.wrap(handlerErr, rc), rc)
	}
	if handled {
		return nil
	}
	return err
}

func (e *FlowExecution) tryStateHandlers(err *flow.ExecutionError, rc *requestControlContext) (bool, error) {
	session := e.activeSession()
	if len(err.StateId) == 0 || session == nil || session.flowId != err.FlowId {
		return false, nil
	}
	state, lookupErr := session.flow.GetState(err.StateId)
	if lookupErr != nil {
		return false, nil
	}
	return state.HandleException(err, rc)
}

func (e *FlowExecution) tryFlowHandlers(err *flow.ExecutionError, rc *requestControlContext) (bool, error) {
	session := e.activeSession()
	if session == nil {
		return false, nil
	}
	return session.flow.HandleException(err, rc)
}

func (e *FlowExecution) wrap(err error, rc *requestControlContext) *flow.ExecutionError {
	var execErr *flow.ExecutionError
	if errors.As(err, &execErr) {
		return execErr
	}
	session := e.activeSession()
	if session == nil {
		return flow.NewExecutionError(e.flow.Id, "", fmt.Sprintf("Exception thrown within inactive flow '%s'", e.flow.Id), err)
	}
	return flow.NewExecutionError(session.flowId, session.stateId,
		fmt.Sprintf("Exception thrown in state '%s' of flow '%s'", session.stateId, session.flowId), err)
}
