package execution

import (
	"fmt"

	"github.com/mohitkumar/flowkeeper/flow"
)

// Memento is the restorable state of an execution: everything but the flow
// definitions, the listeners and the conversation scope. It can not be
// driven; Restorer.Rehydrate turns it back into a FlowExecution.
type Memento struct {
	FlowId     string
	Started    bool
	FlashScope flow.Scope
	Sessions   []SessionMemento
}

// SessionMemento is one frame of the stack, root first. The parent of the
// frame at index i is the frame at i-1.
type SessionMemento struct {
	FlowId  string
	StateId string
	Status  Status
	Scope   flow.Scope
}

func (e *FlowExecution) Memento() *Memento {
	m := &Memento{
		FlowId:     e.flow.Id,
		Started:    e.started,
		FlashScope: e.flashScope,
		Sessions:   make([]SessionMemento, 0, len(e.sessions)),
	}
	for _, s := range e.sessions {
		m.Sessions = append(m.Sessions, SessionMemento{
			FlowId:  s.flowId,
			StateId: s.stateId,
			Status:  s.status,
			Scope:   s.scope,
		})
	}
	return m
}

// Restorer binds mementos back to their flow definitions and to the
// collaborators that are never persisted.
type Restorer struct {
	resolver flow.Resolver
	factory  *Factory
}

func NewRestorer(resolver flow.Resolver, factory *Factory) *Restorer {
	return &Restorer{
		resolver: resolver,
		factory:  factory,
	}
}

func (r *Restorer) Rehydrate(m *Memento, conversationScope flow.Scope) (*FlowExecution, error) {
	root, err := r.resolver.Resolve(m.FlowId)
	if err != nil {
		return nil, RestorationError{FlowId: m.FlowId, Message: "root flow definition can not be resolved", Cause: err}
	}
	if len(m.Sessions) > 0 && m.Sessions[0].FlowId != m.FlowId {
		return nil, RestorationError{FlowId: m.FlowId, Message: fmt.Sprintf("root session belongs to flow '%s'", m.Sessions[0].FlowId)}
	}
	execution := r.factory.CreateFlowExecution(root)
	execution.started = m.Started || len(m.Sessions) > 0
	if m.FlashScope != nil {
		execution.flashScope = m.FlashScope
	}
	if conversationScope != nil {
		execution.conversationScope = conversationScope
	}
	var parent *FlowSession
	for _, sm := range m.Sessions {
		definition := root
		if sm.FlowId != root.Id {
			definition, err = r.resolver.Resolve(sm.FlowId)
			if err != nil {
				return nil, RestorationError{FlowId: sm.FlowId, Message: "subflow definition can not be resolved", Cause: err}
			}
		}
		if !sm.Status.IsValid() || sm.Status == ENDED {
			return nil, RestorationError{FlowId: sm.FlowId, StateId: sm.StateId, Message: fmt.Sprintf("session has unexpected status %d", sm.Status)}
		}
		session := newFlowSession(definition, parent)
		session.status = sm.Status
		if sm.Scope != nil {
			session.scope = sm.Scope
		}
		if len(sm.StateId) > 0 {
			state, err := definition.GetState(sm.StateId)
			if err != nil {
				return nil, RestorationError{FlowId: sm.FlowId, StateId: sm.StateId, Message: "state no longer exists", Cause: err}
			}
			session.setState(state)
		}
		execution.sessions = append(execution.sessions, session)
		parent = session
	}
	return execution, nil
}
