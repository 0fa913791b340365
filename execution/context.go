package execution

import (
	"github.com/mohitkumar/flowkeeper/flow"
)

var _ flow.RequestControlContext = new(requestControlContext)

// requestControlContext lives for exactly one Start or Resume call.
type requestControlContext struct {
	execution       *FlowExecution
	externalContext *flow.ExternalContext
	requestScope    flow.Scope
	lastEvent       *flow.Event
	redirect        *flow.Redirect
}

func newRequestControlContext(execution *FlowExecution, ext *flow.ExternalContext) *requestControlContext {
	if ext == nil {
		ext = flow.NewExternalContext("", nil)
	}
	requestScope := flow.NewScope()
	requestScope.PutAll(ext.Parameters)
	return &requestControlContext{
		execution:       execution,
		externalContext: ext,
		requestScope:    requestScope,
	}
}

func (c *requestControlContext) GetRootFlowId() string {
	return c.execution.flow.Id
}

func (c *requestControlContext) GetActiveFlow() *flow.Flow {
	session := c.execution.activeSession()
	if session == nil {
		return nil
	}
	return session.flow
}

func (c *requestControlContext) GetCurrentState() flow.State {
	session := c.execution.activeSession()
	if session == nil {
		return nil
	}
	return session.state
}

func (c *requestControlContext) GetFlowScope() flow.Scope {
	session := c.execution.activeSession()
	if session == nil {
		return flow.NewScope()
	}
	return session.scope
}

func (c *requestControlContext) GetFlashScope() flow.Scope {
	return c.execution.flashScope
}

func (c *requestControlContext) GetConversationScope() flow.Scope {
	return c.execution.conversationScope
}

func (c *requestControlContext) GetRequestScope() flow.Scope {
	return c.requestScope
}

func (c *requestControlContext) GetExternalContext() *flow.ExternalContext {
	return c.externalContext
}

func (c *requestControlContext) GetLastEvent() *flow.Event {
	return c.lastEvent
}

func (c *requestControlContext) IsActive() bool {
	return c.execution.IsActive()
}

func (c *requestControlContext) SetCurrentState(state flow.State) {
	session := c.execution.activeSession()
	if session == nil {
		return
	}
	previous := session.state
	session.setState(state)
	c.execution.listeners.fireStateEntered(c, previous, state)
}

// Start spawns a new session for definition on top of the stack and drives
// it to its first pause point or end state.
func (c *requestControlContext) Start(definition *flow.Flow, input flow.Scope) error {
	session, err := c.execution.activateSession(definition)
	if err != nil {
		return err
	}
	c.execution.listeners.fireSessionStarting(c, definition, input)
	if err := session.setStatus(ACTIVE); err != nil {
		return err
	}
	c.execution.listeners.fireSessionStarted(c, session)
	return definition.Start(c, input)
}

func (c *requestControlContext) SignalEvent(event *flow.Event) error {
	c.lastEvent = event
	active := c.GetActiveFlow()
	if active == nil {
		return ErrNoActiveSession
	}
	return active.HandleEvent(c, event)
}

func (c *requestControlContext) Execute(transition *flow.Transition) error {
	active := c.GetActiveFlow()
	if active == nil {
		return ErrNoActiveSession
	}
	target, err := active.GetState(transition.To)
	if err != nil {
		return err
	}
	return target.Enter(c)
}

func (c *requestControlContext) EndActiveFlowSession(outcome *flow.Event) error {
	if outcome == nil {
		outcome = flow.NewEvent("", nil)
	}
	session, err := c.execution.endActiveSession()
	if err != nil {
		return err
	}
	if !c.execution.IsActive() {
		c.execution.outcome = outcome
	}
	c.execution.listeners.fireSessionEnded(c, session, outcome)
	return nil
}

func (c *requestControlContext) RequestRedirect(redirect *flow.Redirect) {
	c.redirect = redirect
}
