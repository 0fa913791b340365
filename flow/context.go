package flow

// RequestContext is what actions and listeners see of the request being
// processed by a flow execution.
type RequestContext interface {
	GetRootFlowId() string
	GetActiveFlow() *Flow
	GetCurrentState() State
	GetFlowScope() Scope
	GetFlashScope() Scope
	GetConversationScope() Scope
	GetRequestScope() Scope
	GetExternalContext() *ExternalContext
	GetLastEvent() *Event
	IsActive() bool
}

// RequestControlContext is the privileged view used by states to drive the
// execution forward.
type RequestControlContext interface {
	RequestContext
	SetCurrentState(state State)
	Start(flow *Flow, input Scope) error
	SignalEvent(event *Event) error
	Execute(transition *Transition) error
	EndActiveFlowSession(outcome *Event) error
	RequestRedirect(redirect *Redirect)
}
