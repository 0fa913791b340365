package execution

import (
	"github.com/mohitkumar/flowkeeper/flow"
)

type Status int

const (
	CREATED Status = iota
	STARTING
	ACTIVE
	PAUSED
	SUSPENDED
	ENDED
)

var statusNames = map[Status]string{
	CREATED:   "CREATED",
	STARTING:  "STARTING",
	ACTIVE:    "ACTIVE",
	PAUSED:    "PAUSED",
	SUSPENDED: "SUSPENDED",
	ENDED:     "ENDED",
}

var legalTransitions = map[Status][]Status{
	CREATED:   {STARTING, ENDED},
	STARTING:  {ACTIVE, ENDED},
	ACTIVE:    {PAUSED, SUSPENDED, ENDED},
	PAUSED:    {ACTIVE, ENDED},
	SUSPENDED: {ACTIVE, ENDED},
	ENDED:     {},
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

func (s Status) IsValid() bool {
	_, ok := statusNames[s]
	return ok
}

func (s Status) CanTransitionTo(to Status) bool {
	for _, allowed := range legalTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// FlowSession is one activation of a flow definition, a frame of the
// execution's session stack.
type FlowSession struct {
	flow    *flow.Flow
	state   flow.State
	flowId  string
	stateId string
	status  Status
	scope   flow.Scope
	parent  *FlowSession
}

func newFlowSession(definition *flow.Flow, parent *FlowSession) *FlowSession {
	return &FlowSession{
		flow:   definition,
		flowId: definition.Id,
		status: CREATED,
		scope:  flow.NewScope(),
		parent: parent,
	}
}

func (s *FlowSession) GetFlowId() string {
	return s.flowId
}

func (s *FlowSession) GetDefinition() *flow.Flow {
	return s.flow
}

func (s *FlowSession) GetStateId() string {
	return s.stateId
}

func (s *FlowSession) GetState() flow.State {
	return s.state
}

func (s *FlowSession) GetStatus() Status {
	return s.status
}

func (s *FlowSession) GetScope() flow.Scope {
	return s.scope
}

func (s *FlowSession) GetParent() *FlowSession {
	return s.parent
}

func (s *FlowSession) IsRoot() bool {
	return s.parent == nil
}

func (s *FlowSession) setState(state flow.State) {
	s.state = state
	s.stateId = state.GetId()
}

func (s *FlowSession) setStatus(to Status) error {
	if !s.status.CanTransitionTo(to) {
		return StatusTransitionError{FlowId: s.flowId, From: s.status, To: to}
	}
	s.status = to
	return nil
}
