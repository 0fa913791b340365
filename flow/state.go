package flow

import (
	"fmt"

	"github.com/mohitkumar/flowkeeper/util"
)

type State interface {
	GetId() string
	Enter(rc RequestControlContext) error
	HandleException(err *ExecutionError, rc RequestControlContext) (bool, error)
}

type TransitionableState interface {
	State
	GetTransition(eventId string) *Transition
}

// ResumableState is a pause point: control returns to the caller after the
// state is entered and the next request resumes it.
type ResumableState interface {
	State
	Resume(rc RequestControlContext) error
}

// SubflowParent is implemented by states that spawn a child session and get
// control back when it ends.
type SubflowParent interface {
	State
	OnSubflowEnded(rc RequestControlContext, outcome *Event) error
}

type Transition struct {
	On string
	To string
}

func (t *Transition) Matches(eventId string) bool {
	return t.On == "*" || t.On == eventId
}

type StateBase struct {
	Id                string
	Transitions       []*Transition
	ExceptionHandlers ExceptionHandlerSet
}

func (s *StateBase) GetId() string {
	return s.Id
}

func (s *StateBase) GetTransition(eventId string) *Transition {
	var wildcard *Transition
	for _, t := range s.Transitions {
		if t.On == eventId {
			return t
		}
		if t.On == "*" && wildcard == nil {
			wildcard = t
		}
	}
	return wildcard
}

func (s *StateBase) HandleException(err *ExecutionError, rc RequestControlContext) (bool, error) {
	return s.ExceptionHandlers.Handle(err, rc)
}

var _ TransitionableState = new(ActionState)

// ActionState runs its actions in order until one of them returns an event
// with a matching transition.
type ActionState struct {
	StateBase
	Actions []Action
}

func NewActionState(id string, actions []Action, transitions ...*Transition) *ActionState {
	return &ActionState{
		StateBase: StateBase{Id: id, Transitions: transitions},
		Actions:   actions,
	}
}

func (s *ActionState) Enter(rc RequestControlContext) error {
	rc.SetCurrentState(s)
	var lastEvent string
	for _, action := range s.Actions {
		event, err := action.Execute(rc)
		if err != nil {
			return err
		}
		lastEvent = event
		if s.GetTransition(event) != nil {
			return rc.SignalEvent(NewEvent(event, nil))
		}
	}
	return NewExecutionError(rc.GetActiveFlow().Id, s.Id,
		fmt.Sprintf("no transition for event '%s' in action state '%s'", lastEvent, s.Id), ErrNoMatchingTransition)
}

var _ ResumableState = new(ViewState)
var _ TransitionableState = new(ViewState)

// ViewState pauses the execution until the caller resumes it with an event.
type ViewState struct {
	StateBase
	View string
}

func NewViewState(id string, view string, transitions ...*Transition) *ViewState {
	return &ViewState{
		StateBase: StateBase{Id: id, Transitions: transitions},
		View:      view,
	}
}

func (s *ViewState) Enter(rc RequestControlContext) error {
	rc.SetCurrentState(s)
	rc.RequestRedirect(&Redirect{Type: FLOW_EXECUTION_REDIRECT, View: s.View})
	return nil
}

func (s *ViewState) Resume(rc RequestControlContext) error {
	ext := rc.GetExternalContext()
	if ext == nil || len(ext.EventId) == 0 {
		return NewExecutionError(rc.GetActiveFlow().Id, s.Id,
			fmt.Sprintf("no event signalled to resume view state '%s'", s.Id), ErrNoMatchingTransition)
	}
	return rc.SignalEvent(NewEvent(ext.EventId, ext.Parameters))
}

var _ SubflowParent = new(SubflowState)
var _ TransitionableState = new(SubflowState)

// SubflowState spawns a child session of SubflowId. When the child ends, the
// id of its end state is signalled as an event here and its output lands in
// flow scope under the id of this state.
type SubflowState struct {
	StateBase
	SubflowId string
	Input     map[string]any
	Resolver  Resolver
}

func NewSubflowState(id string, subflowId string, resolver Resolver, input map[string]any, transitions ...*Transition) *SubflowState {
	return &SubflowState{
		StateBase: StateBase{Id: id, Transitions: transitions},
		SubflowId: subflowId,
		Input:     input,
		Resolver:  resolver,
	}
}

func (s *SubflowState) Enter(rc RequestControlContext) error {
	rc.SetCurrentState(s)
	subflow, err := s.Resolver.Resolve(s.SubflowId)
	if err != nil {
		return NewExecutionError(rc.GetActiveFlow().Id, s.Id, fmt.Sprintf("unable to resolve subflow '%s'", s.SubflowId), err)
	}
	input := NewScope()
	input.PutAll(util.ResolveParams(ScopeData(rc), s.Input))
	return rc.Start(subflow, input)
}

func (s *SubflowState) OnSubflowEnded(rc RequestControlContext, outcome *Event) error {
	if len(outcome.Attributes) > 0 {
		rc.GetFlowScope().Put(s.Id, map[string]any(outcome.Attributes.Copy()))
	}
	return rc.SignalEvent(outcome)
}

// EndState ends the active session. Ending the root session ends the
// execution; ending a subflow session hands control back to the parent.
type EndState struct {
	StateBase
	Output   map[string]any
	Redirect *Redirect
}

func NewEndState(id string, output map[string]any, redirect *Redirect) *EndState {
	return &EndState{
		StateBase: StateBase{Id: id},
		Output:    output,
		Redirect:  redirect,
	}
}

func (s *EndState) Enter(rc RequestControlContext) error {
	rc.SetCurrentState(s)
	data := ScopeData(rc)
	outcome := NewEvent(s.Id, util.ResolveParams(data, s.Output))
	var redirect *Redirect
	if s.Redirect != nil {
		redirect = &Redirect{
			Type:   s.Redirect.Type,
			FlowId: s.Redirect.FlowId,
			Url:    s.Redirect.Url,
			Input:  util.ResolveParams(data, s.Redirect.Input),
		}
	}
	ending := rc.GetActiveFlow().Id
	if err := rc.EndActiveFlowSession(outcome); err != nil {
		return err
	}
	if !rc.IsActive() {
		if redirect != nil {
			rc.RequestRedirect(redirect)
		}
		return nil
	}
	parent, ok := rc.GetCurrentState().(SubflowParent)
	if !ok {
		return NewExecutionError(rc.GetActiveFlow().Id, rc.GetCurrentState().GetId(),
			fmt.Sprintf("state '%s' can not resume after subflow '%s' ended", rc.GetCurrentState().GetId(), ending), ErrNotResumable)
	}
	return parent.OnSubflowEnded(rc, outcome)
}
