package flow

import (
	"fmt"
	"sync"
)

type Flow struct {
	Id                string
	Caption           string
	Description       string
	StartStateId      string
	ExceptionHandlers ExceptionHandlerSet
	states            map[string]State
	stateIds          []string
}

func NewFlow(id string) *Flow {
	return &Flow{
		Id:     id,
		states: make(map[string]State),
	}
}

// AddState registers a state. The first state added is the start state unless
// StartStateId is set explicitly.
func (f *Flow) AddState(state State) error {
	if _, ok := f.states[state.GetId()]; ok {
		return fmt.Errorf("state '%s' already defined in flow '%s'", state.GetId(), f.Id)
	}
	f.states[state.GetId()] = state
	f.stateIds = append(f.stateIds, state.GetId())
	if len(f.StartStateId) == 0 {
		f.StartStateId = state.GetId()
	}
	return nil
}

func (f *Flow) GetState(stateId string) (State, error) {
	state, ok := f.states[stateId]
	if !ok {
		return nil, NewExecutionError(f.Id, stateId, fmt.Sprintf("no state '%s' in flow '%s'", stateId, f.Id), ErrNoSuchState)
	}
	return state, nil
}

func (f *Flow) GetStateIds() []string {
	return f.stateIds
}

func (f *Flow) GetStartState() (State, error) {
	return f.GetState(f.StartStateId)
}

// Start copies the input into the new session's flow scope and enters the
// start state.
func (f *Flow) Start(rc RequestControlContext, input Scope) error {
	rc.GetFlowScope().PutAll(input)
	state, err := f.GetStartState()
	if err != nil {
		return err
	}
	return state.Enter(rc)
}

// Resume continues a paused session from its current state.
func (f *Flow) Resume(rc RequestControlContext) error {
	state := rc.GetCurrentState()
	if state == nil {
		return NewExecutionError(f.Id, "", "flow has no current state to resume", ErrNotResumable)
	}
	resumable, ok := state.(ResumableState)
	if !ok {
		return NewExecutionError(f.Id, state.GetId(), fmt.Sprintf("state '%s' can not be resumed", state.GetId()), ErrNotResumable)
	}
	return resumable.Resume(rc)
}

// HandleEvent finds the transition of the current state matching the event
// and executes it.
func (f *Flow) HandleEvent(rc RequestControlContext, event *Event) error {
	state := rc.GetCurrentState()
	if state == nil {
		return NewExecutionError(f.Id, "", fmt.Sprintf("event '%s' signalled before any state was entered", event.Id), ErrNoMatchingTransition)
	}
	ts, ok := state.(TransitionableState)
	if !ok {
		return NewExecutionError(f.Id, state.GetId(), fmt.Sprintf("state '%s' does not accept events", state.GetId()), ErrNoMatchingTransition)
	}
	transition := ts.GetTransition(event.Id)
	if transition == nil {
		return NewExecutionError(f.Id, state.GetId(),
			fmt.Sprintf("no transition for event '%s' in state '%s' of flow '%s'", event.Id, state.GetId(), f.Id), ErrNoMatchingTransition)
	}
	return rc.Execute(transition)
}

func (f *Flow) HandleException(err *ExecutionError, rc RequestControlContext) (bool, error) {
	return f.ExceptionHandlers.Handle(err, rc)
}

// Resolver looks flow definitions up by id.
type Resolver interface {
	Resolve(flowId string) (*Flow, error)
}

var _ Resolver = new(Registry)

type Registry struct {
	mu    sync.RWMutex
	flows map[string]*Flow
}

func NewRegistry() *Registry {
	return &Registry{flows: make(map[string]*Flow)}
}

func (r *Registry) Register(flows ...*Flow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range flows {
		r.flows[f.Id] = f
	}
}

func (r *Registry) Resolve(flowId string) (*Flow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.flows[flowId]
	if !ok {
		return nil, NoSuchFlowDefinitionError{FlowId: flowId}
	}
	return f, nil
}
