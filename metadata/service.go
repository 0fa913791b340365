package metadata

import (
	"errors"
	"fmt"
	"time"

	c "github.com/patrickmn/go-cache"
	"github.com/mohitkumar/flowkeeper/action"
	"github.com/mohitkumar/flowkeeper/flow"
	"github.com/mohitkumar/flowkeeper/logger"
	"github.com/mohitkumar/flowkeeper/model"
	"github.com/mohitkumar/flowkeeper/persistence"
	"go.uber.org/zap"
)

const flowCacheExpiration = 10 * time.Minute

type MetadataService interface {
	flow.Resolver
	GetFlow(id string) (*flow.Flow, error)
	ValidateFlow(fl model.Flow) error
	SaveFlow(fl model.Flow) error
	DeleteFlow(id string) error
	GetMetadataStorage() MetadataStorage
}

var _ MetadataService = new(MetadataServiceImpl)

// MetadataServiceImpl turns stored definitions into runnable flows. Built
// flows are cached until their definition is saved or deleted again.
type MetadataServiceImpl struct {
	storage MetadataStorage
	actions *action.Registry
	flows   *c.Cache
}

func NewMetadataService(storage MetadataStorage, actions *action.Registry) *MetadataServiceImpl {
	return &MetadataServiceImpl{
		storage: storage,
		actions: actions,
		flows:   c.New(flowCacheExpiration, 2*flowCacheExpiration),
	}
}

func (s *MetadataServiceImpl) GetMetadataStorage() MetadataStorage {
	return s.storage
}

func (s *MetadataServiceImpl) SaveFlow(fl model.Flow) error {
	if err := s.ValidateFlow(fl); err != nil {
		return err
	}
	if err := s.storage.SaveFlowDefinition(fl); err != nil {
		return err
	}
	s.flows.Delete(fl.Id)
	logger.Info("flow definition saved", zap.String("flow", fl.Id))
	return nil
}

func (s *MetadataServiceImpl) DeleteFlow(id string) error {
	if err := s.storage.DeleteFlowDefinition(id); err != nil {
		return err
	}
	s.flows.Delete(id)
	return nil
}

func (s *MetadataServiceImpl) GetFlow(id string) (*flow.Flow, error) {
	if fl, ok := s.flows.Get(id); ok {
		return fl.(*flow.Flow), nil
	}
	def, err := s.storage.GetFlowDefinition(id)
	if err != nil {
		return nil, err
	}
	fl, err := s.build(*def)
	if err != nil {
		return nil, err
	}
	s.flows.Set(id, fl, c.DefaultExpiration)
	return fl, nil
}

// Resolve makes the service the flow resolver of the engine.
func (s *MetadataServiceImpl) Resolve(flowId string) (*flow.Flow, error) {
	fl, err := s.GetFlow(flowId)
	if err != nil {
		var notFound persistence.NotFoundError
		if errors.As(err, &notFound) {
			return nil, flow.NoSuchFlowDefinitionError{FlowId: flowId}
		}
		logger.Error("error in resolving flow", zap.String("flow", flowId), zap.Error(err))
		return nil, err
	}
	return fl, nil
}

func (s *MetadataServiceImpl) ValidateFlow(fl model.Flow) error {
	if len(fl.Id) == 0 {
		return fmt.Errorf("flow id is required")
	}
	if len(fl.States) == 0 {
		return fmt.Errorf("flow %s has no states", fl.Id)
	}
	stateIds := make(map[string]bool, len(fl.States))
	for _, st := range fl.States {
		if len(st.Id) == 0 {
			return fmt.Errorf("flow %s has a state without id", fl.Id)
		}
		if stateIds[st.Id] {
			return fmt.Errorf("state id %s is duplicate", st.Id)
		}
		stateIds[st.Id] = true
	}
	if len(fl.StartState) > 0 && !stateIds[fl.StartState] {
		return fmt.Errorf("no state with start state id %s in flow", fl.StartState)
	}
	checkTarget := func(from string, to string) error {
		if !stateIds[to] {
			return fmt.Errorf("state %s refers to undefined state %s", from, to)
		}
		return nil
	}
	for _, h := range fl.ExceptionHandlers {
		if err := checkTarget(fl.Id, h.To); err != nil {
			return err
		}
	}
	for _, st := range fl.States {
		for _, t := range st.Transitions {
			if len(t.On) == 0 {
				return fmt.Errorf("state %s has a transition without event", st.Id)
			}
			if err := checkTarget(st.Id, t.To); err != nil {
				return err
			}
		}
		for _, h := range st.ExceptionHandlers {
			if err := checkTarget(st.Id, h.To); err != nil {
				return err
			}
		}
		switch st.Type {
		case model.STATE_TYPE_ACTION:
			if len(st.Actions) == 0 {
				return fmt.Errorf("action state %s has no actions", st.Id)
			}
			for _, actDef := range st.Actions {
				if err := action.ValidateActionType(actDef.Type); err != nil {
					return err
				}
				if action.ToActionType(actDef.Type) == action.ACTION_TYPE_USER {
					if _, ok := s.actions.Get(actDef.Name); !ok {
						return fmt.Errorf("state %s, action %s not registered", st.Id, actDef.Name)
					}
				}
			}
		case model.STATE_TYPE_VIEW:
			if len(st.Transitions) == 0 {
				return fmt.Errorf("view state %s has no transitions", st.Id)
			}
		case model.STATE_TYPE_SUBFLOW:
			if len(st.Subflow) == 0 {
				return fmt.Errorf("subflow state %s has no subflow", st.Id)
			}
		case model.STATE_TYPE_END:
			if len(st.Transitions) > 0 {
				return fmt.Errorf("end state %s can not have transitions", st.Id)
			}
			if st.Redirect != nil {
				switch flow.RedirectType(st.Redirect.Type) {
				case flow.FLOW_DEFINITION_REDIRECT:
					if len(st.Redirect.FlowId) == 0 {
						return fmt.Errorf("end state %s redirects to a flow without id", st.Id)
					}
				case flow.EXTERNAL_REDIRECT:
					if len(st.Redirect.Url) == 0 {
						return fmt.Errorf("end state %s redirects without url", st.Id)
					}
				default:
					return fmt.Errorf("end state %s has invalid redirect type %s", st.Id, st.Redirect.Type)
				}
			}
		default:
			return fmt.Errorf("invalid state type %s", st.Type)
		}
	}
	_, err := s.build(fl)
	return err
}

func (s *MetadataServiceImpl) build(def model.Flow) (*flow.Flow, error) {
	fl := flow.NewFlow(def.Id)
	fl.Caption = def.Caption
	fl.Description = def.Description
	fl.StartStateId = def.StartState
	fl.ExceptionHandlers = toHandlers(def.ExceptionHandlers)
	for _, st := range def.States {
		state, err := s.buildState(st)
		if err != nil {
			return nil, err
		}
		if err := fl.AddState(state); err != nil {
			return nil, err
		}
	}
	return fl, nil
}

func (s *MetadataServiceImpl) buildState(def model.State) (flow.State, error) {
	transitions := make([]*flow.Transition, 0, len(def.Transitions))
	for _, t := range def.Transitions {
		transitions = append(transitions, &flow.Transition{On: t.On, To: t.To})
	}
	handlers := toHandlers(def.ExceptionHandlers)
	switch def.Type {
	case model.STATE_TYPE_ACTION:
		actions := make([]flow.Action, 0, len(def.Actions))
		for _, actDef := range def.Actions {
			act, err := action.New(action.ToActionType(actDef.Type), actDef.Name, actDef.Expression, actDef.Params, s.actions)
			if err != nil {
				return nil, fmt.Errorf("state %s: %w", def.Id, err)
			}
			actions = append(actions, act)
		}
		st := flow.NewActionState(def.Id, actions, transitions...)
		st.ExceptionHandlers = handlers
		return st, nil
	case model.STATE_TYPE_VIEW:
		st := flow.NewViewState(def.Id, def.View, transitions...)
		st.ExceptionHandlers = handlers
		return st, nil
	case model.STATE_TYPE_SUBFLOW:
		st := flow.NewSubflowState(def.Id, def.Subflow, s, def.Input, transitions...)
		st.ExceptionHandlers = handlers
		return st, nil
	case model.STATE_TYPE_END:
		var redirect *flow.Redirect
		if def.Redirect != nil {
			redirect = &flow.Redirect{
				Type:   flow.RedirectType(def.Redirect.Type),
				FlowId: def.Redirect.FlowId,
				Input:  def.Redirect.Input,
				Url:    def.Redirect.Url,
			}
		}
		st := flow.NewEndState(def.Id, def.Output, redirect)
		st.ExceptionHandlers = handlers
		return st, nil
	}
	return nil, fmt.Errorf("invalid state type %s", def.Type)
}

func toHandlers(defs []model.ExceptionHandlerDefinition) flow.ExceptionHandlerSet {
	var handlers flow.ExceptionHandlerSet
	for _, h := range defs {
		matcher := flow.MatchAny()
		if len(h.Match) > 0 {
			matcher = flow.MatchMessage(h.Match)
		}
		handlers = append(handlers, flow.NewTransitionExceptionHandler(matcher, h.To))
	}
	return handlers
}
