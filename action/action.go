package action

import (
	"fmt"
	"strings"
	"sync"

	"github.com/mohitkumar/flowkeeper/flow"
)

type ActionType string

const ACTION_TYPE_USER ActionType = "user"
const ACTION_TYPE_SWITCH ActionType = "switch"
const ACTION_TYPE_JAVASCRIPT ActionType = "javascript"
const ACTION_TYPE_SET ActionType = "set"

// SUCCESS_EVENT is returned by actions that do not choose an event themselves.
const SUCCESS_EVENT = "success"

var VALID_ACTION_TYPES = []ActionType{ACTION_TYPE_USER, ACTION_TYPE_SWITCH, ACTION_TYPE_JAVASCRIPT, ACTION_TYPE_SET}

func ToActionType(at string) ActionType {
	return ActionType(strings.ToLower(at))
}

func ValidateActionType(at string) error {
	for _, valid := range VALID_ACTION_TYPES {
		if ToActionType(at) == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid action type %s", at)
}

type Action interface {
	flow.Action
	GetType() ActionType
	GetParams() map[string]any
	Validate() error
}

type baseAction struct {
	actType ActionType
	name    string
	params  map[string]any
}

func NewBaseAction(Type ActionType, name string, params map[string]any) *baseAction {
	if params == nil {
		params = make(map[string]any)
	}
	return &baseAction{
		actType: Type,
		name:    name,
		params:  params,
	}
}

func (ba *baseAction) GetName() string {
	return ba.name
}

func (ba *baseAction) GetType() ActionType {
	return ba.actType
}

func (ba *baseAction) GetParams() map[string]any {
	return ba.params
}

// ActionFunc is business logic registered under a name and invoked by user
// actions with their resolved parameters.
type ActionFunc func(rc flow.RequestContext, params map[string]any) (string, error)

type Registry struct {
	mu    sync.RWMutex
	funcs map[string]ActionFunc
}

func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]ActionFunc)}
}

func (r *Registry) Register(name string, fn ActionFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn
}

func (r *Registry) Get(name string) (ActionFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

// New builds the action of the given type. expression is only used by switch
// and javascript actions.
func New(actType ActionType, name string, expression string, params map[string]any, registry *Registry) (Action, error) {
	base := NewBaseAction(actType, name, params)
	var act Action
	switch actType {
	case ACTION_TYPE_USER:
		act = NewUserAction(registry, *base)
	case ACTION_TYPE_SWITCH:
		act = NewSwitchAction(expression, *base)
	case ACTION_TYPE_JAVASCRIPT:
		act = NewJsAction(expression, *base)
	case ACTION_TYPE_SET:
		act = NewSetAction(*base)
	default:
		return nil, fmt.Errorf("invalid action type %s", actType)
	}
	if err := act.Validate(); err != nil {
		return nil, err
	}
	return act, nil
}
