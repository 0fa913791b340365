package action

import (
	"fmt"

	"github.com/mohitkumar/flowkeeper/flow"
	"github.com/mohitkumar/flowkeeper/logger"
	"github.com/mohitkumar/flowkeeper/util"
	"go.uber.org/zap"
)

var _ Action = new(UserAction)

type UserAction struct {
	baseAction
	registry *Registry
}

func NewUserAction(registry *Registry, bAction baseAction) *UserAction {
	return &UserAction{
		baseAction: bAction,
		registry:   registry,
	}
}

func (ua *UserAction) Validate() error {
	if ua.registry == nil {
		return fmt.Errorf("action %s can not be resolved, no action registry", ua.name)
	}
	if _, ok := ua.registry.Get(ua.name); !ok {
		return fmt.Errorf("action %s not registered", ua.name)
	}
	return nil
}

func (ua *UserAction) Execute(rc flow.RequestContext) (string, error) {
	logger.Debug("running action", zap.String("name", ua.name), zap.String("flow", rc.GetActiveFlow().Id))
	fn, ok := ua.registry.Get(ua.name)
	if !ok {
		return "", fmt.Errorf("action %s not registered", ua.name)
	}
	params := util.ResolveParams(flow.ScopeData(rc), ua.params)
	event, err := fn(rc, params)
	if err != nil {
		return "", err
	}
	if len(event) == 0 {
		return SUCCESS_EVENT, nil
	}
	return event, nil
}
