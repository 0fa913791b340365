package action

import (
	"fmt"

	"github.com/mohitkumar/flowkeeper/flow"
	"github.com/mohitkumar/flowkeeper/logger"
	"github.com/mohitkumar/flowkeeper/util"
	"go.uber.org/zap"
)

var _ Action = new(setAction)

// setAction resolves its parameters against the request scopes and stores the
// result in flow scope.
type setAction struct {
	baseAction
}

func NewSetAction(bAction baseAction) *setAction {
	return &setAction{
		baseAction: bAction,
	}
}

func (d *setAction) Validate() error {
	if len(d.params) == 0 {
		return fmt.Errorf("action=%s, set action needs at least one parameter", d.name)
	}
	return nil
}

func (d *setAction) Execute(rc flow.RequestContext) (string, error) {
	logger.Debug("running action", zap.String("name", d.name), zap.String("flow", rc.GetActiveFlow().Id))
	rc.GetFlowScope().PutAll(util.ResolveParams(flow.ScopeData(rc), d.params))
	return SUCCESS_EVENT, nil
}
