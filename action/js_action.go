package action

import (
	"encoding/json"
	"fmt"

	"github.com/dop251/goja"
	"github.com/mohitkumar/flowkeeper/flow"
	"github.com/mohitkumar/flowkeeper/logger"
	"go.uber.org/zap"
)

var _ Action = new(jsAction)

// jsAction runs a script with $ bound to the request scopes. Whatever the
// script leaves in $.flow is written back to flow scope, and the value of the
// variable "event" becomes the event id.
type jsAction struct {
	baseAction
	expression string
}

func NewJsAction(expression string, bAction baseAction) *jsAction {
	return &jsAction{
		baseAction: bAction,
		expression: expression,
	}
}

func (d *jsAction) Validate() error {
	if len(d.expression) == 0 {
		return fmt.Errorf("action=%s, expression can not be empty", d.name)
	}
	if _, err := goja.Compile(d.name, d.expression, false); err != nil {
		return fmt.Errorf("action=%s, invalid javascript %w", d.name, err)
	}
	return nil
}

func (d *jsAction) Execute(rc flow.RequestContext) (string, error) {
	logger.Debug("running action", zap.String("name", d.name), zap.String("flow", rc.GetActiveFlow().Id))
	data, err := json.Marshal(flow.ScopeData(rc))
	if err != nil {
		return "", fmt.Errorf("error serializing scopes for javascript %w", err)
	}
	expression := fmt.Sprintf("var $ = %s;\nvar event = %q;\n", data, SUCCESS_EVENT)
	expression = expression + d.expression
	vm := goja.New()
	_, err = vm.RunString(expression)
	if err != nil {
		return "", fmt.Errorf("error executing javascript %w", err)
	}
	val, err := vm.RunString("$.flow")
	if err != nil {
		return "", fmt.Errorf("error executing javascript %w", err)
	}
	res, err := json.Marshal(val.Export())
	if err != nil {
		return "", err
	}
	var output map[string]any
	if err := json.Unmarshal(res, &output); err != nil {
		return "", fmt.Errorf("javascript left $.flow in an unusable state %w", err)
	}
	rc.GetFlowScope().PutAll(output)
	return vm.Get("event").String(), nil
}
