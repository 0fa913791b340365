package action

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mohitkumar/flowkeeper/flow"
	"github.com/mohitkumar/flowkeeper/logger"
	"github.com/mohitkumar/flowkeeper/util"
	"github.com/oliveagle/jsonpath"
	"go.uber.org/zap"
)

var _ Action = new(switchAction)

// switchAction turns the value selected by a jsonpath expression over the
// request scopes into the event id.
type switchAction struct {
	baseAction
	expression string
}

func NewSwitchAction(expression string, bAction baseAction) *switchAction {
	return &switchAction{
		baseAction: bAction,
		expression: expression,
	}
}

func (d *switchAction) Validate() error {
	if len(d.expression) == 0 {
		return fmt.Errorf("action=%s, expression can not be empty", d.name)
	}
	if !strings.HasPrefix(d.expression, "{") || !strings.HasSuffix(d.expression, "}") {
		return fmt.Errorf("action=%s, expression should be enclosed in {}", d.name)
	}
	_, err := jsonpath.Compile(util.JsonPath(d.expression))
	if err != nil {
		return fmt.Errorf("action=%s, expression should be a valid jsonpath expression", d.name)
	}
	return nil
}

func (d *switchAction) Execute(rc flow.RequestContext) (string, error) {
	logger.Debug("running action", zap.String("name", d.name), zap.String("flow", rc.GetActiveFlow().Id))
	expressionValue, err := jsonpath.JsonPathLookup(flow.ScopeData(rc), util.JsonPath(d.expression))
	if err != nil {
		return "", fmt.Errorf("action=%s, unable to evaluate %s: %w", d.name, d.expression, err)
	}
	switch expValue := expressionValue.(type) {
	case int:
		return strconv.Itoa(expValue), nil
	case int64:
		return strconv.FormatInt(expValue, 10), nil
	case float64:
		return strconv.Itoa(int(expValue)), nil
	case bool:
		return strconv.FormatBool(expValue), nil
	case string:
		return expValue, nil
	}
	return "", fmt.Errorf("action=%s, expression %s selected %v which can not be used as an event", d.name, d.expression, expressionValue)
}
