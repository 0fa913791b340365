package execution

import (
	"github.com/mohitkumar/flowkeeper/flow"
)

// Factory creates new executions that share one listener list and one set of
// system attributes.
type Factory struct {
	listeners  Listeners
	attributes flow.Scope
}

func NewFactory(listeners ...Listener) *Factory {
	return &Factory{
		listeners:  listeners,
		attributes: flow.NewScope(),
	}
}

func (f *Factory) WithAttributes(attributes map[string]any) *Factory {
	f.attributes.PutAll(attributes)
	return f
}

func (f *Factory) GetListeners() Listeners {
	return f.listeners
}

func (f *Factory) CreateFlowExecution(definition *flow.Flow) *FlowExecution {
	return newFlowExecution(definition, f.listeners, f.attributes.Copy())
}
