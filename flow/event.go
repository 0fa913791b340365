package flow

type Event struct {
	Id         string
	Attributes Scope
}

func NewEvent(id string, attributes map[string]any) *Event {
	attrs := NewScope()
	attrs.PutAll(attributes)
	return &Event{Id: id, Attributes: attrs}
}

// ExternalContext carries what the caller received from the outside world for
// one request: the event the user signalled and its parameters.
type ExternalContext struct {
	EventId    string
	Parameters map[string]any
}

func NewExternalContext(eventId string, parameters map[string]any) *ExternalContext {
	if parameters == nil {
		parameters = make(map[string]any)
	}
	return &ExternalContext{EventId: eventId, Parameters: parameters}
}

type RedirectType string

// FLOW_EXECUTION_REDIRECT asks the caller to come back later with the next key.
const FLOW_EXECUTION_REDIRECT RedirectType = "FLOW_EXECUTION_REDIRECT"

// FLOW_DEFINITION_REDIRECT asks the caller to launch FlowId with Input.
const FLOW_DEFINITION_REDIRECT RedirectType = "FLOW_DEFINITION_REDIRECT"

// EXTERNAL_REDIRECT asks the caller to send the user to Url.
const EXTERNAL_REDIRECT RedirectType = "EXTERNAL_REDIRECT"

// Redirect is a signal to the caller; the engine itself never performs I/O.
type Redirect struct {
	Type   RedirectType   `json:"type"`
	View   string         `json:"view,omitempty"`
	FlowId string         `json:"flowId,omitempty"`
	Input  map[string]any `json:"input,omitempty"`
	Url    string         `json:"url,omitempty"`
}
