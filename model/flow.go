package model

type StateType string

const STATE_TYPE_ACTION StateType = "action"
const STATE_TYPE_VIEW StateType = "view"
const STATE_TYPE_SUBFLOW StateType = "subflow"
const STATE_TYPE_END StateType = "end"

// Flow is the stored, JSON form of a flow definition.
type Flow struct {
	Id                string                       `json:"id"`
	Caption           string                       `json:"caption,omitempty"`
	Description       string                       `json:"description,omitempty"`
	StartState        string                       `json:"startState,omitempty"`
	States            []State                      `json:"states"`
	ExceptionHandlers []ExceptionHandlerDefinition `json:"exceptionHandlers,omitempty"`
}

type State struct {
	Id                string                       `json:"id"`
	Type              StateType                    `json:"type"`
	Actions           []ActionDefinition           `json:"actions,omitempty"`
	View              string                       `json:"view,omitempty"`
	Subflow           string                       `json:"subflow,omitempty"`
	Input             map[string]any               `json:"input,omitempty"`
	Output            map[string]any               `json:"output,omitempty"`
	Redirect          *RedirectDefinition          `json:"redirect,omitempty"`
	Transitions       []Transition                 `json:"transitions,omitempty"`
	ExceptionHandlers []ExceptionHandlerDefinition `json:"exceptionHandlers,omitempty"`
}

type Transition struct {
	On string `json:"on"`
	To string `json:"to"`
}

type ActionDefinition struct {
	Type       string         `json:"type"`
	Name       string         `json:"name"`
	Expression string         `json:"expression,omitempty"`
	Params     map[string]any `json:"params,omitempty"`
}

// ExceptionHandlerDefinition transitions to To when the root cause message of
// a failure contains Match. An empty Match handles every failure.
type ExceptionHandlerDefinition struct {
	Match string `json:"match,omitempty"`
	To    string `json:"to"`
}

type RedirectDefinition struct {
	Type   string         `json:"type"`
	FlowId string         `json:"flowId,omitempty"`
	Input  map[string]any `json:"input,omitempty"`
	Url    string         `json:"url,omitempty"`
}
