package model

type LaunchRequest struct {
	Input      map[string]any `json:"input,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

type ResumeRequest struct {
	Event      string         `json:"event"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

type Outcome struct {
	Id         string         `json:"id"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

type Redirect struct {
	Type   string         `json:"type"`
	View   string         `json:"view,omitempty"`
	FlowId string         `json:"flowId,omitempty"`
	Input  map[string]any `json:"input,omitempty"`
	Url    string         `json:"url,omitempty"`
}

type FlowExecution struct {
	FlowId       string         `json:"flowId"`
	Key          string         `json:"key,omitempty"`
	Active       bool           `json:"active"`
	ActiveFlowId string         `json:"activeFlowId,omitempty"`
	State        string         `json:"state,omitempty"`
	Status       string         `json:"status,omitempty"`
	FlowScope    map[string]any `json:"flowScope,omitempty"`
	FlashScope   map[string]any `json:"flashScope,omitempty"`
	Outcome      *Outcome       `json:"outcome,omitempty"`
	Redirect     *Redirect      `json:"redirect,omitempty"`
}
