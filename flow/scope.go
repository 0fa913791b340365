package flow

// Scope is a named bag of attributes: flow, flash, conversation or request scope.
type Scope map[string]any

func NewScope() Scope {
	return make(Scope)
}

func (s Scope) Get(name string) (any, bool) {
	v, ok := s[name]
	return v, ok
}

func (s Scope) GetString(name string) string {
	v, ok := s[name]
	if !ok {
		return ""
	}
	str, _ := v.(string)
	return str
}

func (s Scope) Put(name string, value any) {
	s[name] = value
}

func (s Scope) PutAll(values map[string]any) {
	for k, v := range values {
		s[k] = v
	}
}

func (s Scope) Remove(name string) {
	delete(s, name)
}

func (s Scope) Clear() {
	for k := range s {
		delete(s, k)
	}
}

// Copy is shallow.
func (s Scope) Copy() Scope {
	c := make(Scope, len(s))
	for k, v := range s {
		c[k] = v
	}
	return c
}

// ScopeData exposes every scope of the request as one tree so jsonpath
// expressions such as $.flow.orderId or $.request.card can address them.
func ScopeData(rc RequestContext) map[string]any {
	data := map[string]any{
		"flow":         map[string]any(rc.GetFlowScope()),
		"flash":        map[string]any(rc.GetFlashScope()),
		"conversation": map[string]any(rc.GetConversationScope()),
		"request":      map[string]any(rc.GetRequestScope()),
	}
	if ev := rc.GetLastEvent(); ev != nil {
		data["event"] = map[string]any{
			"id":         ev.Id,
			"attributes": map[string]any(ev.Attributes),
		}
	}
	return data
}
