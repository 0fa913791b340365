package flow

// Action is a piece of business logic run by an action state. The returned
// event id selects the transition out of the state.
type Action interface {
	GetName() string
	Execute(rc RequestContext) (string, error)
}
