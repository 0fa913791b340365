package execution

import (
	"errors"
	"fmt"

	"github.com/mohitkumar/flowkeeper/flow"
)

type funcAction struct {
	name string
	fn   func(rc flow.RequestContext) (string, error)
}

func (a *funcAction) GetName() string {
	return a.name
}

func (a *funcAction) Execute(rc flow.RequestContext) (string, error) {
	return a.fn(rc)
}

func succeed(name string, event string) flow.Action {
	return &funcAction{name: name, fn: func(rc flow.RequestContext) (string, error) {
		rc.GetFlowScope().Put(name, true)
		return event, nil
	}}
}

func fail(name string, err error) flow.Action {
	return &funcAction{name: name, fn: func(rc flow.RequestContext) (string, error) {
		return "", err
	}}
}

func to(on, target string) *flow.Transition {
	return &flow.Transition{On: on, To: target}
}

func mustAdd(f *flow.Flow, states ...flow.State) *flow.Flow {
	for _, s := range states {
		if err := f.AddState(s); err != nil {
			panic(err)
		}
	}
	return f
}

// checkout: init -> payment (view) -> confirmed (end)
func checkoutFlow() *flow.Flow {
	return mustAdd(flow.NewFlow("checkout"),
		flow.NewActionState("init", []flow.Action{succeed("initialized", "success")}, to("success", "payment")),
		flow.NewViewState("payment", "paymentForm", to("submit", "confirmed"), to("cancel", "cancelled")),
		flow.NewEndState("confirmed", map[string]any{"card": "{$.request.card}"}, nil),
		flow.NewEndState("cancelled", nil, &flow.Redirect{Type: flow.EXTERNAL_REDIRECT, Url: "https://shop.example/cart"}),
	)
}

// order spawns address-lookup, whose end state "found" is mapped back.
func orderFlows() *flow.Registry {
	registry := flow.NewRegistry()
	lookup := mustAdd(flow.NewFlow("address-lookup"),
		flow.NewViewState("enter-address", "addressForm", to("found", "found")),
		flow.NewEndState("found", map[string]any{"city": "{$.request.city}"}, nil),
	)
	order := mustAdd(flow.NewFlow("order"),
		flow.NewSubflowState("lookup", "address-lookup", registry, map[string]any{"customer": "{$.flow.customer}"}, to("found", "review")),
		flow.NewViewState("review", "reviewForm", to("confirm", "done")),
		flow.NewEndState("done", nil, nil),
	)
	registry.Register(lookup, order)
	return registry
}

var errCardDeclined = errors.New("card declined")

type recordingListener struct {
	NoopListener
	events []string
}

func (l *recordingListener) record(format string, args ...any) {
	l.events = append(l.events, fmt.Sprintf(format, args...))
}

func (l *recordingListener) RequestSubmitted(rc flow.RequestContext) {
	l.record("requestSubmitted")
}

func (l *recordingListener) RequestProcessed(rc flow.RequestContext) {
	l.record("requestProcessed")
}

func (l *recordingListener) SessionStarting(rc flow.RequestContext, definition *flow.Flow, input flow.Scope) {
	l.record("sessionStarting:%s", definition.Id)
}

func (l *recordingListener) SessionStarted(rc flow.RequestContext, session *FlowSession) {
	l.record("sessionStarted:%s", session.GetFlowId())
}

func (l *recordingListener) StateEntered(rc flow.RequestContext, previous flow.State, state flow.State) {
	l.record("stateEntered:%s", state.GetId())
}

func (l *recordingListener) Resumed(rc flow.RequestContext) {
	l.record("resumed")
}

func (l *recordingListener) Paused(rc flow.RequestContext) {
	l.record("paused")
}

func (l *recordingListener) SessionEnded(rc flow.RequestContext, session *FlowSession, outcome *flow.Event) {
	l.record("sessionEnded:%s:%s", session.GetFlowId(), outcome.Id)
}

func (l *recordingListener) ExceptionThrown(rc flow.RequestContext, err *flow.ExecutionError) {
	l.record("exceptionThrown:%s", err.StateId)
}

type panickingListener struct {
	NoopListener
}

func (panickingListener) RequestSubmitted(rc flow.RequestContext) {
	panic("listener bug")
}
