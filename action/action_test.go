package action

import (
	"errors"
	"testing"

	"github.com/mohitkumar/flowkeeper/flow"
	"github.com/stretchr/testify/require"
)

type stubContext struct {
	definition   *flow.Flow
	flowScope    flow.Scope
	flashScope   flow.Scope
	convScope    flow.Scope
	requestScope flow.Scope
}

func newStubContext() *stubContext {
	return &stubContext{
		definition:   flow.NewFlow("test"),
		flowScope:    flow.NewScope(),
		flashScope:   flow.NewScope(),
		convScope:    flow.NewScope(),
		requestScope: flow.NewScope(),
	}
}

func (c *stubContext) GetRootFlowId() string                      { return c.definition.Id }
func (c *stubContext) GetActiveFlow() *flow.Flow                  { return c.definition }
func (c *stubContext) GetCurrentState() flow.State                { return nil }
func (c *stubContext) GetFlowScope() flow.Scope                   { return c.flowScope }
func (c *stubContext) GetFlashScope() flow.Scope                  { return c.flashScope }
func (c *stubContext) GetConversationScope() flow.Scope           { return c.convScope }
func (c *stubContext) GetRequestScope() flow.Scope                { return c.requestScope }
func (c *stubContext) GetExternalContext() *flow.ExternalContext { return nil }
func (c *stubContext) GetLastEvent() *flow.Event                  { return nil }
func (c *stubContext) IsActive() bool                             { return true }

func TestActions(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T, rc *stubContext){
		"user action receives resolved params": testUserAction,
		"user action must be registered":       testUserActionNotRegistered,
		"switch action selects event":          testSwitchAction,
		"switch action validates expression":   testSwitchValidation,
		"javascript action updates flow scope": testJsAction,
		"set action writes flow scope":         testSetAction,
		"unknown action type is rejected":      testUnknownType,
	} {
		t.Run(scenario, func(t *testing.T) {
			rc := newStubContext()
			fn(t, rc)
		})
	}
}

func testUserAction(t *testing.T, rc *stubContext) {
	registry := NewRegistry()
	var received map[string]any
	registry.Register("charge", func(rc flow.RequestContext, params map[string]any) (string, error) {
		received = params
		return "charged", nil
	})
	registry.Register("noop", func(rc flow.RequestContext, params map[string]any) (string, error) {
		return "", nil
	})
	registry.Register("broken", func(rc flow.RequestContext, params map[string]any) (string, error) {
		return "", errors.New("gateway down")
	})
	rc.requestScope.Put("card", "4111")

	act, err := New(ACTION_TYPE_USER, "charge", "", map[string]any{"card": "{$.request.card}"}, registry)
	require.NoError(t, err)
	event, err := act.Execute(rc)
	require.NoError(t, err)
	require.Equal(t, "charged", event)
	require.Equal(t, "4111", received["card"])

	act, err = New(ACTION_TYPE_USER, "noop", "", nil, registry)
	require.NoError(t, err)
	event, err = act.Execute(rc)
	require.NoError(t, err)
	require.Equal(t, SUCCESS_EVENT, event)

	act, err = New(ACTION_TYPE_USER, "broken", "", nil, registry)
	require.NoError(t, err)
	_, err = act.Execute(rc)
	require.EqualError(t, err, "gateway down")
}

func testUserActionNotRegistered(t *testing.T, rc *stubContext) {
	_, err := New(ACTION_TYPE_USER, "missing", "", nil, NewRegistry())
	require.Error(t, err)
	_, err = New(ACTION_TYPE_USER, "missing", "", nil, nil)
	require.Error(t, err)
}

func testSwitchAction(t *testing.T, rc *stubContext) {
	act, err := New(ACTION_TYPE_SWITCH, "route", "{$.flow.kind}", nil, nil)
	require.NoError(t, err)

	rc.flowScope.Put("kind", "express")
	event, err := act.Execute(rc)
	require.NoError(t, err)
	require.Equal(t, "express", event)

	rc.flowScope.Put("kind", 2.0)
	event, err = act.Execute(rc)
	require.NoError(t, err)
	require.Equal(t, "2", event)

	rc.flowScope.Put("kind", true)
	event, err = act.Execute(rc)
	require.NoError(t, err)
	require.Equal(t, "true", event)

	rc.flowScope.Remove("kind")
	_, err = act.Execute(rc)
	require.Error(t, err)
}

func testSwitchValidation(t *testing.T, rc *stubContext) {
	_, err := New(ACTION_TYPE_SWITCH, "route", "", nil, nil)
	require.Error(t, err)
	_, err = New(ACTION_TYPE_SWITCH, "route", "$.flow.kind", nil, nil)
	require.Error(t, err)
}

func testJsAction(t *testing.T, rc *stubContext) {
	rc.flowScope.Put("total", 10.0)
	act, err := New(ACTION_TYPE_JAVASCRIPT, "discount", "$.flow.total = $.flow.total * 0.5; if ($.flow.total < 10) { event = 'cheap'; }", nil, nil)
	require.NoError(t, err)
	event, err := act.Execute(rc)
	require.NoError(t, err)
	require.Equal(t, "cheap", event)
	require.Equal(t, 5.0, rc.flowScope["total"])

	_, err = New(ACTION_TYPE_JAVASCRIPT, "bad", "this is not javascript (", nil, nil)
	require.Error(t, err)

	act, err = New(ACTION_TYPE_JAVASCRIPT, "throws", "throw new Error('boom');", nil, nil)
	require.NoError(t, err)
	_, err = act.Execute(rc)
	require.ErrorContains(t, err, "boom")
}

func testSetAction(t *testing.T, rc *stubContext) {
	rc.requestScope.Put("name", "ada")
	act, err := New(ACTION_TYPE_SET, "remember", "", map[string]any{"customer": "{$.request.name}", "greeting": "hi {$.request.name}"}, nil)
	require.NoError(t, err)
	event, err := act.Execute(rc)
	require.NoError(t, err)
	require.Equal(t, SUCCESS_EVENT, event)
	require.Equal(t, "ada", rc.flowScope["customer"])
	require.Equal(t, "hi ada", rc.flowScope["greeting"])

	_, err = New(ACTION_TYPE_SET, "empty", "", nil, nil)
	require.Error(t, err)
}

func testUnknownType(t *testing.T, rc *stubContext) {
	require.Error(t, ValidateActionType("delay"))
	require.NoError(t, ValidateActionType("Switch"))
	_, err := New(ActionType("delay"), "x", "", nil, nil)
	require.Error(t, err)
}
