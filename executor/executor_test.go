package executor

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/mohitkumar/flowkeeper/action"
	"github.com/mohitkumar/flowkeeper/conversation"
	"github.com/mohitkumar/flowkeeper/execution"
	"github.com/mohitkumar/flowkeeper/flow"
	"github.com/mohitkumar/flowkeeper/metadata"
	"github.com/mohitkumar/flowkeeper/model"
	"github.com/mohitkumar/flowkeeper/repository"
	"github.com/mohitkumar/flowkeeper/util"
	"github.com/stretchr/testify/require"
)

var checkout = model.Flow{
	Id: "checkout",
	States: []model.State{
		{Id: "init", Type: model.STATE_TYPE_ACTION,
			Actions:     []model.ActionDefinition{{Type: "set", Name: "init", Params: map[string]any{"total": "{$.flow.amount}"}}},
			Transitions: []model.Transition{{On: "success", To: "payment"}}},
		{Id: "payment", Type: model.STATE_TYPE_VIEW, View: "paymentForm",
			Transitions: []model.Transition{{On: "submit", To: "charge"}, {On: "cancel", To: "cancelled"}}},
		{Id: "charge", Type: model.STATE_TYPE_ACTION,
			Actions:           []model.ActionDefinition{{Type: "user", Name: "charge", Params: map[string]any{"card": "{$.request.card}"}}},
			Transitions:       []model.Transition{{On: "success", To: "confirmed"}},
			ExceptionHandlers: []model.ExceptionHandlerDefinition{{Match: "declined", To: "payment"}}},
		{Id: "confirmed", Type: model.STATE_TYPE_END,
			Output: map[string]any{"total": "{$.flow.total}", "receipt": "{$.flow.receipt}"}},
		{Id: "cancelled", Type: model.STATE_TYPE_END,
			Redirect: &model.RedirectDefinition{Type: string(flow.EXTERNAL_REDIRECT), Url: "https://shop.example/cart"}},
	},
}

var addressLookup = model.Flow{
	Id: "address-lookup",
	States: []model.State{
		{Id: "enter", Type: model.STATE_TYPE_VIEW, View: "addressForm",
			Transitions: []model.Transition{{On: "found", To: "found"}}},
		{Id: "found", Type: model.STATE_TYPE_END, Output: map[string]any{"city": "{$.request.city}"}},
	},
}

var order = model.Flow{
	Id: "order",
	States: []model.State{
		{Id: "lookup", Type: model.STATE_TYPE_SUBFLOW, Subflow: "address-lookup",
			Input:       map[string]any{"customer": "{$.flow.customer}"},
			Transitions: []model.Transition{{On: "found", To: "review"}}},
		{Id: "review", Type: model.STATE_TYPE_VIEW, View: "reviewForm",
			Transitions: []model.Transition{{On: "confirm", To: "done"}}},
		{Id: "done", Type: model.STATE_TYPE_END, Output: map[string]any{"city": "{$.flow.lookup.city}"}},
	},
}

func charge(rc flow.RequestContext, params map[string]any) (string, error) {
	card := fmt.Sprint(params["card"])
	if card == "0000" {
		return "", errors.New("card declined")
	}
	rc.GetFlowScope().Put("receipt", "r-"+card)
	return action.SUCCESS_EVENT, nil
}

func newExecutor(t *testing.T, newRepo func(*execution.Restorer) repository.Repository) *FlowExecutor {
	actions := action.NewRegistry()
	actions.Register("charge", charge)
	service := metadata.NewMetadataService(metadata.NewInMemoryStorage(), actions)
	for _, fl := range []model.Flow{checkout, addressLookup, order} {
		require.NoError(t, service.SaveFlow(fl))
	}
	factory := execution.NewFactory()
	return NewFlowExecutor(service, factory, newRepo(execution.NewRestorer(service, factory)))
}

var repositories = map[string]func(*execution.Restorer) repository.Repository{
	"server side": func(r *execution.Restorer) repository.Repository {
		return repository.NewContinuationRepository(repository.DefaultConfig(),
			conversation.NewLocalManager(conversation.LocalConfig{}, util.NewRandomUidGenerator()), r, util.NewRandomUidGenerator())
	},
	"client side": func(r *execution.Restorer) repository.Repository {
		return repository.NewClientRepository(repository.Config{Compress: true, AlwaysGenerateNewNextKey: true},
			conversation.NewLocalManager(conversation.LocalConfig{}, util.NewRandomUidGenerator()), r, nil)
	},
}

func TestFlowExecutor(t *testing.T) {
	for name, newRepo := range repositories {
		for scenario, fn := range map[string]func(t *testing.T, fe *FlowExecutor){
			"linear flow":           testLinearFlow,
			"declined card":         testRecovery,
			"cancel redirects":      testCancel,
			"subflow":               testSubflow,
			"unknown flow":          testUnknownFlow,
			"bad key":               testBadKey,
			"inspect does not move": testInspect,
		} {
			t.Run(name+"/"+scenario, func(t *testing.T) {
				fn(t, newExecutor(t, newRepo))
			})
		}
	}
}

func launchCheckout(t *testing.T, fe *FlowExecutor) *Result {
	res, err := fe.Launch(context.Background(), "checkout", map[string]any{"amount": 42}, nil)
	require.NoError(t, err)
	require.True(t, res.Active)
	require.NotEmpty(t, res.Key)
	require.Equal(t, flow.FLOW_EXECUTION_REDIRECT, res.Redirect.Type)
	require.Equal(t, "paymentForm", res.Redirect.View)
	return res
}

func testLinearFlow(t *testing.T, fe *FlowExecutor) {
	launched := launchCheckout(t, fe)
	res, err := fe.Resume(context.Background(), launched.Key, flow.NewExternalContext("submit", map[string]any{"card": "4111"}))
	require.NoError(t, err)
	require.False(t, res.Active)
	require.Empty(t, res.Key)
	require.Equal(t, "confirmed", res.Outcome.Id)
	require.Equal(t, 42, res.Outcome.Attributes["total"])
	require.Equal(t, "r-4111", res.Outcome.Attributes["receipt"])

	_, err = fe.Resume(context.Background(), launched.Key, flow.NewExternalContext("submit", nil))
	require.ErrorAs(t, err, &repository.NoSuchFlowExecutionError{})
}

func testRecovery(t *testing.T, fe *FlowExecutor) {
	launched := launchCheckout(t, fe)
	res, err := fe.Resume(context.Background(), launched.Key, flow.NewExternalContext("submit", map[string]any{"card": "0000"}))
	require.NoError(t, err)
	require.True(t, res.Active)
	require.NotEqual(t, launched.Key, res.Key)
	require.Equal(t, "paymentForm", res.Redirect.View)
	require.Equal(t, "card declined", res.Execution.GetFlashScope().GetString(flow.ERROR_MESSAGE_ATTRIBUTE))
	require.Equal(t, "charge", res.Execution.GetFlashScope().GetString(flow.ERROR_STATE_ATTRIBUTE))

	res, err = fe.Resume(context.Background(), res.Key, flow.NewExternalContext("submit", map[string]any{"card": "5500"}))
	require.NoError(t, err)
	require.False(t, res.Active)
	require.Equal(t, "r-5500", res.Outcome.Attributes["receipt"])
}

func testCancel(t *testing.T, fe *FlowExecutor) {
	launched := launchCheckout(t, fe)
	res, err := fe.Resume(context.Background(), launched.Key, flow.NewExternalContext("cancel", nil))
	require.NoError(t, err)
	require.False(t, res.Active)
	require.Equal(t, "cancelled", res.Outcome.Id)
	require.Equal(t, flow.EXTERNAL_REDIRECT, res.Redirect.Type)
	require.Equal(t, "https://shop.example/cart", res.Redirect.Url)
}

func testSubflow(t *testing.T, fe *FlowExecutor) {
	res, err := fe.Launch(context.Background(), "order", map[string]any{"customer": "ada"}, nil)
	require.NoError(t, err)
	require.True(t, res.Active)
	sessions := res.Execution.GetSessions()
	require.Len(t, sessions, 2)
	require.Equal(t, execution.SUSPENDED, sessions[0].GetStatus())
	require.Equal(t, "ada", sessions[1].GetScope().GetString("customer"))

	res, err = fe.Resume(context.Background(), res.Key, flow.NewExternalContext("found", map[string]any{"city": "Paris"}))
	require.NoError(t, err)
	require.True(t, res.Active)
	sessions = res.Execution.GetSessions()
	require.Len(t, sessions, 1)
	require.Equal(t, "review", sessions[0].GetStateId())
	require.Equal(t, "reviewForm", res.Redirect.View)

	res, err = fe.Resume(context.Background(), res.Key, flow.NewExternalContext("confirm", nil))
	require.NoError(t, err)
	require.False(t, res.Active)
	require.Equal(t, "Paris", res.Outcome.Attributes["city"])
}

func testUnknownFlow(t *testing.T, fe *FlowExecutor) {
	_, err := fe.Launch(context.Background(), "missing", nil, nil)
	require.ErrorAs(t, err, &flow.NoSuchFlowDefinitionError{})
}

func testBadKey(t *testing.T, fe *FlowExecutor) {
	_, err := fe.Resume(context.Background(), "not-a-key", flow.NewExternalContext("submit", nil))
	require.ErrorAs(t, err, &execution.KeyFormatError{})
}

func testInspect(t *testing.T, fe *FlowExecutor) {
	launched := launchCheckout(t, fe)
	for i := 0; i < 2; i++ {
		res, err := fe.Inspect(context.Background(), launched.Key)
		require.NoError(t, err)
		require.Equal(t, launched.Key, res.Key)
		require.True(t, res.Active)
		session, err := res.Execution.GetActiveSession()
		require.NoError(t, err)
		require.Equal(t, "payment", session.GetStateId())
		require.Equal(t, execution.PAUSED, session.GetStatus())
	}
}
