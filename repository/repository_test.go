package repository

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/mohitkumar/flowkeeper/continuation"
	"github.com/mohitkumar/flowkeeper/conversation"
	"github.com/mohitkumar/flowkeeper/execution"
	"github.com/mohitkumar/flowkeeper/flow"
	"github.com/mohitkumar/flowkeeper/util"
	"github.com/stretchr/testify/require"
)

// wizard: step (view, loops on "next") -> done (end)
func wizardRegistry() *flow.Registry {
	wizard := flow.NewFlow("wizard")
	if err := wizard.AddState(flow.NewViewState("step", "stepForm",
		&flow.Transition{On: "next", To: "step"},
		&flow.Transition{On: "finish", To: "done"})); err != nil {
		panic(err)
	}
	if err := wizard.AddState(flow.NewEndState("done", nil, nil)); err != nil {
		panic(err)
	}
	registry := flow.NewRegistry()
	registry.Register(wizard)
	return registry
}

type fixture struct {
	registry *flow.Registry
	factory  *execution.Factory
	restorer *execution.Restorer
}

func newFixture() *fixture {
	registry := wizardRegistry()
	factory := execution.NewFactory()
	return &fixture{
		registry: registry,
		factory:  factory,
		restorer: execution.NewRestorer(registry, factory),
	}
}

func (f *fixture) continuationRepository(conf Config) *ContinuationRepository {
	return NewContinuationRepository(conf,
		conversation.NewLocalManager(conversation.LocalConfig{}, util.NewSequentialUidGenerator()),
		f.restorer, util.NewSequentialUidGenerator())
}

func (f *fixture) launch(t *testing.T, repo Repository) (*execution.FlowExecution, execution.Key) {
	definition, err := f.registry.Resolve("wizard")
	require.NoError(t, err)
	e := f.factory.CreateFlowExecution(definition)
	require.NoError(t, e.Start(flow.Scope{"customer": "ada"}, flow.NewExternalContext("", nil)))
	require.True(t, e.IsActive())
	key, err := repo.GenerateKey(e)
	require.NoError(t, err)
	lock, err := repo.GetLock(key)
	require.NoError(t, err)
	require.NoError(t, lock.Lock(context.Background()))
	defer lock.Unlock()
	require.NoError(t, repo.PutFlowExecution(key, e))
	return e, key
}

// cycle runs one locked resume of the execution stored under key.
func cycle(t *testing.T, repo Repository, key execution.Key, event string) execution.Key {
	lock, err := repo.GetLock(key)
	require.NoError(t, err)
	require.NoError(t, lock.Lock(context.Background()))
	defer lock.Unlock()
	e, err := repo.GetFlowExecution(key)
	require.NoError(t, err)
	require.NoError(t, e.Resume(flow.NewExternalContext(event, nil)))
	if !e.IsActive() {
		require.NoError(t, repo.RemoveFlowExecution(key))
		return key
	}
	next, err := repo.GetNextKey(e, key)
	require.NoError(t, err)
	require.NoError(t, repo.PutFlowExecution(next, e))
	return next
}

func TestContinuationRepository(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T, f *fixture){
		"new key per request":              testNewKeyPerRequest,
		"key reuse":                        testKeyReuse,
		"evicted key is no longer found":   testEviction,
		"stale key can be resumed":         testStaleKey,
		"ended execution is removed":       testRemove,
		"conversation scope survives":      testConversationScope,
		"restored execution carries state": testRestore,
		"lock serializes request cycles":   testLockSerialization,
		"keys are validated":               testParseKey,
	} {
		t.Run(scenario, func(t *testing.T) {
			fn(t, newFixture())
		})
	}
}

func testNewKeyPerRequest(t *testing.T, f *fixture) {
	repo := f.continuationRepository(DefaultConfig())
	_, key := f.launch(t, repo)
	seen := map[string]bool{key.ContinuationId: true}
	for i := 0; i < 5; i++ {
		next := cycle(t, repo, key, "next")
		require.Equal(t, key.ConversationId, next.ConversationId)
		require.False(t, seen[next.ContinuationId])
		seen[next.ContinuationId] = true
		key = next
	}
}

func testKeyReuse(t *testing.T, f *fixture) {
	conf := DefaultConfig()
	conf.AlwaysGenerateNewNextKey = false
	repo := f.continuationRepository(conf)
	_, key := f.launch(t, repo)
	for i := 0; i < 5; i++ {
		next := cycle(t, repo, key, "next")
		require.Equal(t, key.String(), next.String())
	}
}

func testEviction(t *testing.T, f *fixture) {
	conf := DefaultConfig()
	conf.MaxContinuations = 2
	repo := f.continuationRepository(conf)
	_, first := f.launch(t, repo)
	second := cycle(t, repo, first, "next")
	third := cycle(t, repo, second, "next")

	_, err := repo.GetFlowExecution(first)
	require.ErrorAs(t, err, &NoSuchFlowExecutionError{})
	for _, key := range []execution.Key{second, third} {
		_, err := repo.GetFlowExecution(key)
		require.NoError(t, err)
	}
}

func testStaleKey(t *testing.T, f *fixture) {
	repo := f.continuationRepository(DefaultConfig())
	_, first := f.launch(t, repo)
	cycle(t, repo, first, "next")
	e, err := repo.GetFlowExecution(first)
	require.NoError(t, err)
	require.Equal(t, first, *e.GetKey())
	session, err := e.GetActiveSession()
	require.NoError(t, err)
	require.Equal(t, "step", session.GetStateId())
}

func testRemove(t *testing.T, f *fixture) {
	repo := f.continuationRepository(DefaultConfig())
	_, key := f.launch(t, repo)
	cycle(t, repo, key, "finish")

	_, err := repo.GetFlowExecution(key)
	require.ErrorAs(t, err, &NoSuchFlowExecutionError{})
	_, err = repo.GetLock(key)
	require.ErrorAs(t, err, &NoSuchFlowExecutionError{})
	require.ErrorAs(t, repo.RemoveFlowExecution(key), &NoSuchFlowExecutionError{})
}

func testConversationScope(t *testing.T, f *fixture) {
	conf := DefaultConfig()
	conf.MaxContinuations = 1
	repo := f.continuationRepository(conf)
	e, key := f.launch(t, repo)
	e.GetConversationScope().Put("cart", "3 items")
	require.NoError(t, repo.PutFlowExecution(key, e))

	next := cycle(t, repo, key, "next")
	restored, err := repo.GetFlowExecution(next)
	require.NoError(t, err)
	require.Equal(t, "3 items", restored.GetConversationScope().GetString("cart"))
}

func testRestore(t *testing.T, f *fixture) {
	repo := f.continuationRepository(Config{MaxContinuations: 5, AlwaysGenerateNewNextKey: true, Compress: true})
	_, key := f.launch(t, repo)
	e, err := repo.GetFlowExecution(key)
	require.NoError(t, err)
	require.True(t, e.HasStarted())
	require.True(t, e.IsActive())
	session, err := e.GetActiveSession()
	require.NoError(t, err)
	require.Equal(t, execution.PAUSED, session.GetStatus())
	require.Equal(t, "ada", session.GetScope().GetString("customer"))
	require.Equal(t, key, *e.GetKey())
}

func testLockSerialization(t *testing.T, f *fixture) {
	conf := DefaultConfig()
	conf.AlwaysGenerateNewNextKey = false
	repo := f.continuationRepository(conf)
	_, key := f.launch(t, repo)

	const workers = 10
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lock, err := repo.GetLock(key)
			if err != nil {
				errs <- err
				return
			}
			if err := lock.Lock(context.Background()); err != nil {
				errs <- err
				return
			}
			defer lock.Unlock()
			e, err := repo.GetFlowExecution(key)
			if err != nil {
				errs <- err
				return
			}
			session, err := e.GetActiveSession()
			if err != nil {
				errs <- err
				return
			}
			count, _ := session.GetScope().Get("count")
			n, _ := count.(int)
			session.GetScope().Put("count", n+1)
			if err := repo.PutFlowExecution(key, e); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	e, err := repo.GetFlowExecution(key)
	require.NoError(t, err)
	session, err := e.GetActiveSession()
	require.NoError(t, err)
	count, _ := session.GetScope().Get("count")
	require.Equal(t, workers, count)
}

func testParseKey(t *testing.T, f *fixture) {
	repo := f.continuationRepository(DefaultConfig())
	for _, encoded := range []string{"", "garbage", "_k1_c1", "_cabc_k1", "_c1_kxyz"} {
		_, err := repo.ParseFlowExecutionKey(encoded)
		require.ErrorAs(t, err, &execution.KeyFormatError{}, encoded)
	}
	key, err := repo.ParseFlowExecutionKey("_c7_k12")
	require.NoError(t, err)
	require.Equal(t, execution.NewKey("7", "12"), key)

	_, err = repo.GetFlowExecution(key)
	require.ErrorAs(t, err, &NoSuchFlowExecutionError{})
}

func TestClientRepository(t *testing.T) {
	sealer, err := continuation.NewSealer([]byte("0123456789abcdef-secret"))
	require.NoError(t, err)
	for scenario, fn := range map[string]func(t *testing.T, f *fixture){
		"snapshot travels in the key": func(t *testing.T, f *fixture) {
			repo := NewClientRepository(DefaultConfig(), conversation.NewNoopManager(), f.restorer, nil)
			_, key := f.launch(t, repo)
			require.Equal(t, conversation.NOOP_CONVERSATION_ID, key.ConversationId)

			parsed, err := repo.ParseFlowExecutionKey(key.String())
			require.NoError(t, err)
			e, err := repo.GetFlowExecution(parsed)
			require.NoError(t, err)
			session, err := e.GetActiveSession()
			require.NoError(t, err)
			require.Equal(t, "step", session.GetStateId())
			require.Equal(t, "ada", session.GetScope().GetString("customer"))
		},
		"key reuse keeps the first key": func(t *testing.T, f *fixture) {
			conf := DefaultConfig()
			conf.AlwaysGenerateNewNextKey = false
			repo := NewClientRepository(conf, conversation.NewNoopManager(), f.restorer, nil)
			_, key := f.launch(t, repo)
			for i := 0; i < 5; i++ {
				next := cycle(t, repo, key, "next")
				require.Equal(t, key.String(), next.String())
			}
		},
		"every request mints a new key": func(t *testing.T, f *fixture) {
			repo := NewClientRepository(DefaultConfig(), conversation.NewNoopManager(), f.restorer, nil)
			_, key := f.launch(t, repo)
			lock, err := repo.GetLock(key)
			require.NoError(t, err)
			require.NoError(t, lock.Lock(context.Background()))
			e, err := repo.GetFlowExecution(key)
			require.NoError(t, err)
			session, err := e.GetActiveSession()
			require.NoError(t, err)
			session.GetScope().Put("step", 2)
			next, err := repo.GetNextKey(e, key)
			require.NoError(t, err)
			lock.Unlock()
			require.NotEqual(t, key.ContinuationId, next.ContinuationId)

			restored, err := repo.GetFlowExecution(next)
			require.NoError(t, err)
			session, err = restored.GetActiveSession()
			require.NoError(t, err)
			v, _ := session.GetScope().Get("step")
			require.Equal(t, 2, v)
		},
		"sealed snapshot round trips": func(t *testing.T, f *fixture) {
			repo := NewClientRepository(Config{Compress: true, AlwaysGenerateNewNextKey: true}, conversation.NewNoopManager(), f.restorer, sealer)
			_, key := f.launch(t, repo)
			_, err := repo.GetFlowExecution(key)
			require.NoError(t, err)

			plain := NewClientRepository(DefaultConfig(), conversation.NewNoopManager(), f.restorer, nil)
			_, err = plain.GetFlowExecution(key)
			var unmarshalErr continuation.UnmarshalError
			require.True(t, errors.As(err, &unmarshalErr))
		},
		"tampered snapshot is rejected": func(t *testing.T, f *fixture) {
			repo := NewClientRepository(DefaultConfig(), conversation.NewNoopManager(), f.restorer, sealer)
			_, key := f.launch(t, repo)
			id := []byte(key.ContinuationId)
			if id[0] == 'A' {
				id[0] = 'B'
			} else {
				id[0] = 'A'
			}
			_, err := repo.GetFlowExecution(execution.NewKey(key.ConversationId, string(id)))
			var unmarshalErr continuation.UnmarshalError
			require.ErrorAs(t, err, &unmarshalErr)
			require.Equal(t, continuation.CORRUPT, unmarshalErr.Kind)
		},
		"ended conversation ends the execution": func(t *testing.T, f *fixture) {
			repo := NewClientRepository(DefaultConfig(),
				conversation.NewLocalManager(conversation.LocalConfig{}, util.NewSequentialUidGenerator()), f.restorer, nil)
			e, key := f.launch(t, repo)
			e.GetConversationScope().Put("cart", "full")
			require.NoError(t, repo.PutFlowExecution(key, e))
			restored, err := repo.GetFlowExecution(key)
			require.NoError(t, err)
			require.Equal(t, "full", restored.GetConversationScope().GetString("cart"))

			require.NoError(t, repo.RemoveFlowExecution(key))
			_, err = repo.GetFlowExecution(key)
			require.ErrorAs(t, err, &NoSuchFlowExecutionError{})
		},
		"malformed continuation id": func(t *testing.T, f *fixture) {
			repo := NewClientRepository(DefaultConfig(), conversation.NewNoopManager(), f.restorer, nil)
			_, err := repo.ParseFlowExecutionKey("_c1_k!!!")
			require.ErrorAs(t, err, &execution.KeyFormatError{})
		},
	} {
		t.Run(scenario, func(t *testing.T) {
			fn(t, newFixture())
		})
	}
}
