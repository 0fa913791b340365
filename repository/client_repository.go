package repository

import (
	"encoding/base64"

	"github.com/mohitkumar/flowkeeper/continuation"
	"github.com/mohitkumar/flowkeeper/conversation"
	"github.com/mohitkumar/flowkeeper/execution"
	"github.com/mohitkumar/flowkeeper/logger"
)

var _ Repository = new(ClientRepository)

// ClientRepository keeps nothing but conversation scope on the server. The
// snapshot itself is the continuation id of the key handed to the client.
type ClientRepository struct {
	conversationRepository
	continuations *continuation.Factory
	sealer        *continuation.Sealer
}

// NewClientRepository builds the client side strategy. sealer may be nil, in
// which case snapshots travel in the clear.
func NewClientRepository(conf Config, conversations conversation.Manager, restorer *execution.Restorer, sealer *continuation.Sealer) *ClientRepository {
	if !conf.AlwaysGenerateNewNextKey {
		logger.Warn("client side continuations with key reuse keep handing out the snapshot taken when the key was generated")
	}
	return &ClientRepository{
		conversationRepository: conversationRepository{
			conversations:            conversations,
			restorer:                 restorer,
			alwaysGenerateNewNextKey: conf.AlwaysGenerateNewNextKey,
		},
		continuations: continuation.NewFactory(conf.Compress),
		sealer:        sealer,
	}
}

func (r *ClientRepository) GenerateKey(e *execution.FlowExecution) (execution.Key, error) {
	conv, err := r.beginConversation(e)
	if err != nil {
		return execution.Key{}, err
	}
	id, err := r.encode(e)
	if err != nil {
		return execution.Key{}, err
	}
	return execution.NewKey(conv.GetId(), id), nil
}

func (r *ClientRepository) GetNextKey(e *execution.FlowExecution, previous execution.Key) (execution.Key, error) {
	return r.nextKey(previous, func() (string, error) {
		return r.encode(e)
	})
}

func (r *ClientRepository) GetFlowExecution(key execution.Key) (*execution.FlowExecution, error) {
	conv, err := r.getConversation(key)
	if err != nil {
		return nil, err
	}
	m, err := r.decode(key.ContinuationId)
	if err != nil {
		return nil, err
	}
	return r.rehydrate(m, conv, key)
}

func (r *ClientRepository) PutFlowExecution(key execution.Key, e *execution.FlowExecution) error {
	conv, err := r.getConversation(key)
	if err != nil {
		return err
	}
	if err := r.putConversationScope(conv, e.GetConversationScope()); err != nil {
		return err
	}
	e.AssignKey(key)
	return nil
}

func (r *ClientRepository) ParseFlowExecutionKey(encoded string) (execution.Key, error) {
	return r.parseKey(encoded, func(id string) (string, error) {
		if _, err := base64.RawURLEncoding.DecodeString(id); err != nil {
			return "", err
		}
		return id, nil
	})
}

func (r *ClientRepository) encode(e *execution.FlowExecution) (string, error) {
	c, err := r.continuations.Create(e)
	if err != nil {
		return "", err
	}
	b := r.continuations.ToBytes(c)
	if r.sealer != nil {
		if b, err = r.sealer.Seal(b); err != nil {
			return "", continuation.CreationError{FlowId: e.GetFlowId(), Message: "continuation can not be sealed", Cause: err}
		}
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func (r *ClientRepository) decode(id string) (*execution.Memento, error) {
	b, err := base64.RawURLEncoding.DecodeString(id)
	if err != nil {
		return nil, continuation.UnmarshalError{Kind: continuation.CORRUPT, Message: "continuation id is not base64", Cause: err}
	}
	if r.sealer != nil {
		if b, err = r.sealer.Open(b); err != nil {
			return nil, continuation.UnmarshalError{Kind: continuation.CORRUPT, Message: "continuation can not be opened", Cause: err}
		}
	}
	c, err := r.continuations.FromBytes(b)
	if err != nil {
		return nil, err
	}
	return r.continuations.Unmarshal(c)
}
