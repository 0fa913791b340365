package repository

import (
	"fmt"

	"github.com/mohitkumar/flowkeeper/continuation"
	"github.com/mohitkumar/flowkeeper/conversation"
	"github.com/mohitkumar/flowkeeper/execution"
	"github.com/mohitkumar/flowkeeper/logger"
	"github.com/mohitkumar/flowkeeper/util"
	"go.uber.org/zap"
)

var _ Repository = new(ContinuationRepository)

// ContinuationRepository keeps a bounded group of snapshots per conversation
// on the server, so stale keys can be resumed until they are evicted.
type ContinuationRepository struct {
	conversationRepository
	continuations    *continuation.Factory
	continuationIds  util.UidGenerator
	maxContinuations int
}

func NewContinuationRepository(conf Config, conversations conversation.Manager, restorer *execution.Restorer, continuationIds util.UidGenerator) *ContinuationRepository {
	return &ContinuationRepository{
		conversationRepository: conversationRepository{
			conversations:            conversations,
			restorer:                 restorer,
			alwaysGenerateNewNextKey: conf.AlwaysGenerateNewNextKey,
		},
		continuations:    continuation.NewFactory(conf.Compress),
		continuationIds:  continuationIds,
		maxContinuations: conf.MaxContinuations,
	}
}

func (r *ContinuationRepository) GenerateKey(e *execution.FlowExecution) (execution.Key, error) {
	conv, err := r.beginConversation(e)
	if err != nil {
		return execution.Key{}, err
	}
	if err := conv.PutAttribute(CONTINUATION_GROUP_ATTRIBUTE, continuation.NewGroup(r.maxContinuations)); err != nil {
		return execution.Key{}, err
	}
	return execution.NewKey(conv.GetId(), r.continuationIds.Generate()), nil
}

func (r *ContinuationRepository) GetNextKey(e *execution.FlowExecution, previous execution.Key) (execution.Key, error) {
	return r.nextKey(previous, func() (string, error) {
		return r.continuationIds.Generate(), nil
	})
}

func (r *ContinuationRepository) GetFlowExecution(key execution.Key) (*execution.FlowExecution, error) {
	conv, err := r.getConversation(key)
	if err != nil {
		return nil, err
	}
	group, err := r.getGroup(conv)
	if err != nil {
		return nil, err
	}
	c, ok := group.Get(key.ContinuationId)
	if !ok {
		return nil, NoSuchFlowExecutionError{Key: key.String()}
	}
	m, err := r.continuations.Unmarshal(c)
	if err != nil {
		return nil, err
	}
	return r.rehydrate(m, conv, key)
}

func (r *ContinuationRepository) PutFlowExecution(key execution.Key, e *execution.FlowExecution) error {
	conv, err := r.getConversation(key)
	if err != nil {
		return err
	}
	group, err := r.getGroup(conv)
	if err != nil {
		return err
	}
	c, err := r.continuations.Create(e)
	if err != nil {
		return err
	}
	group.Add(key.ContinuationId, c)
	if err := conv.PutAttribute(CONTINUATION_GROUP_ATTRIBUTE, group); err != nil {
		return err
	}
	if err := r.putConversationScope(conv, e.GetConversationScope()); err != nil {
		return err
	}
	e.AssignKey(key)
	logger.Debug("flow execution stored", zap.String("key", key.String()), zap.Int("size", c.Size()), zap.Int("continuations", group.Len()))
	return nil
}

func (r *ContinuationRepository) ParseFlowExecutionKey(encoded string) (execution.Key, error) {
	return r.parseKey(encoded, r.continuationIds.Parse)
}

// getGroup creates the group when the conversation was begun by someone else.
func (r *ContinuationRepository) getGroup(conv conversation.Conversation) (*continuation.Group, error) {
	v, err := conv.GetAttribute(CONTINUATION_GROUP_ATTRIBUTE)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return continuation.NewGroup(r.maxContinuations), nil
	}
	group, ok := v.(*continuation.Group)
	if !ok {
		return nil, fmt.Errorf("conversation %s holds an unexpected continuation group of type %T", conv.GetId(), v)
	}
	return group, nil
}
