package repository

import (
	"errors"
	"fmt"

	"github.com/mohitkumar/flowkeeper/conversation"
	"github.com/mohitkumar/flowkeeper/execution"
	"github.com/mohitkumar/flowkeeper/flow"
	"github.com/mohitkumar/flowkeeper/logger"
	"go.uber.org/zap"
)

const CONTINUATION_GROUP_ATTRIBUTE = "continuationGroup"
const CONVERSATION_SCOPE_ATTRIBUTE = "conversationScope"

// conversationRepository holds what both strategies share: every execution
// lives in its own conversation, which also carries its conversation scope.
type conversationRepository struct {
	conversations            conversation.Manager
	restorer                 *execution.Restorer
	alwaysGenerateNewNextKey bool
}

func (r *conversationRepository) beginConversation(e *execution.FlowExecution) (conversation.Conversation, error) {
	definition := e.GetDefinition()
	conv, err := r.conversations.BeginConversation(conversation.Parameters{
		Name:        definition.Id,
		Caption:     definition.Caption,
		Description: definition.Description,
	})
	if err != nil {
		return nil, err
	}
	logger.Debug("conversation begun for flow execution", zap.String("flow", definition.Id), zap.String("conversation", conv.GetId()))
	return conv, nil
}

func (r *conversationRepository) getConversation(key execution.Key) (conversation.Conversation, error) {
	conv, err := r.conversations.GetConversation(key.ConversationId)
	if err != nil {
		var noSuch conversation.NoSuchConversationError
		if errors.As(err, &noSuch) {
			return nil, NoSuchFlowExecutionError{Key: key.String(), Cause: err}
		}
		return nil, err
	}
	return conv, nil
}

func (r *conversationRepository) GetLock(key execution.Key) (Lock, error) {
	return r.getConversation(key)
}

func (r *conversationRepository) RemoveFlowExecution(key execution.Key) error {
	conv, err := r.getConversation(key)
	if err != nil {
		return err
	}
	if err := conv.End(); err != nil {
		return err
	}
	logger.Debug("flow execution removed", zap.String("key", key.String()))
	return nil
}

func (r *conversationRepository) nextKey(previous execution.Key, newContinuationId func() (string, error)) (execution.Key, error) {
	if !r.alwaysGenerateNewNextKey {
		return previous, nil
	}
	id, err := newContinuationId()
	if err != nil {
		return execution.Key{}, err
	}
	return execution.NewKey(previous.ConversationId, id), nil
}

func (r *conversationRepository) parseKey(encoded string, parseContinuationId func(string) (string, error)) (execution.Key, error) {
	key, err := execution.ParseKey(encoded)
	if err != nil {
		return execution.Key{}, err
	}
	conversationId, err := r.conversations.ParseConversationId(key.ConversationId)
	if err != nil {
		return execution.Key{}, execution.KeyFormatError{Key: encoded, Message: err.Error()}
	}
	continuationId, err := parseContinuationId(key.ContinuationId)
	if err != nil {
		return execution.Key{}, execution.KeyFormatError{Key: encoded, Message: fmt.Sprintf("invalid continuation id: %v", err)}
	}
	return execution.NewKey(conversationId, continuationId), nil
}

func (r *conversationRepository) getConversationScope(conv conversation.Conversation) (flow.Scope, error) {
	v, err := conv.GetAttribute(CONVERSATION_SCOPE_ATTRIBUTE)
	if err != nil || v == nil {
		return nil, err
	}
	switch scope := v.(type) {
	case flow.Scope:
		return scope, nil
	case map[string]any:
		return flow.Scope(scope), nil
	}
	return nil, fmt.Errorf("conversation %s holds an unexpected conversation scope of type %T", conv.GetId(), v)
}

func (r *conversationRepository) putConversationScope(conv conversation.Conversation, scope flow.Scope) error {
	return conv.PutAttribute(CONVERSATION_SCOPE_ATTRIBUTE, scope.Copy())
}

func (r *conversationRepository) rehydrate(m *execution.Memento, conv conversation.Conversation, key execution.Key) (*execution.FlowExecution, error) {
	scope, err := r.getConversationScope(conv)
	if err != nil {
		return nil, err
	}
	e, err := r.restorer.Rehydrate(m, scope)
	if err != nil {
		return nil, err
	}
	e.AssignKey(key)
	return e, nil
}
