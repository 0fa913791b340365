package conversation

import (
	"context"
)

const NOOP_CONVERSATION_ID = "1"

var _ Manager = new(NoopManager)

// NoopManager hands out one shared conversation that stores nothing and
// never blocks. It suits repositories that keep all state on the client and
// do not need conversations tracked on the server.
type NoopManager struct{}

func NewNoopManager() *NoopManager {
	return &NoopManager{}
}

func (m *NoopManager) BeginConversation(params Parameters) (Conversation, error) {
	return noopConversation{}, nil
}

func (m *NoopManager) GetConversation(id string) (Conversation, error) {
	return noopConversation{}, nil
}

func (m *NoopManager) ParseConversationId(encoded string) (string, error) {
	return encoded, nil
}

type noopConversation struct{}

func (noopConversation) GetId() string                             { return NOOP_CONVERSATION_ID }
func (noopConversation) Lock(ctx context.Context) error            { return ctx.Err() }
func (noopConversation) Unlock()                                   {}
func (noopConversation) GetAttribute(name string) (any, error)     { return nil, nil }
func (noopConversation) PutAttribute(name string, value any) error { return nil }
func (noopConversation) RemoveAttribute(name string) error         { return nil }
func (noopConversation) End() error                                { return nil }
