package conversation

import (
	"context"
	"fmt"
)

// Parameters describe a conversation when it begins.
type Parameters struct {
	Name        string
	Caption     string
	Description string
}

// Conversation is a logical dialogue with a client. It owns an attribute
// store and a mutual exclusion lock that serializes requests against it.
type Conversation interface {
	GetId() string
	// Lock blocks until the conversation is held by the caller or ctx is done.
	Lock(ctx context.Context) error
	// Unlock never fails; releasing an ended or unlocked conversation is a no-op.
	Unlock()
	GetAttribute(name string) (any, error)
	PutAttribute(name string, value any) error
	RemoveAttribute(name string) error
	End() error
}

type Manager interface {
	BeginConversation(params Parameters) (Conversation, error)
	GetConversation(id string) (Conversation, error)
	// ParseConversationId validates the string form of an id. A malformed id
	// is reported differently from an id that is well formed but unknown.
	ParseConversationId(encoded string) (string, error)
}

type NoSuchConversationError struct {
	Id string
}

func (e NoSuchConversationError) Error() string {
	return fmt.Sprintf("no conversation could be found with id '%s'; perhaps it has ended or expired", e.Id)
}

type BadConversationIdError struct {
	Id    string
	Cause error
}

func (e BadConversationIdError) Error() string {
	return fmt.Sprintf("badly formatted conversation id '%s': %v", e.Id, e.Cause)
}

func (e BadConversationIdError) Unwrap() error {
	return e.Cause
}
