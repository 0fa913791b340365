package execution

import (
	"fmt"
	"strings"
)

const CONVERSATION_ID_PREFIX = "_c"
const CONTINUATION_ID_PREFIX = "_k"

const KEY_FORMAT = CONVERSATION_ID_PREFIX + "<conversationId>" + CONTINUATION_ID_PREFIX + "<continuationId>"

// Key identifies one persisted snapshot of an execution: the conversation it
// belongs to and the continuation within that conversation.
type Key struct {
	ConversationId string
	ContinuationId string
}

func NewKey(conversationId string, continuationId string) Key {
	return Key{ConversationId: conversationId, ContinuationId: continuationId}
}

func (k Key) String() string {
	return CONVERSATION_ID_PREFIX + k.ConversationId + CONTINUATION_ID_PREFIX + k.ContinuationId
}

type KeyFormatError struct {
	Key     string
	Message string
}

func (e KeyFormatError) Error() string {
	return fmt.Sprintf("badly formatted flow execution key '%s', %s; the expected format is '%s'", e.Key, e.Message, KEY_FORMAT)
}

// ParseKey reverses Key.String. The first "_k" after the leading "_c"
// delimits the two ids, so the continuation id may itself contain "_k".
func ParseKey(encoded string) (Key, error) {
	if !strings.HasPrefix(encoded, CONVERSATION_ID_PREFIX) {
		return Key{}, KeyFormatError{Key: encoded, Message: "the conversation id prefix is missing"}
	}
	idx := strings.Index(encoded[len(CONVERSATION_ID_PREFIX):], CONTINUATION_ID_PREFIX)
	if idx == -1 {
		return Key{}, KeyFormatError{Key: encoded, Message: "the continuation id prefix is missing"}
	}
	idx += len(CONVERSATION_ID_PREFIX)
	conversationId := encoded[len(CONVERSATION_ID_PREFIX):idx]
	continuationId := encoded[idx+len(CONTINUATION_ID_PREFIX):]
	if len(conversationId) == 0 || len(continuationId) == 0 {
		return Key{}, KeyFormatError{Key: encoded, Message: "both the conversation id and the continuation id are required"}
	}
	return NewKey(conversationId, continuationId), nil
}
