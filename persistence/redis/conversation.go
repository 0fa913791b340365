package redis

import (
	"context"
	"encoding/gob"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mohitkumar/flowkeeper/conversation"
	"github.com/mohitkumar/flowkeeper/logger"
	"github.com/mohitkumar/flowkeeper/persistence"
	"github.com/mohitkumar/flowkeeper/util"
	rd "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const CONVERSATION_KEY string = "CONVERSATION"

const (
	attributePrefix = "attr:"
	metaName        = "meta:name"
	metaCaption     = "meta:caption"
	metaDescription = "meta:description"
	metaCreated     = "meta:created"
)

const (
	defaultLockLease     = 30 * time.Second
	defaultLockRetry     = 50 * time.Millisecond
	unlockBackgroundWait = 3 * time.Second
)

// KEYS[1] conversation hash, ARGV[1] field, ARGV[2] value, ARGV[3] ttl in ms
var putAttributeScript = rd.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
if tonumber(ARGV[3]) > 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[3])
end
return 1
`)

// KEYS[1] conversation hash, ARGV[1] field
var removeAttributeScript = rd.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
redis.call('HDEL', KEYS[1], ARGV[1])
return 1
`)

// KEYS[1] lock key, ARGV[1] token of the holder
var unlockScript = rd.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

var _ conversation.Manager = new(redisConversationManager)

// redisConversationManager shares conversations between engine nodes. The
// attributes of a conversation live in one hash, its lock in a lease key
// next to it.
type redisConversationManager struct {
	*baseDao
	timeout      time.Duration
	lockLease    time.Duration
	lockRetry    time.Duration
	uidGenerator util.UidGenerator
}

func NewRedisConversationManager(conf Config, convConf ConversationConfig, uidGenerator util.UidGenerator) *redisConversationManager {
	if convConf.LockLease <= 0 {
		convConf.LockLease = defaultLockLease
	}
	if convConf.LockRetryInterval <= 0 {
		convConf.LockRetryInterval = defaultLockRetry
	}
	return &redisConversationManager{
		baseDao:      newBaseDao(conf),
		timeout:      convConf.Timeout,
		lockLease:    convConf.LockLease,
		lockRetry:    convConf.LockRetryInterval,
		uidGenerator: uidGenerator,
	}
}

func (m *redisConversationManager) conversationKey(id string) string {
	return m.getNamespaceKey(CONVERSATION_KEY, m.getPartitionTag(id), id)
}

func (m *redisConversationManager) lockKey(id string) string {
	return m.getNamespaceKey(CONVERSATION_KEY, m.getPartitionTag(id), id, "lock")
}

func (m *redisConversationManager) BeginConversation(params conversation.Parameters) (conversation.Conversation, error) {
	id := m.uidGenerator.Generate()
	key := m.conversationKey(id)
	ctx := context.Background()
	_, err := m.redisClient.TxPipelined(ctx, func(pipe rd.Pipeliner) error {
		pipe.HSet(ctx, key,
			metaName, params.Name,
			metaCaption, params.Caption,
			metaDescription, params.Description,
			metaCreated, strconv.FormatInt(time.Now().UnixMilli(), 10))
		if m.timeout > 0 {
			pipe.PExpire(ctx, key, m.timeout)
		}
		return nil
	})
	if err != nil {
		logger.Error("error in starting conversation", zap.String("conversation", id), zap.Error(err))
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	logger.Debug("conversation started", zap.String("conversation", id), zap.String("name", params.Name))
	return &redisConversation{id: id, manager: m}, nil
}

func (m *redisConversationManager) GetConversation(id string) (conversation.Conversation, error) {
	if err := m.touch(context.Background(), id); err != nil {
		return nil, err
	}
	return &redisConversation{id: id, manager: m}, nil
}

func (m *redisConversationManager) ParseConversationId(encoded string) (string, error) {
	id, err := m.uidGenerator.Parse(encoded)
	if err != nil {
		return "", conversation.BadConversationIdError{Id: encoded, Cause: err}
	}
	return id, nil
}

// touch fails for conversations that ended or expired and slides the idle
// timeout of the others.
func (m *redisConversationManager) touch(ctx context.Context, id string) error {
	key := m.conversationKey(id)
	n, err := m.redisClient.Exists(ctx, key).Result()
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	if n == 0 {
		return conversation.NoSuchConversationError{Id: id}
	}
	if m.timeout > 0 {
		if err := m.redisClient.PExpire(ctx, key, m.timeout).Err(); err != nil {
			return persistence.StorageLayerError{Message: err.Error()}
		}
	}
	return nil
}

var _ conversation.Conversation = new(redisConversation)

type redisConversation struct {
	id      string
	manager *redisConversationManager
	mu      sync.Mutex
	token   string
}

func (c *redisConversation) GetId() string {
	return c.id
}

func (c *redisConversation) Lock(ctx context.Context) error {
	if err := c.manager.touch(ctx, c.id); err != nil {
		return err
	}
	key := c.manager.lockKey(c.id)
	token := uuid.NewString()
	for {
		ok, err := c.manager.redisClient.SetNX(ctx, key, token, c.manager.lockLease).Result()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return persistence.StorageLayerError{Message: err.Error()}
		}
		if ok {
			c.mu.Lock()
			c.token = token
			c.mu.Unlock()
			// the previous holder may have ended the conversation while we waited
			if err := c.manager.touch(ctx, c.id); err != nil {
				c.Unlock()
				return err
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.manager.lockRetry):
		}
	}
}

func (c *redisConversation) Unlock() {
	c.mu.Lock()
	token := c.token
	c.token = ""
	c.mu.Unlock()
	if len(token) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), unlockBackgroundWait)
	defer cancel()
	if err := unlockScript.Run(ctx, c.manager.redisClient, []string{c.manager.lockKey(c.id)}, token).Err(); err != nil {
		logger.Error("error in releasing conversation lock", zap.String("conversation", c.id), zap.Error(err))
	}
}

func (c *redisConversation) GetAttribute(name string) (any, error) {
	ctx := context.Background()
	data, err := c.manager.redisClient.HGet(ctx, c.manager.conversationKey(c.id), attributePrefix+name).Bytes()
	if errors.Is(err, rd.Nil) {
		if err := c.manager.touch(ctx, c.id); err != nil {
			return nil, err
		}
		return nil, nil
	}
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return decodeAttribute(data)
}

func (c *redisConversation) PutAttribute(name string, value any) error {
	if value == nil {
		return c.RemoveAttribute(name)
	}
	data, err := encodeAttribute(value)
	if err != nil {
		return err
	}
	ctx := context.Background()
	res, err := putAttributeScript.Run(ctx, c.manager.redisClient,
		[]string{c.manager.conversationKey(c.id)}, attributePrefix+name, data, c.manager.timeout.Milliseconds()).Int()
	if err != nil {
		logger.Error("error in saving conversation attribute", zap.String("conversation", c.id), zap.String("attribute", name), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	if res == 0 {
		return conversation.NoSuchConversationError{Id: c.id}
	}
	return nil
}

func (c *redisConversation) RemoveAttribute(name string) error {
	ctx := context.Background()
	res, err := removeAttributeScript.Run(ctx, c.manager.redisClient,
		[]string{c.manager.conversationKey(c.id)}, attributePrefix+name).Int()
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	if res == 0 {
		return conversation.NoSuchConversationError{Id: c.id}
	}
	return nil
}

func (c *redisConversation) End() error {
	ctx := context.Background()
	err := c.manager.redisClient.Del(ctx, c.manager.conversationKey(c.id), c.manager.lockKey(c.id)).Err()
	if err != nil {
		logger.Error("error in ending conversation", zap.String("conversation", c.id), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
	logger.Debug("conversation ended", zap.String("conversation", c.id))
	return nil
}

func init() {
	gob.Register(map[string]any{})
	gob.Register([]any{})
}

// Attribute values travel as gob; concrete types stored behind interfaces must
// be registered with encoding/gob.
var attributeCodec util.Codec[any] = util.GobCodec[any]{}

func encodeAttribute(value any) ([]byte, error) {
	data, err := attributeCodec.Encode(value)
	if err != nil {
		return nil, persistence.StorageLayerError{Message: "attribute can not be encoded: " + err.Error()}
	}
	return data, nil
}

func decodeAttribute(data []byte) (any, error) {
	value, err := attributeCodec.Decode(data)
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return *value, nil
}
