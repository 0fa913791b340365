package conversation

import (
	"context"
	"sync"
	"time"

	c "github.com/patrickmn/go-cache"
	"github.com/mohitkumar/flowkeeper/logger"
	"github.com/mohitkumar/flowkeeper/util"
	"go.uber.org/zap"
)

var _ Manager = new(LocalManager)

type LocalConfig struct {
	// MaxConversations bounds live conversations; beginning one more ends the
	// oldest. Zero or less means no bound.
	MaxConversations int
	// Timeout ends conversations idle for longer. Zero means never.
	Timeout time.Duration
}

// LocalManager keeps conversations in process memory.
type LocalManager struct {
	mu               sync.Mutex
	conversations    *c.Cache
	order            []string
	maxConversations int
	timeout          time.Duration
	uidGenerator     util.UidGenerator
}

func NewLocalManager(conf LocalConfig, uidGenerator util.UidGenerator) *LocalManager {
	expiration := conf.Timeout
	if expiration <= 0 {
		expiration = c.NoExpiration
	}
	m := &LocalManager{
		conversations:    c.New(expiration, 10*time.Minute),
		maxConversations: conf.MaxConversations,
		timeout:          expiration,
		uidGenerator:     uidGenerator,
	}
	m.conversations.OnEvicted(func(id string, _ any) {
		logger.Debug("conversation removed", zap.String("conversation", id))
	})
	return m
}

func (m *LocalManager) BeginConversation(params Parameters) (Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.maxConversations > 0 {
		m.pruneOrder()
		for len(m.order) >= m.maxConversations {
			oldest := m.order[0]
			m.order = m.order[1:]
			logger.Info("max conversations reached, ending oldest conversation", zap.String("conversation", oldest))
			m.conversations.Delete(oldest)
		}
	}
	conv := &localConversation{
		id:         m.uidGenerator.Generate(),
		manager:    m,
		params:     params,
		lock:       make(chan struct{}, 1),
		attributes: make(map[string]any),
	}
	m.conversations.Set(conv.id, conv, c.DefaultExpiration)
	m.order = append(m.order, conv.id)
	logger.Debug("conversation started", zap.String("conversation", conv.id), zap.String("name", params.Name))
	return conv, nil
}

func (m *LocalManager) GetConversation(id string) (Conversation, error) {
	return m.lookup(id)
}

func (m *LocalManager) ParseConversationId(encoded string) (string, error) {
	id, err := m.uidGenerator.Parse(encoded)
	if err != nil {
		return "", BadConversationIdError{Id: encoded, Cause: err}
	}
	return id, nil
}

// Count returns the number of live conversations.
func (m *LocalManager) Count() int {
	return m.conversations.ItemCount()
}

// lookup also slides the idle timeout of the conversation. Replace only
// succeeds while the item is still cached, so an ended conversation is never
// brought back.
func (m *LocalManager) lookup(id string) (*localConversation, error) {
	v, ok := m.conversations.Get(id)
	if !ok {
		return nil, NoSuchConversationError{Id: id}
	}
	conv := v.(*localConversation)
	if m.timeout != c.NoExpiration {
		if err := m.conversations.Replace(id, conv, c.DefaultExpiration); err != nil {
			return nil, NoSuchConversationError{Id: id}
		}
	}
	return conv, nil
}

func (m *LocalManager) remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversations.Delete(id)
	for i, o := range m.order {
		if o == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// pruneOrder drops ids of conversations that already expired or ended.
func (m *LocalManager) pruneOrder() {
	live := m.order[:0]
	for _, id := range m.order {
		if _, ok := m.conversations.Get(id); ok {
			live = append(live, id)
		}
	}
	m.order = live
}

var _ Conversation = new(localConversation)

type localConversation struct {
	id         string
	manager    *LocalManager
	params     Parameters
	lock       chan struct{}
	mu         sync.Mutex
	attributes map[string]any
}

func (lc *localConversation) GetId() string {
	return lc.id
}

func (lc *localConversation) Lock(ctx context.Context) error {
	if _, err := lc.manager.lookup(lc.id); err != nil {
		return err
	}
	select {
	case lc.lock <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	// the previous holder may have ended the conversation while we waited
	if _, err := lc.manager.lookup(lc.id); err != nil {
		lc.Unlock()
		return err
	}
	return nil
}

func (lc *localConversation) Unlock() {
	select {
	case <-lc.lock:
	default:
	}
}

func (lc *localConversation) GetAttribute(name string) (any, error) {
	if _, err := lc.manager.lookup(lc.id); err != nil {
		return nil, err
	}
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.attributes[name], nil
}

func (lc *localConversation) PutAttribute(name string, value any) error {
	if _, err := lc.manager.lookup(lc.id); err != nil {
		return err
	}
	lc.mu.Lock()
	defer lc.mu.Unlock()
	lc.attributes[name] = value
	return nil
}

func (lc *localConversation) RemoveAttribute(name string) error {
	if _, err := lc.manager.lookup(lc.id); err != nil {
		return err
	}
	lc.mu.Lock()
	defer lc.mu.Unlock()
	delete(lc.attributes, name)
	return nil
}

// End removes the conversation. The lock stays with its holder, whose Unlock
// wakes waiters that then fail their liveness check.
func (lc *localConversation) End() error {
	lc.manager.remove(lc.id)
	logger.Debug("conversation ended", zap.String("conversation", lc.id))
	return nil
}
