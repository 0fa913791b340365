package config

import (
	"fmt"
	"time"

	"github.com/mohitkumar/flowkeeper/analytics"
	"github.com/mohitkumar/flowkeeper/continuation"
	"github.com/mohitkumar/flowkeeper/repository"
)

type StorageType string

const STORAGE_TYPE_REDIS StorageType = "redis"
const STORAGE_TYPE_INMEM StorageType = "memory"

type RepositoryType string

// REPOSITORY_TYPE_CONTINUATION keeps snapshots on the server, REPOSITORY_TYPE_CLIENT
// hands them to the caller inside the key.
const REPOSITORY_TYPE_CONTINUATION RepositoryType = "continuation"
const REPOSITORY_TYPE_CLIENT RepositoryType = "client"

type Config struct {
	RedisConfig        RedisStorageConfig
	HttpPort           int
	StorageType        StorageType
	RepositoryType     RepositoryType
	RepositoryConfig   repository.Config
	ContinuationSecret string
	ConversationConfig ConversationConfig
	RateLimit          float64
	RateBurst          int
	FlowDir            string
	LogLevel           string
	AnalyticsConfig    analytics.DataCollectorConfig
}

type ConversationConfig struct {
	Store            StorageType
	MaxConversations int
	Timeout          time.Duration
	// LockWait bounds how long a request waits for a conversation lock.
	LockWait time.Duration
	// LockLease is how long a redis conversation lock lives once acquired.
	LockLease time.Duration
}

type RedisStorageConfig struct {
	Addrs          []string
	Namespace      string
	Password       string
	PartitionCount int
}

func (c Config) Validate() error {
	switch c.RepositoryType {
	case REPOSITORY_TYPE_CONTINUATION, REPOSITORY_TYPE_CLIENT:
	default:
		return fmt.Errorf("unknown repository type '%s'", c.RepositoryType)
	}
	for _, st := range []StorageType{c.StorageType, c.ConversationConfig.Store} {
		if st != STORAGE_TYPE_INMEM && st != STORAGE_TYPE_REDIS {
			return fmt.Errorf("unknown storage type '%s'", st)
		}
	}
	if c.RepositoryConfig.MaxContinuations < continuation.UNBOUNDED {
		return fmt.Errorf("max continuations must be %d (unbounded) or more, got %d", continuation.UNBOUNDED, c.RepositoryConfig.MaxContinuations)
	}
	if c.ConversationConfig.LockWait < 0 || c.ConversationConfig.LockLease < 0 {
		return fmt.Errorf("lock wait and lock lease can not be negative")
	}
	if c.RepositoryType == REPOSITORY_TYPE_CONTINUATION && c.ConversationConfig.Store == STORAGE_TYPE_REDIS && len(c.RedisConfig.Addrs) == 0 {
		return fmt.Errorf("redis conversation store needs at least one redis address")
	}
	return nil
}
