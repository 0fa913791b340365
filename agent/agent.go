package agent

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mohitkumar/flowkeeper/action"
	"github.com/mohitkumar/flowkeeper/analytics"
	"github.com/mohitkumar/flowkeeper/config"
	"github.com/mohitkumar/flowkeeper/continuation"
	"github.com/mohitkumar/flowkeeper/conversation"
	"github.com/mohitkumar/flowkeeper/execution"
	"github.com/mohitkumar/flowkeeper/executor"
	"github.com/mohitkumar/flowkeeper/logger"
	"github.com/mohitkumar/flowkeeper/metadata"
	"github.com/mohitkumar/flowkeeper/model"
	"github.com/mohitkumar/flowkeeper/persistence/redis"
	"github.com/mohitkumar/flowkeeper/repository"
	"github.com/mohitkumar/flowkeeper/rest"
	"github.com/mohitkumar/flowkeeper/util"
	"go.uber.org/zap"
)

type closer interface {
	Close() error
}

type closerFunc func() error

func (f closerFunc) Close() error {
	return f()
}

type Agent struct {
	Config          config.Config
	Actions         *action.Registry
	metadataService metadata.MetadataService
	factory         *execution.Factory
	conversations   conversation.Manager
	repository      repository.Repository
	executor        *executor.FlowExecutor
	httpServer      *rest.Server
	closers         []closer
	shutdown        bool
	shutdownLock    sync.Mutex
}

// New wires an agent. Actions holds the user actions flows may call; it may
// be nil.
func New(config config.Config, actions *action.Registry) (*Agent, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if len(config.LogLevel) != 0 {
		if err := logger.SetLevel(config.LogLevel); err != nil {
			return nil, err
		}
	}
	if actions == nil {
		actions = action.NewRegistry()
	}
	a := &Agent{
		Config:  config,
		Actions: actions,
	}
	setup := []func() error{
		a.setupMetadataService,
		a.loadFlows,
		a.setupExecutionFactory,
		a.setupConversationManager,
		a.setupRepository,
		a.setupExecutor,
		a.setupHttpServer,
	}
	for _, fn := range setup {
		if err := fn(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *Agent) setupMetadataService() error {
	var storage metadata.MetadataStorage
	switch a.Config.StorageType {
	case config.STORAGE_TYPE_REDIS:
		rs := redis.NewRedisMetadataStorage(a.redisConfig())
		a.closers = append(a.closers, rs)
		storage = rs
	default:
		storage = metadata.NewInMemoryStorage()
	}
	a.metadataService = metadata.NewMetadataService(storage, a.Actions)
	return nil
}

// loadFlows saves every *.json definition found in FlowDir.
func (a *Agent) loadFlows() error {
	if len(a.Config.FlowDir) == 0 {
		return nil
	}
	files, err := filepath.Glob(filepath.Join(a.Config.FlowDir, "*.json"))
	if err != nil {
		return err
	}
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		var fl model.Flow
		if err := json.Unmarshal(data, &fl); err != nil {
			return fmt.Errorf("invalid flow definition %s: %w", file, err)
		}
		if err := a.metadataService.SaveFlow(fl); err != nil {
			return fmt.Errorf("invalid flow definition %s: %w", file, err)
		}
		logger.Info("loaded flow definition", zap.String("flow", fl.Id), zap.String("file", file))
	}
	return nil
}

func (a *Agent) setupExecutionFactory() error {
	if err := analytics.RegisterViews(); err != nil {
		return err
	}
	collector, err := analytics.InitDataCollector(a.Config.AnalyticsConfig)
	if err != nil {
		return err
	}
	if lf, ok := collector.(*analytics.LogFileDataCollector); ok {
		a.closers = append(a.closers, closerFunc(lf.Sync))
	}
	a.factory = execution.NewFactory(execution.LoggingListener{}, analytics.NewMetricsListener(), collector)
	return nil
}

func (a *Agent) setupConversationManager() error {
	uids := util.NewRandomUidGenerator()
	conf := a.Config.ConversationConfig
	switch {
	case a.Config.RepositoryType == config.REPOSITORY_TYPE_CLIENT && conf.Store != config.STORAGE_TYPE_REDIS:
		a.conversations = conversation.NewNoopManager()
	case conf.Store == config.STORAGE_TYPE_REDIS:
		m := redis.NewRedisConversationManager(a.redisConfig(), redis.ConversationConfig{
			Timeout:   conf.Timeout,
			LockLease: conf.LockLease,
		}, uids)
		a.closers = append(a.closers, m)
		a.conversations = m
	default:
		a.conversations = conversation.NewLocalManager(conversation.LocalConfig{
			MaxConversations: conf.MaxConversations,
			Timeout:          conf.Timeout,
		}, uids)
	}
	return nil
}

func (a *Agent) setupRepository() error {
	restorer := execution.NewRestorer(a.metadataService, a.factory)
	switch a.Config.RepositoryType {
	case config.REPOSITORY_TYPE_CLIENT:
		var sealer *continuation.Sealer
		if len(a.Config.ContinuationSecret) != 0 {
			var err error
			if sealer, err = continuation.NewSealer([]byte(a.Config.ContinuationSecret)); err != nil {
				return err
			}
		}
		a.repository = repository.NewClientRepository(a.Config.RepositoryConfig, a.conversations, restorer, sealer)
	default:
		a.repository = repository.NewContinuationRepository(a.Config.RepositoryConfig, a.conversations, restorer, util.NewRandomUidGenerator())
	}
	return nil
}

func (a *Agent) setupExecutor() error {
	a.executor = executor.NewFlowExecutor(a.metadataService, a.factory, a.repository)
	return nil
}

func (a *Agent) setupHttpServer() error {
	var err error
	a.httpServer, err = rest.NewServer(rest.Config{
		HttpPort:  a.Config.HttpPort,
		LockWait:  a.Config.ConversationConfig.LockWait,
		RateLimit: rest.RateLimitConfig{RPS: a.Config.RateLimit, Burst: a.Config.RateBurst},
	}, a.metadataService, a.executor)
	return err
}

func (a *Agent) redisConfig() redis.Config {
	return redis.Config{
		Addrs:          a.Config.RedisConfig.Addrs,
		Namespace:      a.Config.RedisConfig.Namespace,
		Password:       a.Config.RedisConfig.Password,
		PartitionCount: a.Config.RedisConfig.PartitionCount,
	}
}

func (a *Agent) GetExecutor() *executor.FlowExecutor {
	return a.executor
}

func (a *Agent) GetMetadataService() metadata.MetadataService {
	return a.metadataService
}

func (a *Agent) Start() error {
	go func() {
		if err := a.httpServer.Start(); err != nil {
			_ = a.Shutdown()
			panic(err)
		}
	}()
	return nil
}

func (a *Agent) Shutdown() error {
	logger.Info("shutting down server")
	a.shutdownLock.Lock()
	defer a.shutdownLock.Unlock()
	if a.shutdown {
		return nil
	}
	a.shutdown = true

	shutdown := []func() error{a.httpServer.Stop}
	for _, c := range a.closers {
		shutdown = append(shutdown, c.Close)
	}
	for _, fn := range shutdown {
		if err := fn(); err != nil {
			return err
		}
	}
	// syncing stdout fails on some terminals
	_ = logger.Sync()
	return nil
}
