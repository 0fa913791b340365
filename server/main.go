package main

import (
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mohitkumar/flowkeeper/agent"
	"github.com/mohitkumar/flowkeeper/analytics"
	"github.com/mohitkumar/flowkeeper/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type cfg struct {
	config.Config
}
type cli struct {
	cfg cfg
}

func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("config-file", "", "Path to config file.")
	cmd.Flags().String("repository-type", "continuation", "where snapshots live: continuation (server side) or client")
	cmd.Flags().Int("max-continuations", 30, "continuations kept per conversation, -1 for unbounded")
	cmd.Flags().Bool("always-generate-new-next-key", true, "mint a new key on every request")
	cmd.Flags().Bool("compress", false, "gzip continuation snapshots")
	cmd.Flags().String("continuation-secret", "", "secret sealing client side continuations")
	cmd.Flags().String("conversation-store", "memory", "conversation store: memory or redis")
	cmd.Flags().Int("max-conversations", 0, "conversations kept in memory, 0 for unbounded")
	cmd.Flags().Duration("conversation-timeout", 0, "idle time after which a conversation expires, 0 for never")
	cmd.Flags().Duration("lock-wait", 0, "how long a request waits for its conversation lock, 0 for no bound")
	cmd.Flags().Duration("lock-lease", 30*time.Second, "lifetime of an acquired redis conversation lock, must exceed the longest request")
	cmd.Flags().String("redis-addr", "localhost:6379", "comma separated list of redis host:port")
	cmd.Flags().String("redis-password", "", "redis password")
	cmd.Flags().String("namespace", "flowkeeper", "namespace used in storage")
	cmd.Flags().Int("partition-count", 271, "hash tag partitions of conversation keys")
	cmd.Flags().String("storage-impl", "memory", "implementation of flow definition storage")
	cmd.Flags().Int("http-port", 8080, "http port for rest endpoints")
	cmd.Flags().Float64("rate-limit", 0, "requests per second per client, 0 disables")
	cmd.Flags().Int("rate-burst", 20, "burst of the per client rate limit")
	cmd.Flags().String("flow-dir", "", "directory of json flow definitions loaded at boot")
	cmd.Flags().String("log-level", "info", "log level")
	cmd.Flags().String("analytics-file", "", "file receiving flow lifecycle data")
	return viper.BindPFlags(cmd.Flags())
}

func (c *cli) setupConfig(cmd *cobra.Command, args []string) error {
	var err error

	configFile, err := cmd.Flags().GetString("config-file")
	if err != nil {
		return err
	}
	if len(configFile) != 0 {
		viper.SetConfigFile(configFile)
		if err = viper.ReadInConfig(); err != nil {
			// it's ok if config file doesn't exist
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return err
			}
		}
	}

	c.cfg.RepositoryType = config.RepositoryType(viper.GetString("repository-type"))
	c.cfg.RepositoryConfig.MaxContinuations = viper.GetInt("max-continuations")
	c.cfg.RepositoryConfig.AlwaysGenerateNewNextKey = viper.GetBool("always-generate-new-next-key")
	c.cfg.RepositoryConfig.Compress = viper.GetBool("compress")
	c.cfg.ContinuationSecret = viper.GetString("continuation-secret")
	c.cfg.ConversationConfig.Store = config.StorageType(viper.GetString("conversation-store"))
	c.cfg.ConversationConfig.MaxConversations = viper.GetInt("max-conversations")
	c.cfg.ConversationConfig.Timeout = viper.GetDuration("conversation-timeout")
	c.cfg.ConversationConfig.LockWait = viper.GetDuration("lock-wait")
	c.cfg.ConversationConfig.LockLease = viper.GetDuration("lock-lease")
	c.cfg.RedisConfig.Addrs = strings.Split(viper.GetString("redis-addr"), ",")
	c.cfg.RedisConfig.Password = viper.GetString("redis-password")
	c.cfg.RedisConfig.Namespace = viper.GetString("namespace")
	c.cfg.RedisConfig.PartitionCount = viper.GetInt("partition-count")
	c.cfg.StorageType = config.StorageType(viper.GetString("storage-impl"))
	c.cfg.HttpPort = viper.GetInt("http-port")
	c.cfg.RateLimit = viper.GetFloat64("rate-limit")
	c.cfg.RateBurst = viper.GetInt("rate-burst")
	c.cfg.FlowDir = viper.GetString("flow-dir")
	c.cfg.LogLevel = viper.GetString("log-level")
	if file := viper.GetString("analytics-file"); len(file) != 0 {
		c.cfg.AnalyticsConfig = analytics.DataCollectorConfig{
			FileName:      file,
			CollectorType: analytics.LOG_FILE_DATA_COLLECTOR,
		}
	}
	return nil
}

func (c *cli) run(cmd *cobra.Command, args []string) error {
	agent, err := agent.New(c.cfg.Config, nil)
	if err != nil {
		return err
	}
	if err = agent.Start(); err != nil {
		return err
	}
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	return agent.Shutdown()
}

func main() {
	cli := &cli{}

	cmd := &cobra.Command{
		Use:     "flowkeeper",
		PreRunE: cli.setupConfig,
		RunE:    cli.run,
	}

	if err := setupFlags(cmd); err != nil {
		log.Fatal(err)
	}

	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
