package redis

import (
	"fmt"
	"strings"

	rd "github.com/redis/go-redis/v9"
)

type baseDao struct {
	redisClient rd.UniversalClient
	namespace   string
	ring        *Ring
}

func newBaseDao(conf Config) *baseDao {
	redisClient := rd.NewUniversalClient(&rd.UniversalOptions{
		Addrs:    conf.Addrs,
		Password: conf.Password,
		PoolSize: conf.PoolSize,
	})
	return &baseDao{
		redisClient: redisClient,
		namespace:   conf.Namespace,
		ring:        NewRing(RingConfig{PartitionCount: conf.PartitionCount}),
	}
}

func (bs *baseDao) getNamespaceKey(args ...string) string {
	return fmt.Sprintf("%s:%s", bs.namespace, strings.Join(args, ":"))
}

// getPartitionTag returns the cluster hash tag of the partition owning id.
func (bs *baseDao) getPartitionTag(id string) string {
	return fmt.Sprintf("{%d}", bs.ring.GetPartition(id))
}

func (bs *baseDao) Close() error {
	return bs.redisClient.Close()
}
