package redis

import (
	"github.com/buraksezer/consistent"
	"github.com/spaolacci/murmur3"
)

const DEFAULT_PARTITION_COUNT = 271

type hasher struct {
}

func NewHasher() *hasher {
	return &hasher{}
}

func (h hasher) Sum64(data []byte) uint64 {
	return murmur3.Sum64(data)
}

type RingConfig struct {
	PartitionCount int
}

// Ring maps ids onto a fixed set of partitions.
type Ring struct {
	RingConfig
	hring *consistent.Consistent
}

func NewRing(c RingConfig) *Ring {
	if c.PartitionCount <= 0 {
		c.PartitionCount = DEFAULT_PARTITION_COUNT
	}
	cfg := consistent.Config{
		PartitionCount:    c.PartitionCount,
		ReplicationFactor: 20,
		Load:              1.25,
		Hasher:            NewHasher(),
	}
	return &Ring{
		RingConfig: c,
		hring:      consistent.New(nil, cfg),
	}
}

func (r *Ring) GetPartition(key string) int {
	return r.hring.FindPartitionID([]byte(key))
}
