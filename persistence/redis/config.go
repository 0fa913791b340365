package redis

import "time"

type Config struct {
	Addrs     []string
	Namespace string
	PoolSize  int
	Password  string
	// PartitionCount is the number of hash tags conversation keys are spread
	// over. Keys of one conversation always share a tag.
	PartitionCount int
}

type ConversationConfig struct {
	// Timeout expires conversations idle for longer. Zero means never.
	Timeout time.Duration
	// LockLease is how long an acquired conversation lock lives. A holder
	// that dies releases the lock once the lease runs out, so it must exceed
	// the longest request.
	LockLease time.Duration
	// LockRetryInterval is how long Lock waits between attempts.
	LockRetryInterval time.Duration
}
