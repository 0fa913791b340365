package util

import (
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// UidGenerator produces unique ids for conversations and continuations and
// parses their string form back, rejecting malformed ids.
type UidGenerator interface {
	Generate() string
	Parse(id string) (string, error)
}

type InvalidIdError struct {
	Id     string
	Reason string
}

func (e InvalidIdError) Error() string {
	return fmt.Sprintf("invalid id '%s': %s", e.Id, e.Reason)
}

var _ UidGenerator = new(RandomUidGenerator)

type RandomUidGenerator struct{}

func NewRandomUidGenerator() *RandomUidGenerator {
	return &RandomUidGenerator{}
}

func (g *RandomUidGenerator) Generate() string {
	return uuid.NewString()
}

func (g *RandomUidGenerator) Parse(id string) (string, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", InvalidIdError{Id: id, Reason: err.Error()}
	}
	return u.String(), nil
}

var _ UidGenerator = new(SequentialUidGenerator)

// SequentialUidGenerator hands out 1, 2, 3... It is only unique within one
// process and is meant for tests and single node setups.
type SequentialUidGenerator struct {
	next atomic.Int64
}

func NewSequentialUidGenerator() *SequentialUidGenerator {
	return &SequentialUidGenerator{}
}

func (g *SequentialUidGenerator) Generate() string {
	return strconv.FormatInt(g.next.Add(1), 10)
}

func (g *SequentialUidGenerator) Parse(id string) (string, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return "", InvalidIdError{Id: id, Reason: "not a positive integer"}
	}
	return id, nil
}
