package redis

import (
	"context"
	"errors"
	"sort"

	"github.com/mohitkumar/flowkeeper/logger"
	"github.com/mohitkumar/flowkeeper/model"
	"github.com/mohitkumar/flowkeeper/persistence"
	"github.com/mohitkumar/flowkeeper/util"
	rd "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const FLOW_DEF string = "FLOW"
const FLOW_DEF_INDEX string = "FLOWS"

type redisMetadataStorage struct {
	*baseDao
	flowCodec util.Codec[model.Flow]
}

func NewRedisMetadataStorage(conf Config) *redisMetadataStorage {
	return &redisMetadataStorage{
		baseDao:   newBaseDao(conf),
		flowCodec: util.JsonCodec[model.Flow]{},
	}
}

func (rfd *redisMetadataStorage) SaveFlowDefinition(fl model.Flow) error {
	key := rfd.getNamespaceKey(FLOW_DEF, fl.Id)
	ctx := context.Background()
	data, err := rfd.flowCodec.Encode(fl)
	if err != nil {
		return err
	}
	_, err = rfd.redisClient.TxPipelined(ctx, func(pipe rd.Pipeliner) error {
		pipe.Set(ctx, key, data, 0)
		pipe.SAdd(ctx, rfd.getNamespaceKey(FLOW_DEF_INDEX), fl.Id)
		return nil
	})
	if err != nil {
		logger.Error("error in saving flow definition", zap.String("flow", fl.Id), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (rfd *redisMetadataStorage) DeleteFlowDefinition(id string) error {
	key := rfd.getNamespaceKey(FLOW_DEF, id)
	ctx := context.Background()
	_, err := rfd.redisClient.TxPipelined(ctx, func(pipe rd.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.SRem(ctx, rfd.getNamespaceKey(FLOW_DEF_INDEX), id)
		return nil
	})
	if err != nil {
		logger.Error("error in deleting flow definition", zap.String("flow", id), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (rfd *redisMetadataStorage) GetFlowDefinition(id string) (*model.Flow, error) {
	key := rfd.getNamespaceKey(FLOW_DEF, id)
	ctx := context.Background()
	val, err := rfd.redisClient.Get(ctx, key).Bytes()
	if errors.Is(err, rd.Nil) {
		return nil, persistence.NotFoundError{Kind: "flow", Id: id}
	}
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	fl, err := rfd.flowCodec.Decode(val)
	if err != nil {
		logger.Error("stored flow definition is unreadable", zap.String("flow", id), zap.Error(err))
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return fl, nil
}

func (rfd *redisMetadataStorage) ListFlowDefinitions() ([]string, error) {
	ids, err := rfd.redisClient.SMembers(context.Background(), rfd.getNamespaceKey(FLOW_DEF_INDEX)).Result()
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	sort.Strings(ids)
	return ids, nil
}
