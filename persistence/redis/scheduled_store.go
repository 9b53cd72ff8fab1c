package redis

import (
	"context"
	"strconv"
	"time"

	rd "github.com/go-redis/redis/v9"
	"github.com/google/uuid"
	"github.com/mohitkumar/assist/logger"
	"github.com/mohitkumar/assist/model"
	"github.com/mohitkumar/assist/persistence"
	"github.com/mohitkumar/assist/util"
	"go.uber.org/zap"
)

const scheduledOperationsKey = "SCHEDULED_OPERATIONS"

var _ persistence.ScheduledOperationStore = new(scheduledOperationStore)

// scheduledOperationStore keeps scheduled invocations in a sorted set scored
// by due time, so a sweep is a single range query.
type scheduledOperationStore struct {
	baseDao
	encDec util.EncoderDecoder[model.ScheduledOperation]
}

func NewScheduledOperationStore(conf Config) *scheduledOperationStore {
	return &scheduledOperationStore{
		baseDao: *newBaseDao(conf),
		encDec:  util.NewJsonEncoderDecoder[model.ScheduledOperation](),
	}
}

func (s *scheduledOperationStore) Create(ctx context.Context, op *model.ScheduledOperation) (*model.ScheduledOperation, error) {
	key := s.getNamespaceKey(scheduledOperationsKey)
	stored := *op
	stored.ID = uuid.New().String()
	data, err := s.encDec.Encode(stored)
	if err != nil {
		return nil, err
	}
	member := rd.Z{
		Score:  float64(stored.DueAt.UnixMilli()),
		Member: string(data),
	}
	if err := s.redisClient.ZAdd(ctx, key, member).Err(); err != nil {
		logger.Error("error scheduling operation", zap.String("operation", op.OperationKey), zap.Error(err))
		return nil, persistence.StorageError{Op: "schedule", Err: err}
	}
	return &stored, nil
}

func (s *scheduledOperationStore) ReadDue(ctx context.Context, before time.Time) ([]*model.ScheduledOperation, error) {
	key := s.getNamespaceKey(scheduledOperationsKey)
	opt := &rd.ZRangeBy{
		Min: "0",
		Max: strconv.FormatInt(before.UnixMilli(), 10),
	}
	members, err := s.redisClient.ZRangeByScore(ctx, key, opt).Result()
	if err != nil {
		logger.Error("error reading due operations", zap.Error(err))
		return nil, persistence.StorageError{Op: "readDue", Err: err}
	}
	res := make([]*model.ScheduledOperation, 0, len(members))
	for _, member := range members {
		op, err := s.encDec.Decode([]byte(member))
		if err != nil {
			logger.Error("can not decode scheduled operation", zap.Error(err))
			continue
		}
		res = append(res, op)
	}
	return res, nil
}

func (s *scheduledOperationStore) Delete(ctx context.Context, id string) error {
	return s.deleteMatching(ctx, func(op *model.ScheduledOperation) bool {
		return op.ID == id
	})
}

func (s *scheduledOperationStore) DeleteAllForAssistance(ctx context.Context, aID string) error {
	return s.deleteMatching(ctx, func(op *model.ScheduledOperation) bool {
		return op.AID == aID
	})
}

func (s *scheduledOperationStore) deleteMatching(ctx context.Context, match func(*model.ScheduledOperation) bool) error {
	key := s.getNamespaceKey(scheduledOperationsKey)
	members, err := s.redisClient.ZRange(ctx, key, 0, -1).Result()
	if err != nil {
		return persistence.StorageError{Op: "delete", Err: err}
	}
	var toRemove []interface{}
	for _, member := range members {
		op, err := s.encDec.Decode([]byte(member))
		if err != nil {
			continue
		}
		if match(op) {
			toRemove = append(toRemove, member)
		}
	}
	if len(toRemove) == 0 {
		return nil
	}
	if err := s.redisClient.ZRem(ctx, key, toRemove...).Err(); err != nil {
		return persistence.StorageError{Op: "delete", Err: err}
	}
	return nil
}
