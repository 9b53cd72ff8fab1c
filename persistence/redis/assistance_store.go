package redis

import (
	"context"
	"errors"
	"time"

	rd "github.com/go-redis/redis/v9"
	"github.com/google/uuid"
	"github.com/mohitkumar/assist/logger"
	"github.com/mohitkumar/assist/model"
	"github.com/mohitkumar/assist/persistence"
	"github.com/mohitkumar/assist/util"
	"go.uber.org/zap"
)

const assistanceKey = "ASSISTANCE"

var _ persistence.AssistanceStore = new(assistanceStore)

type assistanceStore struct {
	baseDao
	encDec util.EncoderDecoder[model.Assistance]
}

func NewAssistanceStore(conf Config) *assistanceStore {
	return &assistanceStore{
		baseDao: *newBaseDao(conf),
		encDec:  util.NewJsonEncoderDecoder[model.Assistance](),
	}
}

func (s *assistanceStore) Create(ctx context.Context, assistance *model.Assistance) (*model.Assistance, error) {
	stored := *assistance
	stored.AID = uuid.New().String()
	stored.Timestamp = time.Now()
	stored.Version = 1
	stored.Objects = assignObjectIDs(stored.AID, assistance.Objects)
	if err := s.write(ctx, &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

func (s *assistanceStore) Read(ctx context.Context, aID string) (*model.Assistance, error) {
	key := s.getNamespaceKey(assistanceKey)
	data, err := s.redisClient.HGet(ctx, key, aID).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, persistence.ErrNotFound
		}
		logger.Error("error reading assistance", zap.String("aId", aID), zap.Error(err))
		return nil, persistence.StorageError{Op: "read", Err: err}
	}
	return s.encDec.Decode([]byte(data))
}

func (s *assistanceStore) Update(ctx context.Context, assistance *model.Assistance) (*model.Assistance, error) {
	key := s.getNamespaceKey(assistanceKey)
	var result *model.Assistance

	txn := func(tx *rd.Tx) error {
		data, err := tx.HGet(ctx, key, assistance.AID).Result()
		if err != nil {
			if errors.Is(err, rd.Nil) {
				return persistence.ErrNotFound
			}
			return persistence.StorageError{Op: "update", Err: err}
		}
		existing, err := s.encDec.Decode([]byte(data))
		if err != nil {
			return err
		}
		if existing.State.Status.Terminal() {
			return persistence.ErrTerminalInstance
		}
		if assistance.Version != existing.Version {
			return persistence.ErrVersionConflict
		}

		newObjects := assignObjectIDs(assistance.AID, assistance.Objects)
		updated := *assistance
		updated.Timestamp = existing.Timestamp
		updated.Objects = append(append([]model.AssistanceObject{}, existing.Objects...), newObjects...)
		updated.Version = existing.Version + 1

		encoded, err := s.encDec.Encode(updated)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe rd.Pipeliner) error {
			return pipe.HSet(ctx, key, assistance.AID, string(encoded)).Err()
		})
		if err != nil {
			return err
		}
		result = &updated
		result.Objects = newObjects
		return nil
	}

	if err := s.redisClient.Watch(ctx, txn, key); err != nil {
		if errors.Is(err, rd.TxFailedErr) {
			return nil, persistence.ErrVersionConflict
		}
		return nil, err
	}
	return result, nil
}

func (s *assistanceStore) AppendObjects(ctx context.Context, aID string, objects []model.AssistanceObject) (*model.Assistance, error) {
	existing, err := s.Read(ctx, aID)
	if err != nil {
		return nil, err
	}
	if existing.State.Status.Terminal() {
		return nil, persistence.ErrTerminalInstance
	}
	newObjects := assignObjectIDs(aID, objects)
	existing.Objects = append(existing.Objects, newObjects...)
	existing.Version++
	if err := s.write(ctx, existing); err != nil {
		return nil, err
	}
	result := *existing
	result.Objects = newObjects
	return &result, nil
}

func (s *assistanceStore) ResetNextOperationKeys(ctx context.Context, aID string) error {
	existing, err := s.Read(ctx, aID)
	if err != nil {
		return err
	}
	existing.NextOperationKeys = []string{}
	return s.write(ctx, existing)
}

func (s *assistanceStore) ReadByStatus(ctx context.Context, statuses ...model.StateStatus) ([]*model.Assistance, error) {
	key := s.getNamespaceKey(assistanceKey)
	all, err := s.redisClient.HGetAll(ctx, key).Result()
	if err != nil {
		logger.Error("error reading assistance records", zap.Error(err))
		return nil, persistence.StorageError{Op: "readByStatus", Err: err}
	}
	var res []*model.Assistance
	for _, data := range all {
		assistance, err := s.encDec.Decode([]byte(data))
		if err != nil {
			logger.Error("can not decode assistance record", zap.Error(err))
			continue
		}
		for _, status := range statuses {
			if assistance.State.Status == status {
				res = append(res, assistance)
				break
			}
		}
	}
	return res, nil
}

func (s *assistanceStore) write(ctx context.Context, assistance *model.Assistance) error {
	key := s.getNamespaceKey(assistanceKey)
	data, err := s.encDec.Encode(*assistance)
	if err != nil {
		return err
	}
	if err := s.redisClient.HSet(ctx, key, assistance.AID, string(data)).Err(); err != nil {
		logger.Error("error saving assistance", zap.String("aId", assistance.AID), zap.Error(err))
		return persistence.StorageError{Op: "write", Err: err}
	}
	return nil
}

func assignObjectIDs(aID string, objects []model.AssistanceObject) []model.AssistanceObject {
	res := make([]model.AssistanceObject, len(objects))
	copy(res, objects)
	for i := range res {
		res[i].AoID = uuid.New().String()
		res[i].AID = aID
		res[i].Timestamp = time.Now()
	}
	return res
}
