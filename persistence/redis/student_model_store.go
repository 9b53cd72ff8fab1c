package redis

import (
	"context"
	"errors"

	rd "github.com/go-redis/redis/v9"
	"github.com/mohitkumar/assist/logger"
	"github.com/mohitkumar/assist/model"
	"github.com/mohitkumar/assist/persistence"
	"github.com/mohitkumar/assist/util"
	"go.uber.org/zap"
)

const studentModelsKey = "STUDENT_MODELS"

var _ persistence.StudentModelStore = new(studentModelStore)

type studentModelStore struct {
	baseDao
	encDec util.EncoderDecoder[model.StudentModel]
}

func NewStudentModelStore(conf Config) *studentModelStore {
	return &studentModelStore{
		baseDao: *newBaseDao(conf),
		encDec:  util.NewJsonEncoderDecoder[model.StudentModel](),
	}
}

func (s *studentModelStore) ReadOrCreate(ctx context.Context, userID string) (*model.StudentModel, error) {
	key := s.getNamespaceKey(studentModelsKey)
	data, err := s.redisClient.HGet(ctx, key, userID).Result()
	if err != nil {
		if !errors.Is(err, rd.Nil) {
			return nil, persistence.StorageError{Op: "readStudentModel", Err: err}
		}
		studentModel := model.NewStudentModel(userID)
		if err := s.Save(ctx, studentModel); err != nil {
			return nil, err
		}
		return studentModel, nil
	}
	return s.encDec.Decode([]byte(data))
}

func (s *studentModelStore) Save(ctx context.Context, studentModel *model.StudentModel) error {
	key := s.getNamespaceKey(studentModelsKey)
	data, err := s.encDec.Encode(*studentModel)
	if err != nil {
		return err
	}
	if err := s.redisClient.HSet(ctx, key, studentModel.UserID, string(data)).Err(); err != nil {
		logger.Error("error saving student model", zap.String("userId", studentModel.UserID), zap.Error(err))
		return persistence.StorageError{Op: "saveStudentModel", Err: err}
	}
	return nil
}
