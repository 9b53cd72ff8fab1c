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

const statementsKey = "STATEMENTS"

var _ persistence.StatementStore = new(statementStore)

type statementStore struct {
	baseDao
	encDec util.EncoderDecoder[model.Statement]
}

func NewStatementStore(conf Config) *statementStore {
	return &statementStore{
		baseDao: *newBaseDao(conf),
		encDec:  util.NewJsonEncoderDecoder[model.Statement](),
	}
}

func (s *statementStore) Create(ctx context.Context, statement *model.Statement) error {
	key := s.getNamespaceKey(statementsKey)
	data, err := s.encDec.Encode(*statement)
	if err != nil {
		return err
	}
	if err := s.redisClient.HSet(ctx, key, statement.ID, string(data)).Err(); err != nil {
		logger.Error("error saving statement", zap.String("statementId", statement.ID), zap.Error(err))
		return persistence.StorageError{Op: "createStatement", Err: err}
	}
	return nil
}

func (s *statementStore) Read(ctx context.Context, id string) (*model.Statement, error) {
	key := s.getNamespaceKey(statementsKey)
	data, err := s.redisClient.HGet(ctx, key, id).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, persistence.ErrNotFound
		}
		return nil, persistence.StorageError{Op: "readStatement", Err: err}
	}
	return s.encDec.Decode([]byte(data))
}
