package statement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/mohitkumar/assist/logger"
	"github.com/mohitkumar/assist/model"
	"github.com/mohitkumar/assist/persistence"
	"go.uber.org/zap"
)

// Service ingests learner activity statements: it persists them and folds
// them into the student model before dispatch sees them.
type Service struct {
	statements persistence.StatementStore
	students   persistence.StudentModelStore
	seen       *cache.Cache
}

func NewService(statements persistence.StatementStore, students persistence.StudentModelStore) *Service {
	return &Service{
		statements: statements,
		students:   students,
		seen:       cache.New(5*time.Minute, 10*time.Minute),
	}
}

// Process stores the statement and updates the student model. Re-delivered
// statements are recognized by id and processed once.
func (s *Service) Process(ctx context.Context, statement *model.Statement) error {
	if statement.ID == "" {
		statement.ID = uuid.New().String()
	}
	if statement.Timestamp.IsZero() {
		statement.Timestamp = time.Now()
	}
	if _, duplicate := s.seen.Get(statement.ID); duplicate {
		logger.Debug("skipping re-delivered statement", zap.String("statementId", statement.ID))
		return nil
	}
	if err := s.statements.Create(ctx, statement); err != nil {
		return err
	}
	s.seen.SetDefault(statement.ID, true)

	if statement.Verb.ID == model.VerbAssisted {
		return nil
	}
	userID := statement.UserID()
	if userID == "" {
		logger.Warn("statement without user received", zap.String("statementId", statement.ID))
		return nil
	}

	studentModel, err := s.students.ReadOrCreate(ctx, userID)
	if err != nil {
		return err
	}
	studentModel.Online = statement.Verb.ID != model.VerbLoggedOut

	experience := model.Experience{
		Timestamp:   time.Now(),
		StatementID: statement.ID,
		ObjectID:    statement.Object.ID,
		VerbID:      statement.Verb.ID,
	}
	if statement.Verb.ID == model.VerbAnswered || statement.Verb.ID == model.VerbCompleted {
		experience.Result = statement.Result
	}
	studentModel.Experiences = append(studentModel.Experiences, experience)

	return s.students.Save(ctx, studentModel)
}
