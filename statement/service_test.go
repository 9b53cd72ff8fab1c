package statement

import (
	"context"
	"testing"
	"time"

	"github.com/mohitkumar/assist/model"
	"github.com/mohitkumar/assist/persistence/memory"
	"github.com/stretchr/testify/require"
)

func newStatement(id, userID, verb string) *model.Statement {
	return &model.Statement{
		ID:        id,
		Timestamp: time.Now(),
		Actor:     model.StatementActor{Account: model.StatementAccount{Name: userID}},
		Verb:      model.StatementVerb{ID: verb},
		Object:    model.StatementObject{ID: "https://example.org/task/1"},
	}
}

func TestStatementService(t *testing.T) {
	type fixture struct {
		statements *memory.StatementStore
		students   *memory.StudentModelStore
		service    *Service
	}
	newFixture := func() *fixture {
		statements := memory.NewStatementStore()
		students := memory.NewStudentModelStore()
		return &fixture{
			statements: statements,
			students:   students,
			service:    NewService(statements, students),
		}
	}

	t.Run("test statement is stored and folded into the student model", func(t *testing.T) {
		f := newFixture()
		err := f.service.Process(context.Background(), newStatement("s1", "u1", model.VerbLoggedIn))
		require.NoError(t, err)

		_, err = f.statements.Read(context.Background(), "s1")
		require.NoError(t, err)

		studentModel, err := f.students.ReadOrCreate(context.Background(), "u1")
		require.NoError(t, err)
		require.True(t, studentModel.Online)
		require.Len(t, studentModel.Experiences, 1)
		require.Equal(t, model.VerbLoggedIn, studentModel.Experiences[0].VerbID)
	})

	t.Run("test missing id is assigned", func(t *testing.T) {
		f := newFixture()
		statement := newStatement("", "u1", model.VerbInteracted)
		require.NoError(t, f.service.Process(context.Background(), statement))
		require.NotEmpty(t, statement.ID)
	})

	t.Run("test re-delivered statement is processed once", func(t *testing.T) {
		f := newFixture()
		statement := newStatement("s1", "u1", model.VerbInteracted)
		require.NoError(t, f.service.Process(context.Background(), statement))
		require.NoError(t, f.service.Process(context.Background(), statement))

		studentModel, err := f.students.ReadOrCreate(context.Background(), "u1")
		require.NoError(t, err)
		require.Len(t, studentModel.Experiences, 1)
	})

	t.Run("test logout takes the user offline", func(t *testing.T) {
		f := newFixture()
		require.NoError(t, f.service.Process(context.Background(), newStatement("s1", "u1", model.VerbLoggedIn)))
		require.NoError(t, f.service.Process(context.Background(), newStatement("s2", "u1", model.VerbLoggedOut)))

		studentModel, err := f.students.ReadOrCreate(context.Background(), "u1")
		require.NoError(t, err)
		require.False(t, studentModel.Online)
		require.Len(t, studentModel.Experiences, 2)
	})

	t.Run("test assisted statements do not touch the student model", func(t *testing.T) {
		f := newFixture()
		require.NoError(t, f.service.Process(context.Background(), newStatement("s1", "u1", model.VerbAssisted)))

		studentModel, err := f.students.ReadOrCreate(context.Background(), "u1")
		require.NoError(t, err)
		require.Empty(t, studentModel.Experiences)
	})

	t.Run("test answered result is recorded", func(t *testing.T) {
		f := newFixture()
		statement := newStatement("s1", "u1", model.VerbAnswered)
		statement.Result = model.BoolValue(true)
		require.NoError(t, f.service.Process(context.Background(), statement))

		studentModel, err := f.students.ReadOrCreate(context.Background(), "u1")
		require.NoError(t, err)
		require.Len(t, studentModel.Experiences, 1)
		success, ok := studentModel.Experiences[0].Result.AsBool()
		require.True(t, ok)
		require.True(t, success)
	})
}
