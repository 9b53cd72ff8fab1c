package processes

import (
	"context"
	"testing"

	"github.com/mohitkumar/assist/assistance"
	"github.com/mohitkumar/assist/model"
	"github.com/stretchr/testify/require"
)

func TestGreeting(t *testing.T) {
	t.Run("test first login greets and schedules the screencast hint", func(t *testing.T) {
		f := newFixture()
		statement := f.loginStatement("s1", "u1")
		require.NoError(t, f.statements.Create(context.Background(), statement))

		produced, err := f.dispatcher.HandleStatement(context.Background(), statement, []string{GreetingTypeKey})
		require.NoError(t, err)
		require.Len(t, produced, 1)

		a := produced[0]
		require.Equal(t, GreetingTypeKey, a.TypeKey)
		require.Equal(t, model.StatusInProgress, a.State.Status)
		require.Len(t, a.Objects, 1)
		message, ok := model.FirstParameter(a.Objects[0].Parameters, ObjectParamKeyMessage)
		require.True(t, ok)
		text, _ := message.AsString()
		require.NotEmpty(t, text)

		pending := f.pendingScheduled(t)
		require.Len(t, pending, 1)
		require.Equal(t, screencastHintOperationKey, pending[0].OperationKey)
		require.Equal(t, a.AID, pending[0].AID)
	})

	t.Run("test returning user gets a plain welcome back", func(t *testing.T) {
		f := newFixture()
		studentModel, err := f.students.ReadOrCreate(context.Background(), "u1")
		require.NoError(t, err)
		studentModel.Experiences = []model.Experience{
			{StatementID: "old1"}, {StatementID: "old2"},
		}
		require.NoError(t, f.students.Save(context.Background(), studentModel))

		statement := f.loginStatement("s2", "u1")
		require.NoError(t, f.statements.Create(context.Background(), statement))

		produced, err := f.dispatcher.HandleStatement(context.Background(), statement, []string{GreetingTypeKey})
		require.NoError(t, err)
		require.Len(t, produced, 1)
		require.Equal(t, model.StatusCompleted, produced[0].State.Status)
		require.Len(t, produced[0].Objects, 1)
		require.Empty(t, f.pendingScheduled(t))
	})

	t.Run("test non login statements are not applicable", func(t *testing.T) {
		f := newFixture()
		statement := f.loginStatement("s3", "u1")
		statement.Verb.ID = model.VerbInteracted
		require.NoError(t, f.statements.Create(context.Background(), statement))

		produced, err := f.dispatcher.HandleStatement(context.Background(), statement, []string{GreetingTypeKey})
		require.NoError(t, err)
		require.Empty(t, produced)
	})

	t.Run("test screencast hint completes the instance", func(t *testing.T) {
		f := newFixture()
		statement := f.loginStatement("s4", "u1")
		require.NoError(t, f.statements.Create(context.Background(), statement))
		produced, err := f.dispatcher.HandleStatement(context.Background(), statement, []string{GreetingTypeKey})
		require.NoError(t, err)
		require.Len(t, produced, 1)
		aID := produced[0].AID

		opCtx := assistance.NewContext().SetString(assistance.ContextKeyAID, aID)
		res, err := f.dispatcher.HandleRequest(context.Background(), GreetingTypeKey, screencastHintOperationKey, opCtx)
		require.NoError(t, err)
		require.Len(t, res.Assistance, 1)

		updated := res.Assistance[0]
		require.Equal(t, model.StatusCompleted, updated.State.Status)
		var uris int
		for _, obj := range updated.Objects {
			if _, ok := model.FirstParameter(obj.Parameters, ObjectParamKeyURI); ok {
				uris++
			}
		}
		require.Equal(t, 1, uris)
		require.Empty(t, f.pendingScheduled(t))
	})
}
