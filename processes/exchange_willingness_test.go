package processes

import (
	"context"
	"testing"

	"github.com/mohitkumar/assist/assistance"
	"github.com/mohitkumar/assist/model"
	"github.com/stretchr/testify/require"
)

func initiateWillingness(t *testing.T, f *fixture, userID string) *model.Assistance {
	t.Helper()
	opCtx := assistance.NewContext().SetString(assistance.ContextKeyUserID, userID)
	res, err := f.dispatcher.HandleRequest(context.Background(), ExchangeWillingnessTypeKey, assistance.OperationKeyInitiation, opCtx)
	require.NoError(t, err)
	require.Len(t, res.Assistance, 1)
	return res.Assistance[0]
}

func optionResponse(userID, option string) model.AssistanceObject {
	return model.NewAssistanceObject(userID, model.Parameter{
		Key:   ObjectParamKeyOptionsResponse,
		Value: model.StringValue(option),
	})
}

func TestExchangeWillingness(t *testing.T) {
	t.Run("test initiation asks the question and arms the timeout", func(t *testing.T) {
		f := newFixture()
		a := initiateWillingness(t, f, "u1")

		require.Equal(t, model.StatusInProgress, a.State.Status)
		require.Equal(t, []string{operationKeyWaitForOptionResponse}, a.NextOperationKeys)
		require.Len(t, a.Objects, 2)
		options, ok := model.FirstParameter(a.Objects[1].Parameters, ObjectParamKeyOptions)
		require.True(t, ok)
		choices, ok := options.AsObject()
		require.True(t, ok)
		require.Contains(t, choices, OptionKeyYes)
		require.Contains(t, choices, OptionKeyNo)

		pending := f.pendingScheduled(t)
		require.Len(t, pending, 1)
		require.Equal(t, operationKeyAbortWaitForOptionResponse, pending[0].OperationKey)
	})

	t.Run("test yes answer completes and keeps the user cooperative", func(t *testing.T) {
		f := newFixture()
		a := initiateWillingness(t, f, "u1")

		produced, err := f.dispatcher.AppendResponse(context.Background(), a.AID,
			[]model.AssistanceObject{optionResponse("u1", OptionKeyYes)})
		require.NoError(t, err)
		require.Len(t, produced, 1)
		require.Equal(t, model.StatusCompleted, produced[0].State.Status)

		studentModel, err := f.students.ReadOrCreate(context.Background(), "u1")
		require.NoError(t, err)
		require.True(t, studentModel.Cooperativeness)
		require.Empty(t, f.pendingScheduled(t))
	})

	t.Run("test no answer records the refusal", func(t *testing.T) {
		f := newFixture()
		a := initiateWillingness(t, f, "u1")

		_, err := f.dispatcher.AppendResponse(context.Background(), a.AID,
			[]model.AssistanceObject{optionResponse("u1", OptionKeyNo)})
		require.NoError(t, err)

		studentModel, err := f.students.ReadOrCreate(context.Background(), "u1")
		require.NoError(t, err)
		require.False(t, studentModel.Cooperativeness)
	})

	t.Run("test unknown answer parks the question", func(t *testing.T) {
		f := newFixture()
		a := initiateWillingness(t, f, "u1")

		produced, err := f.dispatcher.AppendResponse(context.Background(), a.AID,
			[]model.AssistanceObject{optionResponse("u1", "maybe")})
		require.NoError(t, err)
		require.Empty(t, produced)

		stored, err := f.store.Read(context.Background(), a.AID)
		require.NoError(t, err)
		require.Equal(t, model.StatusInProgress, stored.State.Status)
		require.Equal(t, []string{operationKeyWaitForOptionResponse}, stored.NextOperationKeys)
		require.Len(t, f.pendingScheduled(t), 1)
	})

	t.Run("test timeout aborts the question", func(t *testing.T) {
		f := newFixture()
		a := initiateWillingness(t, f, "u1")

		opCtx := assistance.NewContext().SetString(assistance.ContextKeyAID, a.AID)
		res, err := f.dispatcher.HandleRequest(context.Background(), ExchangeWillingnessTypeKey, operationKeyAbortWaitForOptionResponse, opCtx)
		require.NoError(t, err)
		require.Len(t, res.Assistance, 1)
		require.Equal(t, model.StatusAborted, res.Assistance[0].State.Status)
		require.Empty(t, f.pendingScheduled(t))

		stored, err := f.store.Read(context.Background(), a.AID)
		require.NoError(t, err)
		require.Empty(t, stored.NextOperationKeys)
	})
}
