package processes

import (
	"context"
	"time"

	"github.com/mohitkumar/assist/assistance"
	"github.com/mohitkumar/assist/i18n"
	"github.com/mohitkumar/assist/logger"
	"github.com/mohitkumar/assist/model"
	"github.com/mohitkumar/assist/persistence"
	"go.uber.org/zap"
)

const ExchangeWillingnessTypeKey = "ask_for_exchange_willingness"

const (
	operationKeyWaitForOptionResponse      = "wait_for_option_response"
	operationKeyAbortWaitForOptionResponse = "abort_wait_for_option_response"
)

// optionResponseTimeout is how long a user may take to answer before the
// question is withdrawn.
const optionResponseTimeout = 30 * time.Second

// ExchangeWillingness proactively asks one user whether they are willing to
// exchange with other learners and records the answer on the student model.
type ExchangeWillingness struct {
	store    persistence.AssistanceStore
	students persistence.StudentModelStore
	def      *assistance.Definition
}

var _ assistance.Process = new(ExchangeWillingness)

func NewExchangeWillingness(store persistence.AssistanceStore, students persistence.StudentModelStore) *ExchangeWillingness {
	e := &ExchangeWillingness{
		store:    store,
		students: students,
	}
	e.def = assistance.NewDefinition().
		RegisterOperation(assistance.OperationKeyInitiation, &willingnessInitiation{p: e}).
		RegisterOperation(operationKeyWaitForOptionResponse, &waitForOptionResponse{p: e}).
		RegisterOperation(operationKeyAbortWaitForOptionResponse, &abortWaitForOptionResponse{p: e})
	return e
}

func (e *ExchangeWillingness) Key() string           { return ExchangeWillingnessTypeKey }
func (e *ExchangeWillingness) Kind() assistance.Kind { return assistance.KindProactive }

func (e *ExchangeWillingness) Description() string {
	return i18n.T(i18n.LocaleEN, "assistance.ask_for_exchange_willingness.description")
}

func (e *ExchangeWillingness) Parameters() []model.Parameter {
	return []model.Parameter{{Key: TypeParamKeyUserID, Value: model.StringValue("string")}}
}

func (e *ExchangeWillingness) Definition() *assistance.Definition { return e.def }

type willingnessInitiation struct {
	p *ExchangeWillingness
}

func (o *willingnessInitiation) Spec() assistance.Spec {
	return assistance.Spec{
		TargetStatus: model.StatusInProgress,
		Subsequents: []assistance.SubsequentOperation{
			assistance.Triggered(operationKeyWaitForOptionResponse),
			assistance.Scheduled(operationKeyAbortWaitForOptionResponse, optionResponseTimeout),
		},
	}
}

// The question is raised by explicit request, never by a statement.
func (o *willingnessInitiation) IsApplicable(ctx *assistance.Context) bool {
	if ctx.Has(assistance.ContextKeyStatementID) {
		return false
	}
	_, err := ctx.GetString(assistance.ContextKeyUserID)
	return err == nil
}

func (o *willingnessInitiation) Execute(ctx *assistance.Context) (*assistance.Result, error) {
	userID, err := ctx.GetString(assistance.ContextKeyUserID)
	if err != nil {
		return nil, err
	}

	options := model.ObjectValue(map[string]model.Value{
		OptionKeyYes: model.StringValue(i18n.T(i18n.LocaleDE, "assistance.ask_for_exchange_willingness.operation.option_yes")),
		OptionKeyNo:  model.StringValue(i18n.T(i18n.LocaleDE, "assistance.ask_for_exchange_willingness.operation.option_no")),
	})
	a := model.NewAssistance(userID, []model.AssistanceObject{
		model.NewAssistanceObject(userID, model.Parameter{
			Key:   ObjectParamKeyOperation,
			Value: model.StringValue(OperationValueEnableOptions),
		}),
		model.NewAssistanceObject(userID,
			model.Parameter{
				Key:   ObjectParamKeyMessage,
				Value: model.StringValue(i18n.T(i18n.LocaleDE, "assistance.ask_for_exchange_willingness.operation.message_question_for_exchange_willingness")),
			},
			model.Parameter{
				Key:   ObjectParamKeyOptions,
				Value: options,
			},
		),
	})
	return &assistance.Result{Assistance: []*model.Assistance{a}}, nil
}

type waitForOptionResponse struct {
	p *ExchangeWillingness
}

func (o *waitForOptionResponse) Spec() assistance.Spec {
	return assistance.Spec{
		TargetStatus:       model.StatusInProgress,
		InProgressRequired: true,
	}
}

func (o *waitForOptionResponse) IsApplicable(ctx *assistance.Context) bool {
	if ctx.Has(assistance.ContextKeyStatementID) {
		return false
	}
	objects, err := ctx.ResponseObjects()
	if err != nil {
		return false
	}
	for _, object := range objects {
		if _, ok := model.FirstParameter(object.Parameters, ObjectParamKeyOptionsResponse); ok {
			return true
		}
	}
	return false
}

func (o *waitForOptionResponse) Execute(ctx *assistance.Context) (*assistance.Result, error) {
	aID, err := ctx.GetString(assistance.ContextKeyAID)
	if err != nil {
		return nil, err
	}
	a, err := o.p.store.Read(context.Background(), aID)
	if err != nil {
		return nil, err
	}
	objects, err := ctx.ResponseObjects()
	if err != nil {
		return nil, err
	}
	var response string
	for _, object := range objects {
		if v, ok := model.FirstParameter(object.Parameters, ObjectParamKeyOptionsResponse); ok {
			response, _ = v.AsString()
			break
		}
	}

	if response != OptionKeyYes && response != OptionKeyNo {
		logger.Warn("received unknown options response", zap.String("response", response), zap.String("aId", aID))
		return &assistance.Result{Directives: assistance.Directives{PreventProgress: true}}, nil
	}

	cooperative := response == OptionKeyYes
	studentModel, err := o.p.students.ReadOrCreate(context.Background(), a.UserID)
	if err != nil {
		return nil, err
	}
	studentModel.Cooperativeness = cooperative
	if err := o.p.students.Save(context.Background(), studentModel); err != nil {
		return nil, err
	}

	confirmationKey := "assistance.ask_for_exchange_willingness.operation.system_message_confirmation_considered_in_future"
	if !cooperative {
		confirmationKey = "assistance.ask_for_exchange_willingness.operation.system_message_confirmation_not_considered_in_future"
	}
	a.Objects = []model.AssistanceObject{
		model.NewAssistanceObject(a.UserID, model.Parameter{
			Key:   ObjectParamKeyOperation,
			Value: model.StringValue(OperationValueDisableOptions),
		}),
		model.NewAssistanceObject(a.UserID, model.Parameter{
			Key:   ObjectParamKeySystemMessage,
			Value: model.StringValue(i18n.T(i18n.LocaleDE, confirmationKey)),
		}),
	}
	return &assistance.Result{
		Assistance: []*model.Assistance{a},
		Directives: assistance.Directives{
			TargetStatus:    model.StatusCompleted,
			Subsequents:     []assistance.SubsequentOperation{},
			DeleteScheduled: true,
		},
	}, nil
}

type abortWaitForOptionResponse struct {
	p *ExchangeWillingness
}

func (o *abortWaitForOptionResponse) Spec() assistance.Spec {
	return assistance.Spec{
		TargetStatus:       model.StatusAborted,
		Subsequents:        []assistance.SubsequentOperation{},
		InProgressRequired: true,
		DeleteScheduled:    true,
	}
}

func (o *abortWaitForOptionResponse) IsApplicable(ctx *assistance.Context) bool {
	return true
}

func (o *abortWaitForOptionResponse) Execute(ctx *assistance.Context) (*assistance.Result, error) {
	aID, err := ctx.GetString(assistance.ContextKeyAID)
	if err != nil {
		return nil, err
	}
	a, err := o.p.store.Read(context.Background(), aID)
	if err != nil {
		return nil, err
	}
	a.Objects = []model.AssistanceObject{
		model.NewAssistanceObject(a.UserID, model.Parameter{
			Key:   ObjectParamKeyOperation,
			Value: model.StringValue(OperationValueDisableOptions),
		}),
		model.NewAssistanceObject(a.UserID, model.Parameter{
			Key:   ObjectParamKeySystemMessage,
			Value: model.StringValue(i18n.T(i18n.LocaleDE, "assistance.ask_for_exchange_willingness.operation.system_message_no_option_selected")),
		}),
	}
	return &assistance.Result{Assistance: []*model.Assistance{a}}, nil
}
