package processes

import (
	"context"
	"time"

	"github.com/mohitkumar/assist/assistance"
	"github.com/mohitkumar/assist/i18n"
	"github.com/mohitkumar/assist/model"
	"github.com/mohitkumar/assist/persistence"
)

const GreetingTypeKey = "greeting"

const screencastHintOperationKey = "screencast_hint_operation"

const toolcheckScreencastURI = "https://youtu.be/AJPM0PD0kx4"

// Greeting welcomes a user on login. First-time users additionally get a
// deferred hint pointing to the tool check screencast.
type Greeting struct {
	store      persistence.AssistanceStore
	statements persistence.StatementStore
	students   persistence.StudentModelStore
	def        *assistance.Definition
}

var _ assistance.Process = new(Greeting)

func NewGreeting(store persistence.AssistanceStore, statements persistence.StatementStore, students persistence.StudentModelStore) *Greeting {
	g := &Greeting{
		store:      store,
		statements: statements,
		students:   students,
	}
	g.def = assistance.NewDefinition().
		RegisterOperation(assistance.OperationKeyInitiation, &greetingInitiation{p: g}).
		RegisterOperation(screencastHintOperationKey, &screencastHintOperation{p: g})
	return g
}

func (g *Greeting) Key() string           { return GreetingTypeKey }
func (g *Greeting) Kind() assistance.Kind { return assistance.KindReactive }

func (g *Greeting) Description() string {
	return i18n.T(i18n.LocaleEN, "assistance.greeting.description")
}

func (g *Greeting) Parameters() []model.Parameter      { return nil }
func (g *Greeting) Definition() *assistance.Definition { return g.def }

type greetingInitiation struct {
	p *Greeting
}

func (o *greetingInitiation) Spec() assistance.Spec {
	return assistance.Spec{TargetStatus: model.StatusCompleted}
}

func (o *greetingInitiation) IsApplicable(ctx *assistance.Context) bool {
	statementID, err := ctx.GetString(assistance.ContextKeyStatementID)
	if err != nil {
		return false
	}
	statement, err := o.p.statements.Read(context.Background(), statementID)
	if err != nil {
		return false
	}
	return statement.Verb.ID == model.VerbLoggedIn
}

func (o *greetingInitiation) Execute(ctx *assistance.Context) (*assistance.Result, error) {
	statementID, err := ctx.GetString(assistance.ContextKeyStatementID)
	if err != nil {
		return nil, err
	}
	statement, err := o.p.statements.Read(context.Background(), statementID)
	if err != nil {
		return nil, err
	}
	userID := statement.UserID()
	studentModel, err := o.p.students.ReadOrCreate(context.Background(), userID)
	if err != nil {
		return nil, err
	}

	var message string
	var directives assistance.Directives
	if len(studentModel.Experiences) <= 1 {
		message = i18n.T(i18n.LocaleDE, "assistance.greeting.operation.greeting")
		directives = assistance.Directives{
			TargetStatus: model.StatusInProgress,
			Subsequents: []assistance.SubsequentOperation{
				assistance.Scheduled(screencastHintOperationKey, 5*time.Second),
			},
		}
	} else {
		message = i18n.T(i18n.LocaleDE, "assistance.greeting.operation.welcome_back")
	}

	a := model.NewAssistance(userID, []model.AssistanceObject{
		model.NewAssistanceObject(userID, model.Parameter{
			Key:   ObjectParamKeyMessage,
			Value: model.StringValue(message),
		}),
	})
	return &assistance.Result{
		Assistance: []*model.Assistance{a},
		Directives: directives,
	}, nil
}

type screencastHintOperation struct {
	p *Greeting
}

func (o *screencastHintOperation) Spec() assistance.Spec {
	return assistance.Spec{
		TargetStatus:       model.StatusCompleted,
		Subsequents:        []assistance.SubsequentOperation{},
		InProgressRequired: true,
		DeleteScheduled:    true,
		OwnerOnlyAnnounce:  true,
	}
}

func (o *screencastHintOperation) IsApplicable(ctx *assistance.Context) bool {
	return true
}

func (o *screencastHintOperation) Execute(ctx *assistance.Context) (*assistance.Result, error) {
	aID, err := ctx.GetString(assistance.ContextKeyAID)
	if err != nil {
		return nil, err
	}
	a, err := o.p.store.Read(context.Background(), aID)
	if err != nil {
		return nil, err
	}
	a.Objects = []model.AssistanceObject{
		model.NewAssistanceObject(a.UserID,
			model.Parameter{
				Key:   ObjectParamKeyMessage,
				Value: model.StringValue(i18n.T(i18n.LocaleDE, "assistance.greeting.operation.toolcheck_screencast_hint")),
			},
			model.Parameter{
				Key:   ObjectParamKeyURI,
				Value: model.StringValue(toolcheckScreencastURI),
			},
		),
	}
	return &assistance.Result{Assistance: []*model.Assistance{a}}, nil
}
