package processes

import (
	"context"
	"time"

	"github.com/mohitkumar/assist/assistance"
	"github.com/mohitkumar/assist/i18n"
	"github.com/mohitkumar/assist/model"
	"github.com/mohitkumar/assist/persistence"
)

const PeerExchangeTypeKey = "peer_exchange"

const (
	operationKeyRequestSolution   = "request_solution"
	operationKeyExchangeSolutions = "exchange_solutions"
	operationKeyCompletion        = "completion"
)

const (
	paramKeySolutionRequestNumber = "solution_request_number"
	paramKeySolutions             = "solutions"
)

// maxSolutionRequests bounds the solution re-prompts. Once reached the
// exchange is aborted instead of re-scheduled.
const maxSolutionRequests = 17

// initialSolutionRequestDelay is the time the participants get before the
// first solution prompt.
const initialSolutionRequestDelay = 10 * time.Second

// PeerExchange guides a pair of learners through a shared solution
// exchange: both submit a solution, then each receives the partner's one.
type PeerExchange struct {
	store persistence.AssistanceStore
	def   *assistance.Definition
}

var _ assistance.Process = new(PeerExchange)

func NewPeerExchange(store persistence.AssistanceStore) *PeerExchange {
	p := &PeerExchange{store: store}
	p.def = assistance.NewDefinition().
		RegisterPhases(
			assistance.Phase{
				Steps: []assistance.Step{{
					OperationKey: assistance.OperationKeyInitiation,
					Operation:    &peerExchangeInitiation{p: p},
				}},
			},
			assistance.Phase{
				Steps: []assistance.Step{
					{
						OperationKey: operationKeyRequestSolution,
						Operation:    &requestSolutionOperation{p: p},
						Delay:        initialSolutionRequestDelay,
					},
					{
						OperationKey: operationKeyExchangeSolutions,
						Operation:    &exchangeSolutionsOperation{p: p},
					},
				},
			},
			assistance.Phase{
				Steps: []assistance.Step{{
					OperationKey: operationKeyCompletion,
					Operation:    &completionOperation{p: p},
				}},
			},
		).
		RegisterOperation(assistance.OperationKeyAbortion, &peerExchangeAbortion{p: p})
	return p
}

func (p *PeerExchange) Key() string           { return PeerExchangeTypeKey }
func (p *PeerExchange) Kind() assistance.Kind { return assistance.KindCooperative }

func (p *PeerExchange) Description() string {
	return i18n.T(i18n.LocaleEN, "assistance.peer_exchange.description")
}

func (p *PeerExchange) Parameters() []model.Parameter {
	return []model.Parameter{
		{Key: TypeParamKeyInitiator, Value: model.StringValue("string")},
		{Key: TypeParamKeyCollaborators, Value: model.StringValue("list")},
	}
}

func (p *PeerExchange) Definition() *assistance.Definition { return p.def }

type peerExchangeInitiation struct {
	p *PeerExchange
}

func (o *peerExchangeInitiation) Spec() assistance.Spec {
	return assistance.Spec{TargetStatus: model.StatusInProgress}
}

func (o *peerExchangeInitiation) IsApplicable(ctx *assistance.Context) bool {
	if ctx.Has(assistance.ContextKeyStatementID) {
		return false
	}
	if _, err := ctx.GetString(TypeParamKeyInitiator); err != nil {
		return false
	}
	_, err := ctx.Get(TypeParamKeyCollaborators)
	return err == nil
}

func (o *peerExchangeInitiation) Execute(ctx *assistance.Context) (*assistance.Result, error) {
	initiator, err := ctx.GetString(TypeParamKeyInitiator)
	if err != nil {
		return nil, err
	}
	collaboratorsValue, err := ctx.Get(TypeParamKeyCollaborators)
	if err != nil {
		return nil, err
	}
	collaborators, _ := collaboratorsValue.AsList()
	related := []string{initiator}
	for _, item := range collaborators {
		if s, ok := item.AsString(); ok && s != initiator {
			related = append(related, s)
		}
	}
	if len(related) < 2 {
		return nil, assistance.MissingParameterError{Key: TypeParamKeyCollaborators}
	}

	// Running exchanges involving any participant are aborted first, and
	// their output precedes this instance's output.
	requests, err := o.abortConflictingExchanges(related)
	if err != nil {
		return nil, err
	}

	objects := make([]model.AssistanceObject, 0, 2*len(related))
	for _, userID := range related {
		objects = append(objects,
			model.NewAssistanceObject(userID, model.Parameter{
				Key:   ObjectParamKeyOperation,
				Value: model.StringValue(OperationValueEnableChat),
			}),
			model.NewAssistanceObject(userID, model.Parameter{
				Key:   ObjectParamKeyMessage,
				Value: model.StringValue(i18n.T(i18n.LocaleDE, "assistance.peer_exchange.operation.message_task_description")),
			}),
		)
	}

	relatedValues := make([]model.Value, len(related))
	for i, userID := range related {
		relatedValues[i] = model.StringValue(userID)
	}
	a := model.NewAssistance(initiator, objects)
	a.Parameters = []model.Parameter{{
		Key:   assistance.ParamKeyRelatedUserIDs,
		Value: model.ListValue(relatedValues...),
	}}
	return &assistance.Result{
		Assistance:     []*model.Assistance{a},
		Requests:       requests,
		PrependChained: true,
	}, nil
}

func (o *peerExchangeInitiation) abortConflictingExchanges(related []string) ([]assistance.Request, error) {
	running, err := o.p.store.ReadByStatus(context.Background(), model.StatusInitiated, model.StatusInProgress)
	if err != nil {
		return nil, err
	}
	participants := make(map[string]bool, len(related))
	for _, userID := range related {
		participants[userID] = true
	}
	var requests []assistance.Request
	for _, existing := range running {
		if existing.TypeKey != PeerExchangeTypeKey {
			continue
		}
		involved := participants[existing.UserID]
		if ids, ok := assistance.RelatedUserIDs(existing.Parameters); ok {
			for _, userID := range ids {
				involved = involved || participants[userID]
			}
		}
		if !involved {
			continue
		}
		requests = append(requests, assistance.Request{
			TypeKey:      PeerExchangeTypeKey,
			OperationKey: assistance.OperationKeyAbortion,
			Ctx:          assistance.NewContext().SetString(assistance.ContextKeyAID, existing.AID),
		})
	}
	return requests, nil
}

type requestSolutionOperation struct {
	p *PeerExchange
}

func (o *requestSolutionOperation) Spec() assistance.Spec {
	return assistance.Spec{TargetStatus: model.StatusInProgress}
}

func (o *requestSolutionOperation) IsApplicable(ctx *assistance.Context) bool {
	return true
}

func (o *requestSolutionOperation) Execute(ctx *assistance.Context) (*assistance.Result, error) {
	aID, err := ctx.GetString(assistance.ContextKeyAID)
	if err != nil {
		return nil, err
	}
	a, err := o.p.store.Read(context.Background(), aID)
	if err != nil {
		return nil, err
	}
	related, ok := assistance.RelatedUserIDs(a.Parameters)
	if !ok {
		return nil, assistance.MissingParameterError{Key: assistance.ParamKeyRelatedUserIDs}
	}

	requestNumber := 1
	if v, pOk := model.FirstParameter(a.Parameters, paramKeySolutionRequestNumber); pOk {
		if n, nOk := v.AsInt(); nOk {
			requestNumber = n + 1
		}
	}

	if requestNumber+1 > maxSolutionRequests {
		objects := make([]model.AssistanceObject, 0, len(related))
		for _, userID := range related {
			objects = append(objects, model.NewAssistanceObject(userID, model.Parameter{
				Key:   ObjectParamKeySystemMessage,
				Value: model.StringValue(i18n.T(i18n.LocaleDE, "assistance.peer_exchange.operation.system_message_scenario_aborted")),
			}))
		}
		a.Objects = objects
		return &assistance.Result{
			Assistance: []*model.Assistance{a},
			Directives: assistance.Directives{
				TargetStatus:           model.StatusAborted,
				Subsequents:            []assistance.SubsequentOperation{},
				DeleteScheduled:        true,
				ResetNextOperationKeys: true,
			},
		}, nil
	}

	objects := make([]model.AssistanceObject, 0, len(related))
	for _, userID := range related {
		objects = append(objects,
			model.NewAssistanceObject(userID,
				model.Parameter{
					Key:   ObjectParamKeyOperation,
					Value: model.StringValue(OperationValueSendSolution),
				},
				model.Parameter{
					Key:   ObjectParamKeySystemMessage,
					Value: model.StringValue(i18n.T(i18n.LocaleDE, "assistance.peer_exchange.operation.system_message_request_solution")),
				},
			),
		)
	}
	a.Objects = objects
	a.Parameters = model.ReplaceOrAddParameter(a.Parameters, model.Parameter{
		Key:   paramKeySolutionRequestNumber,
		Value: model.IntValue(requestNumber),
	})
	return &assistance.Result{
		Assistance: []*model.Assistance{a},
		Directives: assistance.Directives{
			Subsequents: []assistance.SubsequentOperation{
				assistance.Scheduled(operationKeyRequestSolution, solutionRequestBackoff(requestNumber)),
				assistance.Triggered(operationKeyExchangeSolutions),
			},
		},
	}, nil
}

// solutionRequestBackoff stretches the re-prompt interval along the
// fibonacci sequence starting at two seconds.
func solutionRequestBackoff(requestNumber int) time.Duration {
	a, b := 2, 3
	for i := 1; i < requestNumber; i++ {
		a, b = b, a+b
	}
	return time.Duration(a) * time.Second
}

type exchangeSolutionsOperation struct {
	p *PeerExchange
}

func (o *exchangeSolutionsOperation) Spec() assistance.Spec {
	return assistance.Spec{TargetStatus: model.StatusInProgress}
}

func (o *exchangeSolutionsOperation) IsApplicable(ctx *assistance.Context) bool {
	if ctx.Has(assistance.ContextKeyStatementID) {
		return false
	}
	objects, err := ctx.ResponseObjects()
	if err != nil {
		return false
	}
	for _, object := range objects {
		if _, ok := model.FirstParameter(object.Parameters, ObjectParamKeySolutionResponse); ok {
			return true
		}
	}
	return false
}

func (o *exchangeSolutionsOperation) Execute(ctx *assistance.Context) (*assistance.Result, error) {
	aID, err := ctx.GetString(assistance.ContextKeyAID)
	if err != nil {
		return nil, err
	}
	a, err := o.p.store.Read(context.Background(), aID)
	if err != nil {
		return nil, err
	}
	related, ok := assistance.RelatedUserIDs(a.Parameters)
	if !ok {
		return nil, assistance.MissingParameterError{Key: assistance.ParamKeyRelatedUserIDs}
	}

	solutions := map[string]model.Value{}
	if v, pOk := model.FirstParameter(a.Parameters, paramKeySolutions); pOk {
		if obj, objOk := v.AsObject(); objOk {
			solutions = obj
		}
	}
	responses, err := ctx.ResponseObjects()
	if err != nil {
		return nil, err
	}
	for _, response := range responses {
		if v, rOk := model.FirstParameter(response.Parameters, ObjectParamKeySolutionResponse); rOk {
			solutions[response.UserID] = v
		}
	}
	a.Parameters = model.ReplaceOrAddParameter(a.Parameters, model.Parameter{
		Key:   paramKeySolutions,
		Value: model.ObjectValue(solutions),
	})

	for _, userID := range related {
		if _, submitted := solutions[userID]; !submitted {
			// Not everyone has submitted yet; keep waiting.
			a.Objects = nil
			return &assistance.Result{
				Assistance: []*model.Assistance{a},
				Directives: assistance.Directives{PreventProgress: true},
			}, nil
		}
	}

	objects := make([]model.AssistanceObject, 0, len(related))
	for _, userID := range related {
		peerSolution, found := peerSolutionFor(userID, related, solutions)
		if !found {
			continue
		}
		objects = append(objects, model.NewAssistanceObject(userID,
			model.Parameter{Key: ObjectParamKeyPeerSolution, Value: peerSolution},
			model.Parameter{
				Key:   ObjectParamKeySystemMessage,
				Value: model.StringValue(i18n.T(i18n.LocaleDE, "assistance.peer_exchange.operation.system_message_peer_solution")),
			},
		))
	}
	a.Objects = objects
	return &assistance.Result{
		Assistance: []*model.Assistance{a},
		Directives: assistance.Directives{DeleteScheduled: true},
	}, nil
}

func peerSolutionFor(userID string, related []string, solutions map[string]model.Value) (model.Value, bool) {
	for _, other := range related {
		if other == userID {
			continue
		}
		if solution, ok := solutions[other]; ok {
			return solution, true
		}
	}
	return model.Value{}, false
}

type completionOperation struct {
	p *PeerExchange
}

func (o *completionOperation) Spec() assistance.Spec {
	return assistance.Spec{TargetStatus: model.StatusCompleted}
}

func (o *completionOperation) IsApplicable(ctx *assistance.Context) bool {
	return true
}

func (o *completionOperation) Execute(ctx *assistance.Context) (*assistance.Result, error) {
	aID, err := ctx.GetString(assistance.ContextKeyAID)
	if err != nil {
		return nil, err
	}
	a, err := o.p.store.Read(context.Background(), aID)
	if err != nil {
		return nil, err
	}
	related, ok := assistance.RelatedUserIDs(a.Parameters)
	if !ok {
		related = []string{a.UserID}
	}
	objects := make([]model.AssistanceObject, 0, 2*len(related))
	for _, userID := range related {
		objects = append(objects,
			model.NewAssistanceObject(userID, model.Parameter{
				Key:   ObjectParamKeyOperation,
				Value: model.StringValue(OperationValueDisableChat),
			}),
			model.NewAssistanceObject(userID, model.Parameter{
				Key:   ObjectParamKeySystemMessage,
				Value: model.StringValue(i18n.T(i18n.LocaleDE, "assistance.peer_exchange.operation.system_message_completed")),
			}),
		)
	}
	a.Objects = objects
	return &assistance.Result{Assistance: []*model.Assistance{a}}, nil
}

type peerExchangeAbortion struct {
	p *PeerExchange
}

func (o *peerExchangeAbortion) Spec() assistance.Spec {
	return assistance.Spec{
		TargetStatus:       model.StatusAborted,
		Subsequents:        []assistance.SubsequentOperation{},
		InProgressRequired: true,
		DeleteScheduled:    true,
	}
}

func (o *peerExchangeAbortion) IsApplicable(ctx *assistance.Context) bool {
	return true
}

func (o *peerExchangeAbortion) Execute(ctx *assistance.Context) (*assistance.Result, error) {
	aID, err := ctx.GetString(assistance.ContextKeyAID)
	if err != nil {
		return nil, err
	}
	a, err := o.p.store.Read(context.Background(), aID)
	if err != nil {
		return nil, err
	}
	related, ok := assistance.RelatedUserIDs(a.Parameters)
	if !ok {
		related = []string{a.UserID}
	}
	objects := make([]model.AssistanceObject, 0, 2*len(related))
	for _, userID := range related {
		objects = append(objects,
			model.NewAssistanceObject(userID, model.Parameter{
				Key:   ObjectParamKeyOperation,
				Value: model.StringValue(OperationValueDisableChat),
			}),
			model.NewAssistanceObject(userID, model.Parameter{
				Key:   ObjectParamKeySystemMessage,
				Value: model.StringValue(i18n.T(i18n.LocaleDE, "assistance.peer_exchange.operation.system_message_scenario_aborted")),
			}),
		)
	}
	a.Objects = objects
	return &assistance.Result{Assistance: []*model.Assistance{a}}, nil
}
