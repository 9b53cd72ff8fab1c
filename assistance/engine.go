package assistance

import (
	"context"
	"errors"
	"time"

	"github.com/mohitkumar/assist/logger"
	"github.com/mohitkumar/assist/metrics"
	"github.com/mohitkumar/assist/model"
	"github.com/mohitkumar/assist/persistence"
	"go.uber.org/zap"
)

// Well-known instance parameter keys.
const (
	// ParamKeyRelatedUserIDs lists all users participating in an instance.
	ParamKeyRelatedUserIDs = "related_user_ids"
	// ParamKeyUserStates maps user ids to the last state announced to them.
	ParamKeyUserStates = "user_states"
)

// ObjectParamKeyStateUpdate carries a synthesized state announcement.
const ObjectParamKeyStateUpdate = "state_update"

// Engine executes registered operations against persistent instances. It
// owns the full commit sequence: applicability gating, directive merging,
// state update synthesis, persistence and deferred scheduling.
type Engine struct {
	store      persistence.AssistanceStore
	scheduled  persistence.ScheduledOperationStore
	collector  *metrics.Collector
	timeFactor float64
}

// NewEngine wires the engine. timeFactor stretches or shrinks scheduling
// delays and is meant for debugging; values <= 0 fall back to 1.
func NewEngine(store persistence.AssistanceStore, scheduled persistence.ScheduledOperationStore, collector *metrics.Collector, timeFactor float64) *Engine {
	if timeFactor <= 0 {
		timeFactor = 1
	}
	return &Engine{
		store:      store,
		scheduled:  scheduled,
		collector:  collector,
		timeFactor: timeFactor,
	}
}

// effective is the merge of the registered spec with the execution-time
// directives of one run.
type effective struct {
	targetStatus    model.StateStatus
	triggered       []string
	deferred        []SubsequentOperation
	prevent         bool
	relatedOverride []string
	announce        []model.StateStatus
	ownerOnly       bool
}

// ExecuteOperation runs one operation of the process. A nil result without
// error means the operation was not applicable or had nothing to emit.
func (e *Engine) ExecuteOperation(ctx context.Context, proc Process, operationKey string, opCtx *Context) (*Result, error) {
	reg, ok := proc.Definition().operation(operationKey)
	if !ok {
		return nil, UnknownOperationError{TypeKey: proc.Key(), OperationKey: operationKey}
	}

	var current *model.Assistance
	if reg.spec.InProgressRequired {
		aID, err := opCtx.GetString(ContextKeyAID)
		if err != nil {
			return nil, nil
		}
		current, err = e.store.Read(ctx, aID)
		if err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}
		if current.State.Status.Terminal() || current.TypeKey != proc.Key() {
			return nil, nil
		}
	}
	if !reg.op.IsApplicable(opCtx) {
		logger.Debug("operation not applicable", zap.String("type", proc.Key()), zap.String("operation", operationKey))
		e.collector.OperationExecuted(proc.Key(), operationKey, "not_applicable")
		return nil, nil
	}

	logger.Info("executing operation", zap.String("type", proc.Key()), zap.String("operation", operationKey))
	start := time.Now()
	res, err := reg.op.Execute(opCtx)
	e.collector.ObserveOperationDuration(proc.Key(), operationKey, time.Since(start).Seconds())
	if err != nil {
		e.collector.OperationExecuted(proc.Key(), operationKey, "error")
		return nil, err
	}
	e.collector.OperationExecuted(proc.Key(), operationKey, "success")

	var d Directives
	if res != nil {
		d = res.Directives
	}
	eff := effective{
		targetStatus:    reg.spec.TargetStatus,
		prevent:         d.PreventProgress,
		relatedOverride: reg.spec.RelatedUserIDs,
		announce:        reg.spec.AnnounceStatuses,
		ownerOnly:       reg.spec.OwnerOnlyAnnounce,
	}
	if d.TargetStatus != "" {
		eff.targetStatus = d.TargetStatus
	}
	if d.RelatedUserIDs != nil {
		eff.relatedOverride = d.RelatedUserIDs
	}
	subsequents := reg.spec.Subsequents
	if d.Subsequents != nil {
		subsequents = d.Subsequents
	}
	if !eff.prevent {
		for _, sub := range subsequents {
			if sub.Mode == TriggerScheduled {
				eff.deferred = append(eff.deferred, sub)
			} else {
				eff.triggered = append(eff.triggered, sub.Key)
			}
		}
	}

	resetKeys := reg.spec.ResetNextOperationKeys || d.ResetNextOperationKeys || subsequents != nil
	deleteScheduled := reg.spec.DeleteScheduled || d.DeleteScheduled
	if current != nil && !eff.prevent {
		if resetKeys {
			if err := e.store.ResetNextOperationKeys(ctx, current.AID); err != nil {
				return nil, err
			}
		}
		if deleteScheduled {
			if err := e.scheduled.DeleteAllForAssistance(ctx, current.AID); err != nil {
				return nil, err
			}
		}
	}

	var committed []*model.Assistance
	if res != nil && len(res.Assistance) > 0 {
		for _, a := range res.Assistance {
			persisted, err := e.commit(ctx, proc, operationKey, reg, eff, a)
			if err != nil {
				return nil, err
			}
			if persisted != nil {
				committed = append(committed, persisted)
			}
		}
	} else if current != nil {
		// The operation advances the instance without emitting anything.
		record := *current
		record.Objects = nil
		if _, err := e.commit(ctx, proc, operationKey, reg, eff, &record); err != nil {
			return nil, err
		}
	}

	if res == nil {
		return nil, nil
	}
	out := *res
	out.Assistance = committed
	return &out, nil
}

// commit applies state update synthesis, per-user progress bookkeeping and
// persistence to a single instance record and schedules deferred
// invocations against the persisted id. The returned record carries only
// the objects added by this run.
func (e *Engine) commit(ctx context.Context, proc Process, operationKey string, reg *registeredOperation, eff effective, a *model.Assistance) (*model.Assistance, error) {
	def := proc.Definition()
	skip := map[string]bool{}
	if reg.stepNumber > 0 {
		skip = usersAhead(def, a.Parameters, reg.stepNumber)
	}

	// A parked run announces nothing and leaves per-user progress untouched.
	if eff.targetStatus != "" && !eff.prevent {
		if reg.phase > 0 {
			upd := model.State{
				Status: orDefault(eff.targetStatus, a.State.Status, model.StatusInitiated),
				Phase:  orDefault(reg.phase, a.State.Phase, 1),
				Step:   orDefault(operationKey, a.State.Step, OperationKeyInitiation),
			}
			updates := stateUpdateObjects(a, eff, upd, eff.announce, skip)
			if len(updates) > 0 {
				a.Objects = append(updates, a.Objects...)
				recordUserStates(a, updates)
			}
		} else {
			announce := eff.announce
			if announce == nil {
				announce = []model.StateStatus{model.StatusAborted, model.StatusCompleted}
			}
			upd := model.State{
				Status: orDefault(eff.targetStatus, a.State.Status, model.StatusInitiated),
			}
			updates := stateUpdateObjects(a, eff, upd, announce, skip)
			a.Objects = append(updates, a.Objects...)
		}
	}

	if !eff.prevent {
		next := model.State{Status: eff.targetStatus, Phase: reg.phase, Step: operationKey}
		if next.Status == "" {
			next.Status = a.State.Status
		}
		if next.Phase == 0 {
			next.Phase = a.State.Phase
		}
		a.State = next
		a.NextOperationKeys = append([]string{}, eff.triggered...)
	}

	if len(skip) > 0 {
		kept := make([]model.AssistanceObject, 0, len(a.Objects))
		for _, obj := range a.Objects {
			if skip[obj.UserID] {
				continue
			}
			kept = append(kept, obj)
		}
		a.Objects = kept
	}
	for i := range a.Objects {
		a.Objects[i].TypeKey = proc.Key()
		if a.Objects[i].Kind == "" {
			a.Objects[i].Kind = model.ObjectKindAssistance
		}
	}

	var persisted *model.Assistance
	var err error
	if a.AID == "" {
		a.TypeKey = proc.Key()
		logger.Info("creating assistance", zap.String("type", proc.Key()))
		persisted, err = e.store.Create(ctx, a)
	} else {
		logger.Info("updating assistance", zap.String("aId", a.AID), zap.String("type", proc.Key()),
			zap.Strings("nextOperationKeys", a.NextOperationKeys))
		persisted, err = e.store.Update(ctx, a)
	}
	if err != nil {
		return nil, err
	}

	for _, sub := range eff.deferred {
		schedCtx := NewContext().SetString(ContextKeyAID, persisted.AID)
		if err := e.Schedule(ctx, proc, sub.Key, schedCtx, sub.Delay, persisted.AID); err != nil {
			return nil, err
		}
	}
	return persisted, nil
}

// Schedule enqueues a deferred invocation of a registered operation. The
// context must be free of volatile values.
func (e *Engine) Schedule(ctx context.Context, proc Process, operationKey string, opCtx *Context, delay time.Duration, aID string) error {
	if !proc.Definition().HasOperation(operationKey) {
		return UnknownOperationError{TypeKey: proc.Key(), OperationKey: operationKey}
	}
	snapshot, err := opCtx.Snapshot()
	if err != nil {
		return NotSchedulableError{OperationKey: operationKey}
	}
	due := time.Now().Add(time.Duration(float64(delay) * e.timeFactor))
	_, err = e.scheduled.Create(ctx, &model.ScheduledOperation{
		TypeKey:      proc.Key(),
		OperationKey: operationKey,
		Ctx:          snapshot,
		AID:          aID,
		DueAt:        due,
	})
	if err != nil {
		return err
	}
	e.collector.OperationScheduled()
	return nil
}

func stateUpdateObjects(a *model.Assistance, eff effective, upd model.State, announce []model.StateStatus, skip map[string]bool) []model.AssistanceObject {
	if announce != nil && !containsStatus(announce, upd.Status) {
		return nil
	}
	userIDs := []string{a.UserID}
	if !eff.ownerOnly {
		if eff.relatedOverride != nil {
			userIDs = eff.relatedOverride
		} else if related, ok := RelatedUserIDs(a.Parameters); ok {
			userIDs = related
		}
	}
	var objects []model.AssistanceObject
	for _, userID := range userIDs {
		if skip[userID] {
			continue
		}
		objects = append(objects, model.NewAssistanceObject(userID,
			model.Parameter{Key: ObjectParamKeyStateUpdate, Value: upd.AsValue()}))
	}
	return objects
}

// recordUserStates notes the state just announced to each user in the
// instance's user_states parameter.
func recordUserStates(a *model.Assistance, updates []model.AssistanceObject) {
	states := map[string]model.Value{}
	if v, ok := model.FirstParameter(a.Parameters, ParamKeyUserStates); ok {
		if obj, objOk := v.AsObject(); objOk {
			states = obj
		}
	}
	for _, update := range updates {
		if v, ok := model.FirstParameter(update.Parameters, ObjectParamKeyStateUpdate); ok {
			states[update.UserID] = v
		}
	}
	a.Parameters = model.ReplaceOrAddParameter(a.Parameters,
		model.Parameter{Key: ParamKeyUserStates, Value: model.ObjectValue(states)})
}

// usersAhead returns the users whose last announced step lies past the
// given step, so a re-run never sends them stale output.
func usersAhead(def *Definition, params []model.Parameter, stepNumber int) map[string]bool {
	ahead := map[string]bool{}
	v, ok := model.FirstParameter(params, ParamKeyUserStates)
	if !ok {
		return ahead
	}
	states, ok := v.AsObject()
	if !ok {
		return ahead
	}
	for userID, state := range states {
		obj, ok := state.AsObject()
		if !ok {
			continue
		}
		stepValue, ok := obj["step"]
		if !ok {
			continue
		}
		step, ok := stepValue.AsString()
		if !ok {
			continue
		}
		if n, ok := def.StepNumber(step); ok && n > stepNumber {
			ahead[userID] = true
		}
	}
	return ahead
}

// RelatedUserIDs extracts the participating user ids from instance
// parameters.
func RelatedUserIDs(params []model.Parameter) ([]string, bool) {
	v, ok := model.FirstParameter(params, ParamKeyRelatedUserIDs)
	if !ok {
		return nil, false
	}
	list, ok := v.AsList()
	if !ok {
		return nil, false
	}
	ids := make([]string, 0, len(list))
	for _, item := range list {
		if s, sOk := item.AsString(); sOk {
			ids = append(ids, s)
		}
	}
	return ids, len(ids) > 0
}

func containsStatus(statuses []model.StateStatus, status model.StateStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func orDefault[T comparable](target, current, fallback T) T {
	var zero T
	if current != zero {
		return target
	}
	return fallback
}
