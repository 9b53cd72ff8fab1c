package assistance

import (
	"context"

	"github.com/mohitkumar/assist/logger"
	"github.com/mohitkumar/assist/model"
	"github.com/mohitkumar/assist/persistence"
	"go.uber.org/zap"
)

// maxRequestDepth bounds chained request resolution. The declared request
// graphs are shallow; anything deeper is a cycle.
const maxRequestDepth = 8

// Dispatcher resolves requests against the registry, drives event-based
// dispatch over all registered types and follows chained requests.
type Dispatcher struct {
	registry *Registry
	engine   *Engine
	store    persistence.AssistanceStore
	disabled map[string]bool
}

func NewDispatcher(registry *Registry, engine *Engine, store persistence.AssistanceStore, disabledTypeKeys []string) *Dispatcher {
	disabled := make(map[string]bool, len(disabledTypeKeys))
	for _, key := range disabledTypeKeys {
		disabled[key] = true
	}
	return &Dispatcher{
		registry: registry,
		engine:   engine,
		store:    store,
		disabled: disabled,
	}
}

// HandleRequest runs one explicitly requested operation, following chained
// requests. An unknown type key is an error; a disabled one yields nothing.
func (d *Dispatcher) HandleRequest(ctx context.Context, typeKey, operationKey string, opCtx *Context) (*Result, error) {
	if _, ok := d.registry.Get(typeKey); !ok {
		return nil, UnknownProcessTypeError{TypeKey: typeKey}
	}
	return d.resolve(ctx, Request{TypeKey: typeKey, OperationKey: operationKey, Ctx: opCtx}, 0)
}

// HandleStatement evaluates a learner activity statement: first the
// initiation of every supported type, then the pending next operations of
// every running instance. A failing type never blocks the others.
//
// Statements reporting delivered assistance are ignored to keep the engine
// from reacting to its own output.
func (d *Dispatcher) HandleStatement(ctx context.Context, statement *model.Statement, supportedTypeKeys []string) ([]*model.Assistance, error) {
	if statement.Verb.ID == model.VerbAssisted {
		return nil, nil
	}
	supported := toKeySet(supportedTypeKeys)

	octx := NewContext().SetString(ContextKeyStatementID, statement.ID)
	var collected []*model.Assistance
	for _, typeKey := range d.registry.Keys() {
		if !supported[typeKey] {
			continue
		}
		proc, _ := d.registry.Get(typeKey)
		if !proc.Definition().HasOperation(OperationKeyInitiation) {
			continue
		}
		res, err := d.resolve(ctx, Request{TypeKey: typeKey, OperationKey: OperationKeyInitiation, Ctx: octx}, 0)
		if err != nil {
			logger.Error("statement-driven initiation failed",
				zap.String("type", typeKey), zap.String("statementId", statement.ID), zap.Error(err))
			continue
		}
		if res != nil {
			collected = append(collected, res.Assistance...)
		}
	}

	inProgress, err := d.store.ReadByStatus(ctx, model.StatusInitiated, model.StatusInProgress)
	if err != nil {
		return nil, err
	}
	for _, a := range inProgress {
		if !supported[a.TypeKey] || len(a.NextOperationKeys) == 0 {
			continue
		}
		cctx := NewContext().
			SetString(ContextKeyStatementID, statement.ID).
			SetString(ContextKeyAID, a.AID)
		for _, operationKey := range a.NextOperationKeys {
			res, err := d.resolve(ctx, Request{TypeKey: a.TypeKey, OperationKey: operationKey, Ctx: cctx}, 0)
			if err != nil {
				logger.Error("statement-driven continuation failed",
					zap.String("type", a.TypeKey), zap.String("operation", operationKey),
					zap.String("aId", a.AID), zap.Error(err))
				continue
			}
			if res != nil {
				collected = append(collected, res.Assistance...)
			}
		}
	}
	return collected, nil
}

// AppendResponse stores client response objects on an instance and runs its
// pending next operations with the responses attached to the context.
func (d *Dispatcher) AppendResponse(ctx context.Context, aID string, objects []model.AssistanceObject) ([]*model.Assistance, error) {
	for i := range objects {
		objects[i].Kind = model.ObjectKindResponse
	}
	updated, err := d.store.AppendObjects(ctx, aID, objects)
	if err != nil {
		return nil, err
	}

	octx := NewContext().SetString(ContextKeyAID, aID)
	octx.SetVolatile(ContextKeyResponseObjects, objects)
	var collected []*model.Assistance
	for _, operationKey := range updated.NextOperationKeys {
		res, err := d.resolve(ctx, Request{TypeKey: updated.TypeKey, OperationKey: operationKey, Ctx: octx}, 0)
		if err != nil {
			logger.Error("response-driven operation failed",
				zap.String("type", updated.TypeKey), zap.String("operation", operationKey),
				zap.String("aId", aID), zap.Error(err))
			continue
		}
		if res != nil {
			collected = append(collected, res.Assistance...)
		}
	}
	return collected, nil
}

// resolve runs one request and follows its chained requests. Chained
// requests resolve against the full registry; the caller's supported filter
// applies to top-level dispatch only, so a cross-type chain (an abort of a
// conflicting instance, say) is never lost to a narrow client filter.
func (d *Dispatcher) resolve(ctx context.Context, req Request, depth int) (*Result, error) {
	if d.disabled[req.TypeKey] {
		return nil, nil
	}
	proc, ok := d.registry.Get(req.TypeKey)
	if !ok {
		return nil, UnknownProcessTypeError{TypeKey: req.TypeKey}
	}
	res, err := d.engine.ExecuteOperation(ctx, proc, req.OperationKey, req.Ctx)
	if err != nil || res == nil {
		return res, err
	}
	if len(res.Requests) == 0 {
		return res, nil
	}
	if depth >= maxRequestDepth {
		return nil, ChainDepthExceededError{Depth: depth}
	}

	var chained []*model.Assistance
	for _, chainedReq := range res.Requests {
		sub, err := d.resolve(ctx, chainedReq, depth+1)
		if err != nil {
			return nil, err
		}
		if sub != nil {
			chained = append(chained, sub.Assistance...)
		}
	}
	var merged []*model.Assistance
	if res.PrependChained {
		merged = append(chained, res.Assistance...)
	} else {
		merged = append(append([]*model.Assistance{}, res.Assistance...), chained...)
	}
	return &Result{Assistance: merged}, nil
}

func toKeySet(keys []string) map[string]bool {
	set := make(map[string]bool, len(keys))
	for _, key := range keys {
		set[key] = true
	}
	return set
}
