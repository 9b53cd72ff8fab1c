package assistance

import (
	"context"
	"testing"
	"time"

	"github.com/mohitkumar/assist/metrics"
	"github.com/mohitkumar/assist/model"
	"github.com/mohitkumar/assist/persistence/memory"
	"github.com/stretchr/testify/require"
)

type stubProcess struct {
	key string
	def *Definition
}

func (p *stubProcess) Key() string                   { return p.key }
func (p *stubProcess) Kind() Kind                    { return KindReactive }
func (p *stubProcess) Description() string           { return "" }
func (p *stubProcess) Parameters() []model.Parameter { return nil }
func (p *stubProcess) Definition() *Definition       { return p.def }

type stubOperation struct {
	spec       Spec
	applicable func(ctx *Context) bool
	execute    func(ctx *Context) (*Result, error)
}

func (o *stubOperation) Spec() Spec { return o.spec }

func (o *stubOperation) IsApplicable(ctx *Context) bool {
	if o.applicable == nil {
		return true
	}
	return o.applicable(ctx)
}

func (o *stubOperation) Execute(ctx *Context) (*Result, error) {
	return o.execute(ctx)
}

type engineFixture struct {
	store     *memory.AssistanceStore
	scheduled *memory.ScheduledOperationStore
	engine    *Engine
}

func newEngineFixture() *engineFixture {
	store := memory.NewAssistanceStore()
	scheduled := memory.NewScheduledOperationStore()
	return &engineFixture{
		store:     store,
		scheduled: scheduled,
		engine:    NewEngine(store, scheduled, metrics.NewCollector(), 1),
	}
}

func TestEngine(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T, f *engineFixture){
		"test create without state announcement":   testEngineCreate,
		"test directive target overrides spec":     testEngineDirectiveOverride,
		"test phase step announces state update":   testEnginePhaseAnnouncement,
		"test prevent progress parks the instance": testEnginePreventProgress,
		"test users ahead receive nothing":         testEngineUsersAhead,
		"test terminal instance is skipped":        testEngineTerminalGate,
		"test deferred subsequent is scheduled":    testEngineDeferredScheduling,
		"test time factor scales the delay":        testEngineTimeFactor,
		"test announce filter applies to steps":    testEnginePhaseAnnounceFilter,
		"test volatile context is not schedulable": testEngineVolatileSchedule,
	} {
		t.Run(scenario, func(t *testing.T) {
			fn(t, newEngineFixture())
		})
	}
}

func testEngineCreate(t *testing.T, f *engineFixture) {
	op := &stubOperation{
		spec: Spec{TargetStatus: model.StatusCompleted},
		execute: func(ctx *Context) (*Result, error) {
			a := model.NewAssistance("u1", []model.AssistanceObject{
				model.NewAssistanceObject("u1", model.Parameter{Key: "message", Value: model.StringValue("hello")}),
			})
			return &Result{Assistance: []*model.Assistance{a}}, nil
		},
	}
	proc := &stubProcess{key: "demo", def: NewDefinition().RegisterOperation(OperationKeyInitiation, op)}

	res, err := f.engine.ExecuteOperation(context.Background(), proc, OperationKeyInitiation, NewContext())
	require.NoError(t, err)
	require.Len(t, res.Assistance, 1)

	created := res.Assistance[0]
	require.NotEmpty(t, created.AID)
	require.Equal(t, "demo", created.TypeKey)
	require.Equal(t, model.StatusCompleted, created.State.Status)
	// A fresh instance announces nothing, the message is the only object.
	require.Len(t, created.Objects, 1)
	require.Equal(t, model.ObjectKindAssistance, created.Objects[0].Kind)
	require.Equal(t, "demo", created.Objects[0].TypeKey)
}

func testEngineDirectiveOverride(t *testing.T, f *engineFixture) {
	op := &stubOperation{
		spec: Spec{TargetStatus: model.StatusInProgress},
		execute: func(ctx *Context) (*Result, error) {
			a := model.NewAssistance("u1", nil)
			return &Result{
				Assistance: []*model.Assistance{a},
				Directives: Directives{TargetStatus: model.StatusAborted},
			}, nil
		},
	}
	proc := &stubProcess{key: "demo", def: NewDefinition().RegisterOperation(OperationKeyInitiation, op)}

	res, err := f.engine.ExecuteOperation(context.Background(), proc, OperationKeyInitiation, NewContext())
	require.NoError(t, err)
	require.Equal(t, model.StatusAborted, res.Assistance[0].State.Status)
}

func phaseFixtureProcess(f *engineFixture, secondStep Operation) *stubProcess {
	first := &stubOperation{
		spec: Spec{TargetStatus: model.StatusInProgress},
		execute: func(ctx *Context) (*Result, error) {
			return nil, nil
		},
	}
	third := &stubOperation{
		spec: Spec{TargetStatus: model.StatusCompleted},
		execute: func(ctx *Context) (*Result, error) {
			return nil, nil
		},
	}
	def := NewDefinition().RegisterPhases(
		Phase{Steps: []Step{{OperationKey: OperationKeyInitiation, Operation: first}}},
		Phase{Steps: []Step{{OperationKey: "collect", Operation: secondStep}}},
		Phase{Steps: []Step{{OperationKey: "wrap_up", Operation: third}}},
	)
	return &stubProcess{key: "phased", def: def}
}

func seedInstance(t *testing.T, f *engineFixture, typeKey string, params []model.Parameter) *model.Assistance {
	t.Helper()
	a := model.NewAssistance("u1", nil)
	a.TypeKey = typeKey
	a.State = model.State{Status: model.StatusInProgress, Phase: 1, Step: OperationKeyInitiation}
	a.Parameters = params
	created, err := f.store.Create(context.Background(), a)
	require.NoError(t, err)
	return created
}

func testEnginePhaseAnnouncement(t *testing.T, f *engineFixture) {
	related := []model.Parameter{{
		Key:   ParamKeyRelatedUserIDs,
		Value: model.ListValue(model.StringValue("u1"), model.StringValue("u2")),
	}}
	collect := &stubOperation{spec: Spec{TargetStatus: model.StatusInProgress}}
	collect.execute = func(ctx *Context) (*Result, error) {
		aID, err := ctx.GetString(ContextKeyAID)
		if err != nil {
			return nil, err
		}
		a, err := f.store.Read(context.Background(), aID)
		if err != nil {
			return nil, err
		}
		a.Objects = []model.AssistanceObject{
			model.NewAssistanceObject("u1", model.Parameter{Key: "message", Value: model.StringValue("m")}),
			model.NewAssistanceObject("u2", model.Parameter{Key: "message", Value: model.StringValue("m")}),
		}
		return &Result{Assistance: []*model.Assistance{a}}, nil
	}
	proc := phaseFixtureProcess(f, collect)
	seeded := seedInstance(t, f, "phased", related)

	opCtx := NewContext().SetString(ContextKeyAID, seeded.AID)
	res, err := f.engine.ExecuteOperation(context.Background(), proc, "collect", opCtx)
	require.NoError(t, err)
	require.Len(t, res.Assistance, 1)

	updated := res.Assistance[0]
	require.Equal(t, 2, updated.State.Phase)
	require.Equal(t, "collect", updated.State.Step)
	// Two state updates precede the two messages.
	require.Len(t, updated.Objects, 4)
	for _, obj := range updated.Objects[:2] {
		_, ok := model.FirstParameter(obj.Parameters, ObjectParamKeyStateUpdate)
		require.True(t, ok)
	}

	states, ok := model.FirstParameter(updated.Parameters, ParamKeyUserStates)
	require.True(t, ok)
	recorded, ok := states.AsObject()
	require.True(t, ok)
	require.Contains(t, recorded, "u1")
	require.Contains(t, recorded, "u2")
	// The injected wiring to the next step survives the commit.
	require.Equal(t, []string{"wrap_up"}, updated.NextOperationKeys)
}

func testEnginePreventProgress(t *testing.T, f *engineFixture) {
	collect := &stubOperation{spec: Spec{TargetStatus: model.StatusInProgress}}
	collect.execute = func(ctx *Context) (*Result, error) {
		aID, err := ctx.GetString(ContextKeyAID)
		if err != nil {
			return nil, err
		}
		a, err := f.store.Read(context.Background(), aID)
		if err != nil {
			return nil, err
		}
		a.Parameters = model.ReplaceOrAddParameter(a.Parameters,
			model.Parameter{Key: "partial", Value: model.BoolValue(true)})
		return &Result{
			Assistance: []*model.Assistance{a},
			Directives: Directives{PreventProgress: true},
		}, nil
	}
	proc := phaseFixtureProcess(f, collect)
	seeded := seedInstance(t, f, "phased", nil)

	opCtx := NewContext().SetString(ContextKeyAID, seeded.AID)
	_, err := f.engine.ExecuteOperation(context.Background(), proc, "collect", opCtx)
	require.NoError(t, err)

	stored, err := f.store.Read(context.Background(), seeded.AID)
	require.NoError(t, err)
	// Parked: parameters persisted, state untouched, nothing announced.
	require.Equal(t, seeded.State, stored.State)
	require.Empty(t, stored.Objects)
	_, ok := model.FirstParameter(stored.Parameters, "partial")
	require.True(t, ok)

	due, err := f.scheduled.ReadDue(context.Background(), time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Empty(t, due)
}

func testEngineUsersAhead(t *testing.T, f *engineFixture) {
	collect := &stubOperation{spec: Spec{TargetStatus: model.StatusInProgress}}
	collect.execute = func(ctx *Context) (*Result, error) {
		aID, err := ctx.GetString(ContextKeyAID)
		if err != nil {
			return nil, err
		}
		a, err := f.store.Read(context.Background(), aID)
		if err != nil {
			return nil, err
		}
		a.Objects = []model.AssistanceObject{
			model.NewAssistanceObject("u1", model.Parameter{Key: "message", Value: model.StringValue("m")}),
			model.NewAssistanceObject("u2", model.Parameter{Key: "message", Value: model.StringValue("m")}),
		}
		return &Result{Assistance: []*model.Assistance{a}}, nil
	}
	proc := phaseFixtureProcess(f, collect)
	params := []model.Parameter{
		{
			Key:   ParamKeyRelatedUserIDs,
			Value: model.ListValue(model.StringValue("u1"), model.StringValue("u2")),
		},
		{
			Key: ParamKeyUserStates,
			Value: model.ObjectValue(map[string]model.Value{
				"u2": model.State{Status: model.StatusInProgress, Phase: 3, Step: "wrap_up"}.AsValue(),
			}),
		},
	}
	seeded := seedInstance(t, f, "phased", params)

	opCtx := NewContext().SetString(ContextKeyAID, seeded.AID)
	res, err := f.engine.ExecuteOperation(context.Background(), proc, "collect", opCtx)
	require.NoError(t, err)
	require.Len(t, res.Assistance, 1)
	for _, obj := range res.Assistance[0].Objects {
		require.NotEqual(t, "u2", obj.UserID)
	}
}

func testEngineTerminalGate(t *testing.T, f *engineFixture) {
	op := &stubOperation{
		spec: Spec{TargetStatus: model.StatusAborted, InProgressRequired: true},
		execute: func(ctx *Context) (*Result, error) {
			t.Fatal("operation must not execute on a terminal instance")
			return nil, nil
		},
	}
	proc := &stubProcess{key: "demo", def: NewDefinition().RegisterOperation(OperationKeyAbortion, op)}

	a := model.NewAssistance("u1", nil)
	a.TypeKey = "demo"
	a.State = model.State{Status: model.StatusCompleted}
	created, err := f.store.Create(context.Background(), a)
	require.NoError(t, err)

	opCtx := NewContext().SetString(ContextKeyAID, created.AID)
	res, err := f.engine.ExecuteOperation(context.Background(), proc, OperationKeyAbortion, opCtx)
	require.NoError(t, err)
	require.Nil(t, res)
}

func testEngineDeferredScheduling(t *testing.T, f *engineFixture) {
	op := &stubOperation{
		spec: Spec{
			TargetStatus: model.StatusInProgress,
			Subsequents: []SubsequentOperation{
				Triggered("follow_up"),
				Scheduled("reminder", time.Minute),
			},
		},
		execute: func(ctx *Context) (*Result, error) {
			return &Result{Assistance: []*model.Assistance{model.NewAssistance("u1", nil)}}, nil
		},
	}
	follow := &stubOperation{spec: Spec{}, execute: func(ctx *Context) (*Result, error) { return nil, nil }}
	def := NewDefinition().
		RegisterOperation(OperationKeyInitiation, op).
		RegisterOperation("follow_up", follow).
		RegisterOperation("reminder", follow)
	proc := &stubProcess{key: "demo", def: def}

	res, err := f.engine.ExecuteOperation(context.Background(), proc, OperationKeyInitiation, NewContext())
	require.NoError(t, err)
	created := res.Assistance[0]
	require.Equal(t, []string{"follow_up"}, created.NextOperationKeys)

	due, err := f.scheduled.ReadDue(context.Background(), time.Now().Add(2*time.Minute))
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, "reminder", due[0].OperationKey)
	require.Equal(t, "demo", due[0].TypeKey)
	require.Equal(t, created.AID, due[0].AID)
	aID, ok := due[0].Ctx[ContextKeyAID].AsString()
	require.True(t, ok)
	require.Equal(t, created.AID, aID)
}

func testEngineTimeFactor(t *testing.T, f *engineFixture) {
	engine := NewEngine(f.store, f.scheduled, metrics.NewCollector(), 0.5)
	op := &stubOperation{spec: Spec{}, execute: func(ctx *Context) (*Result, error) { return nil, nil }}
	proc := &stubProcess{key: "demo", def: NewDefinition().RegisterOperation("reminder", op)}

	err := engine.Schedule(context.Background(), proc, "reminder", NewContext(), time.Minute, "a1")
	require.NoError(t, err)

	due, err := f.scheduled.ReadDue(context.Background(), time.Now().Add(2*time.Minute))
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.WithinDuration(t, time.Now().Add(30*time.Second), due[0].DueAt, 2*time.Second)
}

func testEnginePhaseAnnounceFilter(t *testing.T, f *engineFixture) {
	collect := &stubOperation{spec: Spec{
		TargetStatus:     model.StatusInProgress,
		AnnounceStatuses: []model.StateStatus{model.StatusCompleted},
	}}
	collect.execute = func(ctx *Context) (*Result, error) {
		aID, err := ctx.GetString(ContextKeyAID)
		if err != nil {
			return nil, err
		}
		a, err := f.store.Read(context.Background(), aID)
		if err != nil {
			return nil, err
		}
		a.Objects = []model.AssistanceObject{
			model.NewAssistanceObject("u1", model.Parameter{Key: "message", Value: model.StringValue("m")}),
		}
		return &Result{Assistance: []*model.Assistance{a}}, nil
	}
	proc := phaseFixtureProcess(f, collect)
	seeded := seedInstance(t, f, "phased", nil)

	opCtx := NewContext().SetString(ContextKeyAID, seeded.AID)
	res, err := f.engine.ExecuteOperation(context.Background(), proc, "collect", opCtx)
	require.NoError(t, err)
	require.Len(t, res.Assistance, 1)

	updated := res.Assistance[0]
	// The target status is not in the announce list, so the step emits its
	// message without a state update and records no per-user progress.
	require.Len(t, updated.Objects, 1)
	_, ok := model.FirstParameter(updated.Objects[0].Parameters, ObjectParamKeyStateUpdate)
	require.False(t, ok)
	_, ok = model.FirstParameter(updated.Parameters, ParamKeyUserStates)
	require.False(t, ok)
}

func testEngineVolatileSchedule(t *testing.T, f *engineFixture) {
	op := &stubOperation{spec: Spec{}, execute: func(ctx *Context) (*Result, error) { return nil, nil }}
	proc := &stubProcess{key: "demo", def: NewDefinition().RegisterOperation("reminder", op)}

	opCtx := NewContext().SetVolatile(ContextKeyResponseObjects, []model.AssistanceObject{})
	err := f.engine.Schedule(context.Background(), proc, "reminder", opCtx, time.Second, "a1")
	require.Error(t, err)
	var notSchedulable NotSchedulableError
	require.ErrorAs(t, err, &notSchedulable)
}
