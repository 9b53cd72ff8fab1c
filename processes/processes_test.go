package processes

import (
	"context"
	"testing"
	"time"

	"github.com/mohitkumar/assist/assistance"
	"github.com/mohitkumar/assist/metrics"
	"github.com/mohitkumar/assist/model"
	"github.com/mohitkumar/assist/persistence/memory"
)

type fixture struct {
	store      *memory.AssistanceStore
	scheduled  *memory.ScheduledOperationStore
	statements *memory.StatementStore
	students   *memory.StudentModelStore
	registry   *assistance.Registry
	dispatcher *assistance.Dispatcher
}

func newFixture() *fixture {
	f := &fixture{
		store:      memory.NewAssistanceStore(),
		scheduled:  memory.NewScheduledOperationStore(),
		statements: memory.NewStatementStore(),
		students:   memory.NewStudentModelStore(),
	}
	f.registry = assistance.NewRegistry().
		Register(NewGreeting(f.store, f.statements, f.students)).
		Register(NewExchangeWillingness(f.store, f.students)).
		Register(NewPeerExchange(f.store))
	engine := assistance.NewEngine(f.store, f.scheduled, metrics.NewCollector(), 1)
	f.dispatcher = assistance.NewDispatcher(f.registry, engine, f.store, nil)
	return f
}

func (f *fixture) loginStatement(id, userID string) *model.Statement {
	return &model.Statement{
		ID:        id,
		Timestamp: time.Now(),
		Actor:     model.StatementActor{Account: model.StatementAccount{Name: userID}},
		Verb:      model.StatementVerb{ID: model.VerbLoggedIn},
		Object:    model.StatementObject{ID: "https://example.org/course"},
	}
}

func (f *fixture) pendingScheduled(t *testing.T) []*model.ScheduledOperation {
	t.Helper()
	due, err := f.scheduled.ReadDue(context.Background(), time.Now().Add(24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	return due
}
