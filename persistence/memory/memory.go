// Package memory provides map-backed implementations of the persistence
// interfaces. It backs the "memory" storage-impl flag and the test suite.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mohitkumar/assist/model"
	"github.com/mohitkumar/assist/persistence"
	"github.com/mohitkumar/assist/util"
)

type AssistanceStore struct {
	mu     sync.RWMutex
	encDec util.EncoderDecoder[model.Assistance]
	items  map[string]*model.Assistance
}

var _ persistence.AssistanceStore = new(AssistanceStore)

func NewAssistanceStore() *AssistanceStore {
	return &AssistanceStore{
		encDec: util.NewJsonEncoderDecoder[model.Assistance](),
		items:  make(map[string]*model.Assistance),
	}
}

func (s *AssistanceStore) copyOf(a *model.Assistance) *model.Assistance {
	data, err := s.encDec.Encode(*a)
	if err != nil {
		panic(err)
	}
	res, err := s.encDec.Decode(data)
	if err != nil {
		panic(err)
	}
	return res
}

func (s *AssistanceStore) Create(_ context.Context, assistance *model.Assistance) (*model.Assistance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.copyOf(assistance)
	stored.AID = uuid.New().String()
	stored.Timestamp = time.Now()
	stored.Version = 1
	for i := range stored.Objects {
		stored.Objects[i].AoID = uuid.New().String()
		stored.Objects[i].AID = stored.AID
		stored.Objects[i].Timestamp = time.Now()
	}
	s.items[stored.AID] = stored
	return s.copyOf(stored), nil
}

func (s *AssistanceStore) Read(_ context.Context, aID string) (*model.Assistance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.items[aID]
	if !ok {
		return nil, persistence.ErrNotFound
	}
	return s.copyOf(stored), nil
}

func (s *AssistanceStore) Update(_ context.Context, assistance *model.Assistance) (*model.Assistance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.items[assistance.AID]
	if !ok {
		return nil, persistence.ErrNotFound
	}
	if existing.State.Status.Terminal() {
		return nil, persistence.ErrTerminalInstance
	}
	if assistance.Version != existing.Version {
		return nil, persistence.ErrVersionConflict
	}

	updated := s.copyOf(assistance)
	newObjects := updated.Objects
	for i := range newObjects {
		newObjects[i].AoID = uuid.New().String()
		newObjects[i].AID = updated.AID
		newObjects[i].Timestamp = time.Now()
	}
	updated.Timestamp = existing.Timestamp
	updated.Objects = append(append([]model.AssistanceObject{}, existing.Objects...), newObjects...)
	updated.Version = existing.Version + 1
	s.items[updated.AID] = updated

	result := s.copyOf(updated)
	result.Objects = newObjects
	return result, nil
}

func (s *AssistanceStore) AppendObjects(_ context.Context, aID string, objects []model.AssistanceObject) (*model.Assistance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.items[aID]
	if !ok {
		return nil, persistence.ErrNotFound
	}
	if existing.State.Status.Terminal() {
		return nil, persistence.ErrTerminalInstance
	}
	newObjects := make([]model.AssistanceObject, len(objects))
	copy(newObjects, objects)
	for i := range newObjects {
		newObjects[i].AoID = uuid.New().String()
		newObjects[i].AID = aID
		newObjects[i].Timestamp = time.Now()
	}
	existing.Objects = append(existing.Objects, newObjects...)
	existing.Version++

	result := s.copyOf(existing)
	result.Objects = newObjects
	return result, nil
}

func (s *AssistanceStore) ResetNextOperationKeys(_ context.Context, aID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.items[aID]
	if !ok {
		return persistence.ErrNotFound
	}
	existing.NextOperationKeys = []string{}
	return nil
}

func (s *AssistanceStore) ReadByStatus(_ context.Context, statuses ...model.StateStatus) ([]*model.Assistance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []*model.Assistance
	for _, stored := range s.items {
		for _, status := range statuses {
			if stored.State.Status == status {
				res = append(res, s.copyOf(stored))
				break
			}
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Timestamp.Before(res[j].Timestamp) })
	return res, nil
}

type ScheduledOperationStore struct {
	mu    sync.RWMutex
	items map[string]*model.ScheduledOperation
}

var _ persistence.ScheduledOperationStore = new(ScheduledOperationStore)

func NewScheduledOperationStore() *ScheduledOperationStore {
	return &ScheduledOperationStore{items: make(map[string]*model.ScheduledOperation)}
}

func (s *ScheduledOperationStore) Create(_ context.Context, op *model.ScheduledOperation) (*model.ScheduledOperation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *op
	stored.ID = uuid.New().String()
	s.items[stored.ID] = &stored
	res := stored
	return &res, nil
}

func (s *ScheduledOperationStore) ReadDue(_ context.Context, before time.Time) ([]*model.ScheduledOperation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []*model.ScheduledOperation
	for _, stored := range s.items {
		if !stored.DueAt.After(before) {
			op := *stored
			res = append(res, &op)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].DueAt.Before(res[j].DueAt) })
	return res, nil
}

func (s *ScheduledOperationStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

func (s *ScheduledOperationStore) DeleteAllForAssistance(_ context.Context, aID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, stored := range s.items {
		if stored.AID == aID {
			delete(s.items, id)
		}
	}
	return nil
}

type StatementStore struct {
	mu    sync.RWMutex
	items map[string]*model.Statement
}

var _ persistence.StatementStore = new(StatementStore)

func NewStatementStore() *StatementStore {
	return &StatementStore{items: make(map[string]*model.Statement)}
}

func (s *StatementStore) Create(_ context.Context, statement *model.Statement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *statement
	s.items[stored.ID] = &stored
	return nil
}

func (s *StatementStore) Read(_ context.Context, id string) (*model.Statement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.items[id]
	if !ok {
		return nil, persistence.ErrNotFound
	}
	res := *stored
	return &res, nil
}

type StudentModelStore struct {
	mu    sync.RWMutex
	items map[string]*model.StudentModel
}

var _ persistence.StudentModelStore = new(StudentModelStore)

func NewStudentModelStore() *StudentModelStore {
	return &StudentModelStore{items: make(map[string]*model.StudentModel)}
}

func (s *StudentModelStore) ReadOrCreate(_ context.Context, userID string) (*model.StudentModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.items[userID]
	if !ok {
		stored = model.NewStudentModel(userID)
		s.items[userID] = stored
	}
	res := *stored
	res.Experiences = append([]model.Experience{}, stored.Experiences...)
	return &res, nil
}

func (s *StudentModelStore) Save(_ context.Context, studentModel *model.StudentModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *studentModel
	stored.Experiences = append([]model.Experience{}, studentModel.Experiences...)
	s.items[stored.UserID] = &stored
	return nil
}
