package persistence

import (
	"context"
	"time"

	"github.com/mohitkumar/assist/model"
)

// AssistanceStore persists assistance process instances. There are no
// transactions; Update carries an optimistic version token instead.
type AssistanceStore interface {
	// Create assigns a_id, timestamp and object ids and stores the record.
	Create(ctx context.Context, assistance *model.Assistance) (*model.Assistance, error)
	Read(ctx context.Context, aID string) (*model.Assistance, error)
	// Update replaces the stored record, appending the given record's objects
	// to the already stored ones. It fails with ErrTerminalInstance when the
	// stored instance is terminal and with ErrVersionConflict when the given
	// record's version does not match the stored one. The returned instance
	// carries only the newly added objects.
	Update(ctx context.Context, assistance *model.Assistance) (*model.Assistance, error)
	// AppendObjects adds objects to an existing record without touching
	// state, parameters or next operation keys.
	AppendObjects(ctx context.Context, aID string, objects []model.AssistanceObject) (*model.Assistance, error)
	// ResetNextOperationKeys clears the pending keys without advancing the
	// version token; it is bookkeeping inside one logical execution, and an
	// Update holding the previously read version must still succeed.
	ResetNextOperationKeys(ctx context.Context, aID string) error
	ReadByStatus(ctx context.Context, statuses ...model.StateStatus) ([]*model.Assistance, error)
}

// ScheduledOperationStore persists deferred operation invocations.
type ScheduledOperationStore interface {
	Create(ctx context.Context, op *model.ScheduledOperation) (*model.ScheduledOperation, error)
	ReadDue(ctx context.Context, before time.Time) ([]*model.ScheduledOperation, error)
	Delete(ctx context.Context, id string) error
	DeleteAllForAssistance(ctx context.Context, aID string) error
}

type StatementStore interface {
	Create(ctx context.Context, statement *model.Statement) error
	Read(ctx context.Context, id string) (*model.Statement, error)
}

type StudentModelStore interface {
	// ReadOrCreate returns the student model for the user, creating an empty
	// one if none exists yet.
	ReadOrCreate(ctx context.Context, userID string) (*model.StudentModel, error)
	Save(ctx context.Context, studentModel *model.StudentModel) error
}
