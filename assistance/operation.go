package assistance

import (
	"time"

	"github.com/mohitkumar/assist/model"
)

// TriggerMode controls how a subsequent operation is invoked after the
// current one succeeds.
type TriggerMode string

const (
	// TriggerImmediate records the key on the instance so the next matching
	// event or response invokes it.
	TriggerImmediate TriggerMode = "TRIGGERED"
	// TriggerScheduled enqueues a deferred invocation for the delay queue.
	TriggerScheduled TriggerMode = "SCHEDULED"
)

// SubsequentOperation names an operation to run after the current one.
type SubsequentOperation struct {
	Key   string
	Mode  TriggerMode
	Delay time.Duration
}

func Triggered(key string) SubsequentOperation {
	return SubsequentOperation{Key: key, Mode: TriggerImmediate}
}

func Scheduled(key string, delay time.Duration) SubsequentOperation {
	return SubsequentOperation{Key: key, Mode: TriggerScheduled, Delay: delay}
}

// Spec is the immutable declaration of an operation. Registration inside a
// phase plan may extend a copy of it, the operation value itself is never
// mutated and may be shared.
type Spec struct {
	// TargetStatus the instance transitions to on success. Empty keeps the
	// current status.
	TargetStatus model.StateStatus

	// Subsequents declared statically. A non-nil slice, even an empty one,
	// replaces the instance's pending next-operation keys.
	Subsequents []SubsequentOperation

	// InProgressRequired gates applicability on an existing non-terminal
	// instance referenced by the context.
	InProgressRequired bool

	// DeleteScheduled removes all pending deferred invocations of the
	// instance before committing.
	DeleteScheduled bool

	// ResetNextOperationKeys clears the instance's pending keys even when no
	// subsequents are declared.
	ResetNextOperationKeys bool

	// RelatedUserIDs overrides the affected-user resolution for state
	// update announcements.
	RelatedUserIDs []string

	// AnnounceStatuses restricts which updated statuses produce a
	// state update object for operations registered outside a phase plan.
	// Nil means the terminal statuses only.
	AnnounceStatuses []model.StateStatus

	// OwnerOnlyAnnounce limits state update objects to the instance owner
	// regardless of related users.
	OwnerOnlyAnnounce bool
}

// Request asks the dispatcher to run another operation, possibly of a
// different process type, within the same synchronous cycle.
type Request struct {
	TypeKey      string
	OperationKey string
	Ctx          *Context
}

// Directives carries execution-time decisions of an operation back to the
// engine. Zero values defer to the registered spec.
type Directives struct {
	// TargetStatus overrides the spec's target when non-empty.
	TargetStatus model.StateStatus

	// Subsequents overrides the spec's declared subsequents when non-nil.
	// An empty non-nil slice cancels all progression.
	Subsequents []SubsequentOperation

	// PreventProgress discards all queued subsequents and state changes,
	// parking the instance as it was.
	PreventProgress bool

	// DeleteScheduled and ResetNextOperationKeys extend the spec's flags.
	DeleteScheduled        bool
	ResetNextOperationKeys bool

	// RelatedUserIDs overrides affected-user resolution for this run.
	RelatedUserIDs []string
}

// Result is what an operation produces on success.
type Result struct {
	// Assistance instances to create or update. Nil means the operation
	// only advances the instance referenced by the context.
	Assistance []*model.Assistance

	// Requests to resolve after (or before, with PrependChained) this
	// result within the same cycle.
	Requests []Request

	// PrependChained places the chained results ahead of this operation's
	// own output in the delivered sequence.
	PrependChained bool

	Directives Directives
}

// Operation is a single executable unit of an assistance process.
//
// Implementations must be stateless with respect to invocations; all
// per-invocation data travels through the context and the returned result.
type Operation interface {
	// Spec declares the static behavior of the operation.
	Spec() Spec

	// IsApplicable reports whether the operation should run for the given
	// context. The engine has already verified the in-progress gate when
	// the spec demands one.
	IsApplicable(ctx *Context) bool

	// Execute runs the business logic. Returning (nil, nil) is a valid
	// outcome meaning nothing to emit.
	Execute(ctx *Context) (*Result, error)
}

// OperationFunc adapts plain functions to always-applicable operations
// without declared behavior. Useful in tests.
type OperationFunc func(ctx *Context) (*Result, error)

func (f OperationFunc) Spec() Spec                     { return Spec{} }
func (f OperationFunc) IsApplicable(ctx *Context) bool { return true }
func (f OperationFunc) Execute(ctx *Context) (*Result, error) {
	return f(ctx)
}

// Objects flattens the produced objects of a result set in order.
func Objects(assistance []*model.Assistance) []model.AssistanceObject {
	var objects []model.AssistanceObject
	for _, a := range assistance {
		objects = append(objects, a.Objects...)
	}
	return objects
}
