package model

import (
	"time"
)

// ScheduledOperation is a persisted "run this operation at time T" directive.
// The context snapshot must be fully serializable; the scheduler re-creates
// the invocation context from it after arbitrary delays and restarts.
type ScheduledOperation struct {
	ID           string           `json:"id"`
	TypeKey      string           `json:"assistance_type_key"`
	OperationKey string           `json:"assistance_operation_key"`
	Ctx          map[string]Value `json:"ctx"`
	AID          string           `json:"a_id"`
	DueAt        time.Time        `json:"time_of_invocation"`
}
