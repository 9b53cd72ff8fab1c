package model

import (
	"time"
)

type StateStatus string

const (
	StatusInitiated  StateStatus = "INITIATED"
	StatusInProgress StateStatus = "IN_PROGRESS"
	StatusCompleted  StateStatus = "COMPLETED"
	StatusAborted    StateStatus = "ABORTED"
)

// Terminal reports whether no further objects may be appended to an
// assistance in this status.
func (s StateStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusAborted
}

// State reflects the advancement of the process itself. Per-user progress is
// tracked separately in the user_states parameter.
type State struct {
	Status StateStatus `json:"status"`
	Phase  int         `json:"phase,omitempty"`
	Step   string      `json:"step,omitempty"`
}

// AsValue renders the state as an object value for state_update payloads,
// omitting unset fields.
func (s State) AsValue() Value {
	obj := map[string]Value{}
	if s.Status != "" {
		obj["status"] = StringValue(string(s.Status))
	}
	if s.Phase != 0 {
		obj["phase"] = IntValue(s.Phase)
	}
	if s.Step != "" {
		obj["step"] = StringValue(s.Step)
	}
	return ObjectValue(obj)
}

type ObjectKind string

const (
	// ObjectKindAssistance marks objects produced by the engine for a user.
	ObjectKindAssistance ObjectKind = "assistance_object"
	// ObjectKindResponse marks objects fed back into the process by a client.
	ObjectKindResponse ObjectKind = "assistance_response_object"
)

// Assistance is one persisted occurrence of a registered process type.
type Assistance struct {
	AID               string             `json:"a_id"`
	UserID            string             `json:"user_id"`
	TypeKey           string             `json:"type_key"`
	Timestamp         time.Time          `json:"timestamp"`
	Version           int64              `json:"version"`
	State             State              `json:"assistance_state"`
	Parameters        []Parameter        `json:"parameters"`
	Objects           []AssistanceObject `json:"assistance_objects"`
	NextOperationKeys []string           `json:"next_operation_keys"`
}

func NewAssistance(userID string, objects []AssistanceObject) *Assistance {
	return &Assistance{
		UserID:  userID,
		Objects: objects,
	}
}

// AssistanceObject is the unit of output delivered to one user, or the unit
// of response data a client feeds back into the process.
type AssistanceObject struct {
	AoID       string      `json:"ao_id"`
	AID        string      `json:"a_id,omitempty"`
	TypeKey    string      `json:"assistance_type,omitempty"`
	UserID     string      `json:"user_id"`
	Timestamp  time.Time   `json:"timestamp"`
	Kind       ObjectKind  `json:"type,omitempty"`
	Parameters []Parameter `json:"parameters"`
}

func NewAssistanceObject(userID string, params ...Parameter) AssistanceObject {
	return AssistanceObject{
		UserID:     userID,
		Parameters: params,
	}
}
