package model

import (
	"time"
)

// Statement is the learner activity event driving event-based dispatch.
// The shape follows the xAPI statements emitted by the learning environment.
type Statement struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Actor     StatementActor  `json:"actor"`
	Verb      StatementVerb   `json:"verb"`
	Object    StatementObject `json:"object"`
	Result    Value           `json:"result,omitempty"`
}

type StatementActor struct {
	Account StatementAccount `json:"account"`
}

type StatementAccount struct {
	Name string `json:"name"`
}

type StatementVerb struct {
	ID string `json:"id"`
}

type StatementObject struct {
	ID string `json:"id"`
}

// UserID returns the id of the user the statement refers to.
func (s *Statement) UserID() string {
	return s.Actor.Account.Name
}

const (
	VerbAnswered    = "http://adlnet.gov/expapi/verbs/answered"
	VerbAssisted    = "https://brindlewaye.com/xAPITerms/verbs/assisted/"
	VerbCompleted   = "http://adlnet.gov/expapi/verbs/completed"
	VerbExperienced = "http://adlnet.gov/expapi/verbs/experienced"
	VerbInteracted  = "http://adlnet.gov/expapi/verbs/interacted"
	VerbLoggedIn    = "https://brindlewaye.com/xAPITerms/verbs/loggedin/"
	VerbLoggedOut   = "https://brindlewaye.com/xAPITerms/verbs/loggedout/"
	VerbRead        = "http://adlnet.gov/expapi/verbs/read"
	VerbUsed        = "http://adlnet.gov/expapi/verbs/used"
)

// Experience is one processed statement recorded on the student model.
type Experience struct {
	Timestamp   time.Time `json:"timestamp"`
	StatementID string    `json:"statement_id"`
	ObjectID    string    `json:"object_id"`
	VerbID      string    `json:"verb_id"`
	Result      Value     `json:"result,omitempty"`
}

// StudentModel aggregates what the system knows about one user.
type StudentModel struct {
	UserID          string       `json:"user_id"`
	Online          bool         `json:"online"`
	Cooperativeness bool         `json:"cooperativeness"`
	Experiences     []Experience `json:"experiences"`
}

func NewStudentModel(userID string) *StudentModel {
	return &StudentModel{
		UserID:          userID,
		Cooperativeness: true,
	}
}
