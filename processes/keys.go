package processes

// Object parameter keys shared across processes. Clients key their rendering
// off these.
const (
	ObjectParamKeyMessage          = "message"
	ObjectParamKeyOperation        = "operation"
	ObjectParamKeyOptions          = "options"
	ObjectParamKeyOptionsResponse  = "options_response"
	ObjectParamKeyPeerSolution     = "peer_solution"
	ObjectParamKeySolutionResponse = "solution_response"
	ObjectParamKeySystemMessage    = "system_message"
	ObjectParamKeyURI              = "uri"
)

// Client UI commands carried in an "operation" object parameter.
const (
	OperationValueDisableChat    = "disable_chat"
	OperationValueDisableOptions = "disable_options"
	OperationValueEnableChat     = "enable_chat"
	OperationValueEnableOptions  = "enable_options"
	OperationValueSendSolution   = "send_solution"
)

// Option keys offered to users.
const (
	OptionKeyNo  = "no"
	OptionKeyYes = "yes"
)

// Initiation parameter keys for processes started by explicit request.
const (
	TypeParamKeyCollaborators = "collaborators"
	TypeParamKeyInitiator     = "initiator"
	TypeParamKeyUserID        = "user_id"
)
