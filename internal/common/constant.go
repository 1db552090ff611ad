package common

// SessionHeaderName is the gRPC metadata key carrying the client session id.
const SessionHeaderName = "session_id"

// UserAgentHeaderName is the gRPC metadata key carrying the client user agent.
const UserAgentHeaderName = "client_user_agent"

// Operation names stored in the lock table.
const (
	OperationParse     = "parse"
	OperationTranslate = "translate"
)
