package constants

const (
	AuthorizationHeaderName = "Authorization"
	ContentTypeHeaderName   = "Content-Type"
	CorrelationIDHeaderName = "X-Correlation-ID"
	UserAgentHeaderName     = "User-Agent"
	EventKeyHeaderName      = "X-Event-Key"
	ContentTypeJSON         = "application/json"
	ContentTypeCSV          = "text/csv"
	TokenTypeBearer         = "Bearer"
	DefaultPageSize         = 50

	// Gin context keys
	ContextKeyCorrelationID = "correlation_id"
	ContextKeyActor         = "actor"

	HeaderContentType = ContentTypeHeaderName
)
