package apierror

// ErrorResponse is the JSON body returned for every failed request.
type ErrorResponse struct {
	Code          string `json:"error"`
	Description   string `json:"error_description"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// NewErrorResponse builds an error body, tagging it with the request correlation ID when known.
func NewErrorResponse(code, description, correlationID string) *ErrorResponse {
	return &ErrorResponse{
		Code:          code,
		Description:   description,
		CorrelationID: correlationID,
	}
}
