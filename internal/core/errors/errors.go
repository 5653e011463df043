package errors

const (
	HttpInternalError           = "internal_error"
	HttpInvalidJsonError        = "invalid_json"
	HttpInvalidPayloadError     = "invalid_payload"
	HttpMissingTopicError       = "missing_topic"
	HttpInvalidTopicFormatError = "invalid_topic_format"
	HttpInvalidQueryError       = "invalid_query"
	HttpNotFoundError           = "not_found"
)

// ErrorResponse is the error response body for every API error.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}
