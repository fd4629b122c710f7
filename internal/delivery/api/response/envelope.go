package response

// Meta rides on every body so clients can quote the request id to support.
type Meta struct {
	RequestID string `json:"request_id"`
}

// Body is the 2xx envelope.
type Body struct {
	Data any   `json:"data"`
	Meta *Meta `json:"meta"`
}

// Problem is the error part of a non-2xx body. Code is stable across
// releases and Details is omitted for 5xx and auth failures.
type Problem struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorBody is the non-2xx envelope.
type ErrorBody struct {
	Error *Problem `json:"error"`
	Meta  *Meta    `json:"meta"`
}
