package types

// SuccessEnvelope is the wrapper around every successful API response body.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the error shape clients see. Details carries optional
// field-level context such as validation failures.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope is the wrapper around every API error response body.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
