package model

import "encoding/json"

// Root is the response of GET / and lists the backend endpoints
type Root struct {
	Message   string            `json:"message"`
	Endpoints map[string]string `json:"endpoints"` // instruction -> path
}

// Paged is implemented by every list response that supports offset pagination
type Paged interface {
	PageTotal() int
	PageLen() int
}

// ErrorBody is the envelope of every non-2xx backend response
type ErrorBody struct {
	Detail json.RawMessage `json:"detail"`
}

// ErrorDetail is the structured form of ErrorBody.Detail
type ErrorDetail struct {
	Type       string `json:"type,omitempty"`
	Identifier string `json:"identifier"`
	Error      string `json:"error"`
}
