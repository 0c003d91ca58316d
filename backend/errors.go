package backend

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"rdr-dashboard/model"
)

// ErrTransport matches every failed backend request: non-2xx answers,
// network failures and bodies that are not the expected JSON.
var ErrTransport = errors.New("backend request failed")

// TransportError describes a failed backend request
type TransportError struct {
	StatusCode int             // 0 when no response was received
	Detail     json.RawMessage // "detail" of the error body, when present
	Body       string          // Raw error body
	Err        error           // Network or decode failure
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	if len(e.Detail) > 0 {
		return FormatDetail(e.Detail)
	}
	if strings.TrimSpace(e.Body) != "" {
		return e.Body
	}
	return fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

func (e *TransportError) Unwrap() error { return e.Err }

// newStatusError builds the error of a non-2xx response from its body
func newStatusError(status int, body []byte) *TransportError {
	e := &TransportError{StatusCode: status, Body: string(body)}
	var envelope model.ErrorBody
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Detail) > 0 {
		e.Detail = envelope.Detail
	}
	return e
}

// FormatDetail renders the "detail" of an error body as one line.
// A structured {type?, identifier, error} detail reads
// `Invalid input <type> "<identifier>": <error>`; anything else is shown as
// compact JSON.
func FormatDetail(detail json.RawMessage) string {
	var d model.ErrorDetail
	if err := json.Unmarshal(detail, &d); err == nil && d.Identifier != "" && d.Error != "" {
		if d.Type != "" {
			return fmt.Sprintf("Invalid input %s \"%s\": %s", d.Type, d.Identifier, d.Error)
		}
		return fmt.Sprintf("Invalid input \"%s\": %s", d.Identifier, d.Error)
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, detail); err != nil {
		return string(detail)
	}
	return compact.String()
}

// Message returns the user facing text of err
func Message(err error) string {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Error()
	}
	return err.Error()
}
