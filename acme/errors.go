package acme

import (
	"errors"
	"fmt"
)

// ProblemError is a structured rejection from the CA, decoded from an
// application/problem+json response body. The Detail text is preserved
// verbatim because it is often the only actionable part of the failure.
type ProblemError struct {
	// The problem type URN assigned by the CA, e.g. "urn:acme:error:unauthorized".
	Type string
	// Human readable detail text from the CA, unmodified.
	Detail string
	// The HTTP status code of the response that carried the problem document.
	StatusCode int
	// The HTTP method and URL of the rejected request.
	Method string
	URL    string
}

func (e *ProblemError) Error() string {
	return fmt.Sprintf("server rejected %s %s: %s (%d %s)",
		e.Method, e.URL, e.Detail, e.StatusCode, e.Type)
}

// TransportError is a network level failure or a non-2xx response that did
// not carry a problem document. StatusCode is zero when the request never
// completed. The raw response body is retained for diagnosis.
type TransportError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("request %s %s failed: %s", e.Method, e.URL, e.Err)
	}
	return fmt.Sprintf("unexpected response to %s %s: HTTP %d", e.Method, e.URL, e.StatusCode)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StateError is a local contract violation, like submitting a challenge
// answer before generating one. It is never retried.
type StateError struct {
	Op     string
	Reason string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// FormatError is malformed base64url or JSON received from the CA. The
// offending payload is carried along for diagnosis.
type FormatError struct {
	Payload string
	Reason  string
	Err     error
}

func (e *FormatError) Error() string {
	payload := e.Payload
	if len(payload) > 100 {
		payload = payload[:100] + "..."
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (payload %q)", e.Reason, e.Err, payload)
	}
	return fmt.Sprintf("%s (payload %q)", e.Reason, payload)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// UnknownResourceError is returned when a directory lookup names a resource
// the server's directory document does not contain.
type UnknownResourceError struct {
	Resource string
}

func (e *UnknownResourceError) Error() string {
	return fmt.Sprintf("no %q entry in server directory", e.Resource)
}

// IsProblemType reports whether err is a ProblemError with the given type URN.
func IsProblemType(err error, typeURN string) bool {
	var prob *ProblemError
	return errors.As(err, &prob) && prob.Type == typeURN
}

// ProblemStatus extracts the HTTP status from a ProblemError, or zero.
func ProblemStatus(err error) int {
	var prob *ProblemError
	if errors.As(err, &prob) {
		return prob.StatusCode
	}
	return 0
}
