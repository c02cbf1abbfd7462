package analyzer

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindEmptyDocument      Kind = "empty_document"
	KindContentBlocked     Kind = "content_blocked"
	KindMalformedResponse  Kind = "malformed_response"
	KindSchemaViolation    Kind = "schema_violation"
	KindInvalidCredentials Kind = "invalid_credentials"
	KindQuotaExceeded      Kind = "quota_exceeded"
	KindNetwork            Kind = "network_error"
	KindUnknown            Kind = "unknown"
	KindTimeout            Kind = "timeout"
)

var messages = map[Kind]string{
	KindEmptyDocument:      "The document appears to be empty or could not be read. Please check the file and try again.",
	KindContentBlocked:     "The analysis was blocked by the AI's safety filter. This can sometimes happen with legal documents. Please try again or modify the document.",
	KindMalformedResponse:  "The AI returned a response that could not be read. Please try again.",
	KindSchemaViolation:    "The AI returned an incomplete analysis. Please try again.",
	KindInvalidCredentials: "Server configuration error: the analysis service credentials are missing or invalid.",
	KindQuotaExceeded:      "API quota exceeded. Please try again later or check your API usage limits.",
	KindNetwork:            "Network connection issue. Please check your internet connection and try again.",
	KindUnknown:            "Failed to get analysis from AI. Please try again later.",
	KindTimeout:            "The analysis took too long to complete. Please try again, or upload a shorter document.",
}

// Message returns the end-user message for kind.
func Message(kind Kind) string {
	if m, ok := messages[kind]; ok {
		return m
	}
	return messages[KindUnknown]
}

// Error is the only error type Analyze returns. Recoverable failures may
// succeed on a later attempt with the same or an edited document.
type Error struct {
	Kind        Kind
	Recoverable bool
	Err         error
}

func newError(kind Kind, err error) *Error {
	return &Error{
		Kind:        kind,
		Recoverable: kind != KindEmptyDocument && kind != KindInvalidCredentials,
		Err:         err,
	}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("analysis %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("analysis %s", e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Message() string {
	return Message(e.Kind)
}

// KindOf reports the analysis kind carried by err, if any.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
