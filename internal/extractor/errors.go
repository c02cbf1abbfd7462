package extractor

import (
	"errors"
	"fmt"

	"github.com/BerylCAtieno/agreement-analyzer/internal/models"
)

type Kind string

const (
	KindDecode         Kind = "decode_error"
	KindEncrypted      Kind = "encrypted_document"
	KindUnsupported    Kind = "unsupported_format"
	KindOCRUnavailable Kind = "ocr_unavailable"
)

// Error is returned by Extract for every failure. Extraction failures are
// terminal for a run.
type Error struct {
	Kind   Kind
	Format models.Format
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract %s: %s: %v", e.Format, e.Kind, e.Err)
	}
	return fmt.Sprintf("extract %s: %s", e.Format, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, format models.Format, err error) *Error {
	return &Error{Kind: kind, Format: format, Err: err}
}

// KindOf reports the extraction kind carried by err, if any.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

var messages = map[Kind]string{
	KindDecode:         "The file could not be read as text. Please save it as UTF-8 and try again.",
	KindEncrypted:      "Cannot process encrypted PDF files.",
	KindUnsupported:    "Could not read the uploaded file. It may be corrupted or in an unsupported format.",
	KindOCRUnavailable: "This PDF looks like a scanned image and text recognition is not available on the server. Please upload a text-based PDF, DOCX or TXT file.",
}

// Message returns the end-user message for kind.
func Message(kind Kind) string {
	if m, ok := messages[kind]; ok {
		return m
	}
	return messages[KindUnsupported]
}
