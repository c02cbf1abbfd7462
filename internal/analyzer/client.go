package analyzer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Completion is the reply of the external analysis service. Blocked is set
// when the service withheld its answer, e.g. through a safety filter.
type Completion struct {
	Text        string
	Blocked     bool
	BlockReason string
}

// Completer sends a single prompt to the external analysis service.
type Completer interface {
	Complete(ctx context.Context, prompt string) (*Completion, error)
}

type ClientClass string

const (
	ClassUnclassified ClientClass = ""
	ClassCredentials  ClientClass = "credentials"
	ClassQuota        ClientClass = "quota"
	ClassNetwork      ClientClass = "network"
	ClassServer       ClientClass = "server"
)

// ClientError is returned by Completer implementations that can tell what
// went wrong. Class is left empty when they cannot.
type ClientError struct {
	Class      ClientClass
	StatusCode int
	Message    string
	Err        error
}

func (e *ClientError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("analysis service (status %d): %s", e.StatusCode, msg)
	}
	return "analysis service: " + msg
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

// classifyClientError maps a Completer failure to a Kind. Structured signals
// win; the keyword match at the end is best effort and can misfire when a
// message mentions a keyword incidentally.
func classifyClientError(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	var ce *ClientError
	if errors.As(err, &ce) {
		switch ce.Class {
		case ClassCredentials:
			return KindInvalidCredentials
		case ClassQuota:
			return KindQuotaExceeded
		case ClassNetwork:
			return KindNetwork
		case ClassServer:
			return KindUnknown
		}
	}

	var ne net.Error
	if errors.As(err, &ne) {
		if ne.Timeout() {
			return KindTimeout
		}
		return KindNetwork
	}

	return classifyByMessage(err.Error())
}

func classifyByMessage(msg string) Kind {
	msg = strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "api key") && (strings.Contains(msg, "invalid") || strings.Contains(msg, "expired")):
		return KindInvalidCredentials
	case strings.Contains(msg, "quota") || strings.Contains(msg, "limit"):
		return KindQuotaExceeded
	case strings.Contains(msg, "network") || strings.Contains(msg, "connection"):
		return KindNetwork
	default:
		return KindUnknown
	}
}
