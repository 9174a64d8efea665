package nobelapi

import (
	"errors"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/gauguri/NobelPrediction/internal/resilience"
)

// ErrInvalidArgument is returned when an input fails shape validation. No
// request is issued in that case.
var ErrInvalidArgument = eris.New("nobelapi: invalid argument")

// FailureKind classifies a TransportError.
type FailureKind int

const (
	// FailureNetwork means no response was received.
	FailureNetwork FailureKind = iota
	// FailureStatus means the backend answered with a non-2xx status.
	FailureStatus
	// FailureDecode means the payload could not be parsed into canonical entities.
	FailureDecode
)

func (k FailureKind) String() string {
	switch k {
	case FailureNetwork:
		return "network"
	case FailureStatus:
		return "status"
	case FailureDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// TransportError is the uniform failure signal of every Client operation.
type TransportError struct {
	Op         string
	URL        string
	Kind       FailureKind
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	switch e.Kind {
	case FailureStatus:
		return fmt.Sprintf("nobelapi: %s: unexpected status %d: %v", e.Op, e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("nobelapi: %s: %s failure: %v", e.Op, e.Kind, e.Err)
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Retryable reports whether repeating the request may succeed.
func (e *TransportError) Retryable() bool {
	switch e.Kind {
	case FailureNetwork:
		return true
	case FailureStatus:
		return resilience.IsTransientHTTPStatus(e.StatusCode)
	default:
		return false
	}
}

// IsRetryable reports whether err carries a retryable TransportError.
func IsRetryable(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable()
	}
	return false
}

// StatusCode extracts the HTTP status from err, or 0 if there is none.
func StatusCode(err error) int {
	var te *TransportError
	if errors.As(err, &te) {
		return te.StatusCode
	}
	return 0
}
