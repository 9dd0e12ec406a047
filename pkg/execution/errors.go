package execution

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sony/gobreaker/v2"
)

var (
	// ErrInvalidPayload indicates a test payload that is not a JSON object.
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrUnexpectedStatus indicates the execution endpoint answered with a non-2xx status.
	ErrUnexpectedStatus = errors.New("unexpected status")
)

// PayloadParseError is returned when the raw test payload cannot be parsed. No request is sent.
type PayloadParseError struct {
	Offset int64 // Byte offset of a syntax error, 0 when unknown
	Err    error // Underlying error
}

func (e *PayloadParseError) Error() string {
	if e.Offset > 0 {
		return fmt.Sprintf("payload parse error at offset %d: %v", e.Offset, e.Err)
	}

	return fmt.Sprintf("payload parse error: %v", e.Err)
}

func (e *PayloadParseError) Unwrap() error {
	return e.Err
}

// RequestError wraps a failed call to the execution endpoint.
type RequestError struct {
	Op         string // Operation being performed (e.g., "execute")
	StatusCode int    // HTTP status, 0 for transport failures
	Err        error  // Underlying error
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s request failed with status %d: %v", e.Op, e.StatusCode, e.Err)
	}

	return fmt.Sprintf("%s request failed: %v", e.Op, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Retryable reports whether repeating the request may succeed: transport failures, an open
// circuit, throttling and server errors.
func (e *RequestError) Retryable() bool {
	return e.StatusCode == 0 ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= http.StatusInternalServerError
}

// IsPayloadParseError checks if an error comes from parsing the test payload.
func IsPayloadParseError(err error) bool {
	var parseErr *PayloadParseError

	return errors.As(err, &parseErr)
}

// IsRequestError checks if an error comes from the execution endpoint call.
func IsRequestError(err error) bool {
	var requestErr *RequestError

	return errors.As(err, &requestErr)
}

// IsCircuitOpen checks if the call was refused by the circuit breaker.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
