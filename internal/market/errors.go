package market

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedResponse is wrapped when a success body cannot be decoded.
var ErrMalformedResponse = errors.New("malformed response")

// Card validation failures.
var (
	ErrCardNameRequired = errors.New("card name is required")
	ErrNegativePrice    = errors.New("card price must not be negative")
	ErrUnknownRarity    = errors.New("unknown card rarity")
)

// Validate checks the fields a catalog edit must satisfy.
func (c Card) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrCardNameRequired
	}
	if c.Price.IsNegative() {
		return ErrNegativePrice
	}
	if c.Rarity != "" && !c.Rarity.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownRarity, c.Rarity)
	}
	return nil
}

// TransportError reports a request that never produced a response:
// connection refused, DNS failure, timeout or cancellation.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError reports a response outside the 2xx range. Message carries the
// body's "message" or "error" field when present.
type StatusError struct {
	Method  string
	Path    string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api %s returned status %d", e.Path, e.Code)
	}
	return fmt.Sprintf("api %s returned status %d: %s", e.Path, e.Code, e.Message)
}

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsRejected reports whether the server answered err's request with a
// non-success status.
func IsRejected(err error) bool {
	var se *StatusError
	return errors.As(err, &se)
}

// StatusCode returns the HTTP status carried by err, or zero.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

// RejectionMessage returns the server-provided message carried by err.
func RejectionMessage(err error) string {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Message
	}
	return ""
}
