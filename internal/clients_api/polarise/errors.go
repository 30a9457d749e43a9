package polarise

import (
	"errors"
	"fmt"
)

var (
	// ErrRejected is wrapped when the body status code is not "200"
	ErrRejected = errors.New("request rejected")

	// ErrUnexpectedStatus is wrapped when an endpoint that requires transport status 200 gets something else
	ErrUnexpectedStatus = errors.New("unexpected http status")

	// ErrMalformedResponse is wrapped when the body is not JSON or lacks a required field
	ErrMalformedResponse = errors.New("malformed response")
)

// TransportError covers network failures, timeouts, an open circuit breaker and rate limiter waits.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error on %s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ApplicationError is a well-formed exchange with the API that did not succeed.
type ApplicationError struct {
	Endpoint   string
	HTTPStatus int
	Code       string // body status code, empty when the body could not be parsed
	Message    string // server msg, verbatim
	Err        error  // ErrRejected, ErrUnexpectedStatus or ErrMalformedResponse
}

func (e *ApplicationError) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("%s: %v (http %d, code %q): %s", e.Endpoint, e.Err, e.HTTPStatus, e.Code, e.Message)
	case e.Code != "":
		return fmt.Sprintf("%s: %v (http %d, code %q)", e.Endpoint, e.Err, e.HTTPStatus, e.Code)
	default:
		return fmt.Sprintf("%s: %v (http %d)", e.Endpoint, e.Err, e.HTTPStatus)
	}
}

func (e *ApplicationError) Unwrap() error { return e.Err }

// IsTransport reports whether err is (or wraps) a TransportError
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsApplication reports whether err is (or wraps) an ApplicationError
func IsApplication(err error) bool {
	var ae *ApplicationError
	return errors.As(err, &ae)
}
