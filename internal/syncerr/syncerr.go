// Package syncerr classifies failures at the remote boundary into the small
// set of kinds the rest of the ledger reacts to.
package syncerr

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
)

// Kind is the category of a sync failure.
type Kind int

const (
	// NetworkUnavailable covers transport errors and non-auth remote failures.
	NetworkUnavailable Kind = iota + 1
	// Unauthorized means the bearer token was rejected.
	Unauthorized
	// RemoteNotFound means the remote document or row does not exist.
	RemoteNotFound
	// MalformedPayload means a document could not be decoded.
	MalformedPayload
)

func (k Kind) String() string {
	switch k {
	case NetworkUnavailable:
		return "network_unavailable"
	case Unauthorized:
		return "unauthorized"
	case RemoteNotFound:
		return "remote_not_found"
	case MalformedPayload:
		return "malformed_payload"
	}
	return "unknown"
}

// Sentinels for errors.Is matching against a kind.
var (
	ErrNetworkUnavailable = &Error{Kind: NetworkUnavailable}
	ErrUnauthorized       = &Error{Kind: Unauthorized}
	ErrRemoteNotFound     = &Error{Kind: RemoteNotFound}
	ErrMalformedPayload   = &Error{Kind: MalformedPayload}
)

// Error is a classified failure. Op names the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op == "" && e.Err == nil:
		return e.Kind.String()
	case e.Err == nil:
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	case e.Op == "":
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrUnauthorized)
// works regardless of Op and cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New builds a classified error.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of err, or 0 when err is nil or unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// Classify maps a transport error to a kind. Errors that are already
// classified keep their kind; anything unrecognised is NetworkUnavailable.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return err
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized:
			return New(Unauthorized, op, err)
		case http.StatusNotFound:
			return New(RemoteNotFound, op, err)
		}
		return New(NetworkUnavailable, op, err)
	}

	// Timeouts, refused connections and everything else are transient.
	return New(NetworkUnavailable, op, err)
}

// FromStatus classifies a raw HTTP status code. 2xx returns nil.
func FromStatus(op string, status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized:
		return New(Unauthorized, op, fmt.Errorf("status %d", status))
	case status == http.StatusNotFound:
		return New(RemoteNotFound, op, fmt.Errorf("status %d", status))
	}
	return New(NetworkUnavailable, op, fmt.Errorf("status %d", status))
}
