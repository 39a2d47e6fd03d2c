// Package senderror defines the structured error type the engine uses to
// carry a reason code, HTTP status, and serialisable detail payload from
// deep inside a handler up to the Router's recovery logic.
package senderror

import (
	"errors"
	"fmt"
)

// Reason is a closed-ish set of error reasons. New reasons are added
// here as the engine grows; handlers are free to define their own Reason
// values alongside a descriptive detail payload for anything not yet named.
type Reason string

// Built-in reasons. Business-specific reasons (e.g. RECIPE_NOT_FOUND)
// are expected to be defined by embedders using the same pattern —
// Reason is just a string, not a Go enum, so embedders are never
// blocked on a reason the core doesn't know about.
const (
	ReasonBadRequest          Reason = "BAD_REQUEST"
	ReasonUnauthorized        Reason = "UNAUTHORIZED"
	ReasonForbidden           Reason = "FORBIDDEN"
	ReasonNotFound            Reason = "NOT_FOUND"
	ReasonMethodNotAllowed    Reason = "METHOD_NOT_ALLOWED"
	ReasonRequestTooLarge     Reason = "REQUEST_TOO_LARGE"
	ReasonRangeNotSatisfiable Reason = "RANGE_NOT_SATISFIABLE"
	ReasonInternalServerError Reason = "INTERNAL_SERVER_ERROR"
	ReasonRequestDropped      Reason = "REQUEST_DROPPED"

	ReasonMultipartInvalidContentType Reason = "MULTIPART_INVALID_CONTENT_TYPE"
	ReasonMultipartMissingBoundary    Reason = "MULTIPART_MISSING_BOUNDARY"
)

// SendError is a tagged error carrying exactly the fields spec.md §4.7
// describes: a reason, an HTTP status, and a reason-specific detail
// value (or nil). It implements error so it can flow through ordinary
// Go error handling, but the Router special-cases it: an uncaught
// SendError is rendered to the client; any other error is treated as an
// internal server error (spec.md §7).
type SendError struct {
	Reason  Reason `json:"reason"`
	Status  int    `json:"status"`
	Details any    `json:"details,omitempty"`
}

// New constructs a SendError with no detail payload.
func New(reason Reason, status int) *SendError {
	return &SendError{Reason: reason, Status: status}
}

// WithDetails attaches a structured detail payload and returns the same
// error (for chaining at the call site).
func (e *SendError) WithDetails(details any) *SendError {
	e.Details = details
	return e
}

// Error satisfies the error interface.
func (e *SendError) Error() string {
	if e.Details != nil {
		return fmt.Sprintf("%s (%d): %v", e.Reason, e.Status, e.Details)
	}
	return fmt.Sprintf("%s (%d)", e.Reason, e.Status)
}

// BadRequest is a convenience constructor for the common 400 case.
func BadRequest(details any) *SendError {
	return New(ReasonBadRequest, 400).WithDetails(details)
}

// NotFound is a convenience constructor for the common 404 case.
func NotFound(details any) *SendError {
	return New(ReasonNotFound, 404).WithDetails(details)
}

// Internal is a convenience constructor for the common 500 case. Detail
// payloads for internal errors are deliberately never sent to clients by
// the default recovery handler — see router.DefaultRecover.
func Internal(details any) *SendError {
	return New(ReasonInternalServerError, 500).WithDetails(details)
}

// AsSendError reports whether err is (or wraps) a *SendError, returning
// it if so.
func AsSendError(err error) (*SendError, bool) {
	var se *SendError
	ok := errors.As(err, &se)
	return se, ok
}
