package workflow

import (
	"errors"

	"github.com/svcflow/servicedesk/internal/application/port"
)

var (
	// ErrNotFound is returned when the request id is unknown
	ErrNotFound = errors.New("request not found")

	// ErrNotAuthorized is returned when the actor is not permitted to
	// perform the action in the request's current state
	ErrNotAuthorized = errors.New("actor not authorized for this action")

	// ErrNotOwner is returned when an owner-gated action is attempted by
	// someone other than the request's requestor
	ErrNotOwner = errors.New("actor is not the request owner")

	// ErrInvalidState is returned when the action is illegal for the
	// current status, including races lost to an earlier transition
	ErrInvalidState = errors.New("action not valid in current state")

	// ErrValidation is returned when a required payload field is missing
	// or malformed
	ErrValidation = errors.New("invalid action payload")

	// ErrVersionConflict is an optimistic-concurrency loss. Unlike
	// ErrInvalidState it is transiently retryable: the caller should
	// re-read and retry rather than report a business-rule failure.
	ErrVersionConflict = port.ErrVersionConflict
)
