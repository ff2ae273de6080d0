package service

import "errors"

// Domain errors shared by the branch-scoped services.
var (
	ErrBranchMissing = errors.New("branch id missing from session")
	ErrNotFound      = errors.New("resource not found in branch")
	ErrBranchBusy    = errors.New("another write for this branch is in progress")
)

// ValidationError is a client-fixable rejection. Message is shown to the user as is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}
