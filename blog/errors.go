package blog

import (
	"errors"
	"fmt"
)

// FailKind classifies an operation failure. Callers branch on the kind, never
// on message content.
type FailKind string

const (
	FailValidation             FailKind = "validation"
	FailAuthenticationRequired FailKind = "authentication_required"
	FailInvalidCredentials     FailKind = "invalid_credentials"
	FailNotFoundOrForbidden    FailKind = "not_found_or_forbidden"
	FailConflict               FailKind = "conflict"
	FailInvalidOperation       FailKind = "invalid_operation"
	FailInternal               FailKind = "internal"
)

// OpError is the typed failure returned for a single operation. Store-native
// errors never reach a caller directly; they are translated into one of these
// at the dispatch boundary.
type OpError struct {
	Kind    FailKind `json:"kind"`
	Message string   `json:"message"`
}

func (e *OpError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// AsOpError unwraps err to an *OpError if one is in the chain.
func AsOpError(err error) (*OpError, bool) {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe, true
	}
	return nil, false
}

func validationErr(format string, args ...any) *OpError {
	return &OpError{Kind: FailValidation, Message: fmt.Sprintf(format, args...)}
}

func authRequiredErr() *OpError {
	return &OpError{Kind: FailAuthenticationRequired, Message: "you must be logged in to do that"}
}

// One message for both unknown email and wrong password so login failures
// cannot be used to enumerate accounts.
func invalidCredentialsErr() *OpError {
	return &OpError{Kind: FailInvalidCredentials, Message: "invalid email or password"}
}

// One message whether the record is absent or owned by someone else, so a
// failed mutation does not reveal that another user's record exists.
func notFoundOrForbiddenErr(entity string) *OpError {
	return &OpError{Kind: FailNotFoundOrForbidden, Message: "no " + entity + " found for the given id"}
}

func conflictErr(message string) *OpError {
	return &OpError{Kind: FailConflict, Message: message}
}

func invalidOperationErr(name string) *OpError {
	return &OpError{Kind: FailInvalidOperation, Message: fmt.Sprintf("unknown operation %q", name)}
}

func internalErr() *OpError {
	return &OpError{Kind: FailInternal, Message: "operation failed"}
}
