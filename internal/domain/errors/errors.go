// Package errors defines the closed error taxonomy returned by the mutation
// gateway and its collaborators. The boundary layer maps these to transport
// codes; they are never silently swallowed.
package errors

import "errors"

// Sentinel errors for callers to match with errors.Is.
var (
	// ErrNotFound: an invitation code, user, project, task or organization
	// reference does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict: a duplicate invitation code collision, or redeeming while
	// already a member of a different organization.
	ErrConflict = errors.New("conflict")
	// ErrInvalidReference: a referenced user/project is not in the expected
	// scope, e.g. assigning a non-member.
	ErrInvalidReference = errors.New("invalid reference")
	// ErrInvalidState: the operation is not meaningful for the entity's
	// current state.
	ErrInvalidState = errors.New("invalid state")
	// ErrDenied: authorization failure. Use Denied to attach the reason and
	// AsDenied to recover it.
	ErrDenied = errors.New("permission denied")
)

// DenyReason is the machine-readable reason attached to every denial.
type DenyReason string

const (
	InsufficientRole  DenyReason = "insufficient_role"
	NotAssigned       DenyReason = "not_assigned"
	CrossOrganization DenyReason = "cross_organization"
)

// DeniedError carries the denial reason. It matches errors.Is(err, ErrDenied).
type DeniedError struct {
	Reason DenyReason
}

func (e *DeniedError) Error() string {
	return "permission denied: " + string(e.Reason)
}

func (e *DeniedError) Unwrap() error { return ErrDenied }

// Denied returns a DeniedError with the given reason.
func Denied(reason DenyReason) error {
	return &DeniedError{Reason: reason}
}

// AsDenied extracts the DeniedError from err, if any.
func AsDenied(err error) (*DeniedError, bool) {
	var de *DeniedError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
