package shared

import "errors"

// Error classes shared by every domain package. Domain errors wrap exactly one
// of these so transports can classify them with errors.Is.
var (
	// ErrValidation indicates malformed input: missing fields, non-positive goal, inverted range.
	ErrValidation = errors.New("validation failed")
	// ErrConflict indicates the request contradicts current state, e.g. overlapping periods.
	ErrConflict = errors.New("conflict")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrConsistency indicates stored data violates a domain invariant.
	ErrConsistency = errors.New("consistency violation")
	// ErrUpstream indicates a storage or collaborator failure.
	ErrUpstream = errors.New("upstream failure")
	// ErrUnauthorized indicates a missing or unknown caller identity.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates the caller lacks permission for the action.
	ErrForbidden = errors.New("forbidden")
)

// UserSafeMessage returns the message a caller may see for err. Server-side
// failures collapse to a generic text; their detail belongs in logs only.
func UserSafeMessage(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrForbidden),
		errors.Is(err, ErrUnauthorized):
		return err.Error()
	default:
		return "internal error, please retry later"
	}
}
