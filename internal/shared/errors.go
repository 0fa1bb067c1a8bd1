package shared

import "errors"

// Engine error taxonomy. Repositories translate store-specific failures into
// these sentinels at the boundary; everything above matches with errors.Is.
var (
	// ErrUnauthorized indicates the request carries no resolvable principal.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrValidation indicates malformed filter, sort, page, or payload input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates the record is absent or owned by another organization.
	ErrNotFound = errors.New("resource not found")
	// ErrDuplicate indicates a tenant-scoped uniqueness violation.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrHasDependents indicates a delete blocked by child records.
	ErrHasDependents = errors.New("record has dependent records")
	// ErrTimeout indicates the store deadline was exceeded.
	ErrTimeout = errors.New("operation timed out")
	// ErrStore wraps opaque underlying store failures.
	ErrStore = errors.New("store error")
)

// UserSafeMessage returns a message suitable for surfacing to end users.
func UserSafeMessage(err error) string {
	switch {
	case errors.Is(err, ErrDuplicate):
		return "A record with the same value already exists."
	case errors.Is(err, ErrHasDependents):
		return "This record is still referenced by other records."
	case errors.Is(err, ErrNotFound):
		return "The requested record could not be found."
	case errors.Is(err, ErrValidation):
		return "The submitted data is invalid."
	case errors.Is(err, ErrTimeout):
		return "The request took too long to complete. Please try again."
	default:
		return "Something went wrong. Please try again."
	}
}
