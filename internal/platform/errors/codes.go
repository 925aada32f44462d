package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Input and identity errors
	CodeValidationError Code = "VALIDATION_ERROR"
	CodeUnauthorized    Code = "UNAUTHORIZED"

	// Invite errors
	CodeInvalidToken   Code = "INVALID_TOKEN"
	CodeInviteNotFound Code = "INVITE_NOT_FOUND"
	CodeInviteRevoked  Code = "INVITE_REVOKED"
	CodeInviteExpired  Code = "INVITE_EXPIRED"
	CodeInviteMaxUses  Code = "INVITE_MAX_USES"

	// Write failures on otherwise-valid requests
	CodeCreateFailed Code = "CREATE_FAILED"
	CodeRevokeFailed Code = "REVOKE_FAILED"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
	CodeInternal Code = "INTERNAL_ERROR"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	// Bad request - validation failures, malformed tokens
	case CodeValidationError,
		CodeInvalidToken:
		return http.StatusBadRequest

	case CodeUnauthorized:
		return http.StatusUnauthorized

	// Not found - resource doesn't exist
	case CodeInviteNotFound,
		CodeNotFound:
		return http.StatusNotFound

	// Gone - the invite exists but is no longer usable
	case CodeInviteRevoked,
		CodeInviteExpired,
		CodeInviteMaxUses:
		return http.StatusGone

	default:
		return http.StatusInternalServerError
	}
}
