package httperrors

import "net/http"

// Error type discriminators, exposed in the "type" field of the error body
// so clients can branch without parsing titles.
const (
	TypeGeneric             = "GENERIC"
	TypeValidation          = "VALIDATION_ERROR"
	TypeAuth                = "AUTH_ERROR"
	TypeNotFound            = "NOT_FOUND"
	TypeUpstream            = "UPSTREAM_ERROR"
	TypeProvisioningTimeout = "PROVISIONING_TIMEOUT"
	TypeTransactionFailed   = "TRANSACTION_FAILED"
)

var (
	ErrUnauthorized = NewHTTPError(http.StatusUnauthorized, TypeAuth, "Missing or invalid access token.")

	// ErrNotFoundWalletAssociation is the normal, recoverable condition of an
	// authenticated account without a recorded wallet (e.g. after a restart of
	// this process); the caller re-registers to re-establish it.
	ErrNotFoundWalletAssociation = NewHTTPError(http.StatusNotFound, TypeNotFound, "No wallet is associated with this account.")
)
