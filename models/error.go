package models

import "errors"

// Error taxonomy shared by the server and client components.
var (
	ErrPermissionDenied      = errors.New("notification permission denied")
	ErrCapabilityUnavailable = errors.New("notification capability unavailable")
	ErrNoTargetFound         = errors.New("no delivery target found")
	ErrTokenInvalid          = errors.New("push token invalid")
	ErrNetwork               = errors.New("push delivery failed")
	ErrValidation            = errors.New("validation failed")
	ErrNotFound              = errors.New("not found")
)

// MsgNoTokenFound is the lastError recorded on a reminder with no delivery target, and the
// error message of a push request that named none.
const MsgNoTokenFound = "No token found"
