package session

import "errors"

var (
	// ErrActivationDisabled means the device is not in a valid
	// communication context for starting a session.
	ErrActivationDisabled = errors.New("session activation disabled: no qualifying group context")
	// ErrActivationCancelled means the user declined activation.
	ErrActivationCancelled = errors.New("session activation cancelled")
	// ErrActivationUnknown covers any unrecognized platform outcome.
	ErrActivationUnknown = errors.New("session activation failed: unknown platform outcome")
	// ErrNoActiveSession means an operation requiring an attached
	// session ran while none exists.
	ErrNoActiveSession = errors.New("no active session")
)
