package bridge

import "errors"

var (
	ErrAlreadyUsed      = errors.New("bridge: proof or event already consumed")
	ErrUnknownOperation = errors.New("bridge: unknown operation id")
	ErrWrongState       = errors.New("bridge: operation not in the expected state")
	ErrExpired          = errors.New("bridge: operation past its expiry")
	ErrProofRejected    = errors.New("bridge: membership proof rejected")
	ErrMalformed        = errors.New("bridge: malformed receipt or event")
)
