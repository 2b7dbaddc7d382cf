package msg

import "errors"

var (
	ErrMalformed       = errors.New("msg: malformed wire encoding")
	ErrUnknownKind      = errors.New("msg: unknown message kind")
	ErrInvalidSignature = errors.New("msg: invalid signature")
)
