package account

import "errors"

var (
	ErrMalformedLeaf    = errors.New("account: malformed leaf encoding")
	ErrMalformedToken    = errors.New("account: malformed token encoding")
	ErrUnknownToken      = errors.New("account: unknown token")
	ErrTokenExists       = errors.New("account: token already registered")
	ErrSupplyExceeded    = errors.New("account: total supply would exceed max supply")
	ErrInsufficientFunds = errors.New("account: insufficient balance")
)
