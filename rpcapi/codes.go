package rpcapi

import (
	"errors"

	"github.com/ledgerless/ledgerless/account"
	"github.com/ledgerless/ledgerless/engine"
	"github.com/ledgerless/ledgerless/msg"
)

// Application error codes, laid out in the -32000..-32099 "server
// error" range JSON-RPC 2.0 reserves for implementation-defined
// codes, one per error named in the protocol error taxonomy.
const (
	codeRootMismatch     = -32000
	codeNonceMismatch    = -32001
	codeInsufficientBal  = -32002
	codeInvalidSignature = -32003
	codeUnknownToken     = -32004
	codeSupplyExceeded   = -32005
	codeProofInvalid     = -32006
	codeUnauthorized     = -32007
	codeDuplicateMessage = -32008
	codePostRootMismatch = -32009
)

var errDuplicateMessage = errors.New("rpcapi: duplicate message")

// classify maps an error returned by the engine/msg/account packages
// to the JSON-RPC application error it corresponds to. Anything
// unrecognized falls back to the standard internal-error code so a
// caller always gets a well-formed error object, never a bare 500.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, errDuplicateMessage):
		return codeDuplicateMessage, "DuplicateMessage"
	case errors.Is(err, engine.ErrRootMismatch):
		return codeRootMismatch, "RootMismatch"
	case errors.Is(err, engine.ErrPostRootMismatch):
		return codePostRootMismatch, "PostRootMismatch"
	case errors.Is(err, engine.ErrNonceMismatch):
		return codeNonceMismatch, "NonceMismatch"
	case errors.Is(err, engine.ErrProofInvalid):
		return codeProofInvalid, "ProofInvalid"
	case errors.Is(err, engine.ErrInvalidSignature), errors.Is(err, msg.ErrInvalidSignature):
		return codeInvalidSignature, "InvalidSignature"
	case errors.Is(err, engine.ErrUnauthorized):
		return codeUnauthorized, "Unauthorized"
	case errors.Is(err, account.ErrInsufficientFunds):
		return codeInsufficientBal, "InsufficientBalance"
	case errors.Is(err, account.ErrUnknownToken):
		return codeUnknownToken, "UnknownToken"
	case errors.Is(err, account.ErrSupplyExceeded):
		return codeSupplyExceeded, "SupplyExceeded"
	case errors.Is(err, msg.ErrUnknownKind), errors.Is(err, msg.ErrMalformed):
		return codeInvalidParams, "Malformed"
	default:
		return codeInternalError, err.Error()
	}
}
