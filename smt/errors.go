package smt

import "errors"

// ErrProofMalformed is returned when a proof's encoded length or field
// values cannot possibly describe a valid path (wrong sibling count,
// zeros_omitted out of range, truncated buffer).
var ErrProofMalformed = errors.New("smt: proof malformed")

// ErrProofMismatch names a structurally valid proof that does not
// reconstruct the expected root. No function in this package returns
// it: Verify and VerifyForKey report a mismatch by returning false.
var ErrProofMismatch = errors.New("smt: proof does not reconstruct expected root")

// ErrKeyNotStored names a key with no leaf. No function in this package
// returns it: Get reports absence through its ok result, and Verify
// treats absence as a valid, provable state.
var ErrKeyNotStored = errors.New("smt: key not stored")

// ErrNodeNotFound indicates the persisted node store is missing a node
// the tree expected to find while walking a non-empty subtree — a
// storage corruption signal, not a protocol error.
var ErrNodeNotFound = errors.New("smt: internal node not found in store")
