package engine

import (
	"encoding/binary"

	"github.com/ledgerless/ledgerless/account"
	"github.com/ledgerless/ledgerless/kvstore"
)

// aggregateModulus is the largest value of the conflict score's
// Σ balances mod M term. The term is kept in plain uint64 arithmetic,
// which wraps, so M is in effect 2^64; this constant is not applied
// anywhere. Truncating to 64 bits keeps the score cheap to maintain
// incrementally without a full tree walk on every commit; it is
// explicitly advisory (see Score), not a security property.
const aggregateModulus = ^uint64(0)

// aggregate is the running tally the conflict score is computed from.
// It is maintained incrementally — updated by the same leaf writes
// that mutate the tree — rather than recomputed by walking every
// account, since the SMT's keys are opaque hashes with no cheap
// enumeration order.
type aggregate struct {
	NonEmptyAccounts uint64
	SumNonces        uint64
	SumBalancesModM  uint64
}

var aggregateKey = []byte("aggregate")

func loadAggregate(meta kvstore.Store) (aggregate, error) {
	buf, err := meta.Get(aggregateKey)
	if err != nil {
		if meta.IsNotFound(err) {
			return aggregate{}, nil
		}
		return aggregate{}, err
	}
	if len(buf) != 24 {
		return aggregate{}, nil
	}
	return aggregate{
		NonEmptyAccounts: binary.LittleEndian.Uint64(buf[0:8]),
		SumNonces:        binary.LittleEndian.Uint64(buf[8:16]),
		SumBalancesModM:  binary.LittleEndian.Uint64(buf[16:24]),
	}, nil
}

func (a aggregate) encode() []byte {
	buf := make([]byte, 24)
	binary.LittleEndian.PutUint64(buf[0:8], a.NonEmptyAccounts)
	binary.LittleEndian.PutUint64(buf[8:16], a.SumNonces)
	binary.LittleEndian.PutUint64(buf[16:24], a.SumBalancesModM)
	return buf
}

func isEmptyLeaf(l account.Leaf) bool {
	return l.Balance.IsZero() && l.Nonce == 0
}

// applyLeafTransition folds one leaf's before/after state into the
// running aggregate.
func (a *aggregate) applyLeafTransition(before, after account.Leaf) {
	beforeEmpty := isEmptyLeaf(before)
	afterEmpty := isEmptyLeaf(after)
	switch {
	case beforeEmpty && !afterEmpty:
		a.NonEmptyAccounts++
	case !beforeEmpty && afterEmpty:
		a.NonEmptyAccounts--
	}
	a.SumNonces += uint64(after.Nonce) - uint64(before.Nonce)
	a.SumBalancesModM += after.Balance.Uint64() - before.Balance.Uint64()
}
