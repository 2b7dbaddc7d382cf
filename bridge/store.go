package bridge

import (
	"encoding/binary"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/ledgerless/ledgerless/kvstore"
	"github.com/ledgerless/ledgerless/mesh"
	"github.com/ledgerless/ledgerless/smt"
)

// Store is the bridge's own persisted namespace: bridge/used_proofs,
// bridge/used_ext_events (the two proof-consumer replay sets, per
// §4.6) and bridge/ops (the Pending/Proven/Relayed/Settled/Expired/
// Failed bookkeeping for each operation). The replay sets are mirrored
// in memory as golang-set Sets for O(1) membership checks on the hot
// path; every mutation still durably persists to the underlying store
// before the in-memory set is updated.
type Store struct {
	usedProofs kvstore.Store
	usedEvents kvstore.Store
	ops        kvstore.Store

	proofSet mapset.Set[mesh.Hash]
	eventSet mapset.Set[mesh.Hash]
}

// NewStore opens a Store over raw, loading the existing replay sets
// into memory.
func NewStore(raw kvstore.Store) (*Store, error) {
	s := &Store{
		usedProofs: kvstore.Bucket(raw, "bridge/used_proofs/"),
		usedEvents: kvstore.Bucket(raw, "bridge/used_ext_events/"),
		ops:        kvstore.Bucket(raw, "bridge/ops/"),
		proofSet:   mapset.NewThreadUnsafeSet[mesh.Hash](),
		eventSet:   mapset.NewThreadUnsafeSet[mesh.Hash](),
	}
	if err := loadHashSet(s.usedProofs, s.proofSet); err != nil {
		return nil, err
	}
	if err := loadHashSet(s.usedEvents, s.eventSet); err != nil {
		return nil, err
	}
	return s, nil
}

func loadHashSet(store kvstore.Store, set mapset.Set[mesh.Hash]) error {
	it := store.NewIterator(kvstore.Range{})
	defer it.Release()
	for it.Next() {
		set.Add(mesh.BytesToHash(it.Key()))
	}
	return it.Error()
}

// MarkProofUsed records id (H(receipt)) as consumed. used reports
// whether it was already present, in which case the caller must
// reject the submission (P7: at most one mint per receipt).
func (s *Store) MarkProofUsed(id mesh.Hash) (used bool, err error) {
	if s.proofSet.Contains(id) {
		return true, nil
	}
	if err := s.usedProofs.Put(id.Bytes(), []byte{1}); err != nil {
		return false, err
	}
	s.proofSet.Add(id)
	return false, nil
}

// MarkEventUsed records extTxHash as consumed, the same way
// MarkProofUsed does for the native-to-external direction.
func (s *Store) MarkEventUsed(extTxHash mesh.Hash) (used bool, err error) {
	if s.eventSet.Contains(extTxHash) {
		return true, nil
	}
	if err := s.usedEvents.Put(extTxHash.Bytes(), []byte{1}); err != nil {
		return false, err
	}
	s.eventSet.Add(extTxHash)
	return false, nil
}

// PutOperation persists op's current state.
func (s *Store) PutOperation(op *Operation) error {
	return s.ops.Put(op.ID.Bytes(), encodeOperation(op))
}

// GetOperation loads a previously persisted operation by id.
func (s *Store) GetOperation(id mesh.Hash) (*Operation, error) {
	buf, err := s.ops.Get(id.Bytes())
	if err != nil {
		if s.ops.IsNotFound(err) {
			return nil, ErrUnknownOperation
		}
		return nil, err
	}
	op, err := decodeOperation(id, buf)
	if err != nil {
		return nil, err
	}
	return op, nil
}

// ListOperations returns every persisted operation, in arbitrary
// (store-iteration) order.
func (s *Store) ListOperations() ([]*Operation, error) {
	it := s.ops.NewIterator(kvstore.Range{})
	defer it.Release()
	var out []*Operation
	for it.Next() {
		op, err := decodeOperation(mesh.BytesToHash(it.Key()), it.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, op)
	}
	return out, it.Error()
}

const (
	flagHasReceipt = 1 << 0
	flagHasRelease = 1 << 1
)

func encodeOperation(op *Operation) []byte {
	var flags byte
	if op.Receipt != nil {
		flags |= flagHasReceipt
	}
	if op.Release != nil {
		flags |= flagHasRelease
	}

	buf := make([]byte, 0, 256)
	buf = append(buf, byte(op.Direction), byte(op.State), flags)
	buf = appendUnix(buf, op.CreatedAt)
	buf = appendUnix(buf, op.ExpiresAt)

	if op.Receipt != nil {
		r := op.Receipt
		buf = append(buf, r.SrcRoot.Bytes()...)
		buf = append(buf, r.Addr.Bytes()...)
		buf = appendU64(buf, uint64(r.TokenID))
		amt := r.Amount.Bytes16()
		buf = append(buf, amt[:]...)
		proof := r.PathProof.Encode()
		buf = appendU32(buf, uint32(len(proof)))
		buf = append(buf, proof...)
	}
	if op.Release != nil {
		rr := op.Release
		buf = append(buf, rr.ExtTxHash.Bytes()...)
		buf = append(buf, rr.Dst.Bytes()...)
		buf = appendU64(buf, uint64(rr.TokenID))
		amt := rr.Amount.Bytes16()
		buf = append(buf, amt[:]...)
	}
	return buf
}

func decodeOperation(id mesh.Hash, buf []byte) (*Operation, error) {
	if len(buf) < 3+8+8 {
		return nil, ErrMalformed
	}
	op := &Operation{ID: id, Direction: Direction(buf[0]), State: State(buf[1])}
	flags := buf[2]
	off := 3
	op.CreatedAt = readUnix(buf[off:])
	off += 8
	op.ExpiresAt = readUnix(buf[off:])
	off += 8

	if flags&flagHasReceipt != 0 {
		if len(buf) < off+32+32+8+16+4 {
			return nil, ErrMalformed
		}
		r := &LockReceipt{}
		r.SrcRoot = mesh.BytesToHash(buf[off : off+32])
		off += 32
		r.Addr = mesh.BytesToAddress(buf[off : off+32])
		off += 32
		r.TokenID = mesh.TokenId(binary.LittleEndian.Uint64(buf[off : off+8]))
		off += 8
		var amt16 [16]byte
		copy(amt16[:], buf[off:off+16])
		r.Amount = mesh.BalanceFromBytes16(amt16)
		off += 16
		plen := int(binary.LittleEndian.Uint32(buf[off : off+4]))
		off += 4
		if len(buf) < off+plen {
			return nil, ErrMalformed
		}
		proof, err := smt.DecodeProof(buf[off : off+plen])
		if err != nil {
			return nil, err
		}
		off += plen
		r.PathProof = proof
		op.Receipt = r
	}
	if flags&flagHasRelease != 0 {
		if len(buf) < off+32+32+8+16 {
			return nil, ErrMalformed
		}
		rr := &ReleaseRequest{}
		rr.ExtTxHash = mesh.BytesToHash(buf[off : off+32])
		off += 32
		rr.Dst = mesh.BytesToAddress(buf[off : off+32])
		off += 32
		rr.TokenID = mesh.TokenId(binary.LittleEndian.Uint64(buf[off : off+8]))
		off += 8
		var amt16 [16]byte
		copy(amt16[:], buf[off:off+16])
		rr.Amount = mesh.BalanceFromBytes16(amt16)
		off += 16
		op.Release = rr
	}
	return op, nil
}

func appendU64(dst []byte, v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return append(dst, b...)
}

func appendU32(dst []byte, v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return append(dst, b...)
}

func appendUnix(dst []byte, t time.Time) []byte {
	return appendU64(dst, uint64(t.Unix()))
}

func readUnix(buf []byte) time.Time {
	return time.Unix(int64(binary.LittleEndian.Uint64(buf[:8])), 0).UTC()
}
