package smt

import (
	"encoding/binary"

	"github.com/ledgerless/ledgerless/mesh"
)

// Proof is the sibling path plus metadata needed to reconstruct a root
// from a single leaf, per the account model's membership-proof
// contract. Siblings are ordered from the root (index 0) down to the
// leaf (index len-1); trailing entries equal to their expected zero
// hash are stripped and their count recorded in ZerosOmitted.
type Proof struct {
	Siblings     []mesh.Hash
	LeafHash     mesh.Hash
	Path         mesh.Hash // the key itself; path bits are its bits, MSB first
	ZerosOmitted uint16
}

// IsAbsence reports whether this proof attests to the absence of a
// leaf at Path (LeafHash == Z[0]).
func (p *Proof) IsAbsence() bool {
	return p.LeafHash == EmptyLeafHash()
}

// Encode renders the proof in its canonical binary wire form:
//
//	u16 zeros_omitted (LE)
//	leaf_hash    [32]byte
//	path         [32]byte
//	siblings     (256-zeros_omitted) * [32]byte
func (p *Proof) Encode() []byte {
	n := Depth - int(p.ZerosOmitted)
	buf := make([]byte, 2+32+32+n*32)
	binary.LittleEndian.PutUint16(buf[0:2], p.ZerosOmitted)
	copy(buf[2:34], p.LeafHash.Bytes())
	copy(buf[34:66], p.Path.Bytes())
	off := 66
	for i := 0; i < n; i++ {
		copy(buf[off:off+32], p.Siblings[i].Bytes())
		off += 32
	}
	return buf
}

// DecodeProof parses the canonical binary wire form produced by Encode.
func DecodeProof(buf []byte) (*Proof, error) {
	if len(buf) < 2+32+32 {
		return nil, ErrProofMalformed
	}
	zerosOmitted := binary.LittleEndian.Uint16(buf[0:2])
	if int(zerosOmitted) > Depth {
		return nil, ErrProofMalformed
	}
	n := Depth - int(zerosOmitted)
	want := 2 + 32 + 32 + n*32
	if len(buf) != want {
		return nil, ErrProofMalformed
	}
	p := &Proof{ZerosOmitted: zerosOmitted}
	p.LeafHash = mesh.BytesToHash(buf[2:34])
	p.Path = mesh.BytesToHash(buf[34:66])
	p.Siblings = make([]mesh.Hash, n)
	off := 66
	for i := 0; i < n; i++ {
		p.Siblings[i] = mesh.BytesToHash(buf[off : off+32])
		off += 32
	}
	return p, nil
}

// sibling returns the sibling hash at depth d (0 = root-adjacent, 255 =
// leaf-adjacent), restoring omitted trailing zero siblings from the
// zero-hash table.
func (p *Proof) sibling(d int) (mesh.Hash, error) {
	if d < len(p.Siblings) {
		return p.Siblings[d], nil
	}
	if d >= Depth-int(p.ZerosOmitted) && d < Depth {
		// omitted trailing sibling: it is the empty hash one level
		// deeper than the subtree rooted at d+1, i.e. Z[Depth-(d+1)].
		return ZeroHash(Depth - (d + 1)), nil
	}
	return mesh.Hash{}, ErrProofMalformed
}

// Verify reconstructs a root from the proof and checks it against
// expectedRoot. It also verifies that Path's bits are internally
// consistent with the proof (defends against a path flipped
// independently of its siblings/leaf_hash).
func Verify(p *Proof, expectedRoot mesh.Hash) bool {
	if len(p.Siblings) > Depth || int(p.ZerosOmitted) > Depth || len(p.Siblings)+int(p.ZerosOmitted) != Depth {
		return false
	}
	acc := p.LeafHash
	for d := Depth - 1; d >= 0; d-- {
		sib, err := p.sibling(d)
		if err != nil {
			return false
		}
		bit := pathBit(p.Path, d)
		if bit == 0 {
			// node descended left; sibling is on the right.
			acc = combineInternal(acc, sib)
		} else {
			// node descended right; sibling is on the left.
			acc = combineInternal(sib, acc)
		}
	}
	return acc == expectedRoot
}

// VerifyForKey is Verify plus the side channel binding the proof's Path
// to the caller-supplied key, as the generic verify(proof, key,
// value_opt, expected_root) signature in the component design requires.
func VerifyForKey(p *Proof, key mesh.Hash, expectedRoot mesh.Hash) bool {
	if p.Path != key {
		return false
	}
	return Verify(p, expectedRoot)
}

// VerifyLeafValue is VerifyForKey plus checking that value actually
// hashes to the proof's LeafHash. State sync uses this to accept a
// (key, value) pair pushed by a peer only once it's shown to be
// exactly what expectedRoot commits to.
func VerifyLeafValue(p *Proof, key mesh.Hash, value []byte, expectedRoot mesh.Hash) bool {
	if p.LeafHash != leafHash(key, value) {
		return false
	}
	return VerifyForKey(p, key, expectedRoot)
}
