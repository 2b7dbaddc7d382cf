package smt

import "github.com/ledgerless/ledgerless/mesh"

// Depth is the number of levels between the root and a leaf: keys are
// 256-bit, so the tree is 256 levels deep.
const Depth = 256

const (
	leafDomain     = 0x00
	internalDomain = 0x01
)

// zeroHashes is Z[0..=256]. Z[0] is the hash of an absent leaf; Z[i+1]
// is the hash of an internal node both of whose children are Z[i] —
// i.e. the hash of a completely empty subtree i levels above a leaf.
// Z[256] is therefore the root of a completely empty tree.
//
// The zero ladder must use the same domain-separated combine function
// as real internal nodes, or a proof of absence would fail to
// reconstruct a root alongside genuine internal nodes. Z[0] itself is
// defined as the hash of the one-byte leaf domain tag standing in for
// "no leaf here".
var zeroHashes [Depth + 1]mesh.Hash

func init() {
	zeroHashes[0] = mesh.Sum([]byte{leafDomain})
	for i := 0; i < Depth; i++ {
		zeroHashes[i+1] = combineInternal(zeroHashes[i], zeroHashes[i])
	}
}

// ZeroHash returns Z[i], the empty-subtree hash i levels above a leaf
// (0 <= i <= Depth).
func ZeroHash(i int) mesh.Hash {
	return zeroHashes[i]
}

// EmptyLeafHash is Z[0], the leaf_hash of a proof of absence.
func EmptyLeafHash() mesh.Hash {
	return zeroHashes[0]
}

// EmptyRoot is Z[Depth], the root of a tree with no leaves at all.
func EmptyRoot() mesh.Hash {
	return zeroHashes[Depth]
}

// combineInternal computes the domain-separated hash of an internal
// node from its two children.
func combineInternal(left, right mesh.Hash) mesh.Hash {
	return mesh.Sum([]byte{internalDomain}, left.Bytes(), right.Bytes())
}

// leafHash computes the domain-separated hash of a leaf holding value
// at key. An absent leaf is represented by EmptyLeafHash, never by this
// function.
func leafHash(key mesh.Hash, value []byte) mesh.Hash {
	valueDigest := mesh.Sum(value)
	return mesh.Sum([]byte{leafDomain}, key.Bytes(), valueDigest.Bytes())
}

// pathBit returns bit i of key, MSB first (bit 0 is the most
// significant bit of key[0]).
func pathBit(key mesh.Hash, i int) byte {
	byteIdx := i / 8
	bitIdx := 7 - (i % 8)
	return (key[byteIdx] >> bitIdx) & 1
}
