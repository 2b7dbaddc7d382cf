package bridge

import (
	"github.com/qianbin/drlp"

	"github.com/ledgerless/ledgerless/mesh"
)

// EncodeReceipt renders a LockReceipt in the deterministic-RLP form a
// relayer actually submits to the external contract.
func EncodeReceipt(r LockReceipt) ([]byte, error) {
	return drlp.EncodeToBytes(r.canonical())
}

// ReceiptID is H(receipt): the key used_proofs is checked and set
// against, both on the external contract (informally) and in the
// node's own mirror of that replay set.
func ReceiptID(r LockReceipt) (mesh.Hash, error) {
	enc, err := EncodeReceipt(r)
	if err != nil {
		return mesh.Hash{}, err
	}
	return mesh.Sum(enc), nil
}

// EncodeRelease renders a ReleaseRequest in its deterministic-RLP form.
func EncodeRelease(r ReleaseRequest) ([]byte, error) {
	return drlp.EncodeToBytes(r.canonical())
}

// ReleaseID is H(release_request), used as the release Operation's id.
// The used_ext_events replay set is keyed on the raw ExtTxHash alone,
// so a resubmitted tx hash is rejected whatever its amount/dst.
func ReleaseID(r ReleaseRequest) (mesh.Hash, error) {
	enc, err := EncodeRelease(r)
	if err != nil {
		return mesh.Hash{}, err
	}
	return mesh.Sum(enc), nil
}
