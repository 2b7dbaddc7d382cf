package bridge

import (
	"crypto/ed25519"

	"github.com/ledgerless/ledgerless/mesh"
)

// RootAttestor abstracts "sign a root for the external chain" per the
// spec's requirement that the root-update authority be pluggable
// without being mandated. A single signer and a threshold/multisig
// scheme can both satisfy it; the bridge watcher depends only on this
// interface, never on a concrete signer.
type RootAttestor interface {
	// AttestRoot produces whatever the external contract's trusted-
	// signer transaction needs to accept root as the new currentRoot.
	AttestRoot(root mesh.Hash) ([]byte, error)
	// VerifyAttestation checks attestation against root, used locally
	// to decide whether a peer-reported "latest acknowledged root" is
	// itself trustworthy before native proofs are generated against it.
	VerifyAttestation(root mesh.Hash, attestation []byte) bool
}

// singleKeyAttestor is the simplest RootAttestor: one Ed25519 key
// signs every root update.
type singleKeyAttestor struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// NewSingleKeyAttestor builds a RootAttestor backed by one key pair.
func NewSingleKeyAttestor(priv ed25519.PrivateKey) RootAttestor {
	return &singleKeyAttestor{priv: priv, pub: priv.Public().(ed25519.PublicKey)}
}

func (a *singleKeyAttestor) AttestRoot(root mesh.Hash) ([]byte, error) {
	return ed25519.Sign(a.priv, root.Bytes()), nil
}

func (a *singleKeyAttestor) VerifyAttestation(root mesh.Hash, attestation []byte) bool {
	return ed25519.Verify(a.pub, root.Bytes(), attestation)
}

// thresholdAttestor requires at least threshold valid signatures, one
// per signer in signers, concatenated in signer order. It models a
// federated multisig without committing to any particular on-chain
// multisig contract's exact calldata shape.
type thresholdAttestor struct {
	signers   []ed25519.PrivateKey
	verifiers []ed25519.PublicKey
	threshold int
}

// NewThresholdAttestor builds a RootAttestor requiring at least
// threshold of the given signers to attest the same root. AttestRoot
// on this implementation is only meaningful when called with every
// signer's key available to the same process (e.g. a test harness or
// a co-located federation member running all keys); a real deployment
// instead gathers signatures out of band and presents them to
// VerifyAttestation-style verification on the external contract, not
// through this Go type.
func NewThresholdAttestor(signers []ed25519.PrivateKey, threshold int) RootAttestor {
	verifiers := make([]ed25519.PublicKey, len(signers))
	for i, s := range signers {
		verifiers[i] = s.Public().(ed25519.PublicKey)
	}
	return &thresholdAttestor{signers: signers, verifiers: verifiers, threshold: threshold}
}

func (a *thresholdAttestor) AttestRoot(root mesh.Hash) ([]byte, error) {
	out := make([]byte, 0, len(a.signers)*ed25519.SignatureSize)
	for _, s := range a.signers {
		out = append(out, ed25519.Sign(s, root.Bytes())...)
	}
	return out, nil
}

func (a *thresholdAttestor) VerifyAttestation(root mesh.Hash, attestation []byte) bool {
	if len(attestation)%ed25519.SignatureSize != 0 {
		return false
	}
	n := len(attestation) / ed25519.SignatureSize
	valid := 0
	for i := 0; i < n && i < len(a.verifiers); i++ {
		sig := attestation[i*ed25519.SignatureSize : (i+1)*ed25519.SignatureSize]
		if ed25519.Verify(a.verifiers[i], root.Bytes(), sig) {
			valid++
		}
	}
	return valid >= a.threshold
}
