package bridge

import (
	"crypto/ed25519"
	"time"

	"github.com/ledgerless/ledgerless/clock"
	"github.com/ledgerless/ledgerless/engine"
	"github.com/ledgerless/ledgerless/mesh"
	"github.com/ledgerless/ledgerless/msg"
)

// defaultExpiry is T_exp, the default 24h window a Pending operation
// has to reach Relayed before it is reclaimable by its originator.
const defaultExpiry = 24 * time.Hour

// defaultConfirmations is C, the number of confirmations an external
// Locked event must have before the watcher acts on it.
const defaultConfirmations = 12

// ExternalEvent is a confirmed Locked(dst, tokenId, amount) observation.
// Watching the external chain itself is outside Watcher: a caller
// (Poller, or another external-chain client) feeds confirmed events
// in here.
type ExternalEvent struct {
	ExtTxHash     mesh.Hash
	Dst           mesh.Address
	TokenID       mesh.TokenId
	Amount        mesh.Balance
	Confirmations uint32
}

// Watcher drives both bridge flows against a Store and a local Engine.
// It never talks to the external chain itself: it's handed confirmed
// events (ExternalEvent) and produces either a LockReceipt for a
// relayer to submit externally, or a ready-to-apply Mint for the
// release side.
type Watcher struct {
	store    *Store
	engine   *engine.Engine
	clock    *clock.Clock
	attestor RootAttestor

	escrow           mesh.Address
	bridgeKey        ed25519.PrivateKey // signs native-side release Mints, as Treasury or a token's issuer
	minConfirmations uint32
	expiry           time.Duration
}

// Config configures a Watcher.
type Config struct {
	Escrow           mesh.Address
	BridgeKey        ed25519.PrivateKey
	MinConfirmations uint32
	Expiry           time.Duration
}

// NewWatcher builds a Watcher. Zero-valued MinConfirmations/Expiry
// fall back to the spec defaults (C=12, T_exp=24h).
func NewWatcher(cfg Config, store *Store, eng *engine.Engine, clk *clock.Clock, attestor RootAttestor) *Watcher {
	w := &Watcher{
		store:            store,
		engine:           eng,
		clock:            clk,
		attestor:         attestor,
		escrow:           cfg.Escrow,
		bridgeKey:        cfg.BridgeKey,
		minConfirmations: cfg.MinConfirmations,
		expiry:           cfg.Expiry,
	}
	if w.minConfirmations == 0 {
		w.minConfirmations = defaultConfirmations
	}
	if w.expiry == 0 {
		w.expiry = defaultExpiry
	}
	return w
}

// OnEscrowLock is called once the engine has committed a Transfer that
// credited the escrow address: it generates the LockReceipt a relayer
// will submit to the external contract and opens a Pending operation
// tracking it through to Relayed/Settled or Expired.
//
// Addr in the resulting receipt is the escrow account itself: the
// external contract's membership proof attests "the escrow holds (at
// least) this much, as of src_root", not anything about the original
// sender.
func (w *Watcher) OnEscrowLock(tokenID mesh.TokenId, amount mesh.Balance) (*Operation, error) {
	root := w.engine.Root()
	proof, err := w.engine.Tree().Prove(mesh.AccountKey(w.escrow, tokenID))
	if err != nil {
		return nil, err
	}
	receipt := LockReceipt{
		SrcRoot:   root,
		Addr:      w.escrow,
		TokenID:   tokenID,
		Amount:    amount,
		PathProof: proof,
	}
	id, err := ReceiptID(receipt)
	if err != nil {
		return nil, err
	}
	now := w.clock.Now()
	op := &Operation{
		ID:        id,
		Direction: NativeToExternal,
		State:     Pending,
		CreatedAt: now,
		ExpiresAt: now.Add(w.expiry),
		Receipt:   &receipt,
	}
	if err := w.store.PutOperation(op); err != nil {
		return nil, err
	}
	return op, nil
}

// MarkRelayed transitions a NativeToExternal operation from Pending/
// Proven to Relayed once a relayer reports having submitted the
// receipt to the external contract successfully.
func (w *Watcher) MarkRelayed(id mesh.Hash) error {
	return w.transition(id, Relayed, Pending, Proven)
}

// MarkSettled closes out an operation once its counterpart effect
// (the wrapped mint, or the native release) is confirmed. For a
// NativeToExternal operation this also records the receipt in the
// local used_proofs mirror, so a node acting as its own relayer
// never resubmits a receipt the external contract has already
// consumed.
func (w *Watcher) MarkSettled(id mesh.Hash) error {
	op, err := w.store.GetOperation(id)
	if err != nil {
		return err
	}
	if op.State != Relayed {
		return ErrWrongState
	}
	if op.Direction == NativeToExternal {
		if _, err := w.store.MarkProofUsed(id); err != nil {
			return err
		}
	}
	op.State = Settled
	return w.store.PutOperation(op)
}

// MarkFailed records that the external contract rejected the proof
// (a tampered or already-used receipt, most often).
func (w *Watcher) MarkFailed(id mesh.Hash) error {
	return w.transition(id, Failed, Pending, Proven, Relayed)
}

func (w *Watcher) transition(id mesh.Hash, to State, from ...State) error {
	op, err := w.store.GetOperation(id)
	if err != nil {
		return err
	}
	ok := false
	for _, f := range from {
		if op.State == f {
			ok = true
			break
		}
	}
	if !ok {
		return ErrWrongState
	}
	op.State = to
	return w.store.PutOperation(op)
}

// HandleExternalEvent processes a confirmed Locked event from the
// external chain: on first sight of ext_tx_hash it builds a
// ReleaseRequest, records a Proven operation, and returns a signed
// Mint ready for the caller to hand to Engine.Apply (and, on success,
// gossip.Node.Broadcast). A duplicate ext_tx_hash yields
// ErrAlreadyUsed and no Mint, satisfying P7 on the release side.
func (w *Watcher) HandleExternalEvent(ev ExternalEvent, issuer mesh.Address, nonce mesh.Nonce) (*msg.Mint, *Operation, error) {
	if ev.Confirmations < w.minConfirmations {
		return nil, nil, ErrWrongState
	}
	used, err := w.store.MarkEventUsed(ev.ExtTxHash)
	if err != nil {
		return nil, nil, err
	}
	if used {
		return nil, nil, ErrAlreadyUsed
	}

	release := ReleaseRequest{ExtTxHash: ev.ExtTxHash, Dst: ev.Dst, TokenID: ev.TokenID, Amount: ev.Amount}
	id, err := ReleaseID(release)
	if err != nil {
		return nil, nil, err
	}
	now := w.clock.Now()
	op := &Operation{
		ID:        id,
		Direction: ExternalToNative,
		State:     Proven, // the external event itself is the "proof" on this side
		CreatedAt: now,
		ExpiresAt: now.Add(w.expiry),
		Release:   &release,
	}
	if err := w.store.PutOperation(op); err != nil {
		return nil, nil, err
	}

	m := &msg.Mint{
		Issuer:  issuer,
		To:      ev.Dst,
		TokenId: ev.TokenID,
		Amount:  ev.Amount,
		Nonce_:  nonce,
	}
	sig := msg.Sign(w.bridgeKey, m)
	m.Sig = sig
	return m, op, nil
}

// Housekeep expires every Pending operation whose deadline has
// passed, per §4.6's T_exp. It should be called periodically (the
// same cadence as the roots/v1 heartbeat is a reasonable default).
func (w *Watcher) Housekeep() ([]mesh.Hash, error) {
	ops, err := w.store.ListOperations()
	if err != nil {
		return nil, err
	}
	now := w.clock.Now()
	var expired []mesh.Hash
	for _, op := range ops {
		if op.State != Pending {
			continue
		}
		if now.Before(op.ExpiresAt) {
			continue
		}
		op.State = Expired
		if err := w.store.PutOperation(op); err != nil {
			return expired, err
		}
		expired = append(expired, op.ID)
	}
	return expired, nil
}
