package engine

import (
	"sync"

	"github.com/ledgerless/ledgerless/account"
	"github.com/ledgerless/ledgerless/kvstore"
	"github.com/ledgerless/ledgerless/mesh"
	"github.com/ledgerless/ledgerless/msg"
	"github.com/ledgerless/ledgerless/smt"
)

// Engine holds the single authoritative reference to a node's SMT and
// account model. Mutating operations and Score run serially under mu;
// reads of Root may proceed concurrently against the last committed
// state, since neither the tree nor the account store ever mutates a
// value in place — a reader only ever sees a complete, already-
// committed version.
type Engine struct {
	mu       sync.Mutex
	tree     *smt.Tree
	accounts *account.Store
	meta     kvstore.Store
	agg      aggregate
}

// New opens an Engine over store, rebuilding in-memory state (the
// running conflict-score aggregate) from what was last persisted.
func New(store kvstore.Store) (*Engine, error) {
	tree, err := smt.NewTree(store)
	if err != nil {
		return nil, err
	}
	meta := kvstore.Bucket(store, "engine-meta/")
	agg, err := loadAggregate(meta)
	if err != nil {
		return nil, err
	}
	return &Engine{
		tree:     tree,
		accounts: account.NewStore(tree, store),
		meta:     meta,
		agg:      agg,
	}, nil
}

// Accounts exposes the underlying account model for read-only query
// paths (the RPC surface's getBalance/getProof/etc.).
func (e *Engine) Accounts() *account.Store { return e.accounts }

// Tree exposes the underlying SMT for read-only query paths.
func (e *Engine) Tree() *smt.Tree { return e.tree }

// Root returns the current committed root.
func (e *Engine) Root() mesh.Hash { return e.tree.Root() }

// Score returns the current committed state's advisory conflict
// score.
func (e *Engine) Score() Score {
	e.mu.Lock()
	defer e.mu.Unlock()
	return computeScore(e.tree.Root(), e.agg)
}

// Genesis seeds the native token registry entry. Must be called at
// most once, before any message is applied.
func (e *Engine) Genesis(treasury mesh.Address, metadata string, maxSupply mesh.Balance) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	u := e.tree.NewUpdate()
	if _, err := e.accounts.Genesis(u, treasury, metadata, maxSupply); err != nil {
		return err
	}
	_, err := u.Commit()
	return err
}

// Apply validates and atomically applies m against the current state,
// returning the resulting root. On any validation failure the update
// is discarded before Commit is ever called: no partial state change
// is observable.
func (e *Engine) Apply(m msg.Message) (mesh.Hash, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !msg.VerifySignature(m) {
		return mesh.Hash{}, ErrInvalidSignature
	}

	switch v := m.(type) {
	case *msg.Transfer:
		return e.applyTransfer(v)
	case *msg.Mint:
		return e.applyMint(v)
	case *msg.IssueToken:
		return e.applyIssueToken(v)
	case *msg.Burn:
		return e.applyBurn(v)
	default:
		return mesh.Hash{}, msg.ErrUnknownKind
	}
}

func (e *Engine) commit(u *smt.Update, before []account.Leaf, after []account.Leaf) (mesh.Hash, error) {
	root, err := u.Commit()
	if err != nil {
		return mesh.Hash{}, err
	}
	for i := range before {
		e.agg.applyLeafTransition(before[i], after[i])
	}
	if err := e.meta.Put(aggregateKey, e.agg.encode()); err != nil {
		return mesh.Hash{}, err
	}
	return root, nil
}

func (e *Engine) applyTransfer(m *msg.Transfer) (mesh.Hash, error) {
	if m.PreRoot != e.tree.Root() {
		return mesh.Hash{}, ErrRootMismatch
	}
	if !smt.VerifyForKey(m.ProofFrom, mesh.AccountKey(m.From, m.TokenId), e.tree.Root()) {
		return mesh.Hash{}, ErrProofInvalid
	}
	if !smt.VerifyForKey(m.ProofTo, mesh.AccountKey(m.To, m.TokenId), e.tree.Root()) {
		return mesh.Hash{}, ErrProofInvalid
	}

	fromBefore, err := e.accounts.GetAccount(m.From, m.TokenId)
	if err != nil {
		return mesh.Hash{}, err
	}
	if fromBefore.Nonce != m.Nonce_ {
		return mesh.Hash{}, ErrNonceMismatch
	}

	u := e.tree.NewUpdate()
	fromAfter, err := e.accounts.ApplyDelta(u, m.From, m.TokenId, m.Amount, false, fromBefore.Nonce+1)
	if err != nil {
		return mesh.Hash{}, err
	}
	toBefore, err := e.accounts.GetStaged(u, m.To, m.TokenId)
	if err != nil {
		return mesh.Hash{}, err
	}
	toAfter, err := e.accounts.ApplyDelta(u, m.To, m.TokenId, m.Amount, true, toBefore.Nonce)
	if err != nil {
		return mesh.Hash{}, err
	}

	if u.Root() != m.PostRoot {
		return mesh.Hash{}, ErrPostRootMismatch
	}
	return e.commit(u, []account.Leaf{fromBefore, toBefore}, []account.Leaf{fromAfter, toAfter})
}

// PreviewTransfer computes everything a Transfer message needs except
// the signature: the current root, membership proofs for from/to at
// token_id, and the root the transfer would produce. The RPC submit
// path uses this to reconstruct, byte for byte, the same canonical
// message a caller with an up to date view of state would have
// signed, so a bare (from, to, token_id, amount, nonce, signature)
// tuple is enough to submit — no proof or root plumbing over the
// wire. A caller whose view is stale gets a signature mismatch, the
// same as a caller who submits stale proofs directly.
func (e *Engine) PreviewTransfer(from, to mesh.Address, tokenID mesh.TokenId, amount mesh.Balance) (preRoot, postRoot mesh.Hash, proofFrom, proofTo *smt.Proof, nonce mesh.Nonce, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	preRoot = e.tree.Root()
	proofFrom, err = e.tree.Prove(mesh.AccountKey(from, tokenID))
	if err != nil {
		return
	}
	proofTo, err = e.tree.Prove(mesh.AccountKey(to, tokenID))
	if err != nil {
		return
	}

	var fromBefore, toBefore account.Leaf
	fromBefore, err = e.accounts.GetAccount(from, tokenID)
	if err != nil {
		return
	}
	nonce = fromBefore.Nonce

	u := e.tree.NewUpdate()
	if _, err = e.accounts.ApplyDelta(u, from, tokenID, amount, false, fromBefore.Nonce+1); err != nil {
		return
	}
	toBefore, err = e.accounts.GetStaged(u, to, tokenID)
	if err != nil {
		return
	}
	if _, err = e.accounts.ApplyDelta(u, to, tokenID, amount, true, toBefore.Nonce); err != nil {
		return
	}
	postRoot = u.Root()
	return
}

func (e *Engine) applyMint(m *msg.Mint) (mesh.Hash, error) {
	// The native token's registry entry names the genesis treasury as
	// its issuer, so one check covers native and custom tokens alike.
	info, err := e.accounts.GetToken(m.TokenId)
	if err != nil {
		return mesh.Hash{}, err
	}
	if m.Issuer != info.Issuer {
		return mesh.Hash{}, ErrUnauthorized
	}

	issuerBefore, err := e.accounts.GetAccount(m.Issuer, m.TokenId)
	if err != nil {
		return mesh.Hash{}, err
	}
	if issuerBefore.Nonce != m.Nonce_ {
		return mesh.Hash{}, ErrNonceMismatch
	}

	u := e.tree.NewUpdate()
	issuerAfter, err := e.accounts.ApplyDelta(u, m.Issuer, m.TokenId, mesh.ZeroBalance, true, issuerBefore.Nonce+1)
	if err != nil {
		return mesh.Hash{}, err
	}
	toBefore, err := e.accounts.GetStaged(u, m.To, m.TokenId)
	if err != nil {
		return mesh.Hash{}, err
	}
	toAfter, err := e.accounts.ApplyDelta(u, m.To, m.TokenId, m.Amount, true, toBefore.Nonce)
	if err != nil {
		return mesh.Hash{}, err
	}
	if _, err := e.accounts.UpdateSupply(u, m.TokenId, m.Amount, true); err != nil {
		return mesh.Hash{}, err
	}

	return e.commit(u, []account.Leaf{issuerBefore, toBefore}, []account.Leaf{issuerAfter, toAfter})
}

func (e *Engine) applyIssueToken(m *msg.IssueToken) (mesh.Hash, error) {
	issuerBefore, err := e.accounts.GetAccount(m.Issuer, mesh.NativeTokenId)
	if err != nil {
		return mesh.Hash{}, err
	}
	if issuerBefore.Nonce != m.Nonce_ {
		return mesh.Hash{}, ErrNonceMismatch
	}

	u := e.tree.NewUpdate()
	issuerAfter, err := e.accounts.ApplyDelta(u, m.Issuer, mesh.NativeTokenId, mesh.ZeroBalance, true, issuerBefore.Nonce+1)
	if err != nil {
		return mesh.Hash{}, err
	}
	if _, err := e.accounts.RegisterToken(u, m.Issuer, m.Metadata, m.MaxSupply); err != nil {
		return mesh.Hash{}, err
	}

	return e.commit(u, []account.Leaf{issuerBefore}, []account.Leaf{issuerAfter})
}

// RemoteLeaf is one entry of a state-sync page: a leaf key/value pair
// together with the membership proof the serving peer attached.
type RemoteLeaf struct {
	Key   mesh.Hash
	Value []byte
	Proof *smt.Proof
}

// AdoptPage verifies every entry in entries against root (the remote
// peer's advertised root for the page) and stages the ones that check
// out into a single Update, committed atomically. Entries that fail
// verification are dropped rather than aborting the whole page, since
// a mixed-trust gossip peer may relay a page it did not fully
// validate itself. It returns the new local root and how many entries
// were accepted.
//
// This is the only path that writes into the tree without going
// through Apply: a syncing node is adopting a remote's state
// wholesale, not replaying individual signed messages. Only entries
// exactly account.LeafSize bytes long are folded into the running
// conflict-score aggregate, since that is the only leaf shape the
// aggregate tracks; token-registry and counter entries pass through
// unaccounted for, matching how they are never counted by
// applyLeafTransition on the normal Apply path either.
func (e *Engine) AdoptPage(entries []RemoteLeaf, root mesh.Hash) (mesh.Hash, int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	u := e.tree.NewUpdate()
	var befores, afters []account.Leaf
	accepted := 0
	for _, ent := range entries {
		if !smt.VerifyLeafValue(ent.Proof, ent.Key, ent.Value, root) {
			continue
		}
		if len(ent.Value) == account.LeafSize {
			after, err := account.DecodeLeaf(ent.Value)
			if err == nil {
				before, err := e.accounts.GetStaged(u, after.Address, after.TokenID)
				if err == nil {
					befores = append(befores, before)
					afters = append(afters, after)
				}
			}
		}
		if err := u.Put(ent.Key, ent.Value); err != nil {
			return mesh.Hash{}, accepted, err
		}
		accepted++
	}
	if accepted == 0 {
		return e.tree.Root(), 0, nil
	}
	root, err := e.commit(u, befores, afters)
	if err != nil {
		return mesh.Hash{}, accepted, err
	}
	return root, accepted, nil
}

// nextHashKey is the lexicographic successor of k, saturating at all
// ones. DumpFullState uses it to advance the RangeLeaves cursor past
// the last key of a full page.
func nextHashKey(k mesh.Hash) mesh.Hash {
	out := k
	for i := len(out) - 1; i >= 0; i-- {
		out[i]++
		if out[i] != 0 {
			return out
		}
	}
	return out
}

// FullStateEntry is one raw (key, value) leaf pair for the trusted
// bulk load/dump path (get_full_state/set_full_state). Unlike
// RemoteLeaf there is no accompanying proof: the caller of
// LoadFullState is a trusted operator restoring a snapshot, not an
// unauthenticated gossip peer, so there is nothing to verify against.
type FullStateEntry struct {
	Key   mesh.Hash
	Value []byte
}

// DumpFullState returns every leaf currently stored, account leaves,
// token registry entries and the counter leaf alike, since all three
// share the same underlying leaf store keyed by SMT key.
func (e *Engine) DumpFullState() ([]FullStateEntry, mesh.Hash, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []FullStateEntry
	start := mesh.Hash{}
	for {
		page, err := e.tree.RangeLeaves(start, 1024)
		if err != nil {
			return nil, mesh.Hash{}, err
		}
		if len(page) == 0 {
			break
		}
		for _, p := range page {
			out = append(out, FullStateEntry{Key: p.Key, Value: p.Value})
		}
		if len(page) < 1024 {
			break
		}
		start = nextHashKey(page[len(page)-1].Key)
	}
	return out, e.tree.Root(), nil
}

// LoadFullState overwrites the tree with entries wholesale, in a
// single atomic commit. It never runs against a node with other
// traffic in flight in any sane deployment; it exists for bootstrap
// and disaster-recovery restores, not steady-state replication (that
// is AdoptPage's job).
func (e *Engine) LoadFullState(entries []FullStateEntry) (mesh.Hash, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	u := e.tree.NewUpdate()
	var befores, afters []account.Leaf
	for _, ent := range entries {
		if len(ent.Value) == account.LeafSize {
			after, err := account.DecodeLeaf(ent.Value)
			if err == nil {
				before, err := e.accounts.GetStaged(u, after.Address, after.TokenID)
				if err == nil {
					befores = append(befores, before)
					afters = append(afters, after)
				}
			}
		}
		if err := u.Put(ent.Key, ent.Value); err != nil {
			return mesh.Hash{}, err
		}
	}
	if len(entries) == 0 {
		return e.tree.Root(), nil
	}
	return e.commit(u, befores, afters)
}

func (e *Engine) applyBurn(m *msg.Burn) (mesh.Hash, error) {
	holderBefore, err := e.accounts.GetAccount(m.Holder, m.TokenId)
	if err != nil {
		return mesh.Hash{}, err
	}
	if holderBefore.Nonce != m.Nonce_ {
		return mesh.Hash{}, ErrNonceMismatch
	}

	u := e.tree.NewUpdate()
	holderAfter, err := e.accounts.ApplyDelta(u, m.Holder, m.TokenId, m.Amount, false, holderBefore.Nonce+1)
	if err != nil {
		return mesh.Hash{}, err
	}
	if _, err := e.accounts.UpdateSupply(u, m.TokenId, m.Amount, false); err != nil {
		return mesh.Hash{}, err
	}

	return e.commit(u, []account.Leaf{holderBefore}, []account.Leaf{holderAfter})
}
