package account

import (
	"encoding/binary"

	"github.com/ledgerless/ledgerless/kvstore"
	"github.com/ledgerless/ledgerless/mesh"
	"github.com/ledgerless/ledgerless/smt"
)

// Store is the account and token model: it reads/writes AccountLeaf
// and TokenInfo values through the underlying tree, and maintains a
// secondary by-token_id index (the tree alone has no way to enumerate
// keys it has never been asked for, since keys are opaque hashes).
type Store struct {
	tree   *smt.Tree
	tokens kvstore.Store // token_id (BE u64) -> encoded TokenInfo, enumeration index only
}

// NewStore opens the account model over tree, using a "tokens/"
// sub-bucket of raw for the enumeration index.
func NewStore(tree *smt.Tree, raw kvstore.Store) *Store {
	return &Store{tree: tree, tokens: kvstore.Bucket(raw, "tokens/")}
}

// GetAccount reads the current leaf for (addr, token). An account that
// has never been credited reads back as EmptyLeaf, per the SMT's
// absent-key convention.
func (s *Store) GetAccount(addr mesh.Address, token TokenID) (Leaf, error) {
	buf, ok, err := s.tree.Get(mesh.AccountKey(addr, token))
	if err != nil {
		return Leaf{}, err
	}
	if !ok {
		return EmptyLeaf(addr, token), nil
	}
	return DecodeLeaf(buf)
}

// getAccountIn reads (addr, token) as staged within u, falling back to
// the tree.
func (s *Store) getAccountIn(u *smt.Update, addr mesh.Address, token TokenID) (Leaf, error) {
	buf, ok, err := u.Get(mesh.AccountKey(addr, token))
	if err != nil {
		return Leaf{}, err
	}
	if !ok {
		return EmptyLeaf(addr, token), nil
	}
	return DecodeLeaf(buf)
}

// GetStaged reads (addr, token) as it stands within an in-progress
// update, seeing any earlier Put staged in the same update.
func (s *Store) GetStaged(u *smt.Update, addr mesh.Address, token TokenID) (Leaf, error) {
	return s.getAccountIn(u, addr, token)
}

func (s *Store) putAccountIn(u *smt.Update, l Leaf) error {
	return u.Put(l.Key(), l.Encode())
}

// ApplyDelta atomically adjusts (addr, token)'s balance by amount
// (credited if credit is true, debited otherwise) and sets its nonce
// to newNonce, staging the write into u. Debits that would underflow
// return ErrInsufficientFunds rather than wrapping (property P3).
func (s *Store) ApplyDelta(u *smt.Update, addr mesh.Address, token TokenID, amount mesh.Balance, credit bool, newNonce mesh.Nonce) (Leaf, error) {
	cur, err := s.getAccountIn(u, addr, token)
	if err != nil {
		return Leaf{}, err
	}
	var newBal mesh.Balance
	if credit {
		newBal, err = cur.Balance.Add(amount)
	} else {
		newBal, err = cur.Balance.Sub(amount)
		if err != nil {
			return Leaf{}, ErrInsufficientFunds
		}
	}
	if err != nil {
		return Leaf{}, err
	}
	next := Leaf{Address: addr, TokenID: token, Balance: newBal, Nonce: newNonce}
	if err := s.putAccountIn(u, next); err != nil {
		return Leaf{}, err
	}
	return next, nil
}

// GetToken reads a token's registry entry by id.
func (s *Store) GetToken(token TokenID) (TokenInfo, error) {
	buf, ok, err := s.tree.Get(mesh.TokenInfoKey(token))
	if err != nil {
		return TokenInfo{}, err
	}
	if !ok {
		return TokenInfo{}, ErrUnknownToken
	}
	return DecodeTokenInfo(buf)
}

func (s *Store) getTokenIn(u *smt.Update, token TokenID) (TokenInfo, bool, error) {
	buf, ok, err := u.Get(mesh.TokenInfoKey(token))
	if err != nil || !ok {
		return TokenInfo{}, false, err
	}
	info, err := DecodeTokenInfo(buf)
	return info, true, err
}

func (s *Store) getCounterIn(u *smt.Update) (uint64, error) {
	buf, ok, err := u.Get(mesh.TokenCounterKey())
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return decodeCounter(buf)
}

// RegisterToken assigns the next token_id (counter+1), persists the
// new TokenInfo into both the tree (under H("TOKEN"‖token_id), the
// hashed source of truth) and the enumeration index, and bumps the
// registry counter leaf. token_id=0 is reserved for the native token
// and is seeded at genesis via Genesis, not through this path.
func (s *Store) RegisterToken(u *smt.Update, issuer mesh.Address, metadata string, maxSupply mesh.Balance) (TokenInfo, error) {
	counter, err := s.getCounterIn(u)
	if err != nil {
		return TokenInfo{}, err
	}
	next := counter + 1
	info := TokenInfo{
		TokenID:   TokenID(next),
		Issuer:    issuer,
		Metadata:  metadata,
		MaxSupply: maxSupply,
	}
	if err := u.Put(info.Key(), info.Encode()); err != nil {
		return TokenInfo{}, err
	}
	if err := u.Put(mesh.TokenCounterKey(), encodeCounter(next)); err != nil {
		return TokenInfo{}, err
	}
	if err := s.indexToken(info); err != nil {
		return TokenInfo{}, err
	}
	return info, nil
}

// Genesis seeds the native token_id=0 registry entry. Called once,
// outside of normal message processing.
func (s *Store) Genesis(u *smt.Update, treasury mesh.Address, metadata string, maxSupply mesh.Balance) (TokenInfo, error) {
	info := NativeTokenInfo(treasury, metadata, maxSupply)
	if err := u.Put(info.Key(), info.Encode()); err != nil {
		return TokenInfo{}, err
	}
	if err := s.indexToken(info); err != nil {
		return TokenInfo{}, err
	}
	return info, nil
}

// UpdateSupply adjusts token's total_supply by delta (credited if
// credit is true), enforcing I5 (total_supply <= max_supply), and
// refreshes both the tree entry and the enumeration index.
func (s *Store) UpdateSupply(u *smt.Update, token TokenID, delta mesh.Balance, credit bool) (TokenInfo, error) {
	info, ok, err := s.getTokenIn(u, token)
	if err != nil {
		return TokenInfo{}, err
	}
	if !ok {
		return TokenInfo{}, ErrUnknownToken
	}
	var newSupply mesh.Balance
	if credit {
		newSupply, err = info.TotalSupply.Add(delta)
		if err == nil && info.MaxSupply.Cmp(newSupply) < 0 {
			err = ErrSupplyExceeded
		}
	} else {
		newSupply, err = info.TotalSupply.Sub(delta)
	}
	if err != nil {
		return TokenInfo{}, err
	}
	info.TotalSupply = newSupply
	if err := u.Put(info.Key(), info.Encode()); err != nil {
		return TokenInfo{}, err
	}
	if err := s.indexToken(info); err != nil {
		return TokenInfo{}, err
	}
	return info, nil
}

// ListTokens enumerates every registered token via the secondary
// index, in ascending token_id order.
func (s *Store) ListTokens() ([]TokenInfo, error) {
	it := s.tokens.NewIterator(kvstore.Range{})
	defer it.Release()
	var out []TokenInfo
	for it.Next() {
		info, err := DecodeTokenInfo(it.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) indexToken(info TokenInfo) error {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(info.TokenID))
	return s.tokens.Put(key, info.Encode())
}
