package rpcapi

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/ledgerless/ledgerless/account"
	"github.com/ledgerless/ledgerless/engine"
	"github.com/ledgerless/ledgerless/mesh"
	"github.com/ledgerless/ledgerless/msg"
)

type methodFunc func(s *Server, params json.RawMessage) (any, error)

var methodTable = map[string]methodFunc{
	"getRoot":                handleGetRoot,
	"getBalance":             handleGetBalance,
	"getBalanceWithToken":    handleGetBalanceWithToken,
	"getAllBalances":         handleGetAllBalances,
	"getNonce":               handleGetNonce,
	"get_nonce_with_token":   handleGetNonceWithToken,
	"getProof":               handleGetProof,
	"get_proof_with_token":   handleGetProofWithToken,
	"get_tokens":             handleGetTokens,
	"get_total_supply":       handleGetTotalSupply,
	"get_max_supply":         handleGetMaxSupply,
	"send":                   handleSend,
	"mint":                   handleMint,
	"broadcastUpdate":        handleBroadcastUpdate,
	"broadcast_mint":         handleBroadcastMint,
	"p3p_issueToken":         handleP3PIssueToken,
	"p3p_mintToken":          handleP3PMintToken,
	"get_full_state":         handleGetFullState,
	"set_full_state":         handleSetFullState,
	"get_peer_id":            handleGetPeerID,
}

func decodeParams(params json.RawMessage, v any) error {
	if len(params) == 0 {
		return invalidParams(errors.New("rpcapi: missing params"))
	}
	if err := json.Unmarshal(params, v); err != nil {
		return invalidParams(err)
	}
	return nil
}

// -- read-only projections --

func handleGetRoot(s *Server, _ json.RawMessage) (any, error) {
	return map[string]any{"root": s.engine.Root()}, nil
}

type addrParams struct {
	Addr mesh.Address `json:"addr"`
}

func handleGetBalance(s *Server, params json.RawMessage) (any, error) {
	return balanceResult(s, params, mesh.NativeTokenId)
}

type addrTokenParams struct {
	Addr    mesh.Address `json:"addr"`
	TokenID mesh.TokenId `json:"token_id"`
}

func handleGetBalanceWithToken(s *Server, params json.RawMessage) (any, error) {
	var p addrTokenParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	return balanceResultFor(s, p.Addr, p.TokenID)
}

func balanceResult(s *Server, params json.RawMessage, tokenID mesh.TokenId) (any, error) {
	var p addrParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	return balanceResultFor(s, p.Addr, tokenID)
}

func balanceResultFor(s *Server, addr mesh.Address, tokenID mesh.TokenId) (any, error) {
	leaf, err := s.engine.Accounts().GetAccount(addr, tokenID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"balance": leaf.Balance, "nonce": leaf.Nonce}, nil
}

func handleGetAllBalances(s *Server, params json.RawMessage) (any, error) {
	var p addrParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	tokens, err := s.engine.Accounts().ListTokens()
	if err != nil {
		return nil, err
	}
	native, err := s.engine.Accounts().GetAccount(p.Addr, mesh.NativeTokenId)
	if err != nil {
		return nil, err
	}
	out := make([]balanceEntry, 0, len(tokens)+1)
	out = append(out, balanceEntry{TokenID: mesh.NativeTokenId, Balance: native.Balance})
	for _, t := range tokens {
		leaf, err := s.engine.Accounts().GetAccount(p.Addr, t.TokenID)
		if err != nil {
			return nil, err
		}
		out = append(out, balanceEntry{TokenID: t.TokenID, Balance: leaf.Balance})
	}
	return out, nil
}

type balanceEntry struct {
	TokenID mesh.TokenId `json:"token_id"`
	Balance mesh.Balance `json:"balance"`
}

func handleGetNonce(s *Server, params json.RawMessage) (any, error) {
	return nonceResult(s, params, mesh.NativeTokenId)
}

func handleGetNonceWithToken(s *Server, params json.RawMessage) (any, error) {
	var p addrTokenParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	leaf, err := s.engine.Accounts().GetAccount(p.Addr, p.TokenID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"nonce": leaf.Nonce}, nil
}

func nonceResult(s *Server, params json.RawMessage, tokenID mesh.TokenId) (any, error) {
	var p addrParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	leaf, err := s.engine.Accounts().GetAccount(p.Addr, tokenID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"nonce": leaf.Nonce}, nil
}

func handleGetProof(s *Server, params json.RawMessage) (any, error) {
	return proofResult(s, params, mesh.NativeTokenId)
}

func handleGetProofWithToken(s *Server, params json.RawMessage) (any, error) {
	var p addrTokenParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	return proofResultFor(s, p.Addr, p.TokenID)
}

func proofResult(s *Server, params json.RawMessage, tokenID mesh.TokenId) (any, error) {
	var p addrParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	return proofResultFor(s, p.Addr, tokenID)
}

func proofResultFor(s *Server, addr mesh.Address, tokenID mesh.TokenId) (any, error) {
	proof, err := s.engine.Tree().Prove(mesh.AccountKey(addr, tokenID))
	if err != nil {
		return nil, err
	}
	return map[string]any{"root": s.engine.Root(), "proof": proof}, nil
}

func handleGetTokens(s *Server, _ json.RawMessage) (any, error) {
	tokens, err := s.engine.Accounts().ListTokens()
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

type tokenOptParams struct {
	TokenID *mesh.TokenId `json:"token_id"`
}

func handleGetTotalSupply(s *Server, params json.RawMessage) (any, error) {
	info, err := tokenInfoOrNative(s, params)
	if err != nil {
		return nil, err
	}
	return map[string]any{"token_id": info.TokenID, "total_supply": info.TotalSupply}, nil
}

func handleGetMaxSupply(s *Server, params json.RawMessage) (any, error) {
	info, err := tokenInfoOrNative(s, params)
	if err != nil {
		return nil, err
	}
	return map[string]any{"token_id": info.TokenID, "max_supply": info.MaxSupply}, nil
}

func tokenInfoOrNative(s *Server, params json.RawMessage) (account.TokenInfo, error) {
	tokenID := mesh.NativeTokenId
	if len(params) > 0 {
		var p tokenOptParams
		if err := json.Unmarshal(params, &p); err == nil && p.TokenID != nil {
			tokenID = *p.TokenID
		}
	}
	return s.engine.Accounts().GetToken(tokenID)
}

// -- submit methods --

type sendParams struct {
	From         mesh.Address `json:"from"`
	To           mesh.Address `json:"to"`
	TokenID      mesh.TokenId `json:"token_id"`
	Amount       mesh.Balance `json:"amount"`
	Nonce        mesh.Nonce   `json:"nonce"`
	SignatureHex string       `json:"signature_hex"`
}

func handleSend(s *Server, params json.RawMessage) (any, error) {
	var p sendParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	sig, err := parseSig(p.SignatureHex)
	if err != nil {
		return nil, invalidParams(err)
	}
	preRoot, postRoot, proofFrom, proofTo, _, err := s.engine.PreviewTransfer(p.From, p.To, p.TokenID, p.Amount)
	if err != nil {
		return nil, err
	}
	t := &msg.Transfer{
		From: p.From, To: p.To, TokenId: p.TokenID, Amount: p.Amount,
		PreRoot: preRoot, PostRoot: postRoot, Nonce_: p.Nonce,
		ProofFrom: proofFrom, ProofTo: proofTo, Sig: sig,
	}
	return s.submit(t)
}

type mintParams struct {
	From         mesh.Address `json:"from"`
	SignatureHex string       `json:"signature_hex"`
	To           mesh.Address `json:"to"`
	Amount       mesh.Balance `json:"amount"`
	TokenID      *mesh.TokenId `json:"token_id"`
}

func handleMint(s *Server, params json.RawMessage) (any, error) {
	var p mintParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	sig, err := parseSig(p.SignatureHex)
	if err != nil {
		return nil, invalidParams(err)
	}
	tokenID := mesh.NativeTokenId
	if p.TokenID != nil {
		tokenID = *p.TokenID
	}
	issuer, err := s.engine.Accounts().GetAccount(p.From, tokenID)
	if err != nil {
		return nil, err
	}
	m := &msg.Mint{Issuer: p.From, To: p.To, TokenId: tokenID, Amount: p.Amount, Nonce_: issuer.Nonce, Sig: sig}
	return s.submit(m)
}

type broadcastUpdateParams struct {
	Message transferJSON `json:"message_object"`
}

func handleBroadcastUpdate(s *Server, params json.RawMessage) (any, error) {
	var p broadcastUpdateParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	t, err := p.Message.toTransfer()
	if err != nil {
		return nil, invalidParams(err)
	}
	return s.submit(t)
}

type hexMessageParams struct {
	HexEncodedMessage string `json:"hex_encoded_message"`
}

func handleBroadcastMint(s *Server, params json.RawMessage) (any, error) {
	var p hexMessageParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	m, err := decodeHexMessage(p.HexEncodedMessage)
	if err != nil {
		return nil, invalidParams(err)
	}
	if _, ok := m.(*msg.Mint); !ok {
		return nil, invalidParams(errors.New("rpcapi: hex_encoded_message is not a mint"))
	}
	return s.submit(m)
}

func handleP3PIssueToken(s *Server, params json.RawMessage) (any, error) {
	var p hexMessageParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	m, err := decodeHexMessage(p.HexEncodedMessage)
	if err != nil {
		return nil, invalidParams(err)
	}
	if _, ok := m.(*msg.IssueToken); !ok {
		return nil, invalidParams(errors.New("rpcapi: hex_encoded_message is not an issue_token"))
	}
	return s.submit(m)
}

// p3pMintParams accepts the "message_object_or_hex" shape: either a
// bare hex string or a JSON object matching mint's fields. Decoding
// tries the string form first since that's the unambiguous case.
type p3pMintParams struct {
	raw json.RawMessage
}

func (p *p3pMintParams) UnmarshalJSON(data []byte) error {
	p.raw = append(json.RawMessage{}, data...)
	return nil
}

func handleP3PMintToken(s *Server, params json.RawMessage) (any, error) {
	var p p3pMintParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	var hexStr string
	if err := json.Unmarshal(p.raw, &hexStr); err == nil {
		m, err := decodeHexMessage(hexStr)
		if err != nil {
			return nil, invalidParams(err)
		}
		if _, ok := m.(*msg.Mint); !ok {
			return nil, invalidParams(errors.New("rpcapi: message_object_or_hex is not a mint"))
		}
		return s.submit(m)
	}

	var mp mintParams
	if err := json.Unmarshal(p.raw, &mp); err != nil {
		return nil, invalidParams(err)
	}
	sig, err := parseSig(mp.SignatureHex)
	if err != nil {
		return nil, invalidParams(err)
	}
	tokenID := mesh.NativeTokenId
	if mp.TokenID != nil {
		tokenID = *mp.TokenID
	}
	issuer, err := s.engine.Accounts().GetAccount(mp.From, tokenID)
	if err != nil {
		return nil, err
	}
	m := &msg.Mint{Issuer: mp.From, To: mp.To, TokenId: tokenID, Amount: mp.Amount, Nonce_: issuer.Nonce, Sig: sig}
	return s.submit(m)
}

// -- full state bootstrap/restore --

type fullStateLeafJSON struct {
	Key   mesh.Hash `json:"key"`
	Value string    `json:"value"`
}

func handleGetFullState(s *Server, _ json.RawMessage) (any, error) {
	entries, root, err := s.engine.DumpFullState()
	if err != nil {
		return nil, err
	}
	leaves := make([]fullStateLeafJSON, len(entries))
	for i, e := range entries {
		leaves[i] = fullStateLeafJSON{Key: e.Key, Value: hexString(e.Value)}
	}
	return map[string]any{"root": root, "leaves": leaves}, nil
}

type setFullStateParams struct {
	State struct {
		Leaves []fullStateLeafJSON `json:"leaves"`
	} `json:"state_object"`
}

func handleSetFullState(s *Server, params json.RawMessage) (any, error) {
	var p setFullStateParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	entries := make([]engine.FullStateEntry, len(p.State.Leaves))
	for i, l := range p.State.Leaves {
		v, err := hexBytes(l.Value)
		if err != nil {
			return nil, invalidParams(err)
		}
		entries[i] = engine.FullStateEntry{Key: l.Key, Value: v}
	}
	root, err := s.engine.LoadFullState(entries)
	if err != nil {
		return nil, err
	}
	return map[string]any{"root": root}, nil
}

func handleGetPeerID(s *Server, _ json.RawMessage) (any, error) {
	if s.node == nil {
		return map[string]any{"peer_id": ""}, nil
	}
	return map[string]any{"peer_id": s.node.Self().ID().String()}, nil
}

// submit runs m through the state engine, records it in the message
// index when present, re-gossips on success, and returns the
// {accepted, msg_id} shape the submit endpoints all share.
func (s *Server) submit(m msg.Message) (any, error) {
	id := msg.MsgID(m)
	if s.dedup.Contains(id) {
		return nil, errDuplicateMessage
	}
	root, err := s.engine.Apply(m)
	if err != nil {
		return nil, err
	}
	s.dedup.Add(id, struct{}{})
	if s.index != nil {
		if err := s.index.Record(m, root, time.Now()); err != nil {
			logger.Warn("failed to record message in index", "err", err)
		}
	}
	if s.node != nil {
		s.node.Broadcast(m)
	}
	return map[string]any{"accepted": true, "msg_id": id, "root": root}, nil
}
