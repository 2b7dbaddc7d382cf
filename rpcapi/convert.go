package rpcapi

import (
	"encoding/hex"
	"errors"
	"strings"

	"github.com/ledgerless/ledgerless/mesh"
	"github.com/ledgerless/ledgerless/msg"
	"github.com/ledgerless/ledgerless/smt"
)

var errBadSignature = errors.New("rpcapi: signature must be 64 bytes hex-encoded")

func parseSig(s string) ([64]byte, error) {
	var out [64]byte
	s = strings.TrimPrefix(s, "0x")
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 64 {
		return out, errBadSignature
	}
	copy(out[:], b)
	return out, nil
}

func hexString(b []byte) string { return hex.EncodeToString(b) }

func hexBytes(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(s, "0x"))
}

// decodeHexMessage decodes the hex_encoded_message form used by
// broadcast_mint/p3p_issueToken/p3p_mintToken: a Kind tag byte
// followed by the message's canonical fixed-field encoding, exactly
// what msg.Envelope produces.
func decodeHexMessage(s string) (msg.Message, error) {
	s = strings.TrimPrefix(s, "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return msg.DecodeEnvelope(b)
}

// transferJSON mirrors msg.Transfer for the broadcastUpdate wire
// shape: every field already has a JSON-friendly type (mesh.Address/
// Hash/Balance marshal to hex or decimal strings on their own) except
// the raw signature, which travels as a hex string rather than a byte
// array.
type transferJSON struct {
	From      mesh.Address  `json:"from"`
	To        mesh.Address  `json:"to"`
	TokenID   mesh.TokenId  `json:"token_id"`
	Amount    mesh.Balance  `json:"amount"`
	PreRoot   mesh.Hash     `json:"pre_root"`
	PostRoot  mesh.Hash     `json:"post_root"`
	Nonce     mesh.Nonce    `json:"nonce"`
	ProofFrom *smt.Proof    `json:"proof_from"`
	ProofTo   *smt.Proof    `json:"proof_to"`
	Signature string        `json:"signature"`
}

func (j transferJSON) toTransfer() (*msg.Transfer, error) {
	sig, err := parseSig(j.Signature)
	if err != nil {
		return nil, err
	}
	if j.ProofFrom == nil || j.ProofTo == nil {
		return nil, errors.New("rpcapi: broadcastUpdate requires proof_from and proof_to")
	}
	return &msg.Transfer{
		From: j.From, To: j.To, TokenId: j.TokenID, Amount: j.Amount,
		PreRoot: j.PreRoot, PostRoot: j.PostRoot, Nonce_: j.Nonce,
		ProofFrom: j.ProofFrom, ProofTo: j.ProofTo, Sig: sig,
	}, nil
}
