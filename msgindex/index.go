// Package msgindex is the non-authoritative auxiliary query index
// (§4.10): a sqlite3-backed record of every applied message, kept
// purely for explorer-style "what has this address sent/received"
// queries the SMT itself cannot answer cheaply. It is always
// rebuildable from the authoritative applied-message log; losing it
// never affects consensus, conservation, or any root.
package msgindex

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ledgerless/ledgerless/mesh"
	"github.com/ledgerless/ledgerless/msg"
)

// Index wraps a sqlite3 database holding the message table.
type Index struct {
	path string
	db   *sql.DB
}

// New opens or creates the index at path.
func New(path string) (*Index, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(messageTableSchema); err != nil {
		db.Close()
		return nil, err
	}
	return &Index{path: path, db: db}, nil
}

// NewMem opens an in-memory index, for tests.
func NewMem() (*Index, error) { return New(":memory:") }

// Close closes the underlying database.
func (idx *Index) Close() error { return idx.db.Close() }

// Record stores one applied message, decomposed into the fields the
// message table can search on. from/to are the effective sender and
// recipient for the given kind: IssueToken and Burn carry only one
// party, so their "to" column is left at the zero address.
func (idx *Index) Record(m msg.Message, root mesh.Hash, appliedAt time.Time) error {
	var from, to mesh.Address
	var amount mesh.Balance

	switch v := m.(type) {
	case *msg.Transfer:
		from, to, amount = v.From, v.To, v.Amount
	case *msg.Mint:
		from, to, amount = v.Issuer, v.To, v.Amount
	case *msg.Burn:
		from, amount = v.Holder, v.Amount
	case *msg.IssueToken:
		from, amount = v.Issuer, v.MaxSupply
	}

	amt := amount.Bytes16()
	id := msg.MsgID(m)
	_, err := idx.db.Exec(
		`insert or replace into message (id, kind, fromAddr, toAddr, tokenId, amount, nonce, root, appliedAt)
		 values (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id.Bytes(), byte(m.Kind()), from.Bytes(), to.Bytes(), uint64(m.TokenID()), amt[:], uint64(m.Nonce()), root.Bytes(), appliedAt.Unix(),
	)
	return err
}

// Record is the row shape returned by queries.
type Record struct {
	ID        mesh.Hash
	Kind      msg.Kind
	From      mesh.Address
	To        mesh.Address
	TokenID   mesh.TokenId
	Amount    mesh.Balance
	Nonce     mesh.Nonce
	Root      mesh.Hash
	AppliedAt time.Time
}

// ByAddress returns messages where addr is the sender or recipient,
// most recent first, bounded by limit/offset for pagination.
func (idx *Index) ByAddress(addr mesh.Address, limit, offset int) ([]Record, error) {
	rows, err := idx.db.Query(
		`select id, kind, fromAddr, toAddr, tokenId, amount, nonce, root, appliedAt
		 from message where fromAddr = ? or toAddr = ?
		 order by appliedAt desc limit ? offset ?`,
		addr.Bytes(), addr.Bytes(), limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ByToken returns messages touching tokenID, most recent first.
func (idx *Index) ByToken(tokenID mesh.TokenId, limit, offset int) ([]Record, error) {
	rows, err := idx.db.Query(
		`select id, kind, fromAddr, toAddr, tokenId, amount, nonce, root, appliedAt
		 from message where tokenId = ?
		 order by appliedAt desc limit ? offset ?`,
		uint64(tokenID), limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var out []Record
	for rows.Next() {
		var idb, fromb, tob, rootb, amtb []byte
		var kind, tokenID, nonce uint64
		var appliedAt int64
		if err := rows.Scan(&idb, &kind, &fromb, &tob, &tokenID, &amtb, &nonce, &rootb, &appliedAt); err != nil {
			return nil, err
		}
		var amt16 [16]byte
		copy(amt16[:], amtb)
		out = append(out, Record{
			ID:        mesh.BytesToHash(idb),
			Kind:      msg.Kind(kind),
			From:      mesh.BytesToAddress(fromb),
			To:        mesh.BytesToAddress(tob),
			TokenID:   mesh.TokenId(tokenID),
			Amount:    mesh.BalanceFromBytes16(amt16),
			Nonce:     mesh.Nonce(nonce),
			Root:      mesh.BytesToHash(rootb),
			AppliedAt: time.Unix(appliedAt, 0).UTC(),
		})
	}
	return out, rows.Err()
}
