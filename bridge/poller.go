package bridge

import (
	"context"
	"errors"
	"math/big"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/ledgerless/ledgerless/engine"
	"github.com/ledgerless/ledgerless/mesh"
)

// lockedEventSig is the topic0 of the external escrow contract's
// Locked(bytes32 dst, uint256 tokenId, uint256 amount) event. dst is a
// 32-byte Ed25519 public key, not a 20-byte Ethereum address, since it
// names an account on this side of the bridge.
var lockedEventSig = crypto.Keccak256Hash([]byte("Locked(bytes32,uint256,uint256)"))

var lockedArgs = abi.Arguments{
	{Type: mustABIType("bytes32")},
	{Type: mustABIType("uint256")},
	{Type: mustABIType("uint256")},
}

func mustABIType(t string) abi.Type {
	ty, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return ty
}

// PollerConfig configures a Poller.
type PollerConfig struct {
	RPCURL          string
	ContractAddress common.Address
	Confirmations   uint64
	PollInterval    time.Duration
	Issuer          mesh.Address // account whose nonce signs the resulting release Mint
}

// Poller watches an external chain's escrow contract for Locked events
// and, once they clear Confirmations, feeds them into a Watcher and
// applies the resulting release Mint against the local engine. It owns
// no retry/reorg handling beyond the confirmation depth: a deployment
// that needs deeper reorg protection raises Confirmations rather than
// this package growing one.
type Poller struct {
	cfg     PollerConfig
	client  *ethclient.Client
	watcher *Watcher
	engine  *engine.Engine

	lastSeen uint64
}

// NewPoller dials the external RPC endpoint and builds a Poller around
// it. The dial is lazy on most ethclient transports, so this returns
// quickly even if the endpoint is briefly unreachable.
func NewPoller(cfg PollerConfig, watcher *Watcher, eng *engine.Engine) (*Poller, error) {
	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, err
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 15 * time.Second
	}
	return &Poller{cfg: cfg, client: client, watcher: watcher, engine: eng}, nil
}

// Run polls on cfg.PollInterval until ctx is canceled. Meant to run in
// its own goroutine for the node process's lifetime.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := p.pollOnce(ctx); err != nil {
				return err
			}
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context) error {
	head, err := p.client.BlockNumber(ctx)
	if err != nil {
		return err
	}
	if head < p.cfg.Confirmations {
		return nil
	}
	safe := head - p.cfg.Confirmations
	if p.lastSeen == 0 {
		p.lastSeen = safe
		return nil
	}
	if safe <= p.lastSeen {
		return nil
	}
	from := p.lastSeen + 1

	logs, err := p.client.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(safe),
		Addresses: []common.Address{p.cfg.ContractAddress},
		Topics:    [][]common.Hash{{lockedEventSig}},
	})
	if err != nil {
		return err
	}
	for _, l := range logs {
		if err := p.handleLog(l, safe); err != nil {
			return err
		}
	}
	p.lastSeen = safe
	return nil
}

func (p *Poller) handleLog(l types.Log, safeHead uint64) error {
	values, err := lockedArgs.Unpack(l.Data)
	if err != nil {
		return err
	}
	dstRaw, ok := values[0].([32]byte)
	if !ok {
		return errors.New("bridge: malformed Locked log, dst is not bytes32")
	}
	tokenID, ok := values[1].(*big.Int)
	if !ok {
		return errors.New("bridge: malformed Locked log, tokenId is not uint256")
	}
	amountRaw, ok := values[2].(*big.Int)
	if !ok {
		return errors.New("bridge: malformed Locked log, amount is not uint256")
	}

	var dst mesh.Address
	copy(dst[:], dstRaw[:])
	amount, err := mesh.BalanceFromBigInt(amountRaw)
	if err != nil {
		return err
	}

	ev := ExternalEvent{
		ExtTxHash:     mesh.BytesToHash(l.TxHash[:]),
		Dst:           dst,
		TokenID:       mesh.TokenId(tokenID.Uint64()),
		Amount:        amount,
		Confirmations: uint32(safeHead + p.cfg.Confirmations - l.BlockNumber + 1),
	}

	issuer, err := p.engine.Accounts().GetAccount(p.cfg.Issuer, ev.TokenID)
	if err != nil {
		return err
	}
	m, _, err := p.watcher.HandleExternalEvent(ev, p.cfg.Issuer, issuer.Nonce)
	if errors.Is(err, ErrAlreadyUsed) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = p.engine.Apply(m)
	return err
}
