// node runs a replica of the value-transfer mesh: a state engine over
// a sparse Merkle tree, a gossip fabric replicating it to peers, a
// JSON-RPC surface for clients, and an optional bridge watcher relaying
// value to and from an external chain.
package main

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/p2p/enode"
	"github.com/ethereum/go-ethereum/p2p/nat"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/ledgerless/ledgerless/bridge"
	"github.com/ledgerless/ledgerless/clock"
	"github.com/ledgerless/ledgerless/engine"
	"github.com/ledgerless/ledgerless/gossip"
	"github.com/ledgerless/ledgerless/kvstore"
	"github.com/ledgerless/ledgerless/mesh"
	"github.com/ledgerless/ledgerless/msgindex"
	"github.com/ledgerless/ledgerless/rpcapi"
)

var (
	version   string
	gitCommit string
)

func main() {
	app := cli.App{
		Version: fmt.Sprintf("%s-%s", version, gitCommit),
		Name:    "node",
		Usage:   "value-transfer mesh replica",
		Flags: []cli.Flag{
			dataDirFlag, genesisFlag, listenAddrFlag, maxPeersFlag, bootstrapFlag, natFlag,
			rpcAddrFlag, rpcCorsFlag, metricsAddrFlag, verbosityFlag,
			bridgeRPCFlag, bridgeContractFlag, bridgeConfirmationsFlag, bridgeKeyFileFlag,
			masterKeyStdinFlag, progressFlag,
		},
		Action: runNode,
		Commands: []cli.Command{
			{
				Name:   "peer-id",
				Usage:  "print this node's gossip identity without starting it",
				Flags:  []cli.Flag{dataDirFlag},
				Action: printPeerID,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runNode(ctx *cli.Context) error {
	logger := initLogger(ctx)

	dataDir := ctx.String(dataDirFlag.Name)
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		fatalf("create data dir %q: %v", dataDir, err)
	}

	store, err := kvstore.OpenLevelDB(filepath.Join(dataDir, "state.db"))
	if err != nil {
		fatalf("open state database: %v", err)
	}

	defer store.Close()

	eng, err := engine.New(store)
	if err != nil {
		fatalf("open engine: %v", err)
	}

	if err := maybeSeedGenesis(ctx, eng); err != nil {
		fatalf("seed genesis: %v", err)
	}

	index, err := msgindex.New(filepath.Join(dataDir, "msgindex.db"))
	if err != nil {
		fatalf("open message index: %v", err)
	}
	defer index.Close()

	p2pKey, err := loadOrGenerateP2PKey(filepath.Join(dataDir, "p2p.key"))
	if err != nil {
		fatalf("load p2p key: %v", err)
	}
	var signingKey ed25519.PrivateKey
	if ctx.Bool(masterKeyStdinFlag.Name) {
		signingKey, err = readSigningKeyFromTTY()
		if err != nil {
			fatalf("read signing key from terminal: %v", err)
		}
	} else {
		signingKey, err = loadOrGenerateSigningKey(filepath.Join(dataDir, "signing.key"))
		if err != nil {
			fatalf("load signing key: %v", err)
		}
	}

	bootstrapNodes, err := parseBootstrapNodes(ctx.String(bootstrapFlag.Name))
	if err != nil {
		fatalf("parse -%s: %v", bootstrapFlag.Name, err)
	}

	natm, err := nat.Parse(ctx.String(natFlag.Name))
	if err != nil {
		fatalf("parse -%s: %v", natFlag.Name, err)
	}

	node := gossip.New(gossip.Config{
		PrivateKey:     p2pKey,
		SigningKey:     signingKey,
		ListenAddr:     ctx.String(listenAddrFlag.Name),
		MaxPeers:       int(ctx.Uint64(maxPeersFlag.Name)),
		BootstrapNodes: bootstrapNodes,
		NAT:            natm,
	}, eng, logger)
	if err := node.Start(); err != nil {
		fatalf("start gossip node: %v", err)
	}
	defer node.Stop()
	logger.Info("gossip node started", "enode", node.Self().URLv4())

	exitCtx, cancel := waitForExit()
	defer cancel()

	if ctx.Bool(progressFlag.Name) {
		go runSyncProgressBar(exitCtx.Done(), node)
	}

	rpcSrv := rpcapi.New(eng, node, index, rpcapi.Options{AllowedOrigins: ctx.String(rpcCorsFlag.Name)})
	go rpcSrv.RunRootsFeed(exitCtx.Done())
	rpcAddr, waitRPC, err := startHTTPServer(exitCtx, ctx.String(rpcAddrFlag.Name), rpcSrv.Handler())
	if err != nil {
		fatalf("start rpc server: %v", err)
	}
	defer waitRPC()
	logger.Info("rpc server started", "addr", rpcAddr)

	if addr := ctx.String(metricsAddrFlag.Name); addr != "" {
		metricsAddr, waitMetrics, err := startMetricsServer(exitCtx, addr)
		if err != nil {
			fatalf("start metrics server: %v", err)
		}
		defer waitMetrics()
		logger.Info("metrics server started", "addr", metricsAddr)
	}

	if rpcURL := ctx.String(bridgeRPCFlag.Name); rpcURL != "" {
		stop, err := startBridge(ctx, exitCtx, dataDir, eng, logger)
		if err != nil {
			fatalf("start bridge: %v", err)
		}
		defer stop()
	}

	logger.Info("node running", "data_dir", dataDir)
	<-exitCtx.Done()
	logger.Info("shutting down")
	return nil
}

func maybeSeedGenesis(ctx *cli.Context, eng *engine.Engine) error {
	if _, err := eng.Accounts().GetToken(mesh.NativeTokenId); err == nil {
		return nil // already seeded by a previous run
	}
	cfg, err := loadGenesisConfig(ctx.String(genesisFlag.Name))
	if err != nil {
		return err
	}
	treasury, err := cfg.treasuryAddress()
	if err != nil {
		return err
	}
	return eng.Genesis(treasury, cfg.Metadata, cfg.maxSupplyBalance())
}

// startBridge brings up the bridge watcher and external-chain poller,
// sharing exitCtx with the rest of the node so a single Ctrl-C tears
// everything down together.
func startBridge(ctx *cli.Context, exitCtx context.Context, dataDir string, eng *engine.Engine, logger *slog.Logger) (func(), error) {
	raw, err := kvstore.OpenLevelDB(filepath.Join(dataDir, "bridge.db"))
	if err != nil {
		return nil, err
	}
	store, err := bridge.NewStore(raw)
	if err != nil {
		return nil, err
	}

	keyFile := ctx.String(bridgeKeyFileFlag.Name)
	if keyFile == "" {
		keyFile = filepath.Join(dataDir, "bridge.key")
	}
	bridgeKey, err := loadOrGenerateSigningKey(keyFile)
	if err != nil {
		return nil, err
	}

	escrow := mesh.BytesToAddress(bridgeKey.Public().(ed25519.PublicKey))
	clk := clock.New(nil)
	attestor := bridge.NewSingleKeyAttestor(bridgeKey)
	watcher := bridge.NewWatcher(bridge.Config{
		Escrow:           escrow,
		BridgeKey:        bridgeKey,
		MinConfirmations: uint32(ctx.Uint64(bridgeConfirmationsFlag.Name)),
	}, store, eng, clk, attestor)

	poller, err := bridge.NewPoller(bridge.PollerConfig{
		RPCURL:          ctx.String(bridgeRPCFlag.Name),
		ContractAddress: common.HexToAddress(ctx.String(bridgeContractFlag.Name)),
		Confirmations:   ctx.Uint64(bridgeConfirmationsFlag.Name),
		PollInterval:    15 * time.Second,
		Issuer:          mesh.Treasury,
	}, watcher, eng)
	if err != nil {
		return nil, err
	}

	go func() {
		if err := poller.Run(exitCtx); err != nil {
			logger.Info("bridge poller stopped", "err", err)
		}
	}()
	logger.Info("bridge watcher started", "escrow", escrow, "contract", ctx.String(bridgeContractFlag.Name))

	return func() {
		clk.Close()
		raw.Close()
	}, nil
}

func printPeerID(ctx *cli.Context) error {
	dataDir := ctx.String(dataDirFlag.Name)
	key, err := loadOrGenerateP2PKey(filepath.Join(dataDir, "p2p.key"))
	if err != nil {
		return err
	}
	fmt.Println(enode.PubkeyToIDV4(&key.PublicKey))
	return nil
}
