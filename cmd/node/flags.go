package main

import (
	cli "gopkg.in/urfave/cli.v1"
)

var (
	dataDirFlag = cli.StringFlag{
		Name:  "data-dir",
		Value: defaultDataDir(),
		Usage: "directory for the node's state database and keys",
	}
	genesisFlag = cli.StringFlag{
		Name:  "genesis",
		Usage: "path to a genesis config file; a single-account devnet genesis is used if unset",
	}
	listenAddrFlag = cli.StringFlag{
		Name:  "p2p-addr",
		Value: ":11235",
		Usage: "gossip fabric listening address",
	}
	maxPeersFlag = cli.Uint64Flag{
		Name:  "max-peers",
		Value: 25,
		Usage: "maximum number of gossip peers",
	}
	bootstrapFlag = cli.StringFlag{
		Name:  "bootstrap",
		Usage: "comma separated list of bootstrap peer enode URLs",
	}
	natFlag = cli.StringFlag{
		Name:  "nat",
		Value: "none",
		Usage: "port mapping mechanism (any|none|upnp|pmp|extip:<IP>)",
	}
	rpcAddrFlag = cli.StringFlag{
		Name:  "rpc-addr",
		Value: "localhost:8732",
		Usage: "JSON-RPC query/submit service listening address",
	}
	rpcCorsFlag = cli.StringFlag{
		Name:  "rpc-cors",
		Value: "",
		Usage: "comma separated list of origins allowed to make cross origin JSON-RPC requests",
	}
	metricsAddrFlag = cli.StringFlag{
		Name:  "metrics-addr",
		Usage: "metrics service listening address (metrics disabled if unset)",
	}
	verbosityFlag = cli.StringFlag{
		Name:  "verbosity",
		Value: "info",
		Usage: "log level (debug|info|warn|error)",
	}
	bridgeRPCFlag = cli.StringFlag{
		Name:  "bridge-rpc",
		Usage: "RPC URL of the external chain the bridge watches (bridge disabled if unset)",
	}
	bridgeContractFlag = cli.StringFlag{
		Name:  "bridge-contract",
		Usage: "address of the external escrow contract the bridge watches",
	}
	bridgeConfirmationsFlag = cli.Uint64Flag{
		Name:  "bridge-confirmations",
		Value: 12,
		Usage: "external-chain confirmations required before a Locked event is acted on",
	}
	bridgeKeyFileFlag = cli.StringFlag{
		Name:  "bridge-keyfile",
		Usage: "path to the Ed25519 key the bridge signs release Mints with (defaults to <data-dir>/bridge.key)",
	}
	masterKeyStdinFlag = cli.BoolFlag{
		Name:  "master-key-stdin",
		Usage: "read the node's Ed25519 signing key seed from the terminal instead of data-dir, without echoing it or ever touching disk",
	}
	progressFlag = cli.BoolFlag{
		Name:  "progress",
		Usage: "show a terminal progress bar while catching up via state sync",
	}
)
