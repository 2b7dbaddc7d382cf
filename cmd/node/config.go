package main

import (
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/p2p/enode"
	"gopkg.in/yaml.v3"

	"github.com/ledgerless/ledgerless/mesh"
)

// genesisConfig is the yaml shape accepted by -genesis. Treasury is
// the native token's issuer; everything else mirrors account.Genesis's
// parameters directly.
type genesisConfig struct {
	Treasury  string `yaml:"treasury"`
	Metadata  string `yaml:"metadata"`
	MaxSupply uint64 `yaml:"max_supply"`
}

// devnetMaxSupply is the native token's cap when no genesis config
// names one: generous enough for local development, not a claim about
// any real deployment's supply.
const devnetMaxSupply = 1_000_000_000_000

// devnetGenesis is used when -genesis is unset: a single-account
// devnet with the all-zero Treasury address as issuer.
func devnetGenesis() genesisConfig {
	return genesisConfig{
		Treasury:  mesh.Treasury.String(),
		Metadata:  "Mesh|MESH|18",
		MaxSupply: devnetMaxSupply,
	}
}

func loadGenesisConfig(path string) (genesisConfig, error) {
	if path == "" {
		return devnetGenesis(), nil
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return genesisConfig{}, err
	}
	var cfg genesisConfig
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return genesisConfig{}, err
	}
	return cfg, nil
}

func (c genesisConfig) treasuryAddress() (mesh.Address, error) {
	return mesh.ParseAddress(c.Treasury)
}

func (c genesisConfig) maxSupplyBalance() mesh.Balance {
	return mesh.NewBalance(c.MaxSupply)
}

// parseBootstrapNodes splits a comma separated enode URL list, the
// shape the -bootstrap flag accepts.
func parseBootstrapNodes(s string) ([]*enode.Node, error) {
	if s == "" {
		return nil, nil
	}
	var nodes []*enode.Node
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := enode.ParseV4(part)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}
