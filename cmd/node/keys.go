package main

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mattn/go-tty"
)

// loadOrGenerateP2PKey loads the devp2p transport identity from file,
// generating and persisting one on first run. Mirrors the pattern
// every long-running devp2p node in this ecosystem uses for its node
// key.
func loadOrGenerateP2PKey(file string) (*ecdsa.PrivateKey, error) {
	if key, err := crypto.LoadECDSA(file); err == nil {
		return key, nil
	} else if !os.IsNotExist(err) {
		return nil, err
	}
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	if err := crypto.SaveECDSA(file, key); err != nil {
		return nil, err
	}
	return key, nil
}

// loadOrGenerateSigningKey loads this node's Ed25519 signing key
// (heartbeat/root attestation identity) from file as a hex-encoded
// seed, generating and persisting one on first run.
func loadOrGenerateSigningKey(file string) (ed25519.PrivateKey, error) {
	if buf, err := os.ReadFile(file); err == nil {
		seed, err := hex.DecodeString(string(buf))
		if err != nil {
			return nil, err
		}
		return ed25519.NewKeyFromSeed(seed), nil
	} else if !os.IsNotExist(err) {
		return nil, err
	}
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	seed := priv.Seed()
	if err := os.MkdirAll(filepath.Dir(file), 0700); err != nil {
		return nil, err
	}
	if err := os.WriteFile(file, []byte(hex.EncodeToString(seed)), 0600); err != nil {
		return nil, err
	}
	return priv, nil
}

// readSigningKeyFromTTY reads a hex-encoded Ed25519 seed directly from
// the controlling terminal, with input hidden, so a node operator can
// run with --master-key-stdin instead of ever writing the key to
// data-dir. Ctrl-C aborts entry.
func readSigningKeyFromTTY() (ed25519.PrivateKey, error) {
	t, err := tty.Open()
	if err != nil {
		return nil, err
	}
	defer t.Close()

	fmt.Fprint(os.Stderr, "Enter signing key seed (hex, input hidden): ")
	var line []rune
	for {
		r, err := t.ReadRune()
		if err != nil {
			return nil, err
		}
		switch r {
		case '\r', '\n':
			fmt.Fprintln(os.Stderr)
			seed, err := hex.DecodeString(string(line))
			if err != nil {
				return nil, err
			}
			if len(seed) != ed25519.SeedSize {
				return nil, fmt.Errorf("signing key seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
			}
			return ed25519.NewKeyFromSeed(seed), nil
		case 3: // Ctrl-C
			fmt.Fprintln(os.Stderr)
			return nil, errors.New("key entry cancelled")
		case 127, 8: // backspace/delete
			if len(line) > 0 {
				line = line[:len(line)-1]
			}
		default:
			line = append(line, r)
		}
	}
}
