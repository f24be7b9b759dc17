// Package identity owns the wallet's keypair: one secp256k1 identity, created
// on first run, persisted under the single "account" record, never rotated.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"persona/internal/cryptobox"
)

// Identity is the signing authority behind every registry write and every
// encryption gateway call.
type Identity struct {
	Addr       string `json:"address"`
	PublicKey  string `json:"publicKey"`
	PrivateKey string `json:"privateKey"`
}

// Generate creates a fresh identity.
func Generate() (Identity, error) {
	priv, err := cryptobox.GeneratePrivateKey()
	if err != nil {
		return Identity{}, fmt.Errorf("generate identity: %w", err)
	}
	pub, err := cryptobox.DerivePublicKey(priv)
	if err != nil {
		return Identity{}, fmt.Errorf("generate identity: %w", err)
	}
	addr, err := cryptobox.DeriveAddress(priv)
	if err != nil {
		return Identity{}, fmt.Errorf("generate identity: %w", err)
	}
	return Identity{Addr: addr, PublicKey: pub, PrivateKey: priv}, nil
}

// Address implements registry.Signer.
func (i Identity) Address() string { return i.Addr }

// SignDigest implements registry.Signer.
func (i Identity) SignDigest(digest []byte) ([]byte, error) {
	return cryptobox.SignDigest(i.PrivateKey, digest)
}

// Marshal serializes the identity the way the account record stores it.
func (i Identity) Marshal() ([]byte, error) {
	return json.Marshal(i)
}

// Unmarshal parses a stored account record.
func Unmarshal(raw []byte) (Identity, error) {
	var id Identity
	if err := json.Unmarshal(raw, &id); err != nil {
		return Identity{}, fmt.Errorf("parse account record: %w", err)
	}
	return id, nil
}

// Ensure loads the stored identity, generating and persisting a fresh one on
// first run. The second return reports whether a new identity was created.
func Ensure(ctx context.Context, store Store) (Identity, bool, error) {
	id, err := store.Load(ctx)
	if err == nil {
		return id, false, nil
	}
	if !errors.Is(err, ErrNoAccount) {
		return Identity{}, false, err
	}

	id, err = Generate()
	if err != nil {
		return Identity{}, false, err
	}
	if err := store.Save(ctx, id); err != nil {
		return Identity{}, false, fmt.Errorf("persist new identity: %w", err)
	}
	return id, true, nil
}
