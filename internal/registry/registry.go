// Package registry anchors and reads the persona pointer: a single mutable
// binding from (owner address, claim key) to a content address on the shared
// ledger. Reads are free; writes are fee-bearing signed transactions and must
// only ever be submitted after an explicit user approval upstream.
package registry

import (
	"context"
	"errors"
	"fmt"

	"persona/internal/cas"
)

// ClaimKeyIdentityProfile distinguishes the persona pointer from other claim
// kinds an owner may anchor.
const ClaimKeyIdentityProfile = "identity_profile"

var (
	// ErrChain reports a submission or mining failure. Terminal for the
	// attempt; never retried automatically.
	ErrChain = errors.New("chain error")

	// ErrRejected marks a write the signing provider refused to submit.
	// A normal terminal outcome, not a chain failure.
	ErrRejected = errors.New("transaction rejected")
)

// TxOptions carries the fee parameters for a claim write.
type TxOptions struct {
	GasLimit uint64
	GasPrice uint64
	Value    uint64
}

// Receipt is returned by a successful pointer write. Only the hash is kept,
// and only for user-facing confirmation.
type Receipt struct {
	TxHash string
}

// Signer provides the identity material behind a claim write.
type Signer interface {
	Address() string
	SignDigest(digest []byte) ([]byte, error)
}

// Ledger is the on-chain claim interface. GetClaim returns the raw claim
// value, all-zero or empty when never written. SetClaim submits a signed,
// fee-bearing transaction and returns its hash.
type Ledger interface {
	GetClaim(ctx context.Context, owner, caller string, key [32]byte) ([]byte, error)
	SetClaim(ctx context.Context, owner string, key [32]byte, value []byte, opts TxOptions, signer Signer) (string, error)
}

// Client reads and writes the persona pointer for one claim key.
type Client struct {
	ledger Ledger
	cache  *PointerCache // nil when redis is not configured
	opts   TxOptions
	key    [32]byte
}

// New builds a registry client for the identity_profile claim.
func New(ledger Ledger, cache *PointerCache, opts TxOptions) *Client {
	return &Client{
		ledger: ledger,
		cache:  cache,
		opts:   opts,
		key:    ClaimKey(ClaimKeyIdentityProfile),
	}
}

// ClaimKey right-pads a claim name to the 32-byte key the ledger expects.
func ClaimKey(name string) [32]byte {
	var key [32]byte
	copy(key[:], name)
	return key
}

// IsSentinel reports whether a raw claim value is the "never written" marker.
func IsSentinel(value []byte) bool {
	for _, b := range value {
		if b != 0 {
			return false
		}
	}
	return true
}

// ReadPointer resolves the owner's current persona pointer. The zero Address
// means no pointer has ever been anchored; callers must check before fetching.
func (c *Client) ReadPointer(ctx context.Context, owner string) (cas.Address, error) {
	if c.cache != nil {
		if addr, ok := c.cache.Get(ctx, owner); ok {
			return addr, nil
		}
	}

	value, err := c.ledger.GetClaim(ctx, owner, owner, c.key)
	if err != nil {
		return "", fmt.Errorf("read pointer: %w", err)
	}
	if IsSentinel(value) {
		return "", nil
	}

	addr := cas.Address(trimZero(value))
	if c.cache != nil {
		c.cache.Set(ctx, owner, addr)
	}
	return addr, nil
}

// WritePointer anchors addr as the owner's persona pointer. Confirmation
// gating happens upstream; by the time this runs the user has approved the
// spend for this exact address.
func (c *Client) WritePointer(ctx context.Context, owner string, addr cas.Address, signer Signer) (Receipt, error) {
	if addr.IsZero() {
		return Receipt{}, fmt.Errorf("write pointer: refusing to anchor the sentinel address")
	}

	txHash, err := c.ledger.SetClaim(ctx, owner, c.key, []byte(addr), c.opts, signer)
	if err != nil {
		return Receipt{}, fmt.Errorf("write pointer: %w", err)
	}

	if c.cache != nil {
		c.cache.Set(ctx, owner, addr)
	}
	return Receipt{TxHash: txHash}, nil
}

// trimZero strips trailing zero padding from a fixed-width claim value.
func trimZero(value []byte) string {
	end := len(value)
	for end > 0 && value[end-1] == 0 {
		end--
	}
	return string(value[:end])
}
