package registry

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync"

	"persona/internal/cryptobox"
)

type claimID struct {
	owner string
	key   [32]byte
}

// MemoryLedger is an in-process ledger for tests and local development. Writes
// produce deterministic pseudo transaction hashes.
type MemoryLedger struct {
	mu     sync.RWMutex
	claims map[claimID][]byte
	nonce  uint64
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{claims: make(map[claimID][]byte)}
}

func (l *MemoryLedger) GetClaim(_ context.Context, owner, _ string, key [32]byte) ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	value, ok := l.claims[claimID{owner: owner, key: key}]
	if !ok {
		return make([]byte, 32), nil // zero sentinel
	}
	return append([]byte{}, value...), nil
}

func (l *MemoryLedger) SetClaim(_ context.Context, owner string, key [32]byte, value []byte, _ TxOptions, signer Signer) (string, error) {
	if signer == nil {
		return "", fmt.Errorf("set claim: signer required: %w", ErrChain)
	}
	digest := cryptobox.Keccak256([]byte(owner), key[:], value)
	if _, err := signer.SignDigest(digest); err != nil {
		return "", fmt.Errorf("set claim: sign: %w", ErrChain)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.claims[claimID{owner: owner, key: key}] = append([]byte{}, value...)
	l.nonce++

	var nonce [8]byte
	binary.BigEndian.PutUint64(nonce[:], l.nonce)
	return "0x" + hex.EncodeToString(cryptobox.Keccak256(digest, nonce[:])), nil
}
