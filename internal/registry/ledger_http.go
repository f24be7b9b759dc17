package registry

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"persona/internal/cryptobox"
)

// HTTPLedger talks to a ledger gateway exposing the claim registry over JSON.
// Reads are a plain GET; writes carry an ECDSA signature over
// keccak256(owner || key || value) produced by the caller's key.
type HTTPLedger struct {
	baseURL string
	http    *http.Client
}

func NewHTTPLedger(baseURL string) *HTTPLedger {
	return &HTTPLedger{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type getClaimResponse struct {
	Value string `json:"value"` // hex
	Error string `json:"error,omitempty"`
}

type setClaimRequest struct {
	Owner     string `json:"owner"`
	Key       string `json:"key"`   // hex, 32 bytes
	Value     string `json:"value"` // hex
	GasLimit  uint64 `json:"gasLimit"`
	GasPrice  uint64 `json:"gasPrice"`
	TxValue   uint64 `json:"value_wei"`
	From      string `json:"from"`
	Signature string `json:"signature"` // hex, DER
}

type setClaimResponse struct {
	TxHash string `json:"txHash"`
	Error  string `json:"error,omitempty"`
}

func (l *HTTPLedger) GetClaim(ctx context.Context, owner, caller string, key [32]byte) ([]byte, error) {
	u := fmt.Sprintf("%s/claims/%s/%s?caller=%s", l.baseURL, owner, hex.EncodeToString(key[:]), caller)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build get claim request: %w", err)
	}

	resp, err := l.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get claim: %v: %w", err, ErrChain)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get claim: status %d: %w", resp.StatusCode, ErrChain)
	}

	var gr getClaimResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return nil, fmt.Errorf("get claim: decode: %w", ErrChain)
	}
	if gr.Error != "" {
		return nil, fmt.Errorf("get claim: %s: %w", gr.Error, ErrChain)
	}

	value, err := hex.DecodeString(gr.Value)
	if err != nil {
		return nil, fmt.Errorf("get claim: invalid value encoding: %w", ErrChain)
	}
	return value, nil
}

func (l *HTTPLedger) SetClaim(ctx context.Context, owner string, key [32]byte, value []byte, opts TxOptions, signer Signer) (string, error) {
	digest := cryptobox.Keccak256([]byte(owner), key[:], value)
	sig, err := signer.SignDigest(digest)
	if err != nil {
		return "", fmt.Errorf("set claim: sign: %w", ErrChain)
	}

	body, err := json.Marshal(setClaimRequest{
		Owner:     owner,
		Key:       hex.EncodeToString(key[:]),
		Value:     hex.EncodeToString(value),
		GasLimit:  opts.GasLimit,
		GasPrice:  opts.GasPrice,
		TxValue:   opts.Value,
		From:      signer.Address(),
		Signature: hex.EncodeToString(sig),
	})
	if err != nil {
		return "", fmt.Errorf("set claim: encode: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/claims", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build set claim request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("set claim: %v: %w", err, ErrChain)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		// The signing provider behind the gateway refused the transaction.
		return "", fmt.Errorf("set claim: %w", ErrRejected)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("set claim: status %d: %w", resp.StatusCode, ErrChain)
	}

	var sr setClaimResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", fmt.Errorf("set claim: decode: %w", ErrChain)
	}
	if sr.Error != "" || sr.TxHash == "" {
		return "", fmt.Errorf("set claim: %s: %w", sr.Error, ErrChain)
	}
	return sr.TxHash, nil
}
