// Package relay delivers encrypted disclosure replies to the requester's
// pickup location: a POST of the ciphertext to <base>/<target>.
package relay

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrDelivery reports a failed relay post. Terminal for the disclosure
// attempt; the user retriggers manually if they want to retry.
var ErrDelivery = errors.New("delivery failed")

// Receipt is the relay's acknowledgement of a delivered reply.
type Receipt struct {
	Hash string `json:"hash"`
}

// Client posts ciphertexts to the delivery relay.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type deliverRequest struct {
	Data string `json:"data"` // base64 ciphertext
}

type deliverResponse struct {
	Hash  string `json:"hash"`
	Error string `json:"error,omitempty"`
}

// Deliver posts ciphertext to the target location named by the disclosure
// request.
func (c *Client) Deliver(ctx context.Context, target string, ciphertext []byte) (Receipt, error) {
	body, err := json.Marshal(deliverRequest{Data: base64.StdEncoding.EncodeToString(ciphertext)})
	if err != nil {
		return Receipt{}, fmt.Errorf("encode delivery: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+target, bytes.NewReader(body))
	if err != nil {
		return Receipt{}, fmt.Errorf("build delivery request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Receipt{}, fmt.Errorf("deliver to %s: %v: %w", target, err, ErrDelivery)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Receipt{}, fmt.Errorf("deliver to %s: status %d: %w", target, resp.StatusCode, ErrDelivery)
	}

	var dr deliverResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return Receipt{}, fmt.Errorf("deliver to %s: decode response: %w", target, ErrDelivery)
	}
	if dr.Error != "" {
		return Receipt{}, fmt.Errorf("deliver to %s: %s: %w", target, dr.Error, ErrDelivery)
	}
	if dr.Hash == "" {
		dr.Hash = target
	}
	return Receipt{Hash: dr.Hash}, nil
}
