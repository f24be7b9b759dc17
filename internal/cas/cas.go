// Package cas adapts the content-addressable store's HTTP gateway. Publish and
// Fetch are single-shot calls; retry policy belongs to the caller and today
// there is none, failures surface to the user.
package cas

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"persona/pkg/platform/circuit"
	"persona/pkg/platform/sentinel"
)

// Address is a content address returned by the store for published bytes.
// The empty value is the "no data" sentinel and must never reach the network.
type Address string

// IsZero reports whether the address is the no-data sentinel.
func (a Address) IsZero() bool { return a == "" }

// Client talks to the store gateway's add and fetch endpoints. A breaker
// fails fast once the gateway has been down for a few calls in a row, so a
// dead store does not cost the user a 30s timeout per attempt.
type Client struct {
	addURL   string
	fetchURL string
	http     *http.Client
	breaker  *circuit.Breaker
}

// New builds a store client. addURL accepts published bytes, fetchURL serves
// them back by content address.
func New(addURL, fetchURL string) *Client {
	return &Client{
		addURL:   addURL,
		fetchURL: fetchURL,
		http:     &http.Client{Timeout: 30 * time.Second},
		breaker:  circuit.New("store-gateway", circuit.WithFailureThreshold(3)),
	}
}

type addResponse struct {
	Hash  string `json:"hash"`
	Error string `json:"error,omitempty"`
}

// Publish uploads data under the given name and returns its content address.
func (c *Client) Publish(ctx context.Context, name string, data []byte) (Address, error) {
	if c.breaker.IsOpen() {
		return "", fmt.Errorf("publish: store gateway circuit open: %w", sentinel.ErrUnavailable)
	}

	u := c.addURL + "?name=" + url.QueryEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("build publish request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		c.recordFailure()
		return "", transportErr("publish", err)
	}
	defer resp.Body.Close()
	c.breaker.RecordSuccess()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("publish: status %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}

	var ar addResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return "", fmt.Errorf("publish: decode response: %w", sentinel.ErrUnavailable)
	}
	if ar.Error != "" || ar.Hash == "" {
		return "", fmt.Errorf("publish: %s: %w", ar.Error, sentinel.ErrUnavailable)
	}
	return Address(ar.Hash), nil
}

// Fetch retrieves the bytes stored at addr. The sentinel address
// short-circuits to ErrNoData without touching the network.
func (c *Client) Fetch(ctx context.Context, addr Address) ([]byte, error) {
	if addr.IsZero() {
		return nil, sentinel.ErrNoData
	}
	if c.breaker.IsOpen() {
		return nil, fmt.Errorf("fetch: store gateway circuit open: %w", sentinel.ErrUnavailable)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.fetchURL+"/"+string(addr), nil)
	if err != nil {
		return nil, fmt.Errorf("build fetch request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.recordFailure()
		return nil, transportErr("fetch", err)
	}
	defer resp.Body.Close()
	c.breaker.RecordSuccess()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("fetch %s: %w", addr, sentinel.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetch %s: status %d: %w", addr, resp.StatusCode, sentinel.ErrUnavailable)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportErr("fetch", err)
	}
	return body, nil
}

func (c *Client) recordFailure() {
	c.breaker.RecordFailure()
}

func transportErr(op string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%s: %v: %w", op, err, sentinel.ErrTimeout)
	}
	return fmt.Errorf("%s: %v: %w", op, err, sentinel.ErrUnavailable)
}
