package cas

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"persona/pkg/platform/sentinel"
)

func TestPublishReturnsContentAddress(t *testing.T) {
	var gotName string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		gotName = r.URL.Query().Get("name")
		w.Write([]byte(`{"hash":"QmTestHash"}`))
	}))
	defer srv.Close()

	client := New(srv.URL, srv.URL)
	addr, err := client.Publish(context.Background(), "pub-pub", []byte("ciphertext"))
	require.NoError(t, err)
	assert.Equal(t, Address("QmTestHash"), addr)
	assert.Equal(t, "pub-pub", gotName)
}

func TestPublishGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"store full"}`))
	}))
	defer srv.Close()

	client := New(srv.URL, srv.URL)
	_, err := client.Publish(context.Background(), "x", []byte("data"))
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
}

func TestFetchRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/QmKnown", r.URL.Path)
		w.Write([]byte("stored bytes"))
	}))
	defer srv.Close()

	client := New(srv.URL, srv.URL)
	data, err := client.Fetch(context.Background(), "QmKnown")
	require.NoError(t, err)
	assert.Equal(t, []byte("stored bytes"), data)
}

func TestFetchNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := New(srv.URL, srv.URL)
	_, err := client.Fetch(context.Background(), "QmMissing")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestFetchSentinelAddressSkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	client := New(srv.URL, srv.URL)
	_, err := client.Fetch(context.Background(), "")
	assert.ErrorIs(t, err, sentinel.ErrNoData)
	assert.Zero(t, calls.Load(), "sentinel address must not reach the network")
}

func TestFetchUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	client := New(srv.URL, srv.URL)
	_, err := client.Fetch(context.Background(), "QmAny")
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
}

func TestBreakerOpensAfterRepeatedTransportFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	client := New(srv.URL, srv.URL)
	for i := 0; i < 3; i++ {
		_, err := client.Fetch(context.Background(), "QmAny")
		require.ErrorIs(t, err, sentinel.ErrUnavailable)
	}

	_, err := client.Fetch(context.Background(), "QmAny")
	require.ErrorIs(t, err, sentinel.ErrUnavailable)
	assert.Contains(t, err.Error(), "circuit open", "further calls fail fast without dialing")

	_, err = client.Publish(context.Background(), "x", []byte("data"))
	assert.Contains(t, err.Error(), "circuit open")
}
