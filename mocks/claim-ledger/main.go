// claim-ledger is a mock ledger gateway for local wallet runs. It stores
// claims in memory, keyed by (owner, claim key), and mints deterministic fake
// transaction hashes. Reads for never-written claims return an all-zero value,
// matching an on-chain registry's default bytes.
//
// Surface:
//
//	GET  /claims/{owner}/{keyhex}?caller=...  -> {"value": hex}
//	POST /claims                              -> {"txHash": ...}
package main

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
)

type setClaimRequest struct {
	Owner     string `json:"owner"`
	Key       string `json:"key"`
	Value     string `json:"value"`
	GasLimit  uint64 `json:"gasLimit"`
	GasPrice  uint64 `json:"gasPrice"`
	From      string `json:"from"`
	Signature string `json:"signature"`
}

type server struct {
	mu     sync.RWMutex
	claims map[string]string // owner+"/"+keyhex -> value hex
	nonce  uint64
}

func (s *server) handleClaims(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleGet(w, r)
	case http.MethodPost:
		s.handleSet(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *server) handleGet(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/claims/"), "/")
	if len(parts) != 2 {
		http.NotFound(w, r)
		return
	}
	owner, keyHex := parts[0], parts[1]

	s.mu.RLock()
	value, ok := s.claims[owner+"/"+keyHex]
	s.mu.RUnlock()
	if !ok {
		// Never-written claims read as 32 zero bytes.
		value = strings.Repeat("00", 32)
	}

	log.Printf("getClaim owner=%s caller=%s", owner, r.URL.Query().Get("caller"))
	writeJSON(w, map[string]string{"value": value})
}

func (s *server) handleSet(w http.ResponseWriter, r *http.Request) {
	var req setClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, map[string]string{"error": "malformed request"})
		return
	}
	if req.Owner == "" || req.Key == "" || req.Signature == "" {
		writeJSON(w, map[string]string{"error": "missing owner, key, or signature"})
		return
	}
	if req.GasLimit == 0 {
		writeJSON(w, map[string]string{"error": "transaction rejected: no gas"})
		return
	}

	s.mu.Lock()
	s.claims[req.Owner+"/"+req.Key] = req.Value
	s.nonce++
	nonce := s.nonce
	s.mu.Unlock()

	sum := sha256.Sum256([]byte(req.Owner + req.Key + req.Value + hex.EncodeToString([]byte{byte(nonce)})))
	txHash := "0x" + hex.EncodeToString(sum[:])

	log.Printf("setClaim owner=%s from=%s tx=%s", req.Owner, req.From, txHash)
	writeJSON(w, map[string]string{"txHash": txHash})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func main() {
	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":8545"
	}
	s := &server{claims: make(map[string]string)}

	mux := http.NewServeMux()
	mux.HandleFunc("/claims", s.handleClaims)
	mux.HandleFunc("/claims/", s.handleClaims)

	log.Printf("mock claim ledger listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, mux))
}
