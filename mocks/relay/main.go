// relay is a mock disclosure relay for local wallet runs. Wallets POST
// base64-encoded ciphertexts to /{target}; requesting apps poll GET /{target}
// to pick their reply up. Deliveries are held in memory and consumed on read.
package main

import (
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
)

type deliverRequest struct {
	Data string `json:"data"`
}

type server struct {
	mu       sync.Mutex
	mailbox  map[string][]byte
	delivers int
}

func (s *server) handle(w http.ResponseWriter, r *http.Request) {
	target := strings.Trim(r.URL.Path, "/")
	if target == "" {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodPost:
		s.handleDeliver(w, r, target)
	case http.MethodGet:
		s.handlePickup(w, r, target)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *server) handleDeliver(w http.ResponseWriter, r *http.Request, target string) {
	var req deliverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, map[string]string{"error": "malformed request"})
		return
	}
	ciphertext, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil || len(ciphertext) == 0 {
		writeJSON(w, map[string]string{"error": "invalid payload encoding"})
		return
	}

	s.mu.Lock()
	s.mailbox[target] = ciphertext
	s.delivers++
	n := s.delivers
	s.mu.Unlock()

	log.Printf("delivery #%d target=%s size=%d", n, target, len(ciphertext))
	writeJSON(w, map[string]string{"hash": target})
}

func (s *server) handlePickup(w http.ResponseWriter, r *http.Request, target string) {
	s.mu.Lock()
	ciphertext, ok := s.mailbox[target]
	delete(s.mailbox, target)
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(ciphertext)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func main() {
	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":9090"
	}
	s := &server{mailbox: make(map[string][]byte)}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)

	log.Printf("mock relay listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, mux))
}
