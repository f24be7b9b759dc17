// store-gateway is a mock content-addressed store for local wallet runs. It
// speaks the same add/fetch surface the daemon's store client expects:
// POST /add?name=... returns {"hash": ...}, GET /{hash} serves the bytes back.
// Content addresses are derived from the bytes, so identical uploads land on
// identical addresses, matching real store behavior.
package main

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
)

type server struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func (s *server) handleAdd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	data, err := io.ReadAll(r.Body)
	if err != nil || len(data) == 0 {
		writeJSON(w, map[string]string{"error": "empty body"})
		return
	}

	sum := sha256.Sum256(data)
	hash := "Qm" + hex.EncodeToString(sum[:16])

	s.mu.Lock()
	s.objects[hash] = data
	s.mu.Unlock()

	log.Printf("add name=%q hash=%s size=%d", r.URL.Query().Get("name"), hash, len(data))
	writeJSON(w, map[string]string{"hash": hash})
}

func (s *server) handleFetch(w http.ResponseWriter, r *http.Request) {
	hash := strings.TrimPrefix(r.URL.Path, "/")
	hash = strings.TrimPrefix(hash, "ipfs/")
	s.mu.RLock()
	data, ok := s.objects[hash]
	s.mu.RUnlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func main() {
	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":5001"
	}
	s := &server{objects: make(map[string][]byte)}

	mux := http.NewServeMux()
	mux.HandleFunc("/add", s.handleAdd)
	mux.HandleFunc("/api/v0/add", s.handleAdd)
	mux.HandleFunc("/", s.handleFetch)

	log.Printf("mock store gateway listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, mux))
}
