package httpserver

import (
	"net/http"
	"time"
)

// New builds the wallet daemon's HTTP server. The read-header timeout bounds
// slow clients; request-level timeouts live in the router middleware.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
