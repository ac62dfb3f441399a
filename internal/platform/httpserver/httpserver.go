package httpserver

import (
	"net/http"
	"time"
)

// New builds the API server. The write timeout sits above the 60s router
// timeout so batch merge runs are cut off by the handler deadline, not by
// the connection.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
