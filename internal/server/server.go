package server

import (
	"context"
	"net/http"
	"time"
)

// Server wraps the HTTP server with its timeouts.
type Server struct {
	server *http.Server
}

// ListenAndServe blocks until the server stops. After Shutdown it returns
// http.ErrServerClosed.
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown stops accepting connections and waits for active requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// NewServer serves router on address. Reports read the whole survey, so the
// write timeout is configurable.
func NewServer(address string, readTimeout, writeTimeout time.Duration, router *ApiV1Router) *Server {
	s := Server{&http.Server{
		Addr:           address,
		Handler:        router.Mux(),
		ReadTimeout:    readTimeout,
		WriteTimeout:   writeTimeout,
		MaxHeaderBytes: 1024 * 10,
	}}

	return &s
}
