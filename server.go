// Package scriptstash implements a content-addressed, time-limited store
// for device scripts over HTTP. Uploaded documents are canonicalized into a
// deterministic CSV encoding, keyed by the SHA-256 of that encoding, and
// kept in a TTL-backed key-value store until they expire.
package scriptstash

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

type Server struct {
	store   Store
	log     *slog.Logger
	metrics *metrics
	nextID  atomic.Int64

	settings settings
}

// NewServer returns a script server backed by the provided store,
// initialized with default parameters.
func NewServer(store Store, opts ...Option) (*Server, error) {
	if store == nil {
		return nil, errors.New("store must not be nil")
	}

	server := &Server{
		store:    store,
		log:      slog.Default(),
		settings: newSettings(),
	}

	for _, opt := range opts {
		opt(server)
	}

	if err := server.validate(); err != nil {
		return nil, err
	}
	return server, nil
}

// StartAndServe starts the script server, listens to the provided address
// and handles http requests.
//
// It's a blocking operation, that stops only when the context gets cancelled.
func (s *Server) StartAndServe(ctx context.Context, address string) error {
	exitErr := make(chan error, 1)
	server := &http.Server{
		Addr:              address,
		Handler:           s,
		ReadHeaderTimeout: s.settings.http.readHeaderTimeout,
		IdleTimeout:       s.settings.http.idleTimeout,
	}

	go func() {
		s.log.Info("serving the script store", "address", address)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			exitErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		ctx, cancel := context.WithTimeout(context.Background(), s.settings.http.shutdownTimeout)
		defer cancel()
		return server.Shutdown(ctx)

	case err := <-exitErr:
		return err
	}
}

// ServeHTTP implements the [http.Handler] interface, routing http requests
// to the appropriate handler. Every path outside the two script endpoints
// gets the standard not-found envelope.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/scripts" && r.Method == http.MethodPost:
		s.observe("handleUpload", s.handleUpload)(w, r)

	case strings.HasPrefix(r.URL.Path, "/scripts/") && r.Method == http.MethodGet:
		s.observe("handleFetch", s.handleFetch)(w, r)

	case r.URL.Path == "/metrics" && r.Method == http.MethodGet && s.metrics != nil:
		s.metrics.handler().ServeHTTP(w, r)

	default:
		s.writeError(w, ErrNotFound)
	}
}

// handleUpload handles the POST /scripts endpoint. Ingestion is idempotent:
// if the derived hash is already stored, the existing record is reported
// without a write, so at most one write per distinct hash reaches the
// backend. Two racing uploads of the same script may both write, which only
// re-sets the ttl on byte-identical content.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	id := s.nextID.Add(1)

	actions, perr := s.parseUpload(r)
	if perr != nil {
		s.writeError(w, perr)
		return
	}

	encoded := EncodeActions(actions)
	hash := DeriveHash(encoded)

	stored, ttl, err := s.store.Get(r.Context(), hash)
	if err != nil {
		s.log.Error("store lookup failed", "id", id, "hash", hash, "error", err)
		s.writeError(w, ErrInternal)
		return
	}

	// The stored bytes are authoritative: on a duplicate upload the size
	// and ttl describe the existing record, never the new submission.
	size := len(stored)
	if stored == nil {
		ttl = s.settings.defaultTTL
		if err := s.store.Set(r.Context(), hash, encoded, ttl); err != nil {
			s.log.Error("store write failed", "id", id, "hash", hash, "error", err)
			s.writeError(w, ErrInternal)
			return
		}
		size = len(encoded)
	}

	response := UploadResponse{
		Success:   true,
		Hash:      hash,
		Size:      size,
		ExpiresIn: ttl,
	}

	if err := writeJSON(w, http.StatusCreated, response); err != nil {
		s.log.Error("failure in POST /scripts", "id", id, "hash", hash, "error", err)
		return
	}
	s.log.Info("script ingested", "id", id, "hash", hash, "size", size, "expires_in", ttl)
}

// handleFetch handles the GET /scripts/{hash} endpoint.
func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	id := s.nextID.Add(1)

	hash, perr := parseFetch(r)
	if perr != nil {
		s.writeError(w, perr)
		return
	}

	data, _, err := s.store.Get(r.Context(), hash)
	if err != nil {
		s.log.Error("store lookup failed", "id", id, "hash", hash, "error", err)
		s.writeError(w, ErrInternal)
		return
	}

	if data == nil {
		s.writeError(w, ErrNotFound)
		return
	}

	if err := writeScript(w, hash, data); err != nil {
		s.log.Error("failure in GET /scripts/{hash}", "id", id, "hash", hash, "error", err)
	}
}

// writeError writes the error envelope, logging a failure to deliver it the
// same way the success paths do.
func (s *Server) writeError(w http.ResponseWriter, e *Error) {
	if err := e.Write(w); err != nil {
		s.log.Error("failed to write error response", "code", e.Code, "error", err)
	}
}

// observe wraps a handler with request telemetry when metrics are enabled.
func (s *Server) observe(operation string, next http.HandlerFunc) http.HandlerFunc {
	if s.metrics == nil {
		return next
	}

	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next(recorder, r)

		s.metrics.record(operation, r, recorder, time.Since(start))
	}
}
