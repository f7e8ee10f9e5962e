package scriptstash

import (
	"errors"
	"log/slog"
	"time"
)

// Default values applied when the corresponding option is not set.
const (
	DefaultTTLSeconds     int64 = 18000 // 5 hours
	DefaultMaxUploadBytes int64 = 1 << 20
)

type Option func(*Server)

// WithSecret sets the shared secret that POST /scripts requests must carry
// in the X-API-SECRET header. Retrieval stays open so devices can download
// scripts without credentials.
//
// If not set, a warning will be logged and every upload will be rejected.
func WithSecret(secret string) Option {
	return func(s *Server) { s.settings.secret = secret }
}

// WithDefaultTTL sets the time-to-live in seconds applied to newly stored
// scripts. Must be positive.
func WithDefaultTTL(seconds int64) Option {
	return func(s *Server) { s.settings.defaultTTL = seconds }
}

// WithMaxUploadBytes sets the maximum accepted size in bytes of the
// uploaded file. Must be positive.
func WithMaxUploadBytes(limit int64) Option {
	return func(s *Server) { s.settings.maxUploadBytes = limit }
}

// WithLogger sets the structured logger (*slog.Logger) used by the server
// for all logging operations. If not set, a default logger will be used.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithMetrics enables request telemetry and exposes it on GET /metrics in
// the Prometheus text format.
func WithMetrics() Option {
	return func(s *Server) { s.metrics = newMetrics() }
}

// WithReadHeaderTimeout sets the maximum duration for reading the headers of an HTTP request.
// It's used only in the http server used by [Server.StartAndServe]. Must be >= 1s.
func WithReadHeaderTimeout(d time.Duration) Option {
	return func(s *Server) { s.settings.http.readHeaderTimeout = d }
}

// WithIdleTimeout sets the maximum duration an HTTP connection can be idle before being closed.
// It's used only in the http server used by [Server.StartAndServe]. Must be >= 10s.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Server) { s.settings.http.idleTimeout = d }
}

// WithShutdownTimeout sets the maximum duration to wait for the HTTP server to gracefully shut down
// when the context is cancelled. It's used only in the http server used by [Server.StartAndServe].
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) { s.settings.http.shutdownTimeout = d }
}

// settings holds the configurable parameters for the server.
type settings struct {
	secret         string
	defaultTTL     int64
	maxUploadBytes int64
	http           httpSettings
}

func newSettings() settings {
	return settings{
		defaultTTL:     DefaultTTLSeconds,
		maxUploadBytes: DefaultMaxUploadBytes,
		http:           newHTTPSettings(),
	}
}

type httpSettings struct {
	// settings for the default HTTP server, which is used when calling [Server.StartAndServe].
	readHeaderTimeout time.Duration
	idleTimeout       time.Duration
	shutdownTimeout   time.Duration
}

func newHTTPSettings() httpSettings {
	return httpSettings{
		readHeaderTimeout: 5 * time.Second,
		idleTimeout:       1 * time.Minute,
		shutdownTimeout:   5 * time.Second,
	}
}

func (s *Server) validate() error {
	if s.settings.secret == "" {
		s.log.Warn("API secret is not set. This means every upload will be rejected as unauthorized")
	}

	if s.settings.defaultTTL <= 0 {
		return errors.New("default ttl must be a positive number of seconds")
	}
	if s.settings.maxUploadBytes <= 0 {
		return errors.New("max upload bytes must be positive")
	}

	// http
	if s.settings.http.readHeaderTimeout < 1*time.Second {
		return errors.New("http read header timeout must be greater than 1s to function reliably")
	}
	if s.settings.http.idleTimeout < 10*time.Second {
		return errors.New("http idle timeout must be greater than 10s to function reliably")
	}
	if s.settings.http.shutdownTimeout < 1*time.Second {
		return errors.New("http shutdown timeout should be greater than 1s to avoid abrupt disconnections")
	}
	return nil
}
