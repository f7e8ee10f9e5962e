// Command scriptstashd runs the script store daemon.
//
// Configuration comes from the environment: API_SECRET (shared upload
// secret), SCRIPT_TTL_SECONDS (expiry for new scripts, default 18000),
// FILE_UPLOAD_MAX_BYTES (upload size cap). The backend is selected by
// REDIS_ADDR (with optional REDIS_PASSWORD and REDIS_DB) or SQLITE_PATH;
// with neither set, scripts live in process memory.
package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/tapwave/scriptstash"
	"github.com/tapwave/scriptstash/store/memstore"
	"github.com/tapwave/scriptstash/store/redisstore"
	"github.com/tapwave/scriptstash/store/sqlitestore"
)

func main() {
	httpAddress := flag.String("http.addr", ":8080", "HTTP listen address")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer cancel()

	store, err := openStore(ctx, log)
	if err != nil {
		log.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	if closer, ok := store.(io.Closer); ok {
		defer closer.Close()
	}

	server, err := scriptstash.NewServer(store, optionsFromEnv(log)...)
	if err != nil {
		log.Error("failed to initialize server", "error", err)
		os.Exit(1)
	}

	if err := server.StartAndServe(ctx, *httpAddress); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

// optionsFromEnv maps the recognized environment variables to server
// options. Unset or non-numeric values are skipped, so the server falls
// back to its defaults.
func optionsFromEnv(log *slog.Logger) []scriptstash.Option {
	opts := []scriptstash.Option{
		scriptstash.WithSecret(os.Getenv("API_SECRET")),
		scriptstash.WithLogger(log),
		scriptstash.WithMetrics(),
	}

	if ttl, err := strconv.ParseInt(os.Getenv("SCRIPT_TTL_SECONDS"), 10, 64); err == nil {
		opts = append(opts, scriptstash.WithDefaultTTL(ttl))
	}
	if limit, err := strconv.ParseInt(os.Getenv("FILE_UPLOAD_MAX_BYTES"), 10, 64); err == nil {
		opts = append(opts, scriptstash.WithMaxUploadBytes(limit))
	}
	return opts
}

func openStore(ctx context.Context, log *slog.Logger) (scriptstash.Store, error) {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		db, _ := strconv.Atoi(os.Getenv("REDIS_DB"))

		log.Info("using the redis store", "addr", addr, "db", db)
		return redisstore.Open(ctx, &redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       db,
		})
	}

	if path := os.Getenv("SQLITE_PATH"); path != "" {
		log.Info("using the sqlite store", "path", path)
		return sqlitestore.Open(path)
	}

	log.Warn("no backend configured, scripts will not survive a restart")
	return memstore.New(), nil
}
