// Package main is the entry point for the CarKeeper API server.
//
// The main package stays minimal — its job is to:
// 1. Read configuration (flags, falling back to CARKEEPER_* env vars)
// 2. Create dependencies (logger, database path)
// 3. Start the application
//
// All actual logic lives in imported packages (internal/server,
// internal/handler, etc.). A second binary, cmd/carkeeper, is the client
// that talks to this server.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/sakif/carkeeper/internal/server"
)

const version = "1.0.0"

func main() {
	fs := ff.NewFlagSet("carkeeper-server")
	var (
		port        = fs.IntLong("port", 8080, "HTTP server port")
		dbPath      = fs.StringLong("db", "data/carkeeper.db", "SQLite database file path")
		jwtSecret   = fs.StringLong("jwt-secret", "", "secret for signing auth tokens (required)")
		debug       = fs.BoolLong("debug", "enable debug logging")
		showVersion = fs.BoolLong("version", "print version and exit")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("CARKEEPER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))

	// The token secret has no safe default. Generate one with:
	//   openssl rand -hex 32
	if *jwtSecret == "" {
		logger.Error("jwt secret is required (--jwt-secret or CARKEEPER_JWT_SECRET)")
		os.Exit(1)
	}

	if err := os.MkdirAll(filepath.Dir(*dbPath), 0o755); err != nil {
		logger.Error("failed to create database directory",
			slog.String("dir", filepath.Dir(*dbPath)),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	srv, err := server.New(server.Config{
		Port:      *port,
		DBPath:    *dbPath,
		JWTSecret: *jwtSecret,
		Version:   version,
	}, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer srv.Close()

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM).
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
