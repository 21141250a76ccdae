// Package backend selects and constructs the transaction gateway
// implementation the server runs against.
package backend

import (
	"fmt"
	"log/slog"

	"tally/internal/gateway"
	"tally/internal/memory"
	"tally/internal/storage"
)

// Type names a gateway implementation.
type Type string

const (
	SQLiteBackend Type = "sqlite"
	MemoryBackend Type = "memory"
)

// String implements fmt.Stringer
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is valid
func (t Type) IsValid() bool {
	switch t {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// Result contains the constructed gateway and optional cleanup.
type Result struct {
	Gateway gateway.Gateway
	Cleanup CleanupFunc
}

// Config holds what backend construction needs.
type Config struct {
	Type         Type
	SQLiteDBPath string
}

// Create builds the gateway for the configured backend type.
func Create(cfg Config, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.Type.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", cfg.Type)
	}

	switch cfg.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize SQLite repository: %w", err)
		}
		logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
		return &Result{Gateway: repo, Cleanup: repo.Close}, nil
	default:
		logger.Info("Initialized memory backend")
		return &Result{Gateway: memory.New(), Cleanup: func() error { return nil }}, nil
	}
}
