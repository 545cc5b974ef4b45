package db

import (
	"fmt"
	"strings"

	"convbench/internal/benchmark"
)

// Paths used when no connection string is configured.
const (
	DefaultFilePath   = ".convbench/history.json"
	DefaultSQLitePath = ".convbench/history.db"
)

// StoreConfig holds configuration for the storage backend
type StoreConfig struct {
	Type             string // "file", "sqlite" or "postgres"
	ConnectionString string // File path for file and SQLite stores, DSN for Postgres
}

type fileStore struct {
	*benchmark.FileStore
}

func (fileStore) Close() error { return nil }

// NewStore creates a new Store instance based on the provided configuration
func NewStore(config StoreConfig) (Store, error) {
	switch strings.ToLower(config.Type) {
	case "postgres", "postgresql":
		if config.ConnectionString == "" {
			return nil, fmt.Errorf("postgres connection string is required")
		}
		return NewPostgresStore(config.ConnectionString)
	case "sqlite", "sqlite3":
		if config.ConnectionString == "" {
			config.ConnectionString = DefaultSQLitePath
		}
		return NewSQLiteStore(config.ConnectionString)
	case "", "file", "json":
		if config.ConnectionString == "" {
			config.ConnectionString = DefaultFilePath
		}
		fs, err := benchmark.NewFileStore(config.ConnectionString)
		if err != nil {
			return nil, err
		}
		return fileStore{fs}, nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", config.Type)
	}
}
