package backend

import (
	"context"

	"projecttracker/internal/records"
)

type CleanupFunc func() error

// Backuper is implemented by backends that live in a single database file.
type Backuper interface {
	BackupTo(ctx context.Context, dest string) error
}

// BackendResult is an opened store plus what else the backend can do.
type BackendResult struct {
	Store records.Store
	// Backup is nil when the backend has no file to copy.
	Backup  Backuper
	Cleanup CleanupFunc
}

type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

type Config struct {
	Type         BackendType
	SQLiteDBPath string // sqlite only
}

// BackendType selects where records are kept.
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string { return string(bt) }

func (bt BackendType) IsValid() bool {
	return bt == SQLiteBackend || bt == MemoryBackend
}
