package backend

import (
	"context"
	"slices"

	"pnljournal/internal/services"
)

// BackendType names the store the journal service runs on.
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
)

var backendTypes = []BackendType{MemoryBackend, SQLiteBackend}

func (bt BackendType) String() string { return string(bt) }

func (bt BackendType) IsValid() bool {
	return slices.Contains(backendTypes, bt)
}

// CleanupFunc releases whatever a backend opened.
type CleanupFunc func() error

// BackendResult is a ready journal service. Cleanup stops the snapshot
// janitor and closes the store and publisher; callers run it once on exit.
type BackendResult struct {
	Journal *services.JournalService
	Cleanup CleanupFunc
}

type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}
