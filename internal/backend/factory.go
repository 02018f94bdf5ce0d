package backend

import (
	"context"
	"fmt"
	"time"

	"pnljournal/internal/amqp"
	"pnljournal/internal/cache"
	"pnljournal/internal/core"
	applog "pnljournal/internal/log"
	"pnljournal/internal/services"
	"pnljournal/internal/storage"
	"pnljournal/internal/store"
	"pnljournal/internal/store/memory"
)

// cleanupInterval is how often expired snapshots are evicted.
const cleanupInterval = time.Minute

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentStorage),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	sqliteRepo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	// Initialize AMQP client (optional)
	var publisher services.Publisher
	if config.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without sync", "error", err)
		} else {
			publisher = amqpClient
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	result := f.wire(sqliteRepo, publisher, config)

	f.logger.InfoContext(ctx, "Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", publisher != nil)

	return result, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	st, err := memory.NewFromFile(config.SeedFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize memory backend: %w", err)
	}

	f.logger.Info("Initialized memory backend", "seed_file", config.SeedFile)

	return f.wire(st, nil, config), nil
}

// wire builds the journal service with its snapshot cache. A zero cache size
// or TTL disables caching.
func (f *DefaultFactory) wire(st store.Journal, publisher services.Publisher, config Config) *BackendResult {
	if config.CacheSize == 0 || config.CacheTTL <= 0 {
		journal := services.NewJournalService(st, publisher, nil)
		return &BackendResult{Journal: journal, Cleanup: journal.Close}
	}

	snapshots := cache.NewLRUCache[[]core.Entry](config.CacheSize, config.CacheTTL)
	manager := cache.NewManager()
	manager.Register(snapshots)
	manager.StartCleanup(cleanupInterval)

	journal := services.NewJournalService(st, publisher, snapshots)

	return &BackendResult{
		Journal: journal,
		Cleanup: func() error {
			manager.Stop()
			return journal.Close()
		},
	}
}
