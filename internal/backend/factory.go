package backend

import (
	"context"
	"fmt"

	"pocketflow/internal/amqp"
	"pocketflow/internal/log"
	"pocketflow/internal/services"
	"pocketflow/internal/storage"
	"pocketflow/internal/store"
	"pocketflow/internal/store/memory"
	"pocketflow/internal/store/mongostore"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	s, closeStore, err := f.createStore(ctx, config)
	if err != nil {
		return nil, err
	}

	// AMQP is optional; the API keeps serving without events.
	var publisher services.EventPublisher
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			publisher = client
		}
	}

	svc := services.NewRecordService(s, publisher, f.logger)

	return &BackendResult{
		Service: svc,
		Cleanup: func(ctx context.Context) error {
			err := svc.Close()
			if closeStore != nil {
				if cerr := closeStore(ctx); cerr != nil && err == nil {
					err = cerr
				}
			}
			return err
		},
	}, nil
}

// createStore opens the selected store. The returned close func is set only
// for stores that are not io.Closers themselves.
func (f *DefaultFactory) createStore(ctx context.Context, config Config) (store.Store, CleanupFunc, error) {
	switch config.Type {
	case MemoryBackend:
		f.logger.Info("Initialized memory backend")
		return memory.New(), nil, nil

	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return repo, nil, nil

	case PostgresBackend:
		repo, err := storage.NewPostgresRepository(config.PostgresURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
		}
		f.logger.Info("Initialized Postgres backend")
		return repo, nil, nil

	case MongoBackend:
		ms, err := mongostore.Connect(ctx, mongostore.Config{
			URI:        config.MongoURI,
			Database:   config.MongoDatabase,
			Collection: config.MongoCollection,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		f.logger.Info("Initialized MongoDB backend",
			"database", config.MongoDatabase,
			"collection", config.MongoCollection)
		return ms, ms.Close, nil

	default:
		return nil, nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
