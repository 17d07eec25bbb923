package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"obsquery/config"
	"obsquery/search"
	"obsquery/storage"

	"go.uber.org/zap"
)

// connectRetryDelays are the waits before each reconnection attempt to a
// remote backend.
var connectRetryDelays = []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}

// Components holds the storage backends and the query pipeline over them.
type Components struct {
	Index    storage.SearchIndex
	Store    storage.EventStore
	Pipeline *search.Pipeline
}

// Close releases both backends.
func (c *Components) Close() error {
	var errs []error
	if c.Index != nil {
		if err := c.Index.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close search index: %w", err))
		}
	}
	if c.Store != nil {
		if err := c.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close document store: %w", err))
		}
	}
	return errors.Join(errs...)
}

// InitComponents opens the configured search index and document store and
// builds the pipeline.
func InitComponents(ctx context.Context, cfg *config.Config, sugar *zap.SugaredLogger) (*Components, error) {
	if err := EnsureDataDirectories(cfg, sugar); err != nil {
		return nil, fmt.Errorf("pre-flight check failed: %w", err)
	}

	index, err := InitSearchIndex(ctx, cfg, sugar)
	if err != nil {
		return nil, err
	}

	store, err := InitEventStore(ctx, cfg, sugar)
	if err != nil {
		_ = index.Close()
		return nil, err
	}

	var backend search.Backend = index
	if cfg.Search.Breaker.MaxFailures > 0 {
		breaker, err := search.NewBreaker(search.BreakerConfig{
			MaxFailures:         cfg.Search.Breaker.MaxFailures,
			ResetTimeout:        cfg.Search.Breaker.ResetAfter(),
			MaxHalfOpenRequests: cfg.Search.Breaker.MaxHalfOpenRequests,
		}, search.SystemClock)
		if err != nil {
			_ = index.Close()
			_ = store.Close()
			return nil, err
		}
		backend = search.NewGuardedBackend(index, breaker, sugar)
	}

	return &Components{
		Index:    index,
		Store:    store,
		Pipeline: search.NewPipeline(backend, store, search.SystemClock, sugar),
	}, nil
}

// withRetry calls connect until it succeeds, ctx ends or the retry
// schedule is exhausted.
func withRetry(ctx context.Context, service string, sugar *zap.SugaredLogger, connect func() error) error {
	var lastErr error
	for attempt := 0; attempt <= len(connectRetryDelays); attempt++ {
		if attempt > 0 {
			delay := connectRetryDelays[attempt-1]
			sugar.Infow("Retrying connection",
				"service", service,
				"attempt", attempt,
				"max_retries", len(connectRetryDelays),
				"delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return fmt.Errorf("gave up connecting to %s: %w (last error: %v)", service, ctx.Err(), lastErr)
			}
		}

		if lastErr = connect(); lastErr == nil {
			return nil
		}

		sugar.Warnw("Connection attempt failed",
			"service", service,
			"attempt", attempt+1,
			"error", lastErr)
	}
	return fmt.Errorf("failed to connect to %s after %d attempts: %w", service, len(connectRetryDelays)+1, lastErr)
}

// InitSearchIndex opens the configured search backend. A remote backend
// must answer a ping before this returns.
func InitSearchIndex(ctx context.Context, cfg *config.Config, sugar *zap.SugaredLogger) (storage.SearchIndex, error) {
	switch cfg.Search.Backend {
	case storage.BackendElasticsearch:
		backend, err := storage.NewElasticsearchBackend(cfg.Search.Elasticsearch, sugar)
		if err != nil {
			return nil, err
		}
		addr := strings.Join(cfg.Search.Elasticsearch.Addresses, ",")
		if err := withRetry(ctx, "Elasticsearch", sugar, func() error {
			return backend.HealthCheck(ctx)
		}); err != nil {
			writeFatalBanner(os.Stderr, "Elasticsearch Connection Failed", ClassifyConnectionError(err, "Elasticsearch", addr))
			return nil, err
		}
		sugar.Infow("Connected to Elasticsearch successfully", "index", cfg.Search.Elasticsearch.Index)
		return backend, nil

	case storage.BackendBleve:
		backend, err := storage.NewBleveBackend(cfg.Search.Bleve.Path, sugar)
		if err != nil {
			return nil, fmt.Errorf("failed to open bleve index: %w", err)
		}
		sugar.Infow("Bleve index opened", "path", cfg.Search.Bleve.Path)
		return backend, nil

	default:
		return nil, fmt.Errorf("%w: search backend %q", storage.ErrUnknownBackend, cfg.Search.Backend)
	}
}

// InitEventStore opens the configured document store.
func InitEventStore(ctx context.Context, cfg *config.Config, sugar *zap.SugaredLogger) (storage.EventStore, error) {
	switch cfg.Documents.Backend {
	case storage.BackendMongoDB:
		var store *storage.MongoEventStore
		err := withRetry(ctx, "MongoDB", sugar, func() error {
			var err error
			store, err = storage.NewMongoEventStore(cfg.Documents.MongoDB, sugar)
			return err
		})
		if err != nil {
			writeFatalBanner(os.Stderr, "MongoDB Connection Failed", ClassifyConnectionError(err, "MongoDB", redactURI(cfg.Documents.MongoDB.URI)))
			return nil, err
		}
		return store, nil

	case storage.BackendSQLite:
		store, err := storage.NewSQLiteEventStore(cfg.Documents.SQLite.Path, sugar)
		if err != nil {
			writeFatalBanner(os.Stderr, "SQLite Initialization Failed", ClassifySQLiteError(err, cfg.Documents.SQLite.Path))
			return nil, fmt.Errorf("failed to initialize SQLite: %w", err)
		}
		sugar.Infow("SQLite document store initialized", "path", cfg.Documents.SQLite.Path)
		return store, nil

	default:
		return nil, fmt.Errorf("%w: documents backend %q", storage.ErrUnknownBackend, cfg.Documents.Backend)
	}
}

// redactURI drops credentials from a connection URI for display.
func redactURI(uri string) string {
	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok {
		return uri
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		rest = rest[at+1:]
	}
	return scheme + "://" + rest
}
