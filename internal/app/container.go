package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	adapterrepo "github.com/eslsoft/lexitrack/internal/adapter/repository"
	"github.com/eslsoft/lexitrack/internal/adapter/dictionary"
	"github.com/eslsoft/lexitrack/internal/adapter/embedding"
	"github.com/eslsoft/lexitrack/internal/infrastructure/config"
	"github.com/eslsoft/lexitrack/internal/infrastructure/database"
	"github.com/eslsoft/lexitrack/internal/infrastructure/logging"
	"github.com/eslsoft/lexitrack/internal/infrastructure/scheduler"
	"github.com/eslsoft/lexitrack/internal/levelvocab"
	"github.com/eslsoft/lexitrack/internal/repository"
	"github.com/eslsoft/lexitrack/internal/usecase"
	"github.com/eslsoft/lexitrack/internal/worker"
)

// Container aggregates the application dependencies.
type Container struct {
	Config    *config.Config
	Logger    *logrus.Logger
	Repo      repository.VocabRepository
	Vocab     *usecase.VocabService
	Recommend *usecase.RecommendService
	Learning  *usecase.LearningService
	Pool      *worker.Pool
	Scheduler *scheduler.Scheduler

	cleanups []func()
}

// Build constructs the full dependency graph from configuration. The worker
// pool is started; the flush scheduler is constructed but not started.
func Build(ctx context.Context) (*Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(cfg)
	if err != nil {
		return nil, err
	}

	c := &Container{Config: cfg, Logger: logger}

	if err := c.buildRepository(cfg); err != nil {
		c.Close()
		return nil, err
	}

	workers := cfg.Vocab.Workers
	if workers <= 0 {
		workers = 2
	}
	c.Pool = worker.NewPool(workers, workers*16, logger)
	c.Pool.Start(ctx)

	var dict usecase.DictionaryProvider
	if cfg.Dictionary.Path != "" {
		provider, err := dictionary.Open(cfg.Dictionary.Path)
		if err != nil {
			logger.WithError(err).Warn("dictionary unavailable, enrichment disabled")
		} else {
			c.cleanups = append(c.cleanups, func() { _ = provider.Close() })
			dict = provider
		}
	}

	loader := levelvocab.NewLoader(cfg.Vocab.LevelWordsDir, logger)
	c.Vocab = usecase.NewVocabService(c.Repo, dict, c.Pool, loader, logger)

	var embedder usecase.Embedder
	if cfg.Embedding.Enabled() {
		embedder = embedding.NewClient(cfg.Embedding.BaseURL, cfg.Embedding.APIKey, cfg.Embedding.Model, cfg.Embedding.Timeout())
	} else {
		logger.Info("no embedding endpoint configured, recommendations disabled")
	}
	c.Recommend, err = usecase.NewRecommendService(c.Vocab, embedder, c.Pool, cfg.Vocab.EmbeddingCacheSize, logger)
	if err != nil {
		c.Close()
		return nil, err
	}

	c.Learning = usecase.NewLearningService(usecase.NewClassifier(), c.Vocab, c.Recommend, logger)
	c.Scheduler = scheduler.New(c.Vocab, cfg.Vocab.FlushInterval(), logger)

	return c, nil
}

func (c *Container) buildRepository(cfg *config.Config) error {
	switch cfg.DatabaseDriver() {
	case "postgres":
		pool, cleanup, err := database.NewConnection(cfg)
		if err != nil {
			if cleanup != nil {
				cleanup()
			}
			return err
		}
		c.cleanups = append(c.cleanups, cleanup)
		c.Repo = adapterrepo.NewPostgresVocabRepository(pool)
	case "sqlite":
		db, cleanup, err := database.NewSQLite(cfg)
		if err != nil {
			if cleanup != nil {
				cleanup()
			}
			return err
		}
		c.cleanups = append(c.cleanups, cleanup)
		c.Repo = adapterrepo.NewSQLiteVocabRepository(db)
	default:
		return fmt.Errorf("unsupported database driver: %s", cfg.DatabaseDriver())
	}
	return nil
}

// Close releases every resource the container owns, in reverse order of
// acquisition. It does not flush; call Vocab.Finalize first.
func (c *Container) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
	for i := len(c.cleanups) - 1; i >= 0; i-- {
		c.cleanups[i]()
	}
	c.cleanups = nil
}
