package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cloo-solutions/askdocs/internal/config"
	"github.com/cloo-solutions/askdocs/internal/database"
	"github.com/cloo-solutions/askdocs/internal/extract"
	"github.com/cloo-solutions/askdocs/internal/ollama"
	"github.com/cloo-solutions/askdocs/internal/openai"
	"github.com/cloo-solutions/askdocs/internal/repository"
	"github.com/cloo-solutions/askdocs/internal/service"
	"github.com/cloo-solutions/askdocs/internal/storage"
	goopenai "github.com/sashabaranov/go-openai"
)

// passageBackend is what every store implementation provides.
type passageBackend interface {
	service.PassageStore
	service.PassageCatalog
	Ping(ctx context.Context) error
}

// pipeline holds the wired ingestion and question-answering services.
type pipeline struct {
	store    passageBackend
	indexer  *service.Indexer
	ask      *service.AskService
	gateway  *service.EmbeddingGateway
	composer *service.AnswerComposer
	closers  []func()
}

type pipelineOptions struct {
	// skip schema migration for the postgres backend
	noMigrate      bool
	migrationsPath string
	// wire the S3 archive when configured
	archive bool
}

// Close releases the store and any other resources, in reverse order.
func (p *pipeline) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		p.closers[i]()
	}
	p.closers = nil
}

func buildPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts pipelineOptions) (*pipeline, error) {
	p := &pipeline{}

	store, err := openStore(ctx, cfg, logger, opts, p)
	if err != nil {
		p.Close()
		return nil, err
	}
	p.store = store

	embeddingClient, err := newEmbeddingClient(cfg)
	if err != nil {
		p.Close()
		return nil, err
	}
	generationClient, err := newGenerationClient(cfg)
	if err != nil {
		p.Close()
		return nil, err
	}

	p.gateway = service.NewEmbeddingGateway(embeddingClient, service.EmbeddingGatewayConfig{
		Dimensions:  cfg.EmbeddingDimensions,
		Timeout:     cfg.EmbeddingTimeout,
		Concurrency: cfg.EmbeddingConcurrency,
	})
	p.indexer = service.NewIndexerWithConfig(p.gateway, store, extract.NewExtractor(), service.ChunkConfig{
		ChunkSize: cfg.ChunkSize,
		Overlap:   cfg.ChunkOverlap,
	})

	if opts.archive && cfg.HasS3() {
		archive, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := archive.EnsureBucket(ctx); err != nil {
			p.Close()
			return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		logger.Info("document archive ready", slog.String("bucket", archive.Bucket()))
		p.indexer.WithArchive(archive)
	}

	p.composer = service.NewAnswerComposer(generationClient, cfg.GenerationTimeout)
	p.ask = service.NewAskService(service.NewRetriever(p.gateway, store), p.composer, cfg.TopK)

	return p, nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts pipelineOptions, p *pipeline) (passageBackend, error) {
	switch cfg.StoreBackend {
	case config.StorePostgres:
		if !opts.noMigrate {
			if err := runMigrations(cfg, logger, opts.migrationsPath); err != nil {
				return nil, err
			}
		}
		pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL, MaxConns: cfg.DatabaseMaxConns})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		p.closers = append(p.closers, pool.Close)

		repo := repository.NewPassageRepository(pool, cfg.EmbeddingDimensions)
		if err := repo.CheckDimensions(ctx); err != nil {
			return nil, err
		}
		logger.Info("connected to database", slog.Int("dimensions", cfg.EmbeddingDimensions))
		return repo, nil

	case config.StoreSQLite:
		repo, err := repository.OpenSQLitePassageRepository(cfg.SQLitePath, cfg.EmbeddingDimensions)
		if err != nil {
			return nil, err
		}
		p.closers = append(p.closers, func() { _ = repo.Close() })
		logger.Info("opened sqlite store", slog.String("path", cfg.SQLitePath))
		return repo, nil

	case config.StoreMemory:
		logger.Warn("using in-memory store, passages are lost on exit")
		return repository.NewMemoryPassageRepository(cfg.EmbeddingDimensions), nil
	}

	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

func runMigrations(cfg *config.Config, logger *slog.Logger, path string) error {
	if cfg.StoreBackend != config.StorePostgres {
		return errors.New("migrations only apply to the postgres store")
	}
	if path == "" {
		path = cfg.MigrationsPath
	}

	result, err := database.Migrate(cfg.DatabaseURL, path)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if result.Applied {
		logger.Info("migrations applied", slog.Uint64("version", uint64(result.Version)))
	} else {
		logger.Info("database is up to date", slog.Uint64("version", uint64(result.Version)))
	}
	return nil
}

func newEmbeddingClient(cfg *config.Config) (service.EmbeddingClient, error) {
	switch cfg.EmbeddingProvider {
	case config.ProviderOllama:
		client, err := ollama.NewClient(ollama.Config{BaseURL: cfg.OllamaURL, EmbeddingModel: cfg.EmbeddingModel})
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.ProviderOpenAI:
		return openai.NewClientWithConfig(openai.Config{
			APIKey:              cfg.OpenAIAPIKey,
			BaseURL:             cfg.OpenAIBaseURL,
			EmbeddingModel:      goopenai.EmbeddingModel(cfg.EmbeddingModel),
			EmbeddingDimensions: cfg.EmbeddingDimensions,
		}), nil
	}
	return nil, fmt.Errorf("unknown embedding provider %q", cfg.EmbeddingProvider)
}

func newGenerationClient(cfg *config.Config) (service.GenerationClient, error) {
	switch cfg.GenerationProvider {
	case config.ProviderOllama:
		client, err := ollama.NewClient(ollama.Config{BaseURL: cfg.OllamaURL, ChatModel: cfg.GenerationModel})
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.ProviderOpenAI:
		return openai.NewClientWithConfig(openai.Config{
			APIKey:    cfg.OpenAIAPIKey,
			BaseURL:   cfg.OpenAIBaseURL,
			ChatModel: cfg.GenerationModel,
		}), nil
	}
	return nil, fmt.Errorf("unknown generation provider %q", cfg.GenerationProvider)
}

// loadConfig reads the configuration and installs the process logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)
	return cfg, logger, nil
}
