package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"versionrank/internal/config"
	"versionrank/internal/domain"
	"versionrank/internal/embedding"
	"versionrank/internal/index/bleve"
	"versionrank/internal/index/chromem"
	"versionrank/internal/index/memory"
	"versionrank/internal/index/qdrant"
	"versionrank/internal/logging"
	"versionrank/internal/rewrite/gemini"
	"versionrank/internal/rewrite/openai"
	"versionrank/internal/service"
	"versionrank/internal/summarizer"
	"versionrank/internal/valuetable"
	"versionrank/internal/versionstore"
)

// app holds the assembled components for one command invocation.
type app struct {
	cfg    *config.AppConfig
	logger *zap.Logger
	index  domain.Index
	table  *valuetable.Table
	store  *versionstore.Store
	svc    *service.Service
}

type appOptions struct {
	judge        domain.JudgmentSource
	withRewriter bool
}

func loadConfig() (*config.AppConfig, error) {
	if cfgPath == "" {
		cfg, _, err := config.LoadDefault()
		return cfg, err
	}
	return config.Load(cfgPath)
}

func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger}
	if err := a.assemble(ctx, opts); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) assemble(ctx context.Context, opts appOptions) error {
	cfg := a.cfg
	var err error

	// Assemble components
	vectorizer := embedding.NewHashingVectorizer(cfg.Index.Dimension)
	switch cfg.Index.Type {
	case "memory":
		a.index = memory.NewIndex()
	case "bleve":
		if err := os.MkdirAll(filepath.Dir(cfg.Index.BlevePath), 0o755); err != nil {
			return err
		}
		a.index, err = bleve.Open(cfg.Index.BlevePath, a.logger)
	case "chromem":
		a.index, err = chromem.Open(chromem.Config{
			Path:       cfg.Index.Chromem.Path,
			Compress:   cfg.Index.Chromem.Compress,
			Collection: cfg.Index.Chromem.Collection,
		}, vectorizer, a.logger)
	case "qdrant":
		q := cfg.Index.Qdrant
		a.index, err = qdrant.Open(ctx, qdrant.Config{
			Host:       q.Host,
			Port:       q.Port,
			APIKey:     os.Getenv(q.APIKeyEnv),
			UseTLS:     q.UseTLS,
			Collection: q.Collection,
		}, vectorizer, a.logger)
	default:
		return fmt.Errorf("unknown index: %s", cfg.Index.Type)
	}
	if err != nil {
		return fmt.Errorf("%s index init failed: %w", cfg.Index.Type, err)
	}

	var storage valuetable.Storage
	switch cfg.ValueTable.Type {
	case "json":
		if err := os.MkdirAll(filepath.Dir(cfg.ValueTable.Path), 0o755); err != nil {
			return err
		}
		storage = valuetable.NewFileStorage(cfg.ValueTable.Path)
	case "badger":
		storage, err = valuetable.NewBadgerStorage(cfg.ValueTable.Path)
		if err != nil {
			return fmt.Errorf("badger value table init failed: %w", err)
		}
	default:
		return fmt.Errorf("unknown value table: %s", cfg.ValueTable.Type)
	}
	a.table, err = valuetable.Open(storage,
		valuetable.WithAlpha(cfg.ValueTable.Alpha),
		valuetable.WithLogger(a.logger))
	if err != nil {
		if c, ok := storage.(interface{ Close() error }); ok {
			_ = c.Close()
		}
		return err
	}

	dup, err := versionstore.ParseDuplicatePolicy(cfg.Versions.DuplicatePolicy)
	if err != nil {
		return err
	}
	a.store = versionstore.New(a.index,
		versionstore.WithDuplicatePolicy(dup),
		versionstore.WithLogger(a.logger))

	var rw domain.Rewriter
	if opts.withRewriter {
		if rw, err = newRewriter(ctx, cfg.Rewriter); err != nil {
			return err
		}
	}

	a.svc, err = service.New(service.Deps{
		Store:      a.store,
		Values:     a.table,
		Judge:      opts.judge,
		Rewriter:   rw,
		Summarizer: summarizer.NewFrequencySummarizer(),
		Logger:     a.logger,
	}, service.Options{
		TopN:             cfg.Ranking.TopN,
		Policy:           cfg.Ranking.Policy,
		BlendWeight:      cfg.Ranking.BlendWeight,
		VersionsDir:      cfg.Versions.Dir,
		PreviewSentences: cfg.Summarizer.MaxSentences,
	})
	if err != nil {
		return err
	}

	if cfg.Index.Type == "memory" {
		return a.reloadVersions(ctx)
	}
	return nil
}

// reloadVersions fills a fresh in-process index from the versions directory.
func (a *app) reloadVersions(ctx context.Context) error {
	_, err := a.svc.Ingest(ctx, []string{filepath.Join(a.cfg.Versions.Dir, "*.txt")})
	if errors.Is(err, service.ErrNoDocuments) {
		return nil
	}
	return err
}

func newRewriter(ctx context.Context, cfg config.RewriterConfig) (domain.Rewriter, error) {
	switch cfg.Type {
	case "gemini":
		c, err := gemini.NewClient(ctx, gemini.Config{
			APIKeyEnv:   cfg.APIKeyEnv,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("gemini rewriter init failed: %w", err)
		}
		return c, nil
	case "openai":
		c, err := openai.NewClient(openai.Config{
			BaseURL:   cfg.BaseURL,
			APIKeyEnv: cfg.APIKeyEnv,
			Model:     cfg.Model,
			Timeout:   time.Duration(cfg.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("openai rewriter init failed: %w", err)
		}
		return c, nil
	case "none":
		return nil, service.ErrNoRewriter
	default:
		return nil, fmt.Errorf("unknown rewriter: %s", cfg.Type)
	}
}

func (a *app) close() {
	if a.table != nil {
		if err := a.table.Close(); err != nil {
			a.logger.Warn("closing value table", zap.Error(err))
		}
	}
	if a.index != nil {
		if err := a.index.Close(); err != nil {
			a.logger.Warn("closing index", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
