package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/vecsearch/internal/config"
	"github.com/dshills/vecsearch/internal/embedder"
	"github.com/dshills/vecsearch/internal/logging"
	"github.com/dshills/vecsearch/internal/searcher"
	"github.com/dshills/vecsearch/internal/storage"
)

// app holds the dependencies shared by the search commands
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *storage.Registry
	embedder embedder.Embedder
	searcher *searcher.Searcher
}

// newApp loads configuration from the command's flags and wires the searcher
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	emb, err := embedder.New(cfg.EmbedderConfig())
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	registry, err := storage.NewRegistry(storage.RegistryConfig{
		Options: cfg.StoreOptions(),
		MaxOpen: cfg.Store.MaxOpenProjects,
		Logger:  logger.Named("storage"),
	})
	if err != nil {
		_ = emb.Close()
		return nil, err
	}

	logger.Debug("vecsearch initialised",
		zap.String("provider", emb.Provider()),
		zap.String("model", emb.Model()),
		zap.String("build_mode", storage.BuildMode),
		zap.Bool("vector_extension", storage.VectorExtensionAvailable),
	)

	return &app{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		embedder: emb,
		searcher: searcher.NewSearcher(registry, emb, logger.Named("searcher")),
	}, nil
}

// Close releases every open store and the embedder
func (a *app) Close() error {
	a.registry.CloseAll()
	err := a.embedder.Close()
	_ = a.logger.Sync()
	return err
}

// loadConfig reads --config and applies --debug on top
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Debug = true
	}
	return cfg, nil
}

// withApp runs fn with a fully wired app and closes it afterwards
func withApp(cmd *cobra.Command, fn func(a *app) error) (err error) {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, a.Close())
	}()
	return fn(a)
}
