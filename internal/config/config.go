// Package config loads vecsearch settings from defaults, an optional YAML
// file and VECSEARCH_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/dshills/vecsearch/internal/embedder"
	"github.com/dshills/vecsearch/internal/storage"
)

// DefaultFile is the config file looked up in the working directory
const DefaultFile = ".vecsearch.yml"

// EnvPrefix marks environment overrides. A double underscore separates
// nesting levels: VECSEARCH_SEARCH__DEFAULT_LIMIT sets search.default_limit.
const EnvPrefix = "VECSEARCH_"

// Config is the top-level configuration, corresponding to .vecsearch.yml
type Config struct {
	Debug     bool            `yaml:"debug" koanf:"debug"`
	Store     StoreConfig     `yaml:"store" koanf:"store"`
	Search    SearchConfig    `yaml:"search" koanf:"search"`
	Embedding EmbeddingConfig `yaml:"embedding" koanf:"embedding"`
	Server    ServerConfig    `yaml:"server" koanf:"server"`
}

// StoreConfig controls where project stores live and how many stay open
type StoreConfig struct {
	DirName         string `yaml:"dir_name" koanf:"dir_name"`
	FileName        string `yaml:"file_name" koanf:"file_name"`
	MaxOpenProjects int    `yaml:"max_open_projects" koanf:"max_open_projects"`
}

// SearchConfig holds query defaults and transport limits
type SearchConfig struct {
	DefaultLimit        int     `yaml:"default_limit" koanf:"default_limit"`
	MaxLimit            int     `yaml:"max_limit" koanf:"max_limit"`
	SimilarityThreshold float64 `yaml:"similarity_threshold" koanf:"similarity_threshold"`
}

// EmbeddingConfig selects and configures the embedding provider
type EmbeddingConfig struct {
	Provider       string `yaml:"provider" koanf:"provider"`
	Model          string `yaml:"model" koanf:"model"`
	APIKey         string `yaml:"api_key,omitempty" koanf:"api_key"`
	BaseURL        string `yaml:"base_url,omitempty" koanf:"base_url"`
	APIVersion     string `yaml:"api_version,omitempty" koanf:"api_version"`
	Dimension      int    `yaml:"dimension" koanf:"dimension"`
	CacheSize      int    `yaml:"cache_size" koanf:"cache_size"`
	TimeoutSeconds int    `yaml:"timeout_seconds" koanf:"timeout_seconds"`
}

// ServerConfig configures the HTTP adapter
type ServerConfig struct {
	HTTPAddr       string   `yaml:"http_addr" koanf:"http_addr"`
	AllowedOrigins []string `yaml:"allowed_origins" koanf:"allowed_origins"`
}

// DefaultConfig returns the built-in configuration
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			DirName:         storage.DefaultDirName,
			FileName:        storage.DefaultFileName,
			MaxOpenProjects: storage.DefaultMaxOpen,
		},
		Search: SearchConfig{
			DefaultLimit:        10,
			MaxLimit:            100,
			SimilarityThreshold: 0.7,
		},
		Embedding: EmbeddingConfig{
			Provider:       embedder.ProviderAuto,
			CacheSize:      embedder.DefaultCacheSize,
			TimeoutSeconds: int(embedder.DefaultTimeout / time.Second),
		},
		Server: ServerConfig{
			HTTPAddr:       "127.0.0.1:8080",
			AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		},
	}
}

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// envKey maps VECSEARCH_EMBEDDING__BASE_URL to embedding.base_url
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

// Save writes the configuration to the given YAML file path
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Validate checks that the configuration contains valid values
func (c *Config) Validate() error {
	var errs []error

	if !validProvider(c.Embedding.Provider) {
		errs = append(errs, fmt.Errorf("invalid embedding.provider %q: must be one of %s",
			c.Embedding.Provider, strings.Join(embedder.Providers(), ", ")))
	}
	if c.Embedding.Dimension < 0 {
		errs = append(errs, errors.New("embedding.dimension must be non-negative"))
	}
	if c.Embedding.TimeoutSeconds <= 0 {
		errs = append(errs, errors.New("embedding.timeout_seconds must be positive"))
	}
	if c.Search.DefaultLimit <= 0 {
		errs = append(errs, errors.New("search.default_limit must be positive"))
	}
	if c.Search.MaxLimit < c.Search.DefaultLimit {
		errs = append(errs, errors.New("search.max_limit must be at least search.default_limit"))
	}
	if c.Store.MaxOpenProjects <= 0 {
		errs = append(errs, errors.New("store.max_open_projects must be positive"))
	}
	if c.Server.HTTPAddr == "" {
		errs = append(errs, errors.New("server.http_addr is required"))
	}
	if c.Store.DirName == "" || c.Store.FileName == "" {
		errs = append(errs, errors.New("store.dir_name and store.file_name are required"))
	}

	return errors.Join(errs...)
}

func validProvider(name string) bool {
	for _, p := range embedder.Providers() {
		if strings.EqualFold(p, name) {
			return true
		}
	}
	return false
}

// StoreOptions converts the store section for the storage package
func (c *Config) StoreOptions() storage.Options {
	return storage.Options{
		DirName:  c.Store.DirName,
		FileName: c.Store.FileName,
	}
}

// EmbedderConfig converts the embedding section for the embedder factory
func (c *Config) EmbedderConfig() embedder.Config {
	return embedder.Config{
		Provider:   c.Embedding.Provider,
		Model:      c.Embedding.Model,
		APIKey:     c.Embedding.APIKey,
		BaseURL:    c.Embedding.BaseURL,
		APIVersion: c.Embedding.APIVersion,
		Dimension:  c.Embedding.Dimension,
		CacheSize:  c.Embedding.CacheSize,
		Timeout:    time.Duration(c.Embedding.TimeoutSeconds) * time.Second,
	}
}

// ClampLimit applies the configured default and maximum to a requested limit
func (c *Config) ClampLimit(limit int) int {
	if limit <= 0 {
		return c.Search.DefaultLimit
	}
	if limit > c.Search.MaxLimit {
		return c.Search.MaxLimit
	}
	return limit
}
