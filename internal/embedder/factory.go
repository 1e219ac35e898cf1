package embedder

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Environment variables consulted when no API key is configured
const (
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	EnvAzureAPIKey  = "AZURE_OPENAI_API_KEY"
	EnvXAIAPIKey    = "XAI_API_KEY"
)

// ProviderAuto picks openai when an OpenAI key is present, local otherwise
const ProviderAuto = "auto"

// Config holds embedder configuration
type Config struct {
	Provider   string
	Model      string
	APIKey     string
	BaseURL    string
	APIVersion string
	Dimension  int
	CacheSize  int // 0 uses DefaultCacheSize, negative disables caching
	Timeout    time.Duration
}

// Providers lists the accepted provider names
func Providers() []string {
	return []string{ProviderAuto, ProviderOpenAI, ProviderAzure, ProviderCompatible, ProviderLocal}
}

// New creates an embedder with explicit configuration
func New(cfg Config) (Embedder, error) {
	var cache *Cache
	if cfg.CacheSize >= 0 {
		cache = NewCache(cfg.CacheSize)
	}

	provider := strings.ToLower(cfg.Provider)
	if provider == "" || provider == ProviderAuto {
		provider = DetectProvider()
	}

	pc := ProviderConfig{
		APIKey:     resolveAPIKey(provider, cfg.APIKey),
		Model:      cfg.Model,
		BaseURL:    cfg.BaseURL,
		APIVersion: cfg.APIVersion,
		Dimension:  cfg.Dimension,
		Timeout:    cfg.Timeout,
	}

	switch provider {
	case ProviderOpenAI:
		return NewOpenAIProvider(pc, cache)
	case ProviderAzure:
		return NewAzureProvider(pc, cache)
	case ProviderCompatible:
		return NewCompatibleProvider(pc, cache)
	case ProviderLocal:
		return NewLocalProvider(cfg.Dimension, cache)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
}

// DetectProvider returns the provider auto selection resolves to
func DetectProvider() string {
	if os.Getenv(EnvOpenAIAPIKey) != "" {
		return ProviderOpenAI
	}
	return ProviderLocal
}

// resolveAPIKey falls back to the provider's conventional environment variable
func resolveAPIKey(provider, key string) string {
	if key != "" {
		return key
	}
	switch provider {
	case ProviderOpenAI:
		return os.Getenv(EnvOpenAIAPIKey)
	case ProviderAzure:
		return os.Getenv(EnvAzureAPIKey)
	case ProviderCompatible:
		return os.Getenv(EnvXAIAPIKey)
	}
	return ""
}
