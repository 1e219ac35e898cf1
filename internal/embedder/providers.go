package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/dshills/vecsearch/internal/similarity"
)

// Provider configuration
const (
	ProviderOpenAI     = "openai"
	ProviderAzure      = "azure"
	ProviderCompatible = "compatible"
	ProviderLocal      = "local"

	// Default models
	DefaultOpenAIModel = "text-embedding-3-small"
	DefaultLocalModel  = "local-hash"

	// Dimensions
	OpenAIDimension = 1536
	LocalDimension  = 384

	// MaxBatchSize is the most inputs sent in one embeddings request
	MaxBatchSize = 100

	// DefaultTimeout bounds one embeddings HTTP call
	DefaultTimeout = 30 * time.Second

	// Retry configuration
	MaxRetries        = 3
	InitialBackoffMs  = 100
	MaxBackoffMs      = 5000
	BackoffMultiplier = 2.0
)

// ProviderConfig describes one remote embeddings endpoint
type ProviderConfig struct {
	APIKey     string
	Model      string
	BaseURL    string        // Required for azure and compatible
	APIVersion string        // Azure only
	Dimension  int           // Requested output dimension, 0 for model default
	Timeout    time.Duration // Per request
}

// OpenAIProvider implements Embedder over any endpoint speaking the OpenAI
// embeddings API: OpenAI itself, Azure OpenAI and compatible servers.
type OpenAIProvider struct {
	name       string
	client     *openai.Client
	httpClient *http.Client
	model      string
	dimension  int
	cache      *Cache
	retry      RetryConfig
}

// NewOpenAIProvider creates an embedder for api.openai.com
func NewOpenAIProvider(cfg ProviderConfig, cache *Cache) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrMissingAPIKey, EnvOpenAIAPIKey)
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	return newOpenAIProvider(ProviderOpenAI, clientCfg, cfg, cache), nil
}

// NewAzureProvider creates an embedder for an Azure OpenAI deployment.
// The model name is mapped to the deployment name.
func NewAzureProvider(cfg ProviderConfig, cache *Cache) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrMissingAPIKey, EnvAzureAPIKey)
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: azure provider requires a base URL", ErrInvalidInput)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}

	clientCfg := openai.DefaultAzureConfig(cfg.APIKey, cfg.BaseURL)
	if cfg.APIVersion != "" {
		clientCfg.APIVersion = cfg.APIVersion
	}
	clientCfg.AzureModelMapperFunc = func(model string) string {
		return model
	}
	return newOpenAIProvider(ProviderAzure, clientCfg, cfg, cache), nil
}

// NewCompatibleProvider creates an embedder for an OpenAI-compatible server
// such as xAI, Jina or a local Ollama. The API key may be empty.
func NewCompatibleProvider(cfg ProviderConfig, cache *Cache) (*OpenAIProvider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: compatible provider requires a base URL", ErrInvalidInput)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: compatible provider requires a model", ErrInvalidInput)
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL
	return newOpenAIProvider(ProviderCompatible, clientCfg, cfg, cache), nil
}

func newOpenAIProvider(name string, clientCfg openai.ClientConfig, cfg ProviderConfig, cache *Cache) *OpenAIProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := &http.Client{Timeout: timeout}
	clientCfg.HTTPClient = httpClient

	return &OpenAIProvider{
		name:       name,
		client:     openai.NewClientWithConfig(clientCfg),
		httpClient: httpClient,
		model:      cfg.Model,
		dimension:  cfg.Dimension,
		cache:      cache,
		retry:      DefaultRetryConfig(),
	}
}

func (o *OpenAIProvider) Embed(ctx context.Context, text string) (*Embedding, error) {
	if o.cache != nil {
		if emb, ok := o.cache.Get(cacheKey(o.model, text)); ok {
			return emb, nil
		}
	}

	embeddings, err := o.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch embeds texts in order, splitting them into requests of at most
// MaxBatchSize inputs.
func (o *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([]*Embedding, error) {
	if err := validateTexts(texts); err != nil {
		return nil, err
	}

	out := make([]*Embedding, 0, len(texts))
	for start := 0; start < len(texts); start += MaxBatchSize {
		batch := texts[start:min(start+MaxBatchSize, len(texts))]

		embeddings, err := retryWithBackoff(ctx, o.retry, func() ([]*Embedding, error) {
			return o.callAPI(ctx, batch)
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrProviderFailed, o.name, err)
		}

		if o.cache != nil {
			for i, emb := range embeddings {
				o.cache.Add(cacheKey(o.model, batch[i]), emb)
			}
		}
		out = append(out, embeddings...)
	}

	return out, nil
}

func (o *OpenAIProvider) callAPI(ctx context.Context, texts []string) ([]*Embedding, error) {
	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      texts,
		Model:      openai.EmbeddingModel(o.model),
		Dimensions: o.dimension,
	})
	if err != nil {
		if isPermanentAPIError(err) {
			return nil, permanent(err)
		}
		return nil, err
	}

	if len(resp.Data) != len(texts) {
		return nil, permanent(fmt.Errorf("api returned %d embeddings, expected %d", len(resp.Data), len(texts)))
	}

	// Responses carry an index; order is not guaranteed by every server
	data := resp.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	embeddings := make([]*Embedding, len(data))
	for i, d := range data {
		if len(d.Embedding) == 0 {
			return nil, permanent(fmt.Errorf("api returned an empty embedding at index %d", d.Index))
		}
		embeddings[i] = &Embedding{
			Vector:   d.Embedding,
			Provider: o.name,
			Model:    o.model,
		}
	}

	return embeddings, nil
}

// isPermanentAPIError reports client errors that retrying cannot fix.
// Rate limiting (429) is retried.
func isPermanentAPIError(err error) bool {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	return status >= 400 && status < 500 && status != http.StatusTooManyRequests
}

func (o *OpenAIProvider) Dimension() int {
	if o.dimension > 0 {
		return o.dimension
	}
	if o.name == ProviderOpenAI && o.model == DefaultOpenAIModel {
		return OpenAIDimension
	}
	return 0
}

func (o *OpenAIProvider) Provider() string {
	return o.name
}

func (o *OpenAIProvider) Model() string {
	return o.model
}

func (o *OpenAIProvider) Close() error {
	o.httpClient.CloseIdleConnections()
	return nil
}

// LocalProvider derives deterministic unit vectors from text hashes.
// It needs no network and suits tests and offline demos; vectors carry no
// semantic meaning.
type LocalProvider struct {
	model     string
	dimension int
	cache     *Cache
}

// NewLocalProvider creates a new local embedder. A non-positive dimension
// selects LocalDimension.
func NewLocalProvider(dimension int, cache *Cache) (*LocalProvider, error) {
	if dimension <= 0 {
		dimension = LocalDimension
	}
	return &LocalProvider{
		model:     DefaultLocalModel,
		dimension: dimension,
		cache:     cache,
	}, nil
}

func (l *LocalProvider) Embed(ctx context.Context, text string) (*Embedding, error) {
	if err := validateTexts([]string{text}); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := cacheKey(l.model, text)
	if l.cache != nil {
		if emb, ok := l.cache.Get(key); ok {
			return emb, nil
		}
	}

	emb := &Embedding{
		Vector:   hashVector(text, l.dimension),
		Provider: ProviderLocal,
		Model:    l.model,
	}
	if l.cache != nil {
		l.cache.Add(key, emb)
	}
	return emb, nil
}

func (l *LocalProvider) Dimension() int {
	return l.dimension
}

func (l *LocalProvider) Provider() string {
	return ProviderLocal
}

func (l *LocalProvider) Model() string {
	return l.model
}

func (l *LocalProvider) Close() error {
	return nil
}

// hashVector expands sha256(text || counter) into a unit vector in [-1, 1]^n
func hashVector(text string, dimension int) []float32 {
	vector := make([]float32, dimension)
	var counter [4]byte
	for block := 0; block*8 < dimension; block++ {
		binary.LittleEndian.PutUint32(counter[:], uint32(block))
		sum := sha256.Sum256(append([]byte(text), counter[:]...))
		for i := 0; i < 8 && block*8+i < dimension; i++ {
			bits := binary.LittleEndian.Uint32(sum[i*4:])
			vector[block*8+i] = float32(bits)/float32(math.MaxUint32)*2 - 1
		}
	}
	return NormalizeVector(vector)
}

// NormalizeVector normalizes a vector to unit length (for cosine similarity)
func NormalizeVector(v []float32) []float32 {
	return similarity.Normalize(v)
}
