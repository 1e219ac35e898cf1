package embedder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbeddingsServer answers /v1/embeddings with one vector per input.
// Inputs are returned in reverse index order to exercise reordering.
type fakeEmbeddingsServer struct {
	calls  atomic.Int32
	status int // Non-zero forces an error response
}

func (f *fakeEmbeddingsServer) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		assert.Equal(t, "/v1/embeddings", r.URL.Path)

		if f.status != 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.status)
			_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"test_error"}}`))
			return
		}

		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		type item struct {
			Object    string    `json:"object"`
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		data := make([]item, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, item{
				Object:    "embedding",
				Embedding: []float32{float32(len(req.Input[i])), float32(i)},
				Index:     i,
			})
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  req.Model,
		})
	})
}

func newFakeProvider(t *testing.T, fake *fakeEmbeddingsServer) *OpenAIProvider {
	t.Helper()
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)

	p, err := NewCompatibleProvider(ProviderConfig{
		BaseURL: srv.URL + "/v1",
		Model:   "fake-embed",
		APIKey:  "test-key",
	}, NewCache(10))
	require.NoError(t, err)

	p.retry = RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}
	return p
}

func TestCompatibleProvider_EmbedBatch(t *testing.T) {
	fake := &fakeEmbeddingsServer{}
	p := newFakeProvider(t, fake)

	embeddings, err := p.EmbedBatch(context.Background(), []string{"a", "bbb"})
	require.NoError(t, err)
	require.Len(t, embeddings, 2)

	assert.Equal(t, ProviderCompatible, embeddings[0].Provider)
	assert.Equal(t, "fake-embed", embeddings[0].Model)
	// Ordered by index, not by response order
	assert.Equal(t, []float32{1, 0}, embeddings[0].Vector)
	assert.Equal(t, []float32{3, 1}, embeddings[1].Vector)
}

func TestCompatibleProvider_EmbedBatchSplitsRequests(t *testing.T) {
	fake := &fakeEmbeddingsServer{}
	p := newFakeProvider(t, fake)

	texts := make([]string, MaxBatchSize+5)
	for i := range texts {
		texts[i] = fmt.Sprintf("text-%d", i)
	}

	embeddings, err := p.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, embeddings, len(texts))
	assert.Equal(t, int32(2), fake.calls.Load())

	// The second request restarts indexes at zero
	assert.Equal(t, []float32{float32(len(texts[MaxBatchSize])), 0}, embeddings[MaxBatchSize].Vector)

	_, err = p.EmbedBatch(context.Background(), []string{"a", ""})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCompatibleProvider_Caching(t *testing.T) {
	fake := &fakeEmbeddingsServer{}
	p := newFakeProvider(t, fake)
	ctx := context.Background()

	first, err := p.Embed(ctx, "hello")
	require.NoError(t, err)
	second, err := p.Embed(ctx, "hello")
	require.NoError(t, err)

	assert.Equal(t, first.Vector, second.Vector)
	assert.Equal(t, int32(1), fake.calls.Load())

	_, err = p.Embed(ctx, "world")
	require.NoError(t, err)
	assert.Equal(t, int32(2), fake.calls.Load())
}

func TestCompatibleProvider_PermanentError(t *testing.T) {
	fake := &fakeEmbeddingsServer{status: http.StatusUnauthorized}
	p := newFakeProvider(t, fake)

	_, err := p.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderFailed)
	assert.Equal(t, int32(1), fake.calls.Load(), "client errors are not retried")
}

func TestCompatibleProvider_RetriesServerErrors(t *testing.T) {
	fake := &fakeEmbeddingsServer{status: http.StatusInternalServerError}
	p := newFakeProvider(t, fake)

	_, err := p.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderFailed)
	assert.Equal(t, int32(3), fake.calls.Load())
}

func TestProviderConstructors(t *testing.T) {
	_, err := NewOpenAIProvider(ProviderConfig{}, nil)
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = NewAzureProvider(ProviderConfig{APIKey: "k"}, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewCompatibleProvider(ProviderConfig{Model: "m"}, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewCompatibleProvider(ProviderConfig{BaseURL: "http://localhost"}, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	p, err := NewOpenAIProvider(ProviderConfig{APIKey: "k"}, nil)
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, p.Provider())
	assert.Equal(t, DefaultOpenAIModel, p.Model())
	assert.Equal(t, OpenAIDimension, p.Dimension())
	assert.NoError(t, p.Close())

	az, err := NewAzureProvider(ProviderConfig{APIKey: "k", BaseURL: "https://example.openai.azure.com", Dimension: 256}, nil)
	require.NoError(t, err)
	assert.Equal(t, ProviderAzure, az.Provider())
	assert.Equal(t, 256, az.Dimension())
}

func TestLocalProvider(t *testing.T) {
	p, err := NewLocalProvider(0, NewCache(10))
	require.NoError(t, err)
	ctx := context.Background()

	emb, err := p.Embed(ctx, "hello")
	require.NoError(t, err)
	assert.Len(t, emb.Vector, LocalDimension)
	assert.Equal(t, ProviderLocal, emb.Provider)

	var norm float64
	for _, v := range emb.Vector {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)

	again, err := p.Embed(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, emb.Vector, again.Vector, "deterministic")

	other, err := p.Embed(ctx, "world")
	require.NoError(t, err)
	assert.NotEqual(t, emb.Vector, other.Vector)

	_, err = p.Embed(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestLocalProvider_CustomDimension(t *testing.T) {
	p, err := NewLocalProvider(10, nil)
	require.NoError(t, err)

	emb, err := p.Embed(context.Background(), "a")
	require.NoError(t, err)
	assert.Len(t, emb.Vector, 10)
	assert.Equal(t, 10, p.Dimension())
}

func TestLocalProvider_Cancelled(t *testing.T) {
	p, err := NewLocalProvider(0, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Embed(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryWithBackoff(t *testing.T) {
	fast := RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}

	t.Run("succeeds after transient error", func(t *testing.T) {
		calls := 0
		result, err := retryWithBackoff(context.Background(), fast, func() (string, error) {
			calls++
			if calls < 2 {
				return "", fmt.Errorf("transient error")
			}
			return "success", nil
		})
		assert.NoError(t, err)
		assert.Equal(t, "success", result)
		assert.Equal(t, 2, calls)
	})

	t.Run("returns last error", func(t *testing.T) {
		calls := 0
		_, err := retryWithBackoff(context.Background(), fast, func() (int, error) {
			calls++
			return 0, fmt.Errorf("error %d", calls)
		})
		assert.EqualError(t, err, "error 3")
		assert.Equal(t, 3, calls)
	})

	t.Run("stops on permanent error", func(t *testing.T) {
		sentinel := errors.New("bad request")
		calls := 0
		_, err := retryWithBackoff(context.Background(), fast, func() (int, error) {
			calls++
			return 0, permanent(sentinel)
		})
		assert.ErrorIs(t, err, sentinel)
		assert.Equal(t, 1, calls)
	})

	t.Run("stops on cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		_, err := retryWithBackoff(ctx, fast, func() (int, error) {
			calls++
			cancel()
			return 0, errors.New("fail")
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}
