// Package embedder turns query text into vector embeddings.
//
// Remote providers speak the OpenAI embeddings API through
// github.com/sashabaranov/go-openai:
//   - openai: api.openai.com (OPENAI_API_KEY)
//   - azure: an Azure OpenAI deployment (AZURE_OPENAI_API_KEY, base URL required)
//   - compatible: any OpenAI-compatible server such as xAI, Jina or Ollama
//     (base URL and model required; XAI_API_KEY as key fallback)
//
// The local provider hashes text into a deterministic unit vector. It works
// offline and is meant for tests and demos.
//
// # Basic Usage
//
//	emb, err := embedder.New(embedder.Config{Provider: "openai"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer emb.Close()
//
//	result, err := emb.Embed(ctx, "how are sessions refreshed")
//
// # Caching
//
// Providers share an LRU cache keyed by sha256(model|text). Cached vectors
// are copied on read and write so callers cannot corrupt them.
//
// # Retries
//
// Remote calls retry with exponential backoff. Client errors other than 429
// and context cancellation are not retried. Failures wrap ErrProviderFailed.
package embedder
