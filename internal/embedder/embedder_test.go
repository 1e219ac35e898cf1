package embedder

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
)

func TestCacheKey(t *testing.T) {
	a := cacheKey("m1", "hello world")
	if len(a) != 64 {
		t.Fatalf("key length = %d, want 64", len(a))
	}
	if a != cacheKey("m1", "hello world") {
		t.Error("cacheKey() is not deterministic")
	}
	if a == cacheKey("m2", "hello world") {
		t.Error("different models must produce different keys")
	}
	// The separator keeps model/text boundaries distinct
	if cacheKey("ab", "c") == cacheKey("a", "bc") {
		t.Error("model and text boundary is ambiguous")
	}
}

func TestValidateTexts(t *testing.T) {
	tests := []struct {
		name    string
		texts   []string
		wantErr bool
	}{
		{"valid", []string{"a", "b"}, false},
		{"empty batch", nil, true},
		{"empty text", []string{"a", ""}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTexts(tt.texts)
			if !tt.wantErr {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("error = %v, want %v", err, ErrInvalidInput)
			}
		})
	}
}

func TestCache(t *testing.T) {
	t.Run("basic operations", func(t *testing.T) {
		cache := NewCache(3)

		if _, ok := cache.Get("nonexistent"); ok {
			t.Error("Expected cache miss on empty cache")
		}

		cache.Add("k1", &Embedding{Vector: []float32{1, 2, 3}, Model: "m"})

		got, ok := cache.Get("k1")
		if !ok {
			t.Fatal("Expected cache hit")
		}
		if got.Model != "m" || len(got.Vector) != 3 {
			t.Errorf("Got %+v", got)
		}
		if cache.Len() != 1 {
			t.Errorf("Cache size = %d, want 1", cache.Len())
		}
	})

	t.Run("copies on read and write", func(t *testing.T) {
		cache := NewCache(3)
		original := &Embedding{Vector: []float32{1, 2, 3}}
		cache.Add("k", original)

		original.Vector[0] = 99
		got, _ := cache.Get("k")
		if got.Vector[0] != 1 {
			t.Errorf("cache affected by caller write: %v", got.Vector)
		}

		got.Vector[1] = 99
		again, _ := cache.Get("k")
		if again.Vector[1] != 2 {
			t.Errorf("cache affected by reader write: %v", again.Vector)
		}
	})

	t.Run("eviction on capacity", func(t *testing.T) {
		cache := NewCache(2)
		cache.Add("k1", &Embedding{Model: "k1"})
		cache.Add("k2", &Embedding{Model: "k2"})
		cache.Add("k3", &Embedding{Model: "k3"})

		if cache.Len() != 2 {
			t.Errorf("Cache size = %d, want 2", cache.Len())
		}
		if _, ok := cache.Get("k1"); ok {
			t.Error("Expected least recently used entry to be evicted")
		}
		if _, ok := cache.Get("k3"); !ok {
			t.Error("Expected new entry to be cached")
		}
	})

	t.Run("concurrent access", func(t *testing.T) {
		cache := NewCache(100)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					key := cacheKey("m", fmt.Sprintf("text-%d-%d", id, j))
					cache.Add(key, &Embedding{Vector: []float32{float32(id), float32(j)}})
					cache.Get(key)
				}
			}(i)
		}
		wg.Wait()

		if cache.Len() == 0 {
			t.Error("Cache is empty after concurrent operations")
		}
	})
}

func TestNormalizeVector(t *testing.T) {
	got := NormalizeVector([]float32{3, 4})
	if got[0] != 0.6 || got[1] != 0.8 {
		t.Errorf("NormalizeVector() = %v, want [0.6 0.8]", got)
	}

	zero := []float32{0, 0}
	if got := NormalizeVector(zero); got[0] != 0 || got[1] != 0 {
		t.Errorf("zero vector changed: %v", got)
	}
}

func TestProviders(t *testing.T) {
	names := strings.Join(Providers(), ",")
	for _, want := range []string{ProviderAuto, ProviderOpenAI, ProviderAzure, ProviderCompatible, ProviderLocal} {
		if !strings.Contains(names, want) {
			t.Errorf("Providers() missing %s", want)
		}
	}
}
