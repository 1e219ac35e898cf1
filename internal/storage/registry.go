package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/dshills/vecsearch/pkg/types"
)

// DefaultMaxOpen is the default number of project stores kept open
const DefaultMaxOpen = 8

// acquireAttempts bounds retries when a handle closes between load and use
const acquireAttempts = 3

// OpenFunc opens the store for a canonical project path
type OpenFunc func(ctx context.Context, projectPath string, opts Options) (Store, error)

// RegistryConfig configures a Registry
type RegistryConfig struct {
	Options  Options
	MaxOpen  int         // Open stores kept before the least recently used is closed
	Logger   *zap.Logger // Optional; defaults to a no-op logger
	OpenFunc OpenFunc    // Optional; defaults to OpenProject
}

// Registry caches open project stores. Concurrent first opens of the same
// project share one load; an evicted store stays open until its last user
// releases it.
type Registry struct {
	opts   Options
	open   OpenFunc
	logger *zap.Logger

	group singleflight.Group

	mu      sync.Mutex
	handles *simplelru.LRU[string, *handle]
}

var _ StoreSource = (*Registry)(nil)

// handle is a refcounted open store; guarded by Registry.mu
type handle struct {
	store   Store
	path    string
	refs    int
	evicted bool
	closed  bool
}

// NewRegistry creates a store registry
func NewRegistry(cfg RegistryConfig) (*Registry, error) {
	if cfg.MaxOpen <= 0 {
		cfg.MaxOpen = DefaultMaxOpen
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.OpenFunc == nil {
		cfg.OpenFunc = func(ctx context.Context, projectPath string, opts Options) (Store, error) {
			return OpenProject(ctx, projectPath, opts)
		}
	}

	r := &Registry{
		opts:   cfg.Options,
		open:   cfg.OpenFunc,
		logger: cfg.Logger,
	}

	handles, err := simplelru.NewLRU[string, *handle](cfg.MaxOpen, r.onEvict)
	if err != nil {
		return nil, fmt.Errorf("failed to create store cache: %w", err)
	}
	r.handles = handles

	return r, nil
}

// Acquire returns the open store for projectPath, opening it on first use.
// The release func must be called exactly once when the caller is done.
func (r *Registry) Acquire(ctx context.Context, projectPath string) (Store, func(), error) {
	key, err := canonicalPath(projectPath)
	if err != nil {
		return nil, nil, err
	}

	for attempt := 0; attempt < acquireAttempts; attempt++ {
		if h := r.ref(key); h != nil {
			return h.store, r.releaser(h), nil
		}

		// One open per key; waiters share the result
		_, err, _ := r.group.Do(key, func() (any, error) {
			return nil, r.load(ctx, key)
		})
		if err != nil {
			return nil, nil, err
		}

		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
	}

	return nil, nil, fmt.Errorf("%w: %s was closed while being acquired", types.ErrStoreUnavailable, key)
}

// Close closes the store for projectPath once its current users release it
func (r *Registry) Close(projectPath string) error {
	key, err := canonicalPath(projectPath)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles.Remove(key)
	return nil
}

// CloseAll evicts every store. Stores still in use close on their last release.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles.Purge()
}

// Len returns the number of cached stores
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handles.Len()
}

// ref returns a cached handle with its refcount taken, or nil
func (r *Registry) ref(key string) *handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.handles.Get(key)
	if !ok || h.closed {
		return nil
	}
	h.refs++
	return h
}

// load opens the store for key and caches it
func (r *Registry) load(ctx context.Context, key string) error {
	r.mu.Lock()
	_, cached := r.handles.Peek(key)
	r.mu.Unlock()
	if cached {
		return nil
	}

	// The open is shared by every waiter, so one caller's cancellation must not abort it
	store, err := r.open(context.WithoutCancel(ctx), key, r.opts)
	if err != nil {
		if errors.Is(err, types.ErrStoreUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %w", types.ErrStoreUnavailable, err)
	}

	r.logger.Debug("opened project store", zap.String("project", key))

	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles.Add(key, &handle{store: store, path: key})
	return nil
}

// releaser returns an idempotent release func for h
func (r *Registry) releaser(h *handle) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			h.refs--
			if h.evicted && h.refs == 0 {
				r.closeHandle(h)
			}
		})
	}
}

// onEvict runs with r.mu held
func (r *Registry) onEvict(_ string, h *handle) {
	h.evicted = true
	if h.refs == 0 {
		r.closeHandle(h)
	}
}

// closeHandle runs with r.mu held
func (r *Registry) closeHandle(h *handle) {
	if h.closed {
		return
	}
	h.closed = true
	if err := h.store.Close(); err != nil {
		r.logger.Warn("failed to close project store",
			zap.String("project", h.path),
			zap.Error(err))
		return
	}
	r.logger.Debug("closed project store", zap.String("project", h.path))
}

// canonicalPath makes equivalent project paths share one cache entry
func canonicalPath(projectPath string) (string, error) {
	if projectPath == "" {
		return "", fmt.Errorf("%w: project path is required", types.ErrStoreUnavailable)
	}
	abs, err := filepath.Abs(projectPath)
	if err != nil {
		return "", fmt.Errorf("%w: resolve %s: %w", types.ErrStoreUnavailable, projectPath, err)
	}
	return filepath.Clean(abs), nil
}
