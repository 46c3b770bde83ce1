// Package tiercache layers an in-memory LRU and a persistent key-value store
// behind a remote fetch.
//
// Precedence on read is remote, then memory, then disk, then the seed value.
// A successful fetch refreshes both local tiers.
package tiercache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	"github.com/five82/manavault/internal/kvstore"
)

const defaultMemorySize = 64

// Origin names the tier a value came from.
type Origin int

const (
	OriginNone Origin = iota
	OriginRemote
	OriginMemory
	OriginDisk
	OriginSeed
)

func (o Origin) String() string {
	switch o {
	case OriginRemote:
		return "remote"
	case OriginMemory:
		return "memory"
	case OriginDisk:
		return "disk"
	case OriginSeed:
		return "seed"
	default:
		return "none"
	}
}

// NewMemory builds the shared memory tier.
func NewMemory(size int) *lru.Cache {
	if size <= 0 {
		size = defaultMemorySize
	}
	cache, _ := lru.New(size)
	return cache
}

// Option customises a Tiered cache.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger sets the logger used for tier failures.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Tiered caches one value of type T under a single key. Values handed out
// are shared with the memory tier and must be treated as read-only.
type Tiered[T any] struct {
	key    string
	memory *lru.Cache
	disk   kvstore.Store
	seed   func() T
	logger *zap.Logger
}

// New builds a Tiered cache. memory and disk may be nil to skip that tier;
// seed may be nil when there is no built-in fallback.
func New[T any](key string, memory *lru.Cache, disk kvstore.Store, seed func() T, opts ...Option) *Tiered[T] {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Tiered[T]{
		key:    key,
		memory: memory,
		disk:   disk,
		seed:   seed,
		logger: o.logger,
	}
}

// Key returns the persistent key the value is stored under.
func (t *Tiered[T]) Key() string {
	return t.key
}

// Load fetches the value remotely. On success both local tiers are
// refreshed. On failure the best cached value is returned together with the
// fetch error.
func (t *Tiered[T]) Load(ctx context.Context, fetch func(context.Context) (T, error)) (T, Origin, error) {
	value, err := fetch(ctx)
	if err == nil {
		if putErr := t.Put(ctx, value); putErr != nil {
			t.logger.Warn("cache write failed", zap.String("key", t.key), zap.Error(putErr))
		}
		return value, OriginRemote, nil
	}
	cached, origin := t.Peek(ctx)
	return cached, origin, err
}

// Peek returns the best cached value without contacting the remote.
func (t *Tiered[T]) Peek(ctx context.Context) (T, Origin) {
	if t.memory != nil {
		if raw, ok := t.memory.Get(t.key); ok {
			if value, ok := raw.(T); ok {
				return value, OriginMemory
			}
		}
	}
	if t.disk != nil {
		value, ok, err := kvstore.GetJSON[T](ctx, t.disk, t.key)
		switch {
		case err != nil:
			t.logger.Warn("cache read failed", zap.String("key", t.key), zap.Error(err))
		case ok:
			if t.memory != nil {
				t.memory.Add(t.key, value)
			}
			return value, OriginDisk
		}
	}
	if t.seed != nil {
		return t.seed(), OriginSeed
	}
	var zero T
	return zero, OriginNone
}

// Put stores value in both local tiers.
func (t *Tiered[T]) Put(ctx context.Context, value T) error {
	if t.memory != nil {
		t.memory.Add(t.key, value)
	}
	if t.disk == nil {
		return nil
	}
	if err := kvstore.SetJSON(ctx, t.disk, t.key, value); err != nil {
		return fmt.Errorf("persist %s: %w", t.key, err)
	}
	return nil
}
