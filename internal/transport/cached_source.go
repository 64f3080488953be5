package transport

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	memcache "github.com/dswarm/dswarm/internal/cache/memory"
)

type CacheConfig struct {
	TTL        time.Duration
	MaxEntries int
	MaxBytes   int
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL:        5 * time.Minute,
		MaxEntries: 256,
		MaxBytes:   32 * 1024 * 1024, // 32MiB
	}
}

type CacheStats struct {
	Hits      uint64
	Misses    uint64
	OriginErr uint64
}

// CachedSource is a read-through cache in front of another source.
// Failed fetches are not cached.
type CachedSource struct {
	origin DocumentSource
	docs   *memcache.LRUTTL[string, []byte]

	hits      atomic.Uint64
	misses    atomic.Uint64
	originErr atomic.Uint64
}

func NewCachedSource(origin DocumentSource, cfg CacheConfig) *CachedSource {
	def := DefaultCacheConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = def.MaxEntries
	}
	if cfg.MaxBytes < 0 {
		cfg.MaxBytes = def.MaxBytes
	}
	return &CachedSource{
		origin: origin,
		docs:   memcache.NewLRUTTL[string, []byte](cfg.MaxEntries, cfg.MaxBytes, cfg.TTL),
	}
}

func (s *CachedSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	key := strings.Trim(strings.TrimSpace(name), "/")
	if raw, ok := s.docs.Get(key); ok {
		s.hits.Add(1)
		return append([]byte(nil), raw...), nil
	}
	s.misses.Add(1)

	raw, err := s.origin.Fetch(ctx, name)
	if err != nil {
		s.originErr.Add(1)
		return nil, err
	}
	copied := append([]byte(nil), raw...)
	s.docs.Set(key, copied, len(copied))
	return raw, nil
}

// Invalidate drops a cached document.
func (s *CachedSource) Invalidate(name string) {
	s.docs.Delete(strings.Trim(strings.TrimSpace(name), "/"))
}

func (s *CachedSource) Stats() CacheStats {
	if s == nil {
		return CacheStats{}
	}
	return CacheStats{
		Hits:      s.hits.Load(),
		Misses:    s.misses.Load(),
		OriginErr: s.originErr.Load(),
	}
}
