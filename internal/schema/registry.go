package schema

import (
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultRegistrySize = 256

// Registry caches decoded definitions by document content.
type Registry struct {
	cache *lru.Cache[string, *Definition]
}

func NewRegistry(size int) (*Registry, error) {
	if size <= 0 {
		size = defaultRegistrySize
	}
	cache, err := lru.New[string, *Definition](size)
	if err != nil {
		return nil, err
	}
	return &Registry{cache: cache}, nil
}

// Load returns the cached definition for raw, decoding it on first use.
func (r *Registry) Load(name string, raw []byte) (*Definition, error) {
	if r == nil || r.cache == nil {
		return Load(name, raw)
	}
	key := registryKey(name, raw)
	if def, ok := r.cache.Get(key); ok {
		return def, nil
	}
	def, err := Load(name, raw)
	if err != nil {
		return nil, err
	}
	r.cache.Add(key, def)
	return def, nil
}

// Len reports the number of cached definitions.
func (r *Registry) Len() int {
	if r == nil || r.cache == nil {
		return 0
	}
	return r.cache.Len()
}

func registryKey(name string, raw []byte) string {
	sum := sha256.Sum256(raw)
	format := "json"
	if isYAML(name) {
		format = "yaml"
	}
	return format + ":" + hex.EncodeToString(sum[:])
}
