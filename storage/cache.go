package storage

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"lukechampine.com/blake3"
)

// elementCacheEntries bounds the element cache GroveStore (store.go)
// keeps in front of its in-memory subtree lookups, mirroring the
// teacher's defaultCacheEntries constant in core/storage.go but applied
// to decoded elements instead of raw IPFS blobs, and keyed by a blake3
// digest rather than the CID string so cache keys stay fixed-size
// regardless of path/key length.
const elementCacheEntries = 10_000

// elementCache is an in-process LRU of decoded Elements keyed by a blake3
// hash of (path, key), cutting repeated subtree descents for hot reads
// without weakening the authenticated root hash, which is always derived
// from the underlying Subtree rather than the cache.
type elementCache struct {
	inner *lru.Cache[[32]byte, Element]
}

func newElementCache(size int) *elementCache {
	if size <= 0 {
		size = elementCacheEntries
	}
	c, err := lru.New[[32]byte, Element](size)
	if err != nil {
		// Only returned by hashicorp/golang-lru for a non-positive size,
		// already guarded above.
		panic(err)
	}
	return &elementCache{inner: c}
}

func cacheKey(path [][]byte, key []byte) [32]byte {
	h := blake3.New(32, nil)
	for _, seg := range path {
		h.Write(seg)
		h.Write([]byte{0})
	}
	h.Write(key)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func (c *elementCache) get(path [][]byte, key []byte) (Element, bool) {
	return c.inner.Get(cacheKey(path, key))
}

func (c *elementCache) put(path [][]byte, key []byte, e Element) {
	c.inner.Add(cacheKey(path, key), e)
}

func (c *elementCache) invalidate(path [][]byte, key []byte) {
	c.inner.Remove(cacheKey(path, key))
}
