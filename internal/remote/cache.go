package remote

import (
	"encoding/json"
	"fmt"

	"github.com/VictoriaMetrics/fastcache"

	"github.com/roach88/gridview/internal/query"
)

// DefaultCacheBytes is a reasonable capacity to pass to WithCacheBytes.
// Caching stays off unless that option is given.
const DefaultCacheBytes = 32 << 20

// resultCache holds encoded page results keyed by view and canonical params.
// Entries are evicted by fastcache when the capacity is reached.
type resultCache struct {
	cache *fastcache.Cache
}

func newResultCache(maxBytes int) *resultCache {
	return &resultCache{cache: fastcache.New(maxBytes)}
}

func cacheKey(viewID string, params query.ListParams) ([]byte, error) {
	k, err := params.Key()
	if err != nil {
		return nil, fmt.Errorf("cache key: %w", err)
	}
	out := make([]byte, 0, len(viewID)+1+len(k))
	out = append(out, viewID...)
	out = append(out, 0)
	return append(out, k...), nil
}

func (c *resultCache) get(key []byte) (PageResult, bool) {
	data := c.cache.GetBig(nil, key)
	if len(data) == 0 {
		return PageResult{}, false
	}
	var res PageResult
	if err := json.Unmarshal(data, &res); err != nil {
		return PageResult{}, false
	}
	return res, true
}

func (c *resultCache) put(key []byte, res PageResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode cached result: %w", err)
	}
	c.cache.SetBig(key, data)
	return nil
}

func (c *resultCache) reset() {
	c.cache.Reset()
}
