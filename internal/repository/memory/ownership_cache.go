package memory

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// OwnershipCache remembers which user owns which chat session so hot
// request paths can skip a database round trip. Entries expire on their
// own; deletes must still invalidate eagerly so a removed session never
// passes an ownership check.
type OwnershipCache struct {
	cache *cache.Cache
}

func NewOwnershipCache() *OwnershipCache {
	// Default expiration of 1 hour, purge sweep every 10 minutes.
	c := cache.New(1*time.Hour, 10*time.Minute)
	return &OwnershipCache{
		cache: c,
	}
}

func (r *OwnershipCache) Save(sessionId, userId string) {
	r.cache.Set(sessionId, userId, cache.DefaultExpiration)
}

func (r *OwnershipCache) Get(sessionId string) (string, bool) {
	if x, found := r.cache.Get(sessionId); found {
		return x.(string), true
	}
	return "", false
}

func (r *OwnershipCache) Delete(sessionId string) {
	r.cache.Delete(sessionId)
}
