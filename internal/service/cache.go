package service

import (
	"time"

	"athlos/cert-portal/internal/domain"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// recordCache is a per-instance LRU cache of certificate records with a
// TTL, keyed by the store-assigned id. It only fronts the single-record
// download path; list queries always go to the store.
type recordCache struct {
	cache *expirable.LRU[string, *domain.Certificate]
}

func newRecordCache(maxSize int, ttl time.Duration) *recordCache {
	return &recordCache{
		cache: expirable.NewLRU[string, *domain.Certificate](maxSize, nil, ttl),
	}
}

func (c *recordCache) Get(id string) (*domain.Certificate, bool) {
	return c.cache.Get(id)
}

func (c *recordCache) Set(id string, cert *domain.Certificate) {
	c.cache.Add(id, cert)
}

func (c *recordCache) Delete(id string) {
	c.cache.Remove(id)
}
