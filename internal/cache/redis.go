// Package cache keeps facet reference lists in Redis so name resolution does
// not hit Postgres on every discovery request.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"github.com/dealscout/dealscout/internal/model"
)

const (
	keyPrefix  = "dealscout:facets:"
	DefaultTTL = 5 * time.Minute
)

// Connect parses url, opens a client and pings it.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, eris.Wrap(err, "cache: parse redis url")
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, eris.Wrap(err, "cache: ping redis")
	}
	return rdb, nil
}

// FacetCache implements discovery.FacetCache on Redis. Lists are stored as
// JSON under one key per kind and expire after ttl.
type FacetCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewFacetCache creates a FacetCache. ttl <= 0 means DefaultTTL.
func NewFacetCache(rdb redis.Cmdable, ttl time.Duration) *FacetCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &FacetCache{rdb: rdb, ttl: ttl}
}

func key(kind model.FacetKind) string {
	return keyPrefix + string(kind)
}

// GetFacets returns ok=false on a miss.
func (c *FacetCache) GetFacets(ctx context.Context, kind model.FacetKind) ([]model.Facet, bool, error) {
	raw, err := c.rdb.Get(ctx, key(kind)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrapf(err, "cache: get %s facets", kind)
	}

	var facets []model.Facet
	if err := json.Unmarshal(raw, &facets); err != nil {
		return nil, false, eris.Wrapf(err, "cache: decode %s facets", kind)
	}
	return facets, true, nil
}

// SetFacets stores facets for kind.
func (c *FacetCache) SetFacets(ctx context.Context, kind model.FacetKind, facets []model.Facet) error {
	if facets == nil {
		facets = []model.Facet{}
	}
	raw, err := json.Marshal(facets)
	if err != nil {
		return eris.Wrapf(err, "cache: encode %s facets", kind)
	}
	return eris.Wrapf(c.rdb.Set(ctx, key(kind), raw, c.ttl).Err(), "cache: set %s facets", kind)
}

// Invalidate drops the cached lists of every kind.
func (c *FacetCache) Invalidate(ctx context.Context) error {
	keys := make([]string, 0, len(model.FacetKinds))
	for _, k := range model.FacetKinds {
		keys = append(keys, key(k))
	}
	return eris.Wrap(c.rdb.Del(ctx, keys...).Err(), "cache: invalidate facets")
}
