package controller

import (
	"context"
	"time"

	"github.com/golang/glog"

	"github.com/h3tier/h3cache/copy"
	"github.com/h3tier/h3cache/store"
)

const (
	// MetaCachedAt names the cold metadata entry the cache adapter
	// stamps on every populate (§6.3).
	MetaCachedAt = "CachedAt"
	// MetaExpireFromCache names the optional per-object write-back
	// deadline (§6.3).
	MetaExpireFromCache = "ExpireFromCache"
)

// CacheExpiration is the cache-expiration controller (F), §4.6,
// grounded on burst/cacheController.py::move_to_cold with the sign
// correction spec §9 calls for: a per-object deadline or the global TTL
// writes the hot copy back to cold.
type CacheExpiration struct {
	hot, cold          store.Driver
	lock               *Lock
	globalExpiresTime  time.Duration
	onWriteback        func()
}

// NewCacheExpiration builds a CacheExpiration controller sharing lock
// with the Eviction controller.
func NewCacheExpiration(hot, cold store.Driver, lock *Lock, globalExpiresTime time.Duration, onWriteback func()) *CacheExpiration {
	return &CacheExpiration{hot: hot, cold: cold, lock: lock, globalExpiresTime: globalExpiresTime, onWriteback: onWriteback}
}

// Run performs one cache-expiration pass over every (bucket, object) in
// the hot tier.
func (c *CacheExpiration) Run(ctx context.Context) error {
	release := c.lock.Acquire()
	defer release()

	now := time.Now().Unix()
	buckets, err := c.hot.ListBuckets(0)
	if err != nil {
		return err
	}

	var writtenBack int
	for _, bucket := range buckets {
		offset := 0
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			names, done, next, err := c.hot.ListObjects(bucket, "", offset, 0, 0)
			if err != nil {
				return err
			}
			for _, object := range names {
				wrote, err := c.expireOne(ctx, bucket, object, now)
				if err != nil {
					return err
				}
				if wrote {
					writtenBack++
				}
			}
			if done {
				break
			}
			offset = next
		}
	}
	glog.V(3).Infof("cache-expiration: wrote back %d objects", writtenBack)
	return nil
}

func (c *CacheExpiration) expireOne(ctx context.Context, bucket, object string, now int64) (bool, error) {
	cachedAtRaw, _, err := c.cold.ReadObjectMetadata(bucket, object, MetaCachedAt, 0)
	if err != nil {
		if store.Is(err, store.KindNotExists) {
			return false, nil
		}
		return false, err
	}
	cachedAt, err := store.DecodeTime(cachedAtRaw)
	if err != nil {
		return false, nil
	}

	var expireFromCache float64
	hasDeadline := false
	expireRaw, _, err := c.cold.ReadObjectMetadata(bucket, object, MetaExpireFromCache, 0)
	if err == nil {
		expireFromCache, err = store.DecodeTime(expireRaw)
		hasDeadline = err == nil
	} else if !store.Is(err, store.KindNotExists) {
		return false, err
	}

	switch {
	case hasDeadline && expireFromCache <= float64(now):
		if err := copy.WriteBack(ctx, c.hot, c.cold, bucket, object, []string{MetaCachedAt, MetaExpireFromCache}); err != nil {
			return false, err
		}
		if c.onWriteback != nil {
			c.onWriteback()
		}
		return true, nil
	case cachedAt+c.globalExpiresTime.Seconds() <= float64(now):
		if err := copy.WriteBack(ctx, c.hot, c.cold, bucket, object, []string{MetaCachedAt}); err != nil {
			return false, err
		}
		if c.onWriteback != nil {
			c.onWriteback()
		}
		return true, nil
	default:
		return false, nil
	}
}
