package controller

import (
	"time"

	"github.com/golang/glog"

	"github.com/h3tier/h3cache/store"
)

// MetaExpiresAt names the absolute wall-clock deadline after which an
// object is deleted from cold (§6.3).
const MetaExpiresAt = "ExpiresAt"

// ObjectExpiration is the object-expiration controller (G), §4.7,
// transliterated from
// h3controllers/pyh3controllers/expiresAtController.py. It is a
// single-shot pass over cold alone; the spec leaves its scheduling to
// the operator ("may be scheduled externally"), so unlike Eviction and
// CacheExpiration it takes no storage lock.
type ObjectExpiration struct {
	cold store.Driver
}

// NewObjectExpiration builds an ObjectExpiration controller over cold.
func NewObjectExpiration(cold store.Driver) *ObjectExpiration {
	return &ObjectExpiration{cold: cold}
}

// Run captures wall-clock now once, then deletes every cold object
// whose ExpiresAt metadata has passed. Deletion is idempotent, so no
// locking is required even against a concurrent pass.
func (o *ObjectExpiration) Run() error {
	now := float64(time.Now().Unix())
	buckets, err := o.cold.ListBuckets(0)
	if err != nil {
		return err
	}

	var deleted int
	for _, bucket := range buckets {
		offset := 0
		for {
			names, done, next, err := o.cold.ListObjectsWithMetadata(bucket, MetaExpiresAt, offset, 0)
			if err != nil {
				return err
			}
			for _, object := range names {
				raw, _, err := o.cold.ReadObjectMetadata(bucket, object, MetaExpiresAt, 0)
				if err != nil {
					if store.Is(err, store.KindNotExists) {
						continue
					}
					return err
				}
				expiresAt, err := store.DecodeTime(raw)
				if err != nil {
					continue // metadata parse error: skip this object
				}
				if expiresAt > now {
					continue
				}
				if err := o.cold.DeleteObject(bucket, object, 0); err != nil && !store.Is(err, store.KindNotExists) {
					return err
				}
				deleted++
			}
			if done {
				break
			}
			offset = next
		}
	}
	glog.V(3).Infof("object-expiration: deleted %d objects", deleted)
	return nil
}
