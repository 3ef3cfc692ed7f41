package controller

import (
	"time"

	"github.com/golang/glog"

	"github.com/h3tier/h3cache/store"
)

// MetaReadOnlyAfter names the seconds-past-last-modification value
// after which an object is frozen read-only (§6.3).
const MetaReadOnlyAfter = "ReadOnlyAfter"

// ReadOnlyAfter is the read-only-after controller (H), §4.8,
// transliterated from h3controllers/readOnlyAfterController.py,
// adopting the spec's corrected comparison direction: an object
// becomes read-only once now >= last_modification + ReadOnlyAfter. Like
// ObjectExpiration, it is single-shot, cold-only, and idempotent, so it
// takes no storage lock.
type ReadOnlyAfter struct {
	cold store.Driver
}

// NewReadOnlyAfter builds a ReadOnlyAfter controller over cold.
func NewReadOnlyAfter(cold store.Driver) *ReadOnlyAfter {
	return &ReadOnlyAfter{cold: cold}
}

// Run captures wall-clock now once, then flips every eligible cold
// object to read-only.
func (r *ReadOnlyAfter) Run() error {
	now := float64(time.Now().Unix())
	buckets, err := r.cold.ListBuckets(0)
	if err != nil {
		return err
	}

	var flipped int
	for _, bucket := range buckets {
		offset := 0
		for {
			names, done, next, err := r.cold.ListObjectsWithMetadata(bucket, MetaReadOnlyAfter, offset, 0)
			if err != nil {
				return err
			}
			for _, object := range names {
				ok, err := r.maybeFreeze(bucket, object, now)
				if err != nil {
					return err
				}
				if ok {
					flipped++
				}
			}
			if done {
				break
			}
			offset = next
		}
	}
	glog.V(3).Infof("read-only-after: froze %d objects", flipped)
	return nil
}

func (r *ReadOnlyAfter) maybeFreeze(bucket, object string, now float64) (bool, error) {
	raw, _, err := r.cold.ReadObjectMetadata(bucket, object, MetaReadOnlyAfter, 0)
	if err != nil {
		if store.Is(err, store.KindNotExists) {
			return false, nil
		}
		return false, err
	}
	readOnlyAfter, err := store.DecodeTime(raw)
	if err != nil {
		return false, nil // metadata parse error: skip this object
	}

	info, err := r.cold.InfoObject(bucket, object, 0)
	if err != nil {
		if store.Is(err, store.KindNotExists) {
			return false, nil
		}
		return false, err
	}
	if info.ReadOnly {
		return false, nil
	}
	if now < float64(info.LastModification)+readOnlyAfter {
		return false, nil
	}
	if err := r.cold.MakeObjectReadOnly(bucket, object, 0); err != nil {
		return false, err
	}
	return true, nil
}
