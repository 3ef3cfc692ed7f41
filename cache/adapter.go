// Package cache implements the two-tier cache adapter: a hot store.Driver
// fronting a cold, authoritative store.Driver, transliterated from the
// H3Cache facade.
/*
 * Copyright (c) 2019-2024, FORTH-ICS. All rights reserved.
 */
package cache

import (
	"time"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/h3tier/h3cache/store"
)

// MetaCachedAt is stamped on the cold copy of an object every time it is
// populated into hot, recording the most recent population time.
const MetaCachedAt = "CachedAt"

// Adapter exposes the full store.Driver surface across two handles. The
// cold store is always authoritative for existence and metadata; hot is
// a transient byte cache the lifecycle controllers may tear down at any
// time. Beyond the two handles Adapter holds only its atomic
// hit/miss/populate/writeback counters, so it needs no internal locking
// of its own.
type Adapter struct {
	hot, cold store.Driver
	userID    int
	stats     *Stats
}

// New opens the hot and cold driver handles named by the given URIs
// (scheme://location, resolved through store.Open) and returns an
// Adapter bound to userID.
func New(hotURI, coldURI string, userID int) (*Adapter, error) {
	hot, err := store.Open(hotURI)
	if err != nil {
		return nil, err
	}
	cold, err := store.Open(coldURI)
	if err != nil {
		return nil, err
	}
	return &Adapter{hot: hot, cold: cold, userID: userID, stats: newStats()}, nil
}

// NewWithDrivers builds an Adapter directly from two already-open
// drivers, bypassing store.Open. Used by cmd/h3cachectl, which shares
// the same handles with the lifecycle controllers, and by tests that
// need to assert on the hot and cold handles independently.
func NewWithDrivers(hot, cold store.Driver, userID int) *Adapter {
	return &Adapter{hot: hot, cold: cold, userID: userID, stats: newStats()}
}

// Stat returns a snapshot of the adapter's hit/miss/populate/writeback
// counters.
func (a *Adapter) Stat() Stats { return a.stats.snapshot() }

// Collectors exposes the adapter's prometheus counters for registration
// against an operator's metrics registry.
func (a *Adapter) Collectors() []prometheus.Collector { return a.stats.Collectors() }

// RecordWriteback increments the writeback counter. The eviction and
// cache-expiration controllers call this after a successful
// copy.WriteBack, since write-back is driven against the hot/cold
// handles directly rather than through the adapter.
func (a *Adapter) RecordWriteback() { a.stats.writeback.Inc() }

// populate streams bucket/object from cold into memory in full, ensures
// the hot bucket exists, writes the bytes to hot at offset 0, and stamps
// CachedAt on the cold object. It returns the populated bytes.
func (a *Adapter) populate(bucket, object string) ([]byte, error) {
	var data []byte
	var offset int64
	for {
		chunk, done, err := a.cold.ReadObject(bucket, object, offset, 0, a.userID)
		if err != nil {
			return nil, err
		}
		data = append(data, chunk...)
		offset += int64(len(chunk))
		if done {
			break
		}
	}

	if err := a.hot.CreateBucket(bucket, a.userID); err != nil && !store.Is(err, store.KindExists) {
		return nil, err
	}
	if err := a.hot.WriteObject(bucket, object, data, 0, a.userID); err != nil {
		return nil, err
	}

	stamp := store.EncodeTime(time.Now())
	if err := a.cold.CreateObjectMetadata(bucket, object, MetaCachedAt, stamp, a.userID); err != nil {
		return nil, err
	}
	a.stats.populate.Inc()
	glog.V(4).Infof("cache: populated %s/%s (%d bytes)", bucket, object, len(data))
	return data, nil
}

// WriteObject implements store.Driver. See spec §4.3 for the exact
// branching (offset==0 fast path vs populate-then-write, falling back
// to a direct cold write on a hot Store/Failure error).
func (a *Adapter) WriteObject(bucket, object string, data []byte, offset int64, userID int) error {
	err := a.writeToHot(bucket, object, data, offset)
	if err == nil {
		return nil
	}
	if store.Is(err, store.KindStore) || store.Is(err, store.KindFailure) {
		glog.V(4).Infof("cache: hot write failed for %s/%s, falling back to cold: %v", bucket, object, err)
		return a.cold.WriteObject(bucket, object, data, offset, userID)
	}
	return err
}

func (a *Adapter) writeToHot(bucket, object string, data []byte, offset int64) error {
	if offset == 0 {
		if err := a.hot.CreateBucket(bucket, a.userID); err != nil && !store.Is(err, store.KindExists) {
			return err
		}
		if err := a.hot.DeleteObject(bucket, object, a.userID); err != nil && !store.Is(err, store.KindNotExists) {
			return err
		}
		return a.hot.WriteObject(bucket, object, data, 0, a.userID)
	}

	if _, err := a.hot.InfoObject(bucket, object, a.userID); err != nil {
		if !store.Is(err, store.KindNotExists) {
			return err
		}
		if _, perr := a.populate(bucket, object); perr != nil {
			return perr
		}
	}
	return a.hot.WriteObject(bucket, object, data, offset, a.userID)
}

// ReadObject implements store.Driver. Hot hit returns directly; hot miss
// populates from cold then serves the requested range out of the
// populated bytes; a hot Store/Failure error is served directly from
// cold without populating.
func (a *Adapter) ReadObject(bucket, object string, offset, size int64, userID int) ([]byte, bool, error) {
	data, done, err := a.hot.ReadObject(bucket, object, offset, size, userID)
	if err == nil {
		a.stats.hit.Inc()
		return data, done, nil
	}
	if store.Is(err, store.KindNotExists) {
		a.stats.miss.Inc()
		full, perr := a.populate(bucket, object)
		if perr != nil {
			return nil, true, perr
		}
		return sliceRange(full, offset, size), true, nil
	}
	if store.Is(err, store.KindStore) || store.Is(err, store.KindFailure) {
		return a.cold.ReadObject(bucket, object, offset, size, userID)
	}
	return nil, true, err
}

func sliceRange(data []byte, offset, size int64) []byte {
	if offset < 0 || offset > int64(len(data)) {
		return nil
	}
	end := int64(len(data))
	if size > 0 && offset+size < end {
		end = offset + size
	}
	return append([]byte(nil), data[offset:end]...)
}

// ReadObjectToFile mirrors ReadObject's hit/miss/fallback structure, but
// issues the final read against the hot tier as a file read.
func (a *Adapter) ReadObjectToFile(bucket, object, filename string, offset, size int64, userID int) (bool, error) {
	done, err := a.hot.ReadObjectToFile(bucket, object, filename, offset, size, userID)
	if err == nil {
		a.stats.hit.Inc()
		return done, nil
	}
	if store.Is(err, store.KindNotExists) {
		a.stats.miss.Inc()
		if _, perr := a.populate(bucket, object); perr != nil {
			return false, perr
		}
		return a.hot.ReadObjectToFile(bucket, object, filename, offset, size, userID)
	}
	if store.Is(err, store.KindStore) || store.Is(err, store.KindFailure) {
		return a.cold.ReadObjectToFile(bucket, object, filename, offset, size, userID)
	}
	return false, err
}

// Everything below delegates unconditionally to cold: the cache adapter
// only special-cases the byte path, per spec §4.3.

func (a *Adapter) ListBuckets(userID int) ([]string, error) { return a.cold.ListBuckets(userID) }
func (a *Adapter) CreateBucket(bucket string, userID int) error {
	return a.cold.CreateBucket(bucket, userID)
}
func (a *Adapter) DeleteBucket(bucket string, userID int) error {
	return a.cold.DeleteBucket(bucket, userID)
}
func (a *Adapter) PurgeBucket(bucket string, userID int) error {
	return a.cold.PurgeBucket(bucket, userID)
}
func (a *Adapter) InfoBucket(bucket string, includeStats bool, userID int) (store.BucketInfo, error) {
	return a.cold.InfoBucket(bucket, includeStats, userID)
}
func (a *Adapter) ListObjects(bucket, prefix string, offset, count int, userID int) ([]string, bool, int, error) {
	return a.cold.ListObjects(bucket, prefix, offset, count, userID)
}
func (a *Adapter) InfoObject(bucket, object string, userID int) (store.ObjectInfo, error) {
	return a.cold.InfoObject(bucket, object, userID)
}
func (a *Adapter) CreateObject(bucket, object string, data []byte, userID int) error {
	return a.cold.CreateObject(bucket, object, data, userID)
}
func (a *Adapter) WriteObjectFromFile(bucket, object, filename string, offset int64, userID int) error {
	return a.cold.WriteObjectFromFile(bucket, object, filename, offset, userID)
}
func (a *Adapter) DeleteObject(bucket, object string, userID int) error {
	return a.cold.DeleteObject(bucket, object, userID)
}
func (a *Adapter) TruncateObject(bucket, object string, size int64, userID int) error {
	return a.cold.TruncateObject(bucket, object, size, userID)
}
func (a *Adapter) CopyObject(bucket, src, dst string, noOverwrite bool, userID int) error {
	return a.cold.CopyObject(bucket, src, dst, noOverwrite, userID)
}
func (a *Adapter) MoveObject(bucket, src, dst string, noOverwrite bool, userID int) error {
	return a.cold.MoveObject(bucket, src, dst, noOverwrite, userID)
}
func (a *Adapter) ExchangeObject(bucket, src, dst string, userID int) error {
	return a.cold.ExchangeObject(bucket, src, dst, userID)
}
func (a *Adapter) CreateObjectCopy(bucket, src string, offset, size int64, dst string, userID int) (int64, error) {
	return a.cold.CreateObjectCopy(bucket, src, offset, size, dst, userID)
}
func (a *Adapter) CreateObjectMetadata(bucket, object, name string, value []byte, userID int) error {
	return a.cold.CreateObjectMetadata(bucket, object, name, value, userID)
}
func (a *Adapter) ReadObjectMetadata(bucket, object, name string, userID int) ([]byte, bool, error) {
	return a.cold.ReadObjectMetadata(bucket, object, name, userID)
}
func (a *Adapter) DeleteObjectMetadata(bucket, object, name string, userID int) error {
	return a.cold.DeleteObjectMetadata(bucket, object, name, userID)
}
func (a *Adapter) ListObjectsWithMetadata(bucket, name string, offset int, userID int) ([]string, bool, int, error) {
	return a.cold.ListObjectsWithMetadata(bucket, name, offset, userID)
}
func (a *Adapter) ListMultiparts(bucket string, offset, count int, userID int) ([]string, bool, int, error) {
	return a.cold.ListMultiparts(bucket, offset, count, userID)
}
func (a *Adapter) CreateMultipart(bucket, object string, userID int) (string, error) {
	return a.cold.CreateMultipart(bucket, object, userID)
}
func (a *Adapter) CompleteMultipart(multipartID string, userID int) error {
	return a.cold.CompleteMultipart(multipartID, userID)
}
func (a *Adapter) AbortMultipart(multipartID string, userID int) error {
	return a.cold.AbortMultipart(multipartID, userID)
}
func (a *Adapter) ListParts(multipartID string, userID int) ([]store.Part, error) {
	return a.cold.ListParts(multipartID, userID)
}
func (a *Adapter) CreatePart(multipartID string, partNumber int, data []byte, userID int) error {
	return a.cold.CreatePart(multipartID, partNumber, data, userID)
}
func (a *Adapter) CreatePartCopy(object string, offset, size int64, multipartID string, partNumber int, userID int) error {
	return a.cold.CreatePartCopy(object, offset, size, multipartID, partNumber, userID)
}
func (a *Adapter) InfoStorage() (int64, int64, error) { return a.cold.InfoStorage() }
func (a *Adapter) TouchObject(bucket, object string, lastAccess, lastModification int64, userID int) error {
	return a.cold.TouchObject(bucket, object, lastAccess, lastModification, userID)
}
func (a *Adapter) SetObjectPermissions(bucket, object string, mode int, userID int) error {
	return a.cold.SetObjectPermissions(bucket, object, mode, userID)
}
func (a *Adapter) MakeObjectReadOnly(bucket, object string, userID int) error {
	return a.cold.MakeObjectReadOnly(bucket, object, userID)
}
func (a *Adapter) SetObjectOwner(bucket, object string, uid, gid int, userID int) error {
	return a.cold.SetObjectOwner(bucket, object, uid, gid, userID)
}

var _ store.Driver = (*Adapter)(nil)
