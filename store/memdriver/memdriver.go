// Package memdriver implements store.Driver entirely in memory, registered
// under the "mem" scheme. It is the default driver used by tests and by
// the cache adapter's own test suites for both the hot and cold tiers.
/*
 * Copyright (c) 2019-2024, FORTH-ICS. All rights reserved.
 */
package memdriver

import (
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/h3tier/h3cache/store"
)

func init() {
	store.Register("mem", func(location string) (store.Driver, error) {
		return New(), nil
	})
}

type object struct {
	data     []byte
	meta     map[string][]byte
	created  int64
	access   int64
	modified int64
	changed  int64
	readOnly bool
}

type bucket struct {
	creation int64
	objects  map[string]*object
}

type multipart struct {
	bucket, object string
	parts          map[int][]byte
}

// Driver is an in-memory, mutex-protected implementation of store.Driver.
// Shape grounded on the map-of-buckets/map-of-objects layout surveyed in
// the pack's objcache.go reference.
type Driver struct {
	mu         sync.RWMutex
	buckets    map[string]*bucket
	multiparts map[string]*multipart
	totalSpace int64
}

// New returns an empty in-memory driver with a generous default capacity;
// tests override totalSpace via SetTotalSpace to exercise watermarks.
func New() *Driver {
	return &Driver{
		buckets:    make(map[string]*bucket),
		multiparts: make(map[string]*multipart),
		totalSpace: 1 << 30, // 1 GiB default
	}
}

// SetTotalSpace overrides the capacity reported by InfoStorage, letting
// eviction-controller tests drive watermark crossings deterministically.
func (d *Driver) SetTotalSpace(n int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.totalSpace = n
}

func now() int64 { return time.Now().UnixNano() / int64(time.Second) }

func (d *Driver) ListBuckets(int) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.buckets))
	for name := range d.buckets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (d *Driver) CreateBucket(name string, _ int) error {
	if len(name) > store.MaxBucketNameSize {
		return store.ErrNameTooLong("create_bucket")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.buckets[name]; ok {
		return store.ErrExists("create_bucket")
	}
	d.buckets[name] = &bucket{creation: now(), objects: make(map[string]*object)}
	return nil
}

func (d *Driver) DeleteBucket(name string, _ int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buckets[name]
	if !ok {
		return store.ErrNotExists("delete_bucket")
	}
	if len(b.objects) > 0 {
		return store.NewError(store.KindInvalidArgs, "delete_bucket", nil)
	}
	delete(d.buckets, name)
	return nil
}

func (d *Driver) PurgeBucket(name string, _ int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buckets[name]
	if !ok {
		return store.ErrNotExists("purge_bucket")
	}
	b.objects = make(map[string]*object)
	return nil
}

func (d *Driver) InfoBucket(name string, includeStats bool, _ int) (store.BucketInfo, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	b, ok := d.buckets[name]
	if !ok {
		return store.BucketInfo{}, store.ErrNotExists("info_bucket")
	}
	info := store.BucketInfo{Creation: b.creation}
	if includeStats {
		st := &store.BucketStats{}
		for _, o := range b.objects {
			st.Size += int64(len(o.data))
			st.Count++
			if o.access > st.LastAccess {
				st.LastAccess = o.access
			}
			if o.modified > st.LastModification {
				st.LastModification = o.modified
			}
		}
		info.Stats = st
	}
	return info, nil
}

func (d *Driver) ListObjects(bucketName, prefix string, offset, count int, _ int) ([]string, bool, int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	b, ok := d.buckets[bucketName]
	if !ok {
		return nil, true, 0, store.ErrNotExists("list_objects")
	}
	names := make([]string, 0, len(b.objects))
	for name := range b.objects {
		if prefix == "" || strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return paginate(names, offset, count)
}

func (d *Driver) ListObjectsWithMetadata(bucketName, metaName string, offset int, _ int) ([]string, bool, int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	b, ok := d.buckets[bucketName]
	if !ok {
		return nil, true, 0, store.ErrNotExists("list_objects_with_metadata")
	}
	names := make([]string, 0)
	for name, o := range b.objects {
		if _, ok := o.meta[metaName]; ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	const pageSize = 10000
	return paginate(names, offset, pageSize)
}

func paginate(names []string, offset, count int) ([]string, bool, int, error) {
	if offset > len(names) {
		offset = len(names)
	}
	if count <= 0 {
		count = 10000
	}
	end := offset + count
	done := end >= len(names)
	if done {
		end = len(names)
	}
	return names[offset:end], done, end, nil
}

func (d *Driver) getObject(bucketName, objectName string) (*bucket, *object, error) {
	b, ok := d.buckets[bucketName]
	if !ok {
		return nil, nil, store.ErrNotExists("info_object")
	}
	o, ok := b.objects[objectName]
	if !ok {
		return b, nil, store.ErrNotExists("info_object")
	}
	return b, o, nil
}

func (d *Driver) InfoObject(bucketName, objectName string, _ int) (store.ObjectInfo, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, o, err := d.getObject(bucketName, objectName)
	if err != nil {
		return store.ObjectInfo{}, err
	}
	return store.ObjectInfo{
		Size:             int64(len(o.data)),
		Creation:         o.created,
		LastAccess:       o.access,
		LastModification: o.modified,
		LastChange:       o.changed,
		ReadOnly:         o.readOnly,
	}, nil
}

func (d *Driver) CreateObject(bucketName, objectName string, data []byte, _ int) error {
	if len(objectName) > store.MaxObjectNameSize {
		return store.ErrNameTooLong("create_object")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buckets[bucketName]
	if !ok {
		return store.ErrNotExists("create_object")
	}
	if _, ok := b.objects[objectName]; ok {
		return store.ErrExists("create_object")
	}
	t := now()
	cp := append([]byte(nil), data...)
	b.objects[objectName] = &object{data: cp, meta: map[string][]byte{}, created: t, access: t, modified: t, changed: t}
	return nil
}

func (d *Driver) WriteObject(bucketName, objectName string, data []byte, offset int64, _ int) error {
	if offset < 0 {
		return store.ErrInvalidArgs("write_object", "negative offset")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buckets[bucketName]
	if !ok {
		return store.ErrNotExists("write_object")
	}
	o, ok := b.objects[objectName]
	t := now()
	if !ok {
		o = &object{meta: map[string][]byte{}, created: t}
		b.objects[objectName] = o
	}
	end := offset + int64(len(data))
	if int64(len(o.data)) < end {
		grown := make([]byte, end)
		copy(grown, o.data)
		o.data = grown
	}
	copy(o.data[offset:end], data)
	o.modified, o.changed, o.access = t, t, t
	return nil
}

func (d *Driver) ReadObject(bucketName, objectName string, offset, size int64, _ int) ([]byte, bool, error) {
	const maxChunk = int64(4 << 20) // 4 MiB per call, forcing multi-call iteration on large objects
	d.mu.Lock()
	defer d.mu.Unlock()
	_, o, err := d.getObject(bucketName, objectName)
	if err != nil {
		return nil, true, err
	}
	if offset < 0 || offset > int64(len(o.data)) {
		return nil, true, store.ErrInvalidArgs("read_object", "offset out of range")
	}
	o.access = now()
	remaining := int64(len(o.data)) - offset
	want := remaining
	if size > 0 && size < want {
		want = size
	}
	if want > maxChunk {
		want = maxChunk
	}
	out := append([]byte(nil), o.data[offset:offset+want]...)
	done := offset+want >= int64(len(o.data))
	if size > 0 {
		done = want >= size || offset+want >= int64(len(o.data))
	}
	return out, done, nil
}

// ReadObjectToFile copies the requested byte range onto local disk at
// the same offset in filename. The cache adapter's ReadObjectToFile
// calls it on the hot tier; populating hot itself goes through
// ReadObject/WriteObject, not through this method.
func (d *Driver) ReadObjectToFile(bucketName, objectName, filename string, offset, size int64, _ int) (bool, error) {
	d.mu.RLock()
	_, o, err := d.getObject(bucketName, objectName)
	if err != nil {
		d.mu.RUnlock()
		return false, err
	}
	if offset < 0 || offset > int64(len(o.data)) {
		d.mu.RUnlock()
		return false, store.ErrInvalidArgs("read_object_to_file", "offset out of range")
	}
	end := int64(len(o.data))
	if size > 0 && offset+size < end {
		end = offset + size
	}
	chunk := append([]byte(nil), o.data[offset:end]...)
	o.access = now()
	d.mu.RUnlock()

	f, ferr := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY, 0o644)
	if ferr != nil {
		return false, store.ErrFailure("read_object_to_file", ferr)
	}
	defer f.Close()
	if _, ferr := f.WriteAt(chunk, offset); ferr != nil {
		return false, store.ErrFailure("read_object_to_file", ferr)
	}
	return true, nil
}

// WriteObjectFromFile is the inverse of ReadObjectToFile: it writes the
// whole content of a local file into the object at offset. The
// controllers' write-back does not use it; it streams through
// copy.Stream instead.
func (d *Driver) WriteObjectFromFile(bucketName, objectName, filename string, offset int64, userID int) error {
	if offset < 0 {
		return store.ErrInvalidArgs("write_object_from_file", "negative offset")
	}
	f, err := os.Open(filename)
	if err != nil {
		return store.ErrFailure("write_object_from_file", err)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return store.ErrFailure("write_object_from_file", err)
	}
	data := make([]byte, fi.Size())
	if _, err := f.Read(data); err != nil {
		return store.ErrFailure("write_object_from_file", err)
	}
	return d.WriteObject(bucketName, objectName, data, offset, userID)
}

func (d *Driver) DeleteObject(bucketName, objectName string, _ int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buckets[bucketName]
	if !ok {
		return store.ErrNotExists("delete_object")
	}
	if _, ok := b.objects[objectName]; !ok {
		return store.ErrNotExists("delete_object")
	}
	delete(b.objects, objectName)
	return nil
}

func (d *Driver) TruncateObject(bucketName, objectName string, size int64, _ int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, o, err := d.getObject(bucketName, objectName)
	if err != nil {
		return err
	}
	if size < 0 {
		return store.ErrInvalidArgs("truncate_object", "negative size")
	}
	grown := make([]byte, size)
	copy(grown, o.data)
	o.data = grown
	o.modified, o.changed = now(), now()
	return nil
}

func (d *Driver) CopyObject(bucketName, src, dst string, noOverwrite bool, _ int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, srcObj, err := d.getObject(bucketName, src)
	if err != nil {
		return err
	}
	if noOverwrite {
		if _, ok := b.objects[dst]; ok {
			return store.ErrExists("copy_object")
		}
	}
	t := now()
	b.objects[dst] = &object{data: append([]byte(nil), srcObj.data...), meta: cloneMeta(srcObj.meta), created: t, access: t, modified: t, changed: t}
	return nil
}

func (d *Driver) MoveObject(bucketName, src, dst string, noOverwrite bool, userID int) error {
	if err := d.CopyObject(bucketName, src, dst, noOverwrite, userID); err != nil {
		return err
	}
	return d.DeleteObject(bucketName, src, userID)
}

func (d *Driver) ExchangeObject(bucketName, a, b string, _ int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	bk, ok := d.buckets[bucketName]
	if !ok {
		return store.ErrNotExists("exchange_object")
	}
	oa, ok := bk.objects[a]
	if !ok {
		return store.ErrNotExists("exchange_object")
	}
	ob, ok := bk.objects[b]
	if !ok {
		return store.ErrNotExists("exchange_object")
	}
	bk.objects[a], bk.objects[b] = ob, oa
	return nil
}

func (d *Driver) CreateObjectCopy(bucketName, src string, offset, size int64, dst string, userID int) (int64, error) {
	d.mu.Lock()
	b, srcObj, err := d.getObject(bucketName, src)
	if err != nil {
		d.mu.Unlock()
		return 0, err
	}
	if offset < 0 || offset > int64(len(srcObj.data)) {
		d.mu.Unlock()
		return 0, store.ErrInvalidArgs("create_object_copy", "offset out of range")
	}
	end := offset + size
	if size <= 0 || end > int64(len(srcObj.data)) {
		end = int64(len(srcObj.data))
	}
	slice := append([]byte(nil), srcObj.data[offset:end]...)
	t := now()
	b.objects[dst] = &object{data: slice, meta: map[string][]byte{}, created: t, access: t, modified: t, changed: t}
	d.mu.Unlock()
	return int64(len(slice)), nil
}

func (d *Driver) CreateObjectMetadata(bucketName, objectName, name string, value []byte, _ int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, o, err := d.getObject(bucketName, objectName)
	if err != nil {
		return err
	}
	o.meta[name] = append([]byte(nil), value...)
	return nil
}

func (d *Driver) ReadObjectMetadata(bucketName, objectName, name string, _ int) ([]byte, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, o, err := d.getObject(bucketName, objectName)
	if err != nil {
		return nil, true, err
	}
	v, ok := o.meta[name]
	if !ok {
		return nil, true, store.ErrNotExists("read_object_metadata")
	}
	return append([]byte(nil), v...), true, nil
}

func (d *Driver) DeleteObjectMetadata(bucketName, objectName, name string, _ int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, o, err := d.getObject(bucketName, objectName)
	if err != nil {
		return err
	}
	if _, ok := o.meta[name]; !ok {
		return store.ErrNotExists("delete_object_metadata")
	}
	delete(o.meta, name)
	return nil
}

func cloneMeta(m map[string][]byte) map[string][]byte {
	out := make(map[string][]byte, len(m))
	for k, v := range m {
		out[k] = append([]byte(nil), v...)
	}
	return out
}

func (d *Driver) ListMultiparts(bucketName string, offset, count int, _ int) ([]string, bool, int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ids := make([]string, 0)
	for id, mp := range d.multiparts {
		if mp.bucket == bucketName {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return paginate(ids, offset, count)
}

func (d *Driver) CreateMultipart(bucketName, objectName string, _ int) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.buckets[bucketName]; !ok {
		return "", store.ErrNotExists("create_multipart")
	}
	id := store.NewMultipartID()
	d.multiparts[id] = &multipart{bucket: bucketName, object: objectName, parts: map[int][]byte{}}
	return id, nil
}

func (d *Driver) CompleteMultipart(multipartID string, userID int) error {
	d.mu.Lock()
	mp, ok := d.multiparts[multipartID]
	if !ok {
		d.mu.Unlock()
		return store.ErrNotExists("complete_multipart")
	}
	order := make([]int, 0, len(mp.parts))
	for n := range mp.parts {
		order = append(order, n)
	}
	sort.Ints(order)
	var data []byte
	for _, n := range order {
		data = append(data, mp.parts[n]...)
	}
	delete(d.multiparts, multipartID)
	d.mu.Unlock()
	return d.CreateObject(mp.bucket, mp.object, data, userID)
}

func (d *Driver) AbortMultipart(multipartID string, _ int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.multiparts[multipartID]; !ok {
		return store.ErrNotExists("abort_multipart")
	}
	delete(d.multiparts, multipartID)
	return nil
}

func (d *Driver) ListParts(multipartID string, _ int) ([]store.Part, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	mp, ok := d.multiparts[multipartID]
	if !ok {
		return nil, store.ErrNotExists("list_parts")
	}
	parts := make([]store.Part, 0, len(mp.parts))
	for n, data := range mp.parts {
		parts = append(parts, store.Part{PartNumber: n, Size: int64(len(data))})
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].PartNumber < parts[j].PartNumber })
	return parts, nil
}

func (d *Driver) CreatePart(multipartID string, partNumber int, data []byte, _ int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	mp, ok := d.multiparts[multipartID]
	if !ok {
		return store.ErrNotExists("create_part")
	}
	mp.parts[partNumber] = append([]byte(nil), data...)
	return nil
}

// CreatePartCopy fills one part of an in-progress multipart upload with a
// byte range sliced out of an existing object in the same bucket as the
// multipart's target, the same source-range-to-part mapping the teacher's
// S3-style multipart copy exposes.
func (d *Driver) CreatePartCopy(objectName string, offset, size int64, multipartID string, partNumber int, _ int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	mp, ok := d.multiparts[multipartID]
	if !ok {
		return store.ErrNotExists("create_part_copy")
	}
	_, srcObj, err := d.getObject(mp.bucket, objectName)
	if err != nil {
		return err
	}
	if offset < 0 || offset > int64(len(srcObj.data)) {
		return store.ErrInvalidArgs("create_part_copy", "offset out of range")
	}
	end := offset + size
	if size <= 0 || end > int64(len(srcObj.data)) {
		end = int64(len(srcObj.data))
	}
	mp.parts[partNumber] = append([]byte(nil), srcObj.data[offset:end]...)
	return nil
}

func (d *Driver) InfoStorage() (int64, int64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var used int64
	for _, b := range d.buckets {
		for _, o := range b.objects {
			used += int64(len(o.data))
		}
	}
	return d.totalSpace, used, nil
}

func (d *Driver) TouchObject(bucketName, objectName string, lastAccess, lastModification int64, _ int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, o, err := d.getObject(bucketName, objectName)
	if err != nil {
		return err
	}
	if lastAccess >= 0 {
		o.access = lastAccess
	}
	if lastModification >= 0 {
		o.modified = lastModification
	}
	return nil
}

func (d *Driver) SetObjectPermissions(bucketName, objectName string, mode int, _ int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, _, err := d.getObject(bucketName, objectName)
	return err
}

func (d *Driver) MakeObjectReadOnly(bucketName, objectName string, _ int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, o, err := d.getObject(bucketName, objectName)
	if err != nil {
		return err
	}
	o.readOnly = true
	return nil
}

func (d *Driver) SetObjectOwner(bucketName, objectName string, uid, gid int, _ int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, _, err := d.getObject(bucketName, objectName)
	return err
}

var _ store.Driver = (*Driver)(nil)
