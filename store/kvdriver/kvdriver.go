// Package kvdriver implements store.Driver on top of an embedded disk
// key/value store, registered under the "kv" scheme. It stands in for the
// "disk KV backend" / "networked key-value cache" URI classes named in
// the original H3 docstrings (rocksdb:///, redis://).
/*
 * Copyright (c) 2019-2024, FORTH-ICS. All rights reserved.
 */
package kvdriver

import (
	"encoding/json"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/buntdb"

	"github.com/h3tier/h3cache/store"
)

func init() {
	store.Register("kv", func(location string) (store.Driver, error) {
		return Open(location)
	})
}

// Driver persists buckets, objects, metadata, and multipart state as
// buntdb keys. A per-Driver mutex serializes read-modify-write
// sequences that span more than one buntdb transaction (buntdb itself
// only guarantees atomicity within one transaction).
type Driver struct {
	mu sync.Mutex
	db *buntdb.DB
}

// Open creates or reopens a kvdriver at path (":memory:" for a
// non-persistent store, used by tests).
func Open(path string) (*Driver, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, store.ErrStore("open", err)
	}
	return &Driver{db: db}, nil
}

func (d *Driver) Close() error { return d.db.Close() }

type bucketMeta struct {
	Creation int64 `json:"creation"`
}

type objectMeta struct {
	Size             int64 `json:"size"`
	Creation         int64 `json:"creation"`
	LastAccess       int64 `json:"last_access"`
	LastModification int64 `json:"last_modification"`
	LastChange       int64 `json:"last_change"`
	ReadOnly         bool  `json:"read_only"`
}

type multipartMeta struct {
	Bucket string         `json:"bucket"`
	Object string         `json:"object"`
	Parts  map[int]int    `json:"parts"` // part number -> size, data kept in its own key
}

func bucketKey(b string) string       { return "bkt:" + b }
func objInfoKey(b, o string) string   { return "obj:" + b + ":" + o + ":info" }
func objDataKey(b, o string) string   { return "obj:" + b + ":" + o + ":data" }
func objMetaPrefix(b, o string) string { return "meta:" + b + ":" + o + ":" }
func objMetaKey(b, o, name string) string { return objMetaPrefix(b, o) + name }
func objPrefix(b string) string       { return "obj:" + b + ":" }
func mpKey(id string) string          { return "mp:" + id }
func mpPartKey(id string, n int) string {
	return "mp:" + id + ":part:" + strconv.Itoa(n)
}

func now() int64 { return time.Now().Unix() }

func (d *Driver) ListBuckets(int) ([]string, error) {
	var names []string
	err := d.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys("bkt:*", func(key, _ string) bool {
			names = append(names, strings.TrimPrefix(key, "bkt:"))
			return true
		})
	})
	if err != nil {
		return nil, store.ErrStore("list_buckets", err)
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
	return d.db.Update(func(tx *buntdb.Tx) error {
		if _, err := tx.Get(bucketKey(name)); err == nil {
			return store.ErrExists("create_bucket")
		}
		meta, _ := json.Marshal(bucketMeta{Creation: now()})
		_, _, err := tx.Set(bucketKey(name), string(meta), nil)
		return err
	})
}

func (d *Driver) bucketExists(tx *buntdb.Tx, name string) bool {
	_, err := tx.Get(bucketKey(name))
	return err == nil
}

func (d *Driver) DeleteBucket(name string, _ int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.db.Update(func(tx *buntdb.Tx) error {
		if !d.bucketExists(tx, name) {
			return store.ErrNotExists("delete_bucket")
		}
		empty := true
		tx.AscendKeys(objPrefix(name)+"*", func(string, string) bool { empty = false; return false })
		if !empty {
			return store.NewError(store.KindInvalidArgs, "delete_bucket", nil)
		}
		_, err := tx.Delete(bucketKey(name))
		return err
	})
}

func (d *Driver) PurgeBucket(name string, _ int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.db.Update(func(tx *buntdb.Tx) error {
		if !d.bucketExists(tx, name) {
			return store.ErrNotExists("purge_bucket")
		}
		var keys []string
		tx.AscendKeys(objPrefix(name)+"*", func(key, _ string) bool {
			keys = append(keys, key)
			return true
		})
		for _, k := range keys {
			tx.Delete(k)
		}
		return nil
	})
}

func (d *Driver) InfoBucket(name string, includeStats bool, _ int) (store.BucketInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var info store.BucketInfo
	err := d.db.View(func(tx *buntdb.Tx) error {
		raw, err := tx.Get(bucketKey(name))
		if err != nil {
			return store.ErrNotExists("info_bucket")
		}
		var bm bucketMeta
		json.Unmarshal([]byte(raw), &bm)
		info.Creation = bm.Creation
		if includeStats {
			st := &store.BucketStats{}
			tx.AscendKeys(objPrefix(name)+"*:info", func(key, v string) bool {
				var om objectMeta
				json.Unmarshal([]byte(v), &om)
				st.Size += om.Size
				st.Count++
				if om.LastAccess > st.LastAccess {
					st.LastAccess = om.LastAccess
				}
				if om.LastModification > st.LastModification {
					st.LastModification = om.LastModification
				}
				return true
			})
			info.Stats = st
		}
		return nil
	})
	return info, err
}

func (d *Driver) ListObjects(bucketName, prefix string, offset, count int, _ int) ([]string, bool, int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var names []string
	err := d.db.View(func(tx *buntdb.Tx) error {
		if !d.bucketExists(tx, bucketName) {
			return store.ErrNotExists("list_objects")
		}
		return tx.AscendKeys(objPrefix(bucketName)+"*:info", func(key, _ string) bool {
			obj := strings.TrimSuffix(strings.TrimPrefix(key, objPrefix(bucketName)), ":info")
			if prefix == "" || strings.HasPrefix(obj, prefix) {
				names = append(names, obj)
			}
			return true
		})
	})
	if err != nil {
		return nil, true, 0, err
	}
	sort.Strings(names)
	return paginate(names, offset, count)
}

func (d *Driver) ListObjectsWithMetadata(bucketName, metaName string, offset int, _ int) ([]string, bool, int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var names []string
	err := d.db.View(func(tx *buntdb.Tx) error {
		if !d.bucketExists(tx, bucketName) {
			return store.ErrNotExists("list_objects_with_metadata")
		}
		return tx.AscendKeys(objPrefix(bucketName)+"*:info", func(key, _ string) bool {
			obj := strings.TrimSuffix(strings.TrimPrefix(key, objPrefix(bucketName)), ":info")
			if _, err := tx.Get(objMetaKey(bucketName, obj, metaName)); err == nil {
				names = append(names, obj)
			}
			return true
		})
	})
	if err != nil {
		return nil, true, 0, err
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

func (d *Driver) getObjectMeta(tx *buntdb.Tx, bucketName, objectName string) (objectMeta, error) {
	raw, err := tx.Get(objInfoKey(bucketName, objectName))
	if err != nil {
		return objectMeta{}, store.ErrNotExists("info_object")
	}
	var om objectMeta
	json.Unmarshal([]byte(raw), &om)
	return om, nil
}

func (d *Driver) putObjectMeta(tx *buntdb.Tx, bucketName, objectName string, om objectMeta) error {
	raw, _ := json.Marshal(om)
	_, _, err := tx.Set(objInfoKey(bucketName, objectName), string(raw), nil)
	return err
}

func (d *Driver) InfoObject(bucketName, objectName string, _ int) (store.ObjectInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var info store.ObjectInfo
	err := d.db.View(func(tx *buntdb.Tx) error {
		om, err := d.getObjectMeta(tx, bucketName, objectName)
		if err != nil {
			return err
		}
		info = store.ObjectInfo{
			Size: om.Size, Creation: om.Creation, LastAccess: om.LastAccess,
			LastModification: om.LastModification, LastChange: om.LastChange, ReadOnly: om.ReadOnly,
		}
		return nil
	})
	return info, err
}

func (d *Driver) CreateObject(bucketName, objectName string, data []byte, _ int) error {
	if len(objectName) > store.MaxObjectNameSize {
		return store.ErrNameTooLong("create_object")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.db.Update(func(tx *buntdb.Tx) error {
		if !d.bucketExists(tx, bucketName) {
			return store.ErrNotExists("create_object")
		}
		if _, err := tx.Get(objInfoKey(bucketName, objectName)); err == nil {
			return store.ErrExists("create_object")
		}
		t := now()
		tx.Set(objDataKey(bucketName, objectName), string(data), nil)
		return d.putObjectMeta(tx, bucketName, objectName, objectMeta{Size: int64(len(data)), Creation: t, LastAccess: t, LastModification: t, LastChange: t})
	})
}

func (d *Driver) WriteObject(bucketName, objectName string, data []byte, offset int64, _ int) error {
	if offset < 0 {
		return store.ErrInvalidArgs("write_object", "negative offset")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.db.Update(func(tx *buntdb.Tx) error {
		if !d.bucketExists(tx, bucketName) {
			return store.ErrNotExists("write_object")
		}
		existing, _ := tx.Get(objDataKey(bucketName, objectName))
		buf := []byte(existing)
		end := offset + int64(len(data))
		if int64(len(buf)) < end {
			grown := make([]byte, end)
			copy(grown, buf)
			buf = grown
		}
		copy(buf[offset:end], data)
		tx.Set(objDataKey(bucketName, objectName), string(buf), nil)

		om, err := d.getObjectMeta(tx, bucketName, objectName)
		t := now()
		if err != nil {
			om = objectMeta{Creation: t}
		}
		om.Size = int64(len(buf))
		om.LastModification, om.LastChange, om.LastAccess = t, t, t
		return d.putObjectMeta(tx, bucketName, objectName, om)
	})
}

func (d *Driver) ReadObject(bucketName, objectName string, offset, size int64, _ int) ([]byte, bool, error) {
	const maxChunk = int64(4 << 20)
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []byte
	var done bool
	err := d.db.Update(func(tx *buntdb.Tx) error {
		om, err := d.getObjectMeta(tx, bucketName, objectName)
		if err != nil {
			return err
		}
		if offset < 0 || offset > om.Size {
			return store.ErrInvalidArgs("read_object", "offset out of range")
		}
		raw, _ := tx.Get(objDataKey(bucketName, objectName))
		data := []byte(raw)
		remaining := int64(len(data)) - offset
		want := remaining
		if size > 0 && size < want {
			want = size
		}
		if want > maxChunk {
			want = maxChunk
		}
		out = append([]byte(nil), data[offset:offset+want]...)
		if size > 0 {
			done = want >= size || offset+want >= int64(len(data))
		} else {
			done = offset+want >= int64(len(data))
		}
		om.LastAccess = now()
		return d.putObjectMeta(tx, bucketName, objectName, om)
	})
	return out, done, err
}

func (d *Driver) ReadObjectToFile(bucketName, objectName, filename string, offset, size int64, _ int) (bool, error) {
	d.mu.Lock()
	var chunk []byte
	err := d.db.Update(func(tx *buntdb.Tx) error {
		om, err := d.getObjectMeta(tx, bucketName, objectName)
		if err != nil {
			return err
		}
		if offset < 0 || offset > om.Size {
			return store.ErrInvalidArgs("read_object_to_file", "offset out of range")
		}
		raw, _ := tx.Get(objDataKey(bucketName, objectName))
		data := []byte(raw)
		end := int64(len(data))
		if size > 0 && offset+size < end {
			end = offset + size
		}
		chunk = append([]byte(nil), data[offset:end]...)
		om.LastAccess = now()
		return d.putObjectMeta(tx, bucketName, objectName, om)
	})
	d.mu.Unlock()
	if err != nil {
		return false, err
	}

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
	return d.db.Update(func(tx *buntdb.Tx) error {
		if _, err := tx.Get(objInfoKey(bucketName, objectName)); err != nil {
			return store.ErrNotExists("delete_object")
		}
		tx.Delete(objInfoKey(bucketName, objectName))
		tx.Delete(objDataKey(bucketName, objectName))
		var metaKeys []string
		tx.AscendKeys(objMetaPrefix(bucketName, objectName)+"*", func(key, _ string) bool {
			metaKeys = append(metaKeys, key)
			return true
		})
		for _, k := range metaKeys {
			tx.Delete(k)
		}
		return nil
	})
}

func (d *Driver) TruncateObject(bucketName, objectName string, size int64, _ int) error {
	if size < 0 {
		return store.ErrInvalidArgs("truncate_object", "negative size")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.db.Update(func(tx *buntdb.Tx) error {
		om, err := d.getObjectMeta(tx, bucketName, objectName)
		if err != nil {
			return err
		}
		raw, _ := tx.Get(objDataKey(bucketName, objectName))
		buf := make([]byte, size)
		copy(buf, raw)
		tx.Set(objDataKey(bucketName, objectName), string(buf), nil)
		om.Size = size
		t := now()
		om.LastModification, om.LastChange = t, t
		return d.putObjectMeta(tx, bucketName, objectName, om)
	})
}

func (d *Driver) CopyObject(bucketName, src, dst string, noOverwrite bool, _ int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.db.Update(func(tx *buntdb.Tx) error {
		om, err := d.getObjectMeta(tx, bucketName, src)
		if err != nil {
			return err
		}
		if noOverwrite {
			if _, err := tx.Get(objInfoKey(bucketName, dst)); err == nil {
				return store.ErrExists("copy_object")
			}
		}
		raw, _ := tx.Get(objDataKey(bucketName, src))
		tx.Set(objDataKey(bucketName, dst), raw, nil)
		t := now()
		om.Creation, om.LastAccess, om.LastModification, om.LastChange = t, t, t, t
		return d.putObjectMeta(tx, bucketName, dst, om)
	})
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
	return d.db.Update(func(tx *buntdb.Tx) error {
		rawA, errA := tx.Get(objDataKey(bucketName, a))
		rawB, errB := tx.Get(objDataKey(bucketName, b))
		if errA != nil || errB != nil {
			return store.ErrNotExists("exchange_object")
		}
		metaA, _ := d.getObjectMeta(tx, bucketName, a)
		metaB, _ := d.getObjectMeta(tx, bucketName, b)
		tx.Set(objDataKey(bucketName, a), rawB, nil)
		tx.Set(objDataKey(bucketName, b), rawA, nil)
		d.putObjectMeta(tx, bucketName, a, metaB)
		d.putObjectMeta(tx, bucketName, b, metaA)
		return nil
	})
}

func (d *Driver) CreateObjectCopy(bucketName, src string, offset, size int64, dst string, _ int) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var n int64
	err := d.db.Update(func(tx *buntdb.Tx) error {
		om, err := d.getObjectMeta(tx, bucketName, src)
		if err != nil {
			return err
		}
		if offset < 0 || offset > om.Size {
			return store.ErrInvalidArgs("create_object_copy", "offset out of range")
		}
		raw, _ := tx.Get(objDataKey(bucketName, src))
		data := []byte(raw)
		end := offset + size
		if size <= 0 || end > int64(len(data)) {
			end = int64(len(data))
		}
		slice := data[offset:end]
		n = int64(len(slice))
		tx.Set(objDataKey(bucketName, dst), string(slice), nil)
		t := now()
		return d.putObjectMeta(tx, bucketName, dst, objectMeta{Size: n, Creation: t, LastAccess: t, LastModification: t, LastChange: t})
	})
	return n, err
}

func (d *Driver) CreateObjectMetadata(bucketName, objectName, name string, value []byte, _ int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.db.Update(func(tx *buntdb.Tx) error {
		if _, err := tx.Get(objInfoKey(bucketName, objectName)); err != nil {
			return store.ErrNotExists("create_object_metadata")
		}
		_, _, err := tx.Set(objMetaKey(bucketName, objectName, name), string(value), nil)
		return err
	})
}

func (d *Driver) ReadObjectMetadata(bucketName, objectName, name string, _ int) ([]byte, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []byte
	err := d.db.View(func(tx *buntdb.Tx) error {
		raw, err := tx.Get(objMetaKey(bucketName, objectName, name))
		if err != nil {
			return store.ErrNotExists("read_object_metadata")
		}
		out = []byte(raw)
		return nil
	})
	return out, true, err
}

func (d *Driver) DeleteObjectMetadata(bucketName, objectName, name string, _ int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.db.Update(func(tx *buntdb.Tx) error {
		if _, err := tx.Delete(objMetaKey(bucketName, objectName, name)); err != nil {
			return store.ErrNotExists("delete_object_metadata")
		}
		return nil
	})
}

func (d *Driver) ListMultiparts(bucketName string, offset, count int, _ int) ([]string, bool, int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var ids []string
	d.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys("mp:*", func(key, v string) bool {
			if strings.Contains(key, ":part:") {
				return true
			}
			var mm multipartMeta
			json.Unmarshal([]byte(v), &mm)
			if mm.Bucket == bucketName {
				ids = append(ids, strings.TrimPrefix(key, "mp:"))
			}
			return true
		})
	})
	sort.Strings(ids)
	return paginate(ids, offset, count)
}

func (d *Driver) CreateMultipart(bucketName, objectName string, _ int) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := store.NewMultipartID()
	err := d.db.Update(func(tx *buntdb.Tx) error {
		if !d.bucketExists(tx, bucketName) {
			return store.ErrNotExists("create_multipart")
		}
		mm := multipartMeta{Bucket: bucketName, Object: objectName, Parts: map[int]int{}}
		raw, _ := json.Marshal(mm)
		_, _, err := tx.Set(mpKey(id), string(raw), nil)
		return err
	})
	return id, err
}

func (d *Driver) CompleteMultipart(multipartID string, userID int) error {
	d.mu.Lock()
	var mm multipartMeta
	var order []int
	err := d.db.View(func(tx *buntdb.Tx) error {
		raw, err := tx.Get(mpKey(multipartID))
		if err != nil {
			return store.ErrNotExists("complete_multipart")
		}
		json.Unmarshal([]byte(raw), &mm)
		for n := range mm.Parts {
			order = append(order, n)
		}
		return nil
	})
	if err != nil {
		d.mu.Unlock()
		return err
	}
	sort.Ints(order)
	var data []byte
	for _, n := range order {
		v, gerr := d.getMPPart(multipartID, n)
		if gerr == nil {
			data = append(data, v...)
		}
	}
	d.db.Update(func(tx *buntdb.Tx) error {
		tx.Delete(mpKey(multipartID))
		for _, n := range order {
			tx.Delete(mpPartKey(multipartID, n))
		}
		return nil
	})
	d.mu.Unlock()
	return d.CreateObject(mm.Bucket, mm.Object, data, userID)
}

func (d *Driver) getMPPart(id string, n int) ([]byte, error) {
	var out []byte
	err := d.db.View(func(tx *buntdb.Tx) error {
		raw, err := tx.Get(mpPartKey(id, n))
		if err != nil {
			return err
		}
		out = []byte(raw)
		return nil
	})
	return out, err
}

func (d *Driver) AbortMultipart(multipartID string, _ int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.db.Update(func(tx *buntdb.Tx) error {
		if _, err := tx.Get(mpKey(multipartID)); err != nil {
			return store.ErrNotExists("abort_multipart")
		}
		var toDelete []string
		tx.AscendKeys(mpKey(multipartID)+"*", func(key, _ string) bool {
			toDelete = append(toDelete, key)
			return true
		})
		for _, k := range toDelete {
			tx.Delete(k)
		}
		return nil
	})
}

func (d *Driver) ListParts(multipartID string, _ int) ([]store.Part, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var mm multipartMeta
	err := d.db.View(func(tx *buntdb.Tx) error {
		raw, err := tx.Get(mpKey(multipartID))
		if err != nil {
			return store.ErrNotExists("list_parts")
		}
		json.Unmarshal([]byte(raw), &mm)
		return nil
	})
	if err != nil {
		return nil, err
	}
	parts := make([]store.Part, 0, len(mm.Parts))
	for n, size := range mm.Parts {
		parts = append(parts, store.Part{PartNumber: n, Size: int64(size)})
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].PartNumber < parts[j].PartNumber })
	return parts, nil
}

func (d *Driver) CreatePart(multipartID string, partNumber int, data []byte, _ int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.db.Update(func(tx *buntdb.Tx) error {
		raw, err := tx.Get(mpKey(multipartID))
		if err != nil {
			return store.ErrNotExists("create_part")
		}
		var mm multipartMeta
		json.Unmarshal([]byte(raw), &mm)
		tx.Set(mpPartKey(multipartID, partNumber), string(data), nil)
		mm.Parts[partNumber] = len(data)
		updated, _ := json.Marshal(mm)
		_, _, err = tx.Set(mpKey(multipartID), string(updated), nil)
		return err
	})
}

func (d *Driver) CreatePartCopy(objectName string, offset, size int64, multipartID string, partNumber int, _ int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.db.Update(func(tx *buntdb.Tx) error {
		raw, err := tx.Get(mpKey(multipartID))
		if err != nil {
			return store.ErrNotExists("create_part_copy")
		}
		var mm multipartMeta
		json.Unmarshal([]byte(raw), &mm)

		om, err := d.getObjectMeta(tx, mm.Bucket, objectName)
		if err != nil {
			return err
		}
		if offset < 0 || offset > om.Size {
			return store.ErrInvalidArgs("create_part_copy", "offset out of range")
		}
		srcRaw, _ := tx.Get(objDataKey(mm.Bucket, objectName))
		data := []byte(srcRaw)
		end := offset + size
		if size <= 0 || end > int64(len(data)) {
			end = int64(len(data))
		}
		part := data[offset:end]
		tx.Set(mpPartKey(multipartID, partNumber), string(part), nil)
		mm.Parts[partNumber] = len(part)
		updated, _ := json.Marshal(mm)
		_, _, err = tx.Set(mpKey(multipartID), string(updated), nil)
		return err
	})
}

func (d *Driver) InfoStorage() (int64, int64, error) {
	var used int64
	err := d.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys("obj:*:info", func(_, v string) bool {
			var om objectMeta
			json.Unmarshal([]byte(v), &om)
			used += om.Size
			return true
		})
	})
	return 1 << 30, used, err
}

func (d *Driver) TouchObject(bucketName, objectName string, lastAccess, lastModification int64, _ int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.db.Update(func(tx *buntdb.Tx) error {
		om, err := d.getObjectMeta(tx, bucketName, objectName)
		if err != nil {
			return err
		}
		if lastAccess >= 0 {
			om.LastAccess = lastAccess
		}
		if lastModification >= 0 {
			om.LastModification = lastModification
		}
		return d.putObjectMeta(tx, bucketName, objectName, om)
	})
}

func (d *Driver) SetObjectPermissions(bucketName, objectName string, mode int, _ int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.db.View(func(tx *buntdb.Tx) error {
		_, err := d.getObjectMeta(tx, bucketName, objectName)
		return err
	})
}

func (d *Driver) MakeObjectReadOnly(bucketName, objectName string, _ int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.db.Update(func(tx *buntdb.Tx) error {
		om, err := d.getObjectMeta(tx, bucketName, objectName)
		if err != nil {
			return err
		}
		om.ReadOnly = true
		return d.putObjectMeta(tx, bucketName, objectName, om)
	})
}

func (d *Driver) SetObjectOwner(bucketName, objectName string, uid, gid int, _ int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.db.View(func(tx *buntdb.Tx) error {
		_, err := d.getObjectMeta(tx, bucketName, objectName)
		return err
	})
}

var _ store.Driver = (*Driver)(nil)
