// Package copy implements the streaming copy primitive behind the
// eviction/cache-expiration controllers' write-back path. (The cache
// adapter's populate path reads cold into memory itself and does not
// use this package.)
/*
 * Copyright (c) 2019-2024, FORTH-ICS. All rights reserved.
 */
package copy

import (
	"context"

	"github.com/golang/glog"

	"github.com/h3tier/h3cache/store"
)

// ChunkSize bounds how much of an object a single Stream iteration asks
// a driver to hand back, the same role cacheBlkSize plays for a disk
// cache's read loop.
const ChunkSize = 1 << 20 // 1 MiB

// Stream copies bucket/object from src to dst, preserving byte offsets,
// by repeatedly calling src.ReadObject and dst.WriteObject until the
// source reports done. Any error aborts the copy without touching src;
// a partially written dst is tolerated since a retry overwrites the
// same offsets.
func Stream(ctx context.Context, src, dst store.Driver, bucket, object string) error {
	var offset int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, done, err := src.ReadObject(bucket, object, offset, ChunkSize, 0)
		if err != nil {
			return err
		}
		if len(data) > 0 {
			if err := dst.WriteObject(bucket, object, data, offset, 0); err != nil {
				return err
			}
			offset += int64(len(data))
		}
		if done {
			return nil
		}
	}
}

// WriteBack streams bucket/object from hot to cold, then clears the
// given cold metadata names (absence is not an error) and finally
// deletes the hot object. coldMeta is always at least {"CachedAt"};
// eviction always, and cache-expiration when the write-back was
// triggered by a per-object deadline, additionally pass
// "ExpireFromCache".
func WriteBack(ctx context.Context, hot, cold store.Driver, bucket, object string, coldMeta []string) error {
	if err := Stream(ctx, hot, cold, bucket, object); err != nil {
		return err
	}
	for _, name := range coldMeta {
		if err := cold.DeleteObjectMetadata(bucket, object, name, 0); err != nil && !store.Is(err, store.KindNotExists) {
			return err
		}
	}
	if err := hot.DeleteObject(bucket, object, 0); err != nil && !store.Is(err, store.KindNotExists) {
		return err
	}
	glog.V(4).Infof("copy: wrote back %s/%s, cleared %v", bucket, object, coldMeta)
	return nil
}
