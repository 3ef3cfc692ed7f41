package controller

import (
	"context"
	"testing"
	"time"

	"github.com/h3tier/h3cache/store"
	"github.com/h3tier/h3cache/store/kvdriver"
	"github.com/h3tier/h3cache/store/memdriver"
)

func TestCacheExpirationByPerObjectDeadline(t *testing.T) {
	hot, cold := memdriver.New(), memdriver.New()
	hot.CreateBucket("b1", 0)
	cold.CreateBucket("b1", 0)

	hot.CreateObject("b1", "o1", []byte("hot bytes"), 0)
	cold.CreateObject("b1", "o1", []byte("stale cold bytes"), 0)
	cold.CreateObjectMetadata("b1", "o1", MetaCachedAt, store.EncodeTime(time.Now().Add(-time.Hour)), 0)
	cold.CreateObjectMetadata("b1", "o1", MetaExpireFromCache, store.EncodeTime(time.Now().Add(-time.Second)), 0)

	var writebacks int
	c := NewCacheExpiration(hot, cold, NewLock(), 30*time.Minute, func() { writebacks++ })
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if _, err := hot.InfoObject("b1", "o1", 0); !store.Is(err, store.KindNotExists) {
		t.Fatalf("hot object should be gone after write-back, err=%v", err)
	}
	got, _, err := cold.ReadObject("b1", "o1", 0, 9, 0)
	if err != nil {
		t.Fatalf("read cold: %v", err)
	}
	if string(got) != "hot bytes" {
		t.Fatalf("cold should have the hot bytes, got %q", got)
	}
	if _, _, err := cold.ReadObjectMetadata("b1", "o1", MetaCachedAt, 0); !store.Is(err, store.KindNotExists) {
		t.Fatalf("CachedAt should be cleared")
	}
	if _, _, err := cold.ReadObjectMetadata("b1", "o1", MetaExpireFromCache, 0); !store.Is(err, store.KindNotExists) {
		t.Fatalf("ExpireFromCache should be cleared")
	}
	if writebacks != 1 {
		t.Fatalf("expected 1 writeback, got %d", writebacks)
	}
}

func TestCacheExpirationByGlobalTTL(t *testing.T) {
	hot, cold := memdriver.New(), memdriver.New()
	hot.CreateBucket("b1", 0)
	cold.CreateBucket("b1", 0)

	hot.CreateObject("b1", "o1", []byte("hot bytes"), 0)
	cold.CreateObject("b1", "o1", nil, 0)
	cold.CreateObjectMetadata("b1", "o1", MetaCachedAt, store.EncodeTime(time.Now().Add(-time.Hour)), 0)

	c := NewCacheExpiration(hot, cold, NewLock(), 30*time.Minute, nil)
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if _, err := hot.InfoObject("b1", "o1", 0); !store.Is(err, store.KindNotExists) {
		t.Fatalf("hot object should be gone after global TTL write-back")
	}
}

func TestCacheExpirationSkipsFreshObject(t *testing.T) {
	hot, cold := memdriver.New(), memdriver.New()
	hot.CreateBucket("b1", 0)
	cold.CreateBucket("b1", 0)

	hot.CreateObject("b1", "o1", []byte("hot bytes"), 0)
	cold.CreateObject("b1", "o1", nil, 0)
	cold.CreateObjectMetadata("b1", "o1", MetaCachedAt, store.EncodeTime(time.Now()), 0)

	c := NewCacheExpiration(hot, cold, NewLock(), 30*time.Minute, nil)
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := hot.InfoObject("b1", "o1", 0); err != nil {
		t.Fatalf("fresh object should still be hot: %v", err)
	}
}

func TestCacheExpirationByGlobalTTLAgainstKVCold(t *testing.T) {
	hot := memdriver.New()
	cold, err := kvdriver.Open(":memory:")
	if err != nil {
		t.Fatalf("open kvdriver: %v", err)
	}
	defer cold.Close()

	hot.CreateBucket("b1", 0)
	cold.CreateBucket("b1", 0)
	hot.CreateObject("b1", "o1", []byte("hot bytes"), 0)
	cold.CreateObject("b1", "o1", nil, 0)
	cold.CreateObjectMetadata("b1", "o1", MetaCachedAt, store.EncodeTime(time.Now().Add(-time.Hour)), 0)

	c := NewCacheExpiration(hot, cold, NewLock(), 30*time.Minute, nil)
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := hot.InfoObject("b1", "o1", 0); !store.Is(err, store.KindNotExists) {
		t.Fatalf("hot object should be gone after global TTL write-back")
	}
	got, _, err := cold.ReadObject("b1", "o1", 0, 9, 0)
	if err != nil {
		t.Fatalf("read cold: %v", err)
	}
	if string(got) != "hot bytes" {
		t.Fatalf("kv cold should have the hot bytes, got %q", got)
	}
}

func TestCacheExpirationSkipsObjectWithoutCachedAt(t *testing.T) {
	hot, cold := memdriver.New(), memdriver.New()
	hot.CreateBucket("b1", 0)
	cold.CreateBucket("b1", 0)
	hot.CreateObject("b1", "o1", []byte("hot bytes"), 0)
	cold.CreateObject("b1", "o1", nil, 0)

	c := NewCacheExpiration(hot, cold, NewLock(), 30*time.Minute, nil)
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := hot.InfoObject("b1", "o1", 0); err != nil {
		t.Fatalf("object without CachedAt should be left alone: %v", err)
	}
}
