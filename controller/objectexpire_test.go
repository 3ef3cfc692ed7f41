package controller

import (
	"testing"
	"time"

	"github.com/h3tier/h3cache/store"
	"github.com/h3tier/h3cache/store/memdriver"
)

func TestObjectExpirationDeletesPastDeadline(t *testing.T) {
	cold := memdriver.New()
	cold.CreateBucket("b1", 0)
	cold.CreateObject("b1", "o1", []byte("stale"), 0)
	cold.CreateObjectMetadata("b1", "o1", MetaExpiresAt, store.EncodeTime(time.Now().Add(-time.Second)), 0)

	o := NewObjectExpiration(cold)
	if err := o.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := cold.InfoObject("b1", "o1", 0); !store.Is(err, store.KindNotExists) {
		t.Fatalf("expired object should have been deleted, err=%v", err)
	}
}

func TestObjectExpirationSkipsFutureDeadline(t *testing.T) {
	cold := memdriver.New()
	cold.CreateBucket("b1", 0)
	cold.CreateObject("b1", "o1", []byte("fresh"), 0)
	cold.CreateObjectMetadata("b1", "o1", MetaExpiresAt, store.EncodeTime(time.Now().Add(time.Hour)), 0)

	o := NewObjectExpiration(cold)
	if err := o.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := cold.InfoObject("b1", "o1", 0); err != nil {
		t.Fatalf("non-expired object should remain: %v", err)
	}
}

func TestObjectExpirationSkipsObjectWithoutExpiresAt(t *testing.T) {
	cold := memdriver.New()
	cold.CreateBucket("b1", 0)
	cold.CreateObject("b1", "o1", []byte("no deadline"), 0)

	o := NewObjectExpiration(cold)
	if err := o.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := cold.InfoObject("b1", "o1", 0); err != nil {
		t.Fatalf("object without ExpiresAt should remain: %v", err)
	}
}
