package controller

import (
	"testing"
	"time"

	"github.com/h3tier/h3cache/store"
	"github.com/h3tier/h3cache/store/memdriver"
)

func TestReadOnlyAfterFreezesEligibleObject(t *testing.T) {
	cold := memdriver.New()
	cold.CreateBucket("b1", 0)
	cold.CreateObject("b1", "o1", []byte("data"), 0)
	past := time.Now().Add(-100 * time.Second).Unix()
	cold.TouchObject("b1", "o1", -1, past, 0)
	cold.CreateObjectMetadata("b1", "o1", MetaReadOnlyAfter, store.EncodeSeconds(10), 0)

	r := NewReadOnlyAfter(cold)
	if err := r.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	info, err := cold.InfoObject("b1", "o1", 0)
	if err != nil {
		t.Fatalf("info object: %v", err)
	}
	if !info.ReadOnly {
		t.Fatalf("object should have been frozen read-only")
	}
}

func TestReadOnlyAfterLeavesRecentObjectAlone(t *testing.T) {
	cold := memdriver.New()
	cold.CreateBucket("b1", 0)
	cold.CreateObject("b1", "o1", []byte("data"), 0)
	cold.CreateObjectMetadata("b1", "o1", MetaReadOnlyAfter, store.EncodeSeconds(3600), 0)

	r := NewReadOnlyAfter(cold)
	if err := r.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	info, err := cold.InfoObject("b1", "o1", 0)
	if err != nil {
		t.Fatalf("info object: %v", err)
	}
	if info.ReadOnly {
		t.Fatalf("object should not yet be read-only")
	}
}

func TestReadOnlyAfterSkipsUnparsableMetadata(t *testing.T) {
	cold := memdriver.New()
	cold.CreateBucket("b1", 0)
	cold.CreateObject("b1", "o1", []byte("data"), 0)
	cold.CreateObjectMetadata("b1", "o1", MetaReadOnlyAfter, []byte{1, 2, 3}, 0)

	r := NewReadOnlyAfter(cold)
	if err := r.Run(); err != nil {
		t.Fatalf("run should not fail on a malformed metadata value: %v", err)
	}
}
