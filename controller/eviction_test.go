package controller

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/h3tier/h3cache/store/memdriver"
)

func TestEvictionSkipsBelowHighWatermark(t *testing.T) {
	hot, cold := memdriver.New(), memdriver.New()
	hot.SetTotalSpace(100)
	hot.CreateBucket("b1", 0)
	cold.CreateBucket("b1", 0)
	hot.CreateObject("b1", "o1", []byte("12345"), 0)
	cold.CreateObject("b1", "o1", []byte("12345"), 0)

	e := NewEviction(hot, cold, NewLock(), 50, 90, nil)
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := hot.InfoObject("b1", "o1", 0); err != nil {
		t.Fatalf("object should not have been evicted below watermark: %v", err)
	}
}

func TestEvictionWritesBackToLowWatermark(t *testing.T) {
	hot, cold := memdriver.New(), memdriver.New()
	hot.SetTotalSpace(100 << 20) // 100 MiB
	hot.CreateBucket("b1", 0)
	cold.CreateBucket("b1", 0)

	const objSize = 5 << 20 // 5 MiB
	data := bytes.Repeat([]byte("x"), objSize)
	for i := 0; i < 20; i++ {
		name := fmt.Sprintf("o%02d", i)
		if err := hot.CreateObject("b1", name, data, 0); err != nil {
			t.Fatalf("create hot object %s: %v", name, err)
		}
		if err := cold.CreateObject("b1", name, data, 0); err != nil {
			t.Fatalf("create cold object %s: %v", name, err)
		}
		if err := hot.TouchObject("b1", name, -1, int64(i), 0); err != nil {
			t.Fatalf("touch: %v", err)
		}
		if err := cold.TouchObject("b1", name, -1, int64(i), 0); err != nil {
			t.Fatalf("touch: %v", err)
		}
	}

	var writebacks int
	e := NewEviction(hot, cold, NewLock(), 50, 90, func() { writebacks++ })
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	_, used, err := hot.InfoStorage()
	if err != nil {
		t.Fatalf("info storage: %v", err)
	}
	if used > 50<<20 {
		t.Fatalf("used space %d exceeds low watermark", used)
	}
	if writebacks != 10 {
		t.Fatalf("expected 10 writebacks, got %d", writebacks)
	}
	if _, err := hot.InfoObject("b1", "o00", 0); err == nil {
		t.Fatalf("oldest object should have been evicted first")
	}
	if _, err := hot.InfoObject("b1", "o19", 0); err != nil {
		t.Fatalf("newest object should still be hot: %v", err)
	}
}
