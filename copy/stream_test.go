package copy

import (
	"bytes"
	"context"
	"testing"

	"github.com/h3tier/h3cache/store"
	"github.com/h3tier/h3cache/store/memdriver"
)

func TestStreamCopiesBytes(t *testing.T) {
	src, dst := memdriver.New(), memdriver.New()
	src.CreateBucket("b1", 0)
	dst.CreateBucket("b1", 0)

	want := bytes.Repeat([]byte("abcd"), ChunkSize) // several chunks
	if err := src.CreateObject("b1", "o1", want, 0); err != nil {
		t.Fatalf("create object: %v", err)
	}

	if err := Stream(context.Background(), src, dst, "b1", "o1"); err != nil {
		t.Fatalf("stream: %v", err)
	}

	info, err := dst.InfoObject("b1", "o1", 0)
	if err != nil {
		t.Fatalf("info object: %v", err)
	}
	if info.Size != int64(len(want)) {
		t.Fatalf("size = %d, want %d", info.Size, len(want))
	}

	got, done, err := dst.ReadObject("b1", "o1", 0, int64(len(want)), 0)
	if err != nil {
		t.Fatalf("read object: %v", err)
	}
	for !done {
		var more []byte
		more, done, err = dst.ReadObject("b1", "o1", int64(len(got)), int64(len(want))-int64(len(got)), 0)
		if err != nil {
			t.Fatalf("read object: %v", err)
		}
		got = append(got, more...)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("copied bytes mismatch")
	}
}

func TestWriteBackClearsMetadataAndHotObject(t *testing.T) {
	hot, cold := memdriver.New(), memdriver.New()
	hot.CreateBucket("b1", 0)
	cold.CreateBucket("b1", 0)

	data := []byte("hello world")
	hot.CreateObject("b1", "o1", data, 0)
	cold.CreateObject("b1", "o1", nil, 0)
	cold.CreateObjectMetadata("b1", "o1", "CachedAt", []byte{0, 0, 0, 0, 0, 0, 0, 0}, 0)

	if err := WriteBack(context.Background(), hot, cold, "b1", "o1", []string{"CachedAt"}); err != nil {
		t.Fatalf("write back: %v", err)
	}

	if _, err := hot.InfoObject("b1", "o1", 0); !store.Is(err, store.KindNotExists) {
		t.Fatalf("hot object should be gone, got err %v", err)
	}
	if _, _, err := cold.ReadObjectMetadata("b1", "o1", "CachedAt", 0); !store.Is(err, store.KindNotExists) {
		t.Fatalf("CachedAt should be cleared, got err %v", err)
	}
	got, _, err := cold.ReadObject("b1", "o1", 0, int64(len(data)), 0)
	if err != nil {
		t.Fatalf("read cold object: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("cold object bytes mismatch, got %q want %q", got, data)
	}
}

func TestWriteBackIgnoresMissingMetadata(t *testing.T) {
	hot, cold := memdriver.New(), memdriver.New()
	hot.CreateBucket("b1", 0)
	cold.CreateBucket("b1", 0)
	hot.CreateObject("b1", "o1", []byte("x"), 0)
	cold.CreateObject("b1", "o1", nil, 0)

	if err := WriteBack(context.Background(), hot, cold, "b1", "o1", []string{"CachedAt", "ExpireFromCache"}); err != nil {
		t.Fatalf("write back should tolerate absent metadata: %v", err)
	}
}
