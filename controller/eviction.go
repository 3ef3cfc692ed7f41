package controller

import (
	"container/heap"
	"context"

	"github.com/golang/glog"
	"go.uber.org/atomic"

	"github.com/h3tier/h3cache/copy"
	"github.com/h3tier/h3cache/store"
)

// Eviction is the LRU eviction controller (E), §4.5: streams the
// coldest hot objects back to cold until the hot tier's used space
// drops at or below watermarkLow percent of total space, or every hot
// object has been visited.
//
// Grounded on the teacher's lru package: a container/heap min-heap
// walked oldest-first, and an atomic.Bool "already running" guard
// mirroring lcHK.running.CAS in cluster/lom_cache_hk.go — substituting
// go.uber.org/atomic for the teacher's in-repo 3rdparty/atomic fork of
// the same library.
type Eviction struct {
	hot, cold              store.Driver
	lock                   *Lock
	watermarkLow, watermarkHigh int
	running                atomic.Bool
	onWriteback            func()
}

// NewEviction builds an Eviction controller. watermarkLow/watermarkHigh
// are integer fill percentages in [0,100]; onWriteback, if non-nil, is
// called once per evicted object (cache.Adapter.RecordWriteback wires
// the cache package's metrics counter here).
func NewEviction(hot, cold store.Driver, lock *Lock, watermarkLow, watermarkHigh int, onWriteback func()) *Eviction {
	return &Eviction{hot: hot, cold: cold, lock: lock, watermarkLow: watermarkLow, watermarkHigh: watermarkHigh, onWriteback: onWriteback}
}

// victim is one candidate for eviction: the LRU sort key plus enough to
// stream it back to cold.
type victim struct {
	bucket, object   string
	lastModification int64
	size             int64
}

type victimHeap []victim

func (h victimHeap) Len() int { return len(h) }
func (h victimHeap) Less(i, j int) bool {
	if h[i].lastModification != h[j].lastModification {
		return h[i].lastModification < h[j].lastModification
	}
	return h[i].size < h[j].size
}
func (h victimHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *victimHeap) Push(x interface{}) { *h = append(*h, x.(victim)) }
func (h *victimHeap) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// Run performs one eviction pass. It is a no-op (returns nil) if the
// hot tier's used space is below watermarkHigh percent of total space
// (reaching it exactly starts a pass), or if a pass is
// already running (the CAS guard is a belt-and-suspenders measure since
// sched.Scheduler already serializes calls per registered task).
func (e *Eviction) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return nil
	}
	defer e.running.Store(false)

	release := e.lock.Acquire()
	defer release()

	totalSpace, usedSpace, err := e.hot.InfoStorage()
	if err != nil {
		return err
	}
	if usedSpace < totalSpace*int64(e.watermarkHigh)/100 {
		return nil
	}

	victims, err := e.collectVictims(ctx)
	if err != nil {
		return err
	}

	h := victimHeap(victims)
	heap.Init(&h)

	remaining := usedSpace
	lowWatermark := totalSpace * int64(e.watermarkLow) / 100
	var evicted int
	for h.Len() > 0 && remaining > lowWatermark {
		v := heap.Pop(&h).(victim)
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := copy.WriteBack(ctx, e.hot, e.cold, v.bucket, v.object, []string{MetaExpireFromCache, MetaCachedAt}); err != nil {
			return err
		}
		remaining -= v.size
		evicted++
		if e.onWriteback != nil {
			e.onWriteback()
		}
	}
	glog.V(3).Infof("eviction: freed %d objects, used %d -> ~%d (low watermark %d)", evicted, usedSpace, remaining, lowWatermark)
	return nil
}

func (e *Eviction) collectVictims(ctx context.Context) ([]victim, error) {
	var victims []victim
	buckets, err := e.hot.ListBuckets(0)
	if err != nil {
		return nil, err
	}
	for _, bucket := range buckets {
		offset := 0
		for {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			names, done, next, err := e.hot.ListObjects(bucket, "", offset, 0, 0)
			if err != nil {
				return nil, err
			}
			for _, object := range names {
				info, err := e.cold.InfoObject(bucket, object, 0)
				if err != nil {
					if store.Is(err, store.KindNotExists) {
						continue
					}
					return nil, err
				}
				victims = append(victims, victim{
					bucket: bucket, object: object,
					lastModification: info.LastModification,
					size:             info.Size,
				})
			}
			if done {
				break
			}
			offset = next
		}
	}
	return victims, nil
}
