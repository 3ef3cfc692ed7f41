// Package sched implements the cooperative periodic job scheduler shared
// by the eviction and cache-expiration controllers.
/*
 * Copyright (c) 2019-2024, FORTH-ICS. All rights reserved.
 */
package sched

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"
)

// Scheduler runs named periodic jobs on their own goroutines, the same
// name-plus-interval registration shape as the teacher's
// hk.Reg("lom-cache.gc", lchk.housekeep, iniEvictAtime) housekeeping
// idiom, generalized from one fixed task to an arbitrary set.
//
// Per §4.4, there is no catch-up on missed ticks: a task's time.Ticker
// holds at most one pending tick, so when an action outlasts the
// interval the next tick fires right after it returns and any further
// missed ticks are dropped rather than queued.
type Scheduler struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	group  *errgroup.Group
	ctx    context.Context
}

// New returns an idle Scheduler. Call Schedule to register jobs.
func New() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)
	return &Scheduler{cancel: cancel, group: group, ctx: ctx}
}

// Schedule starts a goroutine that invokes action every interval until
// Stop is called or action returns a non-nil error (which fails the
// Scheduler's errgroup and cancels every other scheduled task).
func (s *Scheduler) Schedule(name string, interval time.Duration, action func(context.Context) error) {
	s.group.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.ctx.Done():
				return nil
			case <-ticker.C:
				if s.ctx.Err() != nil {
					return nil
				}
				if err := action(s.ctx); err != nil {
					glog.Errorf("sched: task %q failed: %v", name, err)
					return err
				}
			}
		}
	})
}

// Stop cancels every scheduled task's context and waits for whichever
// action is currently running on each to finish before returning (§4.4,
// §5: "shutdown waits for the current action").
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel()
	return s.group.Wait()
}
