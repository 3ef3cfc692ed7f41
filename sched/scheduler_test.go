package sched

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestScheduleRunsPeriodically(t *testing.T) {
	s := New()
	var n int64
	s.Schedule("count", 10*time.Millisecond, func(context.Context) error {
		atomic.AddInt64(&n, 1)
		return nil
	})
	time.Sleep(55 * time.Millisecond)
	if err := s.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if got := atomic.LoadInt64(&n); got < 2 {
		t.Fatalf("expected at least 2 ticks, got %d", got)
	}
}

func TestStopWaitsForInFlightAction(t *testing.T) {
	s := New()
	started := make(chan struct{})
	release := make(chan struct{})
	s.Schedule("slow", 5*time.Millisecond, func(context.Context) error {
		close(started)
		<-release
		return nil
	})

	<-started
	done := make(chan error, 1)
	go func() { done <- s.Stop() }()

	select {
	case <-done:
		t.Fatalf("Stop returned before the in-flight action finished")
	case <-time.After(20 * time.Millisecond):
	}
	close(release)

	if err := <-done; err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestScheduleNoCatchUpOnSlowAction(t *testing.T) {
	s := New()
	var calls int64
	started := make(chan struct{}, 1)
	s.Schedule("slow-tick", 5*time.Millisecond, func(context.Context) error {
		atomic.AddInt64(&calls, 1)
		select {
		case started <- struct{}{}:
		default:
		}
		time.Sleep(40 * time.Millisecond)
		return nil
	})
	<-started
	time.Sleep(45 * time.Millisecond)
	s.Stop()
	if got := atomic.LoadInt64(&calls); got > 2 {
		t.Fatalf("expected missed ticks to be dropped, got %d calls", got)
	}
}
