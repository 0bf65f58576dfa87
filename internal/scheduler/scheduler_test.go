package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestTickerFiresImmediately(t *testing.T) {
	ticker := NewTicker(time.Hour)
	defer ticker.Stop()

	fired := make(chan time.Time, 1)
	ticker.Start(context.Background(), func(now time.Time) {
		select {
		case fired <- now:
		default:
		}
	})

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("first run did not fire immediately")
	}
}

func TestTickerFiresRepeatedly(t *testing.T) {
	ticker := NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	var count atomic.Int64
	ticker.Start(context.Background(), func(time.Time) {
		count.Add(1)
	})

	deadline := time.After(time.Second)
	for count.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d runs within deadline, want >= 3", count.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestTickerStop(t *testing.T) {
	ticker := NewTicker(10 * time.Millisecond)

	var count atomic.Int64
	ticker.Start(context.Background(), func(time.Time) {
		count.Add(1)
	})

	time.Sleep(30 * time.Millisecond)
	ticker.Stop()
	after := count.Load()

	time.Sleep(50 * time.Millisecond)
	if got := count.Load(); got != after {
		t.Errorf("job ran %d more times after Stop", got-after)
	}
}

func TestTickerContextCancel(t *testing.T) {
	ticker := NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())

	var count atomic.Int64
	ticker.Start(ctx, func(time.Time) {
		count.Add(1)
	})

	time.Sleep(30 * time.Millisecond)
	cancel()
	time.Sleep(20 * time.Millisecond)
	after := count.Load()

	time.Sleep(50 * time.Millisecond)
	if got := count.Load(); got != after {
		t.Errorf("job ran %d more times after ctx cancel", got-after)
	}
}

func TestTickerStartTwiceIsNoop(t *testing.T) {
	ticker := NewTicker(time.Hour)
	defer ticker.Stop()

	var count atomic.Int64
	ticker.Start(context.Background(), func(time.Time) { count.Add(1) })
	ticker.Start(context.Background(), func(time.Time) { count.Add(100) })

	time.Sleep(20 * time.Millisecond)
	if got := count.Load(); got != 1 {
		t.Errorf("immediate runs = %d, want 1 (second Start ignored)", got)
	}
}
