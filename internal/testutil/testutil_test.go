package testutil

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestEventually(t *testing.T) {
	var ready atomic.Bool
	go func() {
		time.Sleep(20 * time.Millisecond)
		ready.Store(true)
	}()

	calls := 0
	Eventually(t, func() bool {
		calls++
		return ready.Load()
	}, time.Second, 5*time.Millisecond)

	if calls < 2 {
		t.Errorf("expected the condition to be polled more than once, got %d", calls)
	}
}

func TestEventuallyWithContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var n atomic.Int32
	EventuallyWithContext(t, ctx, func() bool {
		return n.Add(1) >= 3
	}, time.Millisecond)
	AssertEqual(t, n.Load(), int32(3))
}

func TestWaitForInt32(t *testing.T) {
	var runs int32
	go func() {
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&runs, 1)
	}()

	WaitForInt32(t, &runs, 1, time.Second)
	AssertEqual(t, atomic.LoadInt32(&runs), int32(1))
}

func TestWithTimeout(t *testing.T) {
	ctx, cancel := WithTimeout(t)
	defer cancel()

	deadline, ok := ctx.Deadline()
	if !ok {
		t.Fatal("expected a deadline")
	}
	if remaining := time.Until(deadline); remaining <= 0 || remaining > TestTimeout {
		t.Errorf("unexpected remaining time %v", remaining)
	}
}

func TestCallbackTracker(t *testing.T) {
	tracker := NewCallbackTracker()
	tracker.AssertNotCalled(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Mark()
		}()
	}
	wg.Wait()

	tracker.Mark("AGV1")
	tracker.AssertCalled(t)
	tracker.AssertCallCount(t, 11)
	AssertEqual(t, tracker.Value().(string), "AGV1")

	tracker.Reset()
	tracker.AssertNotCalled(t)
	if tracker.Value() != nil {
		t.Errorf("expected nil value after reset, got %v", tracker.Value())
	}
}

func TestAssertions(t *testing.T) {
	AssertNoError(t, nil)
	AssertError(t, errors.New("boom"))
	AssertEqual(t, "BUFFER", "BUFFER")
	AssertNotEqual(t, 1, 2)
	AssertInDelta(t, 8.95, 8.951, 0.01)
}

func TestMockClock(t *testing.T) {
	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)
	AssertEqual(t, clock.Now(), start)

	clock.Advance(2 * time.Minute)
	AssertEqual(t, clock.Now(), start.Add(2*time.Minute))

	later := start.Add(time.Hour)
	clock.Set(later)
	AssertEqual(t, clock.Now(), later)

	if NewMockClock(time.Time{}).Now().IsZero() {
		t.Error("zero start should fall back to the current time")
	}
}

func TestMockWriter(t *testing.T) {
	w := NewMockWriter()
	n, err := w.Write([]byte("id,status\n"))
	AssertNoError(t, err)
	AssertEqual(t, n, 10)
	AssertEqual(t, w.String(), "id,status\n")

	w.SetAlwaysError(errors.New("disk full"))
	_, err = w.Write([]byte("CMD1,ok\n"))
	AssertError(t, err)
	AssertEqual(t, w.WriteCount(), 2)
	AssertEqual(t, w.String(), "id,status\n")
}
