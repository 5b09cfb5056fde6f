package dispatcher

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// testLogger implements Logger for testing
type testLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *testLogger) Debug(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("DEBUG: %s %v", msg, keysAndValues))
}

func (l *testLogger) Info(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("INFO: %s %v", msg, keysAndValues))
}

func (l *testLogger) Error(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("ERROR: %s %v", msg, keysAndValues))
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *testLogger) {
	logger := &testLogger{}

	d, err := New(logger)
	if err != nil {
		t.Fatalf("failed to create dispatcher: %v", err)
	}

	return d, logger
}

func TestDispatcher_SyncHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	called := false
	d.Register("click", func(e Event) (any, error) {
		called = true
		return "result", nil
	})

	result, err := d.Dispatch(Event{Name: "click", Args: []string{"marker-0"}})

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !called {
		t.Error("handler was not called")
	}
	if result != "result" {
		t.Errorf("expected 'result', got %v", result)
	}
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	d, _ := newTestDispatcher(t)

	_, err := d.Dispatch(Event{Name: "teleport"})

	if err == nil {
		t.Error("expected error for unknown command")
	}
}

func TestDispatcher_BufferedHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var processed atomic.Int32
	var wg sync.WaitGroup
	wg.Add(3)

	d.Register("hover", func(e Event) (any, error) {
		processed.Add(1)
		wg.Done()
		return nil, nil
	}, Buffered(100))

	// Dispatch 3 events
	for i := 0; i < 3; i++ {
		result, err := d.Dispatch(Event{Name: "hover"})
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if result != "queued" {
			t.Errorf("expected 'queued', got %v", result)
		}
	}

	// Wait for processing
	wg.Wait()

	if processed.Load() != 3 {
		t.Errorf("expected 3 processed, got %d", processed.Load())
	}
}

func TestDispatcher_BufferedDropsWhenFull(t *testing.T) {
	d, _ := newTestDispatcher(t)

	// Block the handler so queue fills up
	block := make(chan struct{})
	d.Register("resize", func(e Event) (any, error) {
		<-block
		return nil, nil
	}, Buffered(2))

	// Fill the queue (2 items) + 1 being processed
	d.Dispatch(Event{Name: "resize"}) // being processed
	d.Dispatch(Event{Name: "resize"}) // queued
	d.Dispatch(Event{Name: "resize"}) // queued

	// This should be dropped
	_, err := d.Dispatch(Event{Name: "resize"})

	if err == nil {
		t.Error("expected error when queue is full")
	}

	close(block)
}

func TestDispatcher_BufferedBlocking(t *testing.T) {
	d, _ := newTestDispatcher(t)

	block := make(chan struct{})
	d.Register("filter", func(e Event) (any, error) {
		<-block
		return nil, nil
	}, Buffered(1), Blocking())

	// First event starts processing
	d.Dispatch(Event{Name: "filter"})
	// Second event fills the queue
	d.Dispatch(Event{Name: "filter"})

	// Third event should block (test with timeout)
	done := make(chan struct{})
	go func() {
		d.Dispatch(Event{Name: "filter"})
		close(done)
	}()

	select {
	case <-done:
		t.Error("dispatch should have blocked")
	case <-time.After(50 * time.Millisecond):
		// Expected - dispatch is blocking
	}

	close(block)
}

func TestDispatcher_LoggedHandler(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register("close", func(e Event) (any, error) {
		return "ok", nil
	}, Logged())

	d.Dispatch(Event{Name: "close", Args: []string{"marker-3", "button"}})

	// Give time for logging
	time.Sleep(10 * time.Millisecond)

	logger.mu.Lock()
	defer logger.mu.Unlock()

	if len(logger.messages) < 2 {
		t.Errorf("expected at least 2 log messages, got %d", len(logger.messages))
	}
}

func TestDispatcher_LoggedHandlerError(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register("query", func(e Event) (any, error) {
		return nil, fmt.Errorf("test error")
	}, Logged())

	d.Dispatch(Event{Name: "query"})

	logger.mu.Lock()
	defer logger.mu.Unlock()

	hasError := false
	for _, msg := range logger.messages {
		if len(msg) >= 5 && msg[:5] == "ERROR" {
			hasError = true
			break
		}
	}

	if !hasError {
		t.Error("expected error log message")
	}
}

func TestDispatcher_HasHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	d.Register("click", func(e Event) (any, error) { return nil, nil })

	if !d.HasHandler("click") {
		t.Error("expected handler to exist")
	}

	if d.HasHandler("drag") {
		t.Error("expected handler to not exist")
	}
}

func TestDispatcher_CombinedOptions(t *testing.T) {
	d, logger := newTestDispatcher(t)

	var processed atomic.Int32
	var wg sync.WaitGroup
	wg.Add(1)

	d.Register("query", func(e Event) (any, error) {
		processed.Add(1)
		wg.Done()
		return "done", nil
	}, Buffered(100), Logged())

	result, err := d.Dispatch(Event{Name: "query"})

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if result != "queued" {
		t.Errorf("expected 'queued', got %v", result)
	}

	wg.Wait()

	if processed.Load() != 1 {
		t.Errorf("expected 1 processed, got %d", processed.Load())
	}

	logger.mu.Lock()
	defer logger.mu.Unlock()

	if len(logger.messages) < 2 {
		t.Errorf("expected log messages, got %d", len(logger.messages))
	}
}

func TestEvent_Arg(t *testing.T) {
	e := Event{Name: "hover", Args: []string{"marker-1", "true"}}

	if e.Arg(0) != "marker-1" {
		t.Errorf("expected marker-1, got %q", e.Arg(0))
	}
	if e.Arg(2) != "" || e.Arg(-1) != "" {
		t.Error("out of range args should be empty")
	}
}

func TestDispatcher_DispatchStampsTime(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var got time.Time
	d.Register("click", func(e Event) (any, error) {
		got = e.Timestamp
		return nil, nil
	})

	d.Dispatch(Event{Name: "click"})

	if got.IsZero() {
		t.Error("expected timestamp to be set")
	}
}

func TestDispatcher_CloseDrainsQueues(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var processed atomic.Int32
	d.Register("hover", func(e Event) (any, error) {
		time.Sleep(time.Millisecond)
		processed.Add(1)
		return nil, nil
	}, Buffered(10))

	for i := 0; i < 5; i++ {
		if _, err := d.Dispatch(Event{Name: "hover"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	d.Close()

	if processed.Load() != 5 {
		t.Errorf("expected 5 processed after close, got %d", processed.Load())
	}
	if _, err := d.Dispatch(Event{Name: "hover"}); err == nil {
		t.Error("expected error after close")
	}
	d.Close()
}

func TestDispatcher_BufferedErrorsAreLogged(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register("query", func(e Event) (any, error) {
		return nil, fmt.Errorf("explore failed")
	}, Buffered(1))

	d.Dispatch(Event{Name: "query"})
	d.Close()

	logger.mu.Lock()
	defer logger.mu.Unlock()
	found := false
	for _, msg := range logger.messages {
		if strings.Contains(msg, "buffered intent failed") {
			found = true
		}
	}
	if !found {
		t.Error("expected buffered failure to be logged")
	}
}

func TestDispatcher_DetachedStartsInDispatchOrder(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var mu sync.Mutex
	var started []string
	release := make(chan struct{})
	var finished atomic.Int32

	d.Register("query", func(e Event) (any, error) {
		mu.Lock()
		started = append(started, e.Arg(0))
		mu.Unlock()
		return Deferred(func() (any, error) {
			<-release
			finished.Add(1)
			return nil, nil
		}), nil
	}, Detached(4))

	for _, term := range []string{"tacos", "pizza", "ramen"} {
		result, err := d.Dispatch(Event{Name: "query", Args: []string{term}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result != "queued" {
			t.Errorf("expected 'queued', got %v", result)
		}
	}

	mu.Lock()
	got := strings.Join(started, ",")
	mu.Unlock()
	if got != "tacos,pizza,ramen" {
		t.Errorf("expected every query started before any finished, got %q", got)
	}
	if finished.Load() != 0 {
		t.Errorf("expected no deferred run finished yet, got %d", finished.Load())
	}

	close(release)
	d.Close()
	if finished.Load() != 3 {
		t.Errorf("expected 3 deferred runs after close, got %d", finished.Load())
	}
}

func TestDispatcher_DetachedPlainResultAndError(t *testing.T) {
	d, _ := newTestDispatcher(t)

	d.Register("query", func(e Event) (any, error) {
		if e.Arg(0) == "" {
			return nil, fmt.Errorf("empty search text")
		}
		return "done", nil
	}, Detached(1))

	result, err := d.Dispatch(Event{Name: "query", Args: []string{"tacos"}})
	if err != nil || result != "done" {
		t.Errorf("expected done, got %v, %v", result, err)
	}
	if _, err := d.Dispatch(Event{Name: "query"}); err == nil {
		t.Error("expected handler error to reach the caller")
	}
	d.Close()
}

func TestDispatcher_DetachedLimitsConcurrentRuns(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var running, peak atomic.Int32
	release := make(chan struct{})
	d.Register("query", func(e Event) (any, error) {
		return Deferred(func() (any, error) {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			<-release
			running.Add(-1)
			return nil, nil
		}), nil
	}, Detached(2))

	for i := 0; i < 5; i++ {
		d.Dispatch(Event{Name: "query"})
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	d.Close()

	if peak.Load() > 2 {
		t.Errorf("expected at most 2 concurrent runs, got %d", peak.Load())
	}
}
