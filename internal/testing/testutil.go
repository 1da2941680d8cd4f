// Package testing provides test fixtures shared by the wifitracker packages:
// probe request builders, raw request log writers, a capturing slog
// handler and a goroutine error collector.
//
// Using t.Fatal or t.FailNow in a goroutine does not stop the test, because
// these functions call runtime.Goexit() which only exits the calling
// goroutine. GoroutineTest collects errors instead.
package testing

import (
	"context"
	"sync"
	"testing"
)

// GoroutineTest runs functions in goroutines and reports their errors
// from the test goroutine.
//
//	func TestConcurrentAppend(t *testing.T) {
//	    gt := trtest.NewGoroutineTest(t)
//	    for i := 0; i < 10; i++ {
//	        gt.Go(func() error { return w.Append(req) })
//	    }
//	    gt.Wait()
//	}
type GoroutineTest struct {
	t      *testing.T
	wg     sync.WaitGroup
	mu     sync.Mutex
	errs   []error
	ctx    context.Context
	cancel context.CancelFunc
}

// NewGoroutineTest creates a new GoroutineTest helper.
func NewGoroutineTest(t *testing.T) *GoroutineTest {
	ctx, cancel := context.WithCancel(context.Background())
	return &GoroutineTest{
		t:      t,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Go runs fn in a goroutine and records its error.
func (gt *GoroutineTest) Go(fn func() error) {
	gt.wg.Add(1)
	go func() {
		defer gt.wg.Done()
		if err := fn(); err != nil {
			gt.mu.Lock()
			gt.errs = append(gt.errs, err)
			gt.mu.Unlock()
		}
	}()
}

// GoWithContext runs fn with the helper's context in a goroutine.
func (gt *GoroutineTest) GoWithContext(fn func(ctx context.Context) error) {
	gt.Go(func() error { return fn(gt.ctx) })
}

// Wait waits for all goroutines and fails the test if any returned an error.
func (gt *GoroutineTest) Wait() {
	gt.wg.Wait()
	gt.cancel()

	gt.mu.Lock()
	defer gt.mu.Unlock()

	if len(gt.errs) > 0 {
		gt.t.Errorf("goroutine test failed with %d error(s):", len(gt.errs))
		for i, err := range gt.errs {
			gt.t.Errorf("  [%d] %v", i+1, err)
		}
		gt.t.FailNow()
	}
}

// Context returns the context for this test.
func (gt *GoroutineTest) Context() context.Context {
	return gt.ctx
}
