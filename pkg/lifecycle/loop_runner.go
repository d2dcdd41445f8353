package lifecycle

import (
	"context"
	"sync"
)

// LoopRunner runs one background loop at a time. Start and Stop are
// idempotent; Stop cancels the loop's context and waits for it to return.
type LoopRunner struct {
	mu      sync.Mutex
	wg      sync.WaitGroup
	running bool
	cancel  context.CancelFunc
}

func NewLoopRunner() *LoopRunner {
	return &LoopRunner{}
}

func (r *LoopRunner) Start(parent context.Context, loop func(ctx context.Context)) bool {
	if loop == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return false
	}

	ctx, cancel := context.WithCancel(parent)
	r.cancel = cancel
	r.running = true
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			r.mu.Lock()
			r.running = false
			r.mu.Unlock()
		}()
		loop(ctx)
	}()
	return true
}

func (r *LoopRunner) Stop() bool {
	r.mu.Lock()
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()
	if cancel == nil {
		return false
	}

	cancel()
	r.wg.Wait()
	return true
}

func (r *LoopRunner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}
