package service

import "sync"

// notifier is the owned worker behind fire-and-forget dispatch: bill ids go in
// a buffered channel, one goroutine works them off in order. Every touch of
// the channel goes through the mutex so Submit can never race a Stop that is
// closing it.
type notifier struct {
	handler func(billID int64)

	mu      sync.Mutex
	jobs    chan int64
	running bool
	done    chan struct{}
}

func newNotifier(handler func(billID int64)) *notifier {
	return &notifier{handler: handler}
}

func (n *notifier) Start() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.running {
		return false
	}
	n.jobs = make(chan int64, 64)
	n.done = make(chan struct{})
	n.running = true

	jobs, done := n.jobs, n.done
	go func() {
		defer close(done)
		for id := range jobs {
			n.handler(id)
		}
	}()
	return true
}

// Submit queues a bill for async notification. Returns false when the worker
// is stopped or the backlog is full so the caller can fall back to the retry
// queue.
func (n *notifier) Submit(billID int64) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.running {
		return false
	}
	select {
	case n.jobs <- billID:
		return true
	default:
		return false
	}
}

// Stop closes the job channel and waits for in-flight work to finish. The
// running flag flips under the lock before the close, so a concurrent Submit
// either lands before the close or sees the worker as stopped.
func (n *notifier) Stop() bool {
	n.mu.Lock()
	if !n.running {
		n.mu.Unlock()
		return false
	}
	n.running = false
	close(n.jobs)
	done := n.done
	n.mu.Unlock()

	<-done
	return true
}
