package histotune

import (
	"fmt"
	"sync"
)

// Stream is an ordered sequence of device operations. Submissions return
// immediately; tasks execute one at a time in submission order on a
// dedicated worker goroutine, matching the in-order execution guarantee
// of a single CUDA stream. The first error raised by any task is latched
// and reported by Peek until cleared, mirroring cudaPeekAtLastError.
type Stream struct {
	tasks chan func()
	done  chan struct{}
	wg    sync.WaitGroup

	mu  sync.Mutex
	err error
}

func newStream() *Stream {
	s := &Stream{
		tasks: make(chan func(), 1024),
		done:  make(chan struct{}),
	}
	go s.worker()
	return s
}

// worker drains tasks in submission order
func (s *Stream) worker() {
	for task := range s.tasks {
		s.run(task)
		s.wg.Done()
	}
	close(s.done)
}

// run executes one task, converting panics into a latched device error
func (s *Stream) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			s.record(NewDeviceError("Stream", fmt.Sprintf("kernel panic: %v", r), nil))
		}
	}()
	task()
}

// Submit queues a task on the stream and returns immediately
func (s *Stream) Submit(task func()) {
	s.wg.Add(1)
	s.tasks <- task
}

// Synchronize blocks until all submitted tasks have completed
func (s *Stream) Synchronize() {
	s.wg.Wait()
}

// record latches the first asynchronous error
func (s *Stream) record(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// Peek returns the latched asynchronous error without clearing it
func (s *Stream) Peek() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// ClearError drops the latched error, like cudaGetLastError's reset
func (s *Stream) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = nil
}

// Close shuts the stream down after draining queued work
func (s *Stream) Close() {
	s.wg.Wait()
	close(s.tasks)
	<-s.done
}
