package sched

import "sync"

// Spawner queues messages for a software task.
type Spawner[M any] struct {
	core *Core
	task *task

	mu    sync.Mutex
	queue []M
	head  int
	n     int
}

// SoftwareTask registers a task fed by a bounded queue. The handler runs
// once per message, in spawn order.
func SoftwareTask[M any](c *Core, name string, prio Priority, capacity int, handler func(*Context, M)) *Spawner[M] {
	if capacity < 1 {
		capacity = 1
	}
	s := &Spawner[M]{core: c, queue: make([]M, capacity)}
	s.task = c.register(name, prio, func(x *Context) {
		msg, ok := s.pop()
		if !ok {
			return
		}
		if s.Len() > 0 {
			c.pend(s.task)
		}
		handler(x, msg)
	})
	return s
}

func (s *Spawner[M]) pop() (M, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero M
	if s.n == 0 {
		return zero, false
	}
	msg := s.queue[s.head]
	s.queue[s.head] = zero
	s.head = (s.head + 1) % len(s.queue)
	s.n--
	return msg, true
}

// Len returns the number of queued messages.
func (s *Spawner[M]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

// Cap returns the queue capacity.
func (s *Spawner[M]) Cap() int { return len(s.queue) }

// Spawn queues msg and pends the task; it is a preemption point when called
// from a task. A full queue is a fault: the core halts and ErrQueueFull is
// returned. x may be nil when spawning from outside the dispatcher.
func (s *Spawner[M]) Spawn(x *Context, msg M) error {
	if s.core.halted.Load() {
		return ErrHalted
	}
	s.mu.Lock()
	if s.n == len(s.queue) {
		s.mu.Unlock()
		s.core.raise(&FaultError{Task: s.task.name, Err: ErrQueueFull})
		return ErrQueueFull
	}
	s.queue[(s.head+s.n)%len(s.queue)] = msg
	s.n++
	s.mu.Unlock()

	s.core.pend(s.task)
	if x != nil {
		x.Yield()
	}
	return nil
}
