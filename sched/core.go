// Package sched runs fixed-priority tasks on a single dispatcher goroutine
// with priority-ceiling resource sharing.
//
// Hardware sources on other goroutines raise interrupt lines with
// Core.Interrupt. The dispatcher always runs the highest pending task whose
// priority is above both the running task and the system ceiling. A task
// is preempted only at preemption points: spawning, releasing a resource,
// and Context.Yield. Preempting work runs nested on the same goroutine, so
// tasks never need their own locks.
package sched

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Priority orders tasks; higher runs first. Zero is reserved for idle.
type Priority uint8

// Line identifies a hardware task's interrupt line.
type Line int

// ErrQueueFull is the cause of the fault raised when a spawn finds the
// task's queue full.
var ErrQueueFull = errors.New("sched: queue full")

// ErrHalted is returned by Spawn after the core faulted.
var ErrHalted = errors.New("sched: core halted")

// FaultError describes an unrecoverable scheduling fault.
type FaultError struct {
	Task string
	Err  error
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("sched: fault in task %s: %v", e.Task, e.Err)
}

func (e *FaultError) Unwrap() error { return e.Err }

type task struct {
	name    string
	prio    Priority
	run     func(*Context)
	pending bool
	runs    atomic.Uint64
}

type timer struct {
	line   Line
	period time.Duration
}

// Core is the dispatcher. Configure it completely, then call Run.
type Core struct {
	logger *slog.Logger

	mu     sync.Mutex // guards task.pending
	tasks  []*task
	byPrio []*task
	wake   chan struct{}
	timers []timer

	armed   atomic.Bool
	halted  atomic.Bool
	fault   atomic.Pointer[FaultError]
	onFault func(*FaultError)
	idle    func(*Context)

	// dispatcher goroutine only
	running Priority
	ceiling Priority
}

// New returns an unarmed core.
func New(logger *slog.Logger) *Core {
	return &Core{
		logger:  logger,
		wake:    make(chan struct{}, 1),
		onFault: func(f *FaultError) { panic(f) },
	}
}

func (c *Core) mustConfigure(what string) {
	if c.armed.Load() {
		panic(fmt.Sprintf("sched: %s after Run", what))
	}
}

func (c *Core) register(name string, prio Priority, run func(*Context)) *task {
	c.mustConfigure("task registration")
	if prio == 0 {
		panic(fmt.Sprintf("sched: task %s: priority 0 is reserved for idle", name))
	}
	t := &task{name: name, prio: prio, run: run}
	c.tasks = append(c.tasks, t)
	c.byPrio = append(c.byPrio, t)
	sort.SliceStable(c.byPrio, func(i, j int) bool { return c.byPrio[i].prio > c.byPrio[j].prio })
	return t
}

// HardwareTask registers a task bound to a new interrupt line.
func (c *Core) HardwareTask(name string, prio Priority, handler func(*Context)) Line {
	c.register(name, prio, handler)
	return Line(len(c.tasks) - 1)
}

// Periodic raises line every period once the core runs.
func (c *Core) Periodic(line Line, period time.Duration) {
	c.mustConfigure("timer registration")
	c.timers = append(c.timers, timer{line: line, period: period})
}

// SetIdle installs the idle hook, run at priority 0 whenever no task is
// pending.
func (c *Core) SetIdle(fn func(*Context)) {
	c.mustConfigure("idle registration")
	c.idle = fn
}

// OnFault replaces the default fault handler, which panics. The handler
// runs once, on the goroutine that raised the fault.
func (c *Core) OnFault(fn func(*FaultError)) {
	c.mustConfigure("fault handler registration")
	c.onFault = fn
}

// Interrupt pends the task on line. Safe from any goroutine; pending an
// already pending line has no further effect.
func (c *Core) Interrupt(line Line) {
	c.mu.Lock()
	c.tasks[line].pending = true
	c.mu.Unlock()
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Core) pend(t *task) {
	c.mu.Lock()
	t.pending = true
	c.mu.Unlock()
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// next claims the highest pending task allowed to run now.
func (c *Core) next() *task {
	threshold := max(c.running, c.ceiling)
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.byPrio {
		if t.prio <= threshold {
			return nil
		}
		if t.pending {
			t.pending = false
			return t
		}
	}
	return nil
}

// dispatch runs eligible tasks until none remain.
func (c *Core) dispatch() {
	for !c.halted.Load() {
		t := c.next()
		if t == nil {
			return
		}
		prev := c.running
		c.running = t.prio
		t.runs.Add(1)
		t.run(&Context{core: c, prio: t.prio, name: t.name})
		c.running = prev
	}
}

func (c *Core) raise(f *FaultError) {
	if !c.fault.CompareAndSwap(nil, f) {
		return
	}
	c.halted.Store(true)
	c.logger.Error("Scheduler fault", "task", f.Task, "error", f.Err)
	select {
	case c.wake <- struct{}{}:
	default:
	}
	c.onFault(f)
}

// Halted reports whether a fault stopped the core.
func (c *Core) Halted() bool { return c.halted.Load() }

// Fault returns the fault that halted the core, if any.
func (c *Core) Fault() *FaultError { return c.fault.Load() }

// Runs returns how often each task has been dispatched, by name.
func (c *Core) Runs() map[string]uint64 {
	out := make(map[string]uint64, len(c.tasks))
	for _, t := range c.tasks {
		out[t.name] = t.runs.Load()
	}
	return out
}

// Run arms the core and dispatches until ctx ends or a fault halts it, in
// which case the *FaultError is returned.
func (c *Core) Run(ctx context.Context) error {
	if !c.armed.CompareAndSwap(false, true) {
		return errors.New("sched: core already running")
	}
	for _, t := range c.timers {
		go func(t timer) {
			tk := time.NewTicker(t.period)
			defer tk.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-tk.C:
					if c.halted.Load() {
						return
					}
					c.Interrupt(t.line)
				}
			}
		}(t)
	}
	c.logger.Debug("Scheduler running", "tasks", len(c.tasks), "timers", len(c.timers))

	idle := &Context{core: c, name: "idle"}
	for {
		c.dispatch()
		if f := c.fault.Load(); f != nil {
			return f
		}
		if c.idle != nil {
			c.idle(idle)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-c.wake:
		}
	}
}
